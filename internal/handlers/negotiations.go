package handlers

import (
	"net/http"

	"imob-crm/internal/assistant"
	"imob-crm/internal/services"
	"imob-crm/pkg/models"

	"github.com/gin-gonic/gin"
)

// MoveStageRequest moves a negotiation on the kanban board
type MoveStageRequest struct {
	Stage      string `json:"stage" binding:"required"`
	LostReason string `json:"lost_reason"`
}

// CoachRequest is a broker question for the sales coach
type CoachRequest struct {
	Question string `json:"question" binding:"required"`
}

// DraftMessageRequest asks the copywriter for a message
type DraftMessageRequest struct {
	Type       string `json:"type" binding:"required"`
	BrokerName string `json:"broker_name"`
	Context    string `json:"context"`
}

// ListNegotiations returns one page of negotiations
// GET /negotiations?stage=negociacao
func (h *Handler) ListNegotiations(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	page := parsePage(c)

	negs, total, err := h.Negotiations.List(c.Request.Context(), ownerID, c.Query("stage"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, negs, page, total)
}

// Pipeline returns every negotiation grouped by stage in board order
// GET /negotiations/pipeline
func (h *Handler) Pipeline(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	columns, err := h.Negotiations.Pipeline(c.Request.Context(), ownerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"stages":  models.StageOrder,
		"columns": columns,
	})
}

// CreateNegotiation opens a negotiation for a lead
// POST /negotiations
func (h *Handler) CreateNegotiation(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var req services.NegotiationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	neg, err := h.Negotiations.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, neg)
}

// GetNegotiation returns a negotiation with its lead, property, activities
// and AI history
// GET /negotiations/:id
func (h *Handler) GetNegotiation(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	neg, err := h.Negotiations.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, neg)
}

// UpdateNegotiation edits everything but the stage
// PUT /negotiations/:id
func (h *Handler) UpdateNegotiation(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req services.NegotiationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	neg, err := h.Negotiations.Update(c.Request.Context(), ownerID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, neg)
}

// DeleteNegotiation removes a negotiation
// DELETE /negotiations/:id
func (h *Handler) DeleteNegotiation(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	if err := h.Negotiations.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Negotiation deleted"})
}

// MoveStage changes the pipeline stage
// PATCH /negotiations/:id/stage
func (h *Handler) MoveStage(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	neg, err := h.Negotiations.MoveStage(c.Request.Context(), ownerID, id, req.Stage, req.LostReason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, neg)
}

// AddActivity logs a broker interaction
// POST /negotiations/:id/activities
func (h *Handler) AddActivity(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req services.ActivityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	activity, err := h.Negotiations.AddActivity(c.Request.Context(), ownerID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, activity)
}

// ListActivities returns the activity timeline, newest first
// GET /negotiations/:id/activities
func (h *Handler) ListActivities(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	activities, err := h.Negotiations.Activities(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, activities)
}

// Coach answers a question about the negotiation
// POST /negotiations/:id/coach
func (h *Handler) Coach(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req CoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	answer, err := h.AI.Coach(c.Request.Context(), ownerID, id, req.Question)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, answer)
}

// DraftMessage writes a message for the lead
// POST /negotiations/:id/messages
func (h *Handler) DraftMessage(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req DraftMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	answer, err := h.AI.DraftMessage(c.Request.Context(), ownerID, id, assistant.MessageRequest{
		Type:       req.Type,
		BrokerName: req.BrokerName,
		Context:    req.Context,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, answer)
}

// NegotiationAIHistory lists the AI exchanges of a negotiation
// GET /negotiations/:id/ai-history
func (h *Handler) NegotiationAIHistory(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	history, err := h.Negotiations.AIHistory(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, history)
}
