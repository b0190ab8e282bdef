package handlers

import (
	"net/http"

	"imob-crm/internal/services"

	"github.com/gin-gonic/gin"
)

// ownedID reads the broker id and the :id path parameter.
func ownedID(c *gin.Context) (string, uint, bool) {
	ownerID, ok := owner(c)
	if !ok {
		return "", 0, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return "", 0, false
	}
	return ownerID, id, true
}

// ListLeads returns the broker's leads
// GET /leads?status=novo&q=ana&page=1&limit=20
func (h *Handler) ListLeads(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	page := parsePage(c)
	filter := services.LeadFilter{Status: c.Query("status"), Search: c.Query("q")}

	leads, total, err := h.Leads.List(c.Request.Context(), ownerID, filter, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, leads, page, total)
}

// CreateLead creates a lead
// POST /leads
func (h *Handler) CreateLead(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var req services.LeadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	lead, err := h.Leads.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, lead)
}

// GetLead returns one lead with its negotiations
// GET /leads/:id
func (h *Handler) GetLead(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	lead, err := h.Leads.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, lead)
}

// UpdateLead applies a partial update
// PUT /leads/:id
func (h *Handler) UpdateLead(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req services.LeadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	lead, err := h.Leads.Update(c.Request.Context(), ownerID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, lead)
}

// DeleteLead removes a lead and its negotiations
// DELETE /leads/:id
func (h *Handler) DeleteLead(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	if err := h.Leads.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Lead deleted"})
}

// QualifyLead asks the qualifier agent to score a lead. A provider failure
// still answers 200 with the fallback assessment.
// POST /leads/:id/qualify
func (h *Handler) QualifyLead(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	answer, err := h.AI.QualifyLead(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, answer)
}
