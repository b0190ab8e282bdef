package handlers

import (
	"net/http"
	"strconv"

	"imob-crm/internal/services"

	"github.com/gin-gonic/gin"
)

// PublicChat answers one visitor message on the qualification chat. No
// authentication; the route is rate limited per IP.
// POST /public/qualify/chat
func (h *Handler) PublicChat(c *gin.Context) {
	var req services.ChatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	reply, err := h.Conversations.Chat(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, reply)
}

// ListConversations returns chat conversations visible to the broker
// GET /conversations?status=ativa&complete=true
func (h *Handler) ListConversations(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	page := parsePage(c)
	filter := services.ConversationFilter{Status: c.Query("status")}
	if raw := c.Query("complete"); raw != "" {
		complete, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "INVALID_REQUEST", "complete must be true or false")
			return
		}
		filter.Complete = &complete
	}

	convs, total, err := h.Conversations.List(c.Request.Context(), ownerID, filter, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, convs, page, total)
}

// GetConversation returns a conversation with its messages
// GET /conversations/:id
func (h *Handler) GetConversation(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	conv, err := h.Conversations.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, conv)
}

// PromoteConversation turns a conversation into a lead owned by the broker
// POST /conversations/:id/promote
func (h *Handler) PromoteConversation(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	lead, err := h.Conversations.Promote(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, lead)
}
