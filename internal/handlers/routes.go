package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API on v1. requireAuth guards the broker routes
// and chatLimit throttles the public chat.
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup, requireAuth, chatLimit gin.HandlerFunc) {
	// Public qualification chat (no auth, rate limited)
	public := v1.Group("/public")
	{
		public.POST("/qualify/chat", chatLimit, h.PublicChat)
	}

	protected := v1.Group("/")
	protected.Use(requireAuth)
	{
		leads := protected.Group("/leads")
		{
			leads.GET("", h.ListLeads)
			leads.POST("", h.CreateLead)
			leads.GET("/:id", h.GetLead)
			leads.PUT("/:id", h.UpdateLead)
			leads.DELETE("/:id", h.DeleteLead)
			leads.POST("/:id/qualify", h.QualifyLead)
		}

		properties := protected.Group("/properties")
		{
			properties.GET("", h.ListProperties)
			properties.POST("", h.CreateProperty)
			properties.GET("/:id", h.GetProperty)
			properties.PUT("/:id", h.UpdateProperty)
			properties.DELETE("/:id", h.DeleteProperty)
			properties.POST("/:id/photos", h.UploadPropertyPhoto)
		}

		negotiations := protected.Group("/negotiations")
		{
			negotiations.GET("", h.ListNegotiations)
			negotiations.GET("/pipeline", h.Pipeline)
			negotiations.POST("", h.CreateNegotiation)
			negotiations.GET("/:id", h.GetNegotiation)
			negotiations.PUT("/:id", h.UpdateNegotiation)
			negotiations.DELETE("/:id", h.DeleteNegotiation)
			negotiations.PATCH("/:id/stage", h.MoveStage)
			negotiations.POST("/:id/activities", h.AddActivity)
			negotiations.GET("/:id/activities", h.ListActivities)
			negotiations.POST("/:id/coach", h.Coach)
			negotiations.POST("/:id/messages", h.DraftMessage)
			negotiations.GET("/:id/ai-history", h.NegotiationAIHistory)
		}

		conversations := protected.Group("/conversations")
		{
			conversations.GET("", h.ListConversations)
			conversations.GET("/:id", h.GetConversation)
			conversations.POST("/:id/promote", h.PromoteConversation)
		}

		ai := protected.Group("/ai")
		{
			ai.GET("/status", h.AIStatus)
			ai.GET("/spend", h.AISpend)
		}
	}
}
