// Package handlers exposes the CRM services over the REST API. Handlers
// only bind requests, call a service and shape the response envelope.
package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"imob-crm/internal/logging"
	"imob-crm/internal/middleware"
	"imob-crm/internal/services"
	"imob-crm/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMaxPhotoBytes bounds one uploaded property photo
const DefaultMaxPhotoBytes int64 = 10 << 20

// Pinger is a backing store that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains all the dependencies for API handlers
type Handler struct {
	DB            *gorm.DB
	Leads         *services.LeadService
	Properties    *services.PropertyService
	Negotiations  *services.NegotiationService
	Conversations *services.ConversationService
	AI            *services.AIService
	MaxPhotoBytes int64
	// SpendStore is checked by /health when the spend counter lives outside
	// the process. Nil means the in-memory counter.
	SpendStore    Pinger

	log *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(db *gorm.DB, leads *services.LeadService, properties *services.PropertyService,
	negotiations *services.NegotiationService, conversations *services.ConversationService, aiService *services.AIService) *Handler {
	return &Handler{
		DB:            db,
		Leads:         leads,
		Properties:    properties,
		Negotiations:  negotiations,
		Conversations: conversations,
		AI:            aiService,
		MaxPhotoBytes: DefaultMaxPhotoBytes,
		log:           logging.Named("handlers"),
	}
}

// StandardResponse represents a standard API response
type StandardResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	StandardResponse
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func newPaginationInfo(page services.Page, total int64) *PaginationInfo {
	totalPages := int(math.Ceil(float64(total) / float64(page.Limit)))
	return &PaginationInfo{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page.Page < totalPages,
		HasPrev:    page.Page > 1,
	}
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, StandardResponse{Success: true, Data: data})
}

func paginated(c *gin.Context, data interface{}, page services.Page, total int64) {
	c.JSON(http.StatusOK, PaginatedResponse{
		StandardResponse: StandardResponse{Success: true, Data: data},
		Pagination:       newPaginationInfo(page, total),
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, StandardResponse{Success: false, Error: message, Code: code})
}

func badRequest(c *gin.Context) {
	fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
}

// respondError maps a service error onto the response envelope.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, storage.ErrDisabled):
		fail(c, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Photo storage is not configured")
	default:
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Internal server error")
	}
}

// owner returns the authenticated broker id or writes a 401.
func owner(c *gin.Context) (string, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return "", false
	}
	return userID, true
}

// parseID reads a positive numeric path parameter or writes a 400.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parsePage(c *gin.Context) services.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
	return services.Page{Page: page, Limit: limit}.Normalize()
}
