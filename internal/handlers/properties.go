package handlers

import (
	"errors"
	"net/http"
	"strings"

	"imob-crm/internal/services"

	"github.com/gin-gonic/gin"
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ListProperties returns the broker's property catalog
// GET /properties?kind=avulso&status=disponivel&city=Campinas&q=garden
func (h *Handler) ListProperties(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	page := parsePage(c)
	filter := services.PropertyFilter{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		City:   c.Query("city"),
		Search: c.Query("q"),
	}

	props, total, err := h.Properties.List(c.Request.Context(), ownerID, filter, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, props, page, total)
}

// CreateProperty adds a property
// POST /properties
func (h *Handler) CreateProperty(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var req services.PropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	prop, err := h.Properties.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, prop)
}

// GetProperty returns one property
// GET /properties/:id
func (h *Handler) GetProperty(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	prop, err := h.Properties.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, prop)
}

// UpdateProperty applies a partial update
// PUT /properties/:id
func (h *Handler) UpdateProperty(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	var req services.PropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	prop, err := h.Properties.Update(c.Request.Context(), ownerID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, prop)
}

// DeleteProperty removes a property
// DELETE /properties/:id
func (h *Handler) DeleteProperty(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	if err := h.Properties.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Property deleted"})
}

// UploadPropertyPhoto stores one photo in the bucket and appends its URL
// POST /properties/:id/photos (multipart field "photo")
func (h *Handler) UploadPropertyPhoto(c *gin.Context) {
	ownerID, id, ok := ownedID(c)
	if !ok {
		return
	}
	if !h.Properties.StorageEnabled() {
		fail(c, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Photo storage is not configured")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxPhotoBytes+(1<<20))
	file, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Photo is too large")
			return
		}
		fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Multipart field 'photo' is required")
		return
	}
	if file.Size > h.MaxPhotoBytes {
		fail(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Photo is too large")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.Header.Get("Content-Type"), ";")[0]))
	if !allowedPhotoTypes[contentType] {
		fail(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Photo must be JPEG, PNG or WebP")
		return
	}

	src, err := file.Open()
	if err != nil {
		badRequest(c)
		return
	}
	defer src.Close()

	prop, err := h.Properties.AddPhoto(c.Request.Context(), ownerID, id, file.Filename, contentType, src)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, prop)
}
