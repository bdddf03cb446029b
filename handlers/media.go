package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/expothearchive/archive-backend/internal/feed"
	"github.com/expothearchive/archive-backend/internal/media"
)

// MediaHandler accepts artwork uploads for image entries and resolves stored
// keys to presigned URLs the grid can render directly.
type MediaHandler struct {
	store   *media.Store
	session *feed.Session
}

func NewMediaHandler(store *media.Store, session *feed.Session) *MediaHandler {
	return &MediaHandler{store: store, session: session}
}

// Register mounts media routes; upload requires an authenticated admin.
func (h *MediaHandler) Register(rg *gin.RouterGroup, authRequired gin.HandlerFunc) {
	rg.GET("/media/:key", h.ResolveURL)
	mut := rg.Group("/")
	if authRequired != nil {
		mut.Use(authRequired)
	}
	mut.POST("/media", h.Upload)
}

func (h *MediaHandler) Upload(c *gin.Context) {
	actor := actorFromContext(c)
	if !h.session.IsAdmin(actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if err := h.store.Upload(c.Request.Context(), key, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mediaRef": key})
}

func (h *MediaHandler) ResolveURL(c *gin.Context) {
	url, err := h.store.PresignedURL(c.Request.Context(), c.Param("key"), 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
