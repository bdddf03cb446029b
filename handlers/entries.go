package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/expothearchive/archive-backend/internal/archive"
	"github.com/expothearchive/archive-backend/internal/archive/repository"
	"github.com/expothearchive/archive-backend/internal/feed"
	"github.com/expothearchive/archive-backend/internal/models"
)

// EntriesHandler exposes the feed over HTTP: filtered listing, entry CRUD,
// likes and comments. All mutations go through the feed.Gateway, which owns
// authorization and validation.
type EntriesHandler struct {
	gateway *feed.Gateway
	store   *feed.Store
}

func NewEntriesHandler(gw *feed.Gateway, store *feed.Store) *EntriesHandler {
	return &EntriesHandler{gateway: gw, store: store}
}

// Register mounts the entry routes. Mutating routes run behind authRequired
// when one is provided; with nil auth the handlers still reject mutations
// because no actor can be resolved from the request.
func (h *EntriesHandler) Register(rg *gin.RouterGroup, authRequired gin.HandlerFunc) {
	rg.GET("/entries", h.ListEntries)
	rg.GET("/entries/:id", h.GetEntry)
	rg.GET("/entries/:id/next", h.NextEntry)
	rg.GET("/entries/:id/previous", h.PreviousEntry)
	rg.GET("/entries/:id/comments", h.ListComments)

	mut := rg.Group("/")
	if authRequired != nil {
		mut.Use(authRequired)
	}
	mut.POST("/entries", h.CreateEntry)
	mut.PATCH("/entries/:id", h.EditEntry)
	mut.DELETE("/entries/:id", h.DeleteEntry)
	mut.POST("/entries/:id/like", h.ToggleLike)
	mut.POST("/entries/:id/comments", h.AddComment)
	mut.POST("/entries/:id/comments/:commentId/like", h.ToggleCommentLike)
}

// actorFromContext rebuilds the acting identity from the verified token
// claims. Returns nil for anonymous requests.
func actorFromContext(c *gin.Context) *models.Actor {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	sub, _ := cm["sub"].(string)
	if sub == "" {
		return nil
	}
	email, _ := cm["email"].(string)
	name, _ := cm["name"].(string)
	avatar, _ := cm["picture"].(string)
	return &models.Actor{Sub: sub, Email: email, Name: name, AvatarURL: avatar}
}

func writeGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feed.ErrSignInRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, feed.ErrAdminOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, feed.ErrInvalidEntry), errors.Is(err, feed.ErrEmptyComment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "operation failed"})
	}
}

// ListEntries returns the filtered view over the mirrored collection.
// Query params: type=all|text|image, q=<search>.
func (h *EntriesHandler) ListEntries(c *gin.Context) {
	f := feed.ParseTypeFilter(c.Query("type"))
	out := feed.Filter(h.store.Snapshot(), f, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"entries": out, "total": len(out)})
}

func (h *EntriesHandler) GetEntry(c *gin.Context) {
	id := c.Param("id")
	for _, e := range h.store.Snapshot() {
		if e.ID == id {
			c.JSON(http.StatusOK, e)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// NextEntry and PreviousEntry navigate the filtered view with wraparound,
// honoring the same type/q params as the listing so the detail overlay steps
// through exactly what the grid shows.
func (h *EntriesHandler) NextEntry(c *gin.Context) {
	h.navigate(c, feed.Next)
}

func (h *EntriesHandler) PreviousEntry(c *gin.Context) {
	h.navigate(c, feed.Previous)
}

func (h *EntriesHandler) navigate(c *gin.Context, step func([]*archive.Entry, string) *archive.Entry) {
	f := feed.ParseTypeFilter(c.Query("type"))
	list := feed.Filter(h.store.Snapshot(), f, c.Query("q"))
	e := step(list, c.Param("id"))
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EntriesHandler) CreateEntry(c *gin.Context) {
	var draft archive.EntryDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.gateway.CreateEntry(c.Request.Context(), draft, actorFromContext(c))
	if err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *EntriesHandler) EditEntry(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.gateway.EditEntryContent(c.Request.Context(), c.Param("id"), req.Content, actorFromContext(c)); err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h *EntriesHandler) DeleteEntry(c *gin.Context) {
	if err := h.gateway.DeleteEntry(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		writeGatewayError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EntriesHandler) ToggleLike(c *gin.Context) {
	if err := h.gateway.ToggleLike(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h *EntriesHandler) ListComments(c *gin.Context) {
	comments, err := h.gateway.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "total": len(comments)})
}

func (h *EntriesHandler) AddComment(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.gateway.AddComment(c.Request.Context(), c.Param("id"), req.Text, actorFromContext(c))
	if err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *EntriesHandler) ToggleCommentLike(c *gin.Context) {
	err := h.gateway.ToggleCommentLike(c.Request.Context(), c.Param("id"), c.Param("commentId"), actorFromContext(c))
	if err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("commentId")})
}
