package guest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// store abstracts the persistence layer for handlers.
type store interface {
	Create(ctx context.Context, firstName, lastName string) (Guest, error)
	List(ctx context.Context) ([]Guest, error)
	Update(ctx context.Context, id uuid.UUID, firstName, lastName string) (Guest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RegisterRoutes mounts guest CRUD under the provided (authenticated) group.
func RegisterRoutes(group gin.IRouter, repo store) {
	handler := &httpHandler{repo: repo}
	group.GET("/guests", handler.list)
	group.POST("/guests", handler.create)
	group.PUT("/guests/:id", handler.update)
	group.DELETE("/guests/:id", handler.delete)
}

type httpHandler struct {
	repo store
}

type guestRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *httpHandler) list(c *gin.Context) {
	guests, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if guests == nil {
		guests = []Guest{}
	}
	c.JSON(http.StatusOK, guests)
}

func (h *httpHandler) create(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	g, err := h.repo.Create(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *httpHandler) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest id"})
		return
	}

	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	g, err := h.repo.Update(c.Request.Context(), id, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *httpHandler) delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guest id"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
