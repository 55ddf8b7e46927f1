package media

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ansard/weddingbook/internal/auth"
	"github.com/ansard/weddingbook/internal/metrics"
)

// Handler bundles the media endpoints' collaborators.
type Handler struct {
	service  *Service
	deriver  *Deriver
	worker   *Worker
	gate     *Gate
	maxFiles int
}

// NewHandler builds the media HTTP handler.
func NewHandler(service *Service, deriver *Deriver, worker *Worker, gate *Gate, maxFiles int) *Handler {
	return &Handler{
		service:  service,
		deriver:  deriver,
		worker:   worker,
		gate:     gate,
		maxFiles: maxFiles,
	}
}

// RegisterRoutes mounts the media endpoints. Admin operations sit behind the
// provided auth middleware; upload, streaming, and gallery are public (the
// access gate handles per-object visibility).
func (h *Handler) RegisterRoutes(router gin.IRouter, authMW gin.HandlerFunc) {
	router.POST("/uploads", h.upload)
	router.GET("/files/:id", h.serveFile)
	router.GET("/thumbnails/:id", h.serveThumbnail)
	router.GET("/gallery", h.gallery)

	admin := router.Group("/uploads")
	admin.Use(authMW)
	admin.GET("", h.list)
	admin.POST("/:id/approve", h.approve)
	admin.DELETE("/:id", h.delete)
}

type uploadedFile struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalname"`
	ContentType  string    `json:"contentType"`
}

// upload accepts a bounded multipart batch and responds with the created
// identifiers immediately; derivation happens on the background worker.
func (h *Handler) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files field is required"})
		return
	}
	if len(files) > h.maxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrTooManyFiles.Error()})
		return
	}

	uploader := c.PostForm("uploader")

	out := make([]uploadedFile, 0, len(files))
	for _, fileHeader := range files {
		stored, err := h.service.Upload(c.Request.Context(), fileHeader, uploader)
		if err != nil {
			if errors.Is(err, ErrFileTooLarge) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}
		metrics.UploadsTotal.Inc()
		out = append(out, uploadedFile{
			ID:           stored.ID,
			Filename:     stored.Filename,
			OriginalName: stored.OriginalFilename,
			ContentType:  stored.ContentType,
		})
	}

	// respond before any media processing; the worker picks these up
	for _, f := range out {
		h.worker.Enqueue(f.ID)
	}

	c.JSON(http.StatusOK, gin.H{"files": out})
}

func (h *Handler) list(c *gin.Context) {
	objects, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if objects == nil {
		objects = []Object{}
	}
	c.JSON(http.StatusOK, objects)
}

func (h *Handler) approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	updated, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// serveFile streams an object: the original by default, the preview with
// ?thumb=1. Unapproved originals need a valid credential either way.
func (h *Handler) serveFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	o, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	if !h.allow(c, o) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not approved yet"})
		return
	}

	thumb := c.Query("thumb")
	if (thumb == "1" || thumb == "true") && !o.IsPreview {
		if preview, ok := h.previewFor(c, o); ok {
			h.streamPreview(c, preview)
			return
		}
		// no preview possible; fall back to the original unchanged
	}

	h.streamOriginal(c, o)
}

// serveThumbnail streams the preview for an original, generating on demand.
func (h *Handler) serveThumbnail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	o, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "original file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	if !h.allow(c, o) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not approved yet"})
		return
	}

	if preview, ok := h.previewFor(c, o); ok {
		h.streamPreview(c, preview)
		return
	}

	h.streamOriginal(c, o)
}

func (h *Handler) gallery(c *gin.Context) {
	kind := c.Query("type")
	if kind != "image" && kind != "video" {
		kind = ""
	}

	objects, err := h.service.Gallery(c.Request.Context(), kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	out := make([]uploadedFile, 0, len(objects))
	for _, o := range objects {
		out = append(out, uploadedFile{
			ID:           o.ID,
			Filename:     o.Filename,
			OriginalName: o.OriginalFilename,
			ContentType:  o.ContentType,
		})
	}
	c.JSON(http.StatusOK, out)
}

// allow runs the access gate against the object, resolving previews to their
// original first so an unapproved upload's thumbnail is not public.
func (h *Handler) allow(c *gin.Context, o Object) bool {
	gateObject := o
	if o.IsPreview && o.OriginalID != nil {
		if original, err := h.service.Get(c.Request.Context(), *o.OriginalID); err == nil {
			gateObject = original
		}
	}
	return h.gate.Allow(gateObject, auth.TokenFromRequest(c)) == nil
}

// previewFor finds or synchronously derives the preview for an original.
func (h *Handler) previewFor(c *gin.Context, o Object) (Object, bool) {
	preview, err := h.service.PreviewFor(c.Request.Context(), o.ID)
	if err == nil {
		return preview, true
	}

	preview, err = h.deriver.Derive(c.Request.Context(), o)
	if err != nil {
		return Object{}, false
	}
	return preview, true
}
