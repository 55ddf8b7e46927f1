package media

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// previews never change once created, so clients may cache them for 7 days
const previewCacheControl = "public, max-age=604800"

// byteRange is an inclusive span within an object's payload.
type byteRange struct {
	start int64
	end   int64
}

func (r byteRange) length() int64 { return r.end - r.start + 1 }

func (r byteRange) contentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, total)
}

// parseByteRange interprets a "bytes=START-END" header (END optional,
// defaulting to the last byte) against the object's total length. Returns
// ErrInvalidRange for malformed headers and for spans starting at or past
// the end of the object.
func parseByteRange(header string, size int64) (byteRange, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return byteRange{}, ErrInvalidRange
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || startStr == "" {
		return byteRange{}, ErrInvalidRange
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, ErrInvalidRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return byteRange{}, ErrInvalidRange
		}
	}
	if end > size-1 {
		end = size - 1
	}

	if start >= size || start > end {
		return byteRange{}, ErrInvalidRange
	}
	return byteRange{start: start, end: end}, nil
}

// streamOriginal serves an object's payload with correct framing: full-body
// responses for most content, range-aware partial responses for video.
func (h *Handler) streamOriginal(c *gin.Context, o Object) {
	contentType := o.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)

	disposition := "inline"
	if download := c.Query("download"); download != "" && download != "0" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, o.DisplayName()))

	if o.IsVideo() {
		// advertised even on full responses so players know seeking works
		c.Header("Accept-Ranges", "bytes")

		if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
			h.streamRange(c, o, rangeHeader)
			return
		}
	}

	reader, err := h.service.Open(c.Request.Context(), o)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	defer reader.Close()

	c.Header("Content-Length", strconv.FormatInt(o.SizeBytes, 10))
	c.Status(http.StatusOK)
	copyBlob(c, o, reader)
}

func (h *Handler) streamRange(c *gin.Context, o Object, rangeHeader string) {
	rng, err := parseByteRange(rangeHeader, o.SizeBytes)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", o.SizeBytes))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	reader, err := h.service.OpenRange(c.Request.Context(), o, rng.start, rng.end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	defer reader.Close()

	c.Header("Content-Range", rng.contentRange(o.SizeBytes))
	c.Header("Content-Length", strconv.FormatInt(rng.length(), 10))
	c.Status(http.StatusPartialContent)
	copyBlob(c, o, reader)
}

// streamPreview serves a derived preview with far-future caching.
func (h *Handler) streamPreview(c *gin.Context, preview Object) {
	contentType := preview.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	reader, err := h.service.Open(c.Request.Context(), preview)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", previewCacheControl)
	c.Header("Content-Length", strconv.FormatInt(preview.SizeBytes, 10))
	c.Status(http.StatusOK)
	copyBlob(c, preview, reader)
}

// copyBlob streams the payload to the client. A mid-stream failure can only
// truncate the response; the status line is already on the wire.
func copyBlob(c *gin.Context, o Object, reader io.Reader) {
	if _, err := io.Copy(c.Writer, reader); err != nil {
		log.Printf("media: stream %s truncated: %v", o.ID, err)
	}
}
