package http

import (
	"context"
	"errors"
	"net/http"

	"product-catalog/internal/products"
	"product-catalog/internal/products/imagestore"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const (
	imageCacheControl   = "public, max-age=31536000, immutable"
	fallbackContentType = "application/octet-stream"
)

// ImageSource serves stored product images by object name.
type ImageSource interface {
	Open(ctx context.Context, name string) ([]byte, string, error)
}

type ImageHandler struct {
	source ImageSource
}

func NewImageHandler(source ImageSource) *ImageHandler {
	return &ImageHandler{source: source}
}

// GetImage godoc
// @Summary      Download a product image
// @Tags         images
// @Produce      image/png,image/jpeg,image/gif,image/webp
// @Param        name  path  string  true  "Image object name"
// @Success      200
// @Failure      404  {object}  errorResponse
// @Router       /images/{name} [get]
func (h *ImageHandler) GetImage(c *gin.Context) {
	data, contentType, err := h.source.Open(c.Request.Context(), c.Param("name"))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, imagestore.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to read image"})
		return
	}

	if !mimetype.EqualsAny(contentType, products.AllowedImageTypes...) {
		contentType = fallbackContentType
	}

	// object names are unique per upload, so content never changes
	c.Header("Cache-Control", imageCacheControl)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, data)
}
