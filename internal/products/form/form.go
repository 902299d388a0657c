// Package form reads product create and update submissions from gin requests.
package form

import (
	"errors"
	"fmt"
	"net/http"

	"product-catalog/internal/products"

	"github.com/gin-gonic/gin"
)

const (
	ImageField = "image"

	// room for the text fields and multipart framing around the image
	bodyOverhead = 1 << 20
)

// Bind reads the product fields and the optional image of a submission.
// The returned Input holds what was submitted even when err is not nil, so a
// form can be re-rendered with it. With maxImageBytes > 0 the request body is
// capped before it is read; oversized bodies and unreadable image parts are
// validation errors on the image field.
func Bind(c *gin.Context, maxImageBytes int64) (products.Input, *products.Image, error) {
	var in products.Input

	if maxImageBytes > 0 {
		limit := maxImageBytes + bodyOverhead
		if c.Request.ContentLength > limit {
			return in, nil, tooLarge(maxImageBytes)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	if err := c.ShouldBind(&in); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return in, nil, tooLarge(maxImageBytes)
		}
		return in, nil, products.NewValidationError("body", "invalid form body")
	}

	fh, err := c.FormFile(ImageField)
	switch {
	case err == nil:
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		fh = nil
	default:
		return in, nil, withFieldErrors(in, products.NewValidationError(ImageField, "image upload could not be read"))
	}

	img, err := products.ImageFromUpload(fh, maxImageBytes)
	if err != nil {
		return in, nil, withFieldErrors(in, err)
	}
	return in, img, nil
}

// withFieldErrors reports image problems together with any field errors.
func withFieldErrors(in products.Input, imageErr error) error {
	_, fieldsErr := in.Fields()
	return products.JoinValidation(fieldsErr, imageErr)
}

func tooLarge(maxImageBytes int64) error {
	return products.NewValidationError(ImageField, fmt.Sprintf("image must be at most %d bytes", maxImageBytes))
}
