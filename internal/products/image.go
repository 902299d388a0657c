package products

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const imageField = "image"

// AllowedImageTypes are the raster formats accepted for product images.
// Scriptable formats such as SVG are rejected.
var AllowedImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// ImageFromUpload reads an uploaded form file into an Image. A nil header or
// an empty part means no image was sent and yields (nil, nil). The payload
// must be an image no larger than maxBytes.
func ImageFromUpload(fh *multipart.FileHeader, maxBytes int64) (*Image, error) {
	if fh == nil || (fh.Size == 0 && fh.Filename == "") {
		return nil, nil
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, NewValidationError(imageField, fmt.Sprintf("image must be at most %d bytes", maxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read uploaded image: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	img := &Image{Name: fh.Filename, Data: data}
	if err := img.sniff(); err != nil {
		return nil, err
	}
	return img, nil
}

// sniff sets ContentType from the payload and rejects anything but the
// allowed raster types. Declared content types from the client are not trusted.
func (img *Image) sniff() error {
	mt := mimetype.Detect(img.Data)
	if !mimetype.EqualsAny(mt.String(), AllowedImageTypes...) {
		return NewValidationError(imageField, fmt.Sprintf("image must be one of %s, got %s",
			strings.Join(AllowedImageTypes, ", "), mt.String()))
	}
	img.ContentType = mt.String()
	return nil
}

// Check validates an image built outside ImageFromUpload.
func (img *Image) Check() error {
	if len(img.Data) == 0 {
		return NewValidationError(imageField, "image is empty")
	}
	return img.sniff()
}
