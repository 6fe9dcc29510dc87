// Package capture turns raw inputs (a camera frame, an uploaded file) into a
// single normalized image artifact for the verification flow. Adapters here
// do format and size validation only; verification logic lives elsewhere.
package capture

import (
	"net/http"

	dErrors "gemnet/pkg/domain-errors"
)

// MaxImageSize caps accepted artifacts at 10MB, matching the gateway's
// upload limit.
const MaxImageSize = 10 << 20

// Image is the normalized artifact handed to the controller: raw bytes plus
// the sniffed MIME type.
type Image struct {
	Data []byte
	MIME string
	Name string
}

var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Normalize validates raw bytes and produces an Image. The MIME type is
// sniffed from content, not trusted from a filename or declared header.
func Normalize(data []byte, name string) (Image, error) {
	if len(data) == 0 {
		return Image{}, dErrors.New(dErrors.CodeCapture, "image is empty")
	}
	if len(data) > MaxImageSize {
		return Image{}, dErrors.New(dErrors.CodeCapture, "image size must be less than 10MB")
	}

	mime := http.DetectContentType(data)
	if !allowedMIMEs[mime] {
		return Image{}, dErrors.New(dErrors.CodeCapture, "please provide a JPEG or PNG image")
	}

	return Image{Data: data, MIME: mime, Name: name}, nil
}
