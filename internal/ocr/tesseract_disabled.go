//go:build !tesseract

package ocr

import (
	"context"

	apperrors "go-trustshield/internal/errors"
)

// Available reports whether the binary was built with tesseract support
const Available = false

// TesseractPreviewer is unavailable without the tesseract build tag
type TesseractPreviewer struct{}

// NewTesseractPreviewer always fails; rebuild with -tags tesseract
func NewTesseractPreviewer(cfg Config) (*TesseractPreviewer, error) {
	return nil, apperrors.NewInternalError("built without tesseract support (rebuild with -tags tesseract)", nil)
}

func (p *TesseractPreviewer) Preview(ctx context.Context, data []byte) (string, error) {
	return "", apperrors.NewInternalError("built without tesseract support", nil)
}
