//go:build tesseract

package ocr

import (
	"context"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	apperrors "go-trustshield/internal/errors"
	"go-trustshield/internal/logger"
)

// Available reports whether the binary was built with tesseract support
const Available = true

// TesseractPreviewer runs tesseract over image attachments. Recognition is
// serialized; the engine is not safe for concurrent use.
type TesseractPreviewer struct {
	mu        sync.Mutex
	languages []string
}

// NewTesseractPreviewer checks the engine can be initialised with cfg's languages
func NewTesseractPreviewer(cfg Config) (*TesseractPreviewer, error) {
	p := &TesseractPreviewer{languages: cfg.languages()}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, apperrors.NewInternalError("failed to configure tesseract", err)
	}

	logger.WithFields(logrus.Fields{
		"languages": p.languages,
		"version":   client.Version(),
	}).Info("Tesseract previewer ready")
	return p, nil
}

// Preview returns the recognised text of an image
func (p *TesseractPreviewer) Preview(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError("empty image", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewTimeoutError("text preview cancelled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.languages...); err != nil {
		return "", apperrors.NewInternalError("failed to configure tesseract", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", apperrors.NewValidationError("image could not be loaded for text recognition", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", apperrors.NewInternalError("text recognition failed", err)
	}
	return cleanPreview(text), nil
}
