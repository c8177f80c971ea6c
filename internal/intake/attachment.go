package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "go-trustshield/internal/errors"
)

// Attachment is a user-supplied file accepted by a Collector
type Attachment struct {
	Name        string   `json:"name"`
	ContentType string   `json:"content_type"`
	Category    Category `json:"category"`
	Size        int64    `json:"size"`
	// TextPreview holds decoded text for text attachments, or OCR output for images
	TextPreview string `json:"text_preview,omitempty"`
	// PreviewRef is the object-backed reference that outlives submission
	PreviewRef string `json:"preview_ref,omitempty"`
	Data       []byte `json:"-"`
}

// Previewer extracts preview text from image attachments
type Previewer interface {
	Preview(ctx context.Context, data []byte) (string, error)
}

// ReadAttachment reads at most maxSize bytes from r and classifies the result.
// Text content is decoded eagerly for inline preview.
func ReadAttachment(name, contentType string, r io.Reader, maxSize int64) (*Attachment, error) {
	if r == nil {
		return nil, apperrors.NewValidationError("attachment has no content", nil)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, apperrors.NewValidationError("failed to read attachment", err)
	}
	if int64(len(data)) > maxSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("attachment exceeds %d bytes", maxSize), nil)
	}

	category, detectedType := ClassifyContent(contentType, name, data)
	att := &Attachment{
		Name:        name,
		ContentType: detectedType,
		Category:    category,
		Size:        int64(len(data)),
		Data:        data,
	}
	if category == CategoryText {
		att.TextPreview = DecodeText(data)
	}
	return att, nil
}

// DecodeText decodes UTF-8 or BOM-marked UTF-16 content. Invalid UTF-8 is
// replaced rather than rejected so a preview is always produced.
func DecodeText(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		out = data
	}
	if !utf8.Valid(out) {
		out = bytes.ToValidUTF8(out, []byte("�"))
	}
	return string(out)
}
