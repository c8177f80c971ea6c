package intake

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Category is the coarse content class of an attachment
type Category string

const (
	CategoryImage Category = "image"
	CategoryPDF   Category = "pdf"
	CategoryText  Category = "text"
	CategoryOther Category = "other"
)

// textSuffixes are always previewed inline as text regardless of declared type
var textSuffixes = map[string]bool{
	".php": true, ".js": true, ".py": true, ".html": true, ".css": true, ".json": true,
	".xml": true, ".md": true, ".txt": true, ".csv": true, ".log": true,
}

var imageSuffixes = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
	".tif": true, ".tiff": true,
}

// Classify maps a declared content type and filename to a Category. Text wins
// over everything else, then PDF, then image.
func Classify(contentType, filename string) Category {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case strings.HasPrefix(ct, "text/") || textSuffixes[ext]:
		return CategoryText
	case ct == "application/pdf" || ext == ".pdf":
		return CategoryPDF
	case strings.HasPrefix(ct, "image/") || imageSuffixes[ext]:
		return CategoryImage
	default:
		return CategoryOther
	}
}

// ClassifyContent is Classify with content sniffing for attachments that arrive
// without a usable declared type or suffix. It returns the category and the
// content type that was used.
func ClassifyContent(contentType, filename string, data []byte) (Category, string) {
	if cat := Classify(contentType, filename); cat != CategoryOther {
		return cat, contentType
	}
	if ct := strings.TrimSpace(contentType); ct != "" && ct != "application/octet-stream" {
		return CategoryOther, contentType
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is("application/pdf"):
		return CategoryPDF, detected.String()
	case strings.HasPrefix(detected.String(), "image/"):
		return CategoryImage, detected.String()
	case strings.HasPrefix(detected.String(), "text/plain"):
		return CategoryText, detected.String()
	}
	return CategoryOther, detected.String()
}
