// Package ocr extracts preview text from screenshot attachments.
package ocr

import (
	"strings"
)

// maxPreviewRunes bounds the text kept for an inline preview
const maxPreviewRunes = 2000

// Config selects the recognition languages, e.g. "eng" or "eng+hin"
type Config struct {
	Language string
}

// languages splits a "+" separated language list
func (c Config) languages() []string {
	var out []string
	for _, l := range strings.Split(c.Language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	return out
}

// cleanPreview collapses blank lines and trailing space and caps the length
func cleanPreview(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	if r := []rune(out); len(r) > maxPreviewRunes {
		out = string(r[:maxPreviewRunes])
	}
	return out
}
