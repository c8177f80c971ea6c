package analyzer

import (
	"context"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/intake"
	"go-trustshield/pkg/models"
)

// ScanAnalyzer is one scan workflow: it collects input, submits it once per
// session and keeps the latest normalized result
type ScanAnalyzer interface {
	Kind() models.Kind
	Collector() *intake.Collector
	Submit(ctx context.Context) (string, error)
	Wait(ctx context.Context) error
	Reset()
	Result() *models.CanonicalResult
	Snapshot() Snapshot
}

// DocumentViewer is implemented by analyzers that render document artifacts
type DocumentViewer interface {
	SetView(view aligner.View) error
	View() aligner.View
	Render(ctx context.Context, containerWidth int) (*aligner.Rendering, error)
}

var (
	_ ScanAnalyzer   = (*Analyzer)(nil)
	_ DocumentViewer = (*Analyzer)(nil)
)
