package analyzer

import (
	"context"

	"go-trustshield/internal/aligner"
	apperrors "go-trustshield/internal/errors"
	"go-trustshield/pkg/models"
)

// renderKey identifies the inputs a rendering was produced from
type renderKey struct {
	result      *models.CanonicalResult
	view        aligner.View
	originalRef string
	width       int
}

type cachedRendering struct {
	key       renderKey
	rendering *aligner.Rendering
}

// SetView selects the original or heatmap artifact of a document result
func (a *Analyzer) SetView(view aligner.View) error {
	if a.kind != models.KindDocument {
		return apperrors.NewValidationError("only the document analyzer has a view", nil)
	}
	a.mu.Lock()
	a.view = view
	a.mu.Unlock()
	return nil
}

// View returns the selected document view
func (a *Analyzer) View() aligner.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Render aligns the selected artifact to containerWidth. The rendering is
// cached until the result, view, original reference or width changes. It
// returns nil when there is no result yet.
func (a *Analyzer) Render(ctx context.Context, containerWidth int) (*aligner.Rendering, error) {
	if a.kind != models.KindDocument {
		return nil, apperrors.NewValidationError("only the document analyzer renders artifacts", nil)
	}
	if a.aligner == nil {
		return nil, apperrors.NewInternalError("document analyzer has no aligner", nil)
	}

	a.mu.Lock()
	key := renderKey{result: a.result, view: a.view, width: containerWidth}
	if a.result != nil && a.result.Document != nil {
		key.originalRef = a.result.Document.OriginalRef
	}
	if a.rendering != nil && a.rendering.key == key {
		r := a.rendering.rendering
		a.mu.Unlock()
		return r, nil
	}
	a.mu.Unlock()

	if key.result == nil {
		return nil, nil
	}

	r, err := a.aligner.Render(ctx, key.result, key.view, containerWidth)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	// Keep the rendering only if nothing changed while it was produced
	if a.result == key.result && a.view == key.view {
		a.rendering = &cachedRendering{key: key, rendering: r}
	}
	a.mu.Unlock()
	return r, nil
}
