package aligner

import (
	"context"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	apperrors "go-trustshield/internal/errors"
	"go-trustshield/internal/logger"
	"go-trustshield/internal/storage"
	"go-trustshield/pkg/models"
)

// View selects which artifact of a document result is displayed
type View string

const (
	ViewOriginal View = "original"
	ViewHeatmap  View = "heatmap"
)

// ParseView maps a name to a View, defaulting to the original
func ParseView(s string) View {
	if View(s) == ViewHeatmap {
		return ViewHeatmap
	}
	return ViewOriginal
}

// Rendering is an artifact scaled into the display container
type Rendering struct {
	RequestedView View    `json:"requested_view"`
	ShownView     View    `json:"shown_view"`
	SourceRef     string  `json:"source_ref"`
	SourceWidth   int     `json:"source_width"`
	SourceHeight  int     `json:"source_height"`
	Scale         float64 `json:"scale"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`

	Image image.Image `json:"-"`
}

// Fit computes the display scale for a source image in a container. It never
// upscales. Dimensions are truncated to the integer pixel grid. A non-positive
// container width leaves the source at its natural size.
func Fit(srcW, srcH, containerWidth int) (scale float64, w, h int) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 0, 0
	}
	scale = 1
	if containerWidth > 0 {
		scale = math.Min(1, float64(containerWidth)/float64(srcW))
	}
	w = int(math.Floor(float64(srcW) * scale))
	h = int(math.Floor(float64(srcH) * scale))
	return scale, w, h
}

// SelectSource picks the artifact reference for view. A heatmap view without a
// heatmap falls back to the original.
func SelectSource(view View, report *models.DocumentReport) (string, View) {
	if view == ViewHeatmap && report.HasHeatmap() {
		return report.HeatmapRef, ViewHeatmap
	}
	return report.OriginalRef, ViewOriginal
}

// Aligner loads document artifacts and scales them for display
type Aligner struct {
	fetcher      storage.ImageFetcher
	defaultWidth int
}

func New(fetcher storage.ImageFetcher, defaultWidth int) *Aligner {
	return &Aligner{fetcher: fetcher, defaultWidth: defaultWidth}
}

// Render loads the artifact selected by view and scales it to containerWidth
// (the configured default when zero). It returns nil when there is no document
// result to render. A heatmap that cannot be loaded is replaced by the original.
func (a *Aligner) Render(ctx context.Context, result *models.CanonicalResult, view View, containerWidth int) (*Rendering, error) {
	if result == nil || result.Document == nil {
		return nil, nil
	}
	if containerWidth == 0 {
		containerWidth = a.defaultWidth
	}

	ref, shown := SelectSource(view, result.Document)
	img, err := a.load(ctx, ref)
	if err != nil && shown == ViewHeatmap {
		logger.WithError(err).WithFields(logrus.Fields{
			"heatmap_ref": ref,
		}).Warn("Heatmap unavailable, showing original")
		ref, shown = result.Document.OriginalRef, ViewOriginal
		img, err = a.load(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	scale, w, h := Fit(bounds.Dx(), bounds.Dy(), containerWidth)
	r := &Rendering{
		RequestedView: view,
		ShownView:     shown,
		SourceRef:     ref,
		SourceWidth:   bounds.Dx(),
		SourceHeight:  bounds.Dy(),
		Scale:         scale,
		Width:         w,
		Height:        h,
	}
	if w > 0 && h > 0 {
		r.Image = scaleImage(img, w, h)
	}
	return r, nil
}

func (a *Aligner) load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, apperrors.NewNotFoundError("document result has no original artifact", nil)
	}
	return a.fetcher.FetchImage(ctx, ref)
}

func scaleImage(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG writes the rendered surface as PNG
func EncodePNG(w io.Writer, r *Rendering) error {
	if r == nil || r.Image == nil {
		return apperrors.NewNotFoundError("nothing rendered", nil)
	}
	return png.Encode(w, r.Image)
}
