package storage

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageFetcher resolves an artifact reference (original attachment or heatmap) to a decoded image
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}
