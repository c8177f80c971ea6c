package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	apperrors "go-trustshield/internal/errors"
)

// Router dispatches artifact references to the fetcher that owns their scheme
type Router struct {
	previews *PreviewStore
	http     ImageFetcher
	azure    *AzureStorage
}

// NewRouter builds a router; azure may be nil when blob credentials are not configured
func NewRouter(previews *PreviewStore, httpFetcher ImageFetcher, azure *AzureStorage) *Router {
	return &Router{previews: previews, http: httpFetcher, azure: azure}
}

func (r *Router) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	fetcher, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchImage(ctx, ref)
}

func (r *Router) resolve(ref string) (ImageFetcher, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperrors.NewValidationError("empty artifact reference", nil)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid artifact reference", err)
	}

	switch strings.ToLower(u.Scheme) {
	case PreviewScheme:
		if r.previews != nil {
			return r.previews, nil
		}
	case "azblob":
		if r.azure != nil {
			return r.azure, nil
		}
		return nil, apperrors.NewValidationError("blob reference without configured Azure storage", nil)
	case "http", "https":
		if r.azure != nil && r.azure.Owns(ref) {
			return r.azure, nil
		}
		if r.http != nil {
			return r.http, nil
		}
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("no fetcher for artifact scheme %q", u.Scheme), nil)
}
