package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	apperrors "go-trustshield/internal/errors"
)

// maxArtifactBytes bounds how much of a remote artifact is decoded
const maxArtifactBytes = 32 << 20

// HTTPImageFetcher fetches heatmaps and screenshots served by the analysis service
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher creates an HTTP image fetcher. A nil client gets a transport
// tuned for single image downloads.
func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	if client == nil {
		transport := &http.Transport{
			MaxIdleConns:           10,
			MaxIdleConnsPerHost:    2,
			IdleConnTimeout:        30 * time.Second,
			TLSHandshakeTimeout:    10 * time.Second,
			ResponseHeaderTimeout:  10 * time.Second,
			ExpectContinueTimeout:  1 * time.Second,
			MaxResponseHeaderBytes: 4096,
		}
		client = &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		}
	}
	return &HTTPImageFetcher{client: client}
}

// FetchImage downloads and decodes ref. One attempt; failures are returned to the caller.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid artifact URL", err)
	}

	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "TrustShield-Client/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to fetch artifact", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("artifact %s not found", ref), nil)
		}
		return nil, apperrors.NewNetworkError("failed to fetch artifact", resp.StatusCode,
			fmt.Errorf("status code %d", resp.StatusCode))
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxArtifactBytes))
	if err != nil {
		return nil, apperrors.NewMalformedPayloadError("failed to decode artifact image", err)
	}
	return img, nil
}
