package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"sync"

	"github.com/google/uuid"

	apperrors "go-trustshield/internal/errors"
)

// PreviewScheme prefixes references to attachments held in memory
const PreviewScheme = "preview"

// PreviewStore keeps object-backed previews of local attachments until they are released
type PreviewStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{objects: make(map[string][]byte)}
}

// Put stores data and returns its preview reference
func (p *PreviewStore) Put(name string, data []byte) string {
	ref := fmt.Sprintf("%s://%s/%s", PreviewScheme, uuid.NewString(), url.PathEscape(name))
	p.mu.Lock()
	p.objects[ref] = data
	p.mu.Unlock()
	return ref
}

// Get returns the bytes behind ref
func (p *PreviewStore) Get(ref string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.objects[ref]
	return data, ok
}

// Release forgets ref; releasing an unknown ref is a no-op
func (p *PreviewStore) Release(ref string) {
	p.mu.Lock()
	delete(p.objects, ref)
	p.mu.Unlock()
}

// Len reports how many previews are currently held
func (p *PreviewStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.objects)
}

func (p *PreviewStore) FetchImage(_ context.Context, ref string) (image.Image, error) {
	data, ok := p.Get(ref)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("preview %s was released", ref), nil)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewMalformedPayloadError("attachment is not a decodable image", err)
	}
	return img, nil
}
