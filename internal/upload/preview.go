package upload

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewStore holds pending screenshot bytes keyed by an opaque handle so
// the frontend can render a preview of the image awaiting confirmation.
// Every handle must be released when its image is replaced, confirmed or
// discarded; leaked handles would pin image bytes for the process lifetime.
type PreviewStore struct {
	mu     sync.Mutex
	images map[string][]byte
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{images: make(map[string][]byte)}
}

// Put stores image bytes and returns their handle.
func (p *PreviewStore) Put(data []byte) string {
	id := uuid.New().String()
	p.mu.Lock()
	p.images[id] = data
	p.mu.Unlock()
	return id
}

// Get returns the image bytes for a handle.
func (p *PreviewStore) Get(id string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.images[id]
	return data, ok
}

// Release drops a handle and its bytes. Releasing an unknown or already
// released handle is a no-op.
func (p *PreviewStore) Release(id string) {
	if id == "" {
		return
	}
	p.mu.Lock()
	delete(p.images, id)
	p.mu.Unlock()
}

// Len returns the number of live handles.
func (p *PreviewStore) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.images)
}
