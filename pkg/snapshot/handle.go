package snapshot

import (
	"sync"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

// Handle owns the currently loaded snapshot. Writers install a fully built
// snapshot in one swap; readers get a reference to whichever version was
// current at request time and never observe a partially updated set. A
// failed batch simply never calls Install, leaving the previous version in
// place.
type Handle struct {
	mu      sync.RWMutex
	current *models.Snapshot
	version uint64
}

func NewHandle() *Handle {
	return &Handle{}
}

// Current returns the active snapshot and its version. ok is false until
// the first Install.
func (h *Handle) Current() (*models.Snapshot, uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, h.version, h.current != nil
}

// Install atomically replaces the active snapshot and returns the new
// version number.
func (h *Handle) Install(s *models.Snapshot) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
	h.version++
	return h.version
}
