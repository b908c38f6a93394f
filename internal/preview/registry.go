// Package preview tracks externally visible preview resources.
//
// A preview handle stands in for anything a display surface holds on to
// (an object URL, a served path). Each handle must be released exactly
// once, when the image it belongs to is removed or its buffer replaced.
package preview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownHandle is returned when releasing a handle that is not live,
// including a second release of the same handle.
var ErrUnknownHandle = errors.New("unknown preview handle")

// Handle identifies a live preview resource.
type Handle string

// Resource is the payload behind a handle.
type Resource struct {
	MIME string
	Data []byte
}

// Registry owns live preview resources. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resources map[Handle]Resource
	released  int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[Handle]Resource)}
}

// Acquire registers data and returns a new handle for it.
func (r *Registry) Acquire(mime string, data []byte) Handle {
	h := Handle(uuid.NewString())

	r.mu.Lock()
	r.resources[h] = Resource{MIME: mime, Data: data}
	r.mu.Unlock()

	return h
}

// Open returns the resource behind h.
func (r *Registry) Open(h Handle) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[h]
	return res, ok
}

// Release frees h. Releasing an unknown or already released handle is an error.
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[h]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	delete(r.resources, h)
	r.released++
	return nil
}

// Live returns the number of handles that have not been released.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}

// Released returns the number of successful releases so far.
func (r *Registry) Released() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.released
}
