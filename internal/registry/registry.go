// Package registry tracks the live push connection of each user. A user has
// at most one slot; reconnecting replaces the previous handle. Delivery
// misses are expected and never errors: an offline recipient catches up via
// a history fetch.
package registry

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/ekinaydin/intrachat/internal/models"
)

const frameBuffer = 64

// Handle is one live push connection. The transport owning the handle drains
// Frames and calls Close when the stream ends; the registry never closes a
// handle, not even when it evicts one on reconnect.
type Handle struct {
	id     string
	userID int64
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewHandle(userID int64) *Handle {
	return &Handle{
		id:     uuid.NewString(),
		userID: userID,
		frames: make(chan []byte, frameBuffer),
		done:   make(chan struct{}),
	}
}

func (h *Handle) UserID() int64 { return h.userID }

// Frames is the outbound frame stream for the transport to drain.
func (h *Handle) Frames() <-chan []byte { return h.frames }

// Done is closed once the transport shuts the handle down.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Close() {
	h.once.Do(func() {
		close(h.done)
	})
}

// enqueue drops the frame when the handle is closed or its buffer is full.
// A dead handle is discovered lazily; enqueue never fails the caller.
func (h *Handle) enqueue(frame []byte) {
	select {
	case <-h.done:
	case h.frames <- frame:
	default:
	}
}

// Registry is the injected connection table. The memory implementation
// serves a single process; the Redis implementation spans processes.
type Registry interface {
	Register(userID int64, h *Handle)
	Unregister(h *Handle)
	Lookup(userID int64) (*Handle, bool)
	Push(userID int64, event models.PushEvent)
}

type MemoryRegistry struct {
	mu      sync.Mutex
	clients map[int64]*Handle
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{clients: make(map[int64]*Handle)}
}

// Register installs the handle as the user's single live connection. Any
// previous handle is evicted in the same critical section, so two racing
// registrations for one user still leave exactly one slot.
func (r *MemoryRegistry) Register(userID int64, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[userID] = h
}

// Unregister removes the entry only when it still holds this exact handle.
// A newer registration for the same user is left untouched.
func (r *MemoryRegistry) Unregister(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.clients[h.userID]; ok && current.id == h.id {
		delete(r.clients, h.userID)
	}
}

func (r *MemoryRegistry) Lookup(userID int64) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.clients[userID]
	return h, ok
}

func (r *MemoryRegistry) Push(userID int64, event models.PushEvent) {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Printf("registry: encode push event: %v", err)
		return
	}
	r.deliver(userID, frame)
}

func (r *MemoryRegistry) deliver(userID int64, frame []byte) {
	h, ok := r.Lookup(userID)
	if !ok {
		return
	}
	h.enqueue(frame)
}
