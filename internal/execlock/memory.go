package execlock

import (
	"sync"
	"time"
)

// MemoryBackend keeps named locks in process memory. It is used in tests and
// by callers that only need exclusion between goroutines.
type MemoryBackend struct {
	mu   sync.Mutex
	held map[string]chan struct{} // closed on release
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{held: make(map[string]chan struct{})}
}

type memoryHandle struct {
	backend *MemoryBackend
	name    string
	done    chan struct{}
	once    sync.Once
}

func (h *memoryHandle) Release() error {
	h.once.Do(func() {
		b := h.backend
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.held[h.name] == h.done {
			delete(b.held, h.name)
		}
		close(h.done)
	})
	return nil
}

// take must be called with b.mu held.
func (b *MemoryBackend) take(name string) *memoryHandle {
	done := make(chan struct{})
	b.held[name] = done
	return &memoryHandle{backend: b, name: name, done: done}
}

func (b *MemoryBackend) TryCreate(name string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.held[name]; ok {
		return nil, ErrConflict
	}
	return b.take(name), nil
}

func (b *MemoryBackend) Exists(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.held[name]
	return ok, nil
}

func (b *MemoryBackend) Acquire(name string, timeout time.Duration) (Handle, bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		b.mu.Lock()
		done, ok := b.held[name]
		if !ok {
			h := b.take(name)
			b.mu.Unlock()
			return h, true, nil
		}
		b.mu.Unlock()

		if timeout == 0 {
			return nil, false, nil
		}
		select {
		case <-done:
		case <-deadline:
			return nil, false, nil
		}
	}
}
