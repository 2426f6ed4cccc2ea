// Package execlock provides a cross-process named lock. Its main use is the
// mutex the Windows Installer service holds while an installation runs, so
// that only one installation proceeds at a time.
package execlock

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// InstallerMutexName is the name of the mutex the Windows Installer service
// holds for the duration of an installation.
const InstallerMutexName = `Global\_MSIExecute`

// Infinite makes WaitAndAcquire wait without a time limit.
const Infinite time.Duration = -1

var (
	// ErrConflict is returned when the lock is already held, by another
	// process or by any other holder in this one.
	ErrConflict = errors.New("lock is held by another owner")
	// ErrTimeout is returned by DoWait when the lock could not be acquired
	// within the timeout.
	ErrTimeout = errors.New("timed out waiting for lock")
)

// Handle is one acquisition of a named lock.
type Handle interface {
	Release() error
}

// Backend creates and probes named locks. Implementations must give mutual
// exclusion between all holders of a name, in this process and in others.
type Backend interface {
	// TryCreate takes the lock without waiting. It returns ErrConflict if
	// the lock is held.
	TryCreate(name string) (Handle, error)
	// Exists reports whether the lock is held, without taking it.
	Exists(name string) (bool, error)
	// Acquire waits up to timeout for the lock. A timeout of zero tries once;
	// Infinite waits forever. It returns false when the time ran out.
	Acquire(name string, timeout time.Duration) (Handle, bool, error)
}

// Lock is one party's view of a named lock. It tracks whether this instance
// currently owns the lock. A Lock is intended to be used from one goroutine
// at a time.
type Lock struct {
	name    string
	backend Backend

	mu     sync.Mutex
	handle Handle
}

// New returns a lock on name using backend. Nothing is acquired yet.
func New(name string, backend Backend) *Lock {
	return &Lock{name: name, backend: backend}
}

// NewInstallerLock returns a lock on the installer service mutex using the
// system backend.
func NewInstallerLock() *Lock {
	return New(InstallerMutexName, SystemBackend())
}

// Name returns the lock name.
func (l *Lock) Name() string {
	return l.name
}

// TryAcquire takes the lock if nobody holds it and returns ErrConflict
// otherwise. It also returns ErrConflict if this instance already owns it.
func (l *Lock) TryAcquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		return ErrConflict
	}
	h, err := l.backend.TryCreate(l.name)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("acquiring %s: %w", l.name, err)
	}
	l.handle = h
	return nil
}

// Probe reports whether the lock is currently held by anyone. It never takes
// ownership and never blocks.
func (l *Lock) Probe() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		return true, nil
	}
	held, err := l.backend.Exists(l.name)
	if err != nil {
		return false, fmt.Errorf("probing %s: %w", l.name, err)
	}
	return held, nil
}

// WaitAndAcquire waits up to timeout for the lock and reports whether it was
// acquired. A timeout of zero makes a single attempt; Infinite waits forever.
// Waiting for a lock this instance already owns returns ErrConflict.
func (l *Lock) WaitAndAcquire(timeout time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		return false, ErrConflict
	}
	if timeout < 0 {
		timeout = Infinite
	}
	h, ok, err := l.backend.Acquire(l.name, timeout)
	if err != nil {
		return false, fmt.Errorf("waiting for %s: %w", l.name, err)
	}
	if !ok {
		return false, nil
	}
	l.handle = h
	return true, nil
}

// Release gives up ownership. It does nothing if this instance does not own
// the lock, so calling it more than once is safe.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == nil {
		return nil
	}
	h := l.handle
	l.handle = nil
	if err := h.Release(); err != nil {
		return fmt.Errorf("releasing %s: %w", l.name, err)
	}
	return nil
}

// Owns reports whether this instance currently holds the lock.
func (l *Lock) Owns() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle != nil
}

// Do runs fn while holding the lock. It fails with ErrConflict without
// running fn if the lock is held. The lock is released when fn returns or
// panics.
func (l *Lock) Do(fn func() error) (err error) {
	if err := l.TryAcquire(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, l.Release())
	}()
	return fn()
}

// DoWait is like Do but waits up to timeout for the lock. It returns
// ErrTimeout without running fn if the lock could not be acquired.
func (l *Lock) DoWait(timeout time.Duration, fn func() error) (err error) {
	ok, err := l.WaitAndAcquire(timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.name, ErrTimeout)
	}
	defer func() {
		err = errors.Join(err, l.Release())
	}()
	return fn()
}
