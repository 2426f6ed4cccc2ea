//go:build windows

package execlock

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

// mutexBackend implements named locks as Windows kernel mutexes. A mutex is
// owned by a thread, so the acquiring goroutine stays locked to its OS thread
// until the handle is released, and Release must run on that goroutine.
type mutexBackend struct{}

// SystemBackend returns the backend for this platform: named kernel mutexes,
// shared with the Windows Installer service.
func SystemBackend() Backend {
	return mutexBackend{}
}

// ownedHere tracks the names held by this process. Kernel mutexes are
// recursive for their owning thread, which would otherwise let a goroutine
// acquire a name it already holds through another Lock.
var ownedHere = struct {
	sync.Mutex
	names map[string]bool
}{names: make(map[string]bool)}

func markOwned(name string, owned bool) (was bool) {
	ownedHere.Lock()
	defer ownedHere.Unlock()
	was = ownedHere.names[name]
	if owned {
		ownedHere.names[name] = true
	} else {
		delete(ownedHere.names, name)
	}
	return was
}

type mutexHandle struct {
	name   string
	handle windows.Handle
	once   sync.Once
	err    error
}

func (h *mutexHandle) Release() error {
	h.once.Do(func() {
		markOwned(h.name, false)
		relErr := windows.ReleaseMutex(h.handle)
		h.err = errors.Join(relErr, windows.CloseHandle(h.handle))
		runtime.UnlockOSThread()
	})
	return h.err
}

func (mutexBackend) TryCreate(name string) (Handle, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("mutex name: %w", err)
	}

	runtime.LockOSThread()
	h, err := windows.CreateMutex(nil, true, p)
	if err != nil {
		runtime.UnlockOSThread()
		// ERROR_ALREADY_EXISTS comes with a handle to the existing mutex,
		// which we were not given ownership of.
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			if h != 0 {
				windows.CloseHandle(h)
			}
			return nil, ErrConflict
		}
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			// Exists in another session or under a stricter ACL.
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("CreateMutex: %w", err)
	}
	markOwned(name, true)
	return &mutexHandle{name: name, handle: h}, nil
}

func (mutexBackend) Exists(name string) (bool, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return false, fmt.Errorf("mutex name: %w", err)
	}

	h, err := windows.OpenMutex(windows.SYNCHRONIZE, false, p)
	if err != nil {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return false, nil
		}
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return true, nil
		}
		return false, fmt.Errorf("OpenMutex: %w", err)
	}
	windows.CloseHandle(h)
	return true, nil
}

func (mutexBackend) Acquire(name string, timeout time.Duration) (Handle, bool, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, false, fmt.Errorf("mutex name: %w", err)
	}

	runtime.LockOSThread()
	h, err := windows.CreateMutex(nil, false, p)
	if err != nil && !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		runtime.UnlockOSThread()
		return nil, false, fmt.Errorf("CreateMutex: %w", err)
	}

	event, err := windows.WaitForSingleObject(h, waitMillis(timeout))
	switch {
	case err != nil:
		windows.CloseHandle(h)
		runtime.UnlockOSThread()
		return nil, false, fmt.Errorf("WaitForSingleObject: %w", err)
	case event == windows.WAIT_OBJECT_0, event == windows.WAIT_ABANDONED:
		// An abandoned mutex is still ours; its previous owner exited.
		if markOwned(name, true) {
			// Recursive acquisition by the goroutine that already holds it.
			windows.ReleaseMutex(h)
			windows.CloseHandle(h)
			runtime.UnlockOSThread()
			if timeout < 0 {
				return nil, false, ErrConflict
			}
			time.Sleep(timeout)
			return nil, false, nil
		}
		return &mutexHandle{name: name, handle: h}, true, nil
	default:
		windows.CloseHandle(h)
		runtime.UnlockOSThread()
		return nil, false, nil
	}
}

// waitMillis converts a timeout for WaitForSingleObject. Negative means
// INFINITE; finite timeouts are clamped below it so they never wrap or turn
// into an endless wait.
func waitMillis(timeout time.Duration) uint32 {
	if timeout < 0 {
		return windows.INFINITE
	}
	if ms := timeout.Milliseconds(); ms < windows.INFINITE {
		return uint32(ms)
	}
	return windows.INFINITE - 1
}
