//go:build !windows

package execlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval is how often Acquire retries a held lock file.
const pollInterval = 25 * time.Millisecond

// FileBackend implements named locks as flock-held files in a directory.
// A lock file exists only while its lock is held.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a backend that keeps its lock files in dir. The
// directory is created on first use.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// SystemBackend returns the backend for this platform: lock files under the
// system temp directory.
func SystemBackend() Backend {
	return NewFileBackend(filepath.Join(os.TempDir(), "msikit-locks"))
}

// path maps a lock name to a file name. Characters that are not safe in a
// file name, including the backslash in "Global\", become underscores.
func (b *FileBackend) path(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	return filepath.Join(b.dir, safe+".lock")
}

type fileHandle struct {
	file *os.File
	path string
	once sync.Once
	err  error
}

func (h *fileHandle) Release() error {
	h.once.Do(func() {
		// Unlinked while still locked; TryCreate re-checks the inode.
		rmErr := os.Remove(h.path)
		if errors.Is(rmErr, os.ErrNotExist) {
			rmErr = nil
		}
		h.err = errors.Join(rmErr, h.file.Close())
	})
	return h.err
}

func (b *FileBackend) TryCreate(name string) (Handle, error) {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path := b.path(name)

	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening lock file: %w", err)
		}

		if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, ErrConflict
			}
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}

		// The previous holder may have removed the file between our open and
		// our flock. Only a lock on the file currently at path counts.
		same, err := samePath(file, path)
		if err != nil {
			file.Close()
			return nil, err
		}
		if same {
			return &fileHandle{file: file, path: path}, nil
		}
		file.Close()
	}
}

func (b *FileBackend) Exists(name string) (bool, error) {
	file, err := os.OpenFile(b.path(name), os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("opening lock file: %w", err)
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return true, nil
		}
		return false, fmt.Errorf("probing lock file: %w", err)
	}
	unix.Flock(int(file.Fd()), unix.LOCK_UN)
	return false, nil
}

func (b *FileBackend) Acquire(name string, timeout time.Duration) (Handle, bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		h, err := b.TryCreate(name)
		if err == nil {
			return h, true, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, false, err
		}
		if timeout == 0 || (timeout > 0 && !time.Now().Before(deadline)) {
			return nil, false, nil
		}

		wait := pollInterval
		if timeout > 0 {
			if left := time.Until(deadline); left < wait {
				wait = left
			}
		}
		time.Sleep(wait)
	}
}

func samePath(file *os.File, path string) (bool, error) {
	var held, current unix.Stat_t
	if err := unix.Fstat(int(file.Fd()), &held); err != nil {
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	if err := unix.Stat(path, &current); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	return held.Dev == current.Dev && held.Ino == current.Ino, nil
}
