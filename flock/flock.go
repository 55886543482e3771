// Package flock guards the data directory with an exclusive writer lock on
// top of github.com/gofrs/flock.
package flock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/docindex"
	"github.com/gofrs/flock"
)

// Lock is a held writer lock.
type Lock struct {
	flock *flock.Flock
}

// Acquire takes the exclusive lock at path without blocking. It returns
// ELOCKED when another process holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f := flock.New(path)
	ok, err := f.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !ok {
		return nil, docindex.Errorf(docindex.ELOCKED, "another docindex writer holds %s", path)
	}
	return &Lock{flock: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.flock.Path(), err)
	}
	return nil
}
