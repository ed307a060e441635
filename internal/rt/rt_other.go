//go:build !linux

package rt

import "errors"

// ErrUnsupported is returned where memory locking is not implemented.
var ErrUnsupported = errors.New("rt: memory locking not supported on this platform")

// LockMemory is not supported on this platform.
func LockMemory() (unlock func() error, err error) { return nil, ErrUnsupported }

// MemlockLimit is not supported on this platform.
func MemlockLimit() (uint64, error) { return 0, ErrUnsupported }
