//go:build linux

package rt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMemory locks current and future pages into RAM so the audio path
// never takes a page fault. It needs CAP_IPC_LOCK or a large enough
// RLIMIT_MEMLOCK.
func LockMemory() (unlock func() error, err error) {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return nil, fmt.Errorf("rt: mlockall: %w", err)
	}
	return unix.Munlockall, nil
}

// MemlockLimit returns the soft RLIMIT_MEMLOCK in bytes.
func MemlockLimit() (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &lim); err != nil {
		return 0, fmt.Errorf("rt: getrlimit: %w", err)
	}
	return lim.Cur, nil
}
