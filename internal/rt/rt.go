// Package rt prepares the process for real-time audio work.
package rt

import "runtime"

// PinThread locks the calling goroutine to its OS thread and returns the
// matching unlock.
func PinThread() (unpin func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
