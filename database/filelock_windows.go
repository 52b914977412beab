//go:build windows

// lstore advisory single-writer guard for Database.Open/Close
// Component: LockFileEx-based directory lock, windows variant

package database

import "syscall"

const (
	lockfileExclusiveLock   = 0x00000002
	lockfileFailImmediately = 0x00000001
)

func flockExclusiveNonBlocking(fd uintptr) error {
	var overlapped syscall.Overlapped
	return syscall.LockFileEx(syscall.Handle(fd), lockfileExclusiveLock|lockfileFailImmediately, 0, 1, 0, &overlapped)
}

func funlock(fd uintptr) error {
	var overlapped syscall.Overlapped
	return syscall.UnlockFileEx(syscall.Handle(fd), 0, 1, 0, &overlapped)
}
