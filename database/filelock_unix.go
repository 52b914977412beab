//go:build linux || darwin || freebsd || openbsd || netbsd || solaris

// lstore advisory single-writer guard for Database.Open/Close
// Component: flock-based directory lock, unix variant
//
// Grounded on the build-tag-per-platform split in filodb_mmap_unix.go /
// filodb_mmap_darwin.go / filodb_mmap_windows.go, and on the one
// third-party dependency those files bring in, golang.org/x/sys, used
// here for
// LOCK_EX/LOCK_NB flock rather than mmap: Database has no byte-slab
// page file to map (pages are serialized whole, not mmap'd), but an
// opened database directory still benefits from the same "one writer
// at a time" guard, which golang.org/x/sys/unix.Flock provides
// directly.

package database

import "golang.org/x/sys/unix"

func flockExclusiveNonBlocking(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
}

func funlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
