//go:build linux

package haph

import "golang.org/x/sys/unix"

// MADV_POPULATE_WRITE was added in Linux 5.14.
// On older kernels, madvise returns EINVAL which we ignore.
const madvPopulateWrite = 23

// prefaultWrite asks the kernel to fault in a writable mapping up front.
// Best-effort: errors are ignored.
func prefaultWrite(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}

// adviseSequential hints that a read-only mapping is about to be scanned
// front to back. Best-effort: errors are ignored.
func adviseSequential(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
}
