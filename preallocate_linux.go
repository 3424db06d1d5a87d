//go:build linux

package haph

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves size bytes for file and sets its length, so writes
// through a shared mapping cannot hit SIGBUS on a full disk.
func preallocate(file *os.File, size int64) error {
	fd := int(file.Fd())
	// Some filesystems (NFS, tmpfs on old kernels) lack fallocate; they
	// only get the length set.
	_ = unix.Fallocate(fd, 0, 0, size)
	return unix.Ftruncate(fd, size)
}
