//go:build !linux

package haph

// prefaultWrite is a no-op on non-Linux platforms.
func prefaultWrite(data []byte) {}

// adviseSequential is a no-op on non-Linux platforms.
func adviseSequential(data []byte) {}
