// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// Set is a fixed-size dense bit vector.
type Set []uint64

// NewSet returns a Set able to hold n bits, all clear.
func NewSet(n int) Set {
	return make(Set, (n+63)/64)
}

// Has reports whether bit i is set.
func (s Set) Has(i int) bool {
	return s[i>>6]&(1<<(uint(i)&63)) != 0
}

// Add sets bit i.
func (s Set) Add(i int) {
	s[i>>6] |= 1 << (uint(i) & 63)
}

// SplitMix64 is the SplitMix64 finalizer (Stafford variant, from
// splitmix64.c by Sebastiano Vigna). It is a bijection on uint64.
func SplitMix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// WyMix performs a 128-bit multiply and XOR fold.
// This is the core mixing primitive from WyHash v4.
func WyMix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi ^ lo
}
