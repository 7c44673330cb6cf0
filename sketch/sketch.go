// Package sketch defines the fixed-width binary sketch primitive shared by
// the multi-sort engine and the chunked joiner. A sketch is one chunk's
// worth of bits for one document; the joiner holds B of them per document.
package sketch

import (
	"fmt"
	"math/bits"
)

// Word is any of the four chunk widths the engine supports.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Dim returns the bit width of T, one of {8,16,32,64}.
func Dim[T Word]() int {
	var v T
	switch any(v).(type) {
	case uint8:
		return 8
	case uint16:
		return 16
	case uint32:
		return 32
	default:
		return 64
	}
}

// HamDist returns the population count of x XOR y.
func HamDist[T Word](x, y T) int {
	return bits.OnesCount64(uint64(x) ^ uint64(y))
}

// Mask returns a value of T with bits [lo,hi) set and all others clear.
// It panics on 0 <= lo <= hi <= Dim[T]() violations: this is an internal
// invariant, never a user-facing error (see InvalidConfig vs. programming
// error distinction in the error-handling design).
func Mask[T Word](lo, hi int) T {
	w := Dim[T]()
	if lo < 0 || hi < lo || hi > w {
		panic(fmt.Sprintf("sketch: invalid mask range [%d,%d) for width %d", lo, hi, w))
	}
	if hi == lo {
		return 0
	}
	if hi-lo == w {
		return T(^uint64(0) >> (64 - w))
	}
	var m uint64 = (uint64(1)<<uint(hi-lo) - 1) << uint(lo)
	return T(m)
}
