package feature

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// sep separates tokens inside a window when they are combined into the
// murmur3 stream, so adjacent tokens never alias across a boundary (e.g.
// ["ab", "c"] vs ["a", "bc"]).
const sep = 0x1F

// hashWindow combines a window's tokens into one 64-bit feature ID, seeded
// so that the same window always hashes identically within one searcher's
// lifetime (build and query share a seed).
func hashWindow(window []string, seed uint64) uint64 {
	h := murmur3.New64()
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], seed)
	_, _ = h.Write(seedBytes[:])
	for _, tok := range window {
		_, _ = h.Write([]byte(tok))
		_, _ = h.Write([]byte{sep})
	}
	return h.Sum64()
}
