package join

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// candidateSet is an open-addressing set of (i,j) pairs keyed by an xxhash
// digest of the packed pair, used to de-duplicate candidates collected
// across the per-column multi-sort passes before Hamming verification. It
// exists instead of a plain map[[2]int]struct{} because the candidate set is
// the joiner's dominant transient allocation at scale, and xxhash's
// throughput on the 8-byte packed key keeps probing cheap.
type candidateSet struct {
	occupied []bool
	keys     []uint64
	count    int
}

func newCandidateSet(sizeHint int) *candidateSet {
	size := 16
	for size < sizeHint*2 {
		size <<= 1
	}
	return &candidateSet{occupied: make([]bool, size), keys: make([]uint64, size)}
}

func packPair(i, j int) uint64 {
	return uint64(uint32(i))<<32 | uint64(uint32(j))
}

func unpackPair(k uint64) (int, int) {
	return int(uint32(k >> 32)), int(uint32(k))
}

func hashKey(key uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], key)
	return xxhash.Sum64(b[:])
}

// Add inserts (i,j) (i<j) and reports whether it was newly added.
func (s *candidateSet) Add(i, j int) bool {
	if s.count*2 >= len(s.occupied) {
		s.grow()
	}
	key := packPair(i, j)
	mask := uint64(len(s.occupied) - 1)
	idx := hashKey(key) & mask
	for {
		if !s.occupied[idx] {
			s.occupied[idx] = true
			s.keys[idx] = key
			s.count++
			return true
		}
		if s.keys[idx] == key {
			return false
		}
		idx = (idx + 1) & mask
	}
}

func (s *candidateSet) grow() {
	old := *s
	size := len(old.occupied) * 2
	s.occupied = make([]bool, size)
	s.keys = make([]uint64, size)
	s.count = 0
	mask := uint64(size - 1)
	for idx, occ := range old.occupied {
		if !occ {
			continue
		}
		key := old.keys[idx]
		h := hashKey(key) & mask
		for s.occupied[h] {
			h = (h + 1) & mask
		}
		s.occupied[h] = true
		s.keys[h] = key
		s.count++
	}
}

// Merge inserts every pair from other into s.
func (s *candidateSet) Merge(other *candidateSet) {
	for idx, occ := range other.occupied {
		if !occ {
			continue
		}
		i, j := unpackPair(other.keys[idx])
		s.Add(i, j)
	}
}

// Pairs returns every stored (i,j) pair in unspecified order.
func (s *candidateSet) Pairs() [][2]int {
	out := make([][2]int, 0, s.count)
	for idx, occ := range s.occupied {
		if !occ {
			continue
		}
		i, j := unpackPair(s.keys[idx])
		out = append(out, [2]int{i, j})
	}
	return out
}
