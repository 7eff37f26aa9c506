package scan

import "encoding/binary"

const (
	hashBits = 15
	hashSize = 1 << hashBits
	hashMask = hashSize - 1
	maxChain = 64
)

// noPos marks the end of a hash chain.
const noPos = ^uint32(0)

// hashChain finds the longest prior occurrence of the bytes at a position
// within a sliding window. head maps a 4-byte hash to the most recently
// inserted position; prev links each window slot back to the previous
// position sharing its hash bucket, giving a recency-ordered chain.
type hashChain struct {
	windowSize int
	mask       int
	head       []uint32
	prev       []uint32
}

// newHashChain allocates tables for the given window size, which must be
// a power of two.
func newHashChain(windowSize int) *hashChain {
	hc := &hashChain{
		windowSize: windowSize,
		mask:       windowSize - 1,
		head:       make([]uint32, hashSize),
		prev:       make([]uint32, windowSize),
	}
	for i := range hc.head {
		hc.head[i] = noPos
	}
	for i := range hc.prev {
		hc.prev[i] = noPos
	}
	return hc
}

func hash4(data []byte, pos int) int {
	h := binary.LittleEndian.Uint32(data[pos:])
	return int(h*2654435761>>17) & hashMask
}

func (hc *hashChain) slot(pos int) int {
	return pos & hc.mask
}

// insert pushes pos onto its bucket's chain. Positions within 4 bytes of
// the end of the buffer have no 4-byte hash and are skipped.
func (hc *hashChain) insert(data []byte, pos int) {
	if pos+4 > len(data) {
		return
	}
	h := hash4(data, pos)
	hc.prev[hc.slot(pos)] = hc.head[h]
	hc.head[h] = uint32(pos)
}

func (hc *hashChain) insertRange(data []byte, start, end int) {
	limit := end
	if m := len(data) - 3; limit > m {
		limit = m
	}
	for p := start; p < limit; p++ {
		hc.insert(data, p)
	}
}

// longestMatch walks the chain for the hash at pos and returns the best
// prior match as (offset, length). The walk stops at the window edge,
// after maxChain steps, or when the chain ends. Only a strictly longer
// candidate replaces the current best, so among equal-length candidates
// the most recently inserted one wins.
func (hc *hashChain) longestMatch(data []byte, pos, maxLen int) (offset, length int, ok bool) {
	if pos+MinMatch > len(data) {
		return 0, 0, false
	}

	h := hash4(data, pos)
	cp := hc.head[h]
	minPos := pos - hc.windowSize
	if minPos < 0 {
		minPos = 0
	}
	bestOff := 0
	bestLen := MinMatch - 1

	for steps := 0; cp != noPos && int(cp) >= minPos && steps < maxChain; steps++ {
		c := int(cp)
		if c >= pos {
			cp = hc.prev[hc.slot(c)]
			continue
		}

		limit := maxLen
		if r := len(data) - pos; limit > r {
			limit = r
		}
		if r := len(data) - c; limit > r {
			limit = r
		}

		// Quick reject: the candidate can only improve on the best match
		// if it agrees at the byte just past the current best length.
		if limit > bestLen && data[c+bestLen] == data[pos+bestLen] {
			n := 0
			for n < limit && data[c+n] == data[pos+n] {
				n++
			}
			if n > bestLen {
				bestLen = n
				bestOff = pos - c
				if bestLen >= maxLen {
					break
				}
			}
		}

		cp = hc.prev[hc.slot(c)]
	}

	if bestLen >= MinMatch && bestOff > 0 {
		return bestOff, bestLen, true
	}
	return 0, 0, false
}
