// Package scan runs LZ77 match-finding over a byte buffer and emits the
// operation stream consumed by the dictionary and scoring stages. No
// compressed output is produced; the operations describe where the input
// repeats itself.
package scan

// Scanner defaults and limits.
const (
	DefaultWindow = 32 * 1024
	MinMatch      = 4
	MaxMatch      = 258
)

// Kind classifies an operation as a raw literal run or a back-reference
// to earlier identical bytes.
type Kind int

const (
	Literal Kind = iota
	Backref
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Backref:
		return "backref"
	}
	return "unknown"
}

// Op describes one non-overlapping span of the input. The full ordered
// operation sequence for a buffer of N bytes covers [0, N) exactly, with
// strictly increasing positions and no gaps.
type Op struct {
	Position int
	Kind     Kind
	Length   int
	// RefOffset is the distance back to the match source (0 for literals).
	RefOffset int
}

// Content returns the byte content this operation covers.
func (o Op) Content(data []byte) []byte {
	return data[o.Position : o.Position+o.Length]
}

// Scan runs match-finding over data and returns the operation sequence.
// Each byte of the input is covered by exactly one Op; consecutive
// unmatched bytes merge into a single literal run. The window size is
// rounded up to a power of two. Empty input yields no operations.
func Scan(data []byte, windowSize, minMatch, maxMatch int) []Op {
	if len(data) == 0 {
		return nil
	}

	chain := newHashChain(nextPow2(windowSize))
	var ops []Op
	pos := 0
	litStart := -1

	for pos < len(data) {
		if pos+4 <= len(data) {
			if off, n, ok := chain.longestMatch(data, pos, maxMatch); ok && n >= minMatch {
				if litStart >= 0 {
					ops = append(ops, Op{Position: litStart, Kind: Literal, Length: pos - litStart})
					litStart = -1
				}
				ops = append(ops, Op{Position: pos, Kind: Backref, Length: n, RefOffset: off})
				// Interior positions of the match become future candidates.
				chain.insertRange(data, pos, pos+n)
				pos += n
				continue
			}
		}

		if litStart < 0 {
			litStart = pos
		}
		chain.insert(data, pos)
		pos++
	}

	if litStart >= 0 {
		ops = append(ops, Op{Position: litStart, Kind: Literal, Length: len(data) - litStart})
	}

	return ops
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
