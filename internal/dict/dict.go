// Package dict groups back-referenced byte patterns by content, counts
// how often each repeats, and ranks them most-frequent-first. Entry 0 is
// the single most common pattern in the input.
package dict

import (
	"bytes"
	"sort"

	"github.com/suykerbuyk/redlens/internal/scan"
)

// DefaultMinCount is the minimum number of back-references a pattern
// needs to earn a dictionary entry.
const DefaultMinCount = 2

// Entry is one unique repeated byte pattern. EntryID is the dense
// frequency rank: 0 = most frequent, ties broken by longer content.
type Entry struct {
	EntryID int
	Content []byte
	Count   int
	// Positions holds every input offset where the pattern occurs, both
	// backref targets and their match sources, ascending and deduplicated.
	Positions []int
}

func (e *Entry) ContentLength() int {
	return len(e.Content)
}

func (e *Entry) TotalBytesCovered() int {
	return e.Count * len(e.Content)
}

// Intervals returns the gaps between consecutive occurrence positions.
func (e *Entry) Intervals() []int {
	if len(e.Positions) < 2 {
		return nil
	}
	iv := make([]int, len(e.Positions)-1)
	for i := 1; i < len(e.Positions); i++ {
		iv[i-1] = e.Positions[i] - e.Positions[i-1]
	}
	return iv
}

func (e *Entry) MedianInterval() float64 {
	iv := e.Intervals()
	if len(iv) == 0 {
		return 0
	}
	sort.Ints(iv)
	n := len(iv)
	if n%2 == 0 {
		return float64(iv[n/2-1]+iv[n/2]) / 2
	}
	return float64(iv[n/2])
}

func (e *Entry) MeanInterval() float64 {
	iv := e.Intervals()
	if len(iv) == 0 {
		return 0
	}
	sum := 0
	for _, d := range iv {
		sum += d
	}
	return float64(sum) / float64(len(iv))
}

// Build groups backref operations by exact byte content and returns the
// ranked dictionary. Patterns back-referenced fewer than minCount times
// are dropped. Entries are sorted by count descending, then content
// length descending, then content bytes ascending (the final tiebreak
// keeps ranks deterministic when count and length both tie).
func Build(data []byte, ops []scan.Op, minCount int) []Entry {
	counts := make(map[string]int)
	positions := make(map[string][]int)

	for _, op := range ops {
		if op.Kind != scan.Backref {
			continue
		}
		content := string(op.Content(data))
		counts[content]++
		// Record both the occurrence and its match source.
		positions[content] = append(positions[content], op.Position, op.Position-op.RefOffset)
	}

	entries := make([]Entry, 0, len(counts))
	for content, count := range counts {
		if count < minCount {
			continue
		}
		pos := positions[content]
		sort.Ints(pos)
		entries = append(entries, Entry{
			Content:   []byte(content),
			Count:     count,
			Positions: dedupSorted(pos),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		if len(entries[i].Content) != len(entries[j].Content) {
			return len(entries[i].Content) > len(entries[j].Content)
		}
		return bytes.Compare(entries[i].Content, entries[j].Content) < 0
	})

	for i := range entries {
		entries[i].EntryID = i
	}

	return entries
}

func dedupSorted(pos []int) []int {
	if len(pos) == 0 {
		return pos
	}
	out := pos[:1]
	for _, p := range pos[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
