// Package score splits an input buffer into delimited records, maps the
// scanner's operations and the dictionary onto each record, and computes
// a per-record anomaly score.
package score

import (
	"sort"

	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/scan"
)

// Score weights: low coverage dominates, rarity of referenced dictionary
// entries contributes the rest.
const (
	coverageWeight = 0.7
	rarityWeight   = 0.3
)

// RecordAnalysis holds coverage accounting and the anomaly score for one
// delimiter-terminated record (the final record may lack its delimiter).
// BackrefBytes+LiteralBytes always equals Length.
type RecordAnalysis struct {
	Index        int
	Offset       int
	Length       int
	BackrefBytes int
	LiteralBytes int
	// Coverage is the fraction of bytes covered by back-references
	// (0 = all literal).
	Coverage float64
	// RefEntries lists dictionary entry IDs referenced by this record,
	// sorted and deduplicated.
	RefEntries []int
	// AnomalyScore is higher for records the corpus explains poorly.
	AnomalyScore float64
}

// Content returns the byte content of this record.
func (r *RecordAnalysis) Content(data []byte) []byte {
	return data[r.Offset : r.Offset+r.Length]
}

// brInfo is a backref span with its resolved dictionary entry, -1 when
// the content has no entry.
type brInfo struct {
	start, end int
	entryID    int
}

// Records scores each delimited record of data against the scan
// operations and the dictionary. Every byte equal to delimiter closes a
// record (delimiter included); trailing bytes form a final partial
// record. Empty input yields no records.
func Records(data []byte, ops []scan.Op, dictionary []dict.Entry, delimiter byte) []RecordAnalysis {
	if len(data) == 0 {
		return nil
	}

	type span struct{ off, length int }
	var records []span
	start := 0
	for i, b := range data {
		if b == delimiter {
			records = append(records, span{start, i + 1 - start})
			start = i + 1
		}
	}
	if start < len(data) {
		records = append(records, span{start, len(data) - start})
	}
	if len(records) == 0 {
		return nil
	}

	contentToEntry := make(map[string]int, len(dictionary))
	for _, e := range dictionary {
		contentToEntry[string(e.Content)] = e.EntryID
	}
	dictSize := len(dictionary)
	if dictSize < 1 {
		dictSize = 1
	}

	// Byte-granularity coverage mask plus the ordered backref spans.
	covered := make([]bool, len(data))
	var brs []brInfo
	for _, op := range ops {
		if op.Kind != scan.Backref {
			continue
		}
		end := op.Position + op.Length
		if end > len(data) {
			end = len(data)
		}
		for i := op.Position; i < end; i++ {
			covered[i] = true
		}
		eid := -1
		if id, ok := contentToEntry[string(op.Content(data))]; ok {
			eid = id
		}
		brs = append(brs, brInfo{start: op.Position, end: end, entryID: eid})
	}

	analyses := make([]RecordAnalysis, 0, len(records))
	cursor := 0

	for recIdx, rec := range records {
		recEnd := rec.off + rec.length

		backrefBytes := 0
		for i := rec.off; i < recEnd; i++ {
			if covered[i] {
				backrefBytes++
			}
		}
		cov := 0.0
		if rec.length > 0 {
			cov = float64(backrefBytes) / float64(rec.length)
		}

		// Skip backrefs that end before this record begins; records are
		// in ascending offset order so the cursor never moves back.
		for cursor < len(brs) && brs[cursor].end <= rec.off {
			cursor++
		}

		// Collect dictionary entries whose spans overlap the record.
		var refEntries []int
		for j := cursor; j < len(brs) && brs[j].start < recEnd; j++ {
			if brs[j].end > rec.off && brs[j].entryID >= 0 {
				refEntries = append(refEntries, brs[j].entryID)
			}
		}
		refEntries = sortedUnique(refEntries)

		rarity := 1.0
		if len(refEntries) > 0 {
			sum := 0.0
			for _, eid := range refEntries {
				sum += float64(eid) / float64(dictSize)
			}
			rarity = sum / float64(len(refEntries))
		}

		analyses = append(analyses, RecordAnalysis{
			Index:        recIdx,
			Offset:       rec.off,
			Length:       rec.length,
			BackrefBytes: backrefBytes,
			LiteralBytes: rec.length - backrefBytes,
			Coverage:     cov,
			RefEntries:   refEntries,
			AnomalyScore: coverageWeight*(1-cov) + rarityWeight*rarity,
		})
	}

	return analyses
}

func sortedUnique(ids []int) []int {
	if len(ids) == 0 {
		return ids
	}
	sort.Ints(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
