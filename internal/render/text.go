// Package render formats analysis results as human-readable text or
// JSON. It holds every fmt detail so the command layer stays thin.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/suykerbuyk/redlens/internal/anomaly"
	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/jsonprofile"
	"github.com/suykerbuyk/redlens/internal/scan"
	"github.com/suykerbuyk/redlens/internal/score"
)

// ScanSummary prints operation counts and byte shares for a scan, plus
// the first showOps operations when requested.
func ScanSummary(w io.Writer, path string, data []byte, ops []scan.Op, elapsed time.Duration, showOps int) {
	var nLit, nRef, litBytes, refBytes int
	for _, op := range ops {
		if op.Kind == scan.Literal {
			nLit++
			litBytes += op.Length
		} else {
			nRef++
			refBytes += op.Length
		}
	}
	total := len(data)

	fmt.Fprintf(w, "=== LZ77 Scan: %s ===\n", path)
	fmt.Fprintf(w, "  input size:     %10d bytes\n", total)
	fmt.Fprintf(w, "  scan time:      %10.4fs\n", elapsed.Seconds())
	fmt.Fprintf(w, "  operations:     %10d\n", len(ops))
	fmt.Fprintf(w, "    literals:     %10d  (%d bytes, %.1f%%)\n", nLit, litBytes, pct(litBytes, total))
	fmt.Fprintf(w, "    backrefs:     %10d  (%d bytes, %.1f%%)\n", nRef, refBytes, pct(refBytes, total))

	if showOps > 0 {
		fmt.Fprintf(w, "\n--- Operations (first %d) ---\n", showOps)
		for i, op := range ops {
			if i >= showOps {
				break
			}
			shown := preview(op.Content(data), 40)
			if op.Kind == scan.Backref {
				fmt.Fprintf(w, "  [%8d] BACKREF  len=%4d  off=%6d  %s\n", op.Position, op.Length, op.RefOffset, shown)
			} else {
				fmt.Fprintf(w, "  [%8d] LITERAL  len=%4d  %s\n", op.Position, op.Length, shown)
			}
		}
	}
}

// Dictionary prints the ranked dictionary, capped at top entries.
func Dictionary(w io.Writer, path string, data []byte, entries []dict.Entry, top int) {
	totalCovered := 0
	for i := range entries {
		totalCovered += entries[i].TotalBytesCovered()
	}
	limit := len(entries)
	if top > 0 && top < limit {
		limit = top
	}

	fmt.Fprintf(w, "=== Dictionary: %s ===\n", path)
	fmt.Fprintf(w, "  entries:  %d\n", len(entries))
	if len(data) > 0 {
		fmt.Fprintf(w, "  total backref bytes covered: %d / %d (%.1f%%)\n",
			totalCovered, len(data), pct(totalCovered, len(data)))
	}
	fmt.Fprintf(w, "\n--- Top %d entries ---\n", limit)
	for i := 0; i < limit; i++ {
		e := &entries[i]
		fmt.Fprintf(w, "  [%4d]  count=%6d  len=%4d  med_iv=%8.0f  %s\n",
			e.EntryID, e.Count, e.ContentLength(), e.MedianInterval(), preview(e.Content, 60))
	}
}

// Analysis prints the full-pipeline summary: operation counts, coverage
// distribution with a histogram, and the top dictionary entries.
func Analysis(w io.Writer, path string, data []byte, ops []scan.Op, entries []dict.Entry, records []score.RecordAnalysis) {
	var nLit, nRef, refBytes int
	for _, op := range ops {
		if op.Kind == scan.Literal {
			nLit++
		} else {
			nRef++
			refBytes += op.Length
		}
	}

	fmt.Fprintf(w, "=== Analysis: %s ===\n", path)
	fmt.Fprintf(w, "  input size:     %10d bytes\n", len(data))
	fmt.Fprintf(w, "  records:        %10d\n", len(records))
	fmt.Fprintf(w, "  scan ops:       %10d  (%d literal, %d backref)\n", len(ops), nLit, nRef)
	fmt.Fprintf(w, "  backref cover:  %9.1f%%\n", pct(refBytes, len(data)))
	fmt.Fprintf(w, "  dict entries:   %10d\n", len(entries))

	if len(records) > 0 {
		coverages := make([]float64, len(records))
		minC, maxC := records[0].Coverage, records[0].Coverage
		for i, r := range records {
			coverages[i] = r.Coverage
			if r.Coverage < minC {
				minC = r.Coverage
			}
			if r.Coverage > maxC {
				maxC = r.Coverage
			}
		}

		fmt.Fprintf(w, "\n--- Coverage Distribution ---\n")
		fmt.Fprintf(w, "  mean:    %.4f\n", anomaly.Mean(coverages))
		fmt.Fprintf(w, "  median:  %.4f\n", anomaly.Median(coverages))
		fmt.Fprintf(w, "  min:     %.4f\n", minC)
		fmt.Fprintf(w, "  max:     %.4f\n", maxC)

		var buckets [10]int
		for _, c := range coverages {
			b := int(c * 10)
			if b > 9 {
				b = 9
			}
			buckets[b]++
		}
		maxCount := 1
		for _, c := range buckets {
			if c > maxCount {
				maxCount = c
			}
		}
		fmt.Fprintf(w, "\n--- Coverage Histogram ---\n")
		for i, count := range buckets {
			bar := strings.Repeat("#", count*40/maxCount)
			fmt.Fprintf(w, "  %3d-%3d%%: %6d %s\n", i*10, (i+1)*10, count, bar)
		}
	}

	top := len(entries)
	if top > 10 {
		top = 10
	}
	if top > 0 {
		fmt.Fprintf(w, "\n--- Top %d Dictionary Entries ---\n", top)
		for i := 0; i < top; i++ {
			e := &entries[i]
			fmt.Fprintf(w, "  [%4d]  count=%6d  len=%4d  %s\n",
				e.EntryID, e.Count, e.ContentLength(), preview(e.Content, 50))
		}
	}
}

// Anomalies prints the byte-level anomaly report with the flagged
// records, most anomalous first.
func Anomalies(w io.Writer, path string, data []byte, records []score.RecordAnalysis, report anomaly.Report) {
	fmt.Fprintf(w, "=== Anomaly Report: %s ===\n", path)
	fmt.Fprintf(w, "  records:         %8d\n", report.TotalRecords)
	fmt.Fprintf(w, "  mean coverage:   %8.4f\n", report.MeanCoverage)
	fmt.Fprintf(w, "  median coverage: %8.4f\n", report.MedianCoverage)
	fmt.Fprintf(w, "  stdev coverage:  %8.4f\n", report.StdevCoverage)
	fmt.Fprintf(w, "  threshold:       %8.4f\n", report.Threshold)
	fmt.Fprintf(w, "  anomalies:       %8d  (%.1f%%)\n", report.AnomalyCount, report.AnomalyRate()*100)

	if len(report.AnomalyIndices) > 0 {
		fmt.Fprintf(w, "\n--- Anomalous Records ---\n")
		for _, i := range report.AnomalyIndices {
			r := &records[i]
			line := strings.TrimRight(lossy(r.Content(data)), "\r\n")
			if len(line) > 120 {
				line = line[:117] + "..."
			}
			fmt.Fprintf(w, "  [%6d]  score=%.4f  cov=%.2f  lit=%4d  refs=%2d  %s\n",
				r.Index, r.AnomalyScore, r.Coverage, r.LiteralBytes, len(r.RefEntries), line)
		}
	}
}

// ExtractAnomalies writes the raw content of the flagged records.
func ExtractAnomalies(w io.Writer, data []byte, records []score.RecordAnalysis, indices []int) {
	for _, i := range indices {
		w.Write(records[i].Content(data))
	}
}

// JSONProfile prints the schema-profile anomaly report with per-record
// explanations.
func JSONProfile(w io.Writer, path string, data []byte, scored []jsonprofile.RecordScore, report jsonprofile.Report) {
	fmt.Fprintf(w, "=== JSON Schema Report: %s ===\n", path)
	fmt.Fprintf(w, "  records:       %8d  (%d valid, %d parse errors)\n",
		report.TotalRecords, report.ValidRecords, report.ParseErrors)
	fmt.Fprintf(w, "  fields:        %8d\n", report.FieldCount)
	fmt.Fprintf(w, "  mean score:    %8.4f\n", report.MeanScore)
	fmt.Fprintf(w, "  median score:  %8.4f\n", report.MedianScore)
	fmt.Fprintf(w, "  stdev score:   %8.4f\n", report.StdevScore)
	fmt.Fprintf(w, "  threshold:     %8.4f\n", report.Threshold)
	fmt.Fprintf(w, "  anomalies:     %8d  (%.1f%%)\n", report.AnomalyCount, report.AnomalyRate()*100)

	if len(report.AnomalyIndices) > 0 {
		fmt.Fprintf(w, "\n--- Anomalous Records ---\n")
		for _, i := range report.AnomalyIndices {
			s := &scored[i]
			line := strings.TrimRight(lossy(s.Content(data)), "\r\n")
			if len(line) > 100 {
				line = line[:97] + "..."
			}
			fmt.Fprintf(w, "  [%6d]  score=%.4f  %s\n", s.Index, s.AnomalyScore, line)
			if !s.ValidJSON {
				fmt.Fprintf(w, "           invalid JSON\n")
				continue
			}
			if len(s.MissingCommon) > 0 {
				fmt.Fprintf(w, "           missing: %s\n", strings.Join(s.MissingCommon, ", "))
			}
			if len(s.ExtraRare) > 0 {
				fmt.Fprintf(w, "           rare fields: %s\n", strings.Join(s.ExtraRare, ", "))
			}
			for _, rv := range s.RareValues {
				fmt.Fprintf(w, "           rare value: %s=%q\n", rv.Field, rv.Value)
			}
			for _, tm := range s.TypeMismatches {
				fmt.Fprintf(w, "           type: %s is %s, expected %s\n", tm.Field, tm.Actual, tm.Expected)
			}
		}
	}
}

func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// preview quotes up to max bytes of content, marking truncation.
func preview(b []byte, max int) string {
	suffix := ""
	if len(b) > max {
		b = b[:max]
		suffix = "..."
	}
	return fmt.Sprintf("%q%s", lossy(b), suffix)
}

// lossy converts bytes to a string, replacing invalid UTF-8.
func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
