// Package anomaly provides statistical thresholding over score arrays.
// The same primitive serves both the byte-level record scorer and the
// JSON schema profiler; it knows nothing about what produced the scores.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/suykerbuyk/redlens/internal/score"
)

// Method selects how anomaly indices are chosen from a score array.
type Method int

const (
	// Score flags scores at or above mean + 1.5*stdev.
	Score Method = iota
	// Coverage flags coverages at or below max(0, mean - 1.5*stdev).
	Coverage
	// Percentile flags the top fraction of scores (default 5%).
	Percentile
	// Top flags the N highest scores (default 10).
	Top
)

// DefaultTopN is the Top method's cutoff when none is given.
const DefaultTopN = 10

// defaultPercentile is the Percentile method's fraction when no
// explicit threshold is given.
const defaultPercentile = 0.05

func (m Method) String() string {
	switch m {
	case Score:
		return "score"
	case Coverage:
		return "coverage"
	case Percentile:
		return "percentile"
	case Top:
		return "top"
	}
	return "unknown"
}

// ParseMethod maps a method name to its Method value.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "score":
		return Score, nil
	case "coverage":
		return Coverage, nil
	case "percentile":
		return Percentile, nil
	case "top":
		return Top, nil
	}
	return Score, fmt.Errorf("unknown detection method %q", s)
}

// Options carries the optional detection parameters. A nil Threshold
// lets the method compute its own; TopN <= 0 means DefaultTopN.
type Options struct {
	Threshold *float64
	TopN      int
}

// DetectIndices selects anomaly indices from scores using the given
// method. coverages is the parallel coverage array for the Coverage
// method; when nil, scores stand in for it. Returns the threshold used
// and the selected indices sorted by score descending (original order
// preserved on ties). Empty scores yield (0, nil).
func DetectIndices(scores, coverages []float64, method Method, opts Options) (float64, []int) {
	if len(scores) == 0 {
		return 0, nil
	}

	var threshold float64
	var idx []int

	switch method {
	case Coverage:
		covs := coverages
		if covs == nil {
			covs = scores
		}
		mc := Mean(covs)
		sc := SampleStdev(covs, mc)
		threshold = math.Max(0, mc-1.5*sc)
		if opts.Threshold != nil {
			threshold = *opts.Threshold
		}
		for i, c := range covs {
			if c <= threshold {
				idx = append(idx, i)
			}
		}

	case Percentile:
		pct := defaultPercentile
		if opts.Threshold != nil {
			pct = *opts.Threshold
		}
		n := int(math.Ceil(float64(len(scores)) * pct))
		if n < 1 {
			n = 1
		}
		idx = rankByScore(scores)
		if len(idx) > n {
			idx = idx[:n]
		}
		threshold = pct

	case Top:
		n := opts.TopN
		if n <= 0 {
			n = DefaultTopN
		}
		idx = rankByScore(scores)
		if len(idx) > n {
			idx = idx[:n]
		}
		if len(idx) > 0 {
			threshold = scores[idx[len(idx)-1]]
		}

	default: // Score
		ms := Mean(scores)
		ss := SampleStdev(scores, ms)
		threshold = ms + 1.5*ss
		if opts.Threshold != nil {
			threshold = *opts.Threshold
		}
		for i, s := range scores {
			if s >= threshold {
				idx = append(idx, i)
			}
		}
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return scoreGreater(scores[idx[a]], scores[idx[b]])
	})
	return threshold, idx
}

// rankByScore returns all indices sorted by score descending, stable
// with respect to the original order.
func rankByScore(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scoreGreater(scores[idx[a]], scores[idx[b]])
	})
	return idx
}

// Report summarizes detection over scored records.
type Report struct {
	TotalRecords   int
	TotalBytes     int
	DictEntries    int
	MeanCoverage   float64
	MedianCoverage float64
	StdevCoverage  float64
	Threshold      float64
	AnomalyCount   int
	// AnomalyIndices index into the scored records, sorted by score
	// descending.
	AnomalyIndices []int
}

// AnomalyRate returns the fraction of records flagged, 0 when there are
// no records.
func (r *Report) AnomalyRate() float64 {
	if r.TotalRecords == 0 {
		return 0
	}
	return float64(r.AnomalyCount) / float64(r.TotalRecords)
}

// DetectRecords runs DetectIndices over the anomaly scores and coverages
// of scored records and wraps the result with corpus statistics.
func DetectRecords(records []score.RecordAnalysis, dictEntries int, method Method, opts Options) Report {
	if len(records) == 0 {
		return Report{DictEntries: dictEntries}
	}

	totalBytes := 0
	coverages := make([]float64, len(records))
	scores := make([]float64, len(records))
	for i, r := range records {
		totalBytes += r.Length
		coverages[i] = r.Coverage
		scores[i] = r.AnomalyScore
	}

	meanCov := Mean(coverages)
	threshold, idx := DetectIndices(scores, coverages, method, opts)

	return Report{
		TotalRecords:   len(records),
		TotalBytes:     totalBytes,
		DictEntries:    dictEntries,
		MeanCoverage:   meanCov,
		MedianCoverage: Median(coverages),
		StdevCoverage:  SampleStdev(coverages, meanCov),
		Threshold:      threshold,
		AnomalyCount:   len(idx),
		AnomalyIndices: idx,
	}
}
