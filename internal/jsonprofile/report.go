package jsonprofile

import "github.com/suykerbuyk/redlens/internal/anomaly"

// Report summarizes anomaly detection over scored JSON records.
type Report struct {
	TotalRecords int
	ValidRecords int
	ParseErrors  int
	TotalBytes   int
	FieldCount   int
	MeanScore    float64
	MedianScore  float64
	StdevScore   float64
	Threshold    float64
	AnomalyCount int
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

// BuildReport wraps a detection result with schema and score statistics.
func BuildReport(records []Record, scored []RecordScore, schema *Schema, threshold float64, indices []int) Report {
	totalBytes := 0
	for _, r := range records {
		totalBytes += r.Length
	}
	scores := make([]float64, len(scored))
	for i, s := range scored {
		scores[i] = s.AnomalyScore
	}
	mean := anomaly.Mean(scores)

	return Report{
		TotalRecords:   len(records),
		ValidRecords:   schema.ValidRecords,
		ParseErrors:    schema.ParseErrors,
		TotalBytes:     totalBytes,
		FieldCount:     len(schema.Fields),
		MeanScore:      mean,
		MedianScore:    anomaly.Median(scores),
		StdevScore:     anomaly.SampleStdev(scores, mean),
		Threshold:      threshold,
		AnomalyCount:   len(indices),
		AnomalyIndices: indices,
	}
}
