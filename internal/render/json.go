package render

import (
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/suykerbuyk/redlens/internal/anomaly"
	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/jsonprofile"
	"github.com/suykerbuyk/redlens/internal/score"
)

type dictEntryJSON struct {
	ID             int     `json:"id"`
	Count          int     `json:"count"`
	Length         int     `json:"length"`
	TotalBytes     int     `json:"total_bytes"`
	MedianInterval float64 `json:"median_interval"`
	MeanInterval   float64 `json:"mean_interval"`
	ContentPreview string  `json:"content_preview"`
}

// DictionaryJSON writes the top dictionary entries as a JSON array.
func DictionaryJSON(w io.Writer, entries []dict.Entry, top int) error {
	limit := len(entries)
	if top > 0 && top < limit {
		limit = top
	}
	out := make([]dictEntryJSON, 0, limit)
	for i := 0; i < limit; i++ {
		e := &entries[i]
		content := e.Content
		if len(content) > 80 {
			content = content[:80]
		}
		out = append(out, dictEntryJSON{
			ID:             e.EntryID,
			Count:          e.Count,
			Length:         e.ContentLength(),
			TotalBytes:     e.TotalBytesCovered(),
			MedianInterval: e.MedianInterval(),
			MeanInterval:   e.MeanInterval(),
			ContentPreview: lossy(content),
		})
	}
	return writeJSON(w, out)
}

type anomalyRecordJSON struct {
	Index        int     `json:"index"`
	Offset       int     `json:"offset"`
	Length       int     `json:"length"`
	Coverage     float64 `json:"coverage"`
	AnomalyScore float64 `json:"anomaly_score"`
	LiteralBytes int     `json:"literal_bytes"`
	BackrefBytes int     `json:"backref_bytes"`
	RefEntries   []int   `json:"ref_entries"`
	Content      string  `json:"content"`
}

type anomalyReportJSON struct {
	TotalRecords   int                 `json:"total_records"`
	TotalBytes     int                 `json:"total_bytes"`
	DictEntries    int                 `json:"dict_entries"`
	MeanCoverage   float64             `json:"mean_coverage"`
	MedianCoverage float64             `json:"median_coverage"`
	StdevCoverage  float64             `json:"stdev_coverage"`
	Threshold      float64             `json:"threshold"`
	AnomalyCount   int                 `json:"anomaly_count"`
	AnomalyRate    float64             `json:"anomaly_rate"`
	Anomalies      []anomalyRecordJSON `json:"anomalies"`
}

// AnomaliesJSON writes the byte-level anomaly report as JSON.
func AnomaliesJSON(w io.Writer, data []byte, records []score.RecordAnalysis, report anomaly.Report) error {
	anomalies := make([]anomalyRecordJSON, 0, len(report.AnomalyIndices))
	for _, i := range report.AnomalyIndices {
		r := &records[i]
		refs := r.RefEntries
		if refs == nil {
			refs = []int{}
		}
		anomalies = append(anomalies, anomalyRecordJSON{
			Index:        r.Index,
			Offset:       r.Offset,
			Length:       r.Length,
			Coverage:     round6(r.Coverage),
			AnomalyScore: round6(r.AnomalyScore),
			LiteralBytes: r.LiteralBytes,
			BackrefBytes: r.BackrefBytes,
			RefEntries:   refs,
			Content:      strings.TrimRight(lossy(r.Content(data)), "\r\n"),
		})
	}
	return writeJSON(w, anomalyReportJSON{
		TotalRecords:   report.TotalRecords,
		TotalBytes:     report.TotalBytes,
		DictEntries:    report.DictEntries,
		MeanCoverage:   round6(report.MeanCoverage),
		MedianCoverage: round6(report.MedianCoverage),
		StdevCoverage:  round6(report.StdevCoverage),
		Threshold:      round6(report.Threshold),
		AnomalyCount:   report.AnomalyCount,
		AnomalyRate:    round6(report.AnomalyRate()),
		Anomalies:      anomalies,
	})
}

type jsonProfileRecordJSON struct {
	Index         int      `json:"index"`
	AnomalyScore  float64  `json:"anomaly_score"`
	ValidJSON     bool     `json:"valid_json"`
	FieldCount    int      `json:"field_count"`
	MissingCommon []string `json:"missing_common,omitempty"`
	ExtraRare     []string `json:"extra_rare,omitempty"`
	Content       string   `json:"content"`
}

type jsonProfileReportJSON struct {
	TotalRecords int                     `json:"total_records"`
	ValidRecords int                     `json:"valid_records"`
	ParseErrors  int                     `json:"parse_errors"`
	TotalBytes   int                     `json:"total_bytes"`
	FieldCount   int                     `json:"field_count"`
	MeanScore    float64                 `json:"mean_score"`
	MedianScore  float64                 `json:"median_score"`
	StdevScore   float64                 `json:"stdev_score"`
	Threshold    float64                 `json:"threshold"`
	AnomalyCount int                     `json:"anomaly_count"`
	AnomalyRate  float64                 `json:"anomaly_rate"`
	Anomalies    []jsonProfileRecordJSON `json:"anomalies"`
}

// JSONProfileJSON writes the schema-profile anomaly report as JSON.
func JSONProfileJSON(w io.Writer, data []byte, scored []jsonprofile.RecordScore, report jsonprofile.Report) error {
	anomalies := make([]jsonProfileRecordJSON, 0, len(report.AnomalyIndices))
	for _, i := range report.AnomalyIndices {
		s := &scored[i]
		anomalies = append(anomalies, jsonProfileRecordJSON{
			Index:         s.Index,
			AnomalyScore:  round6(s.AnomalyScore),
			ValidJSON:     s.ValidJSON,
			FieldCount:    s.FieldCount,
			MissingCommon: s.MissingCommon,
			ExtraRare:     s.ExtraRare,
			Content:       strings.TrimRight(lossy(s.Content(data)), "\r\n"),
		})
	}
	return writeJSON(w, jsonProfileReportJSON{
		TotalRecords: report.TotalRecords,
		ValidRecords: report.ValidRecords,
		ParseErrors:  report.ParseErrors,
		TotalBytes:   report.TotalBytes,
		FieldCount:   report.FieldCount,
		MeanScore:    round6(report.MeanScore),
		MedianScore:  round6(report.MedianScore),
		StdevScore:   round6(report.StdevScore),
		Threshold:    round6(report.Threshold),
		AnomalyCount: report.AnomalyCount,
		AnomalyRate:  round6(report.AnomalyRate()),
		Anomalies:    anomalies,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
