package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/suykerbuyk/redlens/internal/anomaly"
	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/jsonprofile"
	"github.com/suykerbuyk/redlens/internal/scan"
	"github.com/suykerbuyk/redlens/internal/score"
)

func fixture(t *testing.T) ([]byte, []scan.Op, []dict.Entry, []score.RecordAnalysis) {
	t.Helper()
	data := bytes.Repeat([]byte("2026-02-16 app: steady state output\n"), 25)
	data = append(data, []byte("PANIC: unique failure string here\n")...)
	ops := scan.Scan(data, scan.DefaultWindow, scan.MinMatch, scan.MaxMatch)
	entries := dict.Build(data, ops, dict.DefaultMinCount)
	records := score.Records(data, ops, entries, '\n')
	return data, ops, entries, records
}

func TestScanSummary(t *testing.T) {
	data, ops, _, _ := fixture(t)
	var buf bytes.Buffer
	ScanSummary(&buf, "test.log", data, ops, 5*time.Millisecond, 0)

	out := buf.String()
	for _, want := range []string{"LZ77 Scan: test.log", "input size:", "literals:", "backrefs:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Operations (first") {
		t.Error("showOps=0 should not list operations")
	}
}

func TestScanSummary_ShowOps(t *testing.T) {
	data, ops, _, _ := fixture(t)
	var buf bytes.Buffer
	ScanSummary(&buf, "test.log", data, ops, 0, 3)

	out := buf.String()
	if !strings.Contains(out, "Operations (first 3)") {
		t.Errorf("output missing operation listing:\n%s", out)
	}
	if !strings.Contains(out, "LITERAL") {
		t.Error("output missing literal op line")
	}
}

func TestDictionary(t *testing.T) {
	data, _, entries, _ := fixture(t)
	if len(entries) == 0 {
		t.Fatal("fixture produced no dictionary entries")
	}
	var buf bytes.Buffer
	Dictionary(&buf, "test.log", data, entries, 5)

	out := buf.String()
	if !strings.Contains(out, "Dictionary: test.log") {
		t.Errorf("output missing header:\n%s", out)
	}
	if !strings.Contains(out, "count=") {
		t.Error("output missing entry lines")
	}
}

func TestAnalysis(t *testing.T) {
	data, ops, entries, records := fixture(t)
	var buf bytes.Buffer
	Analysis(&buf, "test.log", data, ops, entries, records)

	out := buf.String()
	for _, want := range []string{"Analysis: test.log", "Coverage Distribution", "Coverage Histogram", "Dictionary Entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestAnomalies(t *testing.T) {
	data, _, entries, records := fixture(t)
	report := anomaly.DetectRecords(records, len(entries), anomaly.Top, anomaly.Options{TopN: 3})

	var buf bytes.Buffer
	Anomalies(&buf, "test.log", data, records, report)

	out := buf.String()
	if !strings.Contains(out, "Anomaly Report: test.log") {
		t.Errorf("output missing header:\n%s", out)
	}
	if !strings.Contains(out, "Anomalous Records") {
		t.Error("output missing flagged records section")
	}
	if !strings.Contains(out, "PANIC: unique failure string here") {
		t.Error("output missing the anomalous line content")
	}
}

func TestExtractAnomalies(t *testing.T) {
	data, _, _, records := fixture(t)
	var buf bytes.Buffer
	ExtractAnomalies(&buf, data, records, []int{len(records) - 1})

	if got := buf.String(); got != "PANIC: unique failure string here\n" {
		t.Errorf("extract = %q", got)
	}
}

func TestJSONProfileText(t *testing.T) {
	data := bytes.Repeat([]byte("{\"level\": \"info\", \"msg\": \"ok\"}\n"), 20)
	data = append(data, []byte("not json\n")...)
	recs := jsonprofile.ParseRecords(data, '\n')
	schema := jsonprofile.BuildSchema(recs)
	scored := jsonprofile.ScoreRecords(recs, schema)

	scores := make([]float64, len(scored))
	for i, s := range scored {
		scores[i] = s.AnomalyScore
	}
	threshold, idx := anomaly.DetectIndices(scores, nil, anomaly.Top, anomaly.Options{TopN: 1})
	report := jsonprofile.BuildReport(recs, scored, schema, threshold, idx)

	var buf bytes.Buffer
	JSONProfile(&buf, "app.jsonl", data, scored, report)

	out := buf.String()
	if !strings.Contains(out, "JSON Schema Report: app.jsonl") {
		t.Errorf("output missing header:\n%s", out)
	}
	if !strings.Contains(out, "invalid JSON") {
		t.Error("output missing invalid-JSON marker")
	}
}

func TestDictionaryJSON(t *testing.T) {
	_, _, entries, _ := fixture(t)
	var buf bytes.Buffer
	if err := DictionaryJSON(&buf, entries, 3); err != nil {
		t.Fatalf("DictionaryJSON: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(out) > 3 {
		t.Errorf("len(out) = %d, want <= 3", len(out))
	}
	if len(out) > 0 {
		if _, ok := out[0]["count"]; !ok {
			t.Error("entry missing count field")
		}
	}
}

func TestAnomaliesJSON(t *testing.T) {
	data, _, entries, records := fixture(t)
	report := anomaly.DetectRecords(records, len(entries), anomaly.Top, anomaly.Options{TopN: 2})

	var buf bytes.Buffer
	if err := AnomaliesJSON(&buf, data, records, report); err != nil {
		t.Fatalf("AnomaliesJSON: %v", err)
	}

	var out struct {
		TotalRecords int `json:"total_records"`
		AnomalyCount int `json:"anomaly_count"`
		Anomalies    []struct {
			Index      int   `json:"index"`
			RefEntries []int `json:"ref_entries"`
		} `json:"anomalies"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.TotalRecords != len(records) {
		t.Errorf("total_records = %d, want %d", out.TotalRecords, len(records))
	}
	if out.AnomalyCount != 2 || len(out.Anomalies) != 2 {
		t.Errorf("anomaly_count = %d with %d entries, want 2", out.AnomalyCount, len(out.Anomalies))
	}
	for _, a := range out.Anomalies {
		if a.RefEntries == nil {
			t.Error("ref_entries should marshal as an array, not null")
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview([]byte("short"), 40); got != `"short"` {
		t.Errorf("preview = %s", got)
	}
	long := bytes.Repeat([]byte("x"), 50)
	if got := preview(long, 40); !strings.HasSuffix(got, "...") {
		t.Errorf("preview of long content = %s, want ... suffix", got)
	}
}

func TestRound6(t *testing.T) {
	if got := round6(0.1234567); got != 0.123457 {
		t.Errorf("round6 = %v, want 0.123457", got)
	}
}
