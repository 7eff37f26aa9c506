package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/suykerbuyk/redlens/internal/anomaly"
	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/score"
)

// ReportData holds everything needed to render a markdown analysis
// report.
type ReportData struct {
	Path      string
	Generated time.Time
	Method    string
	Data      []byte
	Entries   []dict.Entry
	Records   []score.RecordAnalysis
	Report    anomaly.Report
	// TopEntries caps the dictionary table.
	TopEntries int
}

// MarkdownReport renders a full analysis report as a markdown document
// with YAML frontmatter, suitable for dropping into a notes vault or a
// wiki.
func MarkdownReport(d ReportData) string {
	var b strings.Builder

	// Frontmatter
	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("date: %s\n", d.Generated.Format("2006-01-02")))
	b.WriteString("type: redundancy-report\n")
	b.WriteString(fmt.Sprintf("input: \"%s\"\n", escapeYAML(d.Path)))
	b.WriteString(fmt.Sprintf("input_bytes: %d\n", d.Report.TotalBytes))
	b.WriteString(fmt.Sprintf("records: %d\n", d.Report.TotalRecords))
	b.WriteString(fmt.Sprintf("dict_entries: %d\n", d.Report.DictEntries))
	if d.Method != "" {
		b.WriteString(fmt.Sprintf("method: %s\n", d.Method))
	}
	b.WriteString(fmt.Sprintf("threshold: %.6f\n", d.Report.Threshold))
	b.WriteString(fmt.Sprintf("anomalies: %d\n", d.Report.AnomalyCount))
	b.WriteString("tags: [redlens-report]\n")
	b.WriteString("---\n\n")

	b.WriteString(fmt.Sprintf("# Redundancy Report: %s\n\n", d.Path))

	// Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	b.WriteString(fmt.Sprintf("| Records | %d |\n", d.Report.TotalRecords))
	b.WriteString(fmt.Sprintf("| Input bytes | %d |\n", d.Report.TotalBytes))
	b.WriteString(fmt.Sprintf("| Dictionary entries | %d |\n", d.Report.DictEntries))
	b.WriteString(fmt.Sprintf("| Mean coverage | %.4f |\n", d.Report.MeanCoverage))
	b.WriteString(fmt.Sprintf("| Median coverage | %.4f |\n", d.Report.MedianCoverage))
	b.WriteString(fmt.Sprintf("| Coverage stdev | %.4f |\n", d.Report.StdevCoverage))
	b.WriteString(fmt.Sprintf("| Threshold | %.4f |\n", d.Report.Threshold))
	b.WriteString(fmt.Sprintf("| Anomalies | %d (%.1f%%) |\n\n",
		d.Report.AnomalyCount, d.Report.AnomalyRate()*100))

	// Top dictionary entries
	top := len(d.Entries)
	if d.TopEntries > 0 && d.TopEntries < top {
		top = d.TopEntries
	}
	if top > 0 {
		b.WriteString(fmt.Sprintf("## Top %d Dictionary Entries\n\n", top))
		b.WriteString("| ID | Count | Length | Median interval | Content |\n")
		b.WriteString("|----|-------|--------|-----------------|--------|\n")
		for i := 0; i < top; i++ {
			e := &d.Entries[i]
			b.WriteString(fmt.Sprintf("| %d | %d | %d | %.0f | `%s` |\n",
				e.EntryID, e.Count, e.ContentLength(), e.MedianInterval(),
				markdownCell(preview(e.Content, 50))))
		}
		b.WriteString("\n")
	}

	// Anomalous records
	if len(d.Report.AnomalyIndices) > 0 {
		b.WriteString("## Anomalous Records\n\n")
		for _, i := range d.Report.AnomalyIndices {
			r := &d.Records[i]
			b.WriteString(fmt.Sprintf("### Record %d (score %.4f)\n\n", r.Index, r.AnomalyScore))
			b.WriteString(fmt.Sprintf("- coverage: %.4f\n", r.Coverage))
			b.WriteString(fmt.Sprintf("- literal bytes: %d / %d\n", r.LiteralBytes, r.Length))
			b.WriteString(fmt.Sprintf("- dictionary refs: %d\n\n", len(r.RefEntries)))
			b.WriteString("```\n")
			b.WriteString(strings.TrimRight(lossy(r.Content(d.Data)), "\r\n"))
			b.WriteString("\n```\n\n")
		}
	}

	// Footer
	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("*rdl | generated %s*\n", d.Generated.Format("2006-01-02 15:04")))

	return b.String()
}

// markdownCell strips table-breaking characters from cell content.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func escapeYAML(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
