// Package jsonprofile analyzes structured (JSON-lines) logs: it parses
// delimited records, builds a statistical schema profile of field
// presence, types, and value distributions, and scores each record by
// how far it deviates from that profile. Detection over the resulting
// scores goes through the shared anomaly package.
package jsonprofile

import (
	"bytes"
	"encoding/json"
)

// Record is one delimited line with its parse result. Value is nil when
// the line failed to parse.
type Record struct {
	Offset     int
	Length     int
	Value      any
	ParseError bool
}

// Content returns the raw bytes of this record.
func (r *Record) Content(data []byte) []byte {
	return data[r.Offset : r.Offset+r.Length]
}

// ParseRecords parses each delimited line of data as JSON. Blank lines
// are skipped; parse failures are recorded, not fatal.
func ParseRecords(data []byte, delimiter byte) []Record {
	var records []Record
	start := 0

	for i, b := range data {
		if b == delimiter {
			if rec, ok := parseLine(data[start:i], start, i+1-start); ok {
				records = append(records, rec)
			}
			start = i + 1
		}
	}
	if start < len(data) {
		if rec, ok := parseLine(data[start:], start, len(data)-start); ok {
			records = append(records, rec)
		}
	}

	return records
}

func parseLine(line []byte, offset, length int) (Record, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Record{}, false
	}
	rec := Record{Offset: offset, Length: length}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		rec.ParseError = true
	} else {
		rec.Value = v
	}
	return rec, true
}

// LooksLikeJSON reports whether the first non-empty line of data parses
// as a JSON object.
func LooksLikeJSON(data []byte) bool {
	for len(data) > 0 {
		end := bytes.IndexByte(data, '\n')
		rest := []byte(nil)
		if end < 0 {
			end = len(data)
		} else {
			rest = data[end+1:]
		}
		line := bytes.TrimSpace(data[:end])
		if len(line) > 0 {
			var v any
			if err := json.Unmarshal(line, &v); err != nil {
				return false
			}
			_, ok := v.(map[string]any)
			return ok
		}
		data = rest
	}
	return false
}
