package jsonprofile

import (
	"sort"
	"strings"
)

// Score weights. Missing common fields dominate; unusual value mixes
// and novel field sets carry most of the rest.
const (
	missingWeight     = 0.30
	valueRarityWeight = 0.25
	setNoveltyWeight  = 0.25
	extraWeight       = 0.10
	typeWeight        = 0.10
)

// rareValueFrequency is the per-field value frequency below which a
// value is reported as rare.
const rareValueFrequency = 0.01

// FieldValue is a (field, value) pair flagged as rare.
type FieldValue struct {
	Field string
	Value string
}

// TypeMismatch records a field whose value type differs from the
// corpus-dominant type.
type TypeMismatch struct {
	Field    string
	Expected Type
	Actual   Type
}

// RecordScore explains why a record is (or is not) anomalous.
type RecordScore struct {
	Index      int
	Offset     int
	Length     int
	ValidJSON  bool
	FieldCount int
	// MissingCommon lists common fields absent from this record.
	MissingCommon []string
	// ExtraRare lists rare fields present in this record.
	ExtraRare      []string
	RareValues     []FieldValue
	TypeMismatches []TypeMismatch
	AnomalyScore   float64
}

// Content returns the raw bytes of the scored record.
func (s *RecordScore) Content(data []byte) []byte {
	return data[s.Offset : s.Offset+s.Length]
}

// ScoreRecords scores each record against the schema profile. Records
// that are not valid JSON objects are maximally anomalous (score 1.0).
func ScoreRecords(records []Record, schema *Schema) []RecordScore {
	total := float64(schema.TotalRecords)
	if total < 1 {
		total = 1
	}

	var commonFields []string
	for name, p := range schema.Fields {
		if p.PresenceRate > commonFieldThreshold {
			commonFields = append(commonFields, name)
		}
	}
	sort.Strings(commonFields)
	nCommon := float64(len(commonFields))
	if nCommon < 1 {
		nCommon = 1
	}

	scores := make([]RecordScore, 0, len(records))

	for idx, rec := range records {
		m, ok := rec.Value.(map[string]any)
		if !ok {
			scores = append(scores, RecordScore{
				Index:         idx,
				Offset:        rec.Offset,
				Length:        rec.Length,
				MissingCommon: append([]string(nil), commonFields...),
				AnomalyScore:  1.0,
			})
			continue
		}

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var missing []string
		for _, f := range commonFields {
			if _, present := m[f]; !present {
				missing = append(missing, f)
			}
		}

		var extra []string
		var mismatches []TypeMismatch
		var rareValues []FieldValue
		valueRaritySum := 0.0
		valueRarityN := 0

		for _, key := range keys {
			p, known := schema.Fields[key]
			if !known || p.PresenceRate < rareFieldThreshold {
				extra = append(extra, key)
			}
			if !known {
				continue
			}

			actual := valueType(m[key])
			if actual != p.DominantType {
				mismatches = append(mismatches, TypeMismatch{Field: key, Expected: p.DominantType, Actual: actual})
			}

			if p.LowCardinality {
				vkey := valueKey(m[key])
				freq := float64(p.ValueCounts[vkey]) / float64(max1(p.PresentCount))
				valueRaritySum += 1 - freq
				valueRarityN++
				if freq < rareValueFrequency {
					rareValues = append(rareValues, FieldValue{Field: key, Value: vkey})
				}
			}
		}

		avgValueRarity := 0.0
		if valueRarityN > 0 {
			avgValueRarity = valueRaritySum / float64(valueRarityN)
		}

		setCount := schema.FieldSetCounts[strings.Join(keys, fieldSetSep)]
		setNovelty := 1 - float64(setCount)/total

		missingScore := float64(len(missing)) / nCommon
		extraScore := 0.0
		if len(keys) > 0 {
			extraScore = float64(len(extra)) / float64(len(keys))
		}
		typeScore := 0.0
		if len(m) > 0 {
			typeScore = float64(len(mismatches)) / float64(len(m))
		}

		scores = append(scores, RecordScore{
			Index:          idx,
			Offset:         rec.Offset,
			Length:         rec.Length,
			ValidJSON:      true,
			FieldCount:     len(m),
			MissingCommon:  missing,
			ExtraRare:      extra,
			RareValues:     rareValues,
			TypeMismatches: mismatches,
			AnomalyScore: missingWeight*missingScore +
				valueRarityWeight*avgValueRarity +
				setNoveltyWeight*setNovelty +
				extraWeight*extraScore +
				typeWeight*typeScore,
		})
	}

	return scores
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
