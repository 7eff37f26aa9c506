package jsonprofile

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

const (
	// Fields with more unique values than this are high-cardinality and
	// excluded from value-based scoring.
	highCardinalityThreshold = 100

	// Fields present in more than this fraction of records are common;
	// fewer than rareFieldThreshold makes them rare.
	commonFieldThreshold = 0.5
	rareFieldThreshold   = 0.05
)

// fieldSetSep joins sorted field names into a map key. Unit separator:
// it cannot appear in a JSON object key without escaping.
const fieldSetSep = "\x1f"

// Type is the JSON type of a decoded value.
type Type int

const (
	Null Type = iota
	Bool
	Number
	String
	Array
	Object
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

func valueType(v any) Type {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case float64:
		return Number
	case string:
		return String
	case []any:
		return Array
	default:
		return Object
	}
}

// valueKey folds a decoded value into the string key used for value
// frequency counting.
func valueKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// FieldProfile holds per-field statistics across all records.
type FieldProfile struct {
	Name           string
	PresentCount   int
	PresenceRate   float64
	TypeCounts     map[Type]int
	DominantType   Type
	ValueCounts    map[string]int
	UniqueValues   int
	LowCardinality bool
}

// Schema is the corpus-wide profile built from all parsed records.
type Schema struct {
	TotalRecords int
	ValidRecords int
	ParseErrors  int
	Fields       map[string]*FieldProfile
	// FieldSetCounts counts each distinct sorted field-name set, keyed
	// by the names joined with fieldSetSep.
	FieldSetCounts map[string]int
	// CommonFieldSet is the most frequent field set.
	CommonFieldSet []string
}

// BuildSchema profiles field presence, types, and value distributions
// over the parsed records. Records that are not JSON objects count as
// parse errors.
func BuildSchema(records []Record) *Schema {
	s := &Schema{
		TotalRecords:   len(records),
		Fields:         make(map[string]*FieldProfile),
		FieldSetCounts: make(map[string]int),
	}

	for _, rec := range records {
		m, ok := rec.Value.(map[string]any)
		if !ok {
			continue
		}
		s.ValidRecords++

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s.FieldSetCounts[strings.Join(keys, fieldSetSep)]++

		for _, key := range keys {
			p, ok := s.Fields[key]
			if !ok {
				p = &FieldProfile{
					Name:        key,
					TypeCounts:  make(map[Type]int),
					ValueCounts: make(map[string]int),
				}
				s.Fields[key] = p
			}
			p.PresentCount++
			p.TypeCounts[valueType(m[key])]++
			p.ValueCounts[valueKey(m[key])]++
		}
	}

	s.ParseErrors = s.TotalRecords - s.ValidRecords

	total := float64(s.TotalRecords)
	if total < 1 {
		total = 1
	}
	for _, p := range s.Fields {
		p.PresenceRate = float64(p.PresentCount) / total
		p.UniqueValues = len(p.ValueCounts)
		p.LowCardinality = p.UniqueValues <= highCardinalityThreshold
		p.DominantType = dominantType(p.TypeCounts)
	}

	s.CommonFieldSet = commonFieldSet(s.FieldSetCounts)
	return s
}

// dominantType picks the most frequent type; ties go to the smaller
// Type value to stay deterministic.
func dominantType(counts map[Type]int) Type {
	best := Null
	bestCount := -1
	for t := Null; t <= Object; t++ {
		if c := counts[t]; c > bestCount {
			best = t
			bestCount = c
		}
	}
	return best
}

// commonFieldSet picks the most frequent field set; ties go to the
// lexicographically smallest key.
func commonFieldSet(counts map[string]int) []string {
	bestKey := ""
	bestCount := 0
	for key, c := range counts {
		if c > bestCount || (c == bestCount && bestCount > 0 && key < bestKey) {
			bestKey = key
			bestCount = c
		}
	}
	if bestCount == 0 {
		return nil
	}
	if bestKey == "" {
		return []string{}
	}
	return strings.Split(bestKey, fieldSetSep)
}
