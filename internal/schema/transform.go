package schema

import (
	"strconv"
	"strings"
	"time"
)

// Record is one transformed row. Values are aligned positionally with the
// spec's Columns slice and hold string, float64, time.Time, []string or nil.
type Record struct {
	Values []any
}

const dateLayout = "20060102"

// roleIndex caches per-spec column roles by position so Transform does a
// slice lookup per field instead of scanning the role sets.
type roleIndex struct {
	numeric []bool
	date    []bool
	list    []bool
}

var roleIndexes = buildRoleIndexes()

func buildRoleIndexes() map[FileType]roleIndex {
	out := make(map[FileType]roleIndex, len(specs))
	for ft, spec := range specs {
		idx := roleIndex{
			numeric: make([]bool, len(spec.Columns)),
			date:    make([]bool, len(spec.Columns)),
			list:    make([]bool, len(spec.Columns)),
		}
		for i, col := range spec.Columns {
			idx.numeric[i] = contains(spec.NumericCols, col)
			idx.date[i] = contains(spec.DateCols, col)
			idx.list[i] = contains(spec.ListCols, col)
		}
		out[ft] = idx
	}
	return out
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// Transform maps a raw positional record onto a typed record, applying the
// spec's coercion rules. It is pure: no clock, no external state, the same
// input always yields the same output. The returned count is the number of
// fields that were coerced to null because their value failed to parse
// (known-malformed values in the source are not fatal).
func (s TableSpec) Transform(raw []string) (Record, int) {
	idx := roleIndexes[s.FileType]
	values := make([]any, len(s.Columns))
	coerced := 0

	for i := range s.Columns {
		var field string
		if i < len(raw) {
			field = strings.TrimSpace(raw[i])
		}

		switch {
		case idx.list[i]:
			values[i] = splitList(field)
		case idx.date[i]:
			d, ok, fault := parseDate(field)
			if fault {
				coerced++
			}
			if ok {
				values[i] = d
			}
		case idx.numeric[i]:
			n, ok, fault := parseNumeric(field)
			if fault {
				coerced++
			}
			if ok {
				values[i] = n
			}
		default:
			if field != "" {
				values[i] = field
			}
		}
	}

	return Record{Values: values}, coerced
}

// parseNumeric converts a decimal-comma value to a float. An empty field is
// null without being a fault; anything unparseable after the comma
// substitution is null and counted.
func parseNumeric(field string) (float64, bool, bool) {
	if field == "" {
		return 0, false, false
	}
	n, err := strconv.ParseFloat(strings.Replace(field, ",", ".", 1), 64)
	if err != nil {
		return 0, false, true
	}
	return n, true, false
}

// parseDate parses an 8-digit YYYYMMDD value. The source uses "0" and
// "00000000" as null sentinels; those and the empty field are null without
// being faults. Any other unparseable value is null and counted.
func parseDate(field string) (time.Time, bool, bool) {
	if field == "" || field == "0" || field == "00000000" {
		return time.Time{}, false, false
	}
	d, err := time.Parse(dateLayout, field)
	if err != nil {
		return time.Time{}, false, true
	}
	return d, true, false
}

// splitList splits a comma-separated code list. An empty field is an empty
// collection, not a collection holding one empty string.
func splitList(field string) []string {
	if field == "" {
		return []string{}
	}
	parts := strings.Split(field, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
