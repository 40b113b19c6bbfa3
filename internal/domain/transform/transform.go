// Package transform applies the search, filter and sort stages to a
// generated record set, in that fixed order. Each stage is a no-op when its
// triggering parameter is absent.
package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/mockforge/mockforge/internal/domain/query"
)

// Apply runs search, then filter, then sort over the records.
func Apply(records []map[string]any, p query.Params) []map[string]any {
	records = Search(records, p.Search)
	records = Filter(records, p.FilterField, p.FilterValue)
	records = Sort(records, p.SortField, p.SortOrder)
	return records
}

// Search keeps records where any field's string form contains the term,
// case-insensitively.
func Search(records []map[string]any, term string) []map[string]any {
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)

	out := records[:0:0]
	for _, rec := range records {
		for _, v := range rec {
			if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Filter keeps records whose named field's string form equals the value
// exactly. Fields prefixed with "$." are resolved as JSONPath expressions
// into nested records.
func Filter(records []map[string]any, field, val string) []map[string]any {
	if field == "" || val == "" {
		return records
	}

	out := records[:0:0]
	for _, rec := range records {
		v, ok := fieldValue(rec, field)
		if ok && fmt.Sprint(v) == val {
			out = append(out, rec)
		}
	}
	return out
}

// Sort orders records by the named field, ascending or descending. Records
// where the field is absent on either side compare as equal and keep their
// relative order. Numbers compare numerically; everything else falls back to
// the natural ordering of string forms.
func Sort(records []map[string]any, field, order string) []map[string]any {
	if field == "" {
		return records
	}
	desc := order == "desc"

	sort.SliceStable(records, func(i, j int) bool {
		a, aok := fieldValue(records[i], field)
		b, bok := fieldValue(records[j], field)
		if !aok || !bok {
			return false
		}
		less := compareLess(a, b)
		if desc {
			return compareLess(b, a)
		}
		return less
	})
	return records
}

func compareLess(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func fieldValue(rec map[string]any, field string) (any, bool) {
	if strings.HasPrefix(field, "$.") {
		v, err := jsonpath.Get(field, rec)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	v, ok := rec[field]
	return v, ok
}
