package hierarchy

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

// MatchMode selects how custom filters compare string values.
type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains" // case-insensitive substring, strings only
)

// Filters are client-side predicates applied after the server-side search.
// Every supplied kind must pass for a case to be kept.
type Filters struct {
	// Custom maps a case property to its expected value.
	Custom map[string]any
	Mode   MatchMode
	// Arrays maps a list property to the values of which at least one must be present.
	Arrays map[string][]any
	// IssueKey must equal the display_id of one of the case's linked issues.
	IssueKey string
}

// Empty reports whether no filter kind is set.
func (f Filters) Empty() bool {
	return len(f.Custom) == 0 && len(f.Arrays) == 0 && f.IssueKey == ""
}

// Apply returns the cases that pass every filter, preserving order.
func (f Filters) Apply(cases []testmo.Case) []testmo.Case {
	if f.Empty() {
		return cases
	}
	kept := make([]testmo.Case, 0, len(cases))
	for _, c := range cases {
		if f.Match(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Match reports whether c passes the custom, array and issue filters.
func (f Filters) Match(c testmo.Case) bool {
	return f.matchCustom(c) && f.matchArrays(c) && f.matchIssue(c)
}

func (f Filters) matchCustom(c testmo.Case) bool {
	for key, want := range f.Custom {
		got, _ := c.Get(key)
		if f.Mode == MatchContains {
			gs, gok := got.(string)
			ws, wok := want.(string)
			if gok && wok {
				if !strings.Contains(strings.ToLower(gs), strings.ToLower(ws)) {
					return false
				}
				continue
			}
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func (f Filters) matchArrays(c testmo.Case) bool {
	for key, accepted := range f.Arrays {
		got, _ := c.Get(key)
		items, ok := got.([]any)
		if !ok || !containsAny(items, accepted) {
			return false
		}
	}
	return true
}

func (f Filters) matchIssue(c testmo.Case) bool {
	if f.IssueKey == "" {
		return true
	}
	got, _ := c.Get("issues")
	issues, ok := got.([]any)
	if !ok {
		return false
	}
	for _, issue := range issues {
		entry, ok := issue.(map[string]any)
		if ok && valuesEqual(entry["display_id"], f.IssueKey) {
			return true
		}
	}
	return false
}

func containsAny(items, accepted []any) bool {
	for _, want := range accepted {
		for _, item := range items {
			if valuesEqual(item, want) {
				return true
			}
		}
	}
	return false
}

// valuesEqual compares decoded JSON values; numbers compare by value so 1 equals 1.0.
func valuesEqual(a, b any) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
