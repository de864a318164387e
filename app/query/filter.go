package query

import (
	"strings"
)

// Fielder exposes named attributes. Values are string, []string, time.Time
// or a number.
type Fielder interface {
	Field(name string) (any, bool)
}

// Condition is an equality test on one field. Array fields match when any
// element matches.
type Condition struct {
	Field string
	Value string
	Fold  bool // compare case-insensitively
}

// Matches reports whether item satisfies c.
func (c Condition) Matches(item Fielder) bool {
	v, ok := item.Field(c.Field)
	if !ok {
		return false
	}
	eq := func(s string) bool {
		if c.Fold {
			return strings.EqualFold(s, c.Value)
		}
		return s == c.Value
	}
	switch val := v.(type) {
	case string:
		return eq(val)
	case []string:
		for _, s := range val {
			if eq(s) {
				return true
			}
		}
	}
	return false
}

// Where keeps the items matching every condition.
func Where[T Fielder](items []T, conds ...Condition) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matchesAll(item, conds) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAll(item Fielder, conds []Condition) bool {
	for _, c := range conds {
		if !c.Matches(item) {
			return false
		}
	}
	return true
}

// Search keeps the items where any of fields contains term, ignoring case.
// An empty term keeps everything.
func Search[T Fielder](items []T, term string, fields ...string) []T {
	term = strings.TrimSpace(term)
	if term == "" {
		return append(make([]T, 0, len(items)), items...)
	}
	needle := strings.ToLower(term)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if containsAny(item, needle, fields) {
			out = append(out, item)
		}
	}
	return out
}

func containsAny(item Fielder, needle string, fields []string) bool {
	for _, f := range fields {
		v, ok := item.Field(f)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if strings.Contains(strings.ToLower(val), needle) {
				return true
			}
		case []string:
			for _, s := range val {
				if strings.Contains(strings.ToLower(s), needle) {
					return true
				}
			}
		}
	}
	return false
}
