// Package query implements search and category filtering over the in-memory
// collection. Both operations are pure functions of their input; no I/O.
package query

import (
	"strings"

	"docflow/internal/model"
)

// Scope restricts which fields a search term is matched against.
type Scope string

const (
	ScopeAll         Scope = "all"
	ScopeNumber      Scope = "number"
	ScopeDescription Scope = "description"
	ScopeType        Scope = "type"
)

// Category selects a slice of the collection by record shape.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryPaired    Category = "paired"
	CategoryProcesses Category = "processes"
	CategoryDespachos Category = "despachos"
)

// Search returns the records matching term under the given scope, preserving
// the input order. Matching is case-insensitive substring containment. An
// empty or whitespace-only term matches everything.
func Search(records []model.Record, term string, scope Scope) []model.Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matches(&r, term, scope) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *model.Record, term string, scope Scope) bool {
	switch scope {
	case ScopeNumber:
		return contains(r.Number, term)
	case ScopeDescription:
		return contains(r.Description, term)
	case ScopeType:
		if r.DocumentType != "" {
			return contains(r.DocumentType, term)
		}
		return contains(string(r.Kind), term)
	default:
		return contains(r.Number, term) ||
			contains(r.Description, term) ||
			contains(r.DocumentType, term) ||
			contains(r.File.Name, term)
	}
}

func contains(field, lowerTerm string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), lowerTerm)
}

// FilterByCategory returns the records in the given category, preserving the
// input order. Paired means processes with at least one linked despacho.
func FilterByCategory(records []model.Record, cat Category) []model.Record {
	if cat == CategoryAll || cat == "" {
		return records
	}
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		switch cat {
		case CategoryPaired:
			if r.Paired() {
				out = append(out, r)
			}
		case CategoryProcesses:
			if r.IsProcess() {
				out = append(out, r)
			}
		case CategoryDespachos:
			if r.IsDespacho() {
				out = append(out, r)
			}
		}
	}
	return out
}

// ValidScope reports whether s names a known search scope.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeAll, ScopeNumber, ScopeDescription, ScopeType:
		return true
	}
	return false
}

// ValidCategory reports whether c names a known filter category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryAll, CategoryPaired, CategoryProcesses, CategoryDespachos:
		return true
	}
	return false
}
