package ledger

import (
	"slices"

	jsoniter "github.com/json-iterator/go"
)

// Matches evaluates the filter against a stored entry with the same semantics the
// Postgres engine uses: entry types are OR'ed, predicates compare top-level payload
// fields as strings, items are OR'ed. An empty filter matches everything.
func (f Filter) Matches(entry StorableEntry) bool {
	if f.IsEmpty() {
		return true
	}

	var payload map[string]any
	if err := jsoniter.ConfigFastest.Unmarshal(entry.PayloadJSON, &payload); err != nil {
		return false
	}

	for _, item := range f.items {
		if item.matches(entry.EntryType, payload) {
			return true
		}
	}

	return false
}

func (fi FilterItem) matches(entryType string, payload map[string]any) bool {
	if len(fi.entryTypes) > 0 && !slices.Contains(fi.entryTypes, entryType) {
		return false
	}

	if len(fi.predicates) == 0 {
		return true
	}

	for _, predicate := range fi.predicates {
		val, ok := payload[predicate.key].(string)
		hit := ok && val == predicate.val

		if hit && !fi.allPredicatesMustMatch {
			return true
		}

		if !hit && fi.allPredicatesMustMatch {
			return false
		}
	}

	return fi.allPredicatesMustMatch
}
