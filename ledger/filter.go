package ledger

import (
	"slices"
	"strings"
)

type FilterEntryTypeString = string
type FilterKeyString = string
type FilterValString = string

/***** Filter *****/

// Filter selects the entries a decision depends on. Items are combined with OR.
type Filter struct {
	items []FilterItem
}

func (f Filter) Items() []FilterItem {
	return f.items
}

// IsEmpty reports whether the filter matches every entry.
func (f Filter) IsEmpty() bool {
	return len(f.items) == 0
}

/***** FilterItem *****/

// FilterItem is (entry types OR'ed) AND (predicates OR'ed, or AND'ed when allPredicatesMustMatch).
type FilterItem struct {
	entryTypes             []FilterEntryTypeString
	predicates             []FilterPredicate
	allPredicatesMustMatch bool
}

func (fi FilterItem) EntryTypes() []FilterEntryTypeString {
	return fi.entryTypes
}

func (fi FilterItem) Predicates() []FilterPredicate {
	return fi.predicates
}

func (fi FilterItem) AllPredicatesMustMatch() bool {
	return fi.allPredicatesMustMatch
}

/***** FilterPredicate *****/

// FilterPredicate matches entries whose top-level payload field key equals val.
type FilterPredicate struct {
	key FilterKeyString
	val FilterValString
}

func P(key FilterKeyString, val FilterValString) FilterPredicate {
	return FilterPredicate{key: key, val: val}
}

func (fp FilterPredicate) Key() FilterKeyString {
	return fp.key
}

func (fp FilterPredicate) Val() FilterValString {
	return fp.val
}

/***** FilterBuilder *****/

// FilterBuilder builds a storage-agnostic entry Filter. Only combinations that are
// useful for deciding on a loan can be expressed:
//
//   - empty filter
//   - (entryType OR entryType...)
//   - (predicate OR predicate...) / (predicate AND predicate...)
//   - (entryTypes) AND (predicates)
//   - several of the above, OR'ed -> multiple FilterItem(s)
type FilterBuilder interface {
	// Matching starts a new FilterItem.
	Matching() EmptyFilterItemBuilder

	// MatchingAnyEntry returns the empty Filter.
	MatchingAnyEntry() Filter
}

type EmptyFilterItemBuilder interface {
	// AnyEntryTypeOf adds entry types to the current item, dropping empty ones and duplicates.
	AnyEntryTypeOf(entryType FilterEntryTypeString, entryTypes ...FilterEntryTypeString) FilterItemBuilderLackingPredicates

	// AnyPredicateOf adds predicates of which any must match, dropping partial ones and duplicates.
	AnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingEntryTypes

	// AllPredicatesOf adds predicates of which all must match.
	AllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingEntryTypes
}

type FilterItemBuilderLackingPredicates interface {
	AndAnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder
	AndAllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder
	OrMatching() EmptyFilterItemBuilder
	Finalize() Filter
}

type FilterItemBuilderLackingEntryTypes interface {
	AndAnyEntryTypeOf(entryType FilterEntryTypeString, entryTypes ...FilterEntryTypeString) CompletedFilterItemBuilder
	OrMatching() EmptyFilterItemBuilder
	Finalize() Filter
}

type CompletedFilterItemBuilder interface {
	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// Finalize returns the Filter.
	Finalize() Filter
}

// filterBuilder implements all the interfaces of FilterBuilder
type filterBuilder struct {
	filter            Filter
	currentFilterItem FilterItem
}

// BuildEntryFilter creates a FilterBuilder, finished with Finalize() or MatchingAnyEntry().
func BuildEntryFilter() FilterBuilder {
	return filterBuilder{}
}

func (fb filterBuilder) Matching() EmptyFilterItemBuilder {
	fb.currentFilterItem = FilterItem{}

	return fb
}

func (fb filterBuilder) AnyEntryTypeOf(
	entryType FilterEntryTypeString,
	entryTypes ...FilterEntryTypeString,
) FilterItemBuilderLackingPredicates {

	fb.currentFilterItem.entryTypes = fb.sanitizeEntryTypes(
		append(slices.Clone(fb.currentFilterItem.entryTypes), append([]FilterEntryTypeString{entryType}, entryTypes...)...),
	)

	return fb
}

func (fb filterBuilder) AndAnyEntryTypeOf(
	entryType FilterEntryTypeString,
	entryTypes ...FilterEntryTypeString,
) CompletedFilterItemBuilder {

	return fb.AnyEntryTypeOf(entryType, entryTypes...)
}

func (fb filterBuilder) sanitizeEntryTypes(entryTypes []FilterEntryTypeString) []FilterEntryTypeString {
	entryTypes = slices.DeleteFunc(entryTypes, func(e FilterEntryTypeString) bool { return e == "" })
	slices.Sort(entryTypes)

	return slices.Clip(slices.Compact(entryTypes))
}

func (fb filterBuilder) AnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingEntryTypes {

	fb.currentFilterItem.predicates = fb.sanitizePredicates(
		append(slices.Clone(fb.currentFilterItem.predicates), append([]FilterPredicate{predicate}, predicates...)...),
	)

	return fb
}

func (fb filterBuilder) AndAnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	return fb.AnyPredicateOf(predicate, predicates...)
}

func (fb filterBuilder) AllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingEntryTypes {

	fb.currentFilterItem.allPredicatesMustMatch = true

	return fb.AnyPredicateOf(predicate, predicates...)
}

func (fb filterBuilder) AndAllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	return fb.AllPredicatesOf(predicate, predicates...)
}

func (fb filterBuilder) sanitizePredicates(predicates []FilterPredicate) []FilterPredicate {
	predicates = slices.DeleteFunc(predicates, func(p FilterPredicate) bool { return p.key == "" || p.val == "" })
	slices.SortFunc(predicates, func(a, b FilterPredicate) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}

		return strings.Compare(a.val, b.val)
	})

	return slices.Clip(slices.Compact(predicates))
}

func (fb filterBuilder) OrMatching() EmptyFilterItemBuilder {
	fb.filter.items = append(slices.Clone(fb.filter.items), fb.currentFilterItem)
	fb.currentFilterItem = FilterItem{}

	return fb
}

func (fb filterBuilder) MatchingAnyEntry() Filter {
	return fb.filter
}

func (fb filterBuilder) Finalize() Filter {
	fb.filter.items = append(slices.Clone(fb.filter.items), fb.currentFilterItem)

	return fb.filter
}
