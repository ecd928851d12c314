package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classroom-devices/loanledger/ledger"
)

func Test_FilterBuilder_MatchingAnyEntry_IsEmpty(t *testing.T) {
	// act
	filter := ledger.BuildEntryFilter().MatchingAnyEntry()

	// assert
	assert.True(t, filter.IsEmpty(), "filter should be empty")
	assert.Empty(t, filter.Items(), "filter should have no items")
}

func Test_FilterBuilder_SanitizesEntryTypes(t *testing.T) {
	// act
	filter := ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf("LoanClosed", "", "LoanOpened", "LoanClosed").
		Finalize()

	// assert
	assert.Len(t, filter.Items(), 1)
	assert.Equal(t, []string{"LoanClosed", "LoanOpened"}, filter.Items()[0].EntryTypes(), "entry types should be sorted and unique")
}

func Test_FilterBuilder_SanitizesPredicates(t *testing.T) {
	// act
	filter := ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf("LoanOpened").
		AndAnyPredicateOf(
			ledger.P("StudentID", "s-1"),
			ledger.P("", "x"),
			ledger.P("AssetTag", "NB-01"),
			ledger.P("StudentID", "s-1"),
			ledger.P("ReservationID", ""),
		).
		Finalize()

	// assert
	item := filter.Items()[0]
	assert.Equal(t,
		[]ledger.FilterPredicate{ledger.P("AssetTag", "NB-01"), ledger.P("StudentID", "s-1")},
		item.Predicates(),
		"partial predicates should be dropped, the rest sorted and unique",
	)
	assert.False(t, item.AllPredicatesMustMatch())
}

func Test_FilterBuilder_AllPredicatesOf(t *testing.T) {
	// act
	filter := ledger.BuildEntryFilter().
		Matching().
		AllPredicatesOf(ledger.P("StudentID", "s-1"), ledger.P("AssetTag", "NB-01")).
		AndAnyEntryTypeOf("LoanOpened").
		Finalize()

	// assert
	item := filter.Items()[0]
	assert.True(t, item.AllPredicatesMustMatch())
	assert.Equal(t, []string{"LoanOpened"}, item.EntryTypes())
}

func Test_FilterBuilder_OrMatching_CreatesSeparateItems(t *testing.T) {
	// act
	filter := ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf("LoanOpened").
		AndAnyPredicateOf(ledger.P("AssetTag", "NB-01")).
		OrMatching().
		AnyPredicateOf(ledger.P("StudentID", "s-1")).
		Finalize()

	// assert
	assert.Len(t, filter.Items(), 2)
	assert.Empty(t, filter.Items()[1].EntryTypes())
}
