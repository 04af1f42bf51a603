package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowseWithoutKeywordPagesByName(t *testing.T) {
	f := newFixture(t)
	fiction := f.category("Fiction")
	f.title("T3", "Ulysses", 1, fiction)
	f.title("T1", "Dune", 1, fiction)
	f.title("T2", "Calculus", 1, "")

	page, err := f.svc.Catalog.Browse(f.ctx, BrowseQuery{Page: 1, PageSize: 2}, MaxBrowseSize)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Books, 2)
	assert.Equal(t, "Calculus", page.Books[0].Name)
	assert.Equal(t, "Dune", page.Books[1].Name)

	page, err = f.svc.Catalog.Browse(f.ctx, BrowseQuery{Category: "Fiction"}, MaxBrowseSize)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, defaultPageSize, page.PageSize)
}

func TestBrowseRanksByRelevance(t *testing.T) {
	f := newFixture(t)
	f.title("T1", "Learning Go", 1, "")
	f.title("T2", "Go", 1, "")
	f.title("T3", "Dune", 1, "")

	page, err := f.svc.Catalog.Browse(f.ctx, BrowseQuery{Keyword: "go"}, MaxSearchSize)
	require.NoError(t, err)
	// "Dune" only matches fuzzily through its author
	require.Equal(t, 3, page.Total)
	assert.Equal(t, "T2", page.Books[0].ID)
	assert.Equal(t, "T1", page.Books[1].ID)
	assert.Equal(t, "T3", page.Books[2].ID)
	assert.Greater(t, page.Books[0].Score, page.Books[1].Score)
	assert.Greater(t, page.Books[1].Score, page.Books[2].Score)

	page, err = f.svc.Catalog.Browse(f.ctx, BrowseQuery{Keyword: "go", Page: 2, PageSize: 2}, MaxSearchSize)
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "T3", page.Books[0].ID)
}

func TestTitleDetailListsCopies(t *testing.T) {
	f := newFixture(t)
	f.title("T1", "Dune", 3, "")

	d, err := f.svc.Catalog.Title(f.ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, d.Copies, 3)
	assert.Equal(t, 3, d.Available)

	_, err = f.svc.Catalog.Title(f.ctx, "nope")
	requireStatus(t, err, 404)
}

func TestReaderStatusCounts(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("alice", "standard")
	f.title("T1", "Dune", 5, "")
	f.lend(r, lib, "T1")
	f.request(r.UserID, "T1", "T1")

	st, err := f.svc.Catalog.ReaderStatus(f.ctx, r.UserID)
	require.NoError(t, err)
	assert.Equal(t, 5, st.MaxBooksAllowed)
	assert.Equal(t, 45, st.LoanPeriodDays)
	assert.Equal(t, 1, st.CurrentlyBorrowed)
	assert.Equal(t, 1, st.PendingRequests)
	assert.Equal(t, 2, st.RemainingSlots)
	assert.True(t, st.CanBorrowMore)
	assert.Zero(t, st.OverdueCount)
	assert.Equal(t, 1, st.TotalBorrowedHistory)
}

func TestCategoryNames(t *testing.T) {
	f := newFixture(t)
	f.category("Science")
	f.category("Art")
	names, err := f.svc.Catalog.CategoryNames(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Art", "Science"}, names)
}
