package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func TestHistoryViews(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("alice", "vip")
	f.title("T1", "Dune", 3, "")
	f.title("T2", "Emma", 1, "")

	returned := f.lend(r, lib, "T1")[0]
	f.clock.Advance(days(1))
	late := f.lend(r, lib, "T2")[0]
	f.clock.Advance(days(1))
	f.request(r.UserID, "T1")

	f.clock.Advance(days(3))
	_, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, returned, models.ReturnConfirmRequest{})
	require.NoError(t, err)

	page, err := f.svc.History.History(f.ctx, r.UserID, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.History, 2)
	assert.Equal(t, "Pending", page.History[0].Status)

	only, err := f.svc.History.History(f.ctx, r.UserID, "returned", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, only.Total)
	assert.True(t, only.History[0].Book.IsReturned)
	assert.Equal(t, "Returned", only.History[0].Status)

	_, err = f.svc.History.History(f.ctx, r.UserID, "borrowed", 1, 10)
	requireStatus(t, err, http.StatusBadRequest)

	current, err := f.svc.History.Current(f.ctx, r.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, current.Total)
	assert.Equal(t, late, current.Items[0].BorrowDetailID)

	f.clock.Advance(days(60))
	overdue, err := f.svc.History.Overdue(f.ctx, r.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, overdue.Total)
	assert.Equal(t, "Overdue", overdue.Items[0].Status)
	assert.Positive(t, overdue.Items[0].FineAmount)

	ret, err := f.svc.History.Returned(f.ctx, r.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, ret.Total)
}

func TestHistoryPageSizeIsCapped(t *testing.T) {
	f := newFixture(t)
	r := f.reader("bob", "standard")
	page, err := f.svc.History.History(f.ctx, r.UserID, "", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxHistorySize, page.PageSize)
	assert.NotNil(t, page.History)
}
