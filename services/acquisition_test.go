package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func TestTitleLifecycle(t *testing.T) {
	f := newFixture(t)
	cat := f.category("Science")
	pub, err := f.svc.Acquisition.CreatePublisher(f.ctx, PublisherRequest{Name: "Tre", Address: "Hanoi"})
	require.NoError(t, err)

	_, err = f.svc.Acquisition.CreateTitle(f.ctx, models.BookTitleRequest{Name: "Cosmos", ISBN: "111", PublisherID: "nope"})
	se := requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "Publisher not found", se.Detail)

	title, err := f.svc.Acquisition.CreateTitle(f.ctx, models.BookTitleRequest{
		Name: "Cosmos", Author: "Carl Sagan", ISBN: "111", CategoryID: cat, PublisherID: pub.ID, Price: 120000,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^BT\d{14}`, title.ID)
	assert.Equal(t, "Science", title.Category)
	assert.Equal(t, "Tre", title.Publisher)
	assert.Zero(t, title.TotalQuantity)

	_, err = f.svc.Acquisition.CreateTitle(f.ctx, models.BookTitleRequest{Name: "Cosmos 2", ISBN: "111"})
	requireStatus(t, err, http.StatusConflict)

	updated, err := f.svc.Acquisition.UpdateTitle(f.ctx, title.ID, models.BookTitleRequest{Name: "Cosmos", Author: "Sagan", ISBN: "112", Price: 99000})
	require.NoError(t, err)
	assert.Equal(t, "112", updated.ISBN)
	assert.Empty(t, updated.Category)

	_, err = f.svc.Acquisition.UpdateTitle(f.ctx, "missing", models.BookTitleRequest{Name: "X", ISBN: "999"})
	requireStatus(t, err, http.StatusNotFound)

	require.NoError(t, f.svc.Acquisition.DeleteTitle(f.ctx, title.ID))
	err = f.svc.Acquisition.DeleteTitle(f.ctx, title.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestDeleteTitleWithHistoryIsRefused(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("alice", "standard")
	f.title("T1", "Dune", 2, "")
	detail := f.lend(r, lib, "T1")[0]

	err := f.svc.Acquisition.DeleteTitle(f.ctx, "T1")
	requireStatus(t, err, http.StatusBadRequest)

	err = f.svc.Acquisition.DeleteCopy(f.ctx, f.loan(detail).BookID)
	requireStatus(t, err, http.StatusBadRequest)

	copies, err := f.svc.Acquisition.Copies(f.ctx, "T1")
	require.NoError(t, err)
	require.Len(t, copies, 2)
	for _, c := range copies {
		if c.ID != f.loan(detail).BookID {
			require.NoError(t, f.svc.Acquisition.DeleteCopy(f.ctx, c.ID))
		}
	}
	title, err := f.mem.GetTitle(f.ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 1, title.TotalQuantity)
}

func TestAcquisitionAddsStock(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	f.title("T1", "Dune", 0, "")
	f.title("T2", "Emma", 1, "")

	price := 50000
	_, err := f.svc.Acquisition.Create(f.ctx, lib, models.AcquisitionRequest{Books: []models.AcquisitionItem{
		{BookTitleID: "T1", Quantity: 1},
		{BookTitleID: "missing", Quantity: 1},
	}})
	se := requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "Book title missing not found", se.Detail)

	_, err = f.svc.Acquisition.Create(f.ctx, lib, models.AcquisitionRequest{Books: []models.AcquisitionItem{{BookTitleID: "T1", Quantity: 0}}})
	requireStatus(t, err, http.StatusBadRequest)

	v, err := f.svc.Acquisition.Create(f.ctx, lib, models.AcquisitionRequest{Books: []models.AcquisitionItem{
		{BookTitleID: "T1", Quantity: 3},
		{BookTitleID: "T2", Quantity: 2, Price: &price},
	}})
	require.NoError(t, err)
	assert.Regexp(t, `^ACQ\d{14}`, v.ID)
	assert.Equal(t, 5, v.TotalItems)
	assert.Equal(t, 3*80000+2*50000, v.TotalAmount)
	require.Len(t, v.Details, 2)
	assert.Equal(t, 80000, v.Details[0].Price)

	t1, err := f.mem.GetTitle(f.ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 3, t1.TotalQuantity)
	assert.Equal(t, 3, t1.Available)
	t2, err := f.mem.GetTitle(f.ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, 50000, t2.Price)

	hist, err := f.svc.Acquisition.History(f.ctx, "", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, hist.Total)
	assert.Equal(t, "Librarian lib1", hist.Data[0].LibrarianName)

	detail, err := f.svc.Acquisition.Detail(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Details, 2)

	_, err = f.svc.Acquisition.Detail(f.ctx, "ACQ-missing")
	se = requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "Acquisition slip not found", se.Detail)
}

func TestReferenceDataUnique(t *testing.T) {
	f := newFixture(t)
	f.category("Poetry")
	_, err := f.svc.Acquisition.CreateCategory(f.ctx, CategoryRequest{Name: "Poetry"})
	requireStatus(t, err, http.StatusConflict)

	_, err = f.svc.Acquisition.CreatePublisher(f.ctx, PublisherRequest{})
	requireStatus(t, err, http.StatusBadRequest)

	cats, err := f.svc.Acquisition.Categories(f.ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
