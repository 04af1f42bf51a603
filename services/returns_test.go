package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
)

func TestReturnOnTime(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("alice", "standard")
	f.title("T1", "The Go Programming Language", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	f.clock.Advance(days(10))
	req, err := f.svc.Returns.RequestReturn(f.ctx, r.UserID, detail)
	require.NoError(t, err)
	assert.Equal(t, models.BorrowPendingReturn, req.Status)
	assert.False(t, req.IsOverdue)
	assert.Zero(t, req.EstimatedFine)

	_, err = f.svc.Returns.RequestReturn(f.ctx, r.UserID, detail)
	requireStatus(t, err, http.StatusBadRequest)

	pending, err := f.svc.Returns.PendingReturns(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, pending.Total)
	assert.Equal(t, detail, pending.Items[0].BorrowDetailID)

	res, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{})
	require.NoError(t, err)
	assert.False(t, res.IsOverdue)
	assert.Zero(t, res.FineAmount)
	assert.Empty(t, res.PenaltyID)
	assert.True(t, res.SlipCompleted)
	assert.Equal(t, 45, res.LoanPeriodDays)

	rec := f.loan(detail)
	assert.Equal(t, models.BorrowReturned, rec.Status)
	require.NotNil(t, rec.RealReturnDate)
	c, _ := f.mem.Copy(rec.BookID)
	assert.False(t, c.BeingBorrowed)
	title, err := f.mem.GetTitle(f.ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 1, title.Available)

	_, err = f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{})
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Book already returned", se.Detail)
}

func TestLateReturnCreatesPenalty(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("bob", "standard")
	f.title("T1", "Effective Go", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	f.clock.Advance(days(45 + 10))
	req, err := f.svc.Returns.RequestReturn(f.ctx, r.UserID, detail)
	require.NoError(t, err)
	assert.Equal(t, 10, req.DaysOverdue)
	assert.Equal(t, policy.LateFine(10), req.EstimatedFine)

	res, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsOverdue)
	assert.Equal(t, 10, res.DaysOverdue)
	assert.Equal(t, 57500, res.FineAmount)
	assert.Regexp(t, `^PEN-[0-9A-F]{8}$`, res.PenaltyID)
	assert.Equal(t, "Pending", res.PenaltyStatus)
	assert.Equal(t, "Book returned 10 days late. Fine: 57500 VND", res.Warning)

	list, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "")
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, 57500, list.UnpaidAmount)

	_, err = f.svc.Borrow.Request(f.ctx, r.UserID, models.BorrowRequest{BookTitleIDs: []string{"T1"}})
	requireStatus(t, err, http.StatusForbidden)

	paid, err := f.svc.Penalties.Pay(f.ctx, res.PenaltyID)
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyPaid, paid.Status)

	_, err = f.svc.Penalties.Pay(f.ctx, res.PenaltyID)
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Penalty already paid", se.Detail)
	_, err = f.svc.Penalties.Cancel(f.ctx, res.PenaltyID, "")
	se = requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Cannot cancel paid penalty. Please process refund separately.", se.Detail)

	f.request(r.UserID, "T1")
}

func TestConfirmDamagedReturn(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("carol", "standard")
	f.title("T1", "Dune", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	_, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{Damaged: true})
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "damage_description is required", se.Detail)

	low := 1000
	res, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{
		Damaged:           true,
		DamageDescription: "torn cover",
		DamageFine:        &low,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.DamagePenaltyID)

	p, err := f.mem.GetPenalty(f.ctx, res.DamagePenaltyID)
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyDamage, p.Type)
	assert.Equal(t, policy.DamageFineMin, p.FineAmount)
	c, _ := f.mem.Copy(f.loan(detail).BookID)
	assert.Equal(t, "damaged", c.Condition)
}

func TestReportDamageOnce(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("dave", "standard")
	f.title("T1", "Dune", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	amount := 900000
	res, err := f.svc.Returns.ReportDamage(f.ctx, r.UserID, detail, models.DamageReport{Description: "water", FineAmount: &amount})
	require.NoError(t, err)
	assert.Equal(t, policy.DamageFineMax, res.FineAmount)

	_, err = f.svc.Returns.ReportDamage(f.ctx, r.UserID, detail, models.DamageReport{Description: "again"})
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Damage penalty already exists for this borrow detail", se.Detail)
}

func TestReportLost(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("erin", "standard")
	f.title("T1", "Dune", 2, "")
	detail := f.lend(r, lib, "T1")[0]

	res, err := f.svc.Returns.ReportLost(f.ctx, r.UserID, detail)
	require.NoError(t, err)
	assert.Equal(t, 160000, res.FineAmount)
	assert.Equal(t, models.PenaltyLost, res.PenaltyType)

	rec := f.loan(detail)
	assert.Equal(t, models.BorrowLost, rec.Status)
	title, err := f.mem.GetTitle(f.ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 1, title.TotalQuantity)

	_, err = f.svc.Returns.ReportLost(f.ctx, r.UserID, detail)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestReturnRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	owner := f.reader("frank", "standard")
	other := f.reader("grace", "standard")
	f.title("T1", "Dune", 1, "")
	detail := f.lend(owner, lib, "T1")[0]

	_, err := f.svc.Returns.RequestReturn(f.ctx, other.UserID, detail)
	se := requireStatus(t, err, http.StatusForbidden)
	assert.Equal(t, "This borrow detail does not belong to you", se.Detail)

	_, err = f.svc.Returns.ReportLost(f.ctx, other.UserID, detail)
	requireStatus(t, err, http.StatusForbidden)

	_, err = f.svc.Returns.RequestReturn(f.ctx, owner.UserID, "missing")
	requireStatus(t, err, http.StatusNotFound)
}

func TestCancelPenalty(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("heidi", "standard")
	f.title("T1", "Dune", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	dmg, err := f.svc.Returns.ReportDamage(f.ctx, r.UserID, detail, models.DamageReport{Description: "coffee"})
	require.NoError(t, err)

	res, err := f.svc.Penalties.Cancel(f.ctx, dmg.PenaltyID, "reader disputed")
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyCancelled, res.Status)

	p, err := f.mem.GetPenalty(f.ctx, dmg.PenaltyID)
	require.NoError(t, err)
	assert.Contains(t, p.Description, "Cancelled: reader disputed")
	assert.NotNil(t, p.ResolvedAt)

	_, err = f.svc.Penalties.Cancel(f.ctx, dmg.PenaltyID, "")
	se := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Penalty is already cancelled", se.Detail)

	_, err = f.svc.Penalties.Pay(f.ctx, dmg.PenaltyID)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Penalties.Pay(f.ctx, "PEN-MISSING")
	requireStatus(t, err, http.StatusNotFound)
}

func TestOverdueListing(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("ivan", "standard")
	f.title("T1", "Dune", 2, "")
	f.lend(r, lib, "T1")
	f.clock.Advance(days(2))
	f.lend(r, lib, "T1")

	f.clock.Advance(days(44))
	list, err := f.svc.Returns.Overdue(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.Items[0].DaysOverdue)
	assert.Equal(t, policy.LateRatePerDay, list.Items[0].FineAmount)
}

func TestRepeatReturnsAreEachNotified(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("frank", "standard")
	f.title("T1", "Dune", 1, "")

	for i := 0; i < 2; i++ {
		detail := f.lend(r, lib, "T1")[0]
		f.clock.Advance(days(3))
		_, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{})
		require.NoError(t, err)
	}

	confirmed := 0
	for _, msg := range f.push.For(r.UserID) {
		if msg == "Your return of 'Dune' was confirmed." {
			confirmed++
		}
	}
	assert.Equal(t, 2, confirmed)
}
