package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
)

func TestAutoCreateLateKeepsOnePenaltyInStep(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("alice", "standard")
	f.title("T1", "Dune", 2, "")
	detail := f.lend(r, lib, "T1")[0]
	f.lend(r, lib, "T1")

	rep, err := f.svc.Penalties.AutoCreateLate(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Created)

	f.clock.Advance(days(45 + 3))
	rep, err = f.svc.Penalties.AutoCreateLate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Checked)
	assert.Equal(t, 2, rep.Created)

	f.clock.Advance(days(2))
	rep, err = f.svc.Penalties.AutoCreateLate(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Created)
	assert.Equal(t, 2, rep.Updated)

	list, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "pending")
	require.NoError(t, err)
	require.Equal(t, 2, list.Total)
	for _, p := range list.Penalties {
		assert.Equal(t, policy.LateFine(5), p.FineAmount)
	}

	res, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{})
	require.NoError(t, err)
	assert.Equal(t, policy.LateFine(5), res.FineAmount)

	all, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total, "confirming a return reuses the synced penalty")
}

func TestPaidLateFineDoesNotStopTheClock(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("bob", "standard")
	f.title("T1", "Dune", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	f.clock.Advance(days(45 + 10))
	_, err := f.svc.Penalties.AutoCreateLate(f.ctx)
	require.NoError(t, err)
	list, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "")
	require.NoError(t, err)
	require.Len(t, list.Penalties, 1)
	early := list.Penalties[0].ID
	_, err = f.svc.Penalties.Pay(f.ctx, early)
	require.NoError(t, err)

	// nothing more is owed on the same day
	rep, err := f.svc.Penalties.AutoCreateLate(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Created)
	assert.Zero(t, rep.Updated)

	f.clock.Advance(days(30))
	res, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, detail, models.ReturnConfirmRequest{})
	require.NoError(t, err)
	assert.Equal(t, 40, res.DaysOverdue)
	assert.Equal(t, policy.LateFine(40), res.FineAmount)
	assert.NotEqual(t, early, res.PenaltyID)
	assert.Equal(t, "Pending", res.PenaltyStatus)

	all, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "")
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)
	billed := 0
	for _, p := range all.Penalties {
		billed += p.FineAmount
	}
	assert.Equal(t, policy.LateFine(40), billed)
	assert.Equal(t, policy.LateFine(40)-policy.LateFine(10), all.UnpaidAmount)

	p, err := f.mem.GetPenalty(f.ctx, early)
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyPaid, p.Status)
	assert.Equal(t, policy.LateFine(10), p.FineAmount)
}

func TestReaderPenaltiesRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	r := f.reader("carol", "standard")
	_, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "overdue")
	requireStatus(t, err, http.StatusBadRequest)

	list, err := f.svc.Penalties.ReaderPenalties(f.ctx, r.UserID, "")
	require.NoError(t, err)
	assert.Empty(t, list.Penalties)
	assert.NotNil(t, list.Penalties)
}
