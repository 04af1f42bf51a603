package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func TestInfractionAfterGracePeriod(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("alice", "standard")
	f.title("T1", "Dune", 1, "")
	detail := f.lend(r, lib, "T1")[0]

	f.clock.Advance(days(45 + 5))
	rep, err := f.svc.Infractions.CheckAll(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.InfractionsAdded)
	assert.Equal(t, models.BorrowActive, f.loan(detail).Status)

	f.clock.Advance(days(1))
	rep, err = f.svc.Infractions.CheckAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.InfractionsAdded)
	assert.Equal(t, 1, rep.ReadersAffected)
	assert.Zero(t, rep.CardsBlocked)
	assert.Equal(t, models.BorrowOverdue, f.loan(detail).Status)

	card := f.card(r)
	assert.Equal(t, 1, card.InfractionCount)
	assert.Equal(t, models.CardActive, card.Status)
	assert.NotEmpty(t, f.push.For(r.UserID))

	rep, err = f.svc.Infractions.CheckAll(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.InfractionsAdded, "an Overdue detail is counted once")
}

func TestBlockAfterThirtyDays(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("bob", "standard")
	f.title("T1", "Dune", 2, "")
	f.lend(r, lib, "T1")

	f.clock.Advance(days(45 + 30))
	rep, err := f.svc.Infractions.CheckReader(f.ctx, r.ReaderID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.InfractionsAdded)
	assert.Equal(t, 1, rep.CardsBlocked)
	require.Len(t, rep.BlockReasons, 1)
	assert.Contains(t, rep.BlockReasons[0], "30 days late")
	assert.Equal(t, models.CardBlocked, f.card(r).Status)

	_, err = f.svc.Borrow.Request(f.ctx, r.UserID, models.BorrowRequest{BookTitleIDs: []string{"T1"}})
	requireStatus(t, err, http.StatusForbidden)

	change, err := f.svc.Librarian.RemoveBan(f.ctx, r.UserID, "paid in person")
	require.NoError(t, err)
	assert.Equal(t, models.CardBlocked, change.OldStatus)
	assert.Equal(t, models.CardActive, change.NewStatus)
	card := f.card(r)
	assert.Equal(t, models.CardActive, card.Status)
	assert.Zero(t, card.InfractionCount)

	_, err = f.svc.Librarian.RemoveBan(f.ctx, r.UserID, "")
	requireStatus(t, err, http.StatusBadRequest)
}

func TestBlockOnThirdInfraction(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("carol", "standard")
	f.title("T1", "Dune", 1, "")
	f.title("T2", "Emma", 1, "")
	f.title("T3", "Ulysses", 1, "")
	f.lend(r, lib, "T1", "T2", "T3")

	f.clock.Advance(days(45 + 6))
	rep, err := f.svc.Infractions.CheckAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.InfractionsAdded)
	assert.Equal(t, 1, rep.CardsBlocked)
	assert.Equal(t, []string{"Accumulated 3 infractions"}, rep.BlockReasons)

	card := f.card(r)
	assert.Equal(t, 3, card.InfractionCount)
	assert.Equal(t, models.CardBlocked, card.Status)
}

func TestReaderEndpointsRunInfractionCheck(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	r := f.reader("dave", "standard")
	f.title("T1", "Dune", 1, "")
	f.lend(r, lib, "T1")

	f.clock.Advance(days(45 + 31))
	status, err := f.svc.Catalog.ReaderStatus(f.ctx, r.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.CardBlocked, status.CardStatus)
	assert.Equal(t, 1, status.InfractionCount)
	assert.Equal(t, 1, status.OverdueCount)
	assert.False(t, status.CanBorrowMore)
}
