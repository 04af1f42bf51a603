package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	lib := f.librarian("lib1")
	a := f.reader("alice", "standard")
	b := f.reader("bob", "vip")
	f.title("T1", "Dune", 5, "")

	returned := f.lend(a, lib, "T1")[0]
	f.lend(b, lib, "T1", "T1")
	f.request(a.UserID, "T1")
	_, err := f.svc.Returns.ConfirmReturn(f.ctx, lib, returned, models.ReturnConfirmRequest{})
	require.NoError(t, err)

	st, err := f.svc.Manager.Statistics(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Cards.TotalIssued)
	assert.Equal(t, 2, st.Cards.Active)
	assert.Equal(t, 2, st.Users.TotalReaders)
	assert.Equal(t, 1, st.Users.TotalLibrarians)
	assert.Equal(t, 4, st.Borrowing.TotalBorrows)
	assert.Equal(t, 2, st.Borrowing.ActiveBorrows)
	assert.Equal(t, 1, st.Borrowing.ReturnedBorrows)
	assert.Equal(t, 25.0, st.Borrowing.ReturnRate)
	assert.Equal(t, 3, st.Trends.RecentBorrows30Days)
	assert.Equal(t, 0.1, st.Trends.AvgBorrowsPerDay)

	f.clock.Advance(days(60 + 31))
	_, err = f.svc.Infractions.CheckAll(f.ctx)
	require.NoError(t, err)
	st, err = f.svc.Manager.Statistics(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cards.Blocked)
	assert.Equal(t, 1, st.Infractions.ReadersWithInfractions)
	assert.Equal(t, 1.0, st.Infractions.AveragePerReader)
	assert.Zero(t, st.Trends.RecentBorrows30Days)
}

func TestLibrarianAccounts(t *testing.T) {
	f := newFixture(t)
	acc, err := f.svc.Manager.CreateLibrarian(f.ctx, models.CreateLibrarianRequest{
		Username: "mai", Password: "secret123", FullName: "Nguyen Thi Mai", Email: "mai@library.test", YearsOfExperience: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, acc.YearsOfExperience)

	_, err = f.svc.Manager.CreateLibrarian(f.ctx, models.CreateLibrarianRequest{
		Username: "mai", Password: "secret123", FullName: "Other", Email: "x@library.test",
	})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Auth.Login(f.ctx, models.RoleLibrarian, models.LoginRequest{Username: "mai", Password: "secret123"})
	require.NoError(t, err)

	libs, err := f.svc.Manager.Librarians(f.ctx)
	require.NoError(t, err)
	require.Len(t, libs, 1)
	assert.Equal(t, "mai", libs[0].Username)

	deleted, err := f.svc.Manager.DeleteLibrarian(f.ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "mai", deleted.Username)

	_, err = f.svc.Manager.DeleteLibrarian(f.ctx, acc.ID)
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.svc.Auth.Login(f.ctx, models.RoleLibrarian, models.LoginRequest{Username: "mai", Password: "secret123"})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	rep, err := Seed(f.ctx, f.svc.Env)
	require.NoError(t, err)
	assert.Equal(t, len(seedLibrarians), rep.Librarians)
	assert.Equal(t, 1, rep.Managers)
	assert.Equal(t, len(seedCategories), rep.Categories)

	rep, err = Seed(f.ctx, f.svc.Env)
	require.NoError(t, err)
	assert.Zero(t, rep.Librarians)
	assert.Zero(t, rep.Managers)
	assert.Zero(t, rep.Publishers)

	_, err = f.svc.Auth.Login(f.ctx, models.RoleManager, models.LoginRequest{Username: "manager", Password: SeedPassword})
	require.NoError(t, err)
}
