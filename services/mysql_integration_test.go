package services

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vgnam/Library-Management-System-sub000/config"
	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

// Set LIBRARY_MYSQL_TEST=1 plus DB_HOST, DB_PORT, DB_USER, DB_PASS and
// DB_NAME to run these against a scratch MySQL database. Every table is
// truncated first.
const mysqlTestEnv = "LIBRARY_MYSQL_TEST"

var mysqlTables = []string{
	"notifications", "penalty_slips", "borrow_slip_details", "borrow_slips",
	"acquisition_slip_details", "acquisition_slips", "books", "book_titles",
	"categories", "publishers", "reading_cards", "readers", "librarians", "managers", "users",
}

func truncateAll(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlx.Open("mysql", cfg.DSN())
	require.NoError(t, err)
	defer db.Close()

	conn, err := db.Connx(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	require.NoError(t, err)
	for _, table := range mysqlTables {
		_, err = conn.ExecContext(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err, table)
	}
	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	require.NoError(t, err)
}

type mysqlFixture struct {
	ctx   context.Context
	st    *store.MySQLStore
	clock *clock
	svc   *Services
}

func newMySQLFixture(t *testing.T) *mysqlFixture {
	t.Helper()
	if os.Getenv(mysqlTestEnv) == "" {
		t.Skipf("%s not set", mysqlTestEnv)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	ctx := context.Background()
	st, err := store.NewMySQLStore(ctx, cfg.Database, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.InitSchema(ctx))
	truncateAll(t, cfg.Database)

	// whole seconds, as DATETIME stores them
	c := &clock{now: time.Now().UTC().Truncate(time.Second)}
	env := &Env{Store: st, Logger: zaptest.NewLogger(t), Loc: time.UTC, Now: c.Now}
	tokens := utils.NewTokenIssuer(config.AuthConfig{JWTSecret: "mysql-test", TokenTTL: time.Hour, Issuer: "test"})
	_, err = Seed(ctx, env)
	require.NoError(t, err)
	return &mysqlFixture{ctx: ctx, st: st, clock: c, svc: New(env, tokens, "Main Library")}
}

func (f *mysqlFixture) detailOf(t *testing.T, readerID, slipID string) string {
	t.Helper()
	loans, _, err := f.st.ListLoans(f.ctx, store.LoanFilter{ReaderID: readerID})
	require.NoError(t, err)
	for _, l := range loans {
		if l.SlipID == slipID {
			return l.DetailID
		}
	}
	t.Fatalf("no loan on slip %s", slipID)
	return ""
}

func TestMySQLBorrowReturnAndLost(t *testing.T) {
	f := newMySQLFixture(t)
	ctx := f.ctx

	lib, err := f.svc.Auth.Login(ctx, models.RoleLibrarian, models.LoginRequest{Username: "librarian1", Password: SeedPassword})
	require.NoError(t, err)
	libUser := lib.User.UserID

	alice, err := f.svc.Auth.Register(ctx, models.RegisterRequest{
		Username: "Alice_Reader", Email: "alice@example.com", Password: "secret123", FullName: "Alice Reader",
	})
	require.NoError(t, err)
	bob, err := f.svc.Auth.Register(ctx, models.RegisterRequest{
		Username: "bob_reader", Email: "bob@example.com", Password: "secret123", FullName: "Bob Reader",
	})
	require.NoError(t, err)
	carol, err := f.svc.Auth.Register(ctx, models.RegisterRequest{
		Username: "carol_reader", Email: "carol@example.com", Password: "secret123", FullName: "Carol Reader",
	})
	require.NoError(t, err)

	title, err := f.svc.Acquisition.CreateTitle(ctx, models.BookTitleRequest{Name: "Dune", ISBN: "9780441013593", Price: 100000})
	require.NoError(t, err)
	_, err = f.svc.Acquisition.Create(ctx, libUser, models.AcquisitionRequest{
		Books: []models.AcquisitionItem{{BookTitleID: title.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// each pending request reserves its own copy
	ra, err := f.svc.Borrow.Request(ctx, alice.UserID, models.BorrowRequest{BookTitleIDs: []string{title.ID}})
	require.NoError(t, err)
	rb, err := f.svc.Borrow.Request(ctx, bob.UserID, models.BorrowRequest{BookTitleIDs: []string{title.ID}})
	require.NoError(t, err)
	require.Len(t, ra.AssignedBooks, 1)
	require.Len(t, rb.AssignedBooks, 1)
	assert.NotEqual(t, ra.AssignedBooks[0], rb.AssignedBooks[0])

	_, err = f.svc.Borrow.Request(ctx, carol.UserID, models.BorrowRequest{BookTitleIDs: []string{title.ID}})
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.svc.Borrow.Approve(ctx, libUser, ra.BorrowSlipID)
	require.NoError(t, err)
	_, err = f.svc.Borrow.Approve(ctx, libUser, rb.BorrowSlipID)
	require.NoError(t, err)
	_, err = f.svc.Borrow.Approve(ctx, libUser, rb.BorrowSlipID)
	requireStatus(t, err, http.StatusBadRequest)

	aliceDetail := f.detailOf(t, alice.ReaderID, ra.BorrowSlipID)
	bobDetail := f.detailOf(t, bob.ReaderID, rb.BorrowSlipID)

	f.clock.Advance(days(45 + 10))
	rep, err := f.svc.Infractions.CheckAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.InfractionsAdded)

	late, err := f.svc.Penalties.AutoCreateLate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, late.Created)
	list, err := f.svc.Penalties.ReaderPenalties(ctx, alice.UserID, "pending")
	require.NoError(t, err)
	require.Len(t, list.Penalties, 1)
	_, err = f.svc.Penalties.Pay(ctx, list.Penalties[0].ID)
	require.NoError(t, err)

	f.clock.Advance(days(5))
	res, err := f.svc.Returns.ConfirmReturn(ctx, libUser, aliceDetail, models.ReturnConfirmRequest{})
	require.NoError(t, err)
	assert.True(t, res.SlipCompleted)
	assert.Equal(t, 15, res.DaysOverdue)
	assert.Equal(t, policy.LateFine(15), res.FineAmount)
	all, err := f.svc.Penalties.ReaderPenalties(ctx, alice.UserID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, policy.LateFine(15)-policy.LateFine(10), all.UnpaidAmount)

	lost, err := f.svc.Returns.ReportLost(ctx, bob.UserID, bobDetail)
	require.NoError(t, err)
	assert.Equal(t, 200000, lost.FineAmount)
	got, err := f.st.GetTitle(ctx, title.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalQuantity)
	assert.Equal(t, 1, got.Available)

	hits, err := f.svc.Librarian.SearchUsers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Alice_Reader", hits[0].Username)

	readers, err := f.svc.Librarian.Readers(ctx, "", "ALICE", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, readers.Total)

	none, err := f.svc.Librarian.SearchUsers(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMySQLNotificationKeys(t *testing.T) {
	f := newMySQLFixture(t)
	reg, err := f.svc.Auth.Register(f.ctx, models.RegisterRequest{
		Username: "dave_reader", Email: "dave@example.com", Password: "secret123", FullName: "Dave Reader",
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		created, err := f.st.CreateNotification(f.ctx, reg.UserID, "", "Your return of 'Dune' was confirmed.")
		require.NoError(t, err)
		assert.True(t, created)
	}
	created, err := f.st.CreateNotification(f.ctx, reg.UserID, "due:D1", "due tomorrow")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = f.st.CreateNotification(f.ctx, reg.UserID, "due:D1", "due tomorrow")
	require.NoError(t, err)
	assert.False(t, created)

	list, err := f.svc.Notifications.List(f.ctx, reg.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
