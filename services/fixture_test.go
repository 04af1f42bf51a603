package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vgnam/Library-Management-System-sub000/config"
	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/testutil"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

var epoch = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

// recorder captures live pushes per user.
type recorder struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (r *recorder) Send(userID, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[userID] = append(r.sent[userID], content)
}

func (r *recorder) For(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[userID]...)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	mem   *testutil.MemStore
	clock *clock
	push  *recorder
	svc   *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := testutil.NewMemStore()
	c := &clock{now: epoch}
	mem.Now = c.Now
	push := &recorder{sent: map[string][]string{}}
	env := &Env{Store: mem, Logger: zaptest.NewLogger(t), Loc: time.UTC, Now: c.Now, Push: push}
	tokens := utils.NewTokenIssuer(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Issuer: "test"})
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		mem:   mem,
		clock: c,
		push:  push,
		svc:   New(env, tokens, "Main Library"),
	}
}

type account struct {
	UserID   string
	ReaderID string
	CardID   string
}

func (f *fixture) reader(username string, readerType string) account {
	f.t.Helper()
	res, err := f.svc.Auth.Register(f.ctx, models.RegisterRequest{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "secret123",
		FullName:   "Reader " + username,
		ReaderType: readerType,
	})
	require.NoError(f.t, err)
	return account{UserID: res.UserID, ReaderID: res.ReaderID, CardID: res.CardID}
}

// librarian returns the user id of a new librarian account.
func (f *fixture) librarian(username string) string {
	f.t.Helper()
	acc, err := f.svc.Manager.CreateLibrarian(f.ctx, models.CreateLibrarianRequest{
		Username: username,
		Password: "secret123",
		FullName: "Librarian " + username,
		Email:    username + "@library.test",
	})
	require.NoError(f.t, err)
	return acc.UserID
}

func (f *fixture) category(name string) string {
	f.t.Helper()
	c, err := f.svc.Acquisition.CreateCategory(f.ctx, CategoryRequest{Name: name})
	require.NoError(f.t, err)
	return c.ID
}

// title stores a title with n copies and returns its id.
func (f *fixture) title(id, name string, n int, categoryID string) string {
	f.t.Helper()
	t := models.BookTitle{ID: id, Name: name, Author: "Author of " + name, ISBN: "ISBN-" + id, Price: 80000}
	if categoryID != "" {
		t.CategoryID = &categoryID
	}
	f.mem.AddTitle(t, n)
	return id
}

func (f *fixture) request(userID string, titleIDs ...string) *models.BorrowRequestResult {
	f.t.Helper()
	res, err := f.svc.Borrow.Request(f.ctx, userID, models.BorrowRequest{BookTitleIDs: titleIDs})
	require.NoError(f.t, err)
	return res
}

// lend requests and approves the titles and returns the detail ids in
// request order.
func (f *fixture) lend(r account, libUserID string, titleIDs ...string) []string {
	f.t.Helper()
	res := f.request(r.UserID, titleIDs...)
	_, err := f.svc.Borrow.Approve(f.ctx, libUserID, res.BorrowSlipID)
	require.NoError(f.t, err)

	byBook := map[string]string{}
	loans, _, err := f.mem.ListLoans(f.ctx, store.LoanFilter{ReaderID: r.ReaderID})
	require.NoError(f.t, err)
	for _, l := range loans {
		if l.SlipID == res.BorrowSlipID {
			byBook[l.BookID] = l.DetailID
		}
	}
	ids := make([]string, len(res.AssignedBooks))
	for i, b := range res.AssignedBooks {
		ids[i] = byBook[b]
	}
	return ids
}

func (f *fixture) card(r account) *models.ReadingCard {
	f.t.Helper()
	c, err := f.mem.GetCard(f.ctx, r.ReaderID)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) loan(detailID string) *models.LoanRecord {
	f.t.Helper()
	l, err := f.mem.GetLoan(f.ctx, detailID)
	require.NoError(f.t, err)
	return l
}

// requireStatus asserts err is a client error with the given status.
func requireStatus(t *testing.T, err error, status int) *Error {
	t.Helper()
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, status, se.Status, se.Detail)
	return se
}
