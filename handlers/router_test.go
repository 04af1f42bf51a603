package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vgnam/Library-Management-System-sub000/config"
	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/services"
	"github.com/vgnam/Library-Management-System-sub000/testutil"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

const prefix = "/api/v1"

type api struct {
	t   *testing.T
	srv http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zaptest.NewLogger(t)
	env := &services.Env{Store: testutil.NewMemStore(), Logger: logger, Loc: time.UTC}
	tokens := utils.NewTokenIssuer(config.AuthConfig{JWTSecret: "handler-secret", TokenTTL: time.Hour, Issuer: "test"})
	svc := services.New(env, tokens, "Main Library")
	_, err := services.Seed(context.Background(), env)
	require.NoError(t, err)

	return &api{t: t, srv: NewRouter(RouterConfig{
		Services:    svc,
		Tokens:      tokens,
		Logger:      logger,
		Prefix:      prefix,
		CORSOrigins: []string{"*"},
	})}
}

type reply struct {
	Code   int
	Header http.Header
	Body   []byte
}

// data decodes the envelope payload into v.
func (r reply) data(t *testing.T, v any) {
	t.Helper()
	var env struct {
		Code string          `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.Body, &env), string(r.Body))
	require.Equal(t, "000", env.Code)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func (r reply) detail(t *testing.T) string {
	t.Helper()
	var e ErrorBody
	require.NoError(t, json.Unmarshal(r.Body, &e), string(r.Body))
	return e.Detail
}

func (a *api) do(method, path, token string, body any) reply {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return reply{Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
}

func (a *api) form(path string, values url.Values) reply {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return reply{Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
}

func (a *api) login(role, username, password string) string {
	a.t.Helper()
	res := a.do(http.MethodPost, prefix+"/auth/"+role+"/login", "", models.LoginRequest{Username: username, Password: password})
	require.Equal(a.t, http.StatusOK, res.Code, string(res.Body))
	var out models.LoginResponse
	res.data(a.t, &out)
	return out.AccessToken
}

func (a *api) registerReader(username, readerType string) string {
	a.t.Helper()
	res := a.form(prefix+"/auth/reader/register", url.Values{
		"username":    {username},
		"email":       {username + "@example.com"},
		"password":    {"secret123"},
		"full_name":   {"Reader " + username},
		"reader_type": {readerType},
	})
	require.Equal(a.t, http.StatusCreated, res.Code, string(res.Body))
	return a.login("reader", username, "secret123")
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	res := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"code":"000","message":"OK","data":{"status":"ok"}}`, string(res.Body))
}

func TestFormLoginSetsCookie(t *testing.T) {
	a := newAPI(t)
	res := a.form(prefix+"/auth/librarian/login", url.Values{"username": {"librarian1"}, "password": {services.SeedPassword}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header.Get("Set-Cookie"), "token=")

	res = a.form(prefix+"/auth/manager/login", url.Values{"username": {"librarian1"}, "password": {services.SeedPassword}})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Account is not authorized as manager", res.detail(t))
}

func TestAuthErrors(t *testing.T) {
	a := newAPI(t)
	res := a.do(http.MethodGet, prefix+"/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	readerToken := a.registerReader("alice", "standard")
	res = a.do(http.MethodGet, prefix+"/manager/statistics", readerToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = a.do(http.MethodGet, prefix+"/auth/me", readerToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var me models.User
	res.data(t, &me)
	assert.Equal(t, "alice", me.Username)

	res = a.do(http.MethodGet, prefix+"/auth/options/reader-type", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = a.do(http.MethodGet, prefix+"/auth/options/colour", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestBorrowAndReturnFlow(t *testing.T) {
	a := newAPI(t)
	lib := a.login("librarian", "librarian1", services.SeedPassword)
	rd := a.registerReader("bob", "standard")

	res := a.do(http.MethodPost, prefix+"/acquisition/book-title/create", lib, models.BookTitleRequest{
		Name: "The Pragmatic Programmer", Author: "Hunt", ISBN: "978-0201616224", Price: 90000,
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	var title models.BookTitle
	res.data(t, &title)

	res = a.do(http.MethodPost, prefix+"/acquisition/create", lib, models.AcquisitionRequest{
		Books: []models.AcquisitionItem{{BookTitleID: title.ID, Quantity: 2}},
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	res = a.do(http.MethodGet, prefix+"/books/public/browse?keyword=pragmatic", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var page models.CatalogPage
	res.data(t, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 2, page.Books[0].Available)

	res = a.do(http.MethodGet, prefix+"/books/public/browse?page=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = a.do(http.MethodPost, prefix+"/books/borrow-request", rd, models.BorrowRequest{BookTitleIDs: []string{title.ID}})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	var borrowed models.BorrowRequestResult
	res.data(t, &borrowed)

	res = a.do(http.MethodPut, prefix+"/books/borrow-request/"+borrowed.BorrowSlipID+"/approve", rd, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = a.do(http.MethodPut, prefix+"/books/borrow-request/"+borrowed.BorrowSlipID+"/approve", lib, nil)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	res = a.do(http.MethodPut, prefix+"/books/borrow-request/"+borrowed.BorrowSlipID+"/reject", lib, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = a.do(http.MethodGet, prefix+"/history/current", rd, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var current models.LoanList
	res.data(t, &current)
	require.Equal(t, 1, current.Total)
	detailID := current.Items[0].BorrowDetailID

	res = a.do(http.MethodPost, prefix+"/returns/request/"+detailID, rd, nil)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	res = a.do(http.MethodPost, prefix+"/returns/"+detailID+"/confirm", rd, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = a.do(http.MethodPost, prefix+"/returns/"+detailID+"/shred", lib, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = a.do(http.MethodPost, prefix+"/returns/"+detailID+"/confirm", lib, models.ReturnConfirmRequest{})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	res = a.do(http.MethodGet, prefix+"/history/returned", rd, nil)
	var returned models.LoanList
	res.data(t, &returned)
	assert.Equal(t, 1, returned.Total)

	res = a.do(http.MethodGet, prefix+"/notifications", rd, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var inbox []models.Notification
	res.data(t, &inbox)
	require.NotEmpty(t, inbox)

	res = a.do(http.MethodPut, prefix+"/notifications/abc/read", rd, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = a.do(http.MethodPut, prefix+"/notifications/"+strconv.Itoa(inbox[0].ID)+"/read", lib, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = a.do(http.MethodPut, prefix+"/notifications/"+strconv.Itoa(inbox[0].ID)+"/read", rd, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestLibrarianAndManagerRoutes(t *testing.T) {
	a := newAPI(t)
	lib := a.login("librarian", "librarian1", services.SeedPassword)
	mgr := a.login("manager", "manager", services.SeedPassword)
	a.registerReader("carol", "vip")

	res := a.do(http.MethodGet, prefix+"/librarian/users/search/car", lib, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var hits []models.UserSearchHit
	res.data(t, &hits)
	require.Len(t, hits, 1)

	res = a.do(http.MethodGet, prefix+"/librarian/users/"+hits[0].UserID+"/current-borrows", lib, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = a.do(http.MethodGet, prefix+"/librarian/users/"+hits[0].UserID+"/borrow-history?page_size=5", lib, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = a.do(http.MethodGet, prefix+"/librarian/users/"+hits[0].UserID+"/nope", lib, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = a.do(http.MethodPost, prefix+"/librarian/users/"+hits[0].UserID+"/suspend?reason=audit", lib, nil)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	var change models.CardChange
	res.data(t, &change)
	assert.Equal(t, models.CardSuspended, change.NewStatus)
	assert.Equal(t, "audit", change.Reason)

	res = a.do(http.MethodGet, prefix+"/librarian/readers?status_filter=suspended", lib, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var readers models.ReaderList
	res.data(t, &readers)
	assert.Equal(t, 1, readers.Total)

	res = a.do(http.MethodGet, prefix+"/manager/statistics", mgr, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var st models.SystemStats
	res.data(t, &st)
	assert.Equal(t, 4, st.Users.TotalLibrarians)
	assert.Equal(t, 1, st.Cards.Suspended)

	res = a.do(http.MethodPost, prefix+"/manager/librarians/create", mgr, models.CreateLibrarianRequest{
		Username: "newlib", Password: "secret123", FullName: "New Librarian", Email: "newlib@library.test",
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	var acc models.LibrarianAccount
	res.data(t, &acc)

	res = a.do(http.MethodDelete, prefix+"/manager/librarians/"+acc.ID, mgr, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = a.do(http.MethodDelete, prefix+"/manager/librarians/"+acc.ID, mgr, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Librarian with ID '"+acc.ID+"' not found", res.detail(t))

	res = a.do(http.MethodPost, prefix+"/manager/penalties/auto-create", mgr, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestDeletedLibrarianTokenIsRejected(t *testing.T) {
	a := newAPI(t)
	mgr := a.login("manager", "manager", services.SeedPassword)

	res := a.do(http.MethodPost, prefix+"/manager/librarians/create", mgr, models.CreateLibrarianRequest{
		Username: "templib", Password: "secret123", FullName: "Temp Librarian", Email: "templib@library.test",
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	var acc models.LibrarianAccount
	res.data(t, &acc)

	lib := a.login("librarian", "templib", "secret123")
	res = a.do(http.MethodGet, prefix+"/books/borrow-requests", lib, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = a.do(http.MethodDelete, prefix+"/manager/librarians/"+acc.ID, mgr, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = a.do(http.MethodGet, prefix+"/books/borrow-requests", lib, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Could not validate credentials", res.detail(t))
}
