package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/middleware"
	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/services"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

// RouterConfig holds what NewRouter wires together. Hub may be nil, which
// disables the websocket endpoint.
type RouterConfig struct {
	Services     *services.Services
	Tokens       *utils.TokenIssuer
	Hub          *utils.Hub
	Logger       *zap.Logger
	Prefix       string
	CORSOrigins  []string
	SecureCookie bool
}

type chain func(http.Handler) http.Handler

func (c chain) fn(h http.HandlerFunc) http.Handler { return c(h) }

func then(outer, inner func(http.Handler) http.Handler) chain {
	return func(h http.Handler) http.Handler { return outer(inner(h)) }
}

// NewRouter builds the full HTTP surface under cfg.Prefix.
func NewRouter(cfg RouterConfig) http.Handler {
	b := base{svc: cfg.Services, logger: cfg.Logger}
	authH := &AuthHandler{base: b, secureCookie: cfg.SecureCookie}
	bookH := &BookHandler{base: b}
	loanH := &LoanHandler{base: b}
	acqH := &AcquisitionHandler{base: b}
	libH := &LibrarianHandler{base: b}
	mgrH := &ManagerHandler{base: b}
	notifH := &NotificationHandler{base: b, hub: cfg.Hub}

	authed := chain(middleware.Authenticate(cfg.Tokens, cfg.Services.Env.Store, cfg.Logger))
	reader := then(authed, middleware.RequireRole(models.RoleReader))
	librarian := then(authed, middleware.RequireRole(models.RoleLibrarian))
	manager := then(authed, middleware.RequireRole(models.RoleManager))

	p := cfg.Prefix
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]string{"status": "ok"})
	})

	// auth
	mux.HandleFunc("POST "+p+"/auth/reader/login", authH.Login(models.RoleReader))
	mux.HandleFunc("POST "+p+"/auth/librarian/login", authH.Login(models.RoleLibrarian))
	mux.HandleFunc("POST "+p+"/auth/manager/login", authH.Login(models.RoleManager))
	mux.Handle("POST "+p+"/auth/logout", authed.fn(authH.Logout))
	mux.Handle("GET "+p+"/auth/me", authed.fn(authH.Me))
	mux.HandleFunc("POST "+p+"/auth/reader/register", authH.Register)
	mux.HandleFunc("GET "+p+"/auth/options/{kind}", authH.Options)

	// catalog and borrowing
	mux.HandleFunc("GET "+p+"/books/public/browse", bookH.PublicBrowse)
	mux.HandleFunc("GET "+p+"/books/public/categories", bookH.Categories)
	mux.Handle("GET "+p+"/books/search", reader.fn(bookH.Search))
	mux.Handle("GET "+p+"/books/titles/{id}", authed.fn(bookH.Title))
	mux.Handle("GET "+p+"/books/reader-status", reader.fn(bookH.ReaderStatus))
	mux.Handle("POST "+p+"/books/borrow-request", reader.fn(bookH.RequestBorrow))
	mux.Handle("DELETE "+p+"/books/borrow-request/{id}/cancel", reader.fn(bookH.CancelBorrow))
	mux.Handle("GET "+p+"/books/borrow-requests", librarian.fn(bookH.BorrowRequests))
	mux.Handle("PUT "+p+"/books/borrow-request/{id}/approve", librarian.fn(bookH.Approve))
	mux.Handle("PUT "+p+"/books/borrow-request/{id}/reject", librarian.fn(bookH.Reject))

	// history
	mux.Handle("GET "+p+"/history", reader.fn(loanH.History))
	mux.Handle("GET "+p+"/history/current", reader.fn(loanH.Current))
	mux.Handle("GET "+p+"/history/overdue", reader.fn(loanH.Overdue))
	mux.Handle("GET "+p+"/history/returned", reader.fn(loanH.Returned))

	// returns and penalties
	returnActions := map[string]http.Handler{
		"confirm":       librarian.fn(loanH.ConfirmReturn),
		"report-damage": reader.fn(loanH.ReportDamage),
		"report-lost":   reader.fn(loanH.ReportLost),
	}
	mux.Handle("POST "+p+"/returns/request/{detail_id}", reader.fn(loanH.RequestReturn))
	mux.HandleFunc("POST "+p+"/returns/{detail_id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		h, found := returnActions[r.PathValue("action")]
		if !found {
			writeJSON(w, http.StatusNotFound, ErrorBody{Detail: "Not Found"})
			return
		}
		h.ServeHTTP(w, r)
	})
	mux.Handle("GET "+p+"/returns/pending", librarian.fn(loanH.PendingReturns))
	mux.Handle("GET "+p+"/returns/overdue", librarian.fn(loanH.OverdueLoans))
	mux.Handle("GET "+p+"/returns/penalties", reader.fn(loanH.Penalties))
	mux.Handle("POST "+p+"/returns/penalties/{id}/pay", librarian.fn(loanH.PayPenalty))
	mux.Handle("POST "+p+"/returns/penalties/{id}/cancel", librarian.fn(loanH.CancelPenalty))

	// acquisition and title management
	mux.Handle("POST "+p+"/acquisition/create", librarian.fn(acqH.Create))
	mux.Handle("GET "+p+"/acquisition/history", librarian.fn(acqH.History))
	mux.Handle("GET "+p+"/acquisition/detail/{acq_id}", librarian.fn(acqH.Detail))
	mux.Handle("GET "+p+"/acquisition/publishers", librarian.fn(acqH.Publishers))
	mux.Handle("POST "+p+"/acquisition/publishers", librarian.fn(acqH.CreatePublisher))
	mux.Handle("GET "+p+"/acquisition/categories", librarian.fn(acqH.Categories))
	mux.Handle("POST "+p+"/acquisition/categories", librarian.fn(acqH.CreateCategory))
	mux.Handle("POST "+p+"/acquisition/book-title/create", librarian.fn(acqH.CreateTitle))
	mux.Handle("PUT "+p+"/acquisition/book-title/{id}", librarian.fn(acqH.UpdateTitle))
	mux.Handle("DELETE "+p+"/acquisition/book-title/{id}", librarian.fn(acqH.DeleteTitle))
	mux.Handle("GET "+p+"/acquisition/book-title/{id}/copies", librarian.fn(acqH.Copies))
	mux.Handle("DELETE "+p+"/acquisition/copies/{book_id}", librarian.fn(acqH.DeleteCopy))

	// reader management
	mux.Handle("GET "+p+"/librarian/readers", librarian.fn(libH.Readers))
	mux.Handle("GET "+p+"/librarian/readers/issues", librarian.fn(libH.Issues))
	mux.Handle("GET "+p+"/librarian/users/{id}", librarian.fn(libH.UserDetail))
	mux.Handle("GET "+p+"/librarian/users/{id}/{view}", librarian.fn(libH.UserView))
	mux.Handle("GET "+p+"/librarian/users/search/{username}", librarian.fn(libH.SearchUsers))
	mux.Handle("POST "+p+"/librarian/users/{id}/remove-ban", librarian.fn(libH.RemoveBan))
	mux.Handle("POST "+p+"/librarian/users/{id}/suspend", librarian.fn(libH.Suspend))
	mux.Handle("GET "+p+"/librarian/statistics/summary", librarian.fn(libH.Summary))
	mux.Handle("GET "+p+"/librarian/statistics/top-readers", librarian.fn(libH.TopReaders))
	mux.Handle("POST "+p+"/librarian/infractions/check", librarian.fn(libH.CheckInfractions))

	// manager
	mux.Handle("GET "+p+"/manager/statistics", manager.fn(mgrH.Statistics))
	mux.Handle("GET "+p+"/manager/librarians", manager.fn(mgrH.Librarians))
	mux.Handle("POST "+p+"/manager/librarians/create", manager.fn(mgrH.CreateLibrarian))
	mux.Handle("DELETE "+p+"/manager/librarians/{lib_id}", manager.fn(mgrH.DeleteLibrarian))
	mux.Handle("POST "+p+"/manager/penalties/auto-create", manager.fn(mgrH.AutoCreatePenalties))

	// notifications
	mux.Handle("GET "+p+"/notifications", authed.fn(notifH.List))
	mux.Handle("PUT "+p+"/notifications/{id}/read", authed.fn(notifH.MarkRead))
	mux.Handle("DELETE "+p+"/notifications/{id}", authed.fn(notifH.Delete))
	mux.Handle("GET "+p+"/notifications/ws", authed.fn(notifH.Live))

	var h http.Handler = mux
	h = middleware.Recover(cfg.Logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.Logging(cfg.Logger)(h)
	return h
}
