package handlers

import (
	"net/http"
)

// LibrarianHandler serves reader management for librarians.
type LibrarianHandler struct {
	base
}

type cardActionRequest struct {
	Reason string `json:"reason"`
}

func (h *LibrarianHandler) Readers(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	q := r.URL.Query()
	res, err := h.svc.Librarian.Readers(r.Context(), q.Get("status_filter"), q.Get("q"), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Librarian.UserDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

// UserView serves /users/{id}/{view}; one pattern keeps it apart from
// /users/search/{username}.
func (h *LibrarianHandler) UserView(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("view") {
	case "current-borrows":
		h.currentBorrows(w, r)
	case "borrow-history":
		h.borrowHistory(w, r)
	default:
		writeJSON(w, http.StatusNotFound, ErrorBody{Detail: "Not Found"})
	}
}

func (h *LibrarianHandler) currentBorrows(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Librarian.CurrentBorrows(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) borrowHistory(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 1)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	size, err := intQuery(r, "page_size", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.svc.Librarian.BorrowHistory(r.Context(), r.PathValue("id"), r.URL.Query().Get("status"), page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Librarian.SearchUsers(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

// reason comes from the JSON body or the query string.
func reason(r *http.Request) (string, error) {
	var req cardActionRequest
	if err := decode(r, &req); err != nil {
		return "", err
	}
	if req.Reason == "" {
		req.Reason = r.URL.Query().Get("reason")
	}
	return req.Reason, nil
}

func (h *LibrarianHandler) RemoveBan(w http.ResponseWriter, r *http.Request) {
	why, err := reason(r)
	if err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	res, err := h.svc.Librarian.RemoveBan(r.Context(), r.PathValue("id"), why)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	why, err := reason(r)
	if err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	res, err := h.svc.Librarian.Suspend(r.Context(), r.PathValue("id"), why)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) Summary(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Librarian.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) TopReaders(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.svc.Librarian.TopReaders(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) Issues(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Librarian.Issues(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LibrarianHandler) CheckInfractions(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Librarian.CheckInfractions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}
