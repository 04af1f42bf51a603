package handlers

import (
	"net/http"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/services"
)

// BookHandler serves the catalog and the borrow request workflow.
type BookHandler struct {
	base
}

func (h *BookHandler) browseQuery(r *http.Request) (services.BrowseQuery, error) {
	q := r.URL.Query()
	page, err := intQuery(r, "page", 1)
	if err != nil {
		return services.BrowseQuery{}, err
	}
	size, err := intQuery(r, "page_size", 0)
	if err != nil {
		return services.BrowseQuery{}, err
	}
	return services.BrowseQuery{
		Keyword:   q.Get("keyword"),
		Category:  q.Get("category"),
		Publisher: q.Get("publisher"),
		Page:      page,
		PageSize:  size,
	}, nil
}

func (h *BookHandler) browse(w http.ResponseWriter, r *http.Request, maxSize int) {
	q, err := h.browseQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	page, err := h.svc.Catalog.Browse(r.Context(), q, maxSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, page)
}

// PublicBrowse needs no login.
func (h *BookHandler) PublicBrowse(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, services.MaxBrowseSize)
}

func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.browse(w, r, services.MaxSearchSize)
}

func (h *BookHandler) Categories(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Catalog.CategoryNames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, names)
}

func (h *BookHandler) Title(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Catalog.Title(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, d)
}

func (h *BookHandler) ReaderStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Catalog.ReaderStatus(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, st)
}

func (h *BookHandler) RequestBorrow(w http.ResponseWriter, r *http.Request) {
	var req models.BorrowRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	res, err := h.svc.Borrow.Request(r.Context(), userID(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *BookHandler) CancelBorrow(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Borrow.Cancel(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *BookHandler) BorrowRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Borrow.ListRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, list)
}

func (h *BookHandler) Approve(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Borrow.Approve(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *BookHandler) Reject(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Borrow.Reject(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}
