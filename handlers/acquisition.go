package handlers

import (
	"net/http"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/services"
)

// AcquisitionHandler serves stock intake and title management.
type AcquisitionHandler struct {
	base
}

func (h *AcquisitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.AcquisitionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	v, err := h.svc.Acquisition.Create(r.Context(), userID(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, v)
}

func (h *AcquisitionHandler) History(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.svc.Acquisition.History(r.Context(), r.URL.Query().Get("librarian_id"), page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *AcquisitionHandler) Detail(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Acquisition.Detail(r.Context(), r.PathValue("acq_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, v)
}

func (h *AcquisitionHandler) Publishers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Acquisition.Publishers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, list)
}

func (h *AcquisitionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Acquisition.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, list)
}

func (h *AcquisitionHandler) CreatePublisher(w http.ResponseWriter, r *http.Request) {
	var req services.PublisherRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	p, err := h.svc.Acquisition.CreatePublisher(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, p)
}

func (h *AcquisitionHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req services.CategoryRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	c, err := h.svc.Acquisition.CreateCategory(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, c)
}

func (h *AcquisitionHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	var req models.BookTitleRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	t, err := h.svc.Acquisition.CreateTitle(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, t)
}

func (h *AcquisitionHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req models.BookTitleRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	t, err := h.svc.Acquisition.UpdateTitle(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, t)
}

func (h *AcquisitionHandler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Acquisition.DeleteTitle(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, map[string]string{"message": "Book title deleted successfully", "book_title_id": id})
}

func (h *AcquisitionHandler) Copies(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Acquisition.Copies(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, list)
}

func (h *AcquisitionHandler) DeleteCopy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("book_id")
	if err := h.svc.Acquisition.DeleteCopy(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, map[string]string{"message": "Book copy deleted successfully", "book_id": id})
}
