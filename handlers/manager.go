package handlers

import (
	"net/http"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

type ManagerHandler struct {
	base
}

func (h *ManagerHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Manager.Statistics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, st)
}

func (h *ManagerHandler) Librarians(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Manager.Librarians(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, list)
}

func (h *ManagerHandler) CreateLibrarian(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLibrarianRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	acc, err := h.svc.Manager.CreateLibrarian(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, acc)
}

func (h *ManagerHandler) DeleteLibrarian(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Manager.DeleteLibrarian(r.Context(), r.PathValue("lib_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, acc)
}

func (h *ManagerHandler) AutoCreatePenalties(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Manager.AutoCreatePenalties(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, rep)
}
