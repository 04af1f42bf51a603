package handlers

import (
	"net/http"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

// LoanHandler covers borrow history, returns and penalties.
type LoanHandler struct {
	base
}

func (h *LoanHandler) History(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.svc.History.History(r.Context(), userID(r), r.URL.Query().Get("status"), page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) Current(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.History.Current(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.History.Overdue(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) Returned(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.History.Returned(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Returns.RequestReturn(r.Context(), userID(r), r.PathValue("detail_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) ReportDamage(w http.ResponseWriter, r *http.Request) {
	var rep models.DamageReport
	if err := decode(r, &rep); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	res, err := h.svc.Returns.ReportDamage(r.Context(), userID(r), r.PathValue("detail_id"), rep)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) ReportLost(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Returns.ReportLost(r.Context(), userID(r), r.PathValue("detail_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	var req models.ReturnConfirmRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	res, err := h.svc.Returns.ConfirmReturn(r.Context(), userID(r), r.PathValue("detail_id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) PendingReturns(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Returns.PendingReturns(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) OverdueLoans(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Returns.Overdue(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) Penalties(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Penalties.ReaderPenalties(r.Context(), userID(r), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) PayPenalty(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Penalties.Pay(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *LoanHandler) CancelPenalty(w http.ResponseWriter, r *http.Request) {
	var req models.PenaltyActionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid payload")
		return
	}
	if req.Reason == "" {
		req.Reason = r.URL.Query().Get("reason")
	}
	res, err := h.svc.Penalties.Cancel(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}
