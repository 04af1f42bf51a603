package services

import (
	"context"
	"time"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

const maxHistorySize = 100

// HistoryService serves a reader's borrowing history views.
type HistoryService struct {
	*Env
	Infractions *InfractionService
}

func NewHistoryService(env *Env, inf *InfractionService) *HistoryService {
	return &HistoryService{Env: env, Infractions: inf}
}

// reader resolves the caller and refreshes their infractions.
func (s *HistoryService) reader(ctx context.Context, userID string) (*models.Reader, error) {
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Infractions.CheckReader(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *HistoryService) History(ctx context.Context, userID, status string, page, size int) (*models.HistoryPage, error) {
	r, err := s.reader(ctx, userID)
	if err != nil {
		return nil, err
	}
	f := models.HistoryFilter{ReaderID: r.ID, Page: page, PageSize: size}
	if status != "" {
		st, ok := models.ParseBorrowStatus(status)
		if !ok {
			return nil, badRequest("Invalid status")
		}
		f.Status = st
	}
	return s.historyPage(ctx, f)
}

// historyPage is shared with the librarian's view of a reader.
func (e *Env) historyPage(ctx context.Context, f models.HistoryFilter) (*models.HistoryPage, error) {
	f.Page, f.PageSize = clampPage(f.Page, f.PageSize, 10, maxHistorySize)
	lf := store.LoanFilter{ReaderID: f.ReaderID, Page: f.Page, PageSize: f.PageSize}
	if f.Status != "" {
		lf.Statuses = []models.BorrowStatus{f.Status}
	}
	recs, total, err := e.Store.ListLoans(ctx, lf)
	if err != nil {
		return nil, err
	}

	now := e.now()
	out := &models.HistoryPage{
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: totalPages(total, f.PageSize),
		History:    make([]models.HistoryEntry, 0, len(recs)),
	}
	for _, rec := range recs {
		out.History = append(out.History, e.historyEntry(rec, now))
	}
	return out, nil
}

func (e *Env) historyEntry(rec models.LoanRecord, now time.Time) models.HistoryEntry {
	v := e.loanView(rec, now)
	return models.HistoryEntry{
		BorrowSlipID:     rec.SlipID,
		BorrowDetailID:   rec.DetailID,
		BorrowDate:       rec.BorrowDate,
		DueDate:          rec.DueDate,
		ActualReturnDate: rec.RealReturnDate,
		Status:           v.Status,
		Book: models.HistoryBook{
			BookID:           rec.BookID,
			Title:            rec.Title,
			Author:           rec.Author,
			DueDate:          rec.DueDate,
			ActualReturnDate: rec.RealReturnDate,
			IsReturned:       rec.Status == models.BorrowReturned,
			IsOverdue:        v.IsOverdue,
			DaysOverdue:      v.DaysOverdue,
			Status:           v.Status,
		},
	}
}

// Current lists copies the reader still holds.
func (s *HistoryService) Current(ctx context.Context, userID string) (*models.LoanList, error) {
	r, err := s.reader(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.loanList(ctx, store.LoanFilter{ReaderID: r.ID, Statuses: onLoanStatuses})
}

func (s *HistoryService) Overdue(ctx context.Context, userID string) (*models.LoanList, error) {
	current, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := []models.LoanView{}
	for _, v := range current.Items {
		if v.IsOverdue {
			items = append(items, v)
		}
	}
	return &models.LoanList{Total: len(items), Items: items}, nil
}

func (s *HistoryService) Returned(ctx context.Context, userID string) (*models.LoanList, error) {
	r, err := s.reader(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.loanList(ctx, store.LoanFilter{ReaderID: r.ID, Statuses: []models.BorrowStatus{models.BorrowReturned}})
}
