package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

const (
	defaultReaderLimit = 100
	maxReaderLimit     = 500
	userSearchLimit    = 50
	defaultTopReaders  = 10
)

// LibrarianService backs the user management screens.
type LibrarianService struct {
	*Env
	Infractions *InfractionService
}

func NewLibrarianService(env *Env, inf *InfractionService) *LibrarianService {
	return &LibrarianService{Env: env, Infractions: inf}
}

func (s *LibrarianService) Readers(ctx context.Context, status, q string, limit, offset int) (*models.ReaderList, error) {
	f := models.ReaderFilter{Search: strings.TrimSpace(q), Limit: limit, Offset: offset}
	if status != "" {
		st, ok := models.ParseCardStatus(status)
		if !ok {
			return nil, badRequest("Invalid status filter: %s", status)
		}
		f.Status = st
	}
	if f.Limit < 1 {
		f.Limit = defaultReaderLimit
	}
	if f.Limit > maxReaderLimit {
		f.Limit = maxReaderLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	readers, total, err := s.Store.ListReaders(ctx, f)
	if err != nil {
		return nil, err
	}
	if readers == nil {
		readers = []models.ReaderStats{}
	}
	return &models.ReaderList{Total: total, Limit: f.Limit, Offset: f.Offset, Readers: readers}, nil
}

// readerUser resolves a reader account by its user id.
func (s *LibrarianService) readerUser(ctx context.Context, userID string) (*models.User, *models.Reader, error) {
	u, err := s.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, fromStore(err, fmt.Sprintf("User with ID %s", userID))
	}
	if u.Role != models.RoleReader {
		return nil, nil, badRequest("User %s is not a reader", userID)
	}
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return u, r, nil
}

func (s *LibrarianService) UserDetail(ctx context.Context, userID string) (*models.UserDetail, error) {
	u, r, err := s.readerUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Store.GetReaderStats(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "Reader")
	}
	out := &models.UserDetail{User: *u, Stats: *stats}
	if card, err := s.Store.GetCard(ctx, r.ID); err == nil {
		out.Card = card
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, out.TotalFines, err = s.Store.UnpaidPenalties(ctx, r.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LibrarianService) CurrentBorrows(ctx context.Context, userID string) (*models.LoanList, error) {
	_, r, err := s.readerUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.loanList(ctx, store.LoanFilter{ReaderID: r.ID, Statuses: onLoanStatuses})
}

func (s *LibrarianService) BorrowHistory(ctx context.Context, userID, status string, page, size int) (*models.HistoryPage, error) {
	_, r, err := s.readerUser(ctx, userID)
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
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	return s.historyPage(ctx, f)
}

func (s *LibrarianService) SearchUsers(ctx context.Context, username string) ([]models.UserSearchHit, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, badRequest("username is required")
	}
	hits, err := s.Store.SearchUsers(ctx, username, userSearchLimit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []models.UserSearchHit{}
	}
	return hits, nil
}

// RemoveBan reactivates a Suspended or Blocked card and clears its
// infraction counter.
func (s *LibrarianService) RemoveBan(ctx context.Context, userID, reason string) (*models.CardChange, error) {
	_, r, err := s.readerUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	card, err := s.cardOf(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if card.Status == models.CardActive {
		return nil, badRequest("Reading card is already active")
	}
	if err := s.Store.SetCardStatus(ctx, card.ID, models.CardActive, true); err != nil {
		return nil, fromStore(err, "Reading card")
	}
	s.log().Info("card reactivated", zap.String("card_id", card.ID), zap.String("from", string(card.Status)), zap.String("reason", reason))
	s.notify(ctx, userID, "Your reading card has been reactivated. You can borrow books again.")
	return &models.CardChange{
		Message:   "Ban removed successfully",
		UserID:    userID,
		CardID:    card.ID,
		OldStatus: card.Status,
		NewStatus: models.CardActive,
		Reason:    reason,
	}, nil
}

func (s *LibrarianService) Suspend(ctx context.Context, userID, reason string) (*models.CardChange, error) {
	_, r, err := s.readerUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	card, err := s.cardOf(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if card.Status != models.CardActive {
		return nil, badRequest("Only active cards can be suspended (current status: %s)", card.Status)
	}
	if err := s.Store.SetCardStatus(ctx, card.ID, models.CardSuspended, false); err != nil {
		return nil, fromStore(err, "Reading card")
	}
	msg := "Your reading card has been suspended."
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify(ctx, userID, msg)
	return &models.CardChange{
		Message:   "Card suspended",
		UserID:    userID,
		CardID:    card.ID,
		OldStatus: card.Status,
		NewStatus: models.CardSuspended,
		Reason:    reason,
	}, nil
}

func (s *LibrarianService) Summary(ctx context.Context) (*models.ReaderSummary, error) {
	return s.Store.ReaderSummary(ctx)
}

func (s *LibrarianService) TopReaders(ctx context.Context, limit int) ([]models.ReaderStats, error) {
	if limit < 1 {
		limit = defaultTopReaders
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}
	top, err := s.Store.TopReaders(ctx, limit)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []models.ReaderStats{}
	}
	return top, nil
}

// Issues lists readers with overdue books or unpaid penalties, worst first.
func (s *LibrarianService) Issues(ctx context.Context) (*models.IssuesReport, error) {
	rs, err := s.Store.ReadersWithIssues(ctx)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = []models.ReaderStats{}
	}
	return &models.IssuesReport{Total: len(rs), Readers: rs}, nil
}

func (s *LibrarianService) CheckInfractions(ctx context.Context) (*models.InfractionReport, error) {
	return s.Infractions.CheckAll(ctx)
}
