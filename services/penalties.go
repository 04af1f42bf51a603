package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

type PenaltyService struct {
	*Env
}

func NewPenaltyService(env *Env) *PenaltyService {
	return &PenaltyService{Env: env}
}

// ReaderPenalties lists the caller's penalties, optionally by status.
func (s *PenaltyService) ReaderPenalties(ctx context.Context, userID, status string) (*models.PenaltyList, error) {
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	f := store.PenaltyFilter{ReaderID: r.ID}
	if status != "" {
		st, ok := models.ParsePenaltyStatus(status)
		if !ok {
			return nil, badRequest("Invalid status")
		}
		f.Status = st
	}
	ps, err := s.Store.ListPenalties(ctx, f)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []models.PenaltyView{}
	}
	_, owed, err := s.Store.UnpaidPenalties(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &models.PenaltyList{Total: len(ps), UnpaidAmount: owed, Penalties: ps}, nil
}

func (s *PenaltyService) Pay(ctx context.Context, penaltyID string) (*models.PenaltyResult, error) {
	p, err := s.Store.GetPenalty(ctx, penaltyID)
	if err != nil {
		return nil, fromStore(err, "Penalty")
	}
	switch p.Status {
	case models.PenaltyPaid:
		return nil, badRequest("Penalty already paid")
	case models.PenaltyCancelled:
		return nil, badRequest("Penalty is cancelled")
	}
	if err := s.Store.ResolvePenalty(ctx, p.ID, models.PenaltyPaid, s.now(), ""); err != nil {
		return nil, fromStore(err, "Penalty")
	}
	s.notifyReader(ctx, p.ReaderID, fmt.Sprintf("Payment of %d VND for penalty %s was received.", p.FineAmount, p.ID))
	return &models.PenaltyResult{
		PenaltyID:      p.ID,
		Message:        "Penalty paid successfully",
		PenaltyType:    p.Type,
		BorrowDetailID: p.BorrowDetailID,
		BookID:         p.BookID,
		FineAmount:     p.FineAmount,
		Status:         models.PenaltyPaid,
	}, nil
}

func (s *PenaltyService) Cancel(ctx context.Context, penaltyID, reason string) (*models.PenaltyResult, error) {
	p, err := s.Store.GetPenalty(ctx, penaltyID)
	if err != nil {
		return nil, fromStore(err, "Penalty")
	}
	switch p.Status {
	case models.PenaltyPaid:
		return nil, badRequest("Cannot cancel paid penalty. Please process refund separately.")
	case models.PenaltyCancelled:
		return nil, badRequest("Penalty is already cancelled")
	}
	note := ""
	if reason != "" {
		note = "Cancelled: " + reason
	}
	if err := s.Store.ResolvePenalty(ctx, p.ID, models.PenaltyCancelled, s.now(), note); err != nil {
		return nil, fromStore(err, "Penalty")
	}
	s.notifyReader(ctx, p.ReaderID, fmt.Sprintf("Penalty %s was cancelled.", p.ID))
	return &models.PenaltyResult{
		PenaltyID:      p.ID,
		Message:        "Penalty cancelled",
		PenaltyType:    p.Type,
		BorrowDetailID: p.BorrowDetailID,
		BookID:         p.BookID,
		FineAmount:     p.FineAmount,
		Status:         models.PenaltyCancelled,
	}, nil
}

// AutoCreateLate keeps one Pending Late penalty per overdue loan in step
// with the days elapsed.
func (s *PenaltyService) AutoCreateLate(ctx context.Context) (*models.AutoPenaltyReport, error) {
	now := s.now()
	loans, _, err := s.Store.ListLoans(ctx, store.LoanFilter{Statuses: onLoanStatuses, DueBefore: &now})
	if err != nil {
		return nil, err
	}
	report := &models.AutoPenaltyReport{Checked: len(loans)}
	for _, l := range loans {
		days := s.daysOverdue(l.DueDate, now)
		if days <= 0 {
			continue
		}
		fine := policy.LateFine(days)
		p := &models.Penalty{
			ID:             penaltyCode(),
			BorrowDetailID: l.DetailID,
			Type:           models.PenaltyLate,
			Description:    fmt.Sprintf("Late return: %d days overdue. Fine: %d VND", days, fine),
			FineAmount:     fine,
			Status:         models.PenaltyPending,
			CreatedAt:      now,
		}
		created, err := s.Store.UpsertLatePenalty(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("late penalty for %s: %w", l.DetailID, err)
		}
		if created {
			report.Created++
			s.notify(ctx, l.UserID, fmt.Sprintf("A late fine was issued for '%s': %d days overdue, %d VND so far.", l.Title, days, fine))
		} else if p.Status == models.PenaltyPending {
			report.Updated++
		}
	}
	s.log().Info("late penalties synced", zap.Int("created", report.Created), zap.Int("updated", report.Updated), zap.Int("checked", report.Checked))
	return report, nil
}
