package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

// InfractionService turns long-overdue loans into card infractions.
type InfractionService struct {
	*Env
}

func NewInfractionService(env *Env) *InfractionService {
	return &InfractionService{Env: env}
}

// CheckReader evaluates one reader's Active loans. Reader endpoints call it
// before doing anything else.
func (s *InfractionService) CheckReader(ctx context.Context, readerID string) (*models.InfractionReport, error) {
	return s.check(ctx, readerID)
}

// CheckAll evaluates every Active loan in the library.
func (s *InfractionService) CheckAll(ctx context.Context) (*models.InfractionReport, error) {
	return s.check(ctx, "")
}

func (s *InfractionService) check(ctx context.Context, readerID string) (*models.InfractionReport, error) {
	now := s.now()
	loans, _, err := s.Store.ListLoans(ctx, store.LoanFilter{
		ReaderID:  readerID,
		Statuses:  []models.BorrowStatus{models.BorrowActive},
		DueBefore: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}

	report := &models.InfractionReport{BlockReasons: []string{}}
	cards := map[string]*models.ReadingCard{}
	affected := map[string]struct{}{}

	for _, l := range loans {
		if l.DueDate == nil {
			continue
		}
		days := policy.DaysOverdue(*l.DueDate, now, s.Loc)

		card, ok := cards[l.ReaderID]
		if !ok {
			card, err = s.Store.GetCard(ctx, l.ReaderID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			cards[l.ReaderID] = card
		}

		outcome := policy.EvaluateOverdue(l.Status, days, card.InfractionCount)
		if !outcome.Infraction {
			continue
		}
		block := outcome.Block && card.Status != models.CardBlocked
		count, err := s.Store.RecordInfraction(ctx, l.DetailID, card.ID, block)
		if errors.Is(err, store.ErrInvalidState) {
			// Counted by a concurrent pass.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("record infraction for %s: %w", l.DetailID, err)
		}
		card.InfractionCount = count
		report.InfractionsAdded++
		affected[l.ReaderID] = struct{}{}

		s.notify(ctx, l.UserID, fmt.Sprintf("Infraction recorded: '%s' is %d days overdue. You now have %d infraction(s).", l.Title, days, count))

		if block {
			card.Status = models.CardBlocked
			report.CardsBlocked++
			reason := fmt.Sprintf("Accumulated %d infractions", count)
			if days >= policy.BlockOverdueDays {
				reason = fmt.Sprintf("Book %s is %d days late (>=%d days), %d infractions", l.BookID, days, policy.BlockOverdueDays, count)
			}
			report.BlockReasons = append(report.BlockReasons, reason)
			s.notify(ctx, l.UserID, "Your reading card has been blocked: "+reason)
			s.log().Info("card blocked", zap.String("card_id", card.ID), zap.String("reason", reason))
		}
	}
	report.ReadersAffected = len(affected)
	return report, nil
}
