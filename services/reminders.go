package services

import (
	"context"
	"fmt"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

// ReminderService nudges readers about loans that are due soon or late.
type ReminderService struct {
	*Env
}

func NewReminderService(env *Env) *ReminderService {
	return &ReminderService{Env: env}
}

// Remind writes one notification per loan due tomorrow and per overdue
// loan. Each is keyed by loan and day, so running it several times on the
// same day does not repeat them.
func (s *ReminderService) Remind(ctx context.Context) (*models.ReminderReport, error) {
	now := s.now()
	loc := s.loc()
	horizon := now.AddDate(0, 0, 2)
	loans, _, err := s.Store.ListLoans(ctx, store.LoanFilter{
		Statuses:  []models.BorrowStatus{models.BorrowActive, models.BorrowOverdue},
		DueBefore: &horizon,
	})
	if err != nil {
		return nil, fmt.Errorf("list loans for reminders: %w", err)
	}

	today := now.In(loc).Format("2006-01-02")
	tomorrow := now.In(loc).AddDate(0, 0, 1).Format("2006-01-02")
	rep := &models.ReminderReport{}
	for _, l := range loans {
		if l.DueDate == nil {
			continue
		}
		if days := policy.DaysOverdue(*l.DueDate, now, loc); days > 0 {
			s.notifyOnce(ctx, l.UserID, "overdue:"+l.DetailID+":"+today, fmt.Sprintf(
				"Reminder: '%s' is %d day(s) overdue. Estimated late fine: %d VND. Please return it as soon as possible.",
				l.Title, days, policy.LateFine(days)))
			rep.Overdue++
			continue
		}
		if due := l.DueDate.In(loc).Format("2006-01-02"); due == tomorrow {
			s.notifyOnce(ctx, l.UserID, "due:"+l.DetailID, fmt.Sprintf("Reminder: '%s' is due tomorrow (%s).", l.Title, due))
			rep.DueTomorrow++
		}
	}
	return rep, nil
}
