package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/services"
)

// SweepReport summarises one pass.
type SweepReport struct {
	Infractions *models.InfractionReport  `json:"infractions"`
	Penalties   *models.AutoPenaltyReport `json:"penalties"`
	Reminders   *models.ReminderReport    `json:"reminders"`
}

// Sweeper runs the periodic housekeeping: infraction checks, late fines and
// due-date reminders.
type Sweeper struct {
	svc      *services.Services
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(svc *services.Services, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A failed pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	start := time.Now()
	rep, err := s.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
		return
	}
	s.logger.Info("sweep finished",
		zap.Int("infractions_added", rep.Infractions.InfractionsAdded),
		zap.Int("cards_blocked", rep.Infractions.CardsBlocked),
		zap.Int("penalties_created", rep.Penalties.Created),
		zap.Int("penalties_updated", rep.Penalties.Updated),
		zap.Int("due_tomorrow", rep.Reminders.DueTomorrow),
		zap.Int("overdue", rep.Reminders.Overdue),
		zap.Duration("took", time.Since(start)),
	)
}

// SweepOnce runs every step in order. Infractions go first so that loans
// which just crossed the grace period are blocked before fines are synced.
func (s *Sweeper) SweepOnce(ctx context.Context) (*SweepReport, error) {
	var (
		rep SweepReport
		err error
	)
	if rep.Infractions, err = s.svc.Infractions.CheckAll(ctx); err != nil {
		return nil, err
	}
	if rep.Penalties, err = s.svc.Penalties.AutoCreateLate(ctx); err != nil {
		return nil, err
	}
	if rep.Reminders, err = s.svc.Reminders.Remind(ctx); err != nil {
		return nil, err
	}
	return &rep, nil
}
