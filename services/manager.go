package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

const trendWindowDays = 30

type ManagerService struct {
	*Env
	Penalties   *PenaltyService
	Infractions *InfractionService
}

func NewManagerService(env *Env, penalties *PenaltyService, inf *InfractionService) *ManagerService {
	return &ManagerService{Env: env, Penalties: penalties, Infractions: inf}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Statistics runs the dashboard counters concurrently.
func (s *ManagerService) Statistics(ctx context.Context) (*models.SystemStats, error) {
	var out models.SystemStats
	var recent int
	since := s.now().Add(-trendWindowDays * 24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Cards, err = s.Store.CardStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Users, err = s.Store.UserCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Borrowing, err = s.Store.BorrowStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Infractions, err = s.Store.InfractionStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Penalties, err = s.Store.PenaltyStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.Store.CountSlipsSince(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("system statistics: %w", err)
	}

	if out.Borrowing.TotalBorrows > 0 {
		out.Borrowing.ReturnRate = round2(float64(out.Borrowing.ReturnedBorrows) / float64(out.Borrowing.TotalBorrows) * 100)
	}
	if out.Users.TotalReaders > 0 {
		out.Infractions.AveragePerReader = round2(float64(out.Infractions.TotalInfractions) / float64(out.Users.TotalReaders))
	}
	out.Trends = models.TrendStats{
		RecentBorrows30Days: recent,
		AvgBorrowsPerDay:    round2(float64(recent) / trendWindowDays),
	}
	return &out, nil
}

func (s *ManagerService) Librarians(ctx context.Context) ([]models.LibrarianView, error) {
	libs, err := s.Store.ListLibrarians(ctx)
	if err != nil {
		return nil, err
	}
	if libs == nil {
		libs = []models.LibrarianView{}
	}
	return libs, nil
}

func (s *ManagerService) CreateLibrarian(ctx context.Context, req models.CreateLibrarianRequest) (*models.LibrarianAccount, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Password:  hashed,
		FullName:  req.FullName,
		Email:     req.Email,
		Role:      models.RoleLibrarian,
		CreatedAt: s.now(),
	}
	if req.PhoneNumber != "" {
		u.PhoneNumber = &req.PhoneNumber
	}
	l := &models.Librarian{ID: uuid.NewString(), UserID: u.ID, YearsOfExperience: req.YearsOfExperience}
	if err := s.Store.CreateLibrarian(ctx, u, l); err != nil {
		return nil, fromStore(err, "User")
	}
	s.log().Info("librarian created", zap.String("lib_id", l.ID), zap.String("username", u.Username))
	return &models.LibrarianAccount{
		Librarian:   *l,
		Username:    u.Username,
		FullName:    u.FullName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
	}, nil
}

// DeleteLibrarian removes the account. Slips they handled keep the id.
func (s *ManagerService) DeleteLibrarian(ctx context.Context, libID string) (*models.LibrarianAccount, error) {
	acc, err := s.Store.DeleteLibrarian(ctx, libID)
	if err != nil {
		return nil, fromStore(err, fmt.Sprintf("Librarian with ID '%s'", libID))
	}
	s.log().Info("librarian deleted", zap.String("lib_id", libID), zap.String("username", acc.Username))
	return acc, nil
}

// AutoCreatePenalties refreshes infractions before syncing late fines so
// newly overdue loans are counted in the same pass.
func (s *ManagerService) AutoCreatePenalties(ctx context.Context) (*models.AutoPenaltyReport, error) {
	if _, err := s.Infractions.CheckAll(ctx); err != nil {
		return nil, err
	}
	return s.Penalties.AutoCreateLate(ctx)
}
