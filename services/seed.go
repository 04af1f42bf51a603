package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

// SeedPassword is the password of every seeded staff account.
const SeedPassword = "librarian123"

type seedStaff struct {
	username, fullName, email string
	years                     int
}

var seedLibrarians = []seedStaff{
	{"librarian1", "Nguyen Thi Mai", "librarian1@library.com", 5},
	{"librarian2", "Tran Van Hung", "librarian2@library.com", 3},
	{"librarian3", "Le Thi Lan", "librarian3@library.com", 7},
	{"head_librarian", "Pham Van Minh", "head.librarian@library.com", 12},
}

var seedManager = seedStaff{"manager", "Library Manager", "manager@library.com", 0}

var seedPublishers = []string{"Kim Dong", "Tre", "NXB Giao Duc", "Penguin Random House", "O'Reilly Media"}

var seedCategories = []string{"Fiction", "Science", "History", "Technology", "Children", models.RareCategory}

// SeedReport counts what Seed inserted. Existing rows are skipped.
type SeedReport struct {
	Librarians int
	Managers   int
	Publishers int
	Categories int
}

// Seed inserts sample staff accounts and reference data. It is safe to run
// repeatedly.
func Seed(ctx context.Context, env *Env) (*SeedReport, error) {
	hashed, err := utils.HashPassword(SeedPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	rep := &SeedReport{}
	staffUser := func(st seedStaff, role models.Role) *models.User {
		return &models.User{
			ID:        uuid.NewString(),
			Username:  st.username,
			Password:  hashed,
			FullName:  st.fullName,
			Email:     st.email,
			Role:      role,
			CreatedAt: env.now(),
		}
	}
	skip := func(err error) bool {
		return errors.Is(err, store.ErrUserExists) || errors.Is(err, store.ErrEmailExists) || errors.Is(err, store.ErrConflict)
	}

	for _, st := range seedLibrarians {
		u := staffUser(st, models.RoleLibrarian)
		err := env.Store.CreateLibrarian(ctx, u, &models.Librarian{ID: uuid.NewString(), UserID: u.ID, YearsOfExperience: st.years})
		switch {
		case skip(err):
			env.log().Info("seed: librarian exists", zap.String("username", st.username))
		case err != nil:
			return nil, fmt.Errorf("seed librarian %s: %w", st.username, err)
		default:
			rep.Librarians++
		}
	}

	u := staffUser(seedManager, models.RoleManager)
	err = env.Store.CreateManager(ctx, u, &models.Manager{ID: uuid.NewString(), UserID: u.ID, AccessLevel: 1})
	switch {
	case skip(err):
	case err != nil:
		return nil, fmt.Errorf("seed manager: %w", err)
	default:
		rep.Managers++
	}

	for _, name := range seedPublishers {
		err := env.Store.CreatePublisher(ctx, &models.Publisher{ID: uuid.NewString(), Name: name})
		if err != nil && !skip(err) {
			return nil, fmt.Errorf("seed publisher %s: %w", name, err)
		}
		if err == nil {
			rep.Publishers++
		}
	}
	for _, name := range seedCategories {
		err := env.Store.CreateCategory(ctx, &models.Category{ID: uuid.NewString(), Name: name})
		if err != nil && !skip(err) {
			return nil, fmt.Errorf("seed category %s: %w", name, err)
		}
		if err == nil {
			rep.Categories++
		}
	}
	env.log().Info("seed finished",
		zap.Int("librarians", rep.Librarians), zap.Int("managers", rep.Managers),
		zap.Int("publishers", rep.Publishers), zap.Int("categories", rep.Categories))
	return rep, nil
}
