package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUserExists      = errors.New("user already exists")
	ErrEmailExists     = errors.New("email already registered")
	ErrCopyUnavailable = errors.New("no free copy")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrConflict        = errors.New("conflict")
)

// UnavailableError names the title that ran out of free copies.
type UnavailableError struct {
	TitleID string
	BookID  string
}

func (e *UnavailableError) Error() string {
	if e.BookID != "" {
		return fmt.Sprintf("copy %s is already borrowed", e.BookID)
	}
	return fmt.Sprintf("no free copy of title %s", e.TitleID)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrCopyUnavailable }

// LoanFilter selects borrow details. Zero values mean "any".
type LoanFilter struct {
	ReaderID  string
	Statuses  []models.BorrowStatus
	DueBefore *time.Time
	DueAfter  *time.Time
	Page      int
	PageSize  int
}

type PenaltyFilter struct {
	ReaderID string
	Status   models.PenaltyStatus
	DetailID string
}

type AcquisitionFilter struct {
	LibrarianID string
	Page        int
	PageSize    int
}

type UserStore interface {
	CreateReader(ctx context.Context, u *models.User, r *models.Reader, c *models.ReadingCard) error
	CreateLibrarian(ctx context.Context, u *models.User, l *models.Librarian) error
	CreateManager(ctx context.Context, u *models.User, m *models.Manager) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error
	RecordLogout(ctx context.Context, userID string, at time.Time) error
	GetReaderByUserID(ctx context.Context, userID string) (*models.Reader, error)
	GetReader(ctx context.Context, readerID string) (*models.Reader, error)
	GetLibrarianByUserID(ctx context.Context, userID string) (*models.Librarian, error)
	GetManagerByUserID(ctx context.Context, userID string) (*models.Manager, error)
	GetCard(ctx context.Context, readerID string) (*models.ReadingCard, error)
	// SetCardStatus optionally resets the infraction counter.
	SetCardStatus(ctx context.Context, cardID string, status models.CardStatus, resetInfractions bool) error
	ListLibrarians(ctx context.Context) ([]models.LibrarianView, error)
	DeleteLibrarian(ctx context.Context, libID string) (*models.LibrarianAccount, error)
}

type CatalogStore interface {
	// ListTitles returns the matching page and the total match count. A
	// zero PageSize returns every match.
	ListTitles(ctx context.Context, f models.CatalogFilter) ([]models.BookTitle, int, error)
	GetTitle(ctx context.Context, id string) (*models.BookTitle, error)
	CreateTitle(ctx context.Context, t *models.BookTitle) error
	UpdateTitle(ctx context.Context, t *models.BookTitle) error
	DeleteTitle(ctx context.Context, id string) error
	ListCopies(ctx context.Context, titleID string) ([]models.BookCopy, error)
	DeleteCopy(ctx context.Context, bookID string) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	CreatePublisher(ctx context.Context, p *models.Publisher) error
}

type LoanStore interface {
	// CreateBorrowRequest reserves one distinct free copy per title id
	// (repeats allowed) and records a Pending slip.
	CreateBorrowRequest(ctx context.Context, readerID string, titleIDs []string, at time.Time) (*models.BorrowSlip, []models.BookCopy, error)
	GetSlip(ctx context.Context, id string) (*models.BorrowSlip, error)
	ListBorrowRequests(ctx context.Context, status models.BorrowStatus) ([]models.BorrowRequestView, error)
	// ApproveSlip activates a Pending slip and marks its copies borrowed.
	ApproveSlip(ctx context.Context, slipID, librarianID string, due time.Time) error
	// CloseSlip moves a Pending slip and its details to Rejected or Cancelled.
	CloseSlip(ctx context.Context, slipID string, to models.BorrowStatus, librarianID string) error
	// CountHeld returns copies held (on loan or requested) and pending requests.
	CountHeld(ctx context.Context, readerID string) (held int, pending int, err error)
	ListLoans(ctx context.Context, f LoanFilter) ([]models.LoanRecord, int, error)
	GetLoan(ctx context.Context, detailID string) (*models.LoanRecord, error)
	TransitionLoan(ctx context.Context, detailID string, from []models.BorrowStatus, to models.BorrowStatus) error
	// CompleteReturn closes an on-loan detail, frees its copy and stores the
	// given penalties. late is upserted per detail; IDs are written back.
	CompleteReturn(ctx context.Context, detailID string, at time.Time, late, damage *models.Penalty) (slipDone bool, err error)
	MarkLost(ctx context.Context, detailID string, at time.Time, p *models.Penalty) error
	// RecordInfraction marks an Active detail Overdue and bumps the card's
	// counter, blocking the card when block is set.
	RecordInfraction(ctx context.Context, detailID, cardID string, block bool) (int, error)
}

type PenaltyStore interface {
	CreatePenalty(ctx context.Context, p *models.Penalty) error
	// UpsertLatePenalty refreshes a Pending late penalty for the detail or
	// creates one. Paid or cancelled ones are left alone.
	UpsertLatePenalty(ctx context.Context, p *models.Penalty) (created bool, err error)
	GetPenalty(ctx context.Context, id string) (*models.PenaltyView, error)
	ListPenalties(ctx context.Context, f PenaltyFilter) ([]models.PenaltyView, error)
	ResolvePenalty(ctx context.Context, id string, to models.PenaltyStatus, at time.Time, note string) error
	UnpaidPenalties(ctx context.Context, readerID string) (count int, amount int, err error)
}

type AcquisitionStore interface {
	// CreateAcquisition records the slip, adds quantity copies per item and
	// raises stock and price on each title.
	CreateAcquisition(ctx context.Context, slip *models.AcquisitionSlip, items []models.AcquisitionDetail) error
	ListAcquisitions(ctx context.Context, f AcquisitionFilter) ([]models.AcquisitionSlip, int, error)
	GetAcquisition(ctx context.Context, id string) (*models.AcquisitionView, error)
}

type ReaderStore interface {
	ListReaders(ctx context.Context, f models.ReaderFilter) ([]models.ReaderStats, int, error)
	GetReaderStats(ctx context.Context, userID string) (*models.ReaderStats, error)
	SearchUsers(ctx context.Context, username string, limit int) ([]models.UserSearchHit, error)
	ReaderSummary(ctx context.Context) (*models.ReaderSummary, error)
	TopReaders(ctx context.Context, limit int) ([]models.ReaderStats, error)
	ReadersWithIssues(ctx context.Context) ([]models.ReaderStats, error)
}

type StatsStore interface {
	CardStats(ctx context.Context) (models.CardStats, error)
	UserCounts(ctx context.Context) (models.UserCounts, error)
	BorrowStats(ctx context.Context) (models.BorrowStats, error)
	InfractionStats(ctx context.Context) (models.InfractionStats, error)
	PenaltyStats(ctx context.Context) (models.PenaltyStats, error)
	CountSlipsSince(ctx context.Context, since time.Time) (int, error)
}

type NotificationStore interface {
	// CreateNotification stores a message. A non-empty key is stored at most
	// once per user, read or not; an empty key always inserts.
	CreateNotification(ctx context.Context, userID, key, message string) (bool, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int, userID string) error
	DeleteNotification(ctx context.Context, id int, userID string) error
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	CatalogStore
	LoanStore
	PenaltyStore
	AcquisitionStore
	ReaderStore
	StatsStore
	NotificationStore
	Ping(ctx context.Context) error
	Close() error
}
