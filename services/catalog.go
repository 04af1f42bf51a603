package services

import (
	"context"
	"strings"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/search"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

const defaultPageSize = 12

// Page size caps for the public browse and the signed-in reader search.
const (
	MaxBrowseSize = 100
	MaxSearchSize = 10000
)

type CatalogService struct {
	*Env
	Infractions *InfractionService
}

func NewCatalogService(env *Env, inf *InfractionService) *CatalogService {
	return &CatalogService{Env: env, Infractions: inf}
}

// BrowseQuery is the public and reader search input.
type BrowseQuery struct {
	Keyword   string
	Category  string
	Publisher string
	Page      int
	PageSize  int
}

// Browse filters by exact category and publisher and, when a keyword is
// given, ranks by relevance. Without a keyword titles come back by name.
func (s *CatalogService) Browse(ctx context.Context, q BrowseQuery, maxSize int) (*models.CatalogPage, error) {
	q.Page, q.PageSize = clampPage(q.Page, q.PageSize, defaultPageSize, maxSize)
	f := models.CatalogFilter{Category: q.Category, Publisher: q.Publisher}
	keyword := strings.TrimSpace(q.Keyword)

	out := &models.CatalogPage{Page: q.Page, PageSize: q.PageSize, Books: []models.CatalogEntry{}}
	if keyword == "" {
		f.Page, f.PageSize = q.Page, q.PageSize
		titles, total, err := s.Store.ListTitles(ctx, f)
		if err != nil {
			return nil, err
		}
		out.Total = total
		for _, t := range titles {
			out.Books = append(out.Books, entry(t, 0))
		}
		return out, nil
	}

	titles, _, err := s.Store.ListTitles(ctx, f)
	if err != nil {
		return nil, err
	}
	ranked := search.Rank(keyword, titles)
	out.Total = len(ranked)
	for _, r := range search.Page(ranked, q.Page, q.PageSize) {
		out.Books = append(out.Books, entry(r.Title, r.Score))
	}
	return out, nil
}

func entry(t models.BookTitle, score int) models.CatalogEntry {
	return models.CatalogEntry{
		ID:        t.ID,
		Name:      t.Name,
		Author:    t.Author,
		Publisher: t.Publisher,
		Category:  t.Category,
		Available: t.Available,
		Score:     score,
	}
}

// CategoryNames lists category names for the public filter.
func (s *CatalogService) CategoryNames(ctx context.Context) ([]string, error) {
	cats, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}

// TitleDetail is a title with its physical copies.
type TitleDetail struct {
	models.BookTitle
	Copies []models.BookCopy `json:"copies"`
}

func (s *CatalogService) Title(ctx context.Context, id string) (*TitleDetail, error) {
	t, err := s.Store.GetTitle(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Book title")
	}
	copies, err := s.Store.ListCopies(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Book title")
	}
	return &TitleDetail{BookTitle: *t, Copies: copies}, nil
}

// ReaderStatus reports the flags the client uses to gate borrowing. The
// infraction check runs first so the card status is current.
func (s *CatalogService) ReaderStatus(ctx context.Context, userID string) (*models.ReaderStatus, error) {
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Infractions.CheckReader(ctx, r.ID); err != nil {
		return nil, err
	}
	card, err := s.cardOf(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	held, pending, err := s.Store.CountHeld(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	_, fines, err := s.Store.UnpaidPenalties(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	onLoan, _, err := s.Store.ListLoans(ctx, store.LoanFilter{
		ReaderID: r.ID,
		Statuses: []models.BorrowStatus{models.BorrowActive, models.BorrowOverdue, models.BorrowPendingReturn},
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	overdueCount := 0
	for _, l := range onLoan {
		if l.Status == models.BorrowOverdue || (l.DueDate != nil && policy.DaysOverdue(*l.DueDate, now, s.Loc) > 0) {
			overdueCount++
		}
	}

	rules := policy.For(card.CardType)
	return &models.ReaderStatus{
		ReaderID:             r.ID,
		CardID:               card.ID,
		CardType:             card.CardType,
		CardStatus:           card.Status,
		MaxBooksAllowed:      rules.MaxBooks,
		LoanPeriodDays:       rules.LoanDays,
		CurrentlyBorrowed:    len(onLoan),
		PendingRequests:      pending,
		RemainingSlots:       policy.RemainingSlots(card.CardType, held),
		CanBorrowMore:        policy.CanBorrow(*card, held, fines),
		OverdueCount:         overdueCount,
		TotalFines:           fines,
		HasPenalties:         fines > 0,
		InfractionCount:      card.InfractionCount,
		TotalBorrowedHistory: r.TotalBorrowed,
	}, nil
}
