package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

// AcquisitionService handles stock intake and catalog maintenance.
type AcquisitionService struct {
	*Env
}

func NewAcquisitionService(env *Env) *AcquisitionService {
	return &AcquisitionService{Env: env}
}

// stampedID builds ids like ACQ20240601093000ab12.
func (e *Env) stampedID(prefix string) string {
	return prefix + e.now().Format("20060102150405") + uuid.NewString()[:4]
}

// Create records an acquisition slip. Each item adds quantity new copies
// of the title; a missing price falls back to the title's current price.
func (s *AcquisitionService) Create(ctx context.Context, librarianUserID string, req models.AcquisitionRequest) (*models.AcquisitionView, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	lib, err := s.librarianOf(ctx, librarianUserID)
	if err != nil {
		return nil, err
	}

	items := make([]models.AcquisitionDetail, 0, len(req.Books))
	for _, b := range req.Books {
		t, err := s.Store.GetTitle(ctx, b.BookTitleID)
		if err != nil {
			return nil, fromStore(err, fmt.Sprintf("Book title %s", b.BookTitleID))
		}
		price := t.Price
		if b.Price != nil {
			price = *b.Price
		}
		items = append(items, models.AcquisitionDetail{
			BookTitleID: t.ID,
			BookName:    t.Name,
			ISBN:        t.ISBN,
			Author:      t.Author,
			Category:    t.Category,
			Quantity:    b.Quantity,
			Price:       price,
		})
	}

	slip := &models.AcquisitionSlip{ID: s.stampedID("ACQ"), LibrarianID: lib.ID, AccDate: s.now()}
	if err := s.Store.CreateAcquisition(ctx, slip, items); err != nil {
		return nil, fromStore(err, "Book title")
	}
	s.log().Info("acquisition recorded", zap.String("acq_id", slip.ID), zap.Int("items", slip.TotalItems), zap.Int("amount", slip.TotalAmount))
	return &models.AcquisitionView{AcquisitionSlip: *slip, Details: items}, nil
}

func (s *AcquisitionService) History(ctx context.Context, librarianID string, page, size int) (*models.AcquisitionPage, error) {
	page, size = clampPage(page, size, 20, 100)
	slips, total, err := s.Store.ListAcquisitions(ctx, store.AcquisitionFilter{LibrarianID: librarianID, Page: page, PageSize: size})
	if err != nil {
		return nil, err
	}
	if slips == nil {
		slips = []models.AcquisitionSlip{}
	}
	return &models.AcquisitionPage{
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages(total, size),
		Data:       slips,
	}, nil
}

func (s *AcquisitionService) Detail(ctx context.Context, acqID string) (*models.AcquisitionView, error) {
	v, err := s.Store.GetAcquisition(ctx, acqID)
	if err != nil {
		return nil, fromStore(err, "Acquisition slip")
	}
	if v.Details == nil {
		v.Details = []models.AcquisitionDetail{}
	}
	return v, nil
}

func (s *AcquisitionService) Publishers(ctx context.Context) ([]models.Publisher, error) {
	return s.Store.ListPublishers(ctx)
}

func (s *AcquisitionService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.Store.ListCategories(ctx)
}

type PublisherRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address" validate:"max=255"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (s *AcquisitionService) CreatePublisher(ctx context.Context, req PublisherRequest) (*models.Publisher, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	p := &models.Publisher{ID: s.stampedID("PUB"), Name: strings.TrimSpace(req.Name)}
	if req.Address != "" {
		p.Address = &req.Address
	}
	if err := s.Store.CreatePublisher(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflict("Publisher '%s' already exists", p.Name)
		}
		return nil, err
	}
	return p, nil
}

func (s *AcquisitionService) CreateCategory(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	c := &models.Category{ID: s.stampedID("CAT"), Name: strings.TrimSpace(req.Name)}
	if err := s.Store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflict("Category '%s' already exists", c.Name)
		}
		return nil, err
	}
	return c, nil
}

// checkRefs verifies the optional publisher and category ids.
func (s *AcquisitionService) checkRefs(ctx context.Context, req models.BookTitleRequest) error {
	if req.PublisherID != "" {
		pubs, err := s.Store.ListPublishers(ctx)
		if err != nil {
			return err
		}
		if !containsID(len(pubs), func(i int) string { return pubs[i].ID }, req.PublisherID) {
			return notFound("Publisher not found")
		}
	}
	if req.CategoryID != "" {
		cats, err := s.Store.ListCategories(ctx)
		if err != nil {
			return err
		}
		if !containsID(len(cats), func(i int) string { return cats[i].ID }, req.CategoryID) {
			return notFound("Category not found")
		}
	}
	return nil
}

func containsID(n int, id func(int) string, want string) bool {
	for i := 0; i < n; i++ {
		if id(i) == want {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateTitle adds a catalog entry with no copies; copies arrive through
// acquisitions.
func (s *AcquisitionService) CreateTitle(ctx context.Context, req models.BookTitleRequest) (*models.BookTitle, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	if err := s.checkRefs(ctx, req); err != nil {
		return nil, err
	}
	t := &models.BookTitle{
		ID:          s.stampedID("BT"),
		Name:        strings.TrimSpace(req.Name),
		Author:      strings.TrimSpace(req.Author),
		ISBN:        strings.TrimSpace(req.ISBN),
		CategoryID:  optional(req.CategoryID),
		PublisherID: optional(req.PublisherID),
		Price:       req.Price,
		CreatedAt:   s.now(),
	}
	if err := s.Store.CreateTitle(ctx, t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflict("A book title with ISBN %s already exists", t.ISBN)
		}
		return nil, err
	}
	return s.Store.GetTitle(ctx, t.ID)
}

func (s *AcquisitionService) UpdateTitle(ctx context.Context, id string, req models.BookTitleRequest) (*models.BookTitle, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	if err := s.checkRefs(ctx, req); err != nil {
		return nil, err
	}
	t := &models.BookTitle{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Author:      strings.TrimSpace(req.Author),
		ISBN:        strings.TrimSpace(req.ISBN),
		CategoryID:  optional(req.CategoryID),
		PublisherID: optional(req.PublisherID),
		Price:       req.Price,
	}
	if err := s.Store.UpdateTitle(ctx, t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflict("A book title with ISBN %s already exists", t.ISBN)
		}
		return nil, fromStore(err, "Book title")
	}
	return s.Store.GetTitle(ctx, id)
}

// DeleteTitle removes a title and its copies. Titles with any borrowing
// history are kept so history stays intact.
func (s *AcquisitionService) DeleteTitle(ctx context.Context, id string) error {
	err := s.Store.DeleteTitle(ctx, id)
	if errors.Is(err, store.ErrConflict) {
		return badRequest("Cannot delete book title. Some of its copies have borrowing records.")
	}
	return fromStore(err, "Book title")
}

func (s *AcquisitionService) Copies(ctx context.Context, titleID string) ([]models.BookCopy, error) {
	copies, err := s.Store.ListCopies(ctx, titleID)
	if err != nil {
		return nil, fromStore(err, "Book title")
	}
	return copies, nil
}

func (s *AcquisitionService) DeleteCopy(ctx context.Context, bookID string) error {
	err := s.Store.DeleteCopy(ctx, bookID)
	if errors.Is(err, store.ErrConflict) {
		return badRequest("Cannot delete a copy that is borrowed or has borrowing records")
	}
	return fromStore(err, "Book")
}
