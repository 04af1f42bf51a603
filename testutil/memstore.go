// Package testutil provides an in-memory store.Store for service and handler
// tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/search"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

// MemStore mirrors the MySQL store's semantics over maps guarded by one
// mutex. Now drives every "current time" comparison.
type MemStore struct {
	mu  sync.Mutex
	Now func() time.Time

	users      map[string]*models.User
	readers    map[string]*models.Reader
	librarians map[string]*models.Librarian
	managers   map[string]*models.Manager
	cards      map[string]*models.ReadingCard
	categories map[string]*models.Category
	publishers map[string]*models.Publisher
	titles     map[string]*models.BookTitle
	copies     map[string]*models.BookCopy
	slips      map[string]*models.BorrowSlip
	details    map[string]*models.BorrowDetail
	penalties  map[string]*models.Penalty
	acqs       map[string]*models.AcquisitionSlip
	acqItems   map[string][]models.AcquisitionDetail
	notifs     []models.Notification
	notifKeys  map[string]int
	nextNotif  int
	seq        int
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		Now:        func() time.Time { return time.Now().UTC() },
		users:      map[string]*models.User{},
		readers:    map[string]*models.Reader{},
		librarians: map[string]*models.Librarian{},
		managers:   map[string]*models.Manager{},
		cards:      map[string]*models.ReadingCard{},
		categories: map[string]*models.Category{},
		publishers: map[string]*models.Publisher{},
		titles:     map[string]*models.BookTitle{},
		copies:     map[string]*models.BookCopy{},
		slips:      map[string]*models.BorrowSlip{},
		details:    map[string]*models.BorrowDetail{},
		penalties:  map[string]*models.Penalty{},
		acqs:       map[string]*models.AcquisitionSlip{},
		acqItems:   map[string][]models.AcquisitionDetail{},
		notifKeys:  map[string]int{},
	}
}

func (m *MemStore) Ping(context.Context) error { return nil }
func (m *MemStore) Close() error               { return nil }

// tick returns a strictly increasing suffix so records created in the same
// instant still sort deterministically.
func (m *MemStore) tick() time.Duration {
	m.seq++
	return time.Duration(m.seq) * time.Microsecond
}

// ---- seeding helpers ----

// AddTitle stores a title with n fresh copies and returns the copy ids.
func (m *MemStore) AddTitle(t models.BookTitle, n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.Now()
	}
	t.TotalQuantity += n
	t.Available += n
	m.titles[t.ID] = &t
	ids := make([]string, n)
	for i := range ids {
		c := &models.BookCopy{ID: fmt.Sprintf("%s-C%d", t.ID, i+1), BookTitleID: t.ID, Condition: "good", CreatedAt: m.Now().Add(m.tick())}
		m.copies[c.ID] = c
		ids[i] = c.ID
	}
	return ids
}

// Copy returns a snapshot of a physical copy.
func (m *MemStore) Copy(id string) (models.BookCopy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.copies[id]
	if !ok {
		return models.BookCopy{}, false
	}
	return *c, true
}

// SetDueDate rewrites a detail's due date so tests can age loans.
func (m *MemStore) SetDueDate(detailID string, due time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.details[detailID]; ok {
		d.DueDate = &due
	}
}

// ---- users ----

func (m *MemStore) checkUnique(u *models.User) error {
	for _, x := range m.users {
		if x.Username == u.Username {
			return store.ErrUserExists
		}
	}
	for _, x := range m.users {
		if x.Email == u.Email {
			return store.ErrEmailExists
		}
	}
	return nil
}

func (m *MemStore) CreateReader(_ context.Context, u *models.User, r *models.Reader, c *models.ReadingCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(u); err != nil {
		return err
	}
	uc, rc, cc := *u, *r, *c
	m.users[u.ID] = &uc
	m.readers[r.ID] = &rc
	m.cards[c.ID] = &cc
	return nil
}

func (m *MemStore) CreateLibrarian(_ context.Context, u *models.User, l *models.Librarian) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(u); err != nil {
		return err
	}
	uc, lc := *u, *l
	m.users[u.ID] = &uc
	m.librarians[l.ID] = &lc
	return nil
}

func (m *MemStore) CreateManager(_ context.Context, u *models.User, mg *models.Manager) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(u); err != nil {
		return err
	}
	uc, mc := *u, *mg
	m.users[u.ID] = &uc
	m.managers[mg.ID] = &mc
	return nil
}

func (m *MemStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) RecordLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *MemStore) RecordLogout(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogout = &at
	return nil
}

func (m *MemStore) readerByUser(userID string) *models.Reader {
	for _, r := range m.readers {
		if r.UserID == userID {
			return r
		}
	}
	return nil
}

func (m *MemStore) cardByReader(readerID string) *models.ReadingCard {
	for _, c := range m.cards {
		if c.ReaderID == readerID {
			return c
		}
	}
	return nil
}

func (m *MemStore) GetReaderByUserID(_ context.Context, userID string) (*models.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.readerByUser(userID); r != nil {
		c := *r
		return &c, nil
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) GetReader(_ context.Context, readerID string) (*models.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.readers[readerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MemStore) GetLibrarianByUserID(_ context.Context, userID string) (*models.Librarian, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.librarians {
		if l.UserID == userID {
			c := *l
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) GetManagerByUserID(_ context.Context, userID string) (*models.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.managers {
		if x.UserID == userID {
			c := *x
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) GetCard(_ context.Context, readerID string) (*models.ReadingCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.cardByReader(readerID); c != nil {
		cc := *c
		return &cc, nil
	}
	return nil, store.ErrNotFound
}

func (m *MemStore) SetCardStatus(_ context.Context, cardID string, status models.CardStatus, reset bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[cardID]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	if reset {
		c.InfractionCount = 0
	}
	return nil
}

func (m *MemStore) librarianAccount(l *models.Librarian) models.LibrarianAccount {
	u := m.users[l.UserID]
	acc := models.LibrarianAccount{Librarian: *l}
	if u != nil {
		acc.Username, acc.FullName, acc.Email, acc.PhoneNumber, acc.CreatedAt = u.Username, u.FullName, u.Email, u.PhoneNumber, u.CreatedAt
	}
	return acc
}

func (m *MemStore) ListLibrarians(context.Context) ([]models.LibrarianView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LibrarianView{}
	for _, l := range m.librarians {
		n := 0
		for _, s := range m.slips {
			if s.LibrarianID != nil && *s.LibrarianID == l.ID {
				n++
			}
		}
		out = append(out, models.LibrarianView{LibrarianAccount: m.librarianAccount(l), TotalBorrowSlips: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) DeleteLibrarian(_ context.Context, libID string) (*models.LibrarianAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.librarians[libID]
	if !ok {
		return nil, store.ErrNotFound
	}
	acc := m.librarianAccount(l)
	delete(m.librarians, libID)
	delete(m.users, l.UserID)
	return &acc, nil
}

// ---- catalog ----

func (m *MemStore) titleView(t *models.BookTitle) models.BookTitle {
	v := *t
	v.Category, v.Publisher = "", ""
	if t.CategoryID != nil {
		if c, ok := m.categories[*t.CategoryID]; ok {
			v.Category = c.Name
		}
	}
	if t.PublisherID != nil {
		if p, ok := m.publishers[*t.PublisherID]; ok {
			v.Publisher = p.Name
		}
	}
	return v
}

func (m *MemStore) ListTitles(_ context.Context, f models.CatalogFilter) ([]models.BookTitle, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.BookTitle{}
	for _, t := range m.titles {
		v := m.titleView(t)
		if f.Category != "" && v.Category != f.Category {
			continue
		}
		if f.Publisher != "" && v.Publisher != f.Publisher {
			continue
		}
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	if f.PageSize > 0 {
		return search.Page(all, f.Page, f.PageSize), len(all), nil
	}
	return all, len(all), nil
}

func (m *MemStore) GetTitle(_ context.Context, id string) (*models.BookTitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.titles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := m.titleView(t)
	return &v, nil
}

func (m *MemStore) isbnTaken(isbn, except string) bool {
	for _, t := range m.titles {
		if t.ISBN == isbn && t.ID != except {
			return true
		}
	}
	return false
}

func (m *MemStore) CreateTitle(_ context.Context, t *models.BookTitle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isbnTaken(t.ISBN, "") {
		return store.ErrConflict
	}
	c := *t
	m.titles[t.ID] = &c
	return nil
}

func (m *MemStore) UpdateTitle(_ context.Context, t *models.BookTitle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.titles[t.ID]
	if !ok {
		return store.ErrNotFound
	}
	if m.isbnTaken(t.ISBN, t.ID) {
		return store.ErrConflict
	}
	cur.Name, cur.Author, cur.ISBN, cur.CategoryID, cur.PublisherID, cur.Price = t.Name, t.Author, t.ISBN, t.CategoryID, t.PublisherID, t.Price
	return nil
}

func (m *MemStore) copyUsed(bookID string) bool {
	for _, d := range m.details {
		if d.BookID == bookID {
			return true
		}
	}
	return false
}

func (m *MemStore) DeleteTitle(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.titles[id]; !ok {
		return store.ErrNotFound
	}
	for _, c := range m.copies {
		if c.BookTitleID == id && m.copyUsed(c.ID) {
			return store.ErrConflict
		}
	}
	for cid, c := range m.copies {
		if c.BookTitleID == id {
			delete(m.copies, cid)
		}
	}
	delete(m.titles, id)
	return nil
}

func (m *MemStore) ListCopies(_ context.Context, titleID string) ([]models.BookCopy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.titles[titleID]; !ok {
		return nil, store.ErrNotFound
	}
	out := []models.BookCopy{}
	for _, c := range m.copies {
		if c.BookTitleID == titleID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) DeleteCopy(_ context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.copies[bookID]
	if !ok {
		return store.ErrNotFound
	}
	if c.BeingBorrowed || m.copyUsed(bookID) {
		return store.ErrConflict
	}
	delete(m.copies, bookID)
	if t, ok := m.titles[c.BookTitleID]; ok {
		t.TotalQuantity = max(t.TotalQuantity-1, 0)
		t.Available = max(t.Available-1, 0)
	}
	return nil
}

func (m *MemStore) ListCategories(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Category{}
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) ListPublishers(context.Context) ([]models.Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Publisher{}
	for _, p := range m.publishers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) CreateCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.categories {
		if x.Name == c.Name {
			return store.ErrConflict
		}
	}
	cc := *c
	m.categories[c.ID] = &cc
	return nil
}

func (m *MemStore) CreatePublisher(_ context.Context, p *models.Publisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.publishers {
		if x.Name == p.Name {
			return store.ErrConflict
		}
	}
	pc := *p
	m.publishers[p.ID] = &pc
	return nil
}

// ---- loans ----

func (m *MemStore) reservedByPending(bookID string) bool {
	for _, d := range m.details {
		if d.BookID == bookID && d.Status == models.BorrowPending {
			return true
		}
	}
	return false
}

func (m *MemStore) CreateBorrowRequest(_ context.Context, readerID string, titleIDs []string, at time.Time) (*models.BorrowSlip, []models.BookCopy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	picked := map[string]bool{}
	var chosen []models.BookCopy
	for _, tid := range titleIDs {
		var free []*models.BookCopy
		for _, c := range m.copies {
			if c.BookTitleID == tid && !c.BeingBorrowed && c.Condition != "lost" && !picked[c.ID] && !m.reservedByPending(c.ID) {
				free = append(free, c)
			}
		}
		if len(free) == 0 {
			return nil, nil, &store.UnavailableError{TitleID: tid}
		}
		sort.Slice(free, func(i, j int) bool {
			if !free[i].CreatedAt.Equal(free[j].CreatedAt) {
				return free[i].CreatedAt.Before(free[j].CreatedAt)
			}
			return free[i].ID < free[j].ID
		})
		picked[free[0].ID] = true
		chosen = append(chosen, *free[0])
	}

	slip := &models.BorrowSlip{ID: uuid.NewString(), ReaderID: readerID, BorrowDate: at.Add(m.tick()), Status: models.BorrowPending}
	m.slips[slip.ID] = slip
	for _, c := range chosen {
		id := fmt.Sprintf("D%06d", len(m.details)+1)
		m.details[id] = &models.BorrowDetail{ID: id, BorrowSlipID: slip.ID, BookID: c.ID, Status: models.BorrowPending}
	}
	cp := *slip
	return &cp, chosen, nil
}

func (m *MemStore) GetSlip(_ context.Context, id string) (*models.BorrowSlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slips[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *MemStore) slipDetails(slipID string) []*models.BorrowDetail {
	var out []*models.BorrowDetail
	for _, d := range m.details {
		if d.BorrowSlipID == slipID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemStore) ListBorrowRequests(_ context.Context, status models.BorrowStatus) ([]models.BorrowRequestView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.BorrowRequestView{}
	for _, s := range m.slips {
		if status != "" && s.Status != status {
			continue
		}
		v := models.BorrowRequestView{BorrowSlipID: s.ID, ReaderID: s.ReaderID, RequestDate: s.BorrowDate, Status: s.Status, Books: []models.BorrowRequestBook{}}
		if r, ok := m.readers[s.ReaderID]; ok {
			if u, ok := m.users[r.UserID]; ok {
				v.ReaderName = u.FullName
			}
		}
		for _, d := range m.slipDetails(s.ID) {
			name := ""
			if c, ok := m.copies[d.BookID]; ok {
				if t, ok := m.titles[c.BookTitleID]; ok {
					name = t.Name
				}
			}
			v.Books = append(v.Books, models.BorrowRequestBook{BookID: d.BookID, Name: name})
		}
		v.BooksCount = len(v.Books)
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestDate.Equal(out[j].RequestDate) {
			return out[i].RequestDate.After(out[j].RequestDate)
		}
		return out[i].BorrowSlipID < out[j].BorrowSlipID
	})
	return out, nil
}

func (m *MemStore) pendingSlip(id string) (*models.BorrowSlip, error) {
	s, ok := m.slips[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.Status != models.BorrowPending {
		return nil, store.ErrInvalidState
	}
	return s, nil
}

func (m *MemStore) ApproveSlip(_ context.Context, slipID, librarianID string, due time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingSlip(slipID)
	if err != nil {
		return err
	}
	details := m.slipDetails(slipID)
	for _, d := range details {
		if c := m.copies[d.BookID]; c != nil && c.BeingBorrowed {
			return &store.UnavailableError{TitleID: c.BookTitleID, BookID: c.ID}
		}
	}
	for _, d := range details {
		if c := m.copies[d.BookID]; c != nil {
			c.BeingBorrowed = true
			if t := m.titles[c.BookTitleID]; t != nil {
				t.Available = max(t.Available-1, 0)
			}
		}
		dd := due
		d.DueDate = &dd
		d.Status = models.BorrowActive
	}
	lib := librarianID
	s.LibrarianID = &lib
	s.Status = models.BorrowActive
	if r := m.readers[s.ReaderID]; r != nil {
		r.TotalBorrowed += len(details)
	}
	return nil
}

func (m *MemStore) CloseSlip(_ context.Context, slipID string, to models.BorrowStatus, librarianID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pendingSlip(slipID)
	if err != nil {
		return err
	}
	s.Status = to
	if librarianID != "" {
		lib := librarianID
		s.LibrarianID = &lib
	}
	for _, d := range m.slipDetails(slipID) {
		d.Status = to
	}
	return nil
}

func (m *MemStore) CountHeld(_ context.Context, readerID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, pending := 0, 0
	for _, d := range m.details {
		if s := m.slips[d.BorrowSlipID]; s != nil && s.ReaderID == readerID && d.Status.Held() {
			held++
		}
	}
	for _, s := range m.slips {
		if s.ReaderID == readerID && s.Status == models.BorrowPending {
			pending++
		}
	}
	return held, pending, nil
}

func (m *MemStore) record(d *models.BorrowDetail) models.LoanRecord {
	rec := models.LoanRecord{
		DetailID:       d.ID,
		SlipID:         d.BorrowSlipID,
		BookID:         d.BookID,
		DueDate:        d.DueDate,
		RealReturnDate: d.RealReturnDate,
		Status:         d.Status,
	}
	if s := m.slips[d.BorrowSlipID]; s != nil {
		rec.ReaderID, rec.BorrowDate, rec.SlipStatus = s.ReaderID, s.BorrowDate, s.Status
		if r := m.readers[s.ReaderID]; r != nil {
			rec.UserID = r.UserID
		}
	}
	if c := m.copies[d.BookID]; c != nil {
		rec.BookTitleID = c.BookTitleID
		if t := m.titles[c.BookTitleID]; t != nil {
			rec.Title, rec.Author, rec.Price = t.Name, t.Author, t.Price
		}
	}
	return rec
}

func (m *MemStore) ListLoans(_ context.Context, f store.LoanFilter) ([]models.LoanRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.LoanRecord{}
	for _, d := range m.details {
		rec := m.record(d)
		if f.ReaderID != "" && rec.ReaderID != f.ReaderID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, d.Status) {
			continue
		}
		if f.DueBefore != nil && (d.DueDate == nil || !d.DueDate.Before(*f.DueBefore)) {
			continue
		}
		if f.DueAfter != nil && (d.DueDate == nil || d.DueDate.Before(*f.DueAfter)) {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].BorrowDate.Equal(all[j].BorrowDate) {
			return all[i].BorrowDate.After(all[j].BorrowDate)
		}
		return all[i].DetailID < all[j].DetailID
	})
	if f.PageSize > 0 {
		return search.Page(all, f.Page, f.PageSize), len(all), nil
	}
	return all, len(all), nil
}

func containsStatus(ss []models.BorrowStatus, s models.BorrowStatus) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (m *MemStore) GetLoan(_ context.Context, detailID string) (*models.LoanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[detailID]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := m.record(d)
	return &rec, nil
}

func (m *MemStore) TransitionLoan(_ context.Context, detailID string, from []models.BorrowStatus, to models.BorrowStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[detailID]
	if !ok {
		return store.ErrNotFound
	}
	if !containsStatus(from, d.Status) {
		return store.ErrInvalidState
	}
	d.Status = to
	return nil
}

func (m *MemStore) onLoan(detailID string) (*models.BorrowDetail, error) {
	d, ok := m.details[detailID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !d.Status.OnLoan() {
		return nil, store.ErrInvalidState
	}
	return d, nil
}

func (m *MemStore) finishSlip(slipID string, at time.Time) bool {
	for _, d := range m.slipDetails(slipID) {
		if d.Status.Held() {
			return false
		}
	}
	s := m.slips[slipID]
	s.Status = models.BorrowReturned
	s.ReturnDate = &at
	return true
}

func (m *MemStore) CompleteReturn(_ context.Context, detailID string, at time.Time, late, damage *models.Penalty) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.onLoan(detailID)
	if err != nil {
		return false, err
	}
	d.Status = models.BorrowReturned
	d.RealReturnDate = &at
	if c := m.copies[d.BookID]; c != nil {
		c.BeingBorrowed = false
		c.Condition = "good"
		if damage != nil {
			c.Condition = "damaged"
		}
		if t := m.titles[c.BookTitleID]; t != nil {
			t.Available = min(t.Available+1, t.TotalQuantity)
		}
	}
	if late != nil {
		late.BorrowDetailID = d.ID
		m.upsertLate(late)
	}
	if damage != nil {
		damage.BorrowDetailID = d.ID
		m.insertPenalty(damage)
	}
	return m.finishSlip(d.BorrowSlipID, at), nil
}

func (m *MemStore) MarkLost(_ context.Context, detailID string, at time.Time, p *models.Penalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.onLoan(detailID)
	if err != nil {
		return err
	}
	d.Status = models.BorrowLost
	if c := m.copies[d.BookID]; c != nil {
		c.BeingBorrowed = false
		c.Condition = "lost"
		if t := m.titles[c.BookTitleID]; t != nil {
			t.TotalQuantity = max(t.TotalQuantity-1, 0)
		}
	}
	p.BorrowDetailID = d.ID
	m.insertPenalty(p)
	m.finishSlip(d.BorrowSlipID, at)
	return nil
}

func (m *MemStore) RecordInfraction(_ context.Context, detailID, cardID string, block bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[detailID]
	if !ok || d.Status != models.BorrowActive {
		return 0, store.ErrInvalidState
	}
	c, ok := m.cards[cardID]
	if !ok {
		return 0, store.ErrNotFound
	}
	d.Status = models.BorrowOverdue
	c.InfractionCount++
	if block {
		c.Status = models.CardBlocked
	}
	return c.InfractionCount, nil
}

// ---- penalties ----

func (m *MemStore) insertPenalty(p *models.Penalty) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PenaltyPending
	}
	p.CreatedAt = p.CreatedAt.Add(m.tick())
	c := *p
	m.penalties[p.ID] = &c
}

func (m *MemStore) upsertLate(p *models.Penalty) bool {
	var open, last *models.Penalty
	settled := 0
	for _, x := range m.penalties {
		if x.BorrowDetailID != p.BorrowDetailID || x.Type != models.PenaltyLate {
			continue
		}
		if x.Status == models.PenaltyPending {
			open = x
			continue
		}
		settled += x.FineAmount
		if last == nil || x.CreatedAt.After(last.CreatedAt) {
			last = x
		}
	}
	owed := p.FineAmount - settled
	if settled > 0 {
		p.Description = fmt.Sprintf("%s (%d VND settled earlier)", p.Description, settled)
	}
	switch {
	case open != nil:
		if owed > 0 {
			open.FineAmount, open.Description = owed, p.Description
		}
		*p = *open
		return false
	case owed > 0:
		p.Type = models.PenaltyLate
		p.Status = models.PenaltyPending
		p.FineAmount = owed
		m.insertPenalty(p)
		return true
	case last != nil:
		*p = *last
	}
	return false
}

func (m *MemStore) CreatePenalty(_ context.Context, p *models.Penalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.details[p.BorrowDetailID]; !ok {
		return store.ErrNotFound
	}
	m.insertPenalty(p)
	return nil
}

func (m *MemStore) UpsertLatePenalty(_ context.Context, p *models.Penalty) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLate(p), nil
}

func (m *MemStore) penaltyView(p *models.Penalty) models.PenaltyView {
	v := models.PenaltyView{Penalty: *p}
	if d := m.details[p.BorrowDetailID]; d != nil {
		rec := m.record(d)
		v.ReaderID, v.BookID, v.Title, v.BorrowDate, v.ReturnDate = rec.ReaderID, rec.BookID, rec.Title, rec.BorrowDate, rec.RealReturnDate
	}
	return v
}

func (m *MemStore) GetPenalty(_ context.Context, id string) (*models.PenaltyView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.penalties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := m.penaltyView(p)
	return &v, nil
}

func (m *MemStore) ListPenalties(_ context.Context, f store.PenaltyFilter) ([]models.PenaltyView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PenaltyView{}
	for _, p := range m.penalties {
		v := m.penaltyView(p)
		if f.ReaderID != "" && v.ReaderID != f.ReaderID {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.DetailID != "" && v.BorrowDetailID != f.DetailID {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) ResolvePenalty(_ context.Context, id string, to models.PenaltyStatus, at time.Time, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.penalties[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status != models.PenaltyPending {
		return store.ErrInvalidState
	}
	p.Status = to
	p.ResolvedAt = &at
	if note != "" {
		p.Description += " | " + note
	}
	return nil
}

func (m *MemStore) UnpaidPenalties(_ context.Context, readerID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, amount := 0, 0
	for _, p := range m.penalties {
		if p.Status == models.PenaltyPending && m.penaltyView(p).ReaderID == readerID {
			n++
			amount += p.FineAmount
		}
	}
	return n, amount, nil
}

// ---- acquisitions ----

func (m *MemStore) CreateAcquisition(_ context.Context, slip *models.AcquisitionSlip, items []models.AcquisitionDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if _, ok := m.titles[it.BookTitleID]; !ok {
			return fmt.Errorf("book title %s: %w", it.BookTitleID, store.ErrNotFound)
		}
	}
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		t := m.titles[it.BookTitleID]
		for c := 0; c < it.Quantity; c++ {
			id := uuid.NewString()
			m.copies[id] = &models.BookCopy{ID: id, BookTitleID: t.ID, Condition: "good", CreatedAt: slip.AccDate.Add(m.tick())}
		}
		t.TotalQuantity += it.Quantity
		t.Available += it.Quantity
		t.Price = it.Price
		it.BookName, it.ISBN, it.Author = t.Name, t.ISBN, t.Author
		it.Category = m.titleView(t).Category
		it.Subtotal = it.Quantity * it.Price
		slip.TotalItems += it.Quantity
		slip.TotalAmount += it.Subtotal
	}
	slip.DetailsCount = len(items)
	if l := m.librarians[slip.LibrarianID]; l != nil {
		if u := m.users[l.UserID]; u != nil {
			slip.LibrarianName = u.FullName
		}
	}
	sc := *slip
	sc.AccDate = sc.AccDate.Add(m.tick())
	m.acqs[slip.ID] = &sc
	m.acqItems[slip.ID] = append([]models.AcquisitionDetail(nil), items...)
	return nil
}

func (m *MemStore) ListAcquisitions(_ context.Context, f store.AcquisitionFilter) ([]models.AcquisitionSlip, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.AcquisitionSlip{}
	for _, a := range m.acqs {
		if f.LibrarianID != "" && a.LibrarianID != f.LibrarianID {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].AccDate.Equal(all[j].AccDate) {
			return all[i].AccDate.After(all[j].AccDate)
		}
		return all[i].ID < all[j].ID
	})
	if f.PageSize > 0 {
		return search.Page(all, f.Page, f.PageSize), len(all), nil
	}
	return all, len(all), nil
}

func (m *MemStore) GetAcquisition(_ context.Context, id string) (*models.AcquisitionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.acqs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.AcquisitionView{AcquisitionSlip: *a, Details: append([]models.AcquisitionDetail{}, m.acqItems[id]...)}, nil
}

// ---- readers and statistics ----

func (m *MemStore) readerStats(r *models.Reader) models.ReaderStats {
	now := m.Now()
	rs := models.ReaderStats{ReaderID: r.ID, UserID: r.UserID, TotalBorrowed: r.TotalBorrowed}
	if u := m.users[r.UserID]; u != nil {
		rs.Username, rs.FullName, rs.Email, rs.PhoneNumber = u.Username, u.FullName, u.Email, u.PhoneNumber
	}
	if c := m.cardByReader(r.ID); c != nil {
		id, ct, st, reg := c.ID, c.CardType, c.Status, c.RegisterDate
		rs.CardID, rs.CardType, rs.CardStatus, rs.RegisterDate = &id, &ct, &st, &reg
		rs.InfractionCount = c.InfractionCount
	}
	for _, d := range m.details {
		s := m.slips[d.BorrowSlipID]
		if s == nil || s.ReaderID != r.ID {
			continue
		}
		switch d.Status {
		case models.BorrowActive, models.BorrowPendingReturn:
			rs.CurrentlyBorrowed++
			if d.DueDate != nil && d.DueDate.Before(now) {
				rs.OverdueBooks++
			}
		case models.BorrowOverdue:
			rs.CurrentlyBorrowed++
			rs.OverdueBooks++
		case models.BorrowReturned:
			rs.ReturnedBooks++
			if d.DueDate != nil && d.RealReturnDate != nil && dateAfter(*d.RealReturnDate, *d.DueDate) {
				rs.LateReturns++
			}
		}
	}
	for _, p := range m.penalties {
		if m.penaltyView(p).ReaderID != r.ID {
			continue
		}
		rs.TotalPenalties++
		if p.Status == models.PenaltyPending {
			rs.UnpaidPenalties++
		}
	}
	return rs
}

func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).After(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}

func (m *MemStore) allReaderStats() []models.ReaderStats {
	out := []models.ReaderStats{}
	for _, r := range m.readers {
		out = append(out, m.readerStats(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReaderID < out[j].ReaderID })
	return out
}

func (m *MemStore) ListReaders(_ context.Context, f models.ReaderFilter) ([]models.ReaderStats, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []models.ReaderStats{}
	q := strings.ToLower(f.Search)
	for _, rs := range m.allReaderStats() {
		if f.Status != "" && (rs.CardStatus == nil || *rs.CardStatus != f.Status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(rs.Username), q) &&
			!strings.Contains(strings.ToLower(rs.FullName), q) && !strings.Contains(strings.ToLower(rs.Email), q) {
			continue
		}
		all = append(all, rs)
	}
	total := len(all)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		all = all[start:end]
	}
	return all, total, nil
}

func (m *MemStore) GetReaderStats(_ context.Context, userID string) (*models.ReaderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.readerByUser(userID)
	if r == nil {
		return nil, store.ErrNotFound
	}
	rs := m.readerStats(r)
	return &rs, nil
}

func (m *MemStore) SearchUsers(_ context.Context, username string, limit int) ([]models.UserSearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserSearchHit{}
	q := strings.ToLower(username)
	for _, u := range m.users {
		if !strings.Contains(strings.ToLower(u.Username), q) {
			continue
		}
		hit := models.UserSearchHit{UserID: u.ID, Username: u.Username, FullName: u.FullName, Email: u.Email, Role: u.Role}
		if r := m.readerByUser(u.ID); r != nil {
			rid, tb := r.ID, r.TotalBorrowed
			hit.ReaderID, hit.TotalBorrowed = &rid, &tb
			if c := m.cardByReader(r.ID); c != nil {
				ic, st := c.InfractionCount, c.Status
				hit.InfractionCount, hit.CardStatus = &ic, &st
			}
		}
		out = append(out, hit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) ReaderSummary(context.Context) (*models.ReaderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.ReaderSummary
	for _, rs := range m.allReaderStats() {
		s.TotalReaders++
		s.TotalActiveBorrows += rs.CurrentlyBorrowed
		s.TotalOverdue += rs.OverdueBooks
		s.TotalUnpaidPenalties += rs.UnpaidPenalties
		if rs.CardStatus != nil {
			switch *rs.CardStatus {
			case models.CardActive:
				s.ActiveCards++
			case models.CardBlocked:
				s.BlockedCards++
			}
		}
	}
	return &s, nil
}

func (m *MemStore) TopReaders(_ context.Context, limit int) ([]models.ReaderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ReaderStats{}
	for _, rs := range m.allReaderStats() {
		if rs.TotalBorrowed > 0 {
			out = append(out, rs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalBorrowed != out[j].TotalBorrowed {
			return out[i].TotalBorrowed > out[j].TotalBorrowed
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) ReadersWithIssues(context.Context) ([]models.ReaderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ReaderStats{}
	for _, rs := range m.allReaderStats() {
		if rs.OverdueBooks > 0 || rs.UnpaidPenalties > 0 {
			out = append(out, rs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OverdueBooks != out[j].OverdueBooks {
			return out[i].OverdueBooks > out[j].OverdueBooks
		}
		if out[i].UnpaidPenalties != out[j].UnpaidPenalties {
			return out[i].UnpaidPenalties > out[j].UnpaidPenalties
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (m *MemStore) CardStats(context.Context) (models.CardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cs models.CardStats
	for _, c := range m.cards {
		cs.TotalIssued++
		switch c.Status {
		case models.CardActive:
			cs.Active++
		case models.CardSuspended:
			cs.Suspended++
		case models.CardBlocked:
			cs.Blocked++
		}
	}
	return cs, nil
}

func (m *MemStore) UserCounts(context.Context) (models.UserCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.UserCounts{TotalReaders: len(m.readers), TotalLibrarians: len(m.librarians)}, nil
}

func (m *MemStore) BorrowStats(context.Context) (models.BorrowStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bs models.BorrowStats
	for _, d := range m.details {
		bs.TotalBorrows++
		if d.Status.OnLoan() {
			bs.ActiveBorrows++
		}
		switch d.Status {
		case models.BorrowOverdue:
			bs.OverdueBorrows++
		case models.BorrowReturned:
			bs.ReturnedBorrows++
		}
	}
	return bs, nil
}

func (m *MemStore) InfractionStats(context.Context) (models.InfractionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var is models.InfractionStats
	for _, c := range m.cards {
		is.TotalInfractions += c.InfractionCount
		if c.InfractionCount > 0 {
			is.ReadersWithInfractions++
		}
	}
	return is, nil
}

func (m *MemStore) PenaltyStats(context.Context) (models.PenaltyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ps models.PenaltyStats
	for _, p := range m.penalties {
		ps.TotalPenalties++
		if p.Status != models.PenaltyCancelled {
			ps.TotalAmount += p.FineAmount
		}
		if p.Status == models.PenaltyPending {
			ps.UnpaidPenalties++
			ps.UnpaidAmount += p.FineAmount
		}
	}
	return ps, nil
}

func (m *MemStore) CountSlipsSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.slips {
		if !s.BorrowDate.Before(since) {
			n++
		}
	}
	return n, nil
}

// ---- notifications ----

func (m *MemStore) CreateNotification(_ context.Context, userID, key, message string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "\x00" + key
	if key != "" {
		if _, dup := m.notifKeys[k]; dup {
			return false, nil
		}
	}
	m.nextNotif++
	if key != "" {
		m.notifKeys[k] = m.nextNotif
	}
	m.notifs = append(m.notifs, models.Notification{ID: m.nextNotif, UserID: userID, Message: message, CreatedAt: m.Now().Add(m.tick())})
	return true, nil
}

func (m *MemStore) ListNotifications(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for i := len(m.notifs) - 1; i >= 0; i-- {
		if m.notifs[i].UserID == userID {
			out = append(out, m.notifs[i])
		}
	}
	return out, nil
}

func (m *MemStore) MarkNotificationRead(_ context.Context, id int, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifs {
		if m.notifs[i].ID == id && m.notifs[i].UserID == userID {
			m.notifs[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MemStore) DeleteNotification(_ context.Context, id int, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifs {
		if m.notifs[i].ID == id && m.notifs[i].UserID == userID {
			m.notifs = append(m.notifs[:i], m.notifs[i+1:]...)
			for k, n := range m.notifKeys {
				if n == id {
					delete(m.notifKeys, k)
				}
			}
			return nil
		}
	}
	return store.ErrNotFound
}
