package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func (s *MySQLStore) CreateAcquisition(ctx context.Context, slip *models.AcquisitionSlip, items []models.AcquisitionDetail) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO acquisition_slips (acq_id, librarian_id, acc_date) VALUES (?, ?, ?)`,
			slip.ID, slip.LibrarianID, slip.AccDate); err != nil {
			return err
		}
		for i := range items {
			it := &items[i]
			var n int
			if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM book_titles WHERE book_title_id = ? FOR UPDATE`, it.BookTitleID); err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("book title %s: %w", it.BookTitleID, ErrNotFound)
			}
			if it.ID == "" {
				it.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO acquisition_slip_details (id, acquisition_slip_id, book_title_id, quantity, price)
				VALUES (?, ?, ?, ?, ?)`, it.ID, slip.ID, it.BookTitleID, it.Quantity, it.Price); err != nil {
				return err
			}
			for c := 0; c < it.Quantity; c++ {
				if _, err := tx.ExecContext(ctx, `INSERT INTO books (book_id, book_title_id, book_condition, being_borrowed, created_at)
					VALUES (?, ?, 'good', FALSE, ?)`, uuid.NewString(), it.BookTitleID, slip.AccDate); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE book_titles
				SET total_quantity = total_quantity + ?, available = available + ?, price = ?
				WHERE book_title_id = ?`, it.Quantity, it.Quantity, it.Price, it.BookTitleID); err != nil {
				return err
			}
			it.Subtotal = it.Quantity * it.Price
			slip.TotalItems += it.Quantity
			slip.TotalAmount += it.Subtotal
		}
		slip.DetailsCount = len(items)
		return nil
	})
}

func (s *MySQLStore) ListAcquisitions(ctx context.Context, f AcquisitionFilter) ([]models.AcquisitionSlip, int, error) {
	base := acquisitionsQuery(f)
	total, err := countx(ctx, s.db, countOf(base))
	if err != nil {
		return nil, 0, fmt.Errorf("count acquisitions: %w", err)
	}
	ds := base.Order(goqu.I("a.acc_date").Desc(), goqu.I("a.acq_id").Asc())
	if f.PageSize > 0 {
		ds = ds.Limit(uint(f.PageSize)).Offset(offset(f.Page, f.PageSize))
	}
	var out []models.AcquisitionSlip
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, 0, fmt.Errorf("list acquisitions: %w", err)
	}
	return out, total, nil
}

func (s *MySQLStore) GetAcquisition(ctx context.Context, id string) (*models.AcquisitionView, error) {
	var v models.AcquisitionView
	if err := getx(ctx, s.db, &v.AcquisitionSlip, acquisitionsQuery(AcquisitionFilter{}).Where(goqu.I("a.acq_id").Eq(id))); err != nil {
		return nil, err
	}
	err := s.db.SelectContext(ctx, &v.Details, `
		SELECT x.id, x.book_title_id, t.name AS book_name, t.isbn, COALESCE(t.author, '') AS author,
			COALESCE(c.name, '') AS category, x.quantity, x.price, x.quantity * x.price AS subtotal
		FROM acquisition_slip_details x
		JOIN book_titles t ON t.book_title_id = x.book_title_id
		LEFT JOIN categories c ON c.cat_id = t.category_id
		WHERE x.acquisition_slip_id = ?
		ORDER BY x.id`, id)
	if err != nil {
		return nil, fmt.Errorf("acquisition details: %w", err)
	}
	return &v, nil
}
