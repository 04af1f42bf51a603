package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func (s *MySQLStore) ListTitles(ctx context.Context, f models.CatalogFilter) ([]models.BookTitle, int, error) {
	base := titlesQuery(f)
	total, err := countx(ctx, s.db, countOf(base))
	if err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	ds := base.Order(goqu.I("t.name").Asc(), goqu.I("t.book_title_id").Asc())
	if f.PageSize > 0 {
		ds = ds.Limit(uint(f.PageSize)).Offset(offset(f.Page, f.PageSize))
	}
	var out []models.BookTitle
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	return out, total, nil
}

func (s *MySQLStore) GetTitle(ctx context.Context, id string) (*models.BookTitle, error) {
	var t models.BookTitle
	if err := getx(ctx, s.db, &t, titlesQuery(models.CatalogFilter{}).Where(goqu.I("t.book_title_id").Eq(id))); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MySQLStore) CreateTitle(ctx context.Context, t *models.BookTitle) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO book_titles
		(book_title_id, name, author, isbn, category_id, publisher_id, total_quantity, available, price, created_at)
		VALUES (:book_title_id, :name, :author, :isbn, :category_id, :publisher_id, :total_quantity, :available, :price, :created_at)`, t)
	if isDuplicate(err) {
		return fmt.Errorf("isbn %s: %w", t.ISBN, ErrConflict)
	}
	return err
}

func (s *MySQLStore) UpdateTitle(ctx context.Context, t *models.BookTitle) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE book_titles SET name = :name, author = :author, isbn = :isbn,
		category_id = :category_id, publisher_id = :publisher_id, price = :price
		WHERE book_title_id = :book_title_id`, t)
	if isDuplicate(err) {
		return fmt.Errorf("isbn %s: %w", t.ISBN, ErrConflict)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetTitle(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTitle removes a title and its copies. Titles whose copies appear in
// any borrow record are kept for history and yield ErrConflict.
func (s *MySQLStore) DeleteTitle(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM book_titles WHERE book_title_id = ? FOR UPDATE`, id); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		var used int
		if err := tx.GetContext(ctx, &used, `SELECT COUNT(*) FROM borrow_slip_details d
			JOIN books b ON b.book_id = d.book_id WHERE b.book_title_id = ?`, id); err != nil {
			return err
		}
		if used > 0 {
			return fmt.Errorf("title %s has borrow records: %w", id, ErrConflict)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM acquisition_slip_details WHERE book_title_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE book_title_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM book_titles WHERE book_title_id = ?`, id)
		return err
	})
}

func (s *MySQLStore) ListCopies(ctx context.Context, titleID string) ([]models.BookCopy, error) {
	if _, err := s.GetTitle(ctx, titleID); err != nil {
		return nil, err
	}
	var out []models.BookCopy
	err := s.db.SelectContext(ctx, &out, `SELECT book_id, book_title_id, book_condition, being_borrowed, created_at
		FROM books WHERE book_title_id = ? ORDER BY created_at, book_id`, titleID)
	return out, err
}

// DeleteCopy removes an unused copy and lowers its title's stock.
func (s *MySQLStore) DeleteCopy(ctx context.Context, bookID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var c models.BookCopy
		if err := tx.GetContext(ctx, &c, `SELECT book_id, book_title_id, book_condition, being_borrowed, created_at
			FROM books WHERE book_id = ? FOR UPDATE`, bookID); err != nil {
			return notFound(err)
		}
		var used int
		if err := tx.GetContext(ctx, &used, `SELECT COUNT(*) FROM borrow_slip_details WHERE book_id = ?`, bookID); err != nil {
			return err
		}
		if c.BeingBorrowed || used > 0 {
			return fmt.Errorf("copy %s has borrow records: %w", bookID, ErrConflict)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE book_id = ?`, bookID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE book_titles
			SET total_quantity = GREATEST(total_quantity - 1, 0), available = GREATEST(available - 1, 0)
			WHERE book_title_id = ?`, c.BookTitleID)
		return err
	})
}

func (s *MySQLStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.db.SelectContext(ctx, &out, `SELECT cat_id, name FROM categories ORDER BY name`)
	return out, err
}

func (s *MySQLStore) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	var out []models.Publisher
	err := s.db.SelectContext(ctx, &out, `SELECT pub_id, name, address FROM publishers ORDER BY name`)
	return out, err
}

func (s *MySQLStore) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO categories (cat_id, name) VALUES (:cat_id, :name)`, c)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (s *MySQLStore) CreatePublisher(ctx context.Context, p *models.Publisher) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO publishers (pub_id, name, address) VALUES (:pub_id, :name, :address)`, p)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}
