package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

const userColumns = `user_id, username, password, full_name, email, phone_number, dob, address, gender, role, created_at, last_login, last_logout`

func insertUser(ctx context.Context, tx *sqlx.Tx, u *models.User) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (:user_id, :username, :password, :full_name, :email, :phone_number, :dob, :address, :gender, :role, :created_at, :last_login, :last_logout)`, u)
	if isDuplicate(err) {
		if strings.Contains(err.Error(), "email") {
			return ErrEmailExists
		}
		return ErrUserExists
	}
	return err
}

// checkUnique reports ErrUserExists or ErrEmailExists before an insert so
// callers get a precise error without parsing driver messages.
func checkUnique(ctx context.Context, tx *sqlx.Tx, username, email string) error {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return err
	}
	if n > 0 {
		return ErrUserExists
	}
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE email = ?`, email); err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailExists
	}
	return nil
}

func (s *MySQLStore) CreateReader(ctx context.Context, u *models.User, r *models.Reader, c *models.ReadingCard) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkUnique(ctx, tx, u.Username, u.Email); err != nil {
			return err
		}
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO readers (reader_id, user_id, total_borrowed)
			VALUES (:reader_id, :user_id, :total_borrowed)`, r); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO reading_cards
			(card_id, reader_id, card_type, fee, register_date, register_office, status, infraction_count)
			VALUES (:card_id, :reader_id, :card_type, :fee, :register_date, :register_office, :status, :infraction_count)`, c)
		return err
	})
}

func (s *MySQLStore) CreateLibrarian(ctx context.Context, u *models.User, l *models.Librarian) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkUnique(ctx, tx, u.Username, u.Email); err != nil {
			return err
		}
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO librarians (lib_id, user_id, years_of_experience)
			VALUES (:lib_id, :user_id, :years_of_experience)`, l)
		return err
	})
}

func (s *MySQLStore) CreateManager(ctx context.Context, u *models.User, m *models.Manager) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkUnique(ctx, tx, u.Username, u.Email); err != nil {
			return err
		}
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO managers (manager_id, user_id, access_level)
			VALUES (:manager_id, :user_id, :access_level)`, m)
		return err
	})
}

func (s *MySQLStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := getx(ctx, s.db, &u, dialect.From("users").Select(goqu.L(userColumns)).Where(goqu.C("user_id").Eq(id))); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MySQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := getx(ctx, s.db, &u, dialect.From("users").Select(goqu.L(userColumns)).Where(goqu.C("username").Eq(username))); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MySQLStore) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	return affectedOne(s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE user_id = ?`, at, userID))
}

func (s *MySQLStore) RecordLogout(ctx context.Context, userID string, at time.Time) error {
	return affectedOne(s.db.ExecContext(ctx, `UPDATE users SET last_logout = ? WHERE user_id = ?`, at, userID))
}

func (s *MySQLStore) GetReaderByUserID(ctx context.Context, userID string) (*models.Reader, error) {
	var r models.Reader
	if err := getx(ctx, s.db, &r, dialect.From("readers").Where(goqu.C("user_id").Eq(userID))); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MySQLStore) GetReader(ctx context.Context, readerID string) (*models.Reader, error) {
	var r models.Reader
	if err := getx(ctx, s.db, &r, dialect.From("readers").Where(goqu.C("reader_id").Eq(readerID))); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MySQLStore) GetLibrarianByUserID(ctx context.Context, userID string) (*models.Librarian, error) {
	var l models.Librarian
	if err := getx(ctx, s.db, &l, dialect.From("librarians").Where(goqu.C("user_id").Eq(userID))); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MySQLStore) GetManagerByUserID(ctx context.Context, userID string) (*models.Manager, error) {
	var m models.Manager
	if err := getx(ctx, s.db, &m, dialect.From("managers").Where(goqu.C("user_id").Eq(userID))); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MySQLStore) GetCard(ctx context.Context, readerID string) (*models.ReadingCard, error) {
	var c models.ReadingCard
	if err := getx(ctx, s.db, &c, dialect.From("reading_cards").Where(goqu.C("reader_id").Eq(readerID))); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MySQLStore) SetCardStatus(ctx context.Context, cardID string, status models.CardStatus, resetInfractions bool) error {
	q := `UPDATE reading_cards SET status = ? WHERE card_id = ?`
	if resetInfractions {
		q = `UPDATE reading_cards SET status = ?, infraction_count = 0 WHERE card_id = ?`
	}
	res, err := s.db.ExecContext(ctx, q, string(status), cardID)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows for a no-op update, so confirm existence.
	if n, _ := res.RowsAffected(); n == 0 {
		var c int
		if err := s.db.GetContext(ctx, &c, `SELECT COUNT(*) FROM reading_cards WHERE card_id = ?`, cardID); err != nil {
			return err
		}
		if c == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *MySQLStore) ListLibrarians(ctx context.Context) ([]models.LibrarianView, error) {
	var out []models.LibrarianView
	err := s.db.SelectContext(ctx, &out, `
		SELECT l.lib_id, l.user_id, l.years_of_experience, u.username, u.full_name, u.email, u.phone_number, u.created_at,
			(SELECT COUNT(*) FROM borrow_slips s WHERE s.librarian_id = l.lib_id) AS total_borrow_slips
		FROM librarians l JOIN users u ON u.user_id = l.user_id
		ORDER BY u.full_name, l.lib_id`)
	if err != nil {
		return nil, fmt.Errorf("list librarians: %w", err)
	}
	return out, nil
}

// DeleteLibrarian removes the profile and its user row. Slips keep the
// librarian id for history.
func (s *MySQLStore) DeleteLibrarian(ctx context.Context, libID string) (*models.LibrarianAccount, error) {
	var acc models.LibrarianAccount
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &acc, `
			SELECT l.lib_id, l.user_id, l.years_of_experience, u.username, u.full_name, u.email, u.phone_number, u.created_at
			FROM librarians l JOIN users u ON u.user_id = l.user_id WHERE l.lib_id = ? FOR UPDATE`, libID)
		if err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM librarians WHERE lib_id = ?`, libID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, acc.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
