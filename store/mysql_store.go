package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/config"
)

const dialectMySQL = "mysql"

// mysqlErrDuplicate is ER_DUP_ENTRY.
const mysqlErrDuplicate = 1062

var dialect = goqu.Dialect(dialectMySQL)

type MySQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ Store = (*MySQLStore)(nil)

func NewMySQLStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &MySQLStore{db: db, logger: logger}, nil
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR(36) PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		full_name VARCHAR(100) NOT NULL,
		email VARCHAR(100) NOT NULL UNIQUE,
		phone_number VARCHAR(15),
		dob DATE,
		address VARCHAR(255),
		gender VARCHAR(10),
		role VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		last_login DATETIME,
		last_logout DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS readers (
		reader_id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL UNIQUE,
		total_borrowed INT NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS librarians (
		lib_id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL UNIQUE,
		years_of_experience INT NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS managers (
		manager_id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL UNIQUE,
		access_level INT NOT NULL DEFAULT 1,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS reading_cards (
		card_id VARCHAR(36) PRIMARY KEY,
		reader_id VARCHAR(36) NOT NULL UNIQUE,
		card_type VARCHAR(20) NOT NULL,
		fee INT NOT NULL DEFAULT 0,
		register_date DATETIME NOT NULL,
		register_office VARCHAR(100),
		status VARCHAR(20) NOT NULL,
		infraction_count INT NOT NULL DEFAULT 0,
		FOREIGN KEY (reader_id) REFERENCES readers(reader_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS publishers (
		pub_id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		address VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		cat_id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS book_titles (
		book_title_id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		author VARCHAR(100),
		isbn VARCHAR(20) NOT NULL UNIQUE,
		category_id VARCHAR(36),
		publisher_id VARCHAR(36),
		total_quantity INT NOT NULL DEFAULT 0,
		available INT NOT NULL DEFAULT 0,
		price INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (category_id) REFERENCES categories(cat_id),
		FOREIGN KEY (publisher_id) REFERENCES publishers(pub_id)
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		book_id VARCHAR(36) PRIMARY KEY,
		book_title_id VARCHAR(36) NOT NULL,
		book_condition VARCHAR(20) NOT NULL DEFAULT 'good',
		being_borrowed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (book_title_id) REFERENCES book_titles(book_title_id)
	)`,
	`CREATE TABLE IF NOT EXISTS borrow_slips (
		bs_id VARCHAR(36) PRIMARY KEY,
		reader_id VARCHAR(36) NOT NULL,
		librarian_id VARCHAR(36),
		borrow_date DATETIME NOT NULL,
		return_date DATETIME,
		status VARCHAR(20) NOT NULL,
		INDEX idx_borrow_slips_status (status),
		FOREIGN KEY (reader_id) REFERENCES readers(reader_id)
	)`,
	`CREATE TABLE IF NOT EXISTS borrow_slip_details (
		id VARCHAR(36) PRIMARY KEY,
		borrow_slip_id VARCHAR(36) NOT NULL,
		book_id VARCHAR(36) NOT NULL,
		due_date DATETIME,
		real_return_date DATETIME,
		status VARCHAR(20) NOT NULL,
		INDEX idx_details_status (status),
		FOREIGN KEY (borrow_slip_id) REFERENCES borrow_slips(bs_id),
		FOREIGN KEY (book_id) REFERENCES books(book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS penalty_slips (
		penalty_id VARCHAR(36) PRIMARY KEY,
		borrow_detail_id VARCHAR(36) NOT NULL,
		penalty_type VARCHAR(20) NOT NULL,
		description VARCHAR(255),
		fine_amount INT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		resolved_at DATETIME,
		FOREIGN KEY (borrow_detail_id) REFERENCES borrow_slip_details(id)
	)`,
	`CREATE TABLE IF NOT EXISTS acquisition_slips (
		acq_id VARCHAR(36) PRIMARY KEY,
		librarian_id VARCHAR(36) NOT NULL,
		acc_date DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS acquisition_slip_details (
		id VARCHAR(36) PRIMARY KEY,
		acquisition_slip_id VARCHAR(36) NOT NULL,
		book_title_id VARCHAR(36) NOT NULL,
		quantity INT NOT NULL,
		price INT NOT NULL DEFAULT 0,
		FOREIGN KEY (acquisition_slip_id) REFERENCES acquisition_slips(acq_id),
		FOREIGN KEY (book_title_id) REFERENCES book_titles(book_title_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		dedup_key VARCHAR(128) NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_notifications_key (user_id, dedup_key),
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
}

// InitSchema creates any missing tables. It is safe to run repeatedly.
func (s *MySQLStore) InitSchema(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %v, error: %w", query, err)
		}
	}
	s.logger.Info("schema ready", zap.Int("tables", len(schema)))
	return nil
}

// withTx runs fn in a transaction, committing only if fn returns nil.
func (s *MySQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// getx runs a goqu select into dest, mapping no rows to ErrNotFound.
func getx(ctx context.Context, q sqlx.QueryerContext, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func selectx(ctx context.Context, q sqlx.QueryerContext, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func countx(ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset) (int, error) {
	var n int
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	if err := sqlx.GetContext(ctx, q, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicate
}

// affectedOne maps a zero-row update to ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func offset(page, size int) uint {
	if page < 1 {
		page = 1
	}
	return uint((page - 1) * size)
}
