package store

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func (s *MySQLStore) ListReaders(ctx context.Context, f models.ReaderFilter) ([]models.ReaderStats, int, error) {
	base := readerStatsQuery(f)
	total, err := countx(ctx, s.db, countOf(base))
	if err != nil {
		return nil, 0, fmt.Errorf("count readers: %w", err)
	}
	ds := base.Order(goqu.I("c.register_date").Desc(), goqu.I("r.reader_id").Asc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit)).Offset(uint(f.Offset))
	}
	out := []models.ReaderStats{}
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, 0, fmt.Errorf("list readers: %w", err)
	}
	return out, total, nil
}

func (s *MySQLStore) GetReaderStats(ctx context.Context, userID string) (*models.ReaderStats, error) {
	var rs models.ReaderStats
	if err := getx(ctx, s.db, &rs, readerStatsQuery(models.ReaderFilter{}).Where(goqu.I("u.user_id").Eq(userID))); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *MySQLStore) SearchUsers(ctx context.Context, username string, limit int) ([]models.UserSearchHit, error) {
	ds := dialect.From(goqu.T("users").As("u")).
		LeftJoin(goqu.T("readers").As("r"), goqu.On(goqu.I("r.user_id").Eq(goqu.I("u.user_id")))).
		LeftJoin(goqu.T("reading_cards").As("c"), goqu.On(goqu.I("c.reader_id").Eq(goqu.I("r.reader_id")))).
		Select(
			goqu.I("u.user_id"), goqu.I("u.username"), goqu.I("u.full_name"), goqu.I("u.email"), goqu.I("u.role"),
			goqu.I("r.reader_id"), goqu.I("r.total_borrowed"), goqu.I("c.infraction_count"), goqu.I("c.status").As("card_status"),
		).
		Where(goqu.I("u.username").ILike(containsPattern(username))).
		Order(goqu.I("u.username").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	out := []models.UserSearchHit{}
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return out, nil
}

func (s *MySQLStore) ReaderSummary(ctx context.Context) (*models.ReaderSummary, error) {
	ds := readerView().Select(
		goqu.COUNT(goqu.Star()).As("total_readers"),
		goqu.COALESCE(goqu.SUM("currently_borrowed"), 0).As("total_active_borrows"),
		goqu.COALESCE(goqu.SUM("overdue_books"), 0).As("total_overdue"),
		goqu.L(`COALESCE(SUM(CASE WHEN card_status = 'Active' THEN 1 ELSE 0 END), 0)`).As("active_cards"),
		goqu.L(`COALESCE(SUM(CASE WHEN card_status = 'Blocked' THEN 1 ELSE 0 END), 0)`).As("blocked_cards"),
		goqu.COALESCE(goqu.SUM("unpaid_penalties"), 0).As("total_unpaid_penalties"),
	)
	var sum models.ReaderSummary
	if err := getx(ctx, s.db, &sum, ds); err != nil {
		return nil, fmt.Errorf("reader summary: %w", err)
	}
	return &sum, nil
}

func (s *MySQLStore) TopReaders(ctx context.Context, limit int) ([]models.ReaderStats, error) {
	ds := readerView().
		Where(goqu.C("total_borrowed").Gt(0)).
		Order(goqu.C("total_borrowed").Desc(), goqu.C("username").Asc()).
		Limit(uint(limit))
	out := []models.ReaderStats{}
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, fmt.Errorf("top readers: %w", err)
	}
	return out, nil
}

func (s *MySQLStore) ReadersWithIssues(ctx context.Context) ([]models.ReaderStats, error) {
	ds := readerView().
		Where(goqu.Or(goqu.C("overdue_books").Gt(0), goqu.C("unpaid_penalties").Gt(0))).
		Order(goqu.C("overdue_books").Desc(), goqu.C("unpaid_penalties").Desc(), goqu.C("username").Asc())
	out := []models.ReaderStats{}
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, fmt.Errorf("readers with issues: %w", err)
	}
	return out, nil
}

func (s *MySQLStore) CardStats(ctx context.Context) (models.CardStats, error) {
	var row struct {
		Total     int `db:"total"`
		Active    int `db:"active"`
		Suspended int `db:"suspended"`
		Blocked   int `db:"blocked"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT COUNT(*) AS total,
		COALESCE(SUM(status = 'Active'), 0) AS active,
		COALESCE(SUM(status = 'Suspended'), 0) AS suspended,
		COALESCE(SUM(status = 'Blocked'), 0) AS blocked
		FROM reading_cards`)
	return models.CardStats{TotalIssued: row.Total, Active: row.Active, Suspended: row.Suspended, Blocked: row.Blocked}, err
}

func (s *MySQLStore) UserCounts(ctx context.Context) (models.UserCounts, error) {
	var uc models.UserCounts
	if err := s.db.GetContext(ctx, &uc.TotalReaders, `SELECT COUNT(*) FROM readers`); err != nil {
		return uc, err
	}
	err := s.db.GetContext(ctx, &uc.TotalLibrarians, `SELECT COUNT(*) FROM librarians`)
	return uc, err
}

// BorrowStats fills counts only; rates are derived by the caller.
func (s *MySQLStore) BorrowStats(ctx context.Context) (models.BorrowStats, error) {
	var row struct {
		Total    int `db:"total"`
		Active   int `db:"active"`
		Overdue  int `db:"overdue"`
		Returned int `db:"returned"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT COUNT(*) AS total,
		COALESCE(SUM(status IN ('Active', 'Overdue', 'PendingReturn')), 0) AS active,
		COALESCE(SUM(status = 'Overdue'), 0) AS overdue,
		COALESCE(SUM(status = 'Returned'), 0) AS returned
		FROM borrow_slip_details`)
	return models.BorrowStats{
		TotalBorrows:    row.Total,
		ActiveBorrows:   row.Active,
		OverdueBorrows:  row.Overdue,
		ReturnedBorrows: row.Returned,
	}, err
}

func (s *MySQLStore) InfractionStats(ctx context.Context) (models.InfractionStats, error) {
	var row struct {
		Total   int `db:"total"`
		Readers int `db:"readers"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT COALESCE(SUM(infraction_count), 0) AS total,
		COALESCE(SUM(infraction_count > 0), 0) AS readers FROM reading_cards`)
	return models.InfractionStats{TotalInfractions: row.Total, ReadersWithInfractions: row.Readers}, err
}

func (s *MySQLStore) PenaltyStats(ctx context.Context) (models.PenaltyStats, error) {
	var row struct {
		Total        int `db:"total"`
		Unpaid       int `db:"unpaid"`
		Amount       int `db:"amount"`
		UnpaidAmount int `db:"unpaid_amount"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT COUNT(*) AS total,
		COALESCE(SUM(status = 'Pending'), 0) AS unpaid,
		COALESCE(SUM(CASE WHEN status <> 'Cancelled' THEN fine_amount ELSE 0 END), 0) AS amount,
		COALESCE(SUM(CASE WHEN status = 'Pending' THEN fine_amount ELSE 0 END), 0) AS unpaid_amount
		FROM penalty_slips`)
	return models.PenaltyStats{
		TotalPenalties:  row.Total,
		UnpaidPenalties: row.Unpaid,
		TotalAmount:     row.Amount,
		UnpaidAmount:    row.UnpaidAmount,
	}, err
}

func (s *MySQLStore) CountSlipsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM borrow_slips WHERE borrow_date >= ?`, since)
	return n, err
}
