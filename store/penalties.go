package store

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

func insertPenalty(ctx context.Context, e sqlx.ExtContext, p *models.Penalty) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PenaltyPending
	}
	_, err := sqlx.NamedExecContext(ctx, e, `INSERT INTO penalty_slips
		(penalty_id, borrow_detail_id, penalty_type, description, fine_amount, status, created_at, resolved_at)
		VALUES (:penalty_id, :borrow_detail_id, :penalty_type, :description, :fine_amount, :status, :created_at, :resolved_at)`, p)
	return err
}

// upsertLate keeps at most one Pending late penalty per detail, billed for
// p.FineAmount less whatever earlier late penalties on the detail already
// settled. When nothing is left to bill the latest settled one is reported
// back unchanged.
func upsertLate(ctx context.Context, tx *sqlx.Tx, p *models.Penalty) (bool, error) {
	var existing []models.Penalty
	err := tx.SelectContext(ctx, &existing, `SELECT penalty_id, borrow_detail_id, penalty_type, COALESCE(description, '') AS description,
		fine_amount, status, created_at, resolved_at
		FROM penalty_slips WHERE borrow_detail_id = ? AND penalty_type = ? ORDER BY created_at FOR UPDATE`, p.BorrowDetailID, string(models.PenaltyLate))
	if err != nil {
		return false, err
	}
	open, settled, last := splitLate(existing)
	owed := p.FineAmount - settled
	if settled > 0 {
		p.Description = fmt.Sprintf("%s (%d VND settled earlier)", p.Description, settled)
	}
	switch {
	case open != nil:
		if owed > 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE penalty_slips SET fine_amount = ?, description = ? WHERE penalty_id = ?`,
				owed, p.Description, open.ID); err != nil {
				return false, err
			}
			open.FineAmount, open.Description = owed, p.Description
		}
		*p = *open
		return false, nil
	case owed > 0:
		p.Type = models.PenaltyLate
		p.Status = models.PenaltyPending
		p.FineAmount = owed
		return true, insertPenalty(ctx, tx, p)
	case last != nil:
		*p = *last
	}
	return false, nil
}

// splitLate returns the Pending late penalty, the total of settled ones and
// the most recent settled one.
func splitLate(ps []models.Penalty) (open *models.Penalty, settled int, last *models.Penalty) {
	for i := range ps {
		if ps[i].Status == models.PenaltyPending {
			open = &ps[i]
			continue
		}
		settled += ps[i].FineAmount
		last = &ps[i]
	}
	return open, settled, last
}

func (s *MySQLStore) CreatePenalty(ctx context.Context, p *models.Penalty) error {
	return insertPenalty(ctx, s.db, p)
}

func (s *MySQLStore) UpsertLatePenalty(ctx context.Context, p *models.Penalty) (bool, error) {
	var created bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = upsertLate(ctx, tx, p)
		return err
	})
	return created, err
}

func (s *MySQLStore) GetPenalty(ctx context.Context, id string) (*models.PenaltyView, error) {
	var p models.PenaltyView
	if err := getx(ctx, s.db, &p, penaltiesQuery(PenaltyFilter{}).Where(goqu.I("p.penalty_id").Eq(id))); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MySQLStore) ListPenalties(ctx context.Context, f PenaltyFilter) ([]models.PenaltyView, error) {
	var out []models.PenaltyView
	if err := selectx(ctx, s.db, &out, penaltiesQuery(f)); err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	return out, nil
}

// ResolvePenalty settles a Pending penalty. note is appended to the
// description when given.
func (s *MySQLStore) ResolvePenalty(ctx context.Context, id string, to models.PenaltyStatus, at time.Time, note string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var status models.PenaltyStatus
		if err := tx.GetContext(ctx, &status, `SELECT status FROM penalty_slips WHERE penalty_id = ? FOR UPDATE`, id); err != nil {
			return notFound(err)
		}
		if status != models.PenaltyPending {
			return fmt.Errorf("penalty %s is %s: %w", id, status, ErrInvalidState)
		}
		_, err := tx.ExecContext(ctx, `UPDATE penalty_slips SET status = ?, resolved_at = ?,
			description = CASE WHEN ? = '' THEN description ELSE CONCAT(COALESCE(description, ''), ' | ', ?) END
			WHERE penalty_id = ?`, string(to), at, note, note, id)
		return err
	})
}

func (s *MySQLStore) UnpaidPenalties(ctx context.Context, readerID string) (int, int, error) {
	var row struct {
		Count  int `db:"n"`
		Amount int `db:"amount"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT COUNT(*) AS n, COALESCE(SUM(p.fine_amount), 0) AS amount
		FROM penalty_slips p JOIN borrow_slip_details d ON d.id = p.borrow_detail_id
		JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id
		WHERE s.reader_id = ? AND p.status = ?`, readerID, string(models.PenaltyPending))
	if err != nil {
		return 0, 0, err
	}
	return row.Count, row.Amount, nil
}
