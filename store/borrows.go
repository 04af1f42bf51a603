package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

var heldStatuses = []models.BorrowStatus{
	models.BorrowPending, models.BorrowActive, models.BorrowOverdue, models.BorrowPendingReturn,
}

// freeCopyQuery picks a copy of title that is neither lent out, lost, nor
// reserved by another pending request.
func freeCopyQuery(titleID string, exclude []string) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("books").As("b")).
		Select(goqu.I("b.book_id"), goqu.I("b.book_title_id"), goqu.I("b.book_condition"), goqu.I("b.being_borrowed"), goqu.I("b.created_at")).
		Where(
			goqu.I("b.book_title_id").Eq(titleID),
			goqu.I("b.being_borrowed").IsFalse(),
			goqu.I("b.book_condition").Neq("lost"),
			goqu.L(`NOT EXISTS (SELECT 1 FROM borrow_slip_details d WHERE d.book_id = b.book_id AND d.status = ?)`, string(models.BorrowPending)),
		).
		Order(goqu.I("b.created_at").Asc(), goqu.I("b.book_id").Asc()).
		Limit(1).
		ForUpdate(exp.Wait)
	if len(exclude) > 0 {
		ds = ds.Where(goqu.I("b.book_id").NotIn(exclude))
	}
	return ds
}

func (s *MySQLStore) CreateBorrowRequest(ctx context.Context, readerID string, titleIDs []string, at time.Time) (*models.BorrowSlip, []models.BookCopy, error) {
	slip := &models.BorrowSlip{
		ID:         uuid.NewString(),
		ReaderID:   readerID,
		BorrowDate: at,
		Status:     models.BorrowPending,
	}
	var copies []models.BookCopy

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO borrow_slips (bs_id, reader_id, borrow_date, status) VALUES (?, ?, ?, ?)`,
			slip.ID, slip.ReaderID, slip.BorrowDate, string(slip.Status)); err != nil {
			return err
		}

		var picked []string
		for _, titleID := range titleIDs {
			var c models.BookCopy
			if err := getx(ctx, tx, &c, freeCopyQuery(titleID, picked)); err != nil {
				if errors.Is(err, ErrNotFound) {
					return &UnavailableError{TitleID: titleID}
				}
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO borrow_slip_details (id, borrow_slip_id, book_id, status) VALUES (?, ?, ?, ?)`,
				uuid.NewString(), slip.ID, c.ID, string(models.BorrowPending)); err != nil {
				return err
			}
			picked = append(picked, c.ID)
			copies = append(copies, c)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return slip, copies, nil
}

func (s *MySQLStore) GetSlip(ctx context.Context, id string) (*models.BorrowSlip, error) {
	var slip models.BorrowSlip
	if err := getx(ctx, s.db, &slip, dialect.From("borrow_slips").Where(goqu.C("bs_id").Eq(id))); err != nil {
		return nil, err
	}
	return &slip, nil
}

func (s *MySQLStore) ListBorrowRequests(ctx context.Context, status models.BorrowStatus) ([]models.BorrowRequestView, error) {
	ds := dialect.From(goqu.T("borrow_slips").As("s")).
		Join(goqu.T("readers").As("r"), goqu.On(goqu.I("r.reader_id").Eq(goqu.I("s.reader_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("r.user_id")))).
		Select(goqu.I("s.bs_id"), goqu.I("s.reader_id"), goqu.I("u.full_name"), goqu.I("s.borrow_date"), goqu.I("s.status")).
		Order(goqu.I("s.borrow_date").Desc(), goqu.I("s.bs_id").Asc())
	if status != "" {
		ds = ds.Where(goqu.I("s.status").Eq(string(status)))
	}

	var rows []struct {
		ID         string              `db:"bs_id"`
		ReaderID   string              `db:"reader_id"`
		ReaderName string              `db:"full_name"`
		Date       time.Time           `db:"borrow_date"`
		Status     models.BorrowStatus `db:"status"`
	}
	if err := selectx(ctx, s.db, &rows, ds); err != nil {
		return nil, fmt.Errorf("list borrow requests: %w", err)
	}
	if len(rows) == 0 {
		return []models.BorrowRequestView{}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	var books []struct {
		SlipID string `db:"borrow_slip_id"`
		BookID string `db:"book_id"`
		Name   string `db:"name"`
	}
	bds := dialect.From(goqu.T("borrow_slip_details").As("d")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("d.book_id")))).
		Join(goqu.T("book_titles").As("t"), goqu.On(goqu.I("t.book_title_id").Eq(goqu.I("b.book_title_id")))).
		Select(goqu.I("d.borrow_slip_id"), goqu.I("d.book_id"), goqu.I("t.name")).
		Where(goqu.I("d.borrow_slip_id").In(ids)).
		Order(goqu.I("d.id").Asc())
	if err := selectx(ctx, s.db, &books, bds); err != nil {
		return nil, fmt.Errorf("list borrow request books: %w", err)
	}
	bySlip := make(map[string][]models.BorrowRequestBook)
	for _, b := range books {
		bySlip[b.SlipID] = append(bySlip[b.SlipID], models.BorrowRequestBook{BookID: b.BookID, Name: b.Name})
	}

	out := make([]models.BorrowRequestView, len(rows))
	for i, r := range rows {
		list := bySlip[r.ID]
		if list == nil {
			list = []models.BorrowRequestBook{}
		}
		out[i] = models.BorrowRequestView{
			BorrowSlipID: r.ID,
			ReaderID:     r.ReaderID,
			ReaderName:   r.ReaderName,
			RequestDate:  r.Date,
			Status:       r.Status,
			BooksCount:   len(list),
			Books:        list,
		}
	}
	return out, nil
}

func lockPendingSlip(ctx context.Context, tx *sqlx.Tx, slipID string) error {
	var status models.BorrowStatus
	if err := tx.GetContext(ctx, &status, `SELECT status FROM borrow_slips WHERE bs_id = ? FOR UPDATE`, slipID); err != nil {
		return notFound(err)
	}
	if status != models.BorrowPending {
		return fmt.Errorf("slip %s is %s: %w", slipID, status, ErrInvalidState)
	}
	return nil
}

func (s *MySQLStore) ApproveSlip(ctx context.Context, slipID, librarianID string, due time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockPendingSlip(ctx, tx, slipID); err != nil {
			return err
		}

		var items []struct {
			BookID        string `db:"book_id"`
			TitleID       string `db:"book_title_id"`
			BeingBorrowed bool   `db:"being_borrowed"`
		}
		if err := tx.SelectContext(ctx, &items, `SELECT b.book_id, b.book_title_id, b.being_borrowed
			FROM borrow_slip_details d JOIN books b ON b.book_id = d.book_id
			WHERE d.borrow_slip_id = ? FOR UPDATE`, slipID); err != nil {
			return err
		}
		for _, it := range items {
			if it.BeingBorrowed {
				return &UnavailableError{TitleID: it.TitleID, BookID: it.BookID}
			}
		}
		for _, it := range items {
			if _, err := tx.ExecContext(ctx, `UPDATE books SET being_borrowed = TRUE WHERE book_id = ?`, it.BookID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE book_titles SET available = GREATEST(available - 1, 0) WHERE book_title_id = ?`, it.TitleID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE borrow_slip_details SET status = ?, due_date = ? WHERE borrow_slip_id = ?`,
			string(models.BorrowActive), due, slipID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE borrow_slips SET status = ?, librarian_id = ? WHERE bs_id = ?`,
			string(models.BorrowActive), librarianID, slipID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE readers r JOIN borrow_slips s ON s.reader_id = r.reader_id
			SET r.total_borrowed = r.total_borrowed + ? WHERE s.bs_id = ?`, len(items), slipID)
		return err
	})
}

func (s *MySQLStore) CloseSlip(ctx context.Context, slipID string, to models.BorrowStatus, librarianID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockPendingSlip(ctx, tx, slipID); err != nil {
			return err
		}
		var lib any
		if librarianID != "" {
			lib = librarianID
		}
		if _, err := tx.ExecContext(ctx, `UPDATE borrow_slips SET status = ?, librarian_id = COALESCE(?, librarian_id) WHERE bs_id = ?`,
			string(to), lib, slipID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE borrow_slip_details SET status = ? WHERE borrow_slip_id = ?`, string(to), slipID)
		return err
	})
}

func (s *MySQLStore) CountHeld(ctx context.Context, readerID string) (int, int, error) {
	held, err := countx(ctx, s.db, countOf(loansQuery(LoanFilter{ReaderID: readerID, Statuses: heldStatuses})))
	if err != nil {
		return 0, 0, err
	}
	var pending int
	if err := s.db.GetContext(ctx, &pending, `SELECT COUNT(*) FROM borrow_slips WHERE reader_id = ? AND status = ?`,
		readerID, string(models.BorrowPending)); err != nil {
		return 0, 0, err
	}
	return held, pending, nil
}

func (s *MySQLStore) ListLoans(ctx context.Context, f LoanFilter) ([]models.LoanRecord, int, error) {
	base := loansQuery(f)
	total, err := countx(ctx, s.db, countOf(base))
	if err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}
	ds := base.Order(goqu.I("s.borrow_date").Desc(), goqu.I("d.id").Asc())
	if f.PageSize > 0 {
		ds = ds.Limit(uint(f.PageSize)).Offset(offset(f.Page, f.PageSize))
	}
	var out []models.LoanRecord
	if err := selectx(ctx, s.db, &out, ds); err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	return out, total, nil
}

func (s *MySQLStore) GetLoan(ctx context.Context, detailID string) (*models.LoanRecord, error) {
	var rec models.LoanRecord
	if err := getx(ctx, s.db, &rec, loansQuery(LoanFilter{}).Where(goqu.I("d.id").Eq(detailID))); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MySQLStore) TransitionLoan(ctx context.Context, detailID string, from []models.BorrowStatus, to models.BorrowStatus) error {
	ds := dialect.Update("borrow_slip_details").
		Set(goqu.Record{"status": string(to)}).
		Where(goqu.C("id").Eq(detailID), goqu.C("status").In(statusArgs(from)...))
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.GetLoan(ctx, detailID); err != nil {
		return err
	}
	return fmt.Errorf("detail %s: %w", detailID, ErrInvalidState)
}

type lockedDetail struct {
	ID      string              `db:"id"`
	SlipID  string              `db:"borrow_slip_id"`
	BookID  string              `db:"book_id"`
	TitleID string              `db:"book_title_id"`
	Status  models.BorrowStatus `db:"status"`
}

func lockOnLoanDetail(ctx context.Context, tx *sqlx.Tx, detailID string) (*lockedDetail, error) {
	var d lockedDetail
	if err := tx.GetContext(ctx, &d, `SELECT d.id, d.borrow_slip_id, d.book_id, b.book_title_id, d.status
		FROM borrow_slip_details d JOIN books b ON b.book_id = d.book_id
		WHERE d.id = ? FOR UPDATE`, detailID); err != nil {
		return nil, notFound(err)
	}
	if !d.Status.OnLoan() {
		return nil, fmt.Errorf("detail %s is %s: %w", detailID, d.Status, ErrInvalidState)
	}
	return &d, nil
}

// finishSlip marks the slip Returned once none of its details are still out.
func finishSlip(ctx context.Context, tx *sqlx.Tx, slipID string, at time.Time) (bool, error) {
	var open int
	if err := tx.GetContext(ctx, &open, `SELECT COUNT(*) FROM borrow_slip_details WHERE borrow_slip_id = ? AND status IN (?, ?, ?, ?)`,
		slipID, string(models.BorrowPending), string(models.BorrowActive), string(models.BorrowOverdue), string(models.BorrowPendingReturn)); err != nil {
		return false, err
	}
	if open > 0 {
		return false, nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE borrow_slips SET status = ?, return_date = ? WHERE bs_id = ?`,
		string(models.BorrowReturned), at, slipID)
	return err == nil, err
}

func (s *MySQLStore) CompleteReturn(ctx context.Context, detailID string, at time.Time, late, damage *models.Penalty) (bool, error) {
	var done bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		d, err := lockOnLoanDetail(ctx, tx, detailID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE borrow_slip_details SET status = ?, real_return_date = ? WHERE id = ?`,
			string(models.BorrowReturned), at, d.ID); err != nil {
			return err
		}
		condition := "good"
		if damage != nil {
			condition = "damaged"
		}
		if _, err := tx.ExecContext(ctx, `UPDATE books SET being_borrowed = FALSE, book_condition = ? WHERE book_id = ?`, condition, d.BookID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE book_titles SET available = LEAST(available + 1, total_quantity) WHERE book_title_id = ?`, d.TitleID); err != nil {
			return err
		}
		if late != nil {
			late.BorrowDetailID = d.ID
			if _, err := upsertLate(ctx, tx, late); err != nil {
				return err
			}
		}
		if damage != nil {
			damage.BorrowDetailID = d.ID
			if err := insertPenalty(ctx, tx, damage); err != nil {
				return err
			}
		}
		done, err = finishSlip(ctx, tx, d.SlipID, at)
		return err
	})
	return done, err
}

func (s *MySQLStore) MarkLost(ctx context.Context, detailID string, at time.Time, p *models.Penalty) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		d, err := lockOnLoanDetail(ctx, tx, detailID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE borrow_slip_details SET status = ? WHERE id = ?`, string(models.BorrowLost), d.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE books SET being_borrowed = FALSE, book_condition = 'lost' WHERE book_id = ?`, d.BookID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE book_titles SET total_quantity = GREATEST(total_quantity - 1, 0) WHERE book_title_id = ?`, d.TitleID); err != nil {
			return err
		}
		p.BorrowDetailID = d.ID
		if err := insertPenalty(ctx, tx, p); err != nil {
			return err
		}
		_, err = finishSlip(ctx, tx, d.SlipID, at)
		return err
	})
}

func (s *MySQLStore) RecordInfraction(ctx context.Context, detailID, cardID string, block bool) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE borrow_slip_details SET status = ? WHERE id = ? AND status = ?`,
			string(models.BorrowOverdue), detailID, string(models.BorrowActive))
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("detail %s already counted: %w", detailID, ErrInvalidState)
		}
		q := `UPDATE reading_cards SET infraction_count = infraction_count + 1 WHERE card_id = ?`
		if block {
			q = `UPDATE reading_cards SET infraction_count = infraction_count + 1, status = 'Blocked' WHERE card_id = ?`
		}
		if err := affectedOne(tx.ExecContext(ctx, q, cardID)); err != nil {
			return err
		}
		return tx.GetContext(ctx, &count, `SELECT infraction_count FROM reading_cards WHERE card_id = ?`, cardID)
	})
	return count, err
}
