package store

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

// Dynamic selects shared by the MySQL store. Kept separate so their SQL can
// be checked without a database.

func titlesQuery(f models.CatalogFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("book_titles").As("t")).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("c.cat_id").Eq(goqu.I("t.category_id")))).
		LeftJoin(goqu.T("publishers").As("p"), goqu.On(goqu.I("p.pub_id").Eq(goqu.I("t.publisher_id")))).
		Select(
			goqu.I("t.book_title_id"), goqu.I("t.name"), goqu.COALESCE(goqu.I("t.author"), "").As("author"),
			goqu.I("t.isbn"), goqu.I("t.category_id"), goqu.COALESCE(goqu.I("c.name"), "").As("category"),
			goqu.I("t.publisher_id"), goqu.COALESCE(goqu.I("p.name"), "").As("publisher"),
			goqu.I("t.total_quantity"), goqu.I("t.available"), goqu.I("t.price"), goqu.I("t.created_at"),
		)
	if f.Category != "" {
		ds = ds.Where(goqu.I("c.name").Eq(f.Category))
	}
	if f.Publisher != "" {
		ds = ds.Where(goqu.I("p.name").Eq(f.Publisher))
	}
	return ds
}

func loansQuery(f LoanFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("borrow_slip_details").As("d")).
		Join(goqu.T("borrow_slips").As("s"), goqu.On(goqu.I("s.bs_id").Eq(goqu.I("d.borrow_slip_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("d.book_id")))).
		Join(goqu.T("book_titles").As("t"), goqu.On(goqu.I("t.book_title_id").Eq(goqu.I("b.book_title_id")))).
		Join(goqu.T("readers").As("r"), goqu.On(goqu.I("r.reader_id").Eq(goqu.I("s.reader_id")))).
		Select(
			goqu.I("d.id"), goqu.I("d.borrow_slip_id"), goqu.I("s.reader_id"), goqu.I("r.user_id"),
			goqu.I("d.book_id"), goqu.I("b.book_title_id"), goqu.I("t.name").As("title"),
			goqu.COALESCE(goqu.I("t.author"), "").As("author"), goqu.I("t.price"),
			goqu.I("s.borrow_date"), goqu.I("d.due_date"), goqu.I("d.real_return_date"),
			goqu.I("d.status"), goqu.I("s.status").As("slip_status"),
		)
	if f.ReaderID != "" {
		ds = ds.Where(goqu.I("s.reader_id").Eq(f.ReaderID))
	}
	if len(f.Statuses) > 0 {
		ds = ds.Where(goqu.I("d.status").In(statusArgs(f.Statuses)...))
	}
	if f.DueBefore != nil {
		ds = ds.Where(goqu.I("d.due_date").Lt(*f.DueBefore))
	}
	if f.DueAfter != nil {
		ds = ds.Where(goqu.I("d.due_date").Gte(*f.DueAfter))
	}
	return ds
}

func statusArgs(ss []models.BorrowStatus) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func penaltiesQuery(f PenaltyFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("penalty_slips").As("p")).
		Join(goqu.T("borrow_slip_details").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("p.borrow_detail_id")))).
		Join(goqu.T("borrow_slips").As("s"), goqu.On(goqu.I("s.bs_id").Eq(goqu.I("d.borrow_slip_id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("d.book_id")))).
		Join(goqu.T("book_titles").As("t"), goqu.On(goqu.I("t.book_title_id").Eq(goqu.I("b.book_title_id")))).
		Select(
			goqu.I("p.penalty_id"), goqu.I("p.borrow_detail_id"), goqu.I("p.penalty_type"),
			goqu.COALESCE(goqu.I("p.description"), "").As("description"), goqu.I("p.fine_amount"),
			goqu.I("p.status"), goqu.I("p.created_at"), goqu.I("p.resolved_at"),
			goqu.I("s.reader_id"), goqu.I("d.book_id"), goqu.I("t.name").As("title"),
			goqu.I("s.borrow_date"), goqu.I("d.real_return_date"),
		).
		Order(goqu.I("p.created_at").Desc(), goqu.I("p.penalty_id").Asc())
	if f.ReaderID != "" {
		ds = ds.Where(goqu.I("s.reader_id").Eq(f.ReaderID))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.I("p.status").Eq(string(f.Status)))
	}
	if f.DetailID != "" {
		ds = ds.Where(goqu.I("p.borrow_detail_id").Eq(f.DetailID))
	}
	return ds
}

// Per-reader counters, correlated on r.reader_id.
const (
	sqlCurrentlyBorrowed = `(SELECT COUNT(*) FROM borrow_slip_details d JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id
		WHERE s.reader_id = r.reader_id AND d.status IN ('Active', 'Overdue', 'PendingReturn'))`
	sqlReturnedBooks = `(SELECT COUNT(*) FROM borrow_slip_details d JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id
		WHERE s.reader_id = r.reader_id AND d.status = 'Returned')`
	sqlOverdueBooks = `(SELECT COUNT(*) FROM borrow_slip_details d JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id
		WHERE s.reader_id = r.reader_id AND (d.status = 'Overdue'
		OR (d.status IN ('Active', 'PendingReturn') AND d.due_date < UTC_TIMESTAMP())))`
	sqlLateReturns = `(SELECT COUNT(*) FROM borrow_slip_details d JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id
		WHERE s.reader_id = r.reader_id AND d.status = 'Returned' AND DATE(d.real_return_date) > DATE(d.due_date))`
	sqlTotalPenalties = `(SELECT COUNT(*) FROM penalty_slips p JOIN borrow_slip_details d ON d.id = p.borrow_detail_id
		JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id WHERE s.reader_id = r.reader_id)`
	sqlUnpaidPenalties = `(SELECT COUNT(*) FROM penalty_slips p JOIN borrow_slip_details d ON d.id = p.borrow_detail_id
		JOIN borrow_slips s ON s.bs_id = d.borrow_slip_id WHERE s.reader_id = r.reader_id AND p.status = 'Pending')`
)

func readerBase() *goqu.SelectDataset {
	return dialect.From(goqu.T("users").As("u")).
		Join(goqu.T("readers").As("r"), goqu.On(goqu.I("r.user_id").Eq(goqu.I("u.user_id")))).
		LeftJoin(goqu.T("reading_cards").As("c"), goqu.On(goqu.I("c.reader_id").Eq(goqu.I("r.reader_id"))))
}

// readerStatsQuery selects models.ReaderStats rows.
func readerStatsQuery(f models.ReaderFilter) *goqu.SelectDataset {
	ds := readerBase().Select(
		goqu.I("u.user_id"), goqu.I("u.username"), goqu.I("u.full_name"), goqu.I("u.email"), goqu.I("u.phone_number"),
		goqu.I("r.reader_id"), goqu.I("r.total_borrowed"),
		goqu.L(sqlCurrentlyBorrowed).As("currently_borrowed"),
		goqu.L(sqlReturnedBooks).As("returned_books"),
		goqu.L(sqlOverdueBooks).As("overdue_books"),
		goqu.L(sqlLateReturns).As("late_returns"),
		goqu.COALESCE(goqu.I("c.infraction_count"), 0).As("infraction_count"),
		goqu.L(sqlTotalPenalties).As("total_penalties"),
		goqu.L(sqlUnpaidPenalties).As("unpaid_penalties"),
		goqu.I("c.card_id"), goqu.I("c.card_type"), goqu.I("c.status").As("card_status"), goqu.I("c.register_date"),
	)
	if where := readerWhere(f); len(where) > 0 {
		ds = ds.Where(where...)
	}
	return ds
}

func readerWhere(f models.ReaderFilter) []exp.Expression {
	var where []exp.Expression
	if f.Status != "" {
		where = append(where, goqu.I("c.status").Eq(string(f.Status)))
	}
	if f.Search != "" {
		like := containsPattern(f.Search)
		where = append(where, goqu.Or(
			goqu.I("u.username").ILike(like),
			goqu.I("u.full_name").ILike(like),
			goqu.I("u.email").ILike(like),
		))
	}
	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern turns user input into a LIKE pattern matching it anywhere.
// Use it with ILike: the mysql dialect renders Like as LIKE BINARY.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// readerView wraps readerStatsQuery so outer queries can filter and sort on
// the computed counters.
func readerView() *goqu.SelectDataset {
	return dialect.From(readerStatsQuery(models.ReaderFilter{}).As("v"))
}

func acquisitionsQuery(f AcquisitionFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("acquisition_slips").As("a")).
		LeftJoin(goqu.T("librarians").As("l"), goqu.On(goqu.I("l.lib_id").Eq(goqu.I("a.librarian_id")))).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("l.user_id")))).
		Select(
			goqu.I("a.acq_id"), goqu.I("a.librarian_id"),
			goqu.COALESCE(goqu.I("u.full_name"), "").As("librarian_name"), goqu.I("a.acc_date"),
			goqu.L(`(SELECT COALESCE(SUM(x.quantity), 0) FROM acquisition_slip_details x WHERE x.acquisition_slip_id = a.acq_id)`).As("total_items"),
			goqu.L(`(SELECT COALESCE(SUM(x.quantity * x.price), 0) FROM acquisition_slip_details x WHERE x.acquisition_slip_id = a.acq_id)`).As("total_amount"),
			goqu.L(`(SELECT COUNT(*) FROM acquisition_slip_details x WHERE x.acquisition_slip_id = a.acq_id)`).As("details_count"),
		)
	if f.LibrarianID != "" {
		ds = ds.Where(goqu.I("a.librarian_id").Eq(f.LibrarianID))
	}
	return ds
}

// countOf turns a filtered select into SELECT COUNT(*) over the same rows.
func countOf(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.ClearSelect().ClearOrder().ClearLimit().ClearOffset().Select(goqu.COUNT(goqu.Star()))
}
