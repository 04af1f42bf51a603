package models

import "time"

// BorrowStatus is shared by slips and their details.
type BorrowStatus string

const (
	BorrowPending       BorrowStatus = "Pending"
	BorrowActive        BorrowStatus = "Active"
	BorrowPendingReturn BorrowStatus = "PendingReturn"
	BorrowReturned      BorrowStatus = "Returned"
	BorrowOverdue       BorrowStatus = "Overdue"
	BorrowRejected      BorrowStatus = "Rejected"
	BorrowCancelled     BorrowStatus = "Cancelled"
	BorrowLost          BorrowStatus = "Lost"
)

// ParseBorrowStatus accepts any casing ("active", "ACTIVE", "pendingreturn").
func ParseBorrowStatus(s string) (BorrowStatus, bool) {
	for _, st := range []BorrowStatus{
		BorrowPending, BorrowActive, BorrowPendingReturn, BorrowReturned,
		BorrowOverdue, BorrowRejected, BorrowCancelled, BorrowLost,
	} {
		if equalFold(string(st), s) {
			return st, true
		}
	}
	if equalFold(s, "pending_return") || equalFold(s, "pending return") {
		return BorrowPendingReturn, true
	}
	return "", false
}

// Held reports whether a detail in this status occupies a borrowing slot.
func (s BorrowStatus) Held() bool {
	switch s {
	case BorrowPending, BorrowActive, BorrowOverdue, BorrowPendingReturn:
		return true
	}
	return false
}

// OnLoan reports whether the copy is physically with the reader.
func (s BorrowStatus) OnLoan() bool {
	switch s {
	case BorrowActive, BorrowOverdue, BorrowPendingReturn:
		return true
	}
	return false
}

type BorrowSlip struct {
	ID          string       `json:"borrow_slip_id" db:"bs_id"`
	ReaderID    string       `json:"reader_id" db:"reader_id"`
	LibrarianID *string      `json:"librarian_id" db:"librarian_id"`
	BorrowDate  time.Time    `json:"borrow_date" db:"borrow_date"`
	ReturnDate  *time.Time   `json:"return_date" db:"return_date"`
	Status      BorrowStatus `json:"status" db:"status"`
}

type BorrowDetail struct {
	ID             string       `json:"borrow_detail_id" db:"id"`
	BorrowSlipID   string       `json:"borrow_slip_id" db:"borrow_slip_id"`
	BookID         string       `json:"book_id" db:"book_id"`
	DueDate        *time.Time   `json:"due_date" db:"due_date"`
	RealReturnDate *time.Time   `json:"real_return_date" db:"real_return_date"`
	Status         BorrowStatus `json:"status" db:"status"`
}

// LoanRecord is a detail joined with its slip, copy and title; the unit of
// every history, overdue and return listing.
type LoanRecord struct {
	DetailID       string       `db:"id"`
	SlipID         string       `db:"borrow_slip_id"`
	ReaderID       string       `db:"reader_id"`
	UserID         string       `db:"user_id"`
	BookID         string       `db:"book_id"`
	BookTitleID    string       `db:"book_title_id"`
	Title          string       `db:"title"`
	Author         string       `db:"author"`
	Price          int          `db:"price"`
	BorrowDate     time.Time    `db:"borrow_date"`
	DueDate        *time.Time   `db:"due_date"`
	RealReturnDate *time.Time   `db:"real_return_date"`
	Status         BorrowStatus `db:"status"`
	SlipStatus     BorrowStatus `db:"slip_status"`
}

type BorrowRequest struct {
	BookTitleIDs []string `json:"book_title_ids" validate:"required,min=1,dive,required"`
}

type BorrowRequestResult struct {
	Message       string   `json:"message"`
	BorrowSlipID  string   `json:"borrow_slip_id"`
	AssignedBooks []string `json:"assigned_books"`
}

type BorrowRequestBook struct {
	BookID string `json:"book_id"`
	Name   string `json:"name"`
}

// BorrowRequestView is one row of the librarian's request queue.
type BorrowRequestView struct {
	BorrowSlipID string              `json:"borrow_slip_id"`
	ReaderID     string              `json:"reader_id"`
	ReaderName   string              `json:"reader_name"`
	RequestDate  time.Time           `json:"request_date"`
	Status       BorrowStatus        `json:"status"`
	BooksCount   int                 `json:"books_count"`
	Books        []BorrowRequestBook `json:"books"`
}

type ApproveResult struct {
	Message      string    `json:"message"`
	BorrowSlipID string    `json:"borrow_slip_id"`
	DueDate      time.Time `json:"due_date"`
}

type SlipActionResult struct {
	Message      string `json:"message"`
	BorrowSlipID string `json:"borrow_slip_id"`
}

// HistoryBook is the per-book block the history page renders.
type HistoryBook struct {
	BookID           string     `json:"book_id"`
	Title            string     `json:"title"`
	Author           string     `json:"author"`
	DueDate          *time.Time `json:"due_date"`
	ActualReturnDate *time.Time `json:"actual_return_date"`
	IsReturned       bool       `json:"is_returned"`
	IsOverdue        bool       `json:"is_overdue"`
	DaysOverdue      int        `json:"days_overdue"`
	Status           string     `json:"status"`
}

type HistoryEntry struct {
	BorrowSlipID     string      `json:"borrow_slip_id"`
	BorrowDetailID   string      `json:"borrow_detail_id"`
	BorrowDate       time.Time   `json:"borrow_date"`
	DueDate          *time.Time  `json:"due_date"`
	ActualReturnDate *time.Time  `json:"actual_return_date"`
	Status           string      `json:"status"`
	Book             HistoryBook `json:"book"`
}

type HistoryPage struct {
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	History    []HistoryEntry `json:"history"`
}

// LoanView is a flat row for current/overdue/returned listings.
type LoanView struct {
	BorrowDetailID   string     `json:"borrow_detail_id"`
	BorrowSlipID     string     `json:"borrow_slip_id"`
	ReaderID         string     `json:"reader_id,omitempty"`
	BookID           string     `json:"book_id"`
	Title            string     `json:"title"`
	Author           string     `json:"author"`
	BorrowDate       time.Time  `json:"borrow_date"`
	DueDate          *time.Time `json:"due_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty"`
	IsOverdue        bool       `json:"is_overdue"`
	DaysOverdue      int        `json:"days_overdue"`
	FineAmount       int        `json:"fine_amount,omitempty"`
	Status           string     `json:"status"`
}

type LoanList struct {
	Total int        `json:"total"`
	Items []LoanView `json:"items"`
}

// HistoryFilter narrows a reader's history.
type HistoryFilter struct {
	ReaderID string
	Status   BorrowStatus
	Page     int
	PageSize int
}

// ReminderReport counts the loans a reminder pass wrote to.
type ReminderReport struct {
	DueTomorrow int `json:"due_tomorrow"`
	Overdue     int `json:"overdue"`
}
