package models

import "time"

type PenaltyType string

const (
	PenaltyLate   PenaltyType = "Late"
	PenaltyDamage PenaltyType = "Damage"
	PenaltyLost   PenaltyType = "Lost"
)

type PenaltyStatus string

const (
	PenaltyPending   PenaltyStatus = "Pending"
	PenaltyPaid      PenaltyStatus = "Paid"
	PenaltyCancelled PenaltyStatus = "Cancelled"
)

func ParsePenaltyStatus(s string) (PenaltyStatus, bool) {
	for _, st := range []PenaltyStatus{PenaltyPending, PenaltyPaid, PenaltyCancelled} {
		if equalFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

type Penalty struct {
	ID             string        `json:"penalty_id" db:"penalty_id"`
	BorrowDetailID string        `json:"borrow_detail_id" db:"borrow_detail_id"`
	Type           PenaltyType   `json:"penalty_type" db:"penalty_type"`
	Description    string        `json:"description" db:"description"`
	FineAmount     int           `json:"fine_amount" db:"fine_amount"`
	Status         PenaltyStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt     *time.Time    `json:"resolved_at" db:"resolved_at"`
}

// PenaltyView joins a penalty with the loan it belongs to.
type PenaltyView struct {
	Penalty
	ReaderID   string     `json:"reader_id" db:"reader_id"`
	BookID     string     `json:"book_id" db:"book_id"`
	Title      string     `json:"title" db:"title"`
	BorrowDate time.Time  `json:"borrow_date" db:"borrow_date"`
	ReturnDate *time.Time `json:"return_date" db:"real_return_date"`
}

type DamageReport struct {
	Description string `json:"damage_description" validate:"required,max=200"`
	FineAmount  *int   `json:"fine_amount" validate:"omitempty,gte=0"`
}

type PenaltyActionRequest struct {
	Reason string `json:"reason"`
}

type ReturnConfirmRequest struct {
	Damaged           bool   `json:"damaged"`
	DamageDescription string `json:"damage_description" validate:"required_if=Damaged true"`
	DamageFine        *int   `json:"damage_fine" validate:"omitempty,gte=0"`
}

type ReturnResult struct {
	Message         string     `json:"message"`
	BorrowDetailID  string     `json:"borrow_detail_id"`
	BookID          string     `json:"book_id"`
	ReaderID        string     `json:"reader_id"`
	CardType        CardType   `json:"card_type"`
	LoanPeriodDays  int        `json:"loan_period_days"`
	BorrowDate      time.Time  `json:"borrow_date"`
	DueDate         *time.Time `json:"due_date"`
	ReturnDate      time.Time  `json:"return_date"`
	IsOverdue       bool       `json:"is_overdue"`
	DaysOverdue     int        `json:"days_overdue,omitempty"`
	FineAmount      int        `json:"fine_amount,omitempty"`
	Warning         string     `json:"warning,omitempty"`
	PenaltyID       string     `json:"penalty_id,omitempty"`
	PenaltyStatus   string     `json:"penalty_status,omitempty"`
	DamagePenaltyID string     `json:"damage_penalty_id,omitempty"`
	SlipCompleted   bool       `json:"slip_completed"`
}

type PenaltyResult struct {
	PenaltyID      string        `json:"penalty_id"`
	Message        string        `json:"message"`
	PenaltyType    PenaltyType   `json:"penalty_type"`
	BorrowDetailID string        `json:"borrow_detail_id,omitempty"`
	BookID         string        `json:"book_id,omitempty"`
	BookPrice      int           `json:"book_price,omitempty"`
	FineAmount     int           `json:"fine_amount"`
	Status         PenaltyStatus `json:"status"`
}

type AutoPenaltyReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Checked int `json:"checked"`
}

type ReturnRequestResult struct {
	Message        string       `json:"message"`
	BorrowDetailID string       `json:"borrow_detail_id"`
	Status         BorrowStatus `json:"status"`
	DueDate        *time.Time   `json:"due_date"`
	IsOverdue      bool         `json:"is_overdue"`
	DaysOverdue    int          `json:"days_overdue"`
	EstimatedFine  int          `json:"estimated_fine"`
}

// PenaltyList is a reader's penalties with the amount still owed.
type PenaltyList struct {
	Total        int           `json:"total"`
	UnpaidAmount int           `json:"unpaid_amount"`
	Penalties    []PenaltyView `json:"penalties"`
}
