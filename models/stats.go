package models

import "time"

// ReaderStats is one reader with the counters the librarian screens show.
type ReaderStats struct {
	UserID            string      `json:"user_id" db:"user_id"`
	Username          string      `json:"username" db:"username"`
	FullName          string      `json:"full_name" db:"full_name"`
	Email             string      `json:"email" db:"email"`
	PhoneNumber       *string     `json:"phone_number" db:"phone_number"`
	ReaderID          string      `json:"reader_id" db:"reader_id"`
	TotalBorrowed     int         `json:"total_borrowed" db:"total_borrowed"`
	CurrentlyBorrowed int         `json:"currently_borrowed" db:"currently_borrowed"`
	ReturnedBooks     int         `json:"returned_books" db:"returned_books"`
	OverdueBooks      int         `json:"overdue_books" db:"overdue_books"`
	LateReturns       int         `json:"late_returns" db:"late_returns"`
	InfractionCount   int         `json:"infraction_count" db:"infraction_count"`
	TotalPenalties    int         `json:"total_penalties" db:"total_penalties"`
	UnpaidPenalties   int         `json:"unpaid_penalties" db:"unpaid_penalties"`
	CardID            *string     `json:"card_id" db:"card_id"`
	CardType          *CardType   `json:"card_type" db:"card_type"`
	CardStatus        *CardStatus `json:"card_status" db:"card_status"`
	RegisterDate      *time.Time  `json:"register_date" db:"register_date"`
}

type ReaderFilter struct {
	Status CardStatus
	Search string
	Limit  int
	Offset int
}

type ReaderList struct {
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Readers []ReaderStats `json:"readers"`
}

// UserDetail is the librarian's view of a single reader account.
type UserDetail struct {
	User       User         `json:"user"`
	Stats      ReaderStats  `json:"reader_info"`
	Card       *ReadingCard `json:"reading_card"`
	TotalFines int          `json:"total_fines"`
}

// UserSearchHit is a username search result.
type UserSearchHit struct {
	UserID          string      `json:"user_id" db:"user_id"`
	Username        string      `json:"username" db:"username"`
	FullName        string      `json:"full_name" db:"full_name"`
	Email           string      `json:"email" db:"email"`
	Role            Role        `json:"role" db:"role"`
	ReaderID        *string     `json:"reader_id,omitempty" db:"reader_id"`
	TotalBorrowed   *int        `json:"total_borrowed,omitempty" db:"total_borrowed"`
	InfractionCount *int        `json:"infraction_count,omitempty" db:"infraction_count"`
	CardStatus      *CardStatus `json:"card_status,omitempty" db:"card_status"`
}

type ReaderSummary struct {
	TotalReaders         int `json:"total_readers" db:"total_readers"`
	TotalActiveBorrows   int `json:"total_active_borrows" db:"total_active_borrows"`
	TotalOverdue         int `json:"total_overdue" db:"total_overdue"`
	ActiveCards          int `json:"active_cards" db:"active_cards"`
	BlockedCards         int `json:"blocked_cards" db:"blocked_cards"`
	TotalUnpaidPenalties int `json:"total_unpaid_penalties" db:"total_unpaid_penalties"`
}

type IssuesReport struct {
	Total   int           `json:"total"`
	Readers []ReaderStats `json:"readers"`
}

type LibrarianView struct {
	LibrarianAccount
	TotalBorrowSlips int `json:"total_borrow_slips" db:"total_borrow_slips"`
}

type CardStats struct {
	TotalIssued int `json:"total_issued"`
	Active      int `json:"active"`
	Suspended   int `json:"suspended"`
	Blocked     int `json:"blocked"`
}

type UserCounts struct {
	TotalReaders    int `json:"total_readers"`
	TotalLibrarians int `json:"total_librarians"`
}

type BorrowStats struct {
	TotalBorrows    int     `json:"total_borrows"`
	ActiveBorrows   int     `json:"active_borrows"`
	OverdueBorrows  int     `json:"overdue_borrows"`
	ReturnedBorrows int     `json:"returned_borrows"`
	ReturnRate      float64 `json:"return_rate"`
}

type InfractionStats struct {
	TotalInfractions       int     `json:"total_infractions"`
	ReadersWithInfractions int     `json:"readers_with_infractions"`
	AveragePerReader       float64 `json:"average_per_reader"`
}

type PenaltyStats struct {
	TotalPenalties  int `json:"total_penalties"`
	UnpaidPenalties int `json:"unpaid_penalties"`
	TotalAmount     int `json:"total_amount"`
	UnpaidAmount    int `json:"unpaid_amount"`
}

type TrendStats struct {
	RecentBorrows30Days int     `json:"recent_borrows_30_days"`
	AvgBorrowsPerDay    float64 `json:"avg_borrows_per_day"`
}

// SystemStats is the manager dashboard payload.
type SystemStats struct {
	Cards       CardStats       `json:"cards"`
	Users       UserCounts      `json:"users"`
	Borrowing   BorrowStats     `json:"borrowing"`
	Infractions InfractionStats `json:"infractions"`
	Penalties   PenaltyStats    `json:"penalties"`
	Trends      TrendStats      `json:"trends"`
}
