package models

import (
	"strings"
	"time"
)

type CardType string

const (
	CardStandard CardType = "Standard"
	CardVIP      CardType = "VIP"
)

// ParseCardType maps the registration form value ("standard"/"vip").
func ParseCardType(s string) (CardType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return CardStandard, true
	case "vip":
		return CardVIP, true
	}
	return "", false
}

type CardStatus string

const (
	CardActive    CardStatus = "Active"
	CardSuspended CardStatus = "Suspended"
	CardBlocked   CardStatus = "Blocked"
	CardExpired   CardStatus = "Expired"
)

// ParseCardStatus accepts any casing.
func ParseCardStatus(s string) (CardStatus, bool) {
	for _, st := range []CardStatus{CardActive, CardSuspended, CardBlocked, CardExpired} {
		if equalFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

type ReadingCard struct {
	ID              string     `json:"card_id" db:"card_id"`
	ReaderID        string     `json:"reader_id" db:"reader_id"`
	CardType        CardType   `json:"card_type" db:"card_type"`
	Fee             int        `json:"fee" db:"fee"`
	RegisterDate    time.Time  `json:"register_date" db:"register_date"`
	RegisterOffice  string     `json:"register_office" db:"register_office"`
	Status          CardStatus `json:"status" db:"status"`
	InfractionCount int        `json:"infraction_count" db:"infraction_count"`
}

// ReaderStatus is what the client reads to gate its borrow UI.
type ReaderStatus struct {
	ReaderID             string     `json:"reader_id"`
	CardID               string     `json:"card_id"`
	CardType             CardType   `json:"card_type"`
	CardStatus           CardStatus `json:"card_status"`
	MaxBooksAllowed      int        `json:"max_books_allowed"`
	LoanPeriodDays       int        `json:"loan_period_days"`
	CurrentlyBorrowed    int        `json:"currently_borrowed"`
	PendingRequests      int        `json:"pending_requests"`
	RemainingSlots       int        `json:"remaining_slots"`
	CanBorrowMore        bool       `json:"can_borrow_more"`
	OverdueCount         int        `json:"overdue_count"`
	TotalFines           int        `json:"total_fines"`
	HasPenalties         bool       `json:"has_penalties"`
	InfractionCount      int        `json:"infraction_count"`
	TotalBorrowedHistory int        `json:"total_borrowed_history"`
}

// InfractionReport summarises one infraction pass.
type InfractionReport struct {
	InfractionsAdded int      `json:"infractions_added"`
	CardsBlocked     int      `json:"cards_blocked"`
	ReadersAffected  int      `json:"readers_affected"`
	BlockReasons     []string `json:"block_reasons,omitempty"`
}

// CardChange is the result of a librarian ban/unban action.
type CardChange struct {
	Message   string     `json:"message"`
	UserID    string     `json:"user_id"`
	CardID    string     `json:"card_id"`
	OldStatus CardStatus `json:"old_status"`
	NewStatus CardStatus `json:"new_status"`
	Reason    string     `json:"reason,omitempty"`
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
