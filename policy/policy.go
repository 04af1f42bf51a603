// Package policy holds the library's lending rules: loan periods, borrow
// limits, card fees and fine schedules. Everything here is pure so the store
// and services can share one source of truth.
package policy

import (
	"time"

	"github.com/vgnam/Library-Management-System-sub000/models"
)

const (
	LateRatePerDay   = 5000
	DamageFineMin    = 50000
	DamageFineMax    = 500000
	DefaultBookPrice = 100000

	// An Active detail this many days overdue earns an infraction.
	InfractionGraceDays = 5
	// Overdue this long blocks the card outright.
	BlockOverdueDays = 30
	MaxInfractions   = 3
)

type CardRules struct {
	LoanDays  int
	MaxBooks  int
	CardFee   int
	RareBooks bool
}

var rules = map[models.CardType]CardRules{
	models.CardStandard: {LoanDays: 45, MaxBooks: 5, CardFee: 50000},
	models.CardVIP:      {LoanDays: 60, MaxBooks: 8, CardFee: 100000, RareBooks: true},
}

// For returns the rules of a card type; unknown types get Standard rules.
func For(t models.CardType) CardRules {
	if r, ok := rules[t]; ok {
		return r
	}
	return rules[models.CardStandard]
}

func DueDate(t models.CardType, approvedAt time.Time) time.Time {
	return approvedAt.AddDate(0, 0, For(t).LoanDays)
}

// CanBorrowCategory reports whether the card may borrow a title of category.
func CanBorrowCategory(t models.CardType, category string) bool {
	if category != models.RareCategory {
		return true
	}
	return For(t).RareBooks
}

// RemainingSlots never goes negative.
func RemainingSlots(t models.CardType, held int) int {
	n := For(t).MaxBooks - held
	if n < 0 {
		return 0
	}
	return n
}

func CanBorrow(card models.ReadingCard, held int, unpaidFines int) bool {
	return card.Status == models.CardActive && RemainingSlots(card.CardType, held) > 0 && unpaidFines == 0
}

// DaysOverdue is the calendar-day gap between due and now in loc, or 0.
func DaysOverdue(due, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	d := truncateDay(due.In(loc))
	n := truncateDay(now.In(loc))
	if !n.After(d) {
		return 0
	}
	return int(n.Sub(d).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LateFine is progressive: base rate for the first week, 1.5x up to a month,
// 2x after that.
func LateFine(days int) int {
	const r = LateRatePerDay
	switch {
	case days <= 0:
		return 0
	case days <= 7:
		return days * r
	case days <= 30:
		return 7*r + (days-7)*r*3/2
	default:
		return 7*r + 23*r*3/2 + (days-30)*r*2
	}
}

// DamageFine clamps a requested amount; nil means the minimum.
func DamageFine(requested *int) int {
	if requested == nil {
		return DamageFineMin
	}
	switch v := *requested; {
	case v < DamageFineMin:
		return DamageFineMin
	case v > DamageFineMax:
		return DamageFineMax
	default:
		return v
	}
}

func LostFine(price int) int {
	if price <= 0 {
		price = DefaultBookPrice
	}
	return 2 * price
}

// InfractionOutcome is the result of evaluating one overdue loan.
type InfractionOutcome struct {
	Infraction bool
	Block      bool
}

// EvaluateOverdue applies the infraction rules to an Active detail that is
// daysOverdue late on a card that already has count infractions.
func EvaluateOverdue(status models.BorrowStatus, daysOverdue, count int) InfractionOutcome {
	if status != models.BorrowActive || daysOverdue <= InfractionGraceDays {
		return InfractionOutcome{}
	}
	return InfractionOutcome{
		Infraction: true,
		Block:      daysOverdue >= BlockOverdueDays || count+1 >= MaxInfractions,
	}
}

// DisplayStatus is the label the history views show for a detail.
func DisplayStatus(d models.BorrowStatus, due, returned *time.Time, now time.Time, loc *time.Location) string {
	switch d {
	case models.BorrowPending:
		return "Pending"
	case models.BorrowPendingReturn:
		return "Pending Return"
	case models.BorrowLost:
		return "Lost"
	case models.BorrowRejected:
		return "Rejected"
	case models.BorrowCancelled:
		return "Cancelled"
	case models.BorrowOverdue:
		return "Overdue"
	case models.BorrowReturned:
		if due != nil && returned != nil && DaysOverdue(*due, *returned, loc) > 0 {
			return "Overdue"
		}
		return "Returned"
	case models.BorrowActive:
		if due != nil && DaysOverdue(*due, now, loc) > 0 {
			return "Overdue"
		}
		return "Active"
	}
	return string(d)
}
