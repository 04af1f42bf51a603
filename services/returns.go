package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

var onLoanStatuses = []models.BorrowStatus{models.BorrowActive, models.BorrowOverdue, models.BorrowPendingReturn}

// ReturnService covers reader return requests, librarian confirmation and
// the damage and lost reports.
type ReturnService struct {
	*Env
	Infractions *InfractionService
}

func NewReturnService(env *Env, inf *InfractionService) *ReturnService {
	return &ReturnService{Env: env, Infractions: inf}
}

// penaltyCode is the short id printed on penalty slips, e.g. PEN-1A2B3C4D.
func penaltyCode() string {
	return "PEN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ownLoan loads a detail and checks it belongs to the reader.
func (s *ReturnService) ownLoan(ctx context.Context, r *models.Reader, detailID string) (*models.LoanRecord, error) {
	rec, err := s.Store.GetLoan(ctx, detailID)
	if err != nil {
		return nil, fromStore(err, "Borrow detail")
	}
	if rec.ReaderID != r.ID {
		return nil, forbidden("This borrow detail does not belong to you")
	}
	return rec, nil
}

// RequestReturn moves the reader's Active or Overdue loan to PendingReturn
// until a librarian confirms the physical hand-in.
func (s *ReturnService) RequestReturn(ctx context.Context, userID, detailID string) (*models.ReturnRequestResult, error) {
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Infractions.CheckReader(ctx, r.ID); err != nil {
		return nil, err
	}
	rec, err := s.ownLoan(ctx, r, detailID)
	if err != nil {
		return nil, err
	}
	err = s.Store.TransitionLoan(ctx, rec.DetailID, []models.BorrowStatus{models.BorrowActive, models.BorrowOverdue}, models.BorrowPendingReturn)
	if errors.Is(err, store.ErrInvalidState) {
		return nil, badRequest("Cannot request return for a book with status %s", rec.Status)
	}
	if err != nil {
		return nil, fromStore(err, "Borrow detail")
	}

	days := s.daysOverdue(rec.DueDate, s.now())
	return &models.ReturnRequestResult{
		Message:        "Return request submitted. Please bring the book to the library desk.",
		BorrowDetailID: rec.DetailID,
		Status:         models.BorrowPendingReturn,
		DueDate:        rec.DueDate,
		IsOverdue:      days > 0,
		DaysOverdue:    days,
		EstimatedFine:  policy.LateFine(days),
	}, nil
}

func (e *Env) daysOverdue(due *time.Time, at time.Time) int {
	if due == nil {
		return 0
	}
	return policy.DaysOverdue(*due, at, e.loc())
}

// PendingReturns lists loans waiting for librarian confirmation.
func (s *ReturnService) PendingReturns(ctx context.Context) (*models.LoanList, error) {
	return s.loanList(ctx, store.LoanFilter{Statuses: []models.BorrowStatus{models.BorrowPendingReturn}})
}

// Overdue lists every loan still out past its due date.
func (s *ReturnService) Overdue(ctx context.Context) (*models.LoanList, error) {
	now := s.now()
	list, err := s.loanList(ctx, store.LoanFilter{Statuses: onLoanStatuses, DueBefore: &now})
	if err != nil {
		return nil, err
	}
	items := list.Items[:0]
	for _, v := range list.Items {
		if v.IsOverdue {
			items = append(items, v)
		}
	}
	return &models.LoanList{Total: len(items), Items: items}, nil
}

func (e *Env) loanList(ctx context.Context, f store.LoanFilter) (*models.LoanList, error) {
	recs, _, err := e.Store.ListLoans(ctx, f)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := &models.LoanList{Total: len(recs), Items: make([]models.LoanView, 0, len(recs))}
	for _, rec := range recs {
		out.Items = append(out.Items, e.loanView(rec, now))
	}
	return out, nil
}

// loanView flattens a record. Open loans carry the fine accrued so far;
// returned ones the fine for how late they came back.
func (e *Env) loanView(rec models.LoanRecord, now time.Time) models.LoanView {
	at := now
	if rec.RealReturnDate != nil {
		at = *rec.RealReturnDate
	}
	days := 0
	if rec.Status.OnLoan() || rec.Status == models.BorrowReturned {
		days = e.daysOverdue(rec.DueDate, at)
	}
	return models.LoanView{
		BorrowDetailID:   rec.DetailID,
		BorrowSlipID:     rec.SlipID,
		ReaderID:         rec.ReaderID,
		BookID:           rec.BookID,
		Title:            rec.Title,
		Author:           rec.Author,
		BorrowDate:       rec.BorrowDate,
		DueDate:          rec.DueDate,
		ActualReturnDate: rec.RealReturnDate,
		IsOverdue:        days > 0,
		DaysOverdue:      days,
		FineAmount:       policy.LateFine(days),
		Status:           policy.DisplayStatus(rec.Status, rec.DueDate, rec.RealReturnDate, now, e.loc()),
	}
}

// ConfirmReturn closes an on-loan detail as the librarian receives the
// copy. Lateness produces a Late penalty; a damaged copy a Damage penalty.
func (s *ReturnService) ConfirmReturn(ctx context.Context, librarianUserID, detailID string, req models.ReturnConfirmRequest) (*models.ReturnResult, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	if _, err := s.librarianOf(ctx, librarianUserID); err != nil {
		return nil, err
	}
	rec, err := s.Store.GetLoan(ctx, detailID)
	if err != nil {
		return nil, fromStore(err, "Borrow detail")
	}
	if !rec.Status.OnLoan() {
		if rec.Status == models.BorrowReturned {
			return nil, badRequest("Book already returned")
		}
		return nil, badRequest("Borrow detail is %s and cannot be returned", rec.Status)
	}
	card, err := s.cardOf(ctx, rec.ReaderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	days := s.daysOverdue(rec.DueDate, now)
	fine := policy.LateFine(days)

	var late, damage *models.Penalty
	if days > 0 {
		late = &models.Penalty{
			ID:          penaltyCode(),
			Type:        models.PenaltyLate,
			Description: fmt.Sprintf("Late return: %d days overdue. Fine: %d VND", days, fine),
			FineAmount:  fine,
			CreatedAt:   now,
		}
	}
	if req.Damaged {
		if err := s.ensureNoPenalty(ctx, rec.DetailID, models.PenaltyDamage); err != nil {
			return nil, err
		}
		amount := policy.DamageFine(req.DamageFine)
		damage = &models.Penalty{
			ID:          penaltyCode(),
			Type:        models.PenaltyDamage,
			Description: fmt.Sprintf("Book damage: %s. Fine: %d VND", req.DamageDescription, amount),
			FineAmount:  amount,
			CreatedAt:   now,
		}
	}

	slipDone, err := s.Store.CompleteReturn(ctx, rec.DetailID, now, late, damage)
	if err != nil {
		return nil, fromStore(err, "Borrow detail")
	}

	res := &models.ReturnResult{
		Message:        "Book returned successfully",
		BorrowDetailID: rec.DetailID,
		BookID:         rec.BookID,
		ReaderID:       rec.ReaderID,
		CardType:       card.CardType,
		LoanPeriodDays: policy.For(card.CardType).LoanDays,
		BorrowDate:     rec.BorrowDate,
		DueDate:        rec.DueDate,
		ReturnDate:     now,
		IsOverdue:      days > 0,
		DaysOverdue:    days,
		SlipCompleted:  slipDone,
	}
	msg := fmt.Sprintf("Your return of '%s' was confirmed.", rec.Title)
	if late != nil {
		res.FineAmount = fine
		res.PenaltyID = late.ID
		res.PenaltyStatus = string(late.Status)
		res.Warning = fmt.Sprintf("Book returned %d days late. Fine: %d VND", days, fine)
		msg += " " + res.Warning + "."
	}
	if damage != nil {
		res.DamagePenaltyID = damage.ID
		msg += fmt.Sprintf(" A damage fine of %d VND was recorded.", damage.FineAmount)
	}
	s.notify(ctx, rec.UserID, msg)
	s.log().Info("return confirmed", zap.String("detail_id", rec.DetailID), zap.Int("days_overdue", days), zap.Bool("damaged", req.Damaged))
	return res, nil
}

func (e *Env) ensureNoPenalty(ctx context.Context, detailID string, t models.PenaltyType) error {
	existing, err := e.Store.ListPenalties(ctx, store.PenaltyFilter{DetailID: detailID})
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.Type == t {
			return badRequest("%s penalty already exists for this borrow detail", t)
		}
	}
	return nil
}

// ReportDamage records a damage fine against the reader's own loan.
func (s *ReturnService) ReportDamage(ctx context.Context, userID, detailID string, rep models.DamageReport) (*models.PenaltyResult, error) {
	if err := utils.Validate(rep); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.ownLoan(ctx, r, detailID)
	if err != nil {
		return nil, err
	}
	if !rec.Status.OnLoan() && rec.Status != models.BorrowReturned {
		return nil, badRequest("Borrow detail is %s; damage can only be reported for borrowed books", rec.Status)
	}
	if err := s.ensureNoPenalty(ctx, rec.DetailID, models.PenaltyDamage); err != nil {
		return nil, err
	}

	amount := policy.DamageFine(rep.FineAmount)
	p := &models.Penalty{
		ID:             penaltyCode(),
		BorrowDetailID: rec.DetailID,
		Type:           models.PenaltyDamage,
		Description:    fmt.Sprintf("Book damage: %s. Fine: %d VND", rep.Description, amount),
		FineAmount:     amount,
		Status:         models.PenaltyPending,
		CreatedAt:      s.now(),
	}
	if err := s.Store.CreatePenalty(ctx, p); err != nil {
		return nil, fromStore(err, "Borrow detail")
	}
	return &models.PenaltyResult{
		PenaltyID:      p.ID,
		Message:        "Damage penalty created",
		PenaltyType:    p.Type,
		BorrowDetailID: rec.DetailID,
		BookID:         rec.BookID,
		FineAmount:     amount,
		Status:         p.Status,
	}, nil
}

// ReportLost closes the loan as Lost, writes the copy off and fines twice
// the title price.
func (s *ReturnService) ReportLost(ctx context.Context, userID, detailID string) (*models.PenaltyResult, error) {
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.ownLoan(ctx, r, detailID)
	if err != nil {
		return nil, err
	}
	if !rec.Status.OnLoan() {
		return nil, badRequest("Borrow detail is %s; only borrowed books can be reported lost", rec.Status)
	}
	if err := s.ensureNoPenalty(ctx, rec.DetailID, models.PenaltyLost); err != nil {
		return nil, err
	}

	price := rec.Price
	if price <= 0 {
		price = policy.DefaultBookPrice
	}
	fine := policy.LostFine(price)
	p := &models.Penalty{
		ID:          penaltyCode(),
		Type:        models.PenaltyLost,
		Description: fmt.Sprintf("Book lost. Compensation: %d VND (book price: %d VND x 2)", fine, price),
		FineAmount:  fine,
		Status:      models.PenaltyPending,
		CreatedAt:   s.now(),
	}
	if err := s.Store.MarkLost(ctx, rec.DetailID, s.now(), p); err != nil {
		return nil, fromStore(err, "Borrow detail")
	}
	s.log().Info("book reported lost", zap.String("detail_id", rec.DetailID), zap.String("book_id", rec.BookID))
	return &models.PenaltyResult{
		PenaltyID:      p.ID,
		Message:        "Lost penalty created",
		PenaltyType:    p.Type,
		BorrowDetailID: rec.DetailID,
		BookID:         rec.BookID,
		BookPrice:      price,
		FineAmount:     fine,
		Status:         p.Status,
	}, nil
}
