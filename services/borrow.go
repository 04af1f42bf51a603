package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/policy"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

// BorrowService runs the request, approve, reject and cancel workflow of
// borrow slips.
type BorrowService struct {
	*Env
	Infractions *InfractionService
}

func NewBorrowService(env *Env, inf *InfractionService) *BorrowService {
	return &BorrowService{Env: env, Infractions: inf}
}

// Request reserves one free copy per requested title id. Repeating an id
// asks for several copies of the same title.
func (s *BorrowService) Request(ctx context.Context, userID string, req models.BorrowRequest) (*models.BorrowRequestResult, error) {
	if err := utils.Validate(req); err != nil {
		return nil, badRequest("%s", err.Error())
	}
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Infractions.CheckReader(ctx, r.ID); err != nil {
		return nil, err
	}
	card, err := s.cardOf(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if card.Status != models.CardActive {
		return nil, forbidden("Reading card is not active")
	}

	unpaid, amount, err := s.Store.UnpaidPenalties(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if unpaid > 0 {
		return nil, forbidden("You have %d unpaid penalties totalling %d. Please pay them before borrowing", unpaid, amount)
	}

	held, _, err := s.Store.CountHeld(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if remaining := policy.RemainingSlots(card.CardType, held); len(req.BookTitleIDs) > remaining {
		return nil, badRequest("Borrow limit exceeded: %s card allows %d books, you hold %d and can request %d more",
			card.CardType, policy.For(card.CardType).MaxBooks, held, remaining)
	}

	names := map[string]string{}
	for _, id := range req.BookTitleIDs {
		if _, seen := names[id]; seen {
			continue
		}
		t, err := s.Store.GetTitle(ctx, id)
		if err != nil {
			return nil, fromStore(err, fmt.Sprintf("Book title %s", id))
		}
		if !policy.CanBorrowCategory(card.CardType, t.Category) {
			return nil, forbidden("Book '%s' is Rare and restricted to VIPs.", t.Name)
		}
		names[id] = t.Name
	}

	slip, copies, err := s.Store.CreateBorrowRequest(ctx, r.ID, req.BookTitleIDs, s.now())
	var unavailable *store.UnavailableError
	if errors.As(err, &unavailable) {
		return nil, notFound("Book '%s' is currently unavailable (no copies left).", names[unavailable.TitleID])
	}
	if err != nil {
		return nil, fmt.Errorf("create borrow request: %w", err)
	}

	assigned := make([]string, len(copies))
	for i, c := range copies {
		assigned[i] = c.ID
	}
	s.log().Info("borrow request created", zap.String("slip_id", slip.ID), zap.Int("books", len(assigned)))
	return &models.BorrowRequestResult{
		Message:       "Borrow request submitted successfully",
		BorrowSlipID:  slip.ID,
		AssignedBooks: assigned,
	}, nil
}

// ListRequests returns the librarian queue, optionally by status.
func (s *BorrowService) ListRequests(ctx context.Context, status string) ([]models.BorrowRequestView, error) {
	var st models.BorrowStatus
	if status != "" {
		var ok bool
		if st, ok = models.ParseBorrowStatus(status); !ok {
			return nil, badRequest("Invalid status")
		}
	}
	return s.Store.ListBorrowRequests(ctx, st)
}

func (s *BorrowService) pendingSlip(ctx context.Context, slipID, verb string) (*models.BorrowSlip, error) {
	slip, err := s.Store.GetSlip(ctx, slipID)
	if err != nil {
		return nil, fromStore(err, "Borrow slip")
	}
	if slip.Status != models.BorrowPending {
		return nil, badRequest("Borrow slip status is %s, cannot %s.", slip.Status, verb)
	}
	return slip, nil
}

// Approve activates a Pending slip. The due date follows the reader's card
// type and counts from the approval moment.
func (s *BorrowService) Approve(ctx context.Context, librarianUserID, slipID string) (*models.ApproveResult, error) {
	lib, err := s.librarianOf(ctx, librarianUserID)
	if err != nil {
		return nil, err
	}
	slip, err := s.pendingSlip(ctx, slipID, "approve")
	if err != nil {
		return nil, err
	}
	card, err := s.cardOf(ctx, slip.ReaderID)
	if err != nil {
		return nil, err
	}

	due := policy.DueDate(card.CardType, s.now())
	err = s.Store.ApproveSlip(ctx, slip.ID, lib.ID, due)
	var taken *store.UnavailableError
	switch {
	case errors.As(err, &taken):
		return nil, conflict("Book copy %s is already borrowed by someone else.", taken.BookID)
	case errors.Is(err, store.ErrInvalidState):
		return nil, badRequest("Borrow slip is not pending")
	case err != nil:
		return nil, fromStore(err, "Borrow slip")
	}

	s.notifyReader(ctx, slip.ReaderID, fmt.Sprintf("Your borrow request %s was approved. Please return the books by %s.",
		slip.ID, due.In(s.loc()).Format("02 Jan 2006")))
	return &models.ApproveResult{
		Message:      "Borrow request approved successfully",
		BorrowSlipID: slip.ID,
		DueDate:      due,
	}, nil
}

func (s *BorrowService) Reject(ctx context.Context, librarianUserID, slipID string) (*models.SlipActionResult, error) {
	lib, err := s.librarianOf(ctx, librarianUserID)
	if err != nil {
		return nil, err
	}
	slip, err := s.pendingSlip(ctx, slipID, "reject")
	if err != nil {
		return nil, err
	}
	if err := s.Store.CloseSlip(ctx, slip.ID, models.BorrowRejected, lib.ID); err != nil {
		return nil, fromStore(err, "Borrow slip")
	}
	s.notifyReader(ctx, slip.ReaderID, fmt.Sprintf("Your borrow request %s was rejected.", slip.ID))
	return &models.SlipActionResult{Message: "Borrow request rejected", BorrowSlipID: slip.ID}, nil
}

// Cancel lets a reader withdraw their own Pending request.
func (s *BorrowService) Cancel(ctx context.Context, userID, slipID string) (*models.SlipActionResult, error) {
	r, err := s.readerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	slip, err := s.Store.GetSlip(ctx, slipID)
	if err != nil {
		return nil, fromStore(err, "Borrow slip")
	}
	if slip.ReaderID != r.ID {
		return nil, forbidden("This borrow slip does not belong to you")
	}
	if slip.Status != models.BorrowPending {
		return nil, badRequest("Only pending requests can be cancelled (current status: %s)", slip.Status)
	}
	if err := s.Store.CloseSlip(ctx, slip.ID, models.BorrowCancelled, ""); err != nil {
		return nil, fromStore(err, "Borrow slip")
	}
	return &models.SlipActionResult{Message: "Borrow request cancelled", BorrowSlipID: slip.ID}, nil
}
