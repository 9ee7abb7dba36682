package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

type DebitResult struct {
	GrantID        uuid.UUID
	NewGrantAmount int
	Transaction    domain.CreditTransaction
}

type RefundRequest struct {
	UserID    uuid.UUID
	Amount    int
	BookingID *uuid.UUID
	// GrantHint is the grant the original debit came from, when known.
	GrantHint *uuid.UUID
}

type RefundResult struct {
	GrantID     uuid.UUID
	Transaction domain.CreditTransaction
}

// LedgerService owns credit grant amounts. Every debit and refund goes through a
// per-user boundary of the CreditStore and appends exactly one transaction.
type LedgerService struct {
	store  ports.CreditStore
	now    ports.Clock
	logger *logrus.Logger
}

func NewLedgerService(store ports.CreditStore, now ports.Clock, logger *logrus.Logger) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{store: store, now: now, logger: logger}
}

// AvailableBalance sums active, unexpired grants at asOf. It never writes.
func (s *LedgerService) AvailableBalance(ctx context.Context, userID uuid.UUID, asOf time.Time) (int, error) {
	grants, err := s.store.ListGrants(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load credit grants: %w", err)
	}
	return balanceOf(grants, asOf), nil
}

// Balance is AvailableBalance at the service clock.
func (s *LedgerService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.AvailableBalance(ctx, userID, s.now())
}

func balanceOf(grants []domain.CreditGrant, asOf time.Time) int {
	total := 0
	for i := range grants {
		g := &grants[i]
		if g.Status == domain.GrantActive && !g.ExpiredAt(asOf) {
			total += g.Amount
		}
	}
	return total
}

// oldestSpendable picks the grant closest to being forfeited: the oldest issued one.
func oldestSpendable(grants []domain.CreditGrant, asOf time.Time) *domain.CreditGrant {
	sort.SliceStable(grants, func(i, j int) bool {
		return grants[i].IssuedAt.Before(grants[j].IssuedAt)
	})
	for i := range grants {
		if grants[i].Spendable(asOf) {
			return &grants[i]
		}
	}
	return nil
}

// DebitOne spends one credit for bookingID from the oldest spendable grant.
func (s *LedgerService) DebitOne(ctx context.Context, userID uuid.UUID, bookingID *uuid.UUID) (*DebitResult, error) {
	var result *DebitResult

	err := s.store.WithUserTx(ctx, userID, func(ctx context.Context, tx ports.CreditTx) error {
		now := s.now()

		grants, err := tx.ListGrants(ctx, userID)
		if err != nil {
			return err
		}

		grant := oldestSpendable(grants, now)
		if grant == nil {
			return domain.ErrInsufficientCredit
		}

		grant.Amount--
		if grant.Amount == 0 {
			grant.Status = domain.GrantUsed
		}
		if err := tx.UpdateGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to update grant %s: %w", grant.ID, err)
		}

		txn := domain.CreditTransaction{
			ID:          uuid.New(),
			UserID:      userID,
			BookingID:   bookingID,
			GrantID:     grant.ID,
			Amount:      -1,
			Type:        domain.TxBooking,
			Description: "suite booking",
			CreatedAt:   now,
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return fmt.Errorf("failed to record debit: %w", err)
		}

		result = &DebitResult{GrantID: grant.ID, NewGrantAmount: grant.Amount, Transaction: txn}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientCredit) {
			s.logger.WithError(err).WithField("user_id", userID).Error("credit debit failed")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"grant_id": result.GrantID,
		"left":     result.NewGrantAmount,
	}).Debug("credit debited")

	return result, nil
}

// RefundOne returns a single credit to the user.
func (s *LedgerService) RefundOne(ctx context.Context, userID uuid.UUID, grantHint *uuid.UUID) (*RefundResult, error) {
	return s.Refund(ctx, RefundRequest{UserID: userID, Amount: 1, GrantHint: grantHint})
}

// Refund puts req.Amount credits back. It prefers topping up the grant the credit
// came from while that grant is still active; otherwise it issues a fresh grant.
func (s *LedgerService) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %d", req.Amount)
	}

	var result *RefundResult

	err := s.store.WithUserTx(ctx, req.UserID, func(ctx context.Context, tx ports.CreditTx) error {
		now := s.now()

		hint := req.GrantHint
		if hint == nil {
			last, err := tx.LastDebit(ctx, req.UserID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if last != nil {
				hint = &last.GrantID
			}
		}

		grants, err := tx.ListGrants(ctx, req.UserID)
		if err != nil {
			return err
		}

		var origin *domain.CreditGrant
		if hint != nil {
			for i := range grants {
				if grants[i].ID == *hint {
					origin = &grants[i]
					break
				}
			}
		}

		var target *domain.CreditGrant
		if origin != nil && origin.Status == domain.GrantActive && !origin.ExpiredAt(now) {
			origin.Amount += req.Amount
			if err := tx.UpdateGrant(ctx, origin); err != nil {
				return fmt.Errorf("failed to top up grant %s: %w", origin.ID, err)
			}
			target = origin
		} else {
			fresh := &domain.CreditGrant{
				ID:       uuid.New(),
				UserID:   req.UserID,
				Amount:   req.Amount,
				Status:   domain.GrantActive,
				IssuedAt: now,
			}
			if origin != nil && origin.ExpiresAt != nil && origin.ExpiresAt.After(now) {
				exp := *origin.ExpiresAt
				fresh.ExpiresAt = &exp
			}
			if err := tx.InsertGrant(ctx, fresh); err != nil {
				return fmt.Errorf("failed to issue refund grant: %w", err)
			}
			target = fresh
		}

		txn := domain.CreditTransaction{
			ID:          uuid.New(),
			UserID:      req.UserID,
			BookingID:   req.BookingID,
			GrantID:     target.ID,
			Amount:      req.Amount,
			Type:        domain.TxRefund,
			Description: "booking cancellation refund",
			CreatedAt:   now,
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return fmt.Errorf("failed to record refund: %w", err)
		}

		result = &RefundResult{GrantID: target.ID, Transaction: txn}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", req.UserID).Error("credit refund failed")
		return nil, err
	}

	return result, nil
}

// Grant issues purchased credits. Card capture happens elsewhere.
func (s *LedgerService) Grant(ctx context.Context, userID uuid.UUID, amount int, expiresAt *time.Time) (*domain.CreditGrant, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	var grant *domain.CreditGrant

	err := s.store.WithUserTx(ctx, userID, func(ctx context.Context, tx ports.CreditTx) error {
		now := s.now()
		grant = &domain.CreditGrant{
			ID:        uuid.New(),
			UserID:    userID,
			Amount:    amount,
			Status:    domain.GrantActive,
			IssuedAt:  now,
			ExpiresAt: expiresAt,
		}
		if err := tx.InsertGrant(ctx, grant); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, &domain.CreditTransaction{
			ID:          uuid.New(),
			UserID:      userID,
			GrantID:     grant.ID,
			Amount:      amount,
			Type:        domain.TxPurchase,
			Description: fmt.Sprintf("%d credit purchase", amount),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to grant credits: %w", err)
	}

	return grant, nil
}

// History lists the user's credit transactions, newest first.
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID) ([]domain.CreditTransaction, error) {
	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credit history: %w", err)
	}
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	return txns, nil
}

// BookingTransactions lists the ledger movements linked to one booking.
func (s *LedgerService) BookingTransactions(ctx context.Context, bookingID uuid.UUID) ([]domain.CreditTransaction, error) {
	return s.store.ListTransactionsByBooking(ctx, bookingID)
}
