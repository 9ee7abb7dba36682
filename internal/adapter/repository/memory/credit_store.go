package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

// CreditStore serializes writers per user with a mutex and stages their writes,
// publishing them only when the callback succeeds.
type CreditStore struct {
	mu     sync.RWMutex
	grants map[uuid.UUID][]domain.CreditGrant
	txns   []domain.CreditTransaction

	lockMu    sync.Mutex
	userLocks map[uuid.UUID]*sync.Mutex
}

func NewCreditStore() *CreditStore {
	return &CreditStore{
		grants:    map[uuid.UUID][]domain.CreditGrant{},
		userLocks: map[uuid.UUID]*sync.Mutex{},
	}
}

// AddGrant seeds a grant directly, bypassing the ledger. It waits for any open
// WithUserTx for the same user.
func (s *CreditStore) AddGrant(grant domain.CreditGrant) {
	l := s.userLock(grant.UserID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.UserID] = append(s.grants[grant.UserID], grant)
}

func (s *CreditStore) userLock(userID uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

func (s *CreditStore) ListGrants(_ context.Context, userID uuid.UUID) ([]domain.CreditGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.grants[userID]), nil
}

func (s *CreditStore) ListTransactions(_ context.Context, userID uuid.UUID) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CreditTransaction
	for _, t := range s.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *CreditStore) ListTransactionsByBooking(_ context.Context, bookingID uuid.UUID) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CreditTransaction
	for _, t := range s.txns {
		if t.BookingID != nil && *t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *CreditStore) WithUserTx(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx ports.CreditTx) error) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	tx := &creditTx{
		store:  s,
		userID: userID,
		grants: slices.Clone(s.grants[userID]),
	}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[userID] = tx.grants
	s.txns = append(s.txns, tx.txns...)
	return nil
}

type creditTx struct {
	store  *CreditStore
	userID uuid.UUID
	grants []domain.CreditGrant
	txns   []domain.CreditTransaction
}

func (t *creditTx) ListGrants(_ context.Context, userID uuid.UUID) ([]domain.CreditGrant, error) {
	if userID != t.userID {
		return nil, domain.ErrForbidden
	}
	return slices.Clone(t.grants), nil
}

func (t *creditTx) LastDebit(_ context.Context, userID uuid.UUID) (*domain.CreditTransaction, error) {
	t.store.mu.RLock()
	all := append(slices.Clone(t.store.txns), t.txns...)
	t.store.mu.RUnlock()

	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID && all[i].Type == domain.TxBooking {
			last := all[i]
			return &last, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *creditTx) InsertGrant(_ context.Context, grant *domain.CreditGrant) error {
	if grant.UserID != t.userID {
		return domain.ErrForbidden
	}
	t.grants = append(t.grants, *grant)
	return nil
}

func (t *creditTx) UpdateGrant(_ context.Context, grant *domain.CreditGrant) error {
	for i := range t.grants {
		if t.grants[i].ID == grant.ID {
			if grant.Amount < 0 {
				return domain.ErrInsufficientCredit
			}
			t.grants[i] = *grant
			return nil
		}
	}
	return domain.ErrNotFound
}

func (t *creditTx) InsertTransaction(_ context.Context, txn *domain.CreditTransaction) error {
	t.txns = append(t.txns, *txn)
	return nil
}
