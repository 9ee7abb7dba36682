package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

const (
	grantColumns       = `id, user_id, amount, status, issued_at, expires_at`
	transactionColumns = `id, user_id, booking_id, grant_id, amount, type, description, created_at`
)

type CreditStore struct {
	db *sqlx.DB
}

func NewCreditStore(db *sqlx.DB) *CreditStore {
	return &CreditStore{db: db}
}

func (s *CreditStore) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.CreditGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM credits WHERE user_id = $1 ORDER BY issued_at ASC`

	var grants []domain.CreditGrant
	if err := s.db.SelectContext(ctx, &grants, query, userID); err != nil {
		return nil, err
	}
	return grants, nil
}

func (s *CreditStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.CreditTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM credit_transactions WHERE user_id = $1 ORDER BY created_at DESC`

	var txns []domain.CreditTransaction
	if err := s.db.SelectContext(ctx, &txns, query, userID); err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *CreditStore) ListTransactionsByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.CreditTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM credit_transactions WHERE booking_id = $1 ORDER BY created_at ASC`

	var txns []domain.CreditTransaction
	if err := s.db.SelectContext(ctx, &txns, query, bookingID); err != nil {
		return nil, err
	}
	return txns, nil
}

// WithUserTx takes a transaction-scoped advisory lock on the user so concurrent
// debits and refunds for one user run one after another.
func (s *CreditStore) WithUserTx(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, tx ports.CreditTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID.String()); err != nil {
		return fmt.Errorf("failed to lock credit account: %w", err)
	}

	if err := fn(ctx, &creditTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type creditTx struct {
	tx *sqlx.Tx
}

func (t *creditTx) ListGrants(ctx context.Context, userID uuid.UUID) ([]domain.CreditGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM credits WHERE user_id = $1 ORDER BY issued_at ASC FOR UPDATE`

	var grants []domain.CreditGrant
	if err := t.tx.SelectContext(ctx, &grants, query, userID); err != nil {
		return nil, err
	}
	return grants, nil
}

func (t *creditTx) LastDebit(ctx context.Context, userID uuid.UUID) (*domain.CreditTransaction, error) {
	query := `
	SELECT ` + transactionColumns + `
	FROM credit_transactions
	WHERE user_id = $1 AND type = 'booking'
	ORDER BY created_at DESC
	LIMIT 1
	`

	var txn domain.CreditTransaction
	if err := t.tx.GetContext(ctx, &txn, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (t *creditTx) InsertGrant(ctx context.Context, grant *domain.CreditGrant) error {
	query := `
	INSERT INTO credits (` + grantColumns + `)
	VALUES (:id, :user_id, :amount, :status, :issued_at, :expires_at)
	`
	_, err := t.tx.NamedExecContext(ctx, query, grant)
	return err
}

// UpdateGrant refuses to take a grant below zero even if the caller miscounted.
func (t *creditTx) UpdateGrant(ctx context.Context, grant *domain.CreditGrant) error {
	query := `
	UPDATE credits
	SET amount = $1, status = $2
	WHERE id = $3 AND $1 >= 0
	`

	result, err := t.tx.ExecContext(ctx, query, grant.Amount, grant.Status, grant.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if grant.Amount < 0 {
			return domain.ErrInsufficientCredit
		}
		return domain.ErrNotFound
	}

	return nil
}

func (t *creditTx) InsertTransaction(ctx context.Context, txn *domain.CreditTransaction) error {
	query := `
	INSERT INTO credit_transactions (` + transactionColumns + `)
	VALUES (:id, :user_id, :booking_id, :grant_id, :amount, :type, :description, :created_at)
	`
	_, err := t.tx.NamedExecContext(ctx, query, txn)
	return err
}
