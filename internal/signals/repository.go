package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/trust-risk/pkg/models"
)

// PostgresRepository reads users and transactions from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ids are compared as text so integer and UUID keyed schemas both work.

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id::text, COALESCE(email, ''), phone, is_verified,
		       COALESCE(verification_level, 0), created_at
		FROM users
		WHERE id::text = $1
	`

	var user models.User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.IsVerified,
		&user.VerificationLevel,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetRecentTransactions returns the user's latest transactions, newest first
func (r *PostgresRepository) GetRecentTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id::text, user_id::text, amount, COALESCE(currency, ''), status, created_at
		FROM transactions
		WHERE user_id::text = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Currency, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// CountTransactionsSince counts the user's transactions created after since
func (r *PostgresRepository) CountTransactionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id::text = $1 AND created_at >= $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetTransaction retrieves a transaction by ID
func (r *PostgresRepository) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	query := `
		SELECT id::text, user_id::text, amount, COALESCE(currency, ''), status, created_at
		FROM transactions
		WHERE id::text = $1
	`

	var tx models.Transaction
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Currency, &tx.Status, &tx.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}
