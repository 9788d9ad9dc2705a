package signals

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/trust-risk/pkg/models"
)

// ErrNotFound is returned by a Repository when the record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository is the read-only persistence the collector needs.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetRecentTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	CountTransactionsSince(ctx context.Context, userID string, since time.Time) (int, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
}
