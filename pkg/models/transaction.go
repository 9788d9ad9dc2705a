package models

import (
	"time"
)

// TransactionStatus represents transaction status
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusDisputed  TransactionStatus = "disputed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// User is the read-only slice of a user record the risk engine consumes.
type User struct {
	ID                string    `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	Phone             *string   `json:"phone,omitempty" db:"phone"`
	IsVerified        bool      `json:"is_verified" db:"is_verified"`
	VerificationLevel int       `json:"verification_level" db:"verification_level"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Transaction is the read-only slice of a transaction the risk engine consumes.
type Transaction struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Amount    float64           `json:"amount" db:"amount"`
	Currency  string            `json:"currency" db:"currency"`
	Status    TransactionStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// AccountAgeDays returns whole days since the account was created.
func (u *User) AccountAgeDays(now time.Time) int {
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}
