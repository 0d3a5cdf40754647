package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCredit   AccountType = "credit"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

// Account holds balances in minor currency units. Checking and savings
// balances never go negative; credit accounts may, representing amount owed.
type Account struct {
	ID               int64         `json:"id"`
	OwnerID          int64         `json:"owner_id"`
	Name             string        `json:"name"`
	Type             AccountType   `json:"type"`
	Balance          int64         `json:"balance"`
	AvailableBalance int64         `json:"available_balance"`
	Status           AccountStatus `json:"status"`
	LastActivityAt   time.Time     `json:"last_activity_at"`
	CreatedAt        time.Time     `json:"created_at"`
}

type TransactionType string

const (
	TypeTransfer   TransactionType = "transfer"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusReversed  TransactionStatus = "reversed"
)

// Transaction is the immutable record of a value movement. From/To are
// nullable: an external credit has no source, an external debit no destination.
// A completed transaction is never mutated; corrections are reversing records.
type Transaction struct {
	ID            int64             `json:"id"`
	Number        string            `json:"transaction_number"`
	FromAccountID *int64            `json:"from_account_id"`
	ToAccountID   *int64            `json:"to_account_id"`
	Amount        int64             `json:"amount"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description,omitempty"`
	InitiatedBy   int64             `json:"initiated_by"`
	CreatedAt     time.Time         `json:"created_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
}

// Entry is one leg of the double-entry pair. The two deltas written for a
// transaction always sum to zero.
type Entry struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	AccountID     int64     `json:"account_id"`
	Delta         int64     `json:"delta"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransferRequest is the client payload for POST /transfers.
type TransferRequest struct {
	FromAccountID int64           `json:"fromAccountId"`
	ToAccountID   int64           `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
}

// TransferIntent is a fully validated transfer, expressed in minor units,
// ready for the atomic store mutation.
type TransferIntent struct {
	OwnerID       int64
	FromAccountID int64
	ToAccountID   int64
	Amount        int64
	Description   string
	Number        string
}

// TransferReceipt is the transaction summary returned to the client.
type TransferReceipt struct {
	ID                int64  `json:"id"`
	TransactionNumber string `json:"transactionNumber"`
	Amount            string `json:"amount"`
	FromAccount       string `json:"fromAccount"`
	ToAccount         string `json:"toAccount"`
	Status            string `json:"status"`
}

type TransferResponse struct {
	Success     bool            `json:"success"`
	Transaction TransferReceipt `json:"transaction"`
}

// User is consumed only by login and ownership checks.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	KYCStatus    string    `json:"kyc_status"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the value stored against an opaque token in the session store.
type Session struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequestMeta carries caller metadata into audit entries.
type RequestMeta struct {
	SessionID string
	IPAddress string
	UserAgent string
}

// AuditEntry is an append-only record of a principal's action.
type AuditEntry struct {
	ID           string    `json:"id" bson:"_id"`
	ActorID      int64     `json:"actor_id" bson:"actor_id"`
	SessionID    string    `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Action       string    `json:"action" bson:"action"`
	ResourceType string    `json:"resource_type" bson:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

const (
	AuditLogin          = "login"
	AuditLogout         = "logout"
	AuditTransfer       = "transfer"
	AuditTransferDenied = "transfer_denied"
)
