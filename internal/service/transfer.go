package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oakline/ledger/internal/models"
)

// Store is the account/ledger persistence the transfer service runs against.
// ExecTransfer is the atomic unit of work: it must re-check ownership, status
// and available balance under row locks, write the transaction plus both
// ledger entries, and apply the balance deltas, all committing or failing
// together.
type Store interface {
	Account(ctx context.Context, ownerID, id int64) (*models.Account, error)
	AccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error)
	Transactions(ctx context.Context, ownerID, accountID int64, limit, offset int) ([]models.Transaction, error)
	ExecTransfer(ctx context.Context, intent models.TransferIntent) (*models.Transaction, error)
}

// Auditor accepts append-only audit records. Best effort: a failed write is
// logged and never rolls back a committed transfer.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// Publisher fans completed transfers out to downstream consumers.
type Publisher interface {
	PublishTransfer(ctx context.Context, tx *models.Transaction) error
}

type TransferService struct {
	store  Store
	audit  Auditor
	events Publisher // optional, may be nil
	limit  int64     // per-transaction ceiling in minor units, 0 disables
}

func NewTransferService(store Store, audit Auditor, events Publisher, limit int64) *TransferService {
	return &TransferService{store: store, audit: audit, events: events, limit: limit}
}

// ProcessTransfer moves funds between two accounts owned by principal.
// Validation happens before any mutation; the mutation itself is delegated
// to the store's atomic unit so a failure leaves no partial state.
func (s *TransferService) ProcessTransfer(ctx context.Context, principal int64, req models.TransferRequest, meta models.RequestMeta) (*models.TransferResponse, error) {
	amount, err := models.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if req.FromAccountID == 0 || req.ToAccountID == 0 {
		return nil, ErrInvalidRequest
	}

	// Ownership resolution doubles as the existence check.
	from, err := s.store.Account(ctx, principal, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.store.Account(ctx, principal, req.ToAccountID)
	if err != nil {
		return nil, err
	}

	if err := validateTransfer(from, to, amount, s.limit); err != nil {
		s.auditDenied(ctx, principal, req, meta, err)
		return nil, err
	}

	intent := models.TransferIntent{
		OwnerID:       principal,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        amount,
		Description:   req.Description,
		Number:        newTransactionNumber(),
	}

	tx, err := s.store.ExecTransfer(ctx, intent)
	if err != nil {
		s.auditDenied(ctx, principal, req, meta, err)
		return nil, err
	}

	s.auditCompleted(ctx, principal, tx, from, to, meta)

	if s.events != nil {
		if perr := s.events.PublishTransfer(ctx, tx); perr != nil {
			log.Printf("transfer event publish failed for %s: %v", tx.Number, perr)
		}
	}

	return &models.TransferResponse{
		Success: true,
		Transaction: models.TransferReceipt{
			ID:                tx.ID,
			TransactionNumber: tx.Number,
			Amount:            models.FormatMinor(tx.Amount),
			FromAccount:       from.Name,
			ToAccount:         to.Name,
			Status:            string(tx.Status),
		},
	}, nil
}

// Accounts lists the principal's accounts.
func (s *TransferService) Accounts(ctx context.Context, principal int64) ([]models.Account, error) {
	return s.store.AccountsByOwner(ctx, principal)
}

// Account fetches a single account owned by the principal.
func (s *TransferService) Account(ctx context.Context, principal, id int64) (*models.Account, error) {
	return s.store.Account(ctx, principal, id)
}

// AccountTransactions lists an owned account's history, newest first.
func (s *TransferService) AccountTransactions(ctx context.Context, principal, accountID int64, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Transactions(ctx, principal, accountID, limit, offset)
}

func (s *TransferService) auditCompleted(ctx context.Context, principal int64, tx *models.Transaction, from, to *models.Account, meta models.RequestMeta) {
	entry := models.AuditEntry{
		ActorID:      principal,
		SessionID:    meta.SessionID,
		Action:       models.AuditTransfer,
		ResourceType: "transaction",
		ResourceID:   tx.Number,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Description:  fmt.Sprintf("Transfer of %s from %s to %s", models.FormatMinor(tx.Amount), from.Name, to.Name),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		// Compliance gap, not a transfer failure. Flag it and move on.
		log.Printf("WARNING: audit write failed for transaction %s: %v", tx.Number, err)
	}
}

// auditDenied records rejected attempts that carry a suspicious-activity
// signal (overdraw and over-limit tries). Plain shape errors are not audited.
func (s *TransferService) auditDenied(ctx context.Context, principal int64, req models.TransferRequest, meta models.RequestMeta, cause error) {
	if !errors.Is(cause, ErrInsufficientFunds) && !errors.Is(cause, ErrLimitExceeded) {
		return
	}
	entry := models.AuditEntry{
		ActorID:      principal,
		SessionID:    meta.SessionID,
		Action:       models.AuditTransferDenied,
		ResourceType: "account",
		ResourceID:   fmt.Sprintf("%d", req.FromAccountID),
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Description:  fmt.Sprintf("Transfer denied: %v", cause),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Printf("WARNING: audit write failed for denied transfer: %v", err)
	}
}

// newTransactionNumber produces the human-readable reference handed back to
// clients, e.g. TXN-20250114-9F3A61C2.
func newTransactionNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("TXN-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
