package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oakline/ledger/internal/models"
	"github.com/oakline/ledger/internal/service"
)

// maxTransferAttempts bounds retries on serialization failures before the
// operation is surfaced as a retryable TransferFailed.
const maxTransferAttempts = 3

type Store struct {
	db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

// InitSchema creates the ledger tables if they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'member',
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'checking',
		balance BIGINT NOT NULL DEFAULT 0,
		available_balance BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		last_activity_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT non_negative_available CHECK (type = 'credit' OR available_balance >= 0),
		CONSTRAINT non_negative_balance CHECK (type = 'credit' OR balance >= 0)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		transaction_number TEXT NOT NULL UNIQUE,
		from_account_id BIGINT REFERENCES accounts(id),
		to_account_id BIGINT REFERENCES accounts(id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		description TEXT NOT NULL DEFAULT '',
		initiated_by BIGINT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS entries (
		id BIGSERIAL PRIMARY KEY,
		transaction_id BIGINT NOT NULL REFERENCES transactions(id),
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		delta BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_entries_account ON entries(account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_accounts ON transactions(from_account_id, to_account_id);
	`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UserByEmail looks up an active or inactive user by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, first_name, last_name, role, kyc_status, is_active, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.KYCStatus, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrUnauthenticated
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return &u, nil
}

// Account fetches one account, scoped to its owner. A row owned by someone
// else is reported as not found rather than forbidden.
func (s *Store) Account(ctx context.Context, ownerID, id int64) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, type, balance, available_balance, status, last_activity_at, created_at
		 FROM accounts WHERE id = $1 AND owner_id = $2`, id, ownerID,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Balance, &a.AvailableBalance, &a.Status, &a.LastActivityAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAccountNotFound
		}
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return &a, nil
}

// AccountsByOwner lists every account belonging to a principal.
func (s *Store) AccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, name, type, balance, available_balance, status, last_activity_at, created_at
		 FROM accounts WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("accounts query failed: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Balance, &a.AvailableBalance, &a.Status, &a.LastActivityAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("account scan failed: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Transactions lists an owned account's history, newest first.
func (s *Store) Transactions(ctx context.Context, ownerID, accountID int64, limit, offset int) ([]models.Transaction, error) {
	if _, err := s.Account(ctx, ownerID, accountID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, transaction_number, from_account_id, to_account_id, amount, type, status, description, initiated_by, created_at, processed_at
		 FROM transactions
		 WHERE from_account_id = $1 OR to_account_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transactions query failed: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Number, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.Type, &t.Status, &t.Description, &t.InitiatedBy, &t.CreatedAt, &t.ProcessedAt); err != nil {
			return nil, fmt.Errorf("transaction scan failed: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ExecTransfer executes the transfer as one atomic unit of work. On
// serialization or deadlock failure the whole unit retries, bounded; the
// caller sees either a committed transfer or zero balance change.
func (s *Store) ExecTransfer(ctx context.Context, intent models.TransferIntent) (*models.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxTransferAttempts; attempt++ {
		tx, err := s.execTransferOnce(ctx, intent)
		if err == nil {
			return tx, nil
		}
		if isValidationErr(err) {
			return nil, err
		}
		if !retryable(err) {
			return nil, fmt.Errorf("%w: %v", service.ErrTransferFailed, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", service.ErrTransferFailed, lastErr)
}

func isValidationErr(err error) bool {
	return errors.Is(err, service.ErrAccountNotFound) ||
		errors.Is(err, service.ErrAccountUnavailable) ||
		errors.Is(err, service.ErrInsufficientFunds)
}

func (s *Store) execTransferOnce(ctx context.Context, intent models.TransferIntent) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both rows in ascending id order so concurrent opposite-direction
	// transfers cannot deadlock.
	firstID, secondID := intent.FromAccountID, intent.ToAccountID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := lockAccount(ctx, tx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := lockAccount(ctx, tx, secondID)
	if err != nil {
		return nil, err
	}

	from, to := first, second
	if from.ID != intent.FromAccountID {
		from, to = second, first
	}

	// Authoritative checks under lock. The service's pre-validation may have
	// read stale balances.
	if from.OwnerID != intent.OwnerID || to.OwnerID != intent.OwnerID {
		return nil, service.ErrAccountNotFound
	}
	if from.Status != models.AccountActive || to.Status != models.AccountActive {
		return nil, service.ErrAccountUnavailable
	}
	if from.AvailableBalance < intent.Amount {
		return nil, service.ErrInsufficientFunds
	}

	var record models.Transaction
	record.FromAccountID = &from.ID
	record.ToAccountID = &to.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (transaction_number, from_account_id, to_account_id, amount, type, status, description, initiated_by, processed_at)
		 VALUES ($1, $2, $3, $4, 'transfer', 'completed', $5, $6, NOW())
		 RETURNING id, transaction_number, amount, type, status, description, initiated_by, created_at, processed_at`,
		intent.Number, from.ID, to.ID, intent.Amount, intent.Description, intent.OwnerID,
	).Scan(&record.ID, &record.Number, &record.Amount, &record.Type, &record.Status, &record.Description, &record.InitiatedBy, &record.CreatedAt, &record.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	// Both legs in one statement; deltas sum to zero.
	_, err = tx.Exec(ctx,
		`INSERT INTO entries (transaction_id, account_id, delta) VALUES ($1, $2, $3), ($1, $4, $5)`,
		record.ID, from.ID, -intent.Amount, to.ID, intent.Amount)
	if err != nil {
		return nil, fmt.Errorf("ledger entry insert failed: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1, available_balance = available_balance - $1, last_activity_at = NOW() WHERE id = $2`,
		intent.Amount, from.ID)
	if err != nil {
		return nil, fmt.Errorf("debit update failed: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1, available_balance = available_balance + $1, last_activity_at = NOW() WHERE id = $2`,
		intent.Amount, to.ID)
	if err != nil {
		return nil, fmt.Errorf("credit update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return &record, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, id int64) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRow(ctx,
		`SELECT id, owner_id, name, type, balance, available_balance, status
		 FROM accounts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Balance, &a.AvailableBalance, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrAccountNotFound
		}
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	return &a, nil
}

// retryable reports whether the unit of work hit a transient conflict
// (serialization failure or deadlock) worth another attempt.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
