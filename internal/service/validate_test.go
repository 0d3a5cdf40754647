package service

import (
	"errors"
	"testing"

	"github.com/oakline/ledger/internal/models"
)

func activeAccount(id, available int64) *models.Account {
	return &models.Account{
		ID:               id,
		OwnerID:          1,
		Name:             "Checking",
		Type:             models.AccountChecking,
		Balance:          available,
		AvailableBalance: available,
		Status:           models.AccountActive,
	}
}

func TestValidateTransfer(t *testing.T) {
	const limit = 1000000 // 10,000.00

	cases := []struct {
		name    string
		from    *models.Account
		to      *models.Account
		amount  int64
		wantErr error
	}{
		{
			name:   "valid",
			from:   activeAccount(1, 10000),
			to:     activeAccount(2, 0),
			amount: 3000,
		},
		{
			name:    "same account",
			from:    activeAccount(1, 10000),
			to:      activeAccount(1, 10000),
			amount:  3000,
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "zero amount",
			from:    activeAccount(1, 10000),
			to:      activeAccount(2, 0),
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			from:    activeAccount(1, 10000),
			to:      activeAccount(2, 0),
			amount:  -100,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "over per-transaction ceiling",
			from:    activeAccount(1, 2000000),
			to:      activeAccount(2, 0),
			amount:  1500000,
			wantErr: ErrLimitExceeded,
		},
		{
			name: "frozen source",
			from: func() *models.Account {
				a := activeAccount(1, 10000)
				a.Status = models.AccountFrozen
				return a
			}(),
			to:      activeAccount(2, 0),
			amount:  3000,
			wantErr: ErrAccountUnavailable,
		},
		{
			name: "closed destination",
			from: activeAccount(1, 10000),
			to: func() *models.Account {
				a := activeAccount(2, 0)
				a.Status = models.AccountClosed
				return a
			}(),
			amount:  3000,
			wantErr: ErrAccountUnavailable,
		},
		{
			name:    "insufficient available balance",
			from:    activeAccount(1, 2999),
			to:      activeAccount(2, 0),
			amount:  3000,
			wantErr: ErrInsufficientFunds,
		},
		{
			name:   "exact available balance",
			from:   activeAccount(1, 3000),
			to:     activeAccount(2, 0),
			amount: 3000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTransfer(tc.from, tc.to, tc.amount, limit)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("validateTransfer() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// A request violating several rules gets the first error in check order:
// shape before ceiling before status before funds.
func TestValidateTransferCheckOrder(t *testing.T) {
	frozen := activeAccount(1, 0)
	frozen.Status = models.AccountFrozen

	// over-limit AND frozen AND broke: limit check wins
	err := validateTransfer(frozen, activeAccount(2, 0), 2000000, 1000000)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded first, got %v", err)
	}

	// frozen AND broke: status check wins
	err = validateTransfer(frozen, activeAccount(2, 0), 3000, 1000000)
	if !errors.Is(err, ErrAccountUnavailable) {
		t.Fatalf("expected ErrAccountUnavailable before funds check, got %v", err)
	}
}

func TestValidateTransferNoLimit(t *testing.T) {
	// limit 0 disables the ceiling
	err := validateTransfer(activeAccount(1, 5000000), activeAccount(2, 0), 2000000, 0)
	if err != nil {
		t.Fatalf("unexpected error with ceiling disabled: %v", err)
	}
}
