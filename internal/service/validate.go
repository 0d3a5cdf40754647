package service

import "github.com/oakline/ledger/internal/models"

// validateTransfer runs the pre-mutation checks on two resolved accounts.
// Pure read-and-check: no side effects. Check order is fixed so a request
// violating several rules always gets the same error back.
//
// The available-balance check here is advisory; the store re-runs it under
// row locks before committing, and that check is the authoritative one.
func validateTransfer(from, to *models.Account, amount, limit int64) error {
	if from.ID == to.ID {
		return ErrInvalidRequest
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if limit > 0 && amount > limit {
		return ErrLimitExceeded
	}
	if from.Status != models.AccountActive || to.Status != models.AccountActive {
		return ErrAccountUnavailable
	}
	if from.AvailableBalance < amount {
		return ErrInsufficientFunds
	}
	return nil
}
