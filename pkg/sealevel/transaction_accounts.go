package sealevel

import (
	"go.firedancer.io/lp/pkg/accounts"
)

type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccts := &TransactionAccounts{
		Accounts: make([]*accounts.Account, len(accts)),
		Touched:  make([]bool, len(accts)),
		borrowed: make([]bool, len(accts)),
	}
	for idx := range accts {
		txAccts.Accounts[idx] = accts[idx].Clone()
	}
	return txAccts
}

func (txAccounts *TransactionAccounts) Len() uint64 {
	return uint64(len(txAccounts.Accounts))
}

// GetAccount borrows the account at idx. The borrow must be released with
// Unlock before the account can be borrowed again.
func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrMissingAccount
	}
	if txAccounts.borrowed[idx] {
		return nil, InstrErrAccountBorrowOutstanding
	}
	txAccounts.borrowed[idx] = true
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Unlock(idx uint64) {
	if idx < txAccounts.Len() {
		txAccounts.borrowed[idx] = false
	}
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}
