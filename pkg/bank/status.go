package bank

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidSignature        = errors.New("transaction signature verification failure")
	ErrBlockhashNotFound       = errors.New("blockhash not found")
	ErrAlreadyProcessed        = errors.New("transaction already processed")
	ErrInsufficientFundsForFee = errors.New("insufficient funds for fee")
	ErrInvalidAccountForFee    = errors.New("this account may not be used to pay transaction fees")
	ErrUnsupportedVersion      = errors.New("transaction version is not supported")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrClosed                  = errors.New("bank is closed")
)

// TransactionStatus is what the bank remembers about a processed
// transaction, successful or not.
type TransactionStatus struct {
	Signature    solana.Signature `json:"signature"`
	Slot         uint64           `json:"slot"`
	BlockTime    int64            `json:"blockTime"`
	Fee          uint64           `json:"fee"`
	ComputeUnits uint64           `json:"computeUnits"`
	Logs         []string         `json:"logs"`
	Err          string           `json:"err,omitempty"`
}

func (s *TransactionStatus) Success() bool {
	return s.Err == ""
}

// TransactionError is returned for transactions that were executed and
// charged a fee, but failed.
type TransactionError struct {
	Signature solana.Signature
	Logs      []string
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

func statusKey(sig solana.Signature) string {
	return "status/" + sig.String()
}

func (b *Bank) loadStatus(sig solana.Signature) (*TransactionStatus, error) {
	data, err := b.store.GetMeta(statusKey(sig))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	status := new(TransactionStatus)
	if err := json.Unmarshal(data, status); err != nil {
		return nil, fmt.Errorf("corrupt status for %s: %w", sig, err)
	}
	return status, nil
}

func saveStatus(batch *txBatch, status *TransactionStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	batch.SetMeta(statusKey(status.Signature), data)
	return nil
}
