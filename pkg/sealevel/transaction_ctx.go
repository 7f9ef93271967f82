package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
)

const (
	MaxInstructionStackDepth  = 5
	MaxInstructionTraceLength = 64
	MaxReturnData             = 1024
)

type TxReturnData struct {
	programId solana.PublicKey
	data      []byte
}

type TransactionCtx struct {
	Accounts                  TransactionAccounts
	Signature                 solana.Signature
	instructionStack          []uint64
	instructionTrace          []*InstructionCtx
	maxInstructionStackDepth  uint64
	maxInstructionTraceLength uint64
	returnData                TxReturnData
}

func NewTransactionCtx(txAccts TransactionAccounts, maxStackDepth uint64, maxTraceLength uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:                  txAccts,
		maxInstructionStackDepth:  maxStackDepth,
		maxInstructionTraceLength: maxTraceLength,
	}
}

func NewDefaultTransactionCtx(txAccts TransactionAccounts) *TransactionCtx {
	return NewTransactionCtx(txAccts, MaxInstructionStackDepth, MaxInstructionTraceLength)
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	if index >= txCtx.Accounts.Len() {
		return solana.PublicKey{}, InstrErrNotEnoughAccountKeys
	}
	return txCtx.Accounts.Accounts[index].Key, nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

// AccountAtIndex returns the account without borrowing it.
func (txCtx *TransactionCtx) AccountAtIndex(index uint64) (*accounts.Account, error) {
	if index >= txCtx.Accounts.Len() {
		return nil, InstrErrNotEnoughAccountKeys
	}
	return txCtx.Accounts.Accounts[index], nil
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace))
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= txCtx.InstructionCtxStackHeight() {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionTrace[txCtx.instructionStack[level]], nil
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtNestingLevel(height - 1)
}

func (txCtx *TransactionCtx) Push(instrCtx *InstructionCtx) error {
	if txCtx.InstructionTraceLength() >= txCtx.maxInstructionTraceLength {
		return InstrErrMaxInstructionTraceLength
	}
	if txCtx.InstructionCtxStackHeight() >= txCtx.maxInstructionStackDepth {
		return InstrErrCallDepth
	}
	instrCtx.nestingLevel = txCtx.InstructionCtxStackHeight()
	txCtx.instructionTrace = append(txCtx.instructionTrace, instrCtx)
	txCtx.instructionStack = append(txCtx.instructionStack, txCtx.InstructionTraceLength()-1)
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if txCtx.InstructionCtxStackHeight() == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]
	return nil
}

func (txCtx *TransactionCtx) SetReturnData(programId solana.PublicKey, data []byte) error {
	if len(data) > MaxReturnData {
		return InstrErrInvalidArgument
	}
	txCtx.returnData = TxReturnData{programId: programId, data: append([]byte(nil), data...)}
	return nil
}

func (txCtx *TransactionCtx) GetReturnData() (solana.PublicKey, []byte) {
	return txCtx.returnData.programId, txCtx.returnData.data
}
