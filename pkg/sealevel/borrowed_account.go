package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/safemath"
)

const MaxPermittedDataLength = 10 * 1024 * 1024

type BorrowedAccount struct {
	TxCtx              *TransactionCtx
	InstrCtx           *InstructionCtx
	IndexInTransaction uint64
	IndexInInstruction uint64
	Account            *accounts.Account
}

func (acct *BorrowedAccount) Drop() {
	acct.TxCtx.Accounts.Unlock(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) Key() solana.PublicKey {
	return acct.Account.Key
}

func (acct *BorrowedAccount) Owner() solana.PublicKey {
	return acct.Account.Owner
}

func (acct *BorrowedAccount) Lamports() uint64 {
	return acct.Account.Lamports
}

func (acct *BorrowedAccount) Data() []byte {
	return acct.Account.Data
}

func (acct *BorrowedAccount) Touch() error {
	return acct.TxCtx.Accounts.Touch(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) IsExecutable() bool {
	return acct.Account.Executable
}

func (acct *BorrowedAccount) IsSigner() bool {
	instrCtx := acct.InstrCtx
	if acct.IndexInInstruction < instrCtx.NumberOfProgramAccounts() {
		return false
	}

	instrAcctIdx := safemath.SaturatingSubU64(acct.IndexInInstruction, instrCtx.NumberOfProgramAccounts())
	isSigner, err := instrCtx.IsInstructionAccountSigner(instrAcctIdx)
	if err != nil {
		return false
	}
	return isSigner
}

func (acct *BorrowedAccount) IsWritable() bool {
	instrCtx := acct.InstrCtx
	if acct.IndexInInstruction < instrCtx.NumberOfProgramAccounts() {
		return false
	}

	instrAcctIdx := safemath.SaturatingSubU64(acct.IndexInInstruction, instrCtx.NumberOfProgramAccounts())
	writable, err := instrCtx.IsInstructionAccountWritable(instrAcctIdx)
	if err != nil {
		return false
	}

	return writable
}

func (acct *BorrowedAccount) IsOwnedByCurrentProgram() bool {
	lastProgramKey, err := acct.InstrCtx.LastProgramKey(acct.TxCtx)
	if err != nil {
		return false
	}
	return lastProgramKey == acct.Owner()
}

func (acct *BorrowedAccount) SetLamports(lamports uint64) error {
	// only the owner may spend lamports
	if !acct.IsOwnedByCurrentProgram() && lamports < acct.Lamports() {
		return InstrErrExternalAccountLamportSpend
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyLamportChange
	}
	if acct.IsExecutable() {
		return InstrErrExecutableLamportChange
	}
	if acct.Lamports() == lamports {
		return nil
	}
	if err := acct.Touch(); err != nil {
		return err
	}
	acct.Account.Lamports = lamports
	return nil
}

func (acct *BorrowedAccount) CheckedAddLamports(lamports uint64) error {
	newLamports, err := safemath.CheckedAddU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(newLamports)
}

func (acct *BorrowedAccount) CheckedSubLamports(lamports uint64) error {
	newLamports, err := safemath.CheckedSubU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrInsufficientFunds
	}
	return acct.SetLamports(newLamports)
}

func (acct *BorrowedAccount) DataCanBeChanged() error {
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyDataModified
	}
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountDataModified
	}
	return nil
}

func (acct *BorrowedAccount) CanDataBeResized(newLength uint64) error {
	if newLength != uint64(len(acct.Data())) && !acct.IsOwnedByCurrentProgram() {
		return InstrErrAccountDataSizeChanged
	}
	if newLength > MaxPermittedDataLength {
		return InstrErrInvalidRealloc
	}
	return nil
}

func (acct *BorrowedAccount) SetData(data []byte) error {
	if err := acct.CanDataBeResized(uint64(len(data))); err != nil {
		return err
	}
	if err := acct.DataCanBeChanged(); err != nil {
		return err
	}
	if err := acct.Touch(); err != nil {
		return err
	}
	acct.Account.SetData(data)
	return nil
}

// SetDataLength resizes the account data, zero-filling any new bytes.
func (acct *BorrowedAccount) SetDataLength(newLength uint64) error {
	if err := acct.CanDataBeResized(newLength); err != nil {
		return err
	}
	if err := acct.DataCanBeChanged(); err != nil {
		return err
	}
	if uint64(len(acct.Data())) == newLength {
		return nil
	}
	if err := acct.Touch(); err != nil {
		return err
	}
	newData := make([]byte, newLength)
	copy(newData, acct.Account.Data)
	acct.Account.Data = newData
	return nil
}

func (acct *BorrowedAccount) isZeroed() bool {
	for _, b := range acct.Data() {
		if b != 0 {
			return false
		}
	}
	return true
}

func (acct *BorrowedAccount) SetOwner(owner solana.PublicKey) error {
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrModifiedProgramId
	}
	if !acct.IsWritable() {
		return InstrErrModifiedProgramId
	}
	if acct.IsExecutable() {
		return InstrErrModifiedProgramId
	}
	if !acct.isZeroed() {
		return InstrErrModifiedProgramId
	}
	if acct.Owner() == owner {
		return nil
	}
	if err := acct.Touch(); err != nil {
		return err
	}
	acct.Account.Owner = owner
	return nil
}
