package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/lp/pkg/accounts"
)

func TestExecute_Tx_System_Program_CreateAccount_Success(t *testing.T) {
	fundingAcct := randomTestAcct(10000, SystemProgramAddr)
	newAcct := randomTestAcct(0, SystemProgramAddr)
	owner := solana.NewWallet().PublicKey()

	execCtx, logs := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), fundingAcct, newAcct})
	txCtx := execCtx.TransactionContext

	instr := NewCreateAccountInstruction(fundingAcct.Key, newAcct.Key, 1234, 100, owner)
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)

	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	require.NoError(t, err)

	newAcctPost, err := txCtx.AccountAtIndex(2)
	require.NoError(t, err)

	// check new account has lamports, space and owner as expected
	assert.Equal(t, uint64(1234), newAcctPost.Lamports)
	assert.Equal(t, 100, len(newAcctPost.Data))
	assert.Equal(t, owner, solana.PublicKeyFromBytes(newAcctPost.Owner[:]))

	fundingAcctPost, err := txCtx.AccountAtIndex(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000-1234), fundingAcctPost.Lamports)

	assert.Equal(t, "Program 11111111111111111111111111111111 invoke [1]", logs.Logs[0])
	assert.Equal(t, "Program 11111111111111111111111111111111 success", logs.Logs[len(logs.Logs)-1])
	assert.True(t, txCtx.Accounts.Touched[1])
	assert.True(t, txCtx.Accounts.Touched[2])
}

func TestExecute_Tx_System_Program_CreateAccount_AlreadyInUse(t *testing.T) {
	fundingAcct := randomTestAcct(10000, SystemProgramAddr)
	newAcct := randomTestAcct(1, SystemProgramAddr)

	execCtx, _ := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), fundingAcct, newAcct})
	txCtx := execCtx.TransactionContext

	instr := NewCreateAccountInstruction(fundingAcct.Key, newAcct.Key, 1234, 100, SystemProgramAddr)
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)

	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, SystemProgErrAccountAlreadyInUse)
}

func TestExecute_Tx_System_Program_CreateAccount_NewAcctNotSigner(t *testing.T) {
	fundingAcct := randomTestAcct(10000, SystemProgramAddr)
	newAcct := randomTestAcct(0, SystemProgramAddr)

	execCtx, _ := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), fundingAcct, newAcct})
	txCtx := execCtx.TransactionContext

	instr := NewCreateAccountInstruction(fundingAcct.Key, newAcct.Key, 1234, 100, SystemProgramAddr)
	instr.Accounts[1].IsSigner = false
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)

	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, InstrErrMissingRequiredSignature)
}

func TestExecute_Tx_System_Program_Transfer(t *testing.T) {
	fromAcct := randomTestAcct(10000, SystemProgramAddr)
	toAcct := randomTestAcct(0, SystemProgramAddr)

	execCtx, _ := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), fromAcct, toAcct})
	txCtx := execCtx.TransactionContext

	instr := NewTransferInstruction(fromAcct.Key, toAcct.Key, 2500)
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)

	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	require.NoError(t, err)

	from, _ := txCtx.AccountAtIndex(1)
	to, _ := txCtx.AccountAtIndex(2)
	assert.Equal(t, uint64(7500), from.Lamports)
	assert.Equal(t, uint64(2500), to.Lamports)
}

func TestExecute_Tx_System_Program_Transfer_InsufficientLamports(t *testing.T) {
	fromAcct := randomTestAcct(100, SystemProgramAddr)
	toAcct := randomTestAcct(0, SystemProgramAddr)

	execCtx, logs := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), fromAcct, toAcct})
	txCtx := execCtx.TransactionContext

	instr := NewTransferInstruction(fromAcct.Key, toAcct.Key, 101)
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)

	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, SystemProgErrResultWithNegativeLamports)
	assert.Contains(t, logs.Logs[len(logs.Logs)-1], "failed")
}

func TestExecute_Tx_System_Program_Transfer_FromCarriesData(t *testing.T) {
	fromAcct := randomTestAcct(10000, SystemProgramAddr)
	fromAcct.Data = []byte{1}
	toAcct := randomTestAcct(0, SystemProgramAddr)

	execCtx, _ := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), fromAcct, toAcct})
	txCtx := execCtx.TransactionContext

	instr := NewTransferInstruction(fromAcct.Key, toAcct.Key, 1)
	instructionAccts := instructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)

	err := execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{0})
	assert.ErrorIs(t, err, InstrErrInvalidArgument)
}

func TestExecute_Tx_System_Program_Allocate_And_Assign(t *testing.T) {
	acct := randomTestAcct(10000, SystemProgramAddr)
	owner := solana.NewWallet().PublicKey()

	execCtx, _ := newTestExecCtx([]accounts.Account{systemProgramTestAcct(), acct})
	txCtx := execCtx.TransactionContext

	allocate := NewAllocateInstruction(acct.Key, 64)
	err := execCtx.ProcessInstruction(allocate.Data, instructionAcctsFromAccountMetas(allocate.Accounts, txCtx.Accounts), []uint64{0})
	require.NoError(t, err)

	assign := NewAssignInstruction(acct.Key, owner)
	err = execCtx.ProcessInstruction(assign.Data, instructionAcctsFromAccountMetas(assign.Accounts, txCtx.Accounts), []uint64{0})
	require.NoError(t, err)

	post, _ := txCtx.AccountAtIndex(1)
	assert.Len(t, post.Data, 64)
	assert.Equal(t, owner, solana.PublicKeyFromBytes(post.Owner[:]))

	// no longer system owned
	err = execCtx.ProcessInstruction(allocate.Data, instructionAcctsFromAccountMetas(allocate.Accounts, txCtx.Accounts), []uint64{0})
	assert.ErrorIs(t, err, SystemProgErrAccountAlreadyInUse)
}

func TestExecute_Tx_System_Program_InvalidInstruction(t *testing.T) {
	execCtx, _ := newTestExecCtx([]accounts.Account{systemProgramTestAcct()})

	err := execCtx.ProcessInstruction([]byte{0xff, 0, 0, 0}, nil, []uint64{0})
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)

	err = execCtx.ProcessInstruction([]byte{1}, nil, []uint64{0})
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)
}
