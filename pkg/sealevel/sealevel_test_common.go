package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/cu"
)

func instructionAcctsFromAccountMetas(instrAcctMetas []AccountMeta, txAccounts TransactionAccounts) []InstructionAccount {
	var instrAccts []InstructionAccount

	for instrAcctIdx, accountMeta := range instrAcctMetas {
		idxInTx := -1
		for pos, acct := range txAccounts.Accounts {
			if acct.Key == accountMeta.Pubkey {
				idxInTx = pos
			}
		}
		if idxInTx == -1 {
			idxInTx = len(txAccounts.Accounts)
		}

		accts := instrAccts[:instrAcctIdx]
		idxInCallee := -1
		for pos, instrAcct := range accts {
			if instrAcct.IndexInTransaction == uint64(idxInTx) {
				idxInCallee = pos
			}
		}
		if idxInCallee == -1 {
			idxInCallee = instrAcctIdx
		}

		newInstrAcct := InstructionAccount{IndexInTransaction: uint64(idxInTx), IndexInCaller: uint64(idxInTx), IndexInCallee: uint64(idxInCallee), IsSigner: accountMeta.IsSigner, IsWritable: accountMeta.IsWritable}
		instrAccts = append(instrAccts, newInstrAcct)
	}

	return instrAccts
}

func newTestExecCtx(accts []accounts.Account) (*ExecutionCtx, *LogRecorder) {
	txAccts := NewTransactionAccounts(accts)
	logs := new(LogRecorder)
	return &ExecutionCtx{
		Log:                logs,
		TransactionContext: NewDefaultTransactionCtx(*txAccts),
		ComputeMeter:       cu.NewComputeMeterDefault(),
		Sysvars:            SysvarCache{Rent: DefaultRent()},
		Programs:           NewProgramRegistry(),
	}, logs
}

func systemProgramTestAcct() accounts.Account {
	return accounts.Account{Key: SystemProgramAddr, Lamports: 1, Owner: NativeLoaderAddr, Executable: true}
}

func randomTestAcct(lamports uint64, owner solana.PublicKey) accounts.Account {
	return accounts.Account{Key: solana.NewWallet().PublicKey(), Lamports: lamports, Data: make([]byte, 0), Owner: owner}
}
