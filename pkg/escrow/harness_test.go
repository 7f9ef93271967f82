package escrow

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/cu"
	"go.firedancer.io/lp/pkg/sealevel"
)

const testNow = int64(1_700_000_000)

// harness runs single instructions against an in-memory account set,
// committing account changes only when the instruction succeeds.
type harness struct {
	t        *testing.T
	accts    accounts.MemAccounts
	programs *sealevel.ProgramRegistry
	clock    sealevel.SysvarClock
	rent     sealevel.SysvarRent
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:        t,
		accts:    accounts.NewMemAccounts(),
		programs: sealevel.NewProgramRegistry(),
		clock:    sealevel.SysvarClock{Slot: 10, UnixTimestamp: testNow},
		rent:     sealevel.DefaultRent(),
	}
	Register(h.programs)

	system := accounts.Account{Key: sealevel.SystemProgramAddr, Lamports: 1, Owner: sealevel.NativeLoaderAddr, Executable: true}
	program := ProgramAccount()
	h.set(&system)
	h.set(&program)
	return h
}

func (h *harness) set(acct *accounts.Account) {
	require.NoError(h.t, h.accts.SetAccount((*[32]byte)(&acct.Key), acct))
}

func (h *harness) get(key solana.PublicKey) *accounts.Account {
	acct, err := h.accts.GetAccount((*[32]byte)(&key))
	require.NoError(h.t, err)
	if acct == nil {
		return &accounts.Account{Key: key, Owner: sealevel.SystemProgramAddr, Data: make([]byte, 0)}
	}
	return acct
}

func (h *harness) lamports(key solana.PublicKey) uint64 {
	return h.get(key).Lamports
}

func (h *harness) wallet(lamports uint64) solana.PublicKey {
	key := solana.NewWallet().PublicKey()
	h.set(&accounts.Account{Key: key, Lamports: lamports, Owner: sealevel.SystemProgramAddr, Data: make([]byte, 0)})
	return key
}

func (h *harness) exec(ix solana.Instruction) ([]string, error) {
	instr, err := sealevel.InstructionFromSolana(ix)
	require.NoError(h.t, err)

	var keys []solana.PublicKey
	signer := make(map[solana.PublicKey]bool)
	writable := make(map[solana.PublicKey]bool)
	indexOf := func(key solana.PublicKey) uint64 {
		for idx, k := range keys {
			if k == key {
				return uint64(idx)
			}
		}
		keys = append(keys, key)
		return uint64(len(keys) - 1)
	}

	for _, meta := range instr.Accounts {
		indexOf(meta.Pubkey)
		signer[meta.Pubkey] = signer[meta.Pubkey] || meta.IsSigner
		writable[meta.Pubkey] = writable[meta.Pubkey] || meta.IsWritable
	}
	programIdx := indexOf(instr.ProgramId)

	txAccts := make([]accounts.Account, 0, len(keys))
	for _, key := range keys {
		txAccts = append(txAccts, *h.get(key))
	}

	instrAccts := make([]sealevel.InstructionAccount, 0, len(instr.Accounts))
	for callee, meta := range instr.Accounts {
		idx := indexOf(meta.Pubkey)
		first := uint64(callee)
		for prev, m := range instr.Accounts[:callee] {
			if m.Pubkey == meta.Pubkey {
				first = uint64(prev)
				break
			}
		}
		instrAccts = append(instrAccts, sealevel.InstructionAccount{
			IndexInTransaction: idx,
			IndexInCaller:      idx,
			IndexInCallee:      first,
			IsSigner:           signer[meta.Pubkey],
			IsWritable:         writable[meta.Pubkey],
		})
	}

	logs := new(sealevel.LogRecorder)
	execCtx := &sealevel.ExecutionCtx{
		Log:                logs,
		TransactionContext: sealevel.NewDefaultTransactionCtx(*sealevel.NewTransactionAccounts(txAccts)),
		ComputeMeter:       cu.NewComputeMeterDefault(),
		Sysvars:            sealevel.SysvarCache{Clock: h.clock, Rent: h.rent},
		Programs:           h.programs,
	}

	err = execCtx.ProcessInstruction(instr.Data, instrAccts, []uint64{programIdx})
	if err != nil {
		return logs.Logs, err
	}

	for idx := range keys {
		if execCtx.TransactionContext.Accounts.Touched[idx] {
			h.set(execCtx.TransactionContext.Accounts.Accounts[idx])
		}
	}
	return logs.Logs, nil
}

func (h *harness) mustExec(ix solana.Instruction, err error) []string {
	require.NoError(h.t, err)
	logs, err := h.exec(ix)
	require.NoError(h.t, err, "logs: %v", logs)
	return logs
}

func (h *harness) jobPost(key solana.PublicKey) *JobPost {
	jp, err := DecodeJobPost(h.get(key).Data)
	require.NoError(h.t, err)
	return jp
}

func (h *harness) application(key solana.PublicKey) *Application {
	app, err := DecodeApplication(h.get(key).Data)
	require.NoError(h.t, err)
	return app
}

func jobArgs(title string, amount uint64) InitializeJobPostArgs {
	return InitializeJobPostArgs{
		Title:       title,
		Description: "build a landing page",
		Amount:      amount,
		StartDate:   testNow + 60,
		EndDate:     testNow + 86400,
	}
}
