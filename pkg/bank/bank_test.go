package bank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/config"
	"go.firedancer.io/lp/pkg/escrow"
	"go.firedancer.io/lp/pkg/events"
	"go.firedancer.io/lp/pkg/rent"
	"go.firedancer.io/lp/pkg/sealevel"
)

const testNow = int64(1_700_000_000)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Bank.GenesisTimestamp = testNow
	return cfg
}

func openTestBank(t *testing.T, cfg *config.Config, opts ...Option) *Bank {
	opts = append([]Option{WithNow(func() time.Time { return time.Unix(testNow, 0) })}, opts...)
	b, err := Open(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func fundedWallet(t *testing.T, b *Bank, lamports uint64) solana.PrivateKey {
	wallet := solana.NewWallet().PrivateKey
	_, err := b.Airdrop(context.Background(), wallet.PublicKey(), lamports)
	require.NoError(t, err)
	return wallet
}

func signedTx(t *testing.T, b *Bank, payer solana.PrivateKey, ixs ...solana.Instruction) *solana.Transaction {
	blockhash, err := b.LatestBlockhash(context.Background())
	require.NoError(t, err)
	return signedTxWithBlockhash(t, blockhash, payer, ixs...)
}

func signedTxWithBlockhash(t *testing.T, blockhash solana.Hash, payer solana.PrivateKey, ixs ...solana.Instruction) *solana.Transaction {
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key == payer.PublicKey() {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func balance(t *testing.T, b *Bank, key solana.PublicKey) uint64 {
	acct, err := b.GetAccount(context.Background(), key)
	require.NoError(t, err)
	if acct == nil {
		return 0
	}
	return acct.Lamports
}

func mustIx(ix solana.Instruction, err error) solana.Instruction {
	if err != nil {
		panic(err)
	}
	return ix
}

func TestGenesis(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()

	assert.Equal(t, uint64(0), b.Slot())
	assert.Equal(t, testNow, b.Clock().UnixTimestamp)
	assert.Equal(t, FaucetLamports, balance(t, b, b.Faucet()))

	program, err := b.GetAccount(ctx, escrow.ProgramID)
	require.NoError(t, err)
	require.NotNil(t, program)
	assert.True(t, program.Executable)

	systemProgram, err := b.GetAccount(ctx, sealevel.SystemProgramAddr)
	require.NoError(t, err)
	require.NotNil(t, systemProgram)
	assert.True(t, systemProgram.Executable)

	clock, err := sealevel.ReadClockSysvar(b.store)
	require.NoError(t, err)
	assert.Equal(t, testNow, clock.UnixTimestamp)

	minBalance, err := b.MinimumBalance(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(890_880), minBalance)
}

func TestAirdrop(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	key := solana.NewWallet().PublicKey()
	before, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)

	sig, err := b.Airdrop(ctx, key, 2*solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	assert.Equal(t, 2*solana.LAMPORTS_PER_SOL, balance(t, b, key))
	assert.Equal(t, FaucetLamports-2*solana.LAMPORTS_PER_SOL-5000, balance(t, b, b.Faucet()))
	assert.Equal(t, uint64(1), b.Slot())

	after, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	status, err := b.Transaction(ctx, sig)
	require.NoError(t, err)
	assert.True(t, status.Success())
	assert.Equal(t, uint64(5000), status.Fee)
	assert.Equal(t, uint64(1), status.Slot)
	assert.Equal(t, uint64(150), status.ComputeUnits)
	assert.Equal(t, []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program 11111111111111111111111111111111 consumed 150 of 200000 compute units",
		"Program 11111111111111111111111111111111 success",
	}, status.Logs)
}

func TestAirdropBelowRentExemption(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	key := solana.NewWallet().PublicKey()

	_, err := b.Airdrop(ctx, key, 1000)
	var rentErr *rent.InsufficientFundsForRentError
	require.ErrorAs(t, err, &rentErr)
	assert.Equal(t, uint64(0), balance(t, b, key))
	assert.Equal(t, FaucetLamports-5000, balance(t, b, b.Faucet()))
}

func TestProcessTransaction_Initialize(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	wallet := fundedWallet(t, b, solana.LAMPORTS_PER_SOL)

	sig, err := b.ProcessTransaction(ctx, signedTx(t, b, wallet, escrow.NewInitializeInstruction()))
	require.NoError(t, err)
	assert.False(t, sig.IsZero())

	logs, err := b.TransactionLogs(ctx, sig)
	require.NoError(t, err)
	assert.Contains(t, logs, "Program log: Greetings from: "+escrow.ProgramIDStr)
	assert.Equal(t, solana.LAMPORTS_PER_SOL-5000, balance(t, b, wallet.PublicKey()))
}

func TestProcessTransaction_Rejections(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	wallet := fundedWallet(t, b, solana.LAMPORTS_PER_SOL)

	t.Run("bad signature", func(t *testing.T) {
		tx := signedTx(t, b, wallet, escrow.NewInitializeInstruction())
		tx.Signatures[0][0] ^= 0xff
		_, err := b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unsigned", func(t *testing.T) {
		tx := signedTx(t, b, wallet, escrow.NewInitializeInstruction())
		tx.Signatures = nil
		_, err := b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unknown blockhash", func(t *testing.T) {
		tx := signedTxWithBlockhash(t, solana.Hash{1, 2, 3}, wallet, escrow.NewInitializeInstruction())
		_, err := b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, ErrBlockhashNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		tx := signedTx(t, b, wallet, escrow.NewInitializeInstruction())
		_, err := b.ProcessTransaction(ctx, tx)
		require.NoError(t, err)
		_, err = b.ProcessTransaction(ctx, tx)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("payer cannot cover fee", func(t *testing.T) {
		slot := b.Slot()
		broke := solana.NewWallet().PrivateKey
		_, err := b.ProcessTransaction(ctx, signedTx(t, b, broke, escrow.NewInitializeInstruction()))
		assert.ErrorIs(t, err, ErrInsufficientFundsForFee)
		assert.Equal(t, slot, b.Slot())
	})
}

func TestBlockhashExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.Bank.MaxBlockhashAge = 2
	b := openTestBank(t, cfg)
	ctx := context.Background()
	wallet := fundedWallet(t, b, solana.LAMPORTS_PER_SOL)

	old, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)
	tx := signedTxWithBlockhash(t, old, wallet, escrow.NewInitializeInstruction())

	_, err = b.Airdrop(ctx, solana.NewWallet().PublicKey(), solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)
	_, err = b.Airdrop(ctx, solana.NewWallet().PublicKey(), solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	_, err = b.ProcessTransaction(ctx, tx)
	assert.ErrorIs(t, err, ErrBlockhashNotFound)
}

func TestFailedTransactionChargesFeeOnly(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	client := fundedWallet(t, b, 10*solana.LAMPORTS_PER_SOL)

	args := escrow.InitializeJobPostArgs{Title: "logo", Description: "a logo", Amount: 0, StartDate: testNow + 60, EndDate: testNow + 600}
	tx := signedTx(t, b, client, mustIx(escrow.NewInitializeJobPostInstruction(client.PublicKey(), args)))

	sig, err := b.ProcessTransaction(ctx, tx)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.ErrorIs(t, err, escrow.ErrInvalidAmount)
	assert.Equal(t, sig, txErr.Signature)

	var instrErr *sealevel.InstructionError
	require.ErrorAs(t, err, &instrErr)
	assert.Equal(t, uint8(0), instrErr.Index)

	assert.Equal(t, 10*solana.LAMPORTS_PER_SOL-5000, balance(t, b, client.PublicKey()))

	jobPost, _, err := escrow.FindJobPostAddress(client.PublicKey(), "logo")
	require.NoError(t, err)
	acct, err := b.GetAccount(ctx, jobPost)
	require.NoError(t, err)
	assert.Nil(t, acct)

	status, err := b.Transaction(ctx, sig)
	require.NoError(t, err)
	assert.False(t, status.Success())
	assert.Equal(t, "Error processing Instruction 0: custom program error: 0x1777", status.Err)
}

func TestJobLifecycle(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	client := fundedWallet(t, b, 10*solana.LAMPORTS_PER_SOL)
	freelancer := fundedWallet(t, b, solana.LAMPORTS_PER_SOL)
	const amount = uint64(3 * solana.LAMPORTS_PER_SOL)

	exec := func(payer solana.PrivateKey, ix solana.Instruction) {
		_, err := b.ProcessTransaction(ctx, signedTx(t, b, payer, ix))
		require.NoError(t, err)
	}

	args := escrow.InitializeJobPostArgs{Title: "api", Description: "rest api", Amount: amount, StartDate: testNow, EndDate: testNow + 86400}
	exec(client, mustIx(escrow.NewInitializeJobPostInstruction(client.PublicKey(), args)))

	jobPost, _, err := escrow.FindJobPostAddress(client.PublicKey(), "api")
	require.NoError(t, err)
	escrowKey, _, err := escrow.FindEscrowAddress(jobPost)
	require.NoError(t, err)
	application, _, err := escrow.FindApplicationAddress(jobPost, freelancer.PublicKey())
	require.NoError(t, err)

	escrowRent, err := b.MinimumBalance(ctx, escrow.EscrowSpace)
	require.NoError(t, err)
	assert.Equal(t, escrowRent+amount, balance(t, b, escrowKey))

	jobs, err := b.ProgramAccounts(ctx, escrow.ProgramID, escrow.JobPostDiscriminator[:])
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, jobPost, jobs[0].Key)

	exec(freelancer, mustIx(escrow.NewApplyToJobInstruction(freelancer.PublicKey(), jobPost, escrow.ApplyToJobArgs{ResumeLink: "https://cv.example", ExpectedEndDate: testNow + 3600})))
	exec(client, escrow.NewApproveApplicationInstruction(client.PublicKey(), jobPost, application))
	exec(freelancer, mustIx(escrow.NewSubmitWorkInstruction(freelancer.PublicKey(), jobPost, escrow.SubmitWorkArgs{SubmissionLink: "https://git.example", Narration: "done"})))

	before := balance(t, b, freelancer.PublicKey())
	exec(client, mustIx(escrow.NewApproveSubmissionInstruction(client.PublicKey(), jobPost, freelancer.PublicKey(), escrow.ReviewArgs{ClientReview: "thanks"})))
	assert.Equal(t, before+amount, balance(t, b, freelancer.PublicKey()))
	assert.Equal(t, escrowRent, balance(t, b, escrowKey))

	apps, err := b.ProgramAccounts(ctx, escrow.ProgramID, escrow.ApplicationDiscriminator[:])
	require.NoError(t, err)
	require.Len(t, apps, 1)
	app, err := escrow.DecodeApplication(apps[0].Data)
	require.NoError(t, err)
	assert.True(t, app.Completed)
	assert.Equal(t, "thanks", app.ClientReview)
}

func TestWarpClock(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	client := fundedWallet(t, b, 10*solana.LAMPORTS_PER_SOL)

	require.NoError(t, b.WarpClock(testNow+7200))
	assert.Equal(t, testNow+7200, b.Clock().UnixTimestamp)

	args := escrow.InitializeJobPostArgs{Title: "late", Description: "too late", Amount: 1, StartDate: testNow + 3600, EndDate: testNow + 86400}
	_, err := b.ProcessTransaction(ctx, signedTx(t, b, client, mustIx(escrow.NewInitializeJobPostInstruction(client.PublicKey(), args))))
	assert.ErrorIs(t, err, escrow.ErrInvalidDates)

	// the clock does not fall back to wall time
	assert.Equal(t, testNow+7200, b.Clock().UnixTimestamp)
}

func TestHash(t *testing.T) {
	b := openTestBank(t, testConfig())

	empty, err := b.Hash()
	require.NoError(t, err)

	fundedWallet(t, b, solana.LAMPORTS_PER_SOL)
	first, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, empty, first)

	fundedWallet(t, b, solana.LAMPORTS_PER_SOL)
	second, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestPersistentLedger(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger = t.TempDir()
	ctx := context.Background()

	b, err := Open(cfg, WithNow(func() time.Time { return time.Unix(testNow, 0) }))
	require.NoError(t, err)
	faucet := b.Faucet()
	wallet := solana.NewWallet().PublicKey()
	sig, err := b.Airdrop(ctx, wallet, solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)
	blockhash, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b = openTestBank(t, cfg)
	assert.Equal(t, faucet, b.Faucet())
	assert.Equal(t, uint64(1), b.Slot())
	assert.Equal(t, solana.LAMPORTS_PER_SOL, balance(t, b, wallet))

	latest, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)
	assert.Equal(t, blockhash, latest)

	status, err := b.Transaction(ctx, sig)
	require.NoError(t, err)
	assert.True(t, status.Success())

	_, err = b.Airdrop(ctx, wallet, solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)
	assert.Equal(t, 2*solana.LAMPORTS_PER_SOL, balance(t, b, wallet))
}

func TestTransactionNotFound(t *testing.T) {
	b := openTestBank(t, testConfig())
	_, err := b.Transaction(context.Background(), solana.Signature{9})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestReadonlyProgramAccounts(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	wallet := fundedWallet(t, b, solana.LAMPORTS_PER_SOL)

	// a transfer to the escrow program id must not credit it: programs are
	// demoted to read-only
	ix := system.NewTransferInstruction(1000, wallet.PublicKey(), escrow.ProgramID).Build()
	_, err := b.ProcessTransaction(ctx, signedTx(t, b, wallet, ix))
	assert.ErrorIs(t, err, sealevel.InstrErrReadonlyLamportChange)

	program, err := b.GetAccount(ctx, escrow.ProgramID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), program.Lamports)
}

type recordingSink struct {
	events []*events.TransactionEvent
}

func (r *recordingSink) Publish(_ context.Context, ev *events.TransactionEvent) error {
	r.events = append(r.events, ev)
	return errors.New("sink errors are logged, not returned")
}

func TestPublishesEvents(t *testing.T) {
	sink := new(recordingSink)
	b := openTestBank(t, testConfig(), WithSink(sink))

	sig, err := b.Airdrop(context.Background(), solana.NewWallet().PublicKey(), solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, sig.String(), ev.Signature)
	assert.True(t, ev.Success)
	assert.Equal(t, uint64(1), ev.Slot)
	assert.Equal(t, uint64(5000), ev.Fee)
}

type failingStore struct {
	store
	fail bool
}

func (f *failingStore) Commit(accts map[[32]byte]*accounts.Account, meta map[string][]byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.store.Commit(accts, meta)
}

func TestFailedCommit_RetryAppliesOnce(t *testing.T) {
	b := openTestBank(t, testConfig())
	ctx := context.Background()
	payer := fundedWallet(t, b, solana.LAMPORTS_PER_SOL)
	to := solana.NewWallet().PublicKey()
	const lamports = 10_000_000

	fs := &failingStore{store: b.store, fail: true}
	b.store = fs

	slot := b.Slot()
	blockhash, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)
	tx := signedTx(t, b, payer, system.NewTransferInstruction(lamports, payer.PublicKey(), to).Build())

	_, err = b.ProcessTransaction(ctx, tx)
	require.ErrorContains(t, err, "disk full")

	assert.Equal(t, slot, b.Slot())
	latest, err := b.LatestBlockhash(ctx)
	require.NoError(t, err)
	assert.Equal(t, blockhash, latest)
	assert.Equal(t, uint64(0), balance(t, b, to))
	assert.Equal(t, solana.LAMPORTS_PER_SOL, balance(t, b, payer.PublicKey()))
	_, err = b.Transaction(ctx, tx.Signatures[0])
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	fs.fail = false
	_, err = b.ProcessTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, uint64(lamports), balance(t, b, to))
	assert.Equal(t, slot+1, b.Slot())

	_, err = b.ProcessTransaction(ctx, tx)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, uint64(lamports), balance(t, b, to))
}
