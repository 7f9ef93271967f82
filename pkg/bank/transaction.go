package bank

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/cu"
	"go.firedancer.io/lp/pkg/events"
	"go.firedancer.io/lp/pkg/metrics"
	"go.firedancer.io/lp/pkg/rent"
	"go.firedancer.io/lp/pkg/safemath"
	"go.firedancer.io/lp/pkg/sealevel"
	"k8s.io/klog/v2"
)

const (
	feePayerIdx = 0

	maxComputeUnitLimit = 1_400_000
)

// SendTransaction is ProcessTransaction under the name clusters use.
func (b *Bank) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return b.ProcessTransaction(ctx, tx)
}

// ProcessTransaction verifies, executes and commits tx in a new slot. A
// transaction that is executed but fails is still charged its fee and
// recorded; the returned error is then a *TransactionError.
func (b *Bank) ProcessTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	defer metrics.ObserveDuration(metrics.TransactionDuration, time.Now())

	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	b.mu.Lock()
	status, err := b.processTransaction(tx)
	b.mu.Unlock()

	if status == nil {
		metrics.TransactionsProcessed.WithLabelValues("rejected").Inc()
		klog.V(2).Infof("rejected transaction: %s", err)
		return solana.Signature{}, err
	}

	result := "success"
	if !status.Success() {
		result = "failed"
	}
	metrics.TransactionsProcessed.WithLabelValues(result).Inc()
	metrics.ComputeUnits.Observe(float64(status.ComputeUnits))
	metrics.Slot.Set(float64(status.Slot))

	if b.sink != nil {
		ev := &events.TransactionEvent{
			Signature:    status.Signature.String(),
			Slot:         status.Slot,
			Success:      status.Success(),
			Err:          status.Err,
			Logs:         status.Logs,
			Fee:          status.Fee,
			ComputeUnits: status.ComputeUnits,
		}
		if pubErr := b.sink.Publish(ctx, ev); pubErr != nil {
			klog.Errorf("failed to publish event for %s: %s", status.Signature, pubErr)
		}
	}

	return status.Signature, err
}

func (b *Bank) processTransaction(tx *solana.Transaction) (*TransactionStatus, error) {
	if b.closed {
		return nil, ErrClosed
	}

	sig, err := b.verifyTransaction(tx)
	if err != nil {
		return nil, err
	}

	txAccts, writable, err := b.transactionAcctsFromTx(tx)
	if err != nil {
		return nil, err
	}

	fee, payerNewLamports, err := b.applyTxFee(tx, txAccts)
	if err != nil {
		return nil, err
	}

	slot := b.state.Slot + 1
	clock := b.nextClock(slot)

	logs := new(sealevel.LogRecorder)
	execCtx := &sealevel.ExecutionCtx{
		Log:                logs,
		TransactionContext: sealevel.NewDefaultTransactionCtx(*txAccts),
		ComputeMeter:       cu.NewComputeMeter(computeUnitLimit(tx)),
		Sysvars:            sealevel.SysvarCache{Clock: clock, Rent: b.rent},
		Programs:           b.programs,
	}

	preTxRentStates, err := rent.NewRentStateInfo(&b.rent, execCtx.TransactionContext, writable)
	if err != nil {
		return nil, err
	}

	var txErr error
	for instrIdx, instr := range tx.Message.Instructions {
		instrAccts := instructionAccts(tx, instrIdx, writable)

		err = execCtx.ProcessInstruction(instr.Data, instrAccts, programIndices(tx, instrIdx))
		if err != nil {
			txErr = &sealevel.InstructionError{Index: uint8(instrIdx), Err: err}
			break
		}
	}

	if txErr == nil {
		postTxRentStates, err := rent.NewRentStateInfo(&b.rent, execCtx.TransactionContext, writable)
		if err != nil {
			return nil, err
		}
		txErr = rent.VerifyRentStateChanges(preTxRentStates, postTxRentStates, execCtx.TransactionContext)
	}

	for _, l := range logs.Logs {
		klog.V(2).Infof("%s", l)
	}
	klog.V(1).Infof("tx %s - compute units consumed: %d", sig, execCtx.ComputeMeter.Used())

	batch := newTxBatch(b.store)
	var modified []solana.PublicKey
	if txErr == nil {
		modified, err = recordModifiedAccounts(batch, execCtx, writable)
	} else {
		modified, err = chargeFeeOnly(batch, txAccts.Accounts[feePayerIdx].Key, payerNewLamports)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to commit accounts for %s: %w", sig, err)
	}

	status := &TransactionStatus{
		Signature:    sig,
		Slot:         slot,
		BlockTime:    clock.UnixTimestamp,
		Fee:          fee,
		ComputeUnits: execCtx.ComputeMeter.Used(),
		Logs:         logs.Logs,
	}
	if txErr != nil {
		status.Err = txErr.Error()
	}

	next, err := b.advanceSlot(batch, slot, clock, sig, modified)
	if err != nil {
		return nil, err
	}
	if err := saveStatus(batch, status); err != nil {
		return nil, err
	}
	if err := batch.commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", sig, err)
	}
	b.state = next

	if txErr != nil {
		klog.V(1).Infof("tx %s failed: %s", sig, txErr)
		return status, &TransactionError{Signature: sig, Logs: logs.Logs, Err: txErr}
	}
	return status, nil
}

func (b *Bank) verifyTransaction(tx *solana.Transaction) (solana.Signature, error) {
	if tx.Message.IsVersioned() && len(tx.Message.AddressTableLookups) != 0 {
		return solana.Signature{}, ErrUnsupportedVersion
	}

	if len(tx.Signatures) == 0 || len(tx.Message.Instructions) == 0 {
		return solana.Signature{}, ErrInvalidSignature
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	sig := tx.Signatures[0]

	if !b.isRecentBlockhash(tx.Message.RecentBlockhash) {
		return sig, ErrBlockhashNotFound
	}

	prev, err := b.loadStatus(sig)
	if err != nil {
		return sig, err
	}
	if prev != nil {
		return sig, ErrAlreadyProcessed
	}
	return sig, nil
}

// transactionAcctsFromTx loads every account the message references. Unknown
// addresses load as empty system accounts.
func (b *Bank) transactionAcctsFromTx(tx *solana.Transaction) (*sealevel.TransactionAccounts, []bool, error) {
	txAcctMetas, err := tx.AccountMetaList()
	if err != nil {
		return nil, nil, err
	}

	programIds, err := tx.GetProgramIDs()
	if err != nil {
		return nil, nil, err
	}

	acctsForTx := make([]accounts.Account, 0, len(txAcctMetas))
	writable := make([]bool, 0, len(txAcctMetas))

	for _, acctMeta := range txAcctMetas {
		acct, err := b.store.GetAccount((*[32]byte)(&acctMeta.PublicKey))
		if err != nil {
			return nil, nil, err
		}
		if acct == nil {
			acct = &accounts.Account{Key: acctMeta.PublicKey, Owner: sealevel.SystemProgramAddr, Data: make([]byte, 0)}
		}
		acctsForTx = append(acctsForTx, *acct)
		writable = append(writable, b.isWritable(acctMeta, acct, programIds))
	}

	return sealevel.NewTransactionAccounts(acctsForTx), writable, nil
}

// isWritable demotes programs and sysvars to read-only even if the message
// requests write access.
func (b *Bank) isWritable(am *solana.AccountMeta, acct *accounts.Account, programIds solana.PublicKeySlice) bool {
	if !am.IsWritable {
		return false
	}

	if acct.Executable || acct.Owner == sealevel.NativeLoaderAddr || acct.Owner == sealevel.SysvarOwnerAddr {
		return false
	}

	if b.programs.IsRegistered(am.PublicKey) || programIds.Has(am.PublicKey) {
		return false
	}

	return true
}

func instructionAccts(tx *solana.Transaction, instrIdx int, writable []bool) []sealevel.InstructionAccount {
	compiled := tx.Message.Instructions[instrIdx]
	instrAccts := make([]sealevel.InstructionAccount, 0, len(compiled.Accounts))

	for callee, idxInTx := range compiled.Accounts {
		idx := uint64(idxInTx)

		first := uint64(callee)
		for prev, other := range compiled.Accounts[:callee] {
			if other == idxInTx {
				first = uint64(prev)
				break
			}
		}

		instrAccts = append(instrAccts, sealevel.InstructionAccount{
			IndexInTransaction: idx,
			IndexInCaller:      idx,
			IndexInCallee:      first,
			IsSigner:           tx.Message.IsSigner(tx.Message.AccountKeys[idx]),
			IsWritable:         idx < uint64(len(writable)) && writable[idx],
		})
	}

	return instrAccts
}

func programIndices(tx *solana.Transaction, instrIdx int) []uint64 {
	idx := uint64(tx.Message.Instructions[instrIdx].ProgramIDIndex)
	return []uint64{idx}
}

func computeUnitLimit(tx *solana.Transaction) uint64 {
	return min(uint64(len(tx.Message.Instructions))*cu.DefaultComputeBudget, maxComputeUnitLimit)
}

// applyTxFee debits the signature fee from the fee payer's transaction
// account and returns the payer's new balance.
func (b *Bank) applyTxFee(tx *solana.Transaction, txAccts *sealevel.TransactionAccounts) (uint64, uint64, error) {
	feePayerAcct, err := txAccts.GetAccount(feePayerIdx)
	if err != nil {
		return 0, 0, err
	}
	defer txAccts.Unlock(feePayerIdx)

	if feePayerAcct.Owner != sealevel.SystemProgramAddr || len(feePayerAcct.Data) != 0 {
		return 0, 0, ErrInvalidAccountForFee
	}

	numSignatures := uint64(tx.Message.Header.NumRequiredSignatures)
	fee, err := safemath.CheckedMulU64(numSignatures, b.cfg.LamportsPerSignature)
	if err != nil {
		return 0, 0, ErrInsufficientFundsForFee
	}

	newLamports, err := safemath.CheckedSubU64(feePayerAcct.Lamports, fee)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: payer %s has %d, needs %d", ErrInsufficientFundsForFee, feePayerAcct.Key, feePayerAcct.Lamports, fee)
	}

	if newLamports != 0 && b.rent.IsExempt(feePayerAcct.Lamports, 0) && !b.rent.IsExempt(newLamports, 0) {
		return 0, 0, &rent.InsufficientFundsForRentError{AccountIndex: feePayerIdx}
	}

	feePayerAcct.Lamports = newLamports
	return fee, newLamports, nil
}

// recordModifiedAccounts stages every writable account the transaction
// touched, plus the fee payer.
func recordModifiedAccounts(batch *txBatch, execCtx *sealevel.ExecutionCtx, writable []bool) ([]solana.PublicKey, error) {
	txAccts := execCtx.TransactionContext.Accounts
	var modified []solana.PublicKey

	for idx, acct := range txAccts.Accounts {
		if idx != feePayerIdx && !(txAccts.Touched[idx] && writable[idx]) {
			continue
		}
		if err := batch.SetAccount((*[32]byte)(&acct.Key), acct); err != nil {
			return nil, err
		}
		modified = append(modified, acct.Key)
		klog.V(2).Infof("modified account %s after tx", acct.Key)
	}

	return modified, nil
}

func chargeFeeOnly(batch *txBatch, payer solana.PublicKey, lamports uint64) ([]solana.PublicKey, error) {
	acct, err := batch.GetAccount((*[32]byte)(&payer))
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("fee payer %s vanished", payer)
	}
	acct.Lamports = lamports
	if err := batch.SetAccount((*[32]byte)(&payer), acct); err != nil {
		return nil, err
	}
	return []solana.PublicKey{payer}, nil
}

// nextClock is the clock for slot. It never runs backwards, even when the
// clock has been warped ahead of wall time.
func (b *Bank) nextClock(slot uint64) sealevel.SysvarClock {
	clock := b.state.Clock
	clock.Slot = slot
	if now := b.now().Unix(); now > clock.UnixTimestamp {
		clock.UnixTimestamp = now
	}
	return clock
}

// advanceSlot stages the clock sysvar and the ledger state of the next slot
// and returns that state. b.state is left alone until the batch commits.
func (b *Bank) advanceSlot(batch *txBatch, slot uint64, clock sealevel.SysvarClock, sig solana.Signature, modified []solana.PublicKey) (*ledgerState, error) {
	if err := sealevel.WriteClockSysvar(batch, clock); err != nil {
		return nil, err
	}

	prev := b.state.Blockhashes[len(b.state.Blockhashes)-1]
	hash := solana.HashFromBytes(sha256Sum(prev[:], sig[:]))

	next := *b.state
	next.Slot = slot
	next.Clock = clock
	next.Blockhashes = append(append([]solana.Hash{}, b.state.Blockhashes...), hash)
	if excess := len(next.Blockhashes) - b.cfg.MaxBlockhashAge; excess > 0 {
		next.Blockhashes = next.Blockhashes[excess:]
	}
	next.Modified = modified

	data, err := next.marshal()
	if err != nil {
		return nil, err
	}
	batch.SetMeta(stateMetaKey, data)
	return &next, nil
}
