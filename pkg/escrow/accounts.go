package escrow

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/sealevel"
	pda "go.firedancer.io/lp/pkg/solana"
	"k8s.io/klog/v2"
)

// invocation is the program's view of the instruction being executed.
type invocation struct {
	execCtx  *sealevel.ExecutionCtx
	txCtx    *sealevel.TransactionCtx
	instrCtx *sealevel.InstructionCtx
	next     uint64
}

// accountInfo is an instruction account as declared by an instruction.
type accountInfo struct {
	name       string
	index      uint64
	indexInTx  uint64
	key        solana.PublicKey
	isSigner   bool
	isWritable bool
}

func newInvocation(execCtx *sealevel.ExecutionCtx) (*invocation, error) {
	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return nil, err
	}
	return &invocation{execCtx: execCtx, txCtx: execCtx.TransactionContext, instrCtx: instrCtx}, nil
}

func (inv *invocation) msg(format string, args ...any) {
	inv.execCtx.ProgramLog(format, args...)
}

func (inv *invocation) clock() sealevel.SysvarClock {
	return inv.execCtx.Sysvars.Clock
}

func (inv *invocation) account(info *accountInfo) *accounts.Account {
	acct, err := inv.txCtx.AccountAtIndex(info.indexInTx)
	if err != nil {
		// accountInfo is only built for indices present in the transaction
		panic(err)
	}
	return acct
}

func (inv *invocation) lamports(info *accountInfo) uint64 {
	return inv.account(info).Lamports
}

// raw takes the next instruction account without checking it.
func (inv *invocation) raw(name string) (*accountInfo, error) {
	if inv.next >= inv.instrCtx.NumberOfInstructionAccounts() {
		return nil, ErrAccountNotEnoughKeys
	}
	idx := inv.next
	inv.next++

	indexInTx, err := inv.instrCtx.IndexOfInstructionAccountInTransaction(idx)
	if err != nil {
		return nil, err
	}
	key, err := inv.txCtx.KeyOfAccountAtIndex(indexInTx)
	if err != nil {
		return nil, err
	}
	isSigner, err := inv.instrCtx.IsInstructionAccountSigner(idx)
	if err != nil {
		return nil, err
	}
	isWritable, err := inv.instrCtx.IsInstructionAccountWritable(idx)
	if err != nil {
		return nil, err
	}

	return &accountInfo{name: name, index: idx, indexInTx: indexInTx, key: key, isSigner: isSigner, isWritable: isWritable}, nil
}

func (inv *invocation) signer(name string) (*accountInfo, error) {
	info, err := inv.raw(name)
	if err != nil {
		return nil, err
	}
	if !info.isSigner {
		return nil, accountError(ErrAccountNotSigner, name)
	}
	return info, nil
}

func (inv *invocation) systemProgram(name string) (*accountInfo, error) {
	info, err := inv.raw(name)
	if err != nil {
		return nil, err
	}
	if info.key != sealevel.SystemProgramAddr {
		return nil, accountError(ErrInvalidProgramId, name)
	}
	if !inv.account(info).Executable {
		return nil, accountError(ErrInvalidProgramExecutable, name)
	}
	return info, nil
}

func (inv *invocation) programAccount(name string, disc Discriminator, v borshUnmarshaler) (*accountInfo, error) {
	info, err := inv.raw(name)
	if err != nil {
		return nil, err
	}

	acct := inv.account(info)
	if acct.Owner == sealevel.SystemProgramAddr && acct.Lamports == 0 {
		return nil, accountError(ErrAccountNotInitialized, name)
	}
	if acct.Owner != ProgramID {
		return nil, accountError(ErrAccountOwnedByWrongProgram, name)
	}
	if err := unmarshalAccount(acct.Data, disc, v); err != nil {
		return nil, accountError(err.(ErrorCode), name)
	}
	return info, nil
}

func (inv *invocation) jobPost(name string) (*accountInfo, *JobPost, error) {
	jp := new(JobPost)
	info, err := inv.programAccount(name, JobPostDiscriminator, jp)
	if err != nil {
		return nil, nil, err
	}
	return info, jp, nil
}

func (inv *invocation) application(name string) (*accountInfo, *Application, error) {
	app := new(Application)
	info, err := inv.programAccount(name, ApplicationDiscriminator, app)
	if err != nil {
		return nil, nil, err
	}
	return info, app, nil
}

func (inv *invocation) mut(info *accountInfo) error {
	if !info.isWritable {
		return accountError(ErrConstraintMut, info.name)
	}
	return nil
}

func constraint(ok bool, code ErrorCode, info *accountInfo) error {
	if !ok {
		return accountError(code, info.name)
	}
	return nil
}

func (inv *invocation) findProgramAddress(seeds [][]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := pda.FindProgramAddress(seeds, ProgramID)
	attempts := uint64(1)
	if err == nil {
		attempts = uint64(256 - int(bump))
	}
	if cuErr := inv.execCtx.ComputeMeter.Consume(attempts * sealevel.CUCreateProgramAddressUnits); cuErr != nil {
		return solana.PublicKey{}, 0, sealevel.InstrErrComputationalBudgetExceeded
	}
	if err != nil {
		klog.V(2).Infof("unable to derive program address: %s", err)
		return solana.PublicKey{}, 0, sealevel.InstrErrInvalidSeeds
	}
	return addr, bump, nil
}

// seeds checks that info is the program address of seeds and the stored bump.
func (inv *invocation) seeds(info *accountInfo, seeds [][]byte, bump uint8) error {
	if err := inv.execCtx.ComputeMeter.Consume(sealevel.CUCreateProgramAddressUnits); err != nil {
		return sealevel.InstrErrComputationalBudgetExceeded
	}
	addr, err := pda.CreateProgramAddress(append(seeds, []byte{bump}), ProgramID)
	if err != nil || solana.PublicKey(addr) != info.key {
		return accountError(ErrConstraintSeeds, info.name)
	}
	return nil
}

// initPDA creates info as a rent exempt account of space bytes owned by the
// program, funded by payer. It returns the bump of the address.
func (inv *invocation) initPDA(info *accountInfo, payer *accountInfo, space uint64, seeds [][]byte) (uint8, error) {
	addr, bump, err := inv.findProgramAddress(seeds)
	if err != nil {
		return 0, err
	}
	if addr != info.key {
		return 0, accountError(ErrConstraintSeeds, info.name)
	}

	signer := []solana.PublicKey{info.key}
	rent := inv.execCtx.Sysvars.Rent
	required := rent.MinimumBalance(space)
	current := inv.lamports(info)

	if current == 0 {
		err = inv.execCtx.NativeInvoke(sealevel.NewCreateAccountInstruction(payer.key, info.key, required, space, ProgramID), signer)
		if err != nil {
			return 0, err
		}
	} else {
		if required > current {
			err = inv.execCtx.NativeInvoke(sealevel.NewTransferInstruction(payer.key, info.key, required-current), nil)
			if err != nil {
				return 0, err
			}
		}
		err = inv.execCtx.NativeInvoke(sealevel.NewAllocateInstruction(info.key, space), signer)
		if err != nil {
			return 0, err
		}
		err = inv.execCtx.NativeInvoke(sealevel.NewAssignInstruction(info.key, ProgramID), signer)
		if err != nil {
			return 0, err
		}
	}

	if err = inv.mut(info); err != nil {
		return 0, err
	}
	return bump, nil
}

// store writes serialized account state at the start of the account data.
func (inv *invocation) store(info *accountInfo, data []byte) error {
	acct, err := inv.instrCtx.BorrowInstructionAccount(inv.txCtx, info.index)
	if err != nil {
		return err
	}
	defer acct.Drop()

	if len(data) > len(acct.Data()) {
		return accountError(ErrAccountDidNotSerialize, info.name)
	}

	newData := make([]byte, len(acct.Data()))
	copy(newData, acct.Data())
	copy(newData, data)
	return acct.SetData(newData)
}

// moveLamports debits a program owned account directly.
func (inv *invocation) moveLamports(from *accountInfo, to *accountInfo, lamports uint64) error {
	src, err := inv.instrCtx.BorrowInstructionAccount(inv.txCtx, from.index)
	if err != nil {
		return err
	}
	err = src.CheckedSubLamports(lamports)
	src.Drop()
	if err != nil {
		return err
	}

	dst, err := inv.instrCtx.BorrowInstructionAccount(inv.txCtx, to.index)
	if err != nil {
		return err
	}
	defer dst.Drop()
	return dst.CheckedAddLamports(lamports)
}
