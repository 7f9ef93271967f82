package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

const SystemProgMaxPermittedDataLen = 10 * 1024 * 1024

const (
	SystemProgramInstrTypeCreateAccount = iota
	SystemProgramInstrTypeAssign
	SystemProgramInstrTypeTransfer
	SystemProgramInstrTypeCreateAccountWithSeed
	SystemProgramInstrTypeAdvanceNonceAccount
	SystemProgramInstrTypeWithdrawNonceAccount
	SystemProgramInstrTypeInitializeNonceAccount
	SystemProgramInstrTypeAuthorizeNonceAccount
	SystemProgramInstrTypeAllocate
)

type SystemInstrCreateAccount struct {
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

type SystemInstrAssign struct {
	Owner solana.PublicKey
}

type SystemInstrTransfer struct {
	Lamports uint64
}

type SystemInstrAllocate struct {
	Space uint64
}

func checkWithinDeserializationLimit(decoder *bin.Decoder) error {
	if decoder.Position() > 1232 {
		return InstrErrInvalidInstructionData
	} else {
		return nil
	}
}

func readPubkey(decoder *bin.Decoder) (solana.PublicKey, error) {
	pk, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(pk), nil
}

func (instr *SystemInstrCreateAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	instr.Lamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	instr.Space, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}

	instr.Owner, err = readPubkey(decoder)
	if err != nil {
		return err
	}

	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrCreateAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(SystemProgramInstrTypeCreateAccount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(instr.Lamports, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(instr.Space, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *SystemInstrAssign) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.Owner, err = readPubkey(decoder)
	if err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrAssign) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(SystemProgramInstrTypeAssign, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *SystemInstrTransfer) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.Lamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrTransfer) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(SystemProgramInstrTypeTransfer, bin.LE); err != nil {
		return err
	}
	return encoder.WriteUint64(instr.Lamports, bin.LE)
}

func (instr *SystemInstrAllocate) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.Space, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrAllocate) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(SystemProgramInstrTypeAllocate, bin.LE); err != nil {
		return err
	}
	return encoder.WriteUint64(instr.Space, bin.LE)
}

type systemInstr interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

func marshalSystemInstr(instr systemInstr) []byte {
	writer := new(bytes.Buffer)
	// writes to a bytes.Buffer cannot fail
	_ = instr.MarshalWithEncoder(bin.NewBinEncoder(writer))
	return writer.Bytes()
}

func NewCreateAccountInstruction(from solana.PublicKey, to solana.PublicKey, lamports uint64, space uint64, owner solana.PublicKey) Instruction {
	data := marshalSystemInstr(&SystemInstrCreateAccount{Lamports: lamports, Space: space, Owner: owner})
	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: from, IsSigner: true, IsWritable: true}, {Pubkey: to, IsSigner: true, IsWritable: true}},
		Data:      data,
	}
}

func NewTransferInstruction(from solana.PublicKey, to solana.PublicKey, lamports uint64) Instruction {
	data := marshalSystemInstr(&SystemInstrTransfer{Lamports: lamports})
	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: from, IsSigner: true, IsWritable: true}, {Pubkey: to, IsSigner: false, IsWritable: true}},
		Data:      data,
	}
}

func NewAllocateInstruction(pubkey solana.PublicKey, space uint64) Instruction {
	data := marshalSystemInstr(&SystemInstrAllocate{Space: space})
	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: pubkey, IsSigner: true, IsWritable: true}},
		Data:      data,
	}
}

func NewAssignInstruction(pubkey solana.PublicKey, owner solana.PublicKey) Instruction {
	data := marshalSystemInstr(&SystemInstrAssign{Owner: owner})
	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: pubkey, IsSigner: true, IsWritable: true}},
		Data:      data,
	}
}

func SystemProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUSystemProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)

	instructionType, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	switch instructionType {
	case SystemProgramInstrTypeCreateAccount:
		{
			var createAccount SystemInstrCreateAccount
			err = createAccount.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}
			err = SystemProgramCreateAccount(execCtx, createAccount.Lamports, createAccount.Space, createAccount.Owner, signers)
		}

	case SystemProgramInstrTypeAssign:
		{
			var assign SystemInstrAssign
			err = assign.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(1)
			if err != nil {
				return err
			}
			acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
			if err != nil {
				return err
			}
			defer acct.Drop()
			return SystemProgramAssign(acct, assign.Owner, signers)
		}

	case SystemProgramInstrTypeTransfer:
		{
			var transfer SystemInstrTransfer
			err = transfer.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}
			err = SystemProgramTransfer(execCtx, 0, 1, transfer.Lamports)
		}

	case SystemProgramInstrTypeAllocate:
		{
			var allocate SystemInstrAllocate
			err = allocate.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(1)
			if err != nil {
				return err
			}
			acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
			if err != nil {
				return err
			}
			defer acct.Drop()
			return SystemProgramAllocate(acct, allocate.Space, signers)
		}

	default:
		{
			klog.V(2).Infof("unsupported system program instruction %d", instructionType)
			return InstrErrInvalidInstructionData
		}
	}

	return err
}

func SystemProgramCreateAccount(execCtx *ExecutionCtx, lamports uint64, space uint64, owner solana.PublicKey, signers []solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	toAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}

	if toAcct.Lamports() != 0 {
		klog.V(2).Infof("Create Account: account %s already in use", toAcct.Key())
		toAcct.Drop()
		return SystemProgErrAccountAlreadyInUse
	}

	err = SystemProgramAllocateAndAssign(toAcct, space, owner, signers)
	toAcct.Drop()
	if err != nil {
		return err
	}

	return SystemProgramTransfer(execCtx, 0, 1, lamports)
}

func SystemProgramAllocateAndAssign(toAcct *BorrowedAccount, space uint64, owner solana.PublicKey, signers []solana.PublicKey) error {
	err := SystemProgramAllocate(toAcct, space, signers)
	if err != nil {
		return err
	}
	return SystemProgramAssign(toAcct, owner, signers)
}

func SystemProgramAllocate(acct *BorrowedAccount, space uint64, signers []solana.PublicKey) error {
	err := verifySigner(acct.Key(), signers)
	if err != nil {
		klog.V(2).Infof("Allocate: 'to' account %s must sign", acct.Key())
		return err
	}

	if len(acct.Data()) != 0 || acct.Owner() != SystemProgramAddr {
		klog.V(2).Infof("Allocate: account %s already in use", acct.Key())
		return SystemProgErrAccountAlreadyInUse
	}

	if space > SystemProgMaxPermittedDataLen {
		return SystemProgErrInvalidAccountDataLength
	}

	return acct.SetDataLength(space)
}

func SystemProgramAssign(acct *BorrowedAccount, owner solana.PublicKey, signers []solana.PublicKey) error {
	if acct.Owner() == owner {
		return nil
	}

	err := verifySigner(acct.Key(), signers)
	if err != nil {
		klog.V(2).Infof("Assign: account %s must sign", acct.Key())
		return err
	}

	return acct.SetOwner(owner)
}

func SystemProgramTransfer(execCtx *ExecutionCtx, fromAcctIdx uint64, toAcctIdx uint64, lamports uint64) error {
	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(fromAcctIdx)
	if err != nil {
		return err
	}

	if !isSigner {
		klog.V(2).Infof("Transfer: from account must sign")
		return InstrErrMissingRequiredSignature
	}

	return transferInternal(execCtx, fromAcctIdx, toAcctIdx, lamports)
}

func transferInternal(execCtx *ExecutionCtx, fromAcctIdx uint64, toAcctIdx uint64, lamports uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	from, err := instrCtx.BorrowInstructionAccount(txCtx, fromAcctIdx)
	if err != nil {
		return err
	}

	if len(from.Data()) != 0 {
		klog.V(2).Infof("Transfer: 'from' must not carry data")
		from.Drop()
		return InstrErrInvalidArgument
	}

	if lamports > from.Lamports() {
		klog.V(2).Infof("Transfer: insufficient lamports %d, need %d", from.Lamports(), lamports)
		from.Drop()
		return SystemProgErrResultWithNegativeLamports
	}

	err = from.CheckedSubLamports(lamports)
	from.Drop()
	if err != nil {
		return err
	}

	to, err := instrCtx.BorrowInstructionAccount(txCtx, toAcctIdx)
	if err != nil {
		return err
	}
	defer to.Drop()

	return to.CheckedAddLamports(lamports)
}
