package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

type Instruction struct {
	Accounts  []AccountMeta
	Data      []byte
	ProgramId solana.PublicKey
}

type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type InstructionAccount struct {
	IndexInTransaction uint64
	IndexInCaller      uint64
	IndexInCallee      uint64
	IsSigner           bool
	IsWritable         bool
}

// InstructionFromSolana converts a client-side solana-go instruction.
func InstructionFromSolana(ix solana.Instruction) (Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return Instruction{}, err
	}

	metas := ix.Accounts()
	acctMetas := make([]AccountMeta, 0, len(metas))
	for _, am := range metas {
		acctMetas = append(acctMetas, AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: am.IsWritable})
	}

	return Instruction{Accounts: acctMetas, Data: data, ProgramId: ix.ProgramID()}, nil
}
