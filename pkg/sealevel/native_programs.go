package sealevel

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

const IncineratorAddrStr = "1nc1nerator11111111111111111111111111111111"

var IncineratorAddr = base58.MustDecodeFromString(IncineratorAddrStr)

// ProgramFn is the entrypoint of a program implemented in Go.
type ProgramFn func(execCtx *ExecutionCtx) error

// ProgramRegistry resolves executable program ids to their entrypoints.
type ProgramRegistry struct {
	mu       sync.RWMutex
	programs map[solana.PublicKey]ProgramFn
}

// NewProgramRegistry returns a registry holding the builtin programs.
func NewProgramRegistry() *ProgramRegistry {
	r := &ProgramRegistry{programs: make(map[solana.PublicKey]ProgramFn)}
	r.Register(SystemProgramAddr, SystemProgramExecute)
	return r
}

func (r *ProgramRegistry) Register(programId solana.PublicKey, fn ProgramFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[programId] = fn
}

func (r *ProgramRegistry) Resolve(programId solana.PublicKey) (ProgramFn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.programs[programId]
	if !ok {
		return nil, InstrErrUnsupportedProgramId
	}
	return fn, nil
}

func (r *ProgramRegistry) IsRegistered(programId solana.PublicKey) bool {
	_, err := r.Resolve(programId)
	return err == nil
}

func (r *ProgramRegistry) ProgramIds() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]solana.PublicKey, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	return ids
}

func verifySigner(authorized solana.PublicKey, signers []solana.PublicKey) error {
	for _, signer := range signers {
		if signer == authorized {
			return nil
		}
	}
	return InstrErrMissingRequiredSignature
}
