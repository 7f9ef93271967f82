package escrow

import (
	"bytes"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/lp/pkg/accounts"
	"go.firedancer.io/lp/pkg/metrics"
	"go.firedancer.io/lp/pkg/sealevel"
	"k8s.io/klog/v2"
)

const ProgramIDStr = "EzpNWk2rW2byqnfsW5ctmj952hF2bqEA2BUCL2hBqSbS"

var ProgramID = solana.MustPublicKeyFromBase58(ProgramIDStr)

// compute units charged on entry, on top of CPIs and address derivations
const (
	CUInstructionBase  = 1_500
	CUAccountInitUnits = 3_000
)

type handler struct {
	display string
	cost    uint64
	run     func(inv *invocation, decoder *bin.Decoder) error
}

func decodeArgs[T any, PT interface {
	*T
	borshUnmarshaler
}](decoder *bin.Decoder) (PT, error) {
	args := PT(new(T))
	if err := args.UnmarshalWithDecoder(decoder); err != nil {
		return nil, ErrInstructionDidNotDeserialize
	}
	return args, nil
}

var handlers = map[Discriminator]handler{
	InstructionDiscriminator(InstructionInitialize): {"Initialize", CUInstructionBase, func(inv *invocation, _ *bin.Decoder) error {
		return inv.initialize()
	}},
	InstructionDiscriminator(InstructionInitializeJobPost): {"InitializeJobPost", CUInstructionBase + 2*CUAccountInitUnits, func(inv *invocation, decoder *bin.Decoder) error {
		args, err := decodeArgs[InitializeJobPostArgs](decoder)
		if err != nil {
			return err
		}
		return inv.initializeJobPost(args)
	}},
	InstructionDiscriminator(InstructionApplyToJob): {"ApplyToJob", CUInstructionBase + CUAccountInitUnits, func(inv *invocation, decoder *bin.Decoder) error {
		args, err := decodeArgs[ApplyToJobArgs](decoder)
		if err != nil {
			return err
		}
		return inv.applyToJob(args)
	}},
	InstructionDiscriminator(InstructionApproveApplication): {"ApproveApplication", CUInstructionBase, func(inv *invocation, _ *bin.Decoder) error {
		return inv.approveApplication()
	}},
	InstructionDiscriminator(InstructionSubmitWork): {"SubmitWork", CUInstructionBase, func(inv *invocation, decoder *bin.Decoder) error {
		args, err := decodeArgs[SubmitWorkArgs](decoder)
		if err != nil {
			return err
		}
		return inv.submitWork(args)
	}},
	InstructionDiscriminator(InstructionApproveSubmission): {"ApproveSubmission", CUInstructionBase, func(inv *invocation, decoder *bin.Decoder) error {
		args, err := decodeArgs[ReviewArgs](decoder)
		if err != nil {
			return err
		}
		return inv.approveSubmission(args)
	}},
	InstructionDiscriminator(InstructionRejectSubmission): {"RejectSubmission", CUInstructionBase, func(inv *invocation, decoder *bin.Decoder) error {
		args, err := decodeArgs[ReviewArgs](decoder)
		if err != nil {
			return err
		}
		return inv.rejectSubmission(args)
	}},
	InstructionDiscriminator(InstructionCancelJob): {"CancelJob", CUInstructionBase, func(inv *invocation, _ *bin.Decoder) error {
		return inv.cancelJob()
	}},
}

// InstructionName returns the display name of the instruction data, if it
// belongs to this program.
func InstructionName(data []byte) (string, bool) {
	if len(data) < DiscriminatorLen {
		return "", false
	}
	var disc Discriminator
	copy(disc[:], data)
	h, ok := handlers[disc]
	return h.display, ok
}

// Register installs the program in a runtime program registry.
func Register(registry *sealevel.ProgramRegistry) {
	registry.Register(ProgramID, Execute)
}

// ProgramAccount is the executable account the program is deployed at.
func ProgramAccount() accounts.Account {
	return accounts.Account{Key: ProgramID, Lamports: 1, Data: []byte("lp_program"), Owner: sealevel.NativeLoaderAddr, Executable: true}
}

// Execute is the program entrypoint.
func Execute(execCtx *sealevel.ExecutionCtx) error {
	inv, err := newInvocation(execCtx)
	if err != nil {
		return err
	}

	data := inv.instrCtx.Data
	if len(data) < DiscriminatorLen {
		return fail(execCtx, "unknown", ErrInstructionMissing)
	}

	var disc Discriminator
	copy(disc[:], data)
	h, ok := handlers[disc]
	if !ok {
		return fail(execCtx, "unknown", ErrInstructionFallbackNotFound)
	}

	execCtx.ProgramLog("Instruction: %s", h.display)

	if err = execCtx.ComputeMeter.Consume(h.cost); err != nil {
		return fail(execCtx, h.display, sealevel.InstrErrComputationalBudgetExceeded)
	}

	err = h.run(inv, bin.NewBorshDecoder(bytes.Clone(data[DiscriminatorLen:])))
	if err != nil {
		return fail(execCtx, h.display, err)
	}

	metrics.InstructionsExecuted.WithLabelValues(h.display, "success").Inc()
	return nil
}

func fail(execCtx *sealevel.ExecutionCtx, name string, err error) error {
	if line, ok := LogLine(err); ok {
		execCtx.ProgramLog("%s", line)
	}
	klog.V(2).Infof("%s failed: %s", name, err)

	result := "error"
	var code ErrorCode
	if errors.As(err, &code) {
		result = code.Name()
	}
	metrics.InstructionsExecuted.WithLabelValues(name, result).Inc()
	return err
}
