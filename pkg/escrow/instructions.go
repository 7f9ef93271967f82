package escrow

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	InstructionInitialize         = "initialize"
	InstructionInitializeJobPost  = "initialize_job_post"
	InstructionApplyToJob         = "apply_to_job"
	InstructionApproveApplication = "approve_application"
	InstructionSubmitWork         = "submit_work"
	InstructionApproveSubmission  = "approve_submission"
	InstructionRejectSubmission   = "reject_submission"
	InstructionCancelJob          = "cancel_job"
)

type InitializeJobPostArgs struct {
	Title       string
	Description string
	Amount      uint64
	StartDate   int64
	EndDate     int64
}

func (args *InitializeJobPostArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := writeString(encoder, args.Title); err != nil {
		return err
	}
	if err := writeString(encoder, args.Description); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.Amount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteInt64(args.StartDate, bin.LE); err != nil {
		return err
	}
	return encoder.WriteInt64(args.EndDate, bin.LE)
}

func (args *InitializeJobPostArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if args.Title, err = readString(decoder); err != nil {
		return err
	}
	if args.Description, err = readString(decoder); err != nil {
		return err
	}
	if args.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.StartDate, err = decoder.ReadInt64(bin.LE); err != nil {
		return err
	}
	args.EndDate, err = decoder.ReadInt64(bin.LE)
	return err
}

type ApplyToJobArgs struct {
	ResumeLink      string
	ExpectedEndDate int64
}

func (args *ApplyToJobArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := writeString(encoder, args.ResumeLink); err != nil {
		return err
	}
	return encoder.WriteInt64(args.ExpectedEndDate, bin.LE)
}

func (args *ApplyToJobArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if args.ResumeLink, err = readString(decoder); err != nil {
		return err
	}
	args.ExpectedEndDate, err = decoder.ReadInt64(bin.LE)
	return err
}

type SubmitWorkArgs struct {
	SubmissionLink string
	Narration      string
}

func (args *SubmitWorkArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := writeString(encoder, args.SubmissionLink); err != nil {
		return err
	}
	return writeString(encoder, args.Narration)
}

func (args *SubmitWorkArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if args.SubmissionLink, err = readString(decoder); err != nil {
		return err
	}
	args.Narration, err = readString(decoder)
	return err
}

// ReviewArgs carries the client review of approve_submission and
// reject_submission.
type ReviewArgs struct {
	ClientReview string
}

func (args *ReviewArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return writeString(encoder, args.ClientReview)
}

func (args *ReviewArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ClientReview, err = readString(decoder)
	return err
}

type noArgs struct{}

func (noArgs) MarshalWithEncoder(*bin.Encoder) error   { return nil }
func (noArgs) UnmarshalWithDecoder(*bin.Decoder) error { return nil }

func instructionData(name string, args borshMarshaler) []byte {
	disc := InstructionDiscriminator(name)
	writer := new(bytes.Buffer)
	writer.Write(disc[:])
	// writes to a bytes.Buffer cannot fail
	_ = args.MarshalWithEncoder(bin.NewBorshEncoder(writer))
	return writer.Bytes()
}

func newInstruction(name string, args borshMarshaler, accts ...*solana.AccountMeta) solana.Instruction {
	return solana.NewInstruction(ProgramID, accts, instructionData(name, args))
}

// NewInitializeInstruction builds the account-less initialize instruction.
func NewInitializeInstruction() solana.Instruction {
	return newInstruction(InstructionInitialize, noArgs{})
}

func NewInitializeJobPostInstruction(client solana.PublicKey, args InitializeJobPostArgs) (solana.Instruction, error) {
	jobPost, _, err := FindJobPostAddress(client, args.Title)
	if err != nil {
		return nil, err
	}
	escrow, _, err := FindEscrowAddress(jobPost)
	if err != nil {
		return nil, err
	}

	return newInstruction(InstructionInitializeJobPost, &args,
		solana.NewAccountMeta(jobPost, true, false),
		solana.NewAccountMeta(escrow, true, false),
		solana.NewAccountMeta(client, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	), nil
}

func NewApplyToJobInstruction(freelancer solana.PublicKey, jobPost solana.PublicKey, args ApplyToJobArgs) (solana.Instruction, error) {
	application, _, err := FindApplicationAddress(jobPost, freelancer)
	if err != nil {
		return nil, err
	}

	return newInstruction(InstructionApplyToJob, &args,
		solana.NewAccountMeta(application, true, false),
		solana.NewAccountMeta(freelancer, true, true),
		solana.NewAccountMeta(jobPost, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	), nil
}

func NewApproveApplicationInstruction(client solana.PublicKey, jobPost solana.PublicKey, application solana.PublicKey) solana.Instruction {
	return newInstruction(InstructionApproveApplication, noArgs{},
		solana.NewAccountMeta(application, true, false),
		solana.NewAccountMeta(jobPost, true, false),
		solana.NewAccountMeta(client, true, true),
	)
}

func NewSubmitWorkInstruction(freelancer solana.PublicKey, jobPost solana.PublicKey, args SubmitWorkArgs) (solana.Instruction, error) {
	application, _, err := FindApplicationAddress(jobPost, freelancer)
	if err != nil {
		return nil, err
	}

	return newInstruction(InstructionSubmitWork, &args,
		solana.NewAccountMeta(application, true, false),
		solana.NewAccountMeta(freelancer, true, true),
		solana.NewAccountMeta(jobPost, false, false),
	), nil
}

func NewApproveSubmissionInstruction(client solana.PublicKey, jobPost solana.PublicKey, freelancer solana.PublicKey, args ReviewArgs) (solana.Instruction, error) {
	application, _, err := FindApplicationAddress(jobPost, freelancer)
	if err != nil {
		return nil, err
	}
	escrow, _, err := FindEscrowAddress(jobPost)
	if err != nil {
		return nil, err
	}

	return newInstruction(InstructionApproveSubmission, &args,
		solana.NewAccountMeta(application, true, false),
		solana.NewAccountMeta(jobPost, true, false),
		solana.NewAccountMeta(escrow, true, false),
		solana.NewAccountMeta(client, true, true),
		solana.NewAccountMeta(freelancer, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	), nil
}

func NewRejectSubmissionInstruction(client solana.PublicKey, jobPost solana.PublicKey, freelancer solana.PublicKey, args ReviewArgs) (solana.Instruction, error) {
	application, _, err := FindApplicationAddress(jobPost, freelancer)
	if err != nil {
		return nil, err
	}

	return newInstruction(InstructionRejectSubmission, &args,
		solana.NewAccountMeta(application, true, false),
		solana.NewAccountMeta(jobPost, true, false),
		solana.NewAccountMeta(client, true, true),
	), nil
}

func NewCancelJobInstruction(client solana.PublicKey, jobPost solana.PublicKey) (solana.Instruction, error) {
	escrow, _, err := FindEscrowAddress(jobPost)
	if err != nil {
		return nil, err
	}

	return newInstruction(InstructionCancelJob, noArgs{},
		solana.NewAccountMeta(jobPost, true, false),
		solana.NewAccountMeta(escrow, true, false),
		solana.NewAccountMeta(client, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	), nil
}
