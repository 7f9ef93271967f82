package escrow

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	MaxTitleLen          = 100
	MaxDescriptionLen    = 500
	MaxResumeLinkLen     = 200
	MaxSubmissionLinkLen = 200
	MaxNarrationLen      = 300
	MaxClientReviewLen   = 300
)

// account sizes, discriminator included
const (
	JobPostSpace     = DiscriminatorLen + 32 + (4 + MaxTitleLen) + (4 + MaxDescriptionLen) + 8 + 1 + 1 + 8 + 8 + 1 + (1 + 32)
	ApplicationSpace = DiscriminatorLen + 32 + 32 + (4 + MaxResumeLinkLen) + (4 + MaxSubmissionLinkLen) + (4 + MaxNarrationLen) + (4 + MaxClientReviewLen) + 1 + 1 + 1 + 1 + 8
	EscrowSpace      = 8
)

type JobPost struct {
	Client      solana.PublicKey
	Title       string
	Description string
	Amount      uint64
	IsFilled    bool
	Cancelled   bool
	StartDate   int64
	EndDate     int64
	EscrowBump  uint8
	Freelancer  *solana.PublicKey
}

type Application struct {
	Applicant       solana.PublicKey
	JobPost         solana.PublicKey
	ResumeLink      string
	SubmissionLink  string
	Narration       string
	ClientReview    string
	Approved        bool
	Submitted       bool
	Completed       bool
	Rejected        bool
	ExpectedEndDate int64
}

func writeString(encoder *bin.Encoder, s string) error {
	err := encoder.WriteUint32(uint32(len(s)), bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes([]byte(s), false)
}

func readString(decoder *bin.Decoder) (string, error) {
	l, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return "", err
	}
	if uint64(l) > uint64(decoder.Remaining()) {
		return "", fmt.Errorf("string length %d exceeds remaining %d bytes", l, decoder.Remaining())
	}
	b, err := decoder.ReadNBytes(int(l))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("string is not valid utf-8")
	}
	return string(b), nil
}

func readPubkey(decoder *bin.Decoder) (solana.PublicKey, error) {
	b, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func (jp *JobPost) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(jp.Client[:], false); err != nil {
		return err
	}
	if err := writeString(encoder, jp.Title); err != nil {
		return err
	}
	if err := writeString(encoder, jp.Description); err != nil {
		return err
	}
	if err := encoder.WriteUint64(jp.Amount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteBool(jp.IsFilled); err != nil {
		return err
	}
	if err := encoder.WriteBool(jp.Cancelled); err != nil {
		return err
	}
	if err := encoder.WriteInt64(jp.StartDate, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteInt64(jp.EndDate, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteByte(jp.EscrowBump); err != nil {
		return err
	}
	if jp.Freelancer == nil {
		return encoder.WriteBool(false)
	}
	if err := encoder.WriteBool(true); err != nil {
		return err
	}
	return encoder.WriteBytes(jp.Freelancer[:], false)
}

func (jp *JobPost) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if jp.Client, err = readPubkey(decoder); err != nil {
		return err
	}
	if jp.Title, err = readString(decoder); err != nil {
		return err
	}
	if jp.Description, err = readString(decoder); err != nil {
		return err
	}
	if jp.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if jp.IsFilled, err = decoder.ReadBool(); err != nil {
		return err
	}
	if jp.Cancelled, err = decoder.ReadBool(); err != nil {
		return err
	}
	if jp.StartDate, err = decoder.ReadInt64(bin.LE); err != nil {
		return err
	}
	if jp.EndDate, err = decoder.ReadInt64(bin.LE); err != nil {
		return err
	}
	if jp.EscrowBump, err = decoder.ReadByte(); err != nil {
		return err
	}

	hasFreelancer, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	jp.Freelancer = nil
	if hasFreelancer {
		freelancer, err := readPubkey(decoder)
		if err != nil {
			return err
		}
		jp.Freelancer = &freelancer
	}
	return nil
}

func (app *Application) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(app.Applicant[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(app.JobPost[:], false); err != nil {
		return err
	}
	if err := writeString(encoder, app.ResumeLink); err != nil {
		return err
	}
	if err := writeString(encoder, app.SubmissionLink); err != nil {
		return err
	}
	if err := writeString(encoder, app.Narration); err != nil {
		return err
	}
	if err := writeString(encoder, app.ClientReview); err != nil {
		return err
	}
	if err := encoder.WriteBool(app.Approved); err != nil {
		return err
	}
	if err := encoder.WriteBool(app.Submitted); err != nil {
		return err
	}
	if err := encoder.WriteBool(app.Completed); err != nil {
		return err
	}
	if err := encoder.WriteBool(app.Rejected); err != nil {
		return err
	}
	return encoder.WriteInt64(app.ExpectedEndDate, bin.LE)
}

func (app *Application) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if app.Applicant, err = readPubkey(decoder); err != nil {
		return err
	}
	if app.JobPost, err = readPubkey(decoder); err != nil {
		return err
	}
	if app.ResumeLink, err = readString(decoder); err != nil {
		return err
	}
	if app.SubmissionLink, err = readString(decoder); err != nil {
		return err
	}
	if app.Narration, err = readString(decoder); err != nil {
		return err
	}
	if app.ClientReview, err = readString(decoder); err != nil {
		return err
	}
	if app.Approved, err = decoder.ReadBool(); err != nil {
		return err
	}
	if app.Submitted, err = decoder.ReadBool(); err != nil {
		return err
	}
	if app.Completed, err = decoder.ReadBool(); err != nil {
		return err
	}
	if app.Rejected, err = decoder.ReadBool(); err != nil {
		return err
	}
	app.ExpectedEndDate, err = decoder.ReadInt64(bin.LE)
	return err
}

type borshMarshaler interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

type borshUnmarshaler interface {
	UnmarshalWithDecoder(decoder *bin.Decoder) error
}

func marshalAccount(disc Discriminator, v borshMarshaler) []byte {
	writer := new(bytes.Buffer)
	writer.Write(disc[:])
	// writes to a bytes.Buffer cannot fail
	_ = v.MarshalWithEncoder(bin.NewBorshEncoder(writer))
	return writer.Bytes()
}

func unmarshalAccount(data []byte, disc Discriminator, v borshUnmarshaler) error {
	if len(data) < DiscriminatorLen {
		return ErrAccountDiscriminatorNotFound
	}
	if !bytes.Equal(data[:DiscriminatorLen], disc[:]) {
		return ErrAccountDiscriminatorMismatch
	}
	if err := v.UnmarshalWithDecoder(bin.NewBorshDecoder(data[DiscriminatorLen:])); err != nil {
		return ErrAccountDidNotDeserialize
	}
	return nil
}

// Marshal returns the account data of the job post, discriminator first.
func (jp *JobPost) Marshal() []byte {
	return marshalAccount(JobPostDiscriminator, jp)
}

func (app *Application) Marshal() []byte {
	return marshalAccount(ApplicationDiscriminator, app)
}

func DecodeJobPost(data []byte) (*JobPost, error) {
	jp := new(JobPost)
	if err := unmarshalAccount(data, JobPostDiscriminator, jp); err != nil {
		return nil, err
	}
	return jp, nil
}

func DecodeApplication(data []byte) (*Application, error) {
	app := new(Application)
	if err := unmarshalAccount(data, ApplicationDiscriminator, app); err != nil {
		return nil, err
	}
	return app, nil
}
