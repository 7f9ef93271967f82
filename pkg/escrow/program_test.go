package escrow

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/lp/pkg/sealevel"
)

const (
	jobPostRent     = uint64(5_818_560)
	escrowRent      = uint64(946_560)
	applicationRent = uint64(8_546_880)
)

func TestRentReserves(t *testing.T) {
	rent := sealevel.DefaultRent()
	assert.Equal(t, jobPostRent, rent.MinimumBalance(JobPostSpace))
	assert.Equal(t, escrowRent, rent.MinimumBalance(EscrowSpace))
	assert.Equal(t, applicationRent, rent.MinimumBalance(ApplicationSpace))
}

func TestInitialize(t *testing.T) {
	h := newHarness(t)

	logs := h.mustExec(NewInitializeInstruction(), nil)
	assert.Equal(t, []string{
		"Program " + ProgramIDStr + " invoke [1]",
		"Program log: Instruction: Initialize",
		"Program log: Greetings from: " + ProgramIDStr,
		"Program " + ProgramIDStr + " consumed 1500 of 200000 compute units",
		"Program " + ProgramIDStr + " success",
	}, logs)
}

func TestInitializeDiscriminator(t *testing.T) {
	data, err := NewInitializeInstruction().Data()
	require.NoError(t, err)
	assert.Equal(t, "afaf6d1f0d989bed", hex.EncodeToString(data))
}

func TestJobLifecycle(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	freelancer := h.wallet(100_000_000)
	const amount = uint64(1_000_000)

	logs := h.mustExec(NewInitializeJobPostInstruction(client, jobArgs("landing page", amount)))
	assert.Contains(t, logs, "Program log: Instruction: InitializeJobPost")
	assert.Contains(t, logs, "Program 11111111111111111111111111111111 invoke [2]")
	assert.Contains(t, logs, "Program log: Job post created: 'landing page' for 1000000 lamports")

	jobPostKey, _, err := FindJobPostAddress(client, "landing page")
	require.NoError(t, err)
	escrowKey, escrowBump, err := FindEscrowAddress(jobPostKey)
	require.NoError(t, err)

	jobPost := h.jobPost(jobPostKey)
	assert.Equal(t, client, jobPost.Client)
	assert.Equal(t, amount, jobPost.Amount)
	assert.Equal(t, escrowBump, jobPost.EscrowBump)
	assert.False(t, jobPost.IsFilled)
	assert.Nil(t, jobPost.Freelancer)

	assert.Equal(t, escrowRent+amount, h.lamports(escrowKey))
	assert.Equal(t, jobPostRent, h.lamports(jobPostKey))
	assert.Equal(t, 10_000_000_000-jobPostRent-escrowRent-amount, h.lamports(client))
	assert.Equal(t, ProgramID, solana.PublicKeyFromBytes(h.get(escrowKey).Owner[:]))
	assert.Len(t, h.get(escrowKey).Data, EscrowSpace)

	h.mustExec(NewApplyToJobInstruction(freelancer, jobPostKey, ApplyToJobArgs{ResumeLink: "https://cv.example", ExpectedEndDate: testNow + 3600}))
	applicationKey, _, err := FindApplicationAddress(jobPostKey, freelancer)
	require.NoError(t, err)

	application := h.application(applicationKey)
	assert.Equal(t, freelancer, application.Applicant)
	assert.Equal(t, jobPostKey, application.JobPost)
	assert.Equal(t, "https://cv.example", application.ResumeLink)
	assert.Equal(t, 100_000_000-applicationRent, h.lamports(freelancer))

	h.mustExec(NewApproveApplicationInstruction(client, jobPostKey, applicationKey), nil)
	jobPost = h.jobPost(jobPostKey)
	assert.True(t, jobPost.IsFilled)
	require.NotNil(t, jobPost.Freelancer)
	assert.Equal(t, freelancer, *jobPost.Freelancer)
	assert.True(t, h.application(applicationKey).Approved)

	h.mustExec(NewSubmitWorkInstruction(freelancer, jobPostKey, SubmitWorkArgs{SubmissionLink: "https://git.example/pr/1", Narration: "first cut"}))
	assert.True(t, h.application(applicationKey).Submitted)

	logs = h.mustExec(NewRejectSubmissionInstruction(client, jobPostKey, freelancer, ReviewArgs{ClientReview: "needs tests"}))
	assert.Contains(t, logs, "Program log: Work rejected. Feedback: needs tests")
	application = h.application(applicationKey)
	assert.True(t, application.Rejected)
	assert.False(t, application.Submitted)

	// resubmission after rejection
	h.mustExec(NewSubmitWorkInstruction(freelancer, jobPostKey, SubmitWorkArgs{SubmissionLink: "https://git.example/pr/2", Narration: "with tests"}))
	application = h.application(applicationKey)
	assert.True(t, application.Submitted)
	assert.False(t, application.Rejected)
	assert.Equal(t, "with tests", application.Narration)

	freelancerBefore := h.lamports(freelancer)
	h.mustExec(NewApproveSubmissionInstruction(client, jobPostKey, freelancer, ReviewArgs{ClientReview: "great"}))
	application = h.application(applicationKey)
	assert.True(t, application.Completed)
	assert.Equal(t, "great", application.ClientReview)
	assert.Equal(t, freelancerBefore+amount, h.lamports(freelancer))
	assert.Equal(t, escrowRent, h.lamports(escrowKey))

	// nothing left to pay out
	_, err = h.exec(mustIx(NewApproveSubmissionInstruction(client, jobPostKey, freelancer, ReviewArgs{ClientReview: "again"})))
	assert.ErrorIs(t, err, ErrWorkAlreadyApproved)

	_, err = h.exec(mustIx(NewSubmitWorkInstruction(freelancer, jobPostKey, SubmitWorkArgs{SubmissionLink: "x", Narration: "y"})))
	assert.ErrorIs(t, err, ErrWorkAlreadyApproved)
}

func mustIx(ix solana.Instruction, err error) solana.Instruction {
	if err != nil {
		panic(err)
	}
	return ix
}

func postJob(t *testing.T, h *harness, client solana.PublicKey, title string) solana.PublicKey {
	h.mustExec(NewInitializeJobPostInstruction(client, jobArgs(title, 500_000)))
	jobPostKey, _, err := FindJobPostAddress(client, title)
	require.NoError(t, err)
	return jobPostKey
}

func TestCancelJob(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	jobPostKey := postJob(t, h, client, "logo")
	escrowKey, _, _ := FindEscrowAddress(jobPostKey)

	before := h.lamports(client)
	logs := h.mustExec(NewCancelJobInstruction(client, jobPostKey))
	assert.Contains(t, logs, "Program log: Job cancelled and funds refunded to client")
	assert.Equal(t, before+500_000, h.lamports(client))
	assert.Equal(t, escrowRent, h.lamports(escrowKey))
	assert.True(t, h.jobPost(jobPostKey).Cancelled)

	logs, err := h.exec(mustIx(NewCancelJobInstruction(client, jobPostKey)))
	assert.ErrorIs(t, err, ErrJobAlreadyCancelled)
	assert.Contains(t, logs, "Program log: AnchorError occurred. Error Code: JobAlreadyCancelled. Error Number: 6009. Error Message: Job has already been cancelled..")
	assert.Contains(t, logs, "Program "+ProgramIDStr+" failed: custom program error: 0x1779")

	freelancer := h.wallet(100_000_000)
	_, err = h.exec(mustIx(NewApplyToJobInstruction(freelancer, jobPostKey, ApplyToJobArgs{ResumeLink: "cv"})))
	assert.ErrorIs(t, err, ErrJobCancelled)
}

func TestCancelFilledJob(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	freelancer := h.wallet(100_000_000)
	jobPostKey := postJob(t, h, client, "api")

	h.mustExec(NewApplyToJobInstruction(freelancer, jobPostKey, ApplyToJobArgs{ResumeLink: "cv"}))
	applicationKey, _, _ := FindApplicationAddress(jobPostKey, freelancer)
	h.mustExec(NewApproveApplicationInstruction(client, jobPostKey, applicationKey), nil)

	_, err := h.exec(mustIx(NewCancelJobInstruction(client, jobPostKey)))
	assert.ErrorIs(t, err, ErrJobAlreadyFilled)

	other := h.wallet(100_000_000)
	_, err = h.exec(mustIx(NewApplyToJobInstruction(other, jobPostKey, ApplyToJobArgs{ResumeLink: "cv"})))
	assert.ErrorIs(t, err, ErrJobAlreadyFilled)
}

func TestInitializeJobPostValidation(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)

	cases := []struct {
		name string
		args InitializeJobPostArgs
		err  ErrorCode
	}{
		{"empty title", func() InitializeJobPostArgs { a := jobArgs("", 1); return a }(), ErrInvalidInput},
		{"empty description", func() InitializeJobPostArgs { a := jobArgs("t1", 1); a.Description = ""; return a }(), ErrInvalidInput},
		{"zero amount", jobArgs("t2", 0), ErrInvalidAmount},
		{"end before start", func() InitializeJobPostArgs { a := jobArgs("t3", 1); a.EndDate = a.StartDate - 1; return a }(), ErrInvalidDates},
		{"start in the past", func() InitializeJobPostArgs { a := jobArgs("t4", 1); a.StartDate = testNow - 1; return a }(), ErrInvalidDates},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := h.lamports(client)
			_, err := h.exec(mustIx(NewInitializeJobPostInstruction(client, tc.args)))
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, before, h.lamports(client))
		})
	}
}

func TestInitializeJobPostTwice(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	postJob(t, h, client, "same")

	_, err := h.exec(mustIx(NewInitializeJobPostInstruction(client, jobArgs("same", 500_000))))
	assert.ErrorIs(t, err, sealevel.SystemProgErrAccountAlreadyInUse)
}

func TestInitializeJobPostClientCannotPay(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(1_000_000)

	_, err := h.exec(mustIx(NewInitializeJobPostInstruction(client, jobArgs("broke", 1))))
	assert.ErrorIs(t, err, sealevel.SystemProgErrResultWithNegativeLamports)
}

func TestInitializeJobPostLongTitle(t *testing.T) {
	_, _, err := FindJobPostAddress(solana.NewWallet().PublicKey(), "a title that is longer than thirty two bytes")
	assert.Error(t, err)
}

func TestApproveApplicationUnauthorized(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	freelancer := h.wallet(100_000_000)
	intruder := h.wallet(100_000_000)
	jobPostKey := postJob(t, h, client, "job")

	h.mustExec(NewApplyToJobInstruction(freelancer, jobPostKey, ApplyToJobArgs{ResumeLink: "cv"}))
	applicationKey, _, _ := FindApplicationAddress(jobPostKey, freelancer)

	logs, err := h.exec(NewApproveApplicationInstruction(intruder, jobPostKey, applicationKey))
	assert.ErrorIs(t, err, ErrUnauthorized)
	var anchorErr *AnchorError
	require.True(t, errors.As(err, &anchorErr))
	assert.Equal(t, "job_post", anchorErr.Account)
	assert.Contains(t, logs, "Program log: AnchorError caused by account: job_post. Error Code: Unauthorized. Error Number: 6000. Error Message: You are not authorized to perform this action..")

	h.mustExec(NewApproveApplicationInstruction(client, jobPostKey, applicationKey), nil)
	_, err = h.exec(NewApproveApplicationInstruction(client, jobPostKey, applicationKey))
	assert.ErrorIs(t, err, ErrJobAlreadyFilled)
}

func TestApproveApplicationWrongJob(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	freelancer := h.wallet(100_000_000)
	jobA := postJob(t, h, client, "a")
	jobB := postJob(t, h, client, "b")

	h.mustExec(NewApplyToJobInstruction(freelancer, jobA, ApplyToJobArgs{ResumeLink: "cv"}))
	applicationKey, _, _ := FindApplicationAddress(jobA, freelancer)

	_, err := h.exec(NewApproveApplicationInstruction(client, jobB, applicationKey))
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestSubmitWorkRules(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	freelancer := h.wallet(100_000_000)
	jobPostKey := postJob(t, h, client, "work")

	h.mustExec(NewApplyToJobInstruction(freelancer, jobPostKey, ApplyToJobArgs{ResumeLink: "cv"}))

	_, err := h.exec(mustIx(NewSubmitWorkInstruction(freelancer, jobPostKey, SubmitWorkArgs{SubmissionLink: "link", Narration: "done"})))
	assert.ErrorIs(t, err, ErrApplicationNotApproved)

	_, err = h.exec(mustIx(NewSubmitWorkInstruction(freelancer, jobPostKey, SubmitWorkArgs{SubmissionLink: "", Narration: "done"})))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.exec(mustIx(NewApproveSubmissionInstruction(client, jobPostKey, freelancer, ReviewArgs{ClientReview: "?"})))
	assert.ErrorIs(t, err, ErrWorkNotCompleted)

	_, err = h.exec(mustIx(NewRejectSubmissionInstruction(client, jobPostKey, freelancer, ReviewArgs{ClientReview: "?"})))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestApproveSubmissionWrongFreelancerAccount(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	freelancer := h.wallet(100_000_000)
	thief := h.wallet(1_000_000)
	jobPostKey := postJob(t, h, client, "pay")

	h.mustExec(NewApplyToJobInstruction(freelancer, jobPostKey, ApplyToJobArgs{ResumeLink: "cv"}))
	applicationKey, _, _ := FindApplicationAddress(jobPostKey, freelancer)
	h.mustExec(NewApproveApplicationInstruction(client, jobPostKey, applicationKey), nil)
	h.mustExec(NewSubmitWorkInstruction(freelancer, jobPostKey, SubmitWorkArgs{SubmissionLink: "l", Narration: "n"}))

	ix := mustIx(NewApproveSubmissionInstruction(client, jobPostKey, freelancer, ReviewArgs{ClientReview: "ok"}))
	ix.Accounts()[4].PublicKey = thief

	_, err := h.exec(ix)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(1_000_000), h.lamports(thief))
}

func TestCancelJobWrongEscrow(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	jobPostKey := postJob(t, h, client, "seeds")
	decoy := h.wallet(1_000_000)

	ix := mustIx(NewCancelJobInstruction(client, jobPostKey))
	ix.Accounts()[1].PublicKey = decoy

	logs, err := h.exec(ix)
	assert.ErrorIs(t, err, ErrConstraintSeeds)
	assert.Contains(t, logs, "Program log: AnchorError caused by account: escrow. Error Code: ConstraintSeeds. Error Number: 2006. Error Message: A seeds constraint was violated.")
}

func TestClientMustSign(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	jobPostKey := postJob(t, h, client, "signer")

	ix := mustIx(NewCancelJobInstruction(client, jobPostKey))
	ix.Accounts()[2].IsSigner = false

	_, err := h.exec(ix)
	assert.ErrorIs(t, err, ErrAccountNotSigner)
}

func TestWrongSystemProgram(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	jobPostKey := postJob(t, h, client, "sys")

	ix := mustIx(NewCancelJobInstruction(client, jobPostKey))
	ix.Accounts()[3].PublicKey = client

	_, err := h.exec(ix)
	assert.ErrorIs(t, err, ErrInvalidProgramId)
}

func TestNotEnoughAccounts(t *testing.T) {
	h := newHarness(t)
	ix := solana.NewInstruction(ProgramID, solana.AccountMetaSlice{}, instructionData(InstructionCancelJob, noArgs{}))

	_, err := h.exec(ix)
	assert.ErrorIs(t, err, ErrAccountNotEnoughKeys)
}

func TestUninitializedJobPost(t *testing.T) {
	h := newHarness(t)
	client := h.wallet(10_000_000_000)
	jobPostKey, _, _ := FindJobPostAddress(client, "missing")

	_, err := h.exec(mustIx(NewCancelJobInstruction(client, jobPostKey)))
	assert.ErrorIs(t, err, ErrAccountNotInitialized)

	// an account owned by someone else
	_, err = h.exec(mustIx(NewCancelJobInstruction(client, client)))
	assert.ErrorIs(t, err, ErrAccountOwnedByWrongProgram)
}

func TestDispatchErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(solana.NewInstruction(ProgramID, solana.AccountMetaSlice{}, []byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInstructionMissing)

	_, err = h.exec(solana.NewInstruction(ProgramID, solana.AccountMetaSlice{}, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.ErrorIs(t, err, ErrInstructionFallbackNotFound)

	disc := InstructionDiscriminator(InstructionApplyToJob)
	_, err = h.exec(solana.NewInstruction(ProgramID, solana.AccountMetaSlice{}, append(disc[:], 0xff)))
	assert.ErrorIs(t, err, ErrInstructionDidNotDeserialize)
}
