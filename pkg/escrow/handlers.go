package escrow

import (
	"go.firedancer.io/lp/pkg/sealevel"
)

func (inv *invocation) initialize() error {
	inv.msg("Greetings from: %s", ProgramID)
	return nil
}

func (inv *invocation) initializeJobPost(args *InitializeJobPostArgs) error {
	jobPostInfo, err := inv.raw("job_post")
	if err != nil {
		return err
	}
	escrowInfo, err := inv.raw("escrow")
	if err != nil {
		return err
	}
	client, err := inv.signer("client")
	if err != nil {
		return err
	}
	if _, err = inv.systemProgram("system_program"); err != nil {
		return err
	}

	if _, err = inv.initPDA(jobPostInfo, client, JobPostSpace, jobPostSeeds(client.key, args.Title)); err != nil {
		return err
	}
	escrowBump, err := inv.initPDA(escrowInfo, client, EscrowSpace, escrowSeeds(jobPostInfo.key))
	if err != nil {
		return err
	}
	if err = inv.mut(client); err != nil {
		return err
	}

	if args.Title == "" || args.Description == "" {
		return ErrInvalidInput
	}
	if args.Amount == 0 {
		return ErrInvalidAmount
	}
	if args.StartDate > args.EndDate {
		return ErrInvalidDates
	}
	if args.StartDate < inv.clock().UnixTimestamp {
		return ErrInvalidDates
	}

	jobPost := &JobPost{
		Client:      client.key,
		Title:       args.Title,
		Description: args.Description,
		Amount:      args.Amount,
		StartDate:   args.StartDate,
		EndDate:     args.EndDate,
		EscrowBump:  escrowBump,
	}

	err = inv.execCtx.NativeInvoke(sealevel.NewTransferInstruction(client.key, escrowInfo.key, args.Amount), nil)
	if err != nil {
		return err
	}

	inv.msg("Job post created: '%s' for %d lamports", jobPost.Title, args.Amount)
	return inv.store(jobPostInfo, jobPost.Marshal())
}

func (inv *invocation) applyToJob(args *ApplyToJobArgs) error {
	applicationInfo, err := inv.raw("application")
	if err != nil {
		return err
	}
	freelancer, err := inv.signer("freelancer")
	if err != nil {
		return err
	}
	jobPostInfo, jobPost, err := inv.jobPost("job_post")
	if err != nil {
		return err
	}
	if _, err = inv.systemProgram("system_program"); err != nil {
		return err
	}

	_, err = inv.initPDA(applicationInfo, freelancer, ApplicationSpace, applicationSeeds(jobPostInfo.key, freelancer.key))
	if err != nil {
		return err
	}
	if err = inv.mut(freelancer); err != nil {
		return err
	}

	if args.ResumeLink == "" {
		return ErrInvalidInput
	}
	if args.ExpectedEndDate < 0 {
		return ErrInvalidDates
	}
	if jobPost.IsFilled {
		return ErrJobAlreadyFilled
	}
	if jobPost.Cancelled {
		return ErrJobCancelled
	}

	application := &Application{
		Applicant:       freelancer.key,
		JobPost:         jobPostInfo.key,
		ResumeLink:      args.ResumeLink,
		ExpectedEndDate: args.ExpectedEndDate,
	}

	inv.msg("Application submitted by %s", application.Applicant)
	return inv.store(applicationInfo, application.Marshal())
}

func (inv *invocation) approveApplication() error {
	applicationInfo, application, err := inv.application("application")
	if err != nil {
		return err
	}
	jobPostInfo, jobPost, err := inv.jobPost("job_post")
	if err != nil {
		return err
	}
	client, err := inv.signer("client")
	if err != nil {
		return err
	}

	if err = inv.mut(applicationInfo); err != nil {
		return err
	}
	if err = constraint(application.JobPost == jobPostInfo.key, ErrInvalidAccount, applicationInfo); err != nil {
		return err
	}
	if err = inv.mut(jobPostInfo); err != nil {
		return err
	}
	if err = constraint(jobPost.Client == client.key, ErrUnauthorized, jobPostInfo); err != nil {
		return err
	}
	if err = inv.mut(client); err != nil {
		return err
	}

	if jobPost.IsFilled {
		return ErrJobAlreadyFilled
	}
	if jobPost.Cancelled {
		return ErrJobCancelled
	}
	if application.Approved {
		return ErrApplicationAlreadyApproved
	}

	application.Approved = true
	jobPost.IsFilled = true
	applicant := application.Applicant
	jobPost.Freelancer = &applicant

	inv.msg("Application approved for job '%s'", jobPost.Title)
	if err = inv.store(applicationInfo, application.Marshal()); err != nil {
		return err
	}
	return inv.store(jobPostInfo, jobPost.Marshal())
}

func (inv *invocation) submitWork(args *SubmitWorkArgs) error {
	applicationInfo, application, err := inv.application("application")
	if err != nil {
		return err
	}
	freelancer, err := inv.signer("freelancer")
	if err != nil {
		return err
	}
	jobPostInfo, _, err := inv.jobPost("job_post")
	if err != nil {
		return err
	}

	if err = inv.mut(applicationInfo); err != nil {
		return err
	}
	if err = constraint(application.Applicant == freelancer.key, ErrUnauthorized, applicationInfo); err != nil {
		return err
	}
	if err = constraint(application.JobPost == jobPostInfo.key, ErrInvalidAccount, applicationInfo); err != nil {
		return err
	}
	if err = inv.mut(freelancer); err != nil {
		return err
	}

	if args.SubmissionLink == "" || args.Narration == "" {
		return ErrInvalidInput
	}
	if !application.Approved {
		return ErrApplicationNotApproved
	}
	if application.Completed {
		return ErrWorkAlreadyApproved
	}

	// a rejected submission may be resubmitted
	application.SubmissionLink = args.SubmissionLink
	application.Narration = args.Narration
	application.Submitted = true
	application.Rejected = false

	inv.msg("Work submitted by %s", application.Applicant)
	return inv.store(applicationInfo, application.Marshal())
}

func (inv *invocation) approveSubmission(args *ReviewArgs) error {
	applicationInfo, application, err := inv.application("application")
	if err != nil {
		return err
	}
	jobPostInfo, jobPost, err := inv.jobPost("job_post")
	if err != nil {
		return err
	}
	escrowInfo, err := inv.raw("escrow")
	if err != nil {
		return err
	}
	client, err := inv.signer("client")
	if err != nil {
		return err
	}
	freelancer, err := inv.raw("freelancer")
	if err != nil {
		return err
	}
	if _, err = inv.systemProgram("system_program"); err != nil {
		return err
	}

	if err = inv.mut(applicationInfo); err != nil {
		return err
	}
	if err = constraint(application.JobPost == jobPostInfo.key, ErrInvalidAccount, applicationInfo); err != nil {
		return err
	}
	if err = inv.mut(jobPostInfo); err != nil {
		return err
	}
	if err = constraint(jobPost.Client == client.key, ErrUnauthorized, jobPostInfo); err != nil {
		return err
	}
	if err = inv.mut(escrowInfo); err != nil {
		return err
	}
	if err = inv.seeds(escrowInfo, escrowSeeds(jobPostInfo.key), jobPost.EscrowBump); err != nil {
		return err
	}
	if err = inv.mut(client); err != nil {
		return err
	}
	if err = inv.mut(freelancer); err != nil {
		return err
	}

	if !application.Submitted {
		return ErrWorkNotCompleted
	}
	if application.Completed {
		return ErrWorkAlreadyApproved
	}
	if jobPost.Freelancer == nil || *jobPost.Freelancer != application.Applicant {
		return ErrUnauthorized
	}
	if freelancer.key != application.Applicant {
		return ErrUnauthorized
	}
	if inv.lamports(escrowInfo) < jobPost.Amount {
		return ErrInsufficientEscrowBalance
	}

	application.ClientReview = args.ClientReview
	application.Completed = true
	if err = inv.store(applicationInfo, application.Marshal()); err != nil {
		return err
	}

	if err = inv.moveLamports(escrowInfo, freelancer, jobPost.Amount); err != nil {
		return err
	}

	inv.msg("Funds released to freelancer.")
	return nil
}

func (inv *invocation) rejectSubmission(args *ReviewArgs) error {
	applicationInfo, application, err := inv.application("application")
	if err != nil {
		return err
	}
	jobPostInfo, jobPost, err := inv.jobPost("job_post")
	if err != nil {
		return err
	}
	client, err := inv.signer("client")
	if err != nil {
		return err
	}

	if err = inv.mut(applicationInfo); err != nil {
		return err
	}
	if err = constraint(application.JobPost == jobPostInfo.key, ErrInvalidAccount, applicationInfo); err != nil {
		return err
	}
	if err = inv.mut(jobPostInfo); err != nil {
		return err
	}
	if err = constraint(jobPost.Client == client.key, ErrUnauthorized, jobPostInfo); err != nil {
		return err
	}
	isFreelancer := jobPost.Freelancer != nil && *jobPost.Freelancer == application.Applicant
	if err = constraint(isFreelancer, ErrUnauthorized, jobPostInfo); err != nil {
		return err
	}
	if err = inv.mut(client); err != nil {
		return err
	}

	if application.Completed {
		return ErrWorkAlreadyApproved
	}
	if !application.Submitted {
		return ErrWorkNotCompleted
	}

	application.ClientReview = args.ClientReview
	application.Rejected = true
	application.Submitted = false

	inv.msg("Work rejected. Feedback: %s", application.ClientReview)
	return inv.store(applicationInfo, application.Marshal())
}

func (inv *invocation) cancelJob() error {
	jobPostInfo, jobPost, err := inv.jobPost("job_post")
	if err != nil {
		return err
	}
	escrowInfo, err := inv.raw("escrow")
	if err != nil {
		return err
	}
	client, err := inv.signer("client")
	if err != nil {
		return err
	}
	if _, err = inv.systemProgram("system_program"); err != nil {
		return err
	}

	if err = inv.mut(jobPostInfo); err != nil {
		return err
	}
	if err = constraint(jobPost.Client == client.key, ErrUnauthorized, jobPostInfo); err != nil {
		return err
	}
	if err = inv.mut(escrowInfo); err != nil {
		return err
	}
	if err = inv.seeds(escrowInfo, escrowSeeds(jobPostInfo.key), jobPost.EscrowBump); err != nil {
		return err
	}
	if err = inv.mut(client); err != nil {
		return err
	}

	if jobPost.IsFilled {
		return ErrJobAlreadyFilled
	}
	if jobPost.Cancelled {
		return ErrJobAlreadyCancelled
	}

	jobPost.Cancelled = true
	if err = inv.store(jobPostInfo, jobPost.Marshal()); err != nil {
		return err
	}

	if err = inv.moveLamports(escrowInfo, client, jobPost.Amount); err != nil {
		return err
	}

	inv.msg("Job cancelled and funds refunded to client")
	return nil
}
