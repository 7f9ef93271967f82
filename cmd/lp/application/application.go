package application

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.firedancer.io/lp/cmd/lp/env"
	"go.firedancer.io/lp/cmd/lp/job"
	"go.firedancer.io/lp/pkg/escrow"
)

var Cmd = cobra.Command{
	Use:   "application",
	Short: "Apply to jobs and review applications",
}

var (
	applyCmd = cobra.Command{
		Use:   "apply <job-post>",
		Short: "Apply to a job as the wallet",
		Args:  cobra.ExactArgs(1),
		Run:   runApply,
	}
	approveCmd = cobra.Command{
		Use:   "approve <job-post> <application>",
		Short: "Approve an application to a job you posted",
		Args:  cobra.ExactArgs(2),
		Run:   runApprove,
	}
	submitCmd = cobra.Command{
		Use:   "submit <job-post>",
		Short: "Submit work for an approved application",
		Args:  cobra.ExactArgs(1),
		Run:   runSubmit,
	}
	acceptCmd = cobra.Command{
		Use:   "accept <job-post> <freelancer>",
		Short: "Accept submitted work and release the escrow to the freelancer",
		Args:  cobra.ExactArgs(2),
		Run:   runAccept,
	}
	rejectCmd = cobra.Command{
		Use:   "reject <job-post> <freelancer>",
		Short: "Reject submitted work",
		Args:  cobra.ExactArgs(2),
		Run:   runReject,
	}
	showCmd = cobra.Command{
		Use:   "show <application>",
		Short: "Show an application",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}
	listCmd = cobra.Command{
		Use:   "list <job-post>",
		Short: "List the applications to a job",
		Args:  cobra.ExactArgs(1),
		Run:   runList,
	}

	resumeLink     string
	expectedIn     time.Duration
	submissionLink string
	narration      string
	review         string
)

func init() {
	applyCmd.Flags().StringVar(&resumeLink, "resume", "", "Link to your resume")
	applyCmd.Flags().DurationVar(&expectedIn, "expected-in", 7*24*time.Hour, "Expected time to finish the job")
	_ = applyCmd.MarkFlagRequired("resume")

	submitCmd.Flags().StringVar(&submissionLink, "link", "", "Link to the submitted work")
	submitCmd.Flags().StringVar(&narration, "narration", "", "Notes for the client")
	_ = submitCmd.MarkFlagRequired("link")
	_ = submitCmd.MarkFlagRequired("narration")

	for _, c := range []*cobra.Command{&acceptCmd, &rejectCmd} {
		c.Flags().StringVar(&review, "review", "", "Review for the freelancer")
		_ = c.MarkFlagRequired("review")
	}

	Cmd.AddCommand(&applyCmd, &approveCmd, &submitCmd, &acceptCmd, &rejectCmd, &showCmd, &listCmd)
}

func runApply(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	application, sig, err := e.Program.ApplyToJob(ctx, env.ParsePubkey("job post", args[0]), escrow.ApplyToJobArgs{
		ResumeLink:      resumeLink,
		ExpectedEndDate: time.Now().Add(expectedIn).Unix(),
	})
	if err == nil {
		fmt.Fprintf(e.Out, "application: %s\n", application)
	}
	e.CheckTx(sig, err)
}

func runApprove(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	e.CheckTx(e.Program.ApproveApplication(ctx, env.ParsePubkey("job post", args[0]), env.ParsePubkey("application", args[1])))
}

func runSubmit(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	e.CheckTx(e.Program.SubmitWork(ctx, env.ParsePubkey("job post", args[0]), escrow.SubmitWorkArgs{
		SubmissionLink: submissionLink,
		Narration:      narration,
	}))
}

func runAccept(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	e.CheckTx(e.Program.ApproveSubmission(ctx, env.ParsePubkey("job post", args[0]), env.ParsePubkey("freelancer", args[1]), review))
}

func runReject(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	e.CheckTx(e.Program.RejectSubmission(ctx, env.ParsePubkey("job post", args[0]), env.ParsePubkey("freelancer", args[1]), review))
}

func runShow(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	key := env.ParsePubkey("application", args[0])
	app, err := e.Program.Application(ctx, key)
	if err != nil {
		e.Exitf("%s", err)
	}

	w := tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Application:\t%s\n", key)
	fmt.Fprintf(w, "Job post:\t%s\n", app.JobPost)
	fmt.Fprintf(w, "Applicant:\t%s\n", app.Applicant)
	fmt.Fprintf(w, "Status:\t%s\n", job.ApplicationStatus(app))
	fmt.Fprintf(w, "Resume:\t%s\n", app.ResumeLink)
	fmt.Fprintf(w, "Expected end:\t%s\n", env.FormatTime(app.ExpectedEndDate))
	if app.SubmissionLink != "" {
		fmt.Fprintf(w, "Submission:\t%s\n", app.SubmissionLink)
		fmt.Fprintf(w, "Narration:\t%s\n", app.Narration)
	}
	if app.ClientReview != "" {
		fmt.Fprintf(w, "Review:\t%s\n", app.ClientReview)
	}
	_ = w.Flush()
}

func runList(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	apps, err := e.Program.Applications(ctx, env.ParsePubkey("job post", args[0]))
	if err != nil {
		e.Exitf("%s", err)
	}

	w := tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPLICATION\tAPPLICANT\tSTATUS\tRESUME")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", app.Key, app.Applicant, job.ApplicationStatus(app.Application), app.ResumeLink)
	}
	_ = w.Flush()
}
