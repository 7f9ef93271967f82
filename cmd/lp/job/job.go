package job

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.firedancer.io/lp/cmd/lp/env"
	"go.firedancer.io/lp/pkg/client"
	"go.firedancer.io/lp/pkg/escrow"
)

var Cmd = cobra.Command{
	Use:   "job",
	Short: "Post, cancel and inspect job posts",
}

var (
	postCmd = cobra.Command{
		Use:   "post",
		Short: "Post a job and fund its escrow",
		Args:  cobra.NoArgs,
		Run:   runPost,
	}
	cancelCmd = cobra.Command{
		Use:   "cancel <job-post>",
		Short: "Cancel an unfilled job and refund the escrow",
		Args:  cobra.ExactArgs(1),
		Run:   runCancel,
	}
	showCmd = cobra.Command{
		Use:   "show <job-post>",
		Short: "Show a job post with its escrow and applications",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}
	listCmd = cobra.Command{
		Use:   "list",
		Short: "List job posts",
		Args:  cobra.NoArgs,
		Run:   runList,
	}

	title       string
	description string
	amount      uint64
	startsIn    time.Duration
	lasts       time.Duration

	mine     bool
	openOnly bool
)

func init() {
	postCmd.Flags().StringVar(&title, "title", "", "Job title (at most 32 bytes, part of the job post address)")
	postCmd.Flags().StringVar(&description, "description", "", "Job description")
	postCmd.Flags().Uint64Var(&amount, "amount", 0, "Lamports to escrow")
	postCmd.Flags().DurationVar(&startsIn, "starts-in", time.Minute, "Delay until the job starts")
	postCmd.Flags().DurationVar(&lasts, "lasts", 7*24*time.Hour, "Job duration")
	_ = postCmd.MarkFlagRequired("title")
	_ = postCmd.MarkFlagRequired("amount")

	listCmd.Flags().BoolVar(&mine, "mine", false, "Only jobs posted by the wallet")
	listCmd.Flags().BoolVar(&openOnly, "open", false, "Only jobs that are neither filled nor cancelled")

	Cmd.AddCommand(&postCmd, &cancelCmd, &showCmd, &listCmd)
}

func runPost(c *cobra.Command, _ []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	start := time.Now().Add(startsIn)
	args := escrow.InitializeJobPostArgs{
		Title:       title,
		Description: description,
		Amount:      amount,
		StartDate:   start.Unix(),
		EndDate:     start.Add(lasts).Unix(),
	}

	jobPost, sig, err := e.Program.PostJob(ctx, args)
	if err == nil {
		fmt.Fprintf(e.Out, "job post: %s\n", jobPost)
	}
	e.CheckTx(sig, err)
}

func runCancel(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	e.CheckTx(e.Program.CancelJob(ctx, env.ParsePubkey("job post", args[0])))
}

func state(jp *escrow.JobPost) string {
	switch {
	case jp.Cancelled:
		return "cancelled"
	case jp.IsFilled:
		return "filled"
	default:
		return "open"
	}
}

func runShow(c *cobra.Command, args []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	summary, err := e.Program.JobSummary(ctx, env.ParsePubkey("job post", args[0]))
	if err != nil {
		e.Exitf("%s", err)
	}
	jp := summary.JobPost

	w := tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Job post:\t%s\n", jp.Key)
	fmt.Fprintf(w, "Title:\t%s\n", jp.Title)
	fmt.Fprintf(w, "Description:\t%s\n", jp.Description)
	fmt.Fprintf(w, "Client:\t%s\n", jp.Client)
	fmt.Fprintf(w, "Amount:\t%s\n", env.FormatSOL(jp.Amount))
	fmt.Fprintf(w, "State:\t%s\n", state(jp.JobPost))
	fmt.Fprintf(w, "Starts:\t%s\n", env.FormatTime(jp.StartDate))
	fmt.Fprintf(w, "Ends:\t%s\n", env.FormatTime(jp.EndDate))
	if jp.Freelancer != nil {
		fmt.Fprintf(w, "Freelancer:\t%s\n", *jp.Freelancer)
	}
	fmt.Fprintf(w, "Escrow:\t%s (%s)\n", summary.Escrow, env.FormatSOL(summary.EscrowBalance))
	_ = w.Flush()

	if len(summary.Applications) == 0 {
		return
	}
	fmt.Fprintln(e.Out)
	w = tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPLICATION\tAPPLICANT\tSTATUS")
	for _, app := range summary.Applications {
		fmt.Fprintf(w, "%s\t%s\t%s\n", app.Key, app.Applicant, ApplicationStatus(app.Application))
	}
	_ = w.Flush()
}

// ApplicationStatus names the furthest stage an application has reached.
func ApplicationStatus(app *escrow.Application) string {
	switch {
	case app.Completed:
		return "completed"
	case app.Submitted:
		return "submitted"
	case app.Rejected:
		return "rejected"
	case app.Approved:
		return "approved"
	default:
		return "pending"
	}
}

func runList(c *cobra.Command, _ []string) {
	ctx := c.Context()
	e := env.MustOpen(c)
	defer e.Close()

	jobs, err := e.Program.JobPosts(ctx)
	if err != nil {
		e.Exitf("%s", err)
	}

	wallet := e.Wallet.PublicKey()
	jobs = lo.Filter(jobs, func(jp client.JobPostAccount, _ int) bool {
		if mine && jp.Client != wallet {
			return false
		}
		return !openOnly || state(jp.JobPost) == "open"
	})

	w := tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB POST\tTITLE\tAMOUNT\tSTATE\tCLIENT")
	for _, jp := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", jp.Key, jp.Title, env.FormatSOL(jp.Amount), state(jp.JobPost), shortKey(jp.Client))
	}
	_ = w.Flush()
}

func shortKey(pk solana.PublicKey) string {
	s := pk.String()
	if len(s) <= 12 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}
