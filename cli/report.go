package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	matchID     int
	outcome     string
	teamA       int
	teamB       int
	round       int
	results     string
	interactive bool
	force       bool
	judge       int
	points      map[string]string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Record match results",
		Long: `Record match results one at a time, from a results file, or interactively.

Results file lines are either "Round MatchID RoleAID RoleBID Outcome" or
"MatchID Outcome"; '#' starts a comment. Use --results - to read from stdin.
Outcome is A (role A wins) or N (role B wins).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.matchID, "match", 0, "match id")
	cmd.Flags().StringVar(&opts.outcome, "outcome", "", "winner side: A or N")
	cmd.Flags().IntVar(&opts.teamA, "team-a", -1, "expected role A participant id")
	cmd.Flags().IntVar(&opts.teamB, "team-b", -1, "expected role B participant id")
	cmd.Flags().IntVar(&opts.round, "round", 0, "expected round (required with --interactive)")
	cmd.Flags().StringVar(&opts.results, "results", "", "results file ('-' for stdin)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for each pending match of --round")
	cmd.Flags().BoolVar(&opts.force, "force", false, "override results that are already recorded")
	cmd.Flags().IntVar(&opts.judge, "judge", -1, "judge id for --match")
	cmd.Flags().StringToStringVar(&opts.points, "points", nil, "speaker points for --match (name=points,...)")
	cmd.MarkFlagsMutuallyExclusive("match", "results", "interactive")

	return cmd
}

func runReport(rootOpts *RootOptions, opts *reportOptions, cmd *cobra.Command) error {
	switch {
	case opts.results != "":
		return runReportFile(rootOpts, opts, cmd)
	case opts.interactive:
		if opts.round < 1 {
			return NewExitError(ExitCommandError, "--interactive requires --round")
		}
		return runReportInteractive(rootOpts, opts, cmd)
	case opts.matchID > 0:
		return runReportSingle(rootOpts, opts, cmd)
	default:
		return NewExitError(ExitCommandError, "one of --match, --results or --interactive is required")
	}
}

func (o *reportOptions) input() (services.ReportInput, error) {
	outcome, err := models.ParseOutcome(o.outcome)
	if err != nil {
		return services.ReportInput{}, err
	}
	in := services.ReportInput{MatchID: o.matchID, Outcome: outcome, Override: o.force}
	if o.teamA >= 0 {
		in.RoleAID = &o.teamA
	}
	if o.teamB >= 0 {
		in.RoleBID = &o.teamB
	}
	if o.round > 0 {
		in.Round = &o.round
	}
	if o.judge >= 0 {
		in.JudgeID = &o.judge
	}
	points, err := parseSpeakerPoints(o.points)
	if err != nil {
		return services.ReportInput{}, err
	}
	in.SpeakerPoints = points
	return in, nil
}

func parseSpeakerPoints(raw map[string]string) (models.SpeakerPoints, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	points := make(models.SpeakerPoints, len(raw))
	for name, value := range raw {
		pts, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid speaker points %q for %q", value, name)
		}
		points[strings.TrimSpace(name)] = pts
	}
	return points, points.Validate()
}

func runReportSingle(rootOpts *RootOptions, opts *reportOptions, cmd *cobra.Command) error {
	in, err := opts.input()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid result", err)
	}

	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	outcome, err := rt.service.ReportResult(ctx, in)
	if err != nil {
		return commandError(fmt.Sprintf("failed to record match %d", in.MatchID), err)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(outcome, func(w io.Writer) error {
		return writeOutcome(w, outcome)
	})
}

func writeOutcome(w io.Writer, outcome *services.ReportOutcome) error {
	switch {
	case !outcome.Changed && outcome.DetailsUpdated:
		fmt.Fprintf(w, "Match %d already recorded as %s, judge details updated\n", outcome.Match.ID, outcome.Match.Result.Token())
	case !outcome.Changed:
		fmt.Fprintf(w, "Match %d already recorded as %s\n", outcome.Match.ID, outcome.Match.Result.Token())
	case outcome.Overridden:
		fmt.Fprintf(w, "Match %d overridden: %s\n", outcome.Match.ID, outcome.Match.Result.Token())
	default:
		fmt.Fprintf(w, "Match %d recorded: %s\n", outcome.Match.ID, outcome.Match.Result.Token())
	}
	for _, r := range outcome.CompletedRounds {
		fmt.Fprintf(w, "Round %d complete\n", r)
	}
	_, err := fmt.Fprintf(w, "Current round: %d\n", outcome.CurrentRound)
	return err
}

func runReportFile(rootOpts *RootOptions, opts *reportOptions, cmd *cobra.Command) error {
	var src io.Reader = cmd.InOrStdin()
	if opts.results != "-" {
		f, err := os.Open(opts.results)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open results file", err)
		}
		defer f.Close()
		src = f
	}

	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.service.ReportBatch(ctx, src, opts.force)
	if err != nil {
		return commandError("failed to process results file", err)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Emit(report, func(w io.Writer) error {
		fmt.Fprintf(w, "Processed %d lines: %d applied, %d unchanged, %d rejected\n",
			report.Processed, report.Applied, report.Unchanged, len(report.Diagnostics))
		for _, d := range report.Diagnostics {
			fmt.Fprintf(w, "  line %d [%s]: %s\n", d.Line, d.Category, d.Message)
		}
		for _, r := range report.CompletedRounds {
			fmt.Fprintf(w, "Round %d complete\n", r)
		}
		_, err := fmt.Fprintf(w, "Current round: %d\n", report.CurrentRound)
		return err
	}); err != nil {
		return err
	}

	if report.HasErrors() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d result lines rejected", len(report.Diagnostics)))
	}
	return nil
}

func runReportInteractive(rootOpts *RootOptions, opts *reportOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	pending, err := rt.service.PendingMatches(ctx, opts.round)
	if err != nil {
		return commandError(fmt.Sprintf("failed to list round %d", opts.round), err)
	}
	state, err := rt.service.State(ctx)
	if err != nil {
		return commandError("failed to load tournament", err)
	}

	w := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintf(w, "Round %d has no pending matches\n", opts.round)
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	recorded := 0
	for _, m := range pending {
		for {
			fmt.Fprintf(w, "%s\nWinner [A/N, s = skip, q = quit]: ", describeMatch(state, m))
			if !scanner.Scan() {
				fmt.Fprintln(w)
				return finishInteractive(w, recorded, scanner.Err())
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if answer == "q" {
				return finishInteractive(w, recorded, nil)
			}
			if answer == "s" {
				break
			}
			outcome, err := models.ParseOutcome(answer)
			if err != nil {
				fmt.Fprintln(w, err)
				continue
			}
			round := opts.round
			result, err := rt.service.ReportResult(ctx, services.ReportInput{
				MatchID: m.ID, Round: &round, Outcome: outcome, Override: opts.force,
			})
			if err != nil {
				fmt.Fprintf(w, "rejected: %v\n", err)
				break
			}
			recorded++
			for _, r := range result.CompletedRounds {
				fmt.Fprintf(w, "Round %d complete\n", r)
			}
			break
		}
	}
	return finishInteractive(w, recorded, nil)
}

func finishInteractive(w io.Writer, recorded int, err error) error {
	fmt.Fprintf(w, "Recorded %d results\n", recorded)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read input", err)
	}
	return nil
}
