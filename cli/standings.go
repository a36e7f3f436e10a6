package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewStandingsCommand creates the standings command.
func NewStandingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "standings",
		Short:         "Show current standings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStandings(rootOpts, cmd)
		},
	}
}

func runStandings(rootOpts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	standings, err := rt.service.Standings(ctx)
	if err != nil {
		return commandError("failed to compute standings", err)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(standings, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tID\tName\tScore\tBuchholz\tW\tL\tBye\tA/B")
		for _, s := range standings {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%g\t%g\t%d\t%d\t%d\t%d/%d\n",
				s.Rank, s.ParticipantID, s.DisplayName, s.Score, s.TieBreakScore,
				s.Wins, s.Losses, s.Byes, s.RoleACount, s.RoleBCount)
		}
		return tw.Flush()
	})
}
