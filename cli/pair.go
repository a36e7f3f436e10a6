package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/spf13/cobra"
)

// NewPairCommand creates the pair command.
func NewPairCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <round>",
		Short: "Pair the next round",
		Long: `Generate pairings for the given round (1-indexed).

Swiss rounds are paired by score group; rounds after the Swiss stage are seeded
into the elimination bracket. Pairing the latest round again is allowed once,
before any results for it are recorded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := strconv.Atoi(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid round %q", args[0]), err)
			}
			return runPair(rootOpts, round, cmd)
		},
	}
}

func runPair(rootOpts *RootOptions, round int, cmd *cobra.Command) error {
	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.service.PairRound(ctx, round)
	if err != nil {
		return commandError(fmt.Sprintf("failed to pair round %d", round), err)
	}
	state, err := rt.service.State(ctx)
	if err != nil {
		return commandError("failed to load tournament", err)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(result, func(w io.Writer) error {
		header := fmt.Sprintf("Round %d (%s)", result.Round, result.Generator)
		if result.Repaired {
			header += ", re-paired"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, m := range result.Matches {
			if _, err := fmt.Fprintln(w, "  "+describeMatch(state, m)); err != nil {
				return err
			}
		}
		return nil
	})
}

func participantName(state *models.TournamentState, id int) string {
	if p := state.ParticipantByID(id); p != nil {
		return p.DisplayName
	}
	return fmt.Sprintf("#%d", id)
}

// describeMatch: "Match 3: Alpha (A) vs Beta (B)" или "Match 4: Gamma (BYE)".
func describeMatch(state *models.TournamentState, m *models.Match) string {
	if m.IsBye() {
		return fmt.Sprintf("Match %d: %s (BYE)", m.ID, participantName(state, m.RoleAParticipantID))
	}
	line := fmt.Sprintf("Match %d: %s (A) vs %s (B)", m.ID,
		participantName(state, m.RoleAParticipantID), participantName(state, m.RoleBParticipantID))
	if m.Result != nil {
		line += " -> " + m.Result.Token()
	}
	return line
}
