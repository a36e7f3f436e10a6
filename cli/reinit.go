package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Dosada05/swiss-tournament/services"
	"github.com/spf13/cobra"
)

type reinitOptions struct {
	name       string
	pairings   string
	results    string
	namesFile  string
	rounds     int
	elim       int
	noTieBreak bool
	force      bool
}

// NewReinitCommand creates the reinit command.
func NewReinitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &reinitOptions{}

	cmd := &cobra.Command{
		Use:   "reinit",
		Short: "Rebuild a tournament from exported files",
		Long: `Rebuild tournament state from a pairings file and an optional results file.

Any inconsistency (duplicate match ids, participants that do not match the
pairings, rounds that are not sequential) aborts the rebuild.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReinit(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "tournament name")
	cmd.Flags().StringVar(&opts.pairings, "pairings", "", "pairings file (required)")
	cmd.Flags().StringVar(&opts.results, "results", "", "results file")
	cmd.Flags().StringVar(&opts.namesFile, "names", "", "file with one participant name per line")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 0, "number of Swiss rounds in the pairings file (0 = all rounds)")
	cmd.Flags().IntVar(&opts.elim, "elim", 0, "number of single-elimination rounds")
	cmd.Flags().BoolVar(&opts.noTieBreak, "no-tiebreak", false, "pair without Buchholz tie-break ordering")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing tournament")
	_ = cmd.MarkFlagRequired("pairings")

	return cmd
}

func runReinit(rootOpts *RootOptions, opts *reinitOptions, cmd *cobra.Command) error {
	pairings, err := os.Open(opts.pairings)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open pairings file", err)
	}
	defer pairings.Close()

	input := services.ReinitInput{
		Name:                 opts.name,
		Pairings:             pairings,
		NumPreliminaryRounds: opts.rounds,
		NumEliminationRounds: opts.elim,
		Force:                opts.force,
	}
	if opts.results != "" {
		results, err := os.Open(opts.results)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open results file", err)
		}
		defer results.Close()
		input.Results = results
	}
	if opts.namesFile != "" {
		if input.Names, err = ReadNames(opts.namesFile); err != nil {
			return WrapExitError(ExitCommandError, "invalid names file", err)
		}
	}

	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	input.UseTieBreak = rt.cfg.UseTieBreak && !opts.noTieBreak

	state, err := rt.service.Reinit(ctx, input)
	if err != nil {
		return commandError("failed to rebuild tournament", err)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(state, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Rebuilt %q: %d participants, %d rounds paired, %d matches, current round %d\n",
			state.Name, state.Config.NumParticipants, state.PairedRoundCount(), len(state.ActiveMatches()), state.CurrentRound)
		return err
	})
}
