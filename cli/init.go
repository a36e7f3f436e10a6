package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Dosada05/swiss-tournament/services"
	"github.com/spf13/cobra"
)

type initOptions struct {
	name       string
	elim       int
	namesFile  string
	rosterFile string
	force      bool
	noTieBreak bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init [participants] [preliminary-rounds]",
		Short: "Create a new tournament",
		Long: `Create a new tournament with the given number of participants and Swiss rounds.

Participants may instead come from a YAML roster (--roster), which also carries
names, seeds and round counts.`,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "tournament name")
	cmd.Flags().IntVar(&opts.elim, "elim", 0, "number of single-elimination rounds after the Swiss stage")
	cmd.Flags().StringVar(&opts.namesFile, "names", "", "file with one participant name per line")
	cmd.Flags().StringVar(&opts.rosterFile, "roster", "", "YAML roster file")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing tournament")
	cmd.Flags().BoolVar(&opts.noTieBreak, "no-tiebreak", false, "pair without Buchholz tie-break ordering")
	cmd.MarkFlagsMutuallyExclusive("names", "roster")

	return cmd
}

func buildInitInput(opts *initOptions, args []string, useTieBreak bool) (services.InitInput, error) {
	input := services.InitInput{
		Name:                 opts.name,
		NumEliminationRounds: opts.elim,
		UseTieBreak:          useTieBreak && !opts.noTieBreak,
		Force:                opts.force,
	}

	if opts.rosterFile != "" {
		roster, err := LoadRoster(opts.rosterFile)
		if err != nil {
			return input, WrapExitError(ExitCommandError, "invalid roster", err)
		}
		input.NumParticipants = len(roster.Participants)
		input.NumPreliminaryRounds = roster.Rounds
		input.Names = roster.Names()
		input.SeedRanks = roster.SeedRanks()
		if input.Name == "" {
			input.Name = roster.Name
		}
		if input.NumEliminationRounds == 0 {
			input.NumEliminationRounds = roster.EliminationRounds
		}
		if roster.TieBreak != nil && !*roster.TieBreak {
			input.UseTieBreak = false
		}
	} else if len(args) < 2 {
		return input, NewExitError(ExitCommandError, "participants and preliminary-rounds are required without --roster")
	}

	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return input, WrapExitError(ExitCommandError, fmt.Sprintf("invalid participant count %q", args[0]), err)
		}
		input.NumParticipants = n
	}
	if len(args) == 2 {
		rounds, err := strconv.Atoi(args[1])
		if err != nil {
			return input, WrapExitError(ExitCommandError, fmt.Sprintf("invalid round count %q", args[1]), err)
		}
		input.NumPreliminaryRounds = rounds
	}

	if opts.namesFile != "" {
		names, err := ReadNames(opts.namesFile)
		if err != nil {
			return input, WrapExitError(ExitCommandError, "invalid names file", err)
		}
		input.Names = names
	}
	return input, nil
}

func runInit(rootOpts *RootOptions, opts *initOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	input, err := buildInitInput(opts, args, rt.cfg.UseTieBreak)
	if err != nil {
		return err
	}

	state, err := rt.service.Init(ctx, input)
	if err != nil {
		return commandError("failed to initialize tournament", err)
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return out.Emit(state, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Initialized %q: %d participants, %d Swiss rounds, %d elimination rounds\n",
			state.Name, state.Config.NumParticipants, state.Config.NumPreliminaryRounds, state.Config.NumEliminationRounds)
		return err
	})
}
