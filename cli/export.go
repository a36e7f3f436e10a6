package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

type exportOptions struct {
	output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export results and pairings files",
		Long: `Write the results file and the pairings file that reinit accepts.

With -o results.txt the pairings go to results_pairings.txt next to it.
Without -o the results file is written to stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "results file path")
	return cmd
}

// PairingsPath: results.txt -> results_pairings.txt.
func PairingsPath(resultsPath string) string {
	ext := filepath.Ext(resultsPath)
	return strings.TrimSuffix(resultsPath, ext) + "_pairings" + ext
}

func runExport(rootOpts *RootOptions, opts *exportOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	rt, err := rootOpts.newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.output == "" {
		if err := rt.service.Export(ctx, cmd.OutOrStdout(), nil); err != nil {
			return commandError("failed to export results", err)
		}
		return nil
	}

	results, err := os.Create(opts.output)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create results file", err)
	}
	defer results.Close()

	pairingsPath := PairingsPath(opts.output)
	pairings, err := os.Create(pairingsPath)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create pairings file", err)
	}
	defer pairings.Close()

	if err := rt.service.Export(ctx, results, pairings); err != nil {
		return commandError("failed to export tournament", err)
	}
	if err := results.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to write results file", err)
	}
	if err := pairings.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to write pairings file", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\nPairings written to %s\n", opts.output, pairingsPath)
	return nil
}
