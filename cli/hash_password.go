package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Dosada05/swiss-tournament/utils"
	"github.com/spf13/cobra"
)

// NewHashPasswordCommand creates the hash-password command.
func NewHashPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long: `Print a bcrypt hash of the organizer password for the ADMIN_PASSWORD_HASH
variable. The password is read from stdin when not given as an argument.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					password = scanner.Text()
				}
				if err := scanner.Err(); err != nil {
					return WrapExitError(ExitCommandError, "failed to read password", err)
				}
			}
			password = strings.TrimRight(password, "\r\n")
			if password == "" {
				return NewExitError(ExitCommandError, "password must not be empty")
			}

			hash, err := utils.HashPassword(password)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to hash password", err)
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Emit(map[string]string{"hash": hash}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, hash)
				return err
			})
		},
	}
}
