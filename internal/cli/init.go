package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crewdeck/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the workspace database",
		Long: `Create the workspace database at --db if it does not exist, or apply
any missing schema to an existing one. Safe to run repeatedly.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			s, err := store.Open(rootOpts.DB)
			if err != nil {
				return WrapExitError(ExitCommandError, "initialize database", err)
			}
			defer s.Close()

			formatter.VerboseLog("database ready at %s", rootOpts.DB)
			return formatter.Success(fmt.Sprintf("initialized %s", rootOpts.DB))
		},
	}
}
