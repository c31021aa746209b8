package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crewdeck/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Import a YAML fixture into the workspace",
		Long: `Validate a fixture file against the seed schema and import it through
the regular mutation surface. Seeded entities get real counters, stamps,
and activity records, exactly as if created interactively.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			fixture, err := seed.Load(args[0])
			if err != nil {
				return formatter.Fail(err)
			}

			env, closeEnv, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer closeEnv()

			res, err := seed.NewImporter(env.roster, env.engine).Import(env.ctx, fixture)
			if err != nil {
				return formatter.Fail(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(res)
			}
			return formatter.Success(fmt.Sprintf(
				"imported %d companies, %d users, %d teams, %d projects, %d tasks",
				len(res.Companies), len(res.Users), len(res.Teams), len(res.Projects), len(res.TaskIDs),
			))
		},
	}
}
