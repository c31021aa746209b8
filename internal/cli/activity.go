package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewActivityCommand creates the activity command.
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	var byUser bool
	cmd := &cobra.Command{
		Use:   "activity <target-id>",
		Short: "Show the activity feed for an entity or a user",
		Long: `Show activity records, newest first. By default the argument is a
target entity id; with --user it is the attributed user id.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			env, closeEnv, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer closeEnv()

			list := env.activity.ListByTarget
			if byUser {
				list = env.activity.ListByUser
			}
			feed, err := list(env.ctx, args[0])
			if err != nil {
				return formatter.Fail(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(feed)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tACTOR\tACTION\tDESCRIPTION")
			for _, rec := range feed {
				when := time.UnixMilli(rec.CreationTime).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", when, rec.UserID, rec.ActionType, rec.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&byUser, "user", false, "treat the argument as a user id")
	return cmd
}
