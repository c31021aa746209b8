package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crewdeck/internal/comments"
)

// NewCommentCommand creates the comment command group.
func NewCommentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on entities and react to comments",
	}
	cmd.AddCommand(newCommentAddCommand(rootOpts))
	cmd.AddCommand(newCommentListCommand(rootOpts))
	cmd.AddCommand(newCommentReactCommand(rootOpts))
	return cmd
}

func newCommentAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		targetType string
		parentID   string
		mentions   []string
	)
	cmd := &cobra.Command{
		Use:   "add <target-id> <body>",
		Short: "Add a comment to an entity",
		Long: `Add a comment to any entity. Body text is scanned for @name mentions;
tokens matching a user name resolve to that user. Pass --mention to add
ids the text does not name.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			env, closeEnv, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer closeEnv()

			id, err := env.comments.Create(env.ctx, comments.CreateInput{
				TargetID:         args[0],
				TargetType:       targetType,
				Body:             args[1],
				ParentID:         parentID,
				MentionedUserIDs: mentions,
			})
			if err != nil {
				return formatter.Fail(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]any{"commentId": id})
			}
			return formatter.Success(fmt.Sprintf("created comment %s", id))
		},
	}
	cmd.Flags().StringVar(&targetType, "type", "task", "target entity type")
	cmd.Flags().StringVar(&parentID, "reply-to", "", "parent comment id for a reply")
	cmd.Flags().StringArrayVar(&mentions, "mention", nil, "extra mentioned user id (repeatable)")
	return cmd
}

func newCommentListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <target-id>",
		Short:         "List comments on an entity in creation order",
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

			list, err := env.comments.ListByTarget(env.ctx, args[0])
			if err != nil {
				return formatter.Fail(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(list)
			}

			out := cmd.OutOrStdout()
			for _, c := range list {
				fmt.Fprintf(out, "%s  %s: %s\n", c.ID, c.AuthorID, c.Body)
				for kind, users := range c.Reactions {
					fmt.Fprintf(out, "    %s x%d\n", kind, len(users))
				}
			}
			return nil
		},
	}
}

func newCommentReactCommand(rootOpts *RootOptions) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:           "react <comment-id> <kind>",
		Short:         "Add or remove a reaction on a comment",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			env, closeEnv, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer closeEnv()

			if remove {
				if err := env.comments.RemoveReaction(env.ctx, args[0], args[1]); err != nil {
					return formatter.Fail(err)
				}
				return formatter.Success(fmt.Sprintf("removed %s from %s", args[1], args[0]))
			}
			if err := env.comments.AddReaction(env.ctx, args[0], args[1]); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(fmt.Sprintf("reacted %s to %s", args[1], args[0]))
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the reaction instead of adding it")
	return cmd
}
