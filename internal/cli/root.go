// Package cli implements the crewdeck admin command line. Commands open
// the workspace database directly and drive the same mutation services
// the application uses, so everything they do leaves a regular activity
// trail.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crewdeck/internal/activity"
	"github.com/roach88/crewdeck/internal/comments"
	"github.com/roach88/crewdeck/internal/engine"
	"github.com/roach88/crewdeck/internal/identity"
	"github.com/roach88/crewdeck/internal/roster"
	"github.com/roach88/crewdeck/internal/store"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	DB      string
	Format  string // "json" | "text"
	Verbose bool
	Actor   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the crewdeck root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crewdeck",
		Short: "crewdeck - project and task workspace administration",
		Long:  "Administer a crewdeck workspace: seed data, manage projects and tasks, and inspect the activity feed.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "crewdeck.db", "path to the workspace database")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "user id mutations are attributed to")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewCommentCommand(opts))
	cmd.AddCommand(NewActivityCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// appEnv bundles the opened store and the services commands run against.
type appEnv struct {
	store    *store.Store
	engine   *engine.Engine
	comments *comments.Service
	roster   *roster.Service
	activity *activity.Writer
	ctx      context.Context
}

// openEnv opens the workspace database and wires the mutation services.
// The returned close func must be called when the command finishes.
func openEnv(opts *RootOptions) (*appEnv, func(), error) {
	s, err := store.Open(opts.DB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open database", err)
	}

	resolver := identity.Static{UserID: opts.Actor}
	acts := activity.NewWriter(s)

	env := &appEnv{
		store:    s,
		engine:   engine.New(s, acts, resolver),
		comments: comments.New(s, acts, resolver),
		roster:   roster.New(s, acts, resolver),
		activity: acts,
		ctx:      context.Background(),
	}
	return env, func() { s.Close() }, nil
}
