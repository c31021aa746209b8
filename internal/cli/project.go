package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/crewdeck/internal/entity"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and manage projects",
	}
	cmd.AddCommand(newProjectListCommand(rootOpts))
	cmd.AddCommand(newProjectShowCommand(rootOpts))
	cmd.AddCommand(newProjectDeleteCommand(rootOpts))
	return cmd
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all projects with their counters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			env, closeEnv, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer closeEnv()

			docs, err := env.store.All(env.ctx, entity.CollProjects)
			if err != nil {
				return formatter.Fail(err)
			}
			projects := make([]entity.Project, 0, len(docs))
			for _, doc := range docs {
				var p entity.Project
				if err := entity.Decode(doc, &p); err != nil {
					return formatter.Fail(err)
				}
				projects = append(projects, p)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(projects)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tTASKS\tPROGRESS")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d%%\n",
					p.ID, p.Name, p.Status, p.CompletedTasks, p.TotalTasks, p.Progress)
			}
			return w.Flush()
		},
	}
}

func newProjectShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <project-id>",
		Short:         "Show one project with its tasks",
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

			doc, err := env.store.Get(env.ctx, entity.CollProjects, args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			var project entity.Project
			if err := entity.Decode(doc, &project); err != nil {
				return formatter.Fail(err)
			}

			taskDocs, err := env.store.Find(env.ctx, entity.CollTasks, "projectId", project.ID)
			if err != nil {
				return formatter.Fail(err)
			}
			tasks := make([]entity.Task, 0, len(taskDocs))
			for _, td := range taskDocs {
				var task entity.Task
				if err := entity.Decode(td, &task); err != nil {
					return formatter.Fail(err)
				}
				tasks = append(tasks, task)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]any{"project": project, "tasks": tasks})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", project.Name, project.ID)
			fmt.Fprintf(out, "status: %s  progress: %d%%  tasks: %d/%d\n",
				project.Status, project.Progress, project.CompletedTasks, project.TotalTasks)
			if len(tasks) > 0 {
				fmt.Fprintln(out, strings.Repeat("-", 40))
				for _, task := range tasks {
					fmt.Fprintf(out, "  [%3d%%] %-12s %s (%s)\n", task.Progress, task.Status, task.Name, task.ID)
				}
			}
			return nil
		},
	}
}

func newProjectDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <project-id>",
		Short:         "Delete a project (tasks are kept)",
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

			if err := env.roster.DeleteProject(env.ctx, args[0]); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(fmt.Sprintf("deleted project %s", args[0]))
		},
	}
}
