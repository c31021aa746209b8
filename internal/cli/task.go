package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/crewdeck/internal/engine"
	"github.com/roach88/crewdeck/internal/entity"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and mutate tasks",
	}
	cmd.AddCommand(newTaskCreateCommand(rootOpts))
	cmd.AddCommand(newTaskUpdateCommand(rootOpts))
	cmd.AddCommand(newTaskCompleteCommand(rootOpts))
	cmd.AddCommand(newTaskToggleCommand(rootOpts))
	cmd.AddCommand(newTaskDeleteCommand(rootOpts))
	cmd.AddCommand(newTaskListCommand(rootOpts))
	cmd.AddCommand(newTaskShowCommand(rootOpts))
	return cmd
}

func newTaskCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		projectID string
		assignee  string
		priority  string
		subtasks  []string
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a task with subtasks",
		Long: `Create a task in a project. At least one --subtask is required; a task
always carries its checklist.`,
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

			inputs := make([]engine.SubtaskInput, len(subtasks))
			for i, label := range subtasks {
				inputs[i] = engine.SubtaskInput{Label: label}
			}
			id, err := env.engine.CreateTask(env.ctx, engine.CreateTaskInput{
				ProjectID:  projectID,
				Name:       args[0],
				AssigneeID: assignee,
				Priority:   priority,
				Subtasks:   inputs,
			})
			if err != nil {
				return formatter.Fail(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]any{"taskId": id})
			}
			return formatter.Success(fmt.Sprintf("created task %s", id))
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id (required)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&priority, "priority", "", "task priority")
	cmd.Flags().StringArrayVar(&subtasks, "subtask", nil, "subtask label (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTaskUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
		Long: `Update task fields. Only flags that were set are applied; an explicit
empty --assignee unassigns the task.`,
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

			var patch engine.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				v, _ := flags.GetString("name")
				patch.Name = &v
			}
			if flags.Changed("status") {
				v, _ := flags.GetString("status")
				patch.Status = &v
			}
			if flags.Changed("assignee") {
				v, _ := flags.GetString("assignee")
				patch.AssigneeID = &v
			}
			if flags.Changed("priority") {
				v, _ := flags.GetString("priority")
				patch.Priority = &v
			}
			if flags.Changed("description") {
				v, _ := flags.GetString("description")
				patch.Description = &v
			}

			if err := env.engine.UpdateTask(env.ctx, engine.UpdateTaskInput{
				TaskID: args[0],
				Fields: patch,
			}); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(fmt.Sprintf("updated task %s", args[0]))
		},
	}
	cmd.Flags().String("name", "", "new task name")
	cmd.Flags().String("status", "", "new task status")
	cmd.Flags().String("assignee", "", "new assignee user id (empty unassigns)")
	cmd.Flags().String("priority", "", "new task priority")
	cmd.Flags().String("description", "", "new task description")
	return cmd
}

func newTaskCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "complete <task-id>",
		Short:         "Mark a task completed",
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

			status := entity.StatusCompleted
			if err := env.engine.UpdateTask(env.ctx, engine.UpdateTaskInput{
				TaskID: args[0],
				Fields: engine.TaskPatch{Status: &status},
			}); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(fmt.Sprintf("completed task %s", args[0]))
		},
	}
}

func newTaskToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "toggle <task-id> <subtask-id>",
		Short:         "Toggle one subtask between todo and completed",
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

			if err := env.engine.UpdateTask(env.ctx, engine.UpdateTaskInput{
				TaskID:          args[0],
				ToggleSubtaskID: args[1],
			}); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(fmt.Sprintf("toggled subtask %s", args[1]))
		},
	}
}

func newTaskDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <task-id>...",
		Short:         "Delete one or more tasks with their subtasks",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			env, closeEnv, err := openEnv(rootOpts)
			if err != nil {
				return err
			}
			defer closeEnv()

			if len(args) == 1 {
				if err := env.engine.DeleteTask(env.ctx, args[0]); err != nil {
					return formatter.Fail(err)
				}
				return formatter.Success(fmt.Sprintf("deleted task %s", args[0]))
			}

			res, err := env.engine.BulkDeleteTasks(env.ctx, args)
			if err != nil {
				return formatter.Fail(err)
			}
			if rootOpts.Format == "json" {
				if err := formatter.Success(res); err != nil {
					return err
				}
			} else {
				formatter.VerboseLog("bulk delete: %d processed, %d failed", res.ProcessedCount, len(res.Errors))
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d tasks\n", res.ProcessedCount, len(args))
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", e.TaskID, e.Error)
				}
			}
			if !res.Success {
				return NewExitError(ExitFailure, fmt.Sprintf("%d tasks failed", len(res.Errors)))
			}
			return nil
		},
	}
}

func newTaskListCommand(rootOpts *RootOptions) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List tasks in a project",
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

			docs, err := env.store.Find(env.ctx, entity.CollTasks, "projectId", projectID)
			if err != nil {
				return formatter.Fail(err)
			}
			tasks := make([]entity.Task, 0, len(docs))
			for _, doc := range docs {
				var task entity.Task
				if err := entity.Decode(doc, &task); err != nil {
					return formatter.Fail(err)
				}
				tasks = append(tasks, task)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(tasks)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tASSIGNEE\tPROGRESS")
			for _, task := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\n",
					task.ID, task.Name, task.Status, task.AssigneeID, task.Progress)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTaskShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <task-id>",
		Short:         "Show a task with its subtasks",
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

			doc, err := env.store.Get(env.ctx, entity.CollTasks, args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			var task entity.Task
			if err := entity.Decode(doc, &task); err != nil {
				return formatter.Fail(err)
			}
			subtasks, err := env.engine.Subtasks(env.ctx, task.ID)
			if err != nil {
				return formatter.Fail(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]any{"task": task, "subtasks": subtasks})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", task.Name, task.ID)
			fmt.Fprintf(out, "status: %s  progress: %d%%\n", task.Status, task.Progress)
			for _, st := range subtasks {
				mark := " "
				if st.Status == entity.StatusCompleted {
					mark = "x"
				}
				fmt.Fprintf(out, "  [%s] %s (%s)\n", mark, st.Label, st.ID)
			}
			return nil
		},
	}
}
