package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/repo"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks live in one of three columns: backlog, in-progress, completed. Priority is low, medium or high; due dates are RFC3339.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskToggleCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(boardCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var nl string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Example: `  tb task create --title "Write report" --priority high --tag work
  tb task create --nl "call the dentist tomorrow, urgent"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OwnerID = owner()
			if cmd.Flags().Changed("nl") {
				opts.NaturalLanguage = &nl
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "backlog, in-progress or completed")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium or high (inferred when omitted)")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date, RFC3339")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&nl, "nl", "", "derive missing fields from free text")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	var tags string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.OwnerID = owner()
			if strings.TrimSpace(tags) != "" {
				f.Tags = domain.NormalizeTags(strings.Split(tags, ","))
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags; any match")
	cmd.Flags().StringVar(&f.Search, "search", "", "substring of title or description")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func renderTasks(tasks []domain.Task) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Due", "Tags"})
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = *t.DueDate
		}
		tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, due, strings.Join(t.Tags, ",")})
	}
	tw.Render()
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, owner(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, due string
	var tags []string
	var clearTags bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields; unspecified flags are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				OwnerID:     owner(),
				ID:          args[0],
				Title:       optionalString(cmd, "title", title),
				Description: optionalString(cmd, "description", description),
				Status:      optionalString(cmd, "status", status),
				Priority:    optionalString(cmd, "priority", priority),
				DueDate:     optionalString(cmd, "due", due),
			}
			switch {
			case clearTags:
				empty := []string{}
				opts.Tags = &empty
			case cmd.Flags().Changed("tag"):
				opts.Tags = &tags
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				if res.CalendarError != "" {
					fmt.Fprintln(os.Stderr, "warning: calendar sync failed:", res.CalendarError)
				}
				return printJSONOrTable(res.Task)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&due, "due", "", `due date, RFC3339 ("" clears it)`)
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "replace tags (repeatable)")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "remove all tags")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.MoveTask(ctx, owner(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Complete a task, or reopen a completed one into backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ToggleComplete(ctx, owner(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and its drawings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteTask(ctx, owner(), args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by column",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.Board(ctx, owner())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Column", "Count", "Titles"})
				for _, col := range []struct {
					name  string
					tasks []domain.Task
				}{
					{domain.StatusBacklog, b.Backlog},
					{domain.StatusInProgress, b.InProgress},
					{domain.StatusCompleted, b.Completed},
					{"overdue", b.Overdue},
				} {
					titles := make([]string, 0, len(col.tasks))
					for _, t := range col.tasks {
						titles = append(titles, t.Title)
					}
					tw.AppendRow(table.Row{col.name, len(col.tasks), strings.Join(titles, "\n")})
				}
				tw.Render()
				return nil
			})
		},
	}
}
