package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/engine"
)

func drawingCmd() *cobra.Command {
	d := &cobra.Command{Use: "drawing", Short: "Inspect drawings"}
	var taskID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List drawings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListDrawings(ctx, owner(), taskID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Task", "Updated"})
				for _, it := range items {
					task := ""
					if it.TaskID != nil {
						task = *it.TaskID
					}
					tw.AppendRow(table.Row{it.ID, it.Name, task, it.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&taskID, "task", "", "only drawings attached to this task")

	var out string
	render := &cobra.Command{
		Use:   "render <id>",
		Short: "Regenerate the PNG preview and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				png, err := e.RenderDrawing(ctx, owner(), args[0])
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = args[0] + ".png"
				}
				if err := os.WriteFile(path, png, 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", path)
				return nil
			})
		},
	}
	render.Flags().StringVarP(&out, "out", "o", "", "output file (default <id>.png)")
	d.AddCommand(list, render)
	return d
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys for X-Api-Key auth"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a key; the secret is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, err := e.CreateAPIKey(ctx, owner(), name)
				if err != nil {
					return err
				}
				return printJSONOrTable(key)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "label")
	list := &cobra.Command{
		Use:   "list",
		Short: "List keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.ListAPIKeys(ctx, owner())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, key := range keys {
					tw.AppendRow(table.Row{key.ID, key.Name, key.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteAPIKey(ctx, owner(), args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	k.AddCommand(create, list, del)
	return k
}
