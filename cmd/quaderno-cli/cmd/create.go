package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"quaderno/internal/application/commands"
)

var newCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a page",
	Long: `Create an empty page with the given title. Titles are unique per user.

Examples:
  quaderno-cli new Groceries
  quaderno-cli new "Reading list"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return createPage(cmd.Context(), commands.NewCreatePageCommand(GetWorkspace().Store, cfg.User, args[0]))
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Create or open today's journal page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createPage(cmd.Context(), commands.NewJournalCommand(GetWorkspace().Store, cfg.User, nil))
	},
}

func createPage(ctx context.Context, c *commands.CreatePageCommand) error {
	result, err := c.Execute(ctx)
	if err != nil {
		return err
	}
	if !result.Existed {
		if err := GetWorkspace().Loop.Track(ctx, *result.Page); err != nil {
			return err
		}
	}
	fmt.Println(result.Message)
	return nil
}

var renameCmd = &cobra.Command{
	Use:   "rename <title> <new-title>",
	Short: "Rename a page",
	Long: `Rename a page. Formulas on other pages that group lines under the old
title pick up the new one on their next run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := livePage(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := commands.NewRenameCommand(GetWorkspace().Store, p.ID, args[1]).Execute(ctx)
		if err != nil {
			return err
		}
		if err := GetWorkspace().Loop.Reload(ctx, p.ID); err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "rm <title>",
	Aliases: []string{"delete"},
	Short:   "Delete a page",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := livePage(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := commands.NewDeleteCommand(GetWorkspace().Store, p.ID).Execute(ctx)
		if err != nil {
			return err
		}
		if err := GetWorkspace().Loop.Forget(ctx, p.ID); err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
}
