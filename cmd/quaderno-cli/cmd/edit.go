package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quaderno/internal/adapters/editor"
	"quaderno/internal/application/reconcile"
)

var setLineCmd = &cobra.Command{
	Use:   "set-line <title> <line> <content>",
	Short: "Replace one line of a page",
	Long: `Replace one line of a page. Line numbers start at 0, as printed by show.
The line keeps its indentation; use op to move it in or out.

Editing a line listed under a formula changes the page it came from.

Examples:
  quaderno-cli set-line Groceries 0 "- oat milk"
  quaderno-cli set-line Todo 0 "- =find(TODO)"`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := livePage(ctx, args[0])
		if err != nil {
			return err
		}
		line, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid line number %q", args[1])
		}
		content := strings.Join(args[2:], " ")

		if err := GetWorkspace().Loop.SetLine(ctx, p.ID, line, content); err != nil {
			return err
		}
		fmt.Printf("Updated %s:%d\n", p.Title, line)
		return nil
	},
}

var opCmd = &cobra.Command{
	Use:   "op <title> <indent|outdent|delete|prepend-child> <line>",
	Short: "Apply an outline edit to a line",
	Long: `Apply a structural edit to one line of a page.

  indent         nest the line under its previous sibling
  outdent        move the line up one level
  delete         remove the line and its children
  prepend-child  insert an empty first child under the line

Examples:
  quaderno-cli op Groceries indent 2
  quaderno-cli op Groceries prepend-child 0`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := livePage(ctx, args[0])
		if err != nil {
			return err
		}
		op, err := reconcile.ParseEditOp(args[1])
		if err != nil {
			return err
		}
		line, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid line number %q", args[2])
		}

		if err := GetWorkspace().Loop.ApplyEdit(ctx, p.ID, op, line); err != nil {
			return err
		}
		fmt.Printf("Applied %s to %s:%d\n", op, p.Title, line)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <title>",
	Short: "Edit a whole page in $EDITOR",
	Long: `Open the page in your editor and save what you write back as one edit.
The editor comes from the config file, then $EDITOR, then $VISUAL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := livePage(ctx, args[0])
		if err != nil {
			return err
		}

		value, err := editor.EditText(editor.NewOpener(cfg.Editor), p.Title, p.Value)
		if err != nil {
			return err
		}
		if value == p.Value {
			fmt.Println("No changes.")
			return nil
		}
		if err := GetWorkspace().Loop.EditPage(ctx, p.ID, value); err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", p.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setLineCmd)
	rootCmd.AddCommand(opCmd)
	rootCmd.AddCommand(editCmd)
}
