package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quaderno/internal/application/commands"
)

var (
	journalsOnly bool
	pagesOnly    bool
)

var pagesCmd = &cobra.Command{
	Use:     "pages",
	Aliases: []string{"ls"},
	Short:   "List pages",
	Long: `List the user's pages by title.

Examples:
  quaderno-cli pages
  quaderno-cli pages --journals`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := commands.ListAll
		switch {
		case journalsOnly && pagesOnly:
			return fmt.Errorf("--journals and --pages are exclusive")
		case journalsOnly:
			filter = commands.ListJournals
		case pagesOnly:
			filter = commands.ListPages
		}

		pages, err := commands.NewListPagesCommand(GetWorkspace().Store, cfg.User, filter).Execute(cmd.Context())
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Println("No pages.")
			return nil
		}
		for _, p := range pages {
			kind := "page"
			if p.IsJournal {
				kind = "journal"
			}
			fmt.Printf("%-40s %-8s rev %d\n", p.Title, kind, p.RevisionNumber)
		}
		return nil
	},
}

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show <title>",
	Short: "Print a page with line numbers",
	Long: `Print a page. Line numbers are the ones set-line and op expect.

Examples:
  quaderno-cli show Groceries
  quaderno-cli show Groceries --raw > groceries.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := livePage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if showRaw {
			fmt.Println(p.Value)
			return nil
		}

		fmt.Printf("# %s (rev %d, %s)\n", p.Title, p.RevisionNumber, p.Status)
		for i, line := range p.Lines() {
			fmt.Printf("%3d  %s\n", i, strings.TrimRight(line, " "))
		}
		return nil
	},
}

func init() {
	pagesCmd.Flags().BoolVar(&journalsOnly, "journals", false, "only journal pages")
	pagesCmd.Flags().BoolVar(&pagesOnly, "pages", false, "only titled pages")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print the stored markdown unchanged")

	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(showCmd)
}
