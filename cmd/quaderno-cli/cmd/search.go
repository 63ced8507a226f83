package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"quaderno/internal/application/commands"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search page titles and lines",
	Long: `Fuzzy search page titles and lines. Each page is listed once, with its
best matching line.

Examples:
  quaderno-cli search milk
  quaderno-cli search "todo buy"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if len(query) < 2 {
			return fmt.Errorf("query must be at least two characters")
		}

		results, err := commands.NewSearchCommand(GetWorkspace().Store, cfg.User, query).Execute(cmd.Context())
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		if searchLimit > 0 && len(results) > searchLimit {
			results = results[:searchLimit]
		}
		for _, r := range results {
			if r.Line < 0 {
				fmt.Println(r.Title)
				continue
			}
			fmt.Printf("%s:%d  %s\n", r.Title, r.Line, r.Text)
		}
		return nil
	},
}

var formulaCmd = &cobra.Command{
	Use:   "formula <query>",
	Short: "Answer a formula without adding it to a page",
	Long: `Run a formula over every page and print its answer.

Builtin forms are find(regex), count(regex), tagged(tag) and linked(page).
Anything else is answered by the Claude CLI when it is installed.

Examples:
  quaderno-cli formula 'find(TODO)'
  quaderno-cli formula 'count(milk)'
  quaderno-cli formula 'which books did I finish this year?'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.TrimPrefix(strings.TrimSpace(strings.Join(args, " ")), "=")
		if query == "" {
			return fmt.Errorf("formula is required")
		}

		var (
			pages []domain.Page
			nodes domain.SharedNodeMap
		)
		if err := GetWorkspace().Loop.Inspect(ctx, func(e *reconcile.Engine) {
			pages = e.Pages()
			nodes = e.Nodes()
		}); err != nil {
			return err
		}

		// Nodes is a copy, so the live index is untouched
		res, err := GetWorkspace().Formulas.GetFormulaResults(ctx, query, pages, nodes)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res, query, nodes)
		return nil
	},
}

// printResult prints a formula answer. Lines already listed under other
// formulas name them.
func printResult(w io.Writer, res *domain.FormulaResult, query string, nodes domain.SharedNodeMap) {
	switch {
	case res == nil:
		fmt.Fprintln(w, "No answer.")
	case res.Kind == domain.ResultText:
		fmt.Fprintln(w, res.Text)
	case len(res.Nodes) == 0:
		fmt.Fprintln(w, "No matching lines.")
	default:
		for _, r := range res.Nodes {
			fmt.Fprintf(w, "%s:%d  %s", r.PageName, r.LineNumber, r.NodeMarkdown)
			if n, ok := nodes[r.Key()]; ok {
				var others []string
				for _, q := range n.Queries {
					if q != query {
						others = append(others, "="+q)
					}
				}
				if len(others) > 0 {
					fmt.Fprintf(w, "  (also under %s)", strings.Join(others, ", "))
				}
			}
			fmt.Fprintln(w)
		}
	}
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results, 0 for all")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(formulaCmd)
}
