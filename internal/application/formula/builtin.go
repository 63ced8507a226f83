package formula

import (
	"fmt"
	"regexp"
	"strconv"

	"quaderno/internal/domain"
)

var builtinPattern = regexp.MustCompile(`^(find|count|tagged|linked)\((.*)\)$`)

// builtin is a query form answered locally by scanning page lines
type builtin struct {
	name    string
	matcher *regexp.Regexp
}

// parseBuiltin recognizes the local query forms:
//
//	find(<regex>)    lines matching regex
//	count(<regex>)   number of lines matching regex, as text
//	tagged(<tag>)    lines carrying #tag
//	linked(<page>)   lines linking to [[page]]
func parseBuiltin(query string) (*builtin, bool, error) {
	m := builtinPattern.FindStringSubmatch(query)
	if m == nil {
		return nil, false, nil
	}
	name, arg := m[1], m[2]

	var expr string
	switch name {
	case "find", "count":
		expr = arg
	case "tagged":
		expr = `(^|\s)#` + regexp.QuoteMeta(arg) + `\b`
	case "linked":
		expr = regexp.QuoteMeta(domain.GroupHeading(arg))
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, true, fmt.Errorf("%s: invalid pattern %q: %w", name, arg, err)
	}
	return &builtin{name: name, matcher: re}, true, nil
}

// IsBuiltin reports whether query is answered without the external resolver
func IsBuiltin(query string) bool {
	_, ok, _ := parseBuiltin(query)
	return ok
}

func (b *builtin) run(pages []domain.Page) *domain.FormulaResult {
	matches := scan(pages, b.matcher)
	if b.name == "count" {
		return &domain.FormulaResult{Kind: domain.ResultText, Text: strconv.Itoa(len(matches))}
	}
	return &domain.FormulaResult{Kind: domain.ResultNodes, Nodes: matches}
}

// scan returns every source line matching re. Formula lines and the lines
// they materialized are skipped so a formula never matches its own output.
func scan(pages []domain.Page, re *regexp.Regexp) []domain.NodeMarkdown {
	var out []domain.NodeMarkdown
	for _, p := range pages {
		if p.Deleted {
			continue
		}
		doc := domain.ParseDocument(p.Value)
		line := -1
		doc.Walk(func(id domain.NodeID, _ int) bool {
			line++
			n, _ := doc.Node(id)
			switch n.Kind {
			case domain.KindListItem, domain.KindText:
			default:
				return true
			}
			if n.Text == "" || !re.MatchString(n.Text) {
				return true
			}
			out = append(out, domain.NodeMarkdown{
				NodeMarkdown: doc.LineContent(id),
				PageName:     p.Title,
				LineNumber:   line,
			})
			return true
		})
	}
	domain.SortNodeMarkdown(out)
	return out
}
