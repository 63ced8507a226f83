package domain

import (
	"regexp"
	"slices"
	"strings"
)

const (
	indentUnit   = "  "
	bulletPrefix = "- "
)

var (
	formulaLinePattern = regexp.MustCompile(`^=(.*?)(?:\s*\{result:\s*(.*)\})?$`)
	pageGroupPattern   = regexp.MustCompile(`^\[\[([^\]]+)\]\]$`)
)

// ParseDocument builds an outline from a serialized page value. Every line
// becomes exactly one node, so line numbers survive a round trip.
func ParseDocument(value string) *Document {
	d := NewDocument()
	// stack[i] is the last node seen at depth i+1
	var stack []NodeID

	for _, raw := range SplitLines(value) {
		level := indentLevel(raw)
		if level > len(stack) {
			level = len(stack)
		}
		stack = stack[:level]

		parent := d.root
		if level > 0 {
			parent = stack[level-1]
		}

		kind, text, result := classifyLine(StripIndent(raw))
		kind = refineKind(d, parent, kind, text)

		id := d.Append(parent, kind, text)
		d.nodes[id].Result = result
		stack = append(stack, id)
	}
	return d
}

func indentLevel(line string) int {
	level, spaces := 0, 0
	for _, r := range line {
		switch r {
		case '\t':
			level++
			spaces = 0
		case ' ':
			spaces++
			if spaces == len(indentUnit) {
				level++
				spaces = 0
			}
		default:
			return level
		}
	}
	return level
}

func classifyLine(content string) (NodeKind, string, string) {
	if !strings.HasPrefix(content, bulletPrefix) && content != "-" {
		return KindText, content, ""
	}
	text := strings.TrimPrefix(strings.TrimPrefix(content, "-"), " ")
	if m := formulaLinePattern.FindStringSubmatch(text); m != nil {
		return KindFormulaDisplay, strings.TrimSpace(m[1]), m[2]
	}
	return KindListItem, text, ""
}

// refineKind applies the kinds that depend on position: page groups live
// directly under formulas and everything under a page group is materialized.
func refineKind(d *Document, parent NodeID, kind NodeKind, text string) NodeKind {
	if kind != KindListItem {
		return kind
	}
	p := d.nodes[parent]
	switch p.Kind {
	case KindFormulaDisplay, KindFormulaEditor:
		if pageGroupPattern.MatchString(text) {
			return KindPageGroup
		}
	case KindPageGroup, KindMaterialized:
		return KindMaterialized
	}
	return kind
}

// GroupPageName returns the page named by a page-group heading
func GroupPageName(text string) string {
	if m := pageGroupPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// GroupHeading formats the heading text for a source page group
func GroupHeading(pageName string) string {
	return "[[" + pageName + "]]"
}

// FormatFormula renders a formula line content (no indentation, no bullet)
func FormatFormula(formula, result string) string {
	if result == "" {
		return "=" + formula
	}
	return "=" + formula + " {result: " + result + "}"
}

// ParseFormula extracts the formula and cached result from line content.
// The bullet prefix is optional.
func ParseFormula(content string) (formula, result string, ok bool) {
	m := formulaLinePattern.FindStringSubmatch(BulletText(content))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), m[2], true
}

// LineContent renders a node's line without indentation
func (d *Document) LineContent(id NodeID) string {
	n, ok := d.nodes[id]
	if !ok {
		return ""
	}
	switch n.Kind {
	case KindRoot:
		return ""
	case KindText:
		return n.Text
	case KindFormulaDisplay:
		return bulletPrefix + FormatFormula(n.Text, n.Result)
	case KindFormulaEditor:
		return bulletPrefix + FormatFormula(n.Text, "")
	case KindListItem, KindPageGroup, KindMaterialized:
		return bulletPrefix + n.Text
	default:
		return n.Text
	}
}

// Markdown serializes the document back to a page value
func (d *Document) Markdown() string {
	lines := make([]string, 0, d.Len())
	d.Walk(func(id NodeID, depth int) bool {
		lines = append(lines, strings.Repeat(indentUnit, depth-1)+d.LineContent(id))
		return true
	})
	return JoinLines(lines)
}

// BulletText strips the bullet from line content, if present
func BulletText(content string) string {
	content = StripIndent(content)
	if content == "-" {
		return ""
	}
	return strings.TrimPrefix(content, bulletPrefix)
}

// SetText replaces a node's text
func (d *Document) SetText(id NodeID, text string) bool {
	n, ok := d.nodes[id]
	if !ok || id == d.root {
		return false
	}
	n.Text = text
	return true
}

// SetKind changes a node's kind
func (d *Document) SetKind(id NodeID, kind NodeKind) bool {
	n, ok := d.nodes[id]
	if !ok || id == d.root {
		return false
	}
	n.Kind = kind
	return true
}

// SetResult caches a formula answer on a formula node
func (d *Document) SetResult(id NodeID, result string) bool {
	n, ok := d.nodes[id]
	if !ok || !n.Kind.IsFormula() {
		return false
	}
	n.Result = result
	return true
}

// Formulas returns every formula node in document order
func (d *Document) Formulas() []NodeID {
	var out []NodeID
	d.Walk(func(id NodeID, _ int) bool {
		if d.nodes[id].Kind.IsFormula() {
			out = append(out, id)
		}
		return true
	})
	return out
}

// ReplaceChildren drops every child of id, returning the destroyed nodes
func (d *Document) ReplaceChildren(id NodeID) []*Node {
	var destroyed []*Node
	for _, c := range slices.Clone(d.Children(id)) {
		destroyed = append(destroyed, d.Delete(c).Destroyed...)
	}
	return destroyed
}

// Materialize rewrites the children of a formula node as page groups,
// one per source page sorted by name, holding the given results.
func (d *Document) Materialize(formula NodeID, results []NodeMarkdown) []*Node {
	destroyed := d.ReplaceChildren(formula)

	sorted := make([]NodeMarkdown, len(results))
	copy(sorted, results)
	SortNodeMarkdown(sorted)

	group, current := NoNode, ""
	for _, r := range sorted {
		if group == NoNode || r.PageName != current {
			group = d.Append(formula, KindPageGroup, GroupHeading(r.PageName))
			current = r.PageName
		}
		id := d.Append(group, KindMaterialized, BulletText(r.NodeMarkdown))
		src := r
		d.nodes[id].Source = &src
	}
	return destroyed
}

// BindSources attaches provenance to the materialized lines under a formula
// by zipping each page group with that page's results in line order.
func (d *Document) BindSources(formula NodeID, results []NodeMarkdown) {
	byPage := make(map[string][]NodeMarkdown)
	for _, r := range results {
		byPage[r.PageName] = append(byPage[r.PageName], r)
	}
	for _, group := range d.Children(formula) {
		g := d.nodes[group]
		if g.Kind != KindPageGroup {
			continue
		}
		rs := byPage[GroupPageName(g.Text)]
		SortNodeMarkdown(rs)
		for i, c := range d.Children(group) {
			if i >= len(rs) {
				break
			}
			src := rs[i]
			d.nodes[c].Source = &src
		}
	}
}
