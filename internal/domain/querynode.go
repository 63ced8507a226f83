package domain

import (
	"fmt"
	"slices"
	"sort"
)

// NodeMarkdown is one line of a source page matched by a query
type NodeMarkdown struct {
	NodeMarkdown string `json:"nodeMarkdown"` // line content without indentation, e.g. "- TODO buy milk"
	PageName     string `json:"pageName"`
	LineNumber   int    `json:"lineNumber"`
}

// Key returns the shared node key for this line
func (n NodeMarkdown) Key() string {
	return NodeKey(n.PageName, n.LineNumber)
}

// NodeKey builds the "<pageName>-<lineNumber>" key
func NodeKey(pageName string, lineNumber int) string {
	return fmt.Sprintf("%s-%d", pageName, lineNumber)
}

// QueryNode is a materialized query result plus its provenance
type QueryNode struct {
	Output          NodeMarkdown
	Queries         []string // set semantics, kept sorted
	NeedsSyncToPage bool
}

// HasQuery reports whether query produced this node
func (q *QueryNode) HasQuery(query string) bool {
	_, found := slices.BinarySearch(q.Queries, query)
	return found
}

// AddQuery adds query to the provenance set. Adding twice is a no-op.
func (q *QueryNode) AddQuery(query string) {
	i, found := slices.BinarySearch(q.Queries, query)
	if found {
		return
	}
	q.Queries = slices.Insert(q.Queries, i, query)
}

// RemoveQuery drops query from the provenance set
func (q *QueryNode) RemoveQuery(query string) {
	if i, found := slices.BinarySearch(q.Queries, query); found {
		q.Queries = slices.Delete(q.Queries, i, i+1)
	}
}

// SharedNodeMap maps node keys to materialized results
type SharedNodeMap map[string]*QueryNode

// MergeResults folds a query's results into m. Existing entries gain the
// query and take the new output; missing entries are inserted. Nothing is
// ever removed here.
func MergeResults(results []NodeMarkdown, query string, m SharedNodeMap) {
	for _, r := range results {
		key := r.Key()
		if existing, ok := m[key]; ok {
			existing.AddQuery(query)
			existing.Output = r
			continue
		}
		m[key] = &QueryNode{
			Output:  r,
			Queries: []string{query},
		}
	}
}

// Clone returns a deep copy of the map
func (m SharedNodeMap) Clone() SharedNodeMap {
	out := make(SharedNodeMap, len(m))
	for k, v := range m {
		c := *v
		c.Queries = slices.Clone(v.Queries)
		out[k] = &c
	}
	return out
}

// Keys returns all keys in a stable order
func (m SharedNodeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForQuery returns the outputs produced by query, ordered by page name then line
func (m SharedNodeMap) ForQuery(query string) []NodeMarkdown {
	var out []NodeMarkdown
	for _, n := range m {
		if n.HasQuery(query) {
			out = append(out, n.Output)
		}
	}
	SortNodeMarkdown(out)
	return out
}

// SortNodeMarkdown orders results by page name, then line number
func SortNodeMarkdown(nodes []NodeMarkdown) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].PageName != nodes[j].PageName {
			return nodes[i].PageName < nodes[j].PageName
		}
		return nodes[i].LineNumber < nodes[j].LineNumber
	})
}

// QueryCounter counts live consumers per query string
type QueryCounter map[string]int

// Increment registers a mounted formula for query
func (c QueryCounter) Increment(query string) int {
	c[query]++
	return c[query]
}

// Decrement unregisters a formula. The count never goes below zero.
func (c QueryCounter) Decrement(query string) int {
	if c[query] <= 1 {
		delete(c, query)
		return 0
	}
	c[query]--
	return c[query]
}

// Count returns the live consumer count for query
func (c QueryCounter) Count(query string) int {
	return c[query]
}

// ResultKind discriminates formula results
type ResultKind int

const (
	ResultText ResultKind = iota
	ResultNodes
)

func (k ResultKind) String() string {
	switch k {
	case ResultText:
		return "text"
	case ResultNodes:
		return "nodes"
	default:
		return "unknown"
	}
}

// FormulaResult is the resolved output of a formula
type FormulaResult struct {
	Kind  ResultKind
	Text  string
	Nodes []NodeMarkdown
}
