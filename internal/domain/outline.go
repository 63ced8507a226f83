package domain

import "slices"

// NodeID addresses a node inside a Document. IDs are never reused.
type NodeID int

// NoNode is the zero NodeID; it never addresses a live node
const NoNode NodeID = 0

// NodeKind tags what a line in an outline is
type NodeKind int

const (
	KindRoot NodeKind = iota
	KindListItem
	KindText
	KindFormulaDisplay
	KindFormulaEditor
	KindPageGroup
	KindMaterialized
)

// String returns a human-readable representation of the kind
func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindListItem:
		return "list-item"
	case KindText:
		return "text"
	case KindFormulaDisplay:
		return "formula"
	case KindFormulaEditor:
		return "formula-editor"
	case KindPageGroup:
		return "page-group"
	case KindMaterialized:
		return "materialized"
	default:
		return "unknown"
	}
}

// IsFormula reports whether the kind is a formula in either mode
func (k NodeKind) IsFormula() bool {
	return k == KindFormulaDisplay || k == KindFormulaEditor
}

// Node is one line of an outline
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Text     string // content without indentation and bullet
	Result   string // cached formula answer, formula kinds only
	Parent   NodeID
	Children []NodeID
	Source   *NodeMarkdown // provenance, materialized kind only
}

// Document is an arena of outline nodes with explicit child lists
type Document struct {
	nodes  map[NodeID]*Node
	root   NodeID
	nextID NodeID
}

// NewDocument creates an empty document holding only the root
func NewDocument() *Document {
	d := &Document{nodes: make(map[NodeID]*Node)}
	d.root = d.alloc(KindRoot, "", NoNode)
	return d
}

func (d *Document) alloc(kind NodeKind, text string, parent NodeID) NodeID {
	d.nextID++
	d.nodes[d.nextID] = &Node{ID: d.nextID, Kind: kind, Text: text, Parent: parent}
	return d.nextID
}

// Root returns the root node ID
func (d *Document) Root() NodeID {
	return d.root
}

// Node returns the node for id
func (d *Document) Node(id NodeID) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Len returns the number of lines (every node except the root)
func (d *Document) Len() int {
	return len(d.nodes) - 1
}

// Children returns the ordered child IDs of id
func (d *Document) Children(id NodeID) []NodeID {
	if n, ok := d.nodes[id]; ok {
		return n.Children
	}
	return nil
}

// Parent returns the parent of id, NoNode for the root
func (d *Document) Parent(id NodeID) NodeID {
	if n, ok := d.nodes[id]; ok {
		return n.Parent
	}
	return NoNode
}

// Append adds a new node as the last child of parent
func (d *Document) Append(parent NodeID, kind NodeKind, text string) NodeID {
	return d.InsertAt(parent, len(d.Children(parent)), kind, text)
}

// InsertAt adds a new node at position index among parent's children
func (d *Document) InsertAt(parent NodeID, index int, kind NodeKind, text string) NodeID {
	p, ok := d.nodes[parent]
	if !ok {
		return NoNode
	}
	index = max(0, min(index, len(p.Children)))
	id := d.alloc(kind, text, parent)
	p.Children = slices.Insert(p.Children, index, id)
	return id
}

// Depth returns the nesting depth of id; top-level items are depth 1
func (d *Document) Depth(id NodeID) int {
	depth := 0
	for cur := id; cur != d.root && cur != NoNode; cur = d.Parent(cur) {
		depth++
	}
	return depth
}

// Walk visits every line in document order. Returning false stops the walk.
func (d *Document) Walk(fn func(id NodeID, depth int) bool) {
	d.walk(d.root, 0, fn)
}

func (d *Document) walk(id NodeID, depth int, fn func(NodeID, int) bool) bool {
	for _, c := range d.Children(id) {
		if !fn(c, depth+1) {
			return false
		}
		if !d.walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// Order returns all line node IDs in document order
func (d *Document) Order() []NodeID {
	out := make([]NodeID, 0, d.Len())
	d.Walk(func(id NodeID, _ int) bool {
		out = append(out, id)
		return true
	})
	return out
}

// LineOf returns the 0-based line number of id, or -1
func (d *Document) LineOf(id NodeID) int {
	line, found := -1, -1
	d.Walk(func(cur NodeID, _ int) bool {
		line++
		if cur == id {
			found = line
			return false
		}
		return true
	})
	return found
}

// NodeAtLine returns the node on line n
func (d *Document) NodeAtLine(n int) (NodeID, bool) {
	order := d.Order()
	if n < 0 || n >= len(order) {
		return NoNode, false
	}
	return order[n], true
}

// Descendants returns every node below id in document order, not including id
func (d *Document) Descendants(id NodeID) []NodeID {
	var out []NodeID
	var collect func(NodeID)
	collect = func(cur NodeID) {
		for _, c := range d.Children(cur) {
			out = append(out, c)
			collect(c)
		}
	}
	collect(id)
	return out
}

// Ancestor returns the nearest ancestor of id with the given kind
func (d *Document) Ancestor(id NodeID, kind NodeKind) (NodeID, bool) {
	for cur := d.Parent(id); cur != NoNode; cur = d.Parent(cur) {
		if n := d.nodes[cur]; n.Kind == kind {
			return cur, true
		}
	}
	return NoNode, false
}

func (d *Document) indexInParent(id NodeID) int {
	return slices.Index(d.Children(d.Parent(id)), id)
}

func (d *Document) isLine(id NodeID) bool {
	_, ok := d.nodes[id]
	return ok && id != d.root
}

// EditResult describes the outcome of a structural edit. Illegal edits are
// handled but leave Changed false; callers must not assume state moved.
type EditResult struct {
	Handled   bool
	Changed   bool
	Destroyed []*Node // removed nodes, subtree included
	Created   NodeID
	Selection NodeID // where the cursor should land, NoNode if unchanged
}

// CanIndent reports whether id has a previous sibling to nest under
func (d *Document) CanIndent(id NodeID) bool {
	return d.isLine(id) && d.indexInParent(id) > 0
}

// CanOutdent reports whether id is nested inside another item
func (d *Document) CanOutdent(id NodeID) bool {
	return d.isLine(id) && d.Parent(id) != d.root
}

// Indent nests id (with its whole subtree) under its previous sibling.
// Line order is unchanged and every subtree line gains one level.
func (d *Document) Indent(id NodeID) EditResult {
	if !d.CanIndent(id) {
		return EditResult{Handled: true}
	}
	parent := d.nodes[d.Parent(id)]
	idx := slices.Index(parent.Children, id)
	prev := d.nodes[parent.Children[idx-1]]

	parent.Children = slices.Delete(parent.Children, idx, idx+1)
	prev.Children = append(prev.Children, id)
	d.nodes[id].Parent = prev.ID

	return EditResult{Handled: true, Changed: true, Selection: id}
}

// Outdent lifts id (with its whole subtree) to sit right after its parent.
// Siblings that followed id become its trailing children so that line
// order is unchanged.
func (d *Document) Outdent(id NodeID) EditResult {
	if !d.CanOutdent(id) {
		return EditResult{Handled: true}
	}
	node := d.nodes[id]
	parent := d.nodes[node.Parent]
	grand := d.nodes[parent.Parent]

	idx := slices.Index(parent.Children, id)
	following := slices.Clone(parent.Children[idx+1:])
	parent.Children = parent.Children[:idx]

	for _, f := range following {
		d.nodes[f].Parent = id
	}
	node.Children = append(node.Children, following...)

	pidx := slices.Index(grand.Children, parent.ID)
	grand.Children = slices.Insert(grand.Children, pidx+1, id)
	node.Parent = grand.ID

	return EditResult{Handled: true, Changed: true, Selection: id}
}

// Delete removes id and its subtree. The selection moves to the end of the
// previous sibling, falling back to the parent.
func (d *Document) Delete(id NodeID) EditResult {
	if !d.isLine(id) {
		return EditResult{Handled: true}
	}
	// collect before unlinking; the subtree is unreachable afterwards
	doomed := append([]NodeID{id}, d.Descendants(id)...)

	parent := d.nodes[d.Parent(id)]
	idx := slices.Index(parent.Children, id)
	selection := parent.ID
	if idx > 0 {
		selection = d.lastDescendant(parent.Children[idx-1])
	}
	if selection == d.root {
		selection = NoNode
	}
	parent.Children = slices.Delete(parent.Children, idx, idx+1)

	destroyed := make([]*Node, 0, len(doomed))
	for _, n := range doomed {
		destroyed = append(destroyed, d.nodes[n])
		delete(d.nodes, n)
	}

	return EditResult{Handled: true, Changed: true, Destroyed: destroyed, Selection: selection}
}

func (d *Document) lastDescendant(id NodeID) NodeID {
	for {
		children := d.Children(id)
		if len(children) == 0 {
			return id
		}
		id = children[len(children)-1]
	}
}

// PrependChild inserts an empty list item as the first child of id
func (d *Document) PrependChild(id NodeID) EditResult {
	if !d.isLine(id) {
		return EditResult{Handled: true}
	}
	created := d.InsertAt(id, 0, KindListItem, "")
	return EditResult{Handled: true, Changed: true, Created: created, Selection: created}
}

// MoveUp is reserved. It never changes the document.
func (d *Document) MoveUp(id NodeID) EditResult {
	return EditResult{Handled: true}
}

// MoveDown is reserved. It never changes the document.
func (d *Document) MoveDown(id NodeID) EditResult {
	return EditResult{Handled: true}
}

// ListNode is a list container in the nested-list encoding, where an
// item's children live in a list held by a placeholder item that is the
// item's next sibling.
type ListNode struct {
	Items []ListItem
}

// ListItem is an entry of a ListNode. Placeholder items carry no line and
// only wrap the nested list of the preceding item.
type ListItem struct {
	ID          NodeID
	Placeholder bool
	Nested      *ListNode
}

// NestedList projects the document into the nested-list encoding. Items
// without children produce no placeholder, so the projection never holds
// an empty children container.
func (d *Document) NestedList() *ListNode {
	return d.nestedList(d.root)
}

func (d *Document) nestedList(id NodeID) *ListNode {
	list := &ListNode{}
	for _, c := range d.Children(id) {
		list.Items = append(list.Items, ListItem{ID: c})
		if len(d.Children(c)) > 0 {
			list.Items = append(list.Items, ListItem{Placeholder: true, Nested: d.nestedList(c)})
		}
	}
	return list
}
