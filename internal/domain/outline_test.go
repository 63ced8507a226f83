package domain

import (
	"testing"
)

const sampleOutline = `- alpha
  - beta
  - gamma
    - delta
- epsilon`

func lineID(t *testing.T, d *Document, n int) NodeID {
	t.Helper()
	id, ok := d.NodeAtLine(n)
	if !ok {
		t.Fatalf("no node at line %d", n)
	}
	return id
}

func TestCanIndentAndOutdent(t *testing.T) {
	d := ParseDocument(sampleOutline)

	tests := []struct {
		name        string
		line        int
		wantIndent  bool
		wantOutdent bool
	}{
		{name: "first top-level item", line: 0, wantIndent: false, wantOutdent: false},
		{name: "first nested child", line: 1, wantIndent: false, wantOutdent: true},
		{name: "second nested child", line: 2, wantIndent: true, wantOutdent: true},
		{name: "deep only child", line: 3, wantIndent: false, wantOutdent: true},
		{name: "second top-level item", line: 4, wantIndent: true, wantOutdent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := lineID(t, d, tt.line)
			if got := d.CanIndent(id); got != tt.wantIndent {
				t.Errorf("CanIndent() = %v, want %v", got, tt.wantIndent)
			}
			if got := d.CanOutdent(id); got != tt.wantOutdent {
				t.Errorf("CanOutdent() = %v, want %v", got, tt.wantOutdent)
			}
		})
	}
}

func TestIndent(t *testing.T) {
	t.Run("first child is a no-op", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		res := d.Indent(lineID(t, d, 1))
		if !res.Handled || res.Changed {
			t.Errorf("expected handled no-op, got %+v", res)
		}
		if got := d.Markdown(); got != sampleOutline {
			t.Errorf("document changed:\n%s", got)
		}
	})

	t.Run("moves whole subtree one level deeper", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		res := d.Indent(lineID(t, d, 2))
		if !res.Changed {
			t.Fatalf("expected change")
		}
		want := `- alpha
  - beta
    - gamma
      - delta
- epsilon`
		if got := d.Markdown(); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("top-level item nests under previous sibling", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		d.Indent(lineID(t, d, 4))
		want := `- alpha
  - beta
  - gamma
    - delta
  - epsilon`
		if got := d.Markdown(); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})
}

func TestOutdent(t *testing.T) {
	t.Run("top-level item is a no-op", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		res := d.Outdent(lineID(t, d, 0))
		if !res.Handled || res.Changed {
			t.Errorf("expected handled no-op, got %+v", res)
		}
		if got := d.Markdown(); got != sampleOutline {
			t.Errorf("document changed:\n%s", got)
		}
	})

	t.Run("following siblings become children", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		d.Outdent(lineID(t, d, 1))
		want := `- alpha
- beta
  - gamma
    - delta
- epsilon`
		if got := d.Markdown(); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("indent then outdent restores the document", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		id := lineID(t, d, 2)
		d.Indent(id)
		d.Outdent(id)
		if got := d.Markdown(); got != sampleOutline {
			t.Errorf("got:\n%s", got)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes subtree and selects end of previous sibling", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		beta := lineID(t, d, 1)
		res := d.Delete(lineID(t, d, 2))
		if len(res.Destroyed) != 2 {
			t.Errorf("expected 2 destroyed nodes, got %d", len(res.Destroyed))
		}
		if res.Selection != beta {
			t.Errorf("expected selection on beta, got %d", res.Selection)
		}
		want := `- alpha
  - beta
- epsilon`
		if got := d.Markdown(); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("first child selects parent", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		alpha := lineID(t, d, 0)
		res := d.Delete(lineID(t, d, 1))
		if res.Selection != alpha {
			t.Errorf("expected selection on alpha, got %d", res.Selection)
		}
	})

	t.Run("sole child leaves no empty container", func(t *testing.T) {
		d := ParseDocument("- parent\n  - only\n- sibling")
		before := len(d.NestedList().Items)

		d.Delete(lineID(t, d, 1))

		list := d.NestedList()
		if got := len(list.Items); got != before-1 {
			t.Errorf("expected %d top-level entries, got %d", before-1, got)
		}
		for _, item := range list.Items {
			if item.Placeholder && (item.Nested == nil || len(item.Nested.Items) == 0) {
				t.Errorf("found empty children container")
			}
		}
		if got := d.Markdown(); got != "- parent\n- sibling" {
			t.Errorf("got:\n%s", got)
		}
	})

	t.Run("root is not deletable", func(t *testing.T) {
		d := ParseDocument(sampleOutline)
		res := d.Delete(d.Root())
		if res.Changed {
			t.Errorf("root delete reported a change")
		}
	})
}

func TestPrependChild(t *testing.T) {
	tests := []struct {
		name string
		line int
		want string
	}{
		{
			name: "item without children",
			line: 4,
			want: "- alpha\n  - beta\n  - gamma\n    - delta\n- epsilon\n  - ",
		},
		{
			name: "item with children",
			line: 0,
			want: "- alpha\n  - \n  - beta\n  - gamma\n    - delta\n- epsilon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDocument(sampleOutline)
			res := d.PrependChild(lineID(t, d, tt.line))
			if res.Created == NoNode || res.Selection != res.Created {
				t.Errorf("expected created node to be selected, got %+v", res)
			}
			if got := d.Markdown(); got != tt.want {
				t.Errorf("got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestMoveIsReserved(t *testing.T) {
	d := ParseDocument(sampleOutline)
	for _, res := range []EditResult{d.MoveUp(lineID(t, d, 2)), d.MoveDown(lineID(t, d, 1))} {
		if !res.Handled || res.Changed {
			t.Errorf("expected handled no-op, got %+v", res)
		}
	}
	if got := d.Markdown(); got != sampleOutline {
		t.Errorf("document changed:\n%s", got)
	}
}

func TestNestedListEncoding(t *testing.T) {
	d := ParseDocument(sampleOutline)
	list := d.NestedList()

	// alpha, placeholder(beta, gamma, placeholder(delta)), epsilon
	if len(list.Items) != 3 {
		t.Fatalf("expected 3 top-level entries, got %d", len(list.Items))
	}
	wrapper := list.Items[1]
	if !wrapper.Placeholder || wrapper.Nested == nil {
		t.Fatalf("expected placeholder after alpha")
	}
	if len(wrapper.Nested.Items) != 3 {
		t.Errorf("expected 3 nested entries, got %d", len(wrapper.Nested.Items))
	}
}
