package claudecli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quaderno/internal/domain"
)

var corpus = []domain.Page{
	{ID: "1", Title: "Groceries", Value: "- milk\n- eggs\n  - free range"},
	{ID: "2", Title: "Books", Value: "- Dune\n- Solaris"},
	{ID: "3", Title: "Gone", Value: "- old", Deleted: true},
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name      string
		result    string
		wantNil   bool
		wantKind  domain.ResultKind
		wantText  string
		wantNodes []string // keys
		wantErr   bool
	}{
		{
			name:     "text answer",
			result:   `{"kind": "text", "text": "3"}`,
			wantKind: domain.ResultText,
			wantText: "3",
		},
		{
			name:     "multi-line text is folded",
			result:   "{\"kind\": \"text\", \"text\": \"two\\nbooks\"}",
			wantKind: domain.ResultText,
			wantText: "two books",
		},
		{
			name:      "nodes answer in code block",
			result:    "```json\n{\"kind\": \"nodes\", \"nodes\": [{\"page\": \"Groceries\", \"line\": 2}, {\"page\": \"Books\", \"line\": 0}]}\n```",
			wantKind:  domain.ResultNodes,
			wantNodes: []string{"Books-0", "Groceries-2"},
		},
		{
			name:      "unknown pages, deleted pages and bad lines are dropped",
			result:    `{"kind": "nodes", "nodes": [{"page": "Nope", "line": 0}, {"page": "Gone", "line": 0}, {"page": "Books", "line": 9}, {"page": "Books", "line": 1}, {"page": "Books", "line": 1}]}`,
			wantKind:  domain.ResultNodes,
			wantNodes: []string{"Books-1"},
		},
		{
			name:    "none is unresolved",
			result:  `Sorry. {"kind": "none"}`,
			wantNil: true,
		},
		{
			name:    "blank text is unresolved",
			result:  `{"kind": "text", "text": "  "}`,
			wantNil: true,
		},
		{
			name:    "no JSON",
			result:  "I don't know",
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			result:  `{"kind": }`,
			wantErr: true,
		},
		{
			name:    "unknown kind",
			result:  `{"kind": "table"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseAnswer(tt.result, corpus)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if res != nil {
					t.Errorf("expected unresolved, got %+v", res)
				}
				return
			}
			if res.Kind != tt.wantKind || res.Text != tt.wantText {
				t.Errorf("got %+v", res)
			}
			var keys []string
			for _, n := range res.Nodes {
				keys = append(keys, n.Key())
			}
			if strings.Join(keys, ",") != strings.Join(tt.wantNodes, ",") {
				t.Errorf("nodes = %v, want %v", keys, tt.wantNodes)
			}
		})
	}
}

func TestParseAnswer_NodeTextComesFromPage(t *testing.T) {
	res, err := parseAnswer(`{"kind": "nodes", "nodes": [{"page": "Groceries", "line": 2}]}`, corpus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Nodes[0].NodeMarkdown; got != "- free range" {
		t.Errorf("expected unindented page line, got %q", got)
	}
}

func TestResolver_Resolve(t *testing.T) {
	var gotArgs []string
	r := NewResolver(WithModel("sonnet"))
	r.run = func(_ context.Context, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte(`{"type":"result","is_error":false,"result":"{\"kind\":\"text\",\"text\":\"2\"}"}`), nil
	}

	res, err := r.Resolve(context.Background(), "how many books", corpus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "2" {
		t.Errorf("unexpected result: %+v", res)
	}
	if gotArgs[len(gotArgs)-1] != "sonnet" {
		t.Errorf("expected model flag, got %v", gotArgs)
	}
	prompt := gotArgs[1]
	for _, want := range []string{`"how many books"`, "### Page: Books", "1: - Solaris"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Gone") {
		t.Errorf("prompt includes a deleted page")
	}
}

func TestResolver_Errors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
	}{
		{name: "cli failure", err: errors.New("claude CLI error: not logged in")},
		{name: "error response", output: `{"is_error": true, "result": "rate limited"}`},
		{name: "garbage", output: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.run = func(context.Context, ...string) ([]byte, error) {
				return []byte(tt.output), tt.err
			}
			if _, err := r.Resolve(context.Background(), "anything", corpus); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildPrompt_CapsLines(t *testing.T) {
	prompt := buildPrompt("x", corpus, 2)
	if strings.Contains(prompt, "2: ") || strings.Contains(prompt, "Books") {
		t.Errorf("expected only two lines, got:\n%s", prompt)
	}
}
