package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"quaderno/internal/application/formula"
	"quaderno/internal/domain"
)

func TestPrintResult(t *testing.T) {
	pages := []domain.Page{
		{ID: "p", Title: "P", Value: "- groceries\n- TODO buy milk #errand\n- TODO call bank"},
	}
	shared := domain.NodeMarkdown{NodeMarkdown: "- TODO buy milk #errand", PageName: "P", LineNumber: 1}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "lines name the other formulas listing them", query: "find(milk)", want: []string{"P:1  - TODO buy milk #errand  (also under =tagged(errand))"}},
		{name: "lines only this formula lists", query: "find(bank)", want: []string{"P:2  - TODO call bank\n"}},
		{name: "text answer", query: "count(TODO)", want: []string{"2\n"}},
		{name: "no match", query: "find(zebra)", want: []string{"No matching lines."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := domain.SharedNodeMap{
				shared.Key(): {Output: shared, Queries: []string{"tagged(errand)"}},
			}
			res, err := formula.NewService(nil, nil).GetFormulaResults(context.Background(), tt.query, pages, nodes)
			if err != nil {
				t.Fatalf("GetFormulaResults: %v", err)
			}

			var buf bytes.Buffer
			printResult(&buf, res, tt.query, nodes)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q missing %q", buf.String(), want)
				}
			}
		})
	}
}
