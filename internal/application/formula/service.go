package formula

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// maxConcurrentRuns bounds resolver calls within one invalidation batch
const maxConcurrentRuns = 8

// Job is one query execution over a snapshot of pages
type Job struct {
	Query string
	Pages []domain.Page
	// Restrict names the pages the run was limited to; nil means every page
	Restrict []string
}

// Full reports whether the job ran over the whole corpus
func (j Job) Full() bool {
	return j.Restrict == nil
}

// Outcome is the result of a Job. Result is nil when the formula is unresolved.
type Outcome struct {
	Job    Job
	Result *domain.FormulaResult
	Err    error
}

// Service executes formulas against the page corpus
type Service struct {
	resolver ports.QueryResolver
	logger   *slog.Logger
}

// NewService creates a Service. resolver may be nil, in which case only the
// built-in forms resolve.
func NewService(resolver ports.QueryResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: resolver, logger: logger}
}

// Run executes query over pages without touching any shared state
func (s *Service) Run(ctx context.Context, query string, pages []domain.Page) (*domain.FormulaResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	b, ok, err := parseBuiltin(query)
	if err != nil {
		return nil, err
	}
	if ok {
		return b.run(pages), nil
	}

	if s.resolver == nil {
		return nil, nil
	}
	res, err := s.resolver.Resolve(ctx, query, pages)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", query, err)
	}
	return res, nil
}

// GetFormulaResults runs query and, for node results, merges them into nodes
// under the query's provenance
func (s *Service) GetFormulaResults(ctx context.Context, query string, pages []domain.Page, nodes domain.SharedNodeMap) (*domain.FormulaResult, error) {
	res, err := s.Run(ctx, query, pages)
	if err != nil || res == nil {
		return res, err
	}
	if res.Kind == domain.ResultNodes {
		domain.MergeResults(res.Nodes, query, nodes)
	}
	return res, nil
}

// RunJobs executes jobs concurrently. A failing job never cancels the
// others; its error is reported in its Outcome.
func (s *Service) RunJobs(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRuns)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := s.Run(gctx, job.Query, job.Pages)
			if err != nil {
				s.logger.Warn("formula unresolved", "query", job.Query, "error", err)
			}
			outcomes[i] = Outcome{Job: job, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// UpdatePagesResults re-runs every query that produced a node on one of the
// changed pages, restricted to those pages, and merges the fresh results.
// Queries with no node on a changed page are not re-run.
//
// It is the one-shot form for a caller that owns nodes outright. The
// reconcile engine builds the same restricted jobs itself and merges them
// through Engine.ApplyResults, which keeps pending node edits that a plain
// merge would overwrite.
func (s *Service) UpdatePagesResults(ctx context.Context, changed []string, pages []domain.Page, nodes domain.SharedNodeMap) []Outcome {
	queries := Invalidate(changed, nodes)
	if len(queries) == 0 {
		return nil
	}

	restricted := Restrict(pages, changed)
	jobs := make([]Job, 0, len(queries))
	for _, q := range queries {
		jobs = append(jobs, Job{Query: q, Pages: restricted, Restrict: slices.Clone(changed)})
	}

	outcomes := s.RunJobs(ctx, jobs)
	MergeOutcomes(outcomes, nodes)
	return outcomes
}

// Invalidate deletes every entry whose page is in changed and returns the
// deduplicated queries those entries carried, sorted
func Invalidate(changed []string, nodes domain.SharedNodeMap) []string {
	set := make(map[string]bool, len(changed))
	for _, name := range changed {
		set[name] = true
	}

	seen := make(map[string]bool)
	var queries []string
	for key, n := range nodes {
		if !set[n.Output.PageName] {
			continue
		}
		for _, q := range n.Queries {
			if !seen[q] {
				seen[q] = true
				queries = append(queries, q)
			}
		}
		delete(nodes, key)
	}
	slices.Sort(queries)
	return queries
}

// Restrict returns the pages whose title is in names
func Restrict(pages []domain.Page, names []string) []domain.Page {
	out := make([]domain.Page, 0, len(names))
	for _, p := range pages {
		if slices.Contains(names, p.Title) {
			out = append(out, p)
		}
	}
	return out
}

// MergeOutcomes folds every node result into nodes in a single pass
func MergeOutcomes(outcomes []Outcome, nodes domain.SharedNodeMap) {
	for _, o := range outcomes {
		if o.Result != nil && o.Result.Kind == domain.ResultNodes {
			domain.MergeResults(o.Result.Nodes, o.Job.Query, nodes)
		}
	}
}
