package reconcile

import (
	"context"
	"slices"
	"time"

	"quaderno/internal/application/formula"
	"quaderno/internal/domain"
)

// maxSyncRounds bounds Sync when materialization keeps shifting lines
const maxSyncRounds = 8

// Report summarizes one reconciliation cycle
type Report struct {
	Jobs        []formula.Job // query runs the caller must execute
	Invalidated []string      // page titles whose entries were re-derived
	WriteBacks  int
	Refreshed   int
	Collisions  int
	Removed     int
	PersistDue  bool // some page entered PendingWrite
}

// Reconcile runs one level-triggered cycle over the full state:
//
//  1. every shared node is compared with the current text of its line
//  2. node edits are written back into pages that are not being typed in
//  3. pages being typed in win; their entries are re-derived and a node
//     edit on the same line is logged as a collision
//  4. a collided node edit is never written back; it stays pending until
//     the node is edited again or its line comes to match it
//  5. edited pages move to PendingWrite
//
// Query runs needed to re-derive entries are returned as jobs.
func (e *Engine) Reconcile(ctx context.Context) Report {
	start := time.Now()
	defer func() {
		cyclesTotal.Inc()
		cycleDuration.Observe(time.Since(start).Seconds())
		sharedNodes.Set(float64(len(e.nodes)))
	}()

	var rep Report
	e.syncMounts()

	for _, key := range e.nodes.Keys() {
		n := e.nodes[key]
		p := e.pageByTitle(n.Output.PageName)
		if p == nil {
			e.dropNode(key)
			rep.Removed++
			nodeActions.WithLabelValues("removed").Inc()
			continue
		}
		line, ok := p.Line(n.Output.LineNumber)
		if !ok {
			e.dropNode(key)
			e.invalid[p.Title] = true
			rep.Removed++
			nodeActions.WithLabelValues("removed").Inc()
			continue
		}

		current := domain.StripIndent(line)
		if current == n.Output.NodeMarkdown {
			n.NeedsSyncToPage = false
			delete(e.collided, key)
			continue
		}

		switch {
		case p.Status == domain.StatusUserEdit:
			e.invalid[p.Title] = true
			nodeActions.WithLabelValues("page_wins").Inc()
			if n.NeedsSyncToPage && !e.collided[key] {
				e.collided[key] = true
				rep.Collisions++
				nodeActions.WithLabelValues("collision").Inc()
				e.logger.Error("shared node edit collides with user edit",
					"key", key, "page", p.Title, "line", n.Output.LineNumber,
					"node", n.Output.NodeMarkdown, "page_line", current)
			}

		case p.Status == domain.StatusConflict:
			// frozen until reload

		case e.collided[key]:
			// the page won; its text stands until the node is edited again

		case n.NeedsSyncToPage:
			value, err := domain.ReplaceLineContent(p.Value, n.Output.LineNumber, n.Output.NodeMarkdown)
			if err != nil {
				e.logger.Error("write-back failed", "key", key, "error", err)
				continue
			}
			if err := p.Transition(domain.StatusEditFromSharedNodes); err != nil {
				e.logger.Error("write-back refused", "key", key, "error", err)
				continue
			}
			p.Value = value
			n.NeedsSyncToPage = false
			e.invalid[p.Title] = true
			e.rematerialize(n)
			rep.WriteBacks++
			nodeActions.WithLabelValues("write_back").Inc()

		default:
			n.Output.NodeMarkdown = current
			e.invalid[p.Title] = true
			e.rematerialize(n)
			rep.Refreshed++
			nodeActions.WithLabelValues("refresh").Inc()
		}
	}

	e.materialize()

	// a page left in PendingWrite by a failed save is retried with the
	// next edit, not on its own
	for _, p := range e.sortedPages() {
		switch p.Status {
		case domain.StatusUserEdit:
			_ = p.Transition(domain.StatusPendingWrite)
			rep.PersistDue = true
		case domain.StatusEditFromSharedNodes:
			if p.Value == e.lastSaved[p.ID] {
				_ = p.Transition(domain.StatusQuiescent)
			} else {
				_ = p.Transition(domain.StatusPendingWrite)
				rep.PersistDue = true
			}
		}
	}

	rep.Jobs, rep.Invalidated = e.takeJobs()
	if rep.WriteBacks+rep.Collisions+rep.Removed > 0 || len(rep.Jobs) > 0 {
		e.logger.Debug("reconcile cycle",
			"write_backs", rep.WriteBacks, "refreshed", rep.Refreshed,
			"collisions", rep.Collisions, "removed", rep.Removed,
			"jobs", len(rep.Jobs), "invalidated", rep.Invalidated)
	}
	return rep
}

func (e *Engine) dropNode(key string) {
	delete(e.nodes, key)
	delete(e.collided, key)
}

func (e *Engine) rematerialize(n *domain.QueryNode) {
	for _, q := range n.Queries {
		e.remat[q] = true
	}
}

// syncMounts derives mounted formulas from the page text and updates the
// query counter with the difference.
func (e *Engine) syncMounts() {
	seen := make(map[string]bool, len(e.pages))
	for id, p := range e.pages {
		seen[id] = true
		var want []string
		if !p.Deleted {
			want = formulaQueries(p.Value)
		}
		added, removed := diffQueries(e.mounts[id], want)
		for _, q := range added {
			if e.counter.Increment(q) == 1 {
				e.stale[q] = true
			}
			e.remat[q] = true
		}
		for _, q := range removed {
			e.release(q)
		}
		if len(want) == 0 {
			delete(e.mounts, id)
		} else {
			e.mounts[id] = want
		}
	}
	for id, have := range e.mounts {
		if seen[id] {
			continue
		}
		for _, q := range have {
			e.release(q)
		}
		delete(e.mounts, id)
	}
}

// release unmounts one formula running query. When the last one goes, every
// entry produced only by query is removed.
func (e *Engine) release(query string) {
	if e.counter.Decrement(query) > 0 {
		return
	}
	for key, n := range e.nodes {
		if !n.HasQuery(query) {
			continue
		}
		n.RemoveQuery(query)
		if len(n.Queries) == 0 {
			e.dropNode(key)
		}
	}
	delete(e.results, query)
	delete(e.unresolved, query)
	delete(e.stale, query)
	delete(e.remat, query)
}

func formulaQueries(value string) []string {
	doc := domain.ParseDocument(value)
	var out []string
	for _, f := range doc.Formulas() {
		if n, _ := doc.Node(f); n.Text != "" {
			out = append(out, n.Text)
		}
	}
	slices.Sort(out)
	return out
}

// diffQueries compares two sorted multisets
func diffQueries(have, want []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(have) && j < len(want) {
		switch {
		case have[i] == want[j]:
			i++
			j++
		case have[i] < want[j]:
			removed = append(removed, have[i])
			i++
		default:
			added = append(added, want[j])
			j++
		}
	}
	removed = append(removed, have[i:]...)
	added = append(added, want[j:]...)
	return added, removed
}

// takeJobs turns pending work into query runs. New queries run over every
// page. Pages that changed have their entries deleted, and the queries
// those entries carried, plus every mounted built-in query, re-run over
// just those pages.
func (e *Engine) takeJobs() ([]formula.Job, []string) {
	if len(e.stale) == 0 && len(e.invalid) == 0 {
		return nil, nil
	}

	var all []domain.Page
	for _, p := range e.sortedPages() {
		all = append(all, *p)
	}

	var jobs []formula.Job
	full := make(map[string]bool, len(e.stale))
	for _, q := range sortedKeys(e.stale) {
		full[q] = true
		jobs = append(jobs, formula.Job{Query: q, Pages: all})
	}
	clear(e.stale)

	changed := sortedKeys(e.invalid)
	clear(e.invalid)
	if len(changed) == 0 {
		return jobs, nil
	}

	// node edits not yet written back survive invalidation; the next cycle
	// decides them again
	pending := make(map[string]*domain.QueryNode)
	for key, n := range e.nodes {
		if n.NeedsSyncToPage && slices.Contains(changed, n.Output.PageName) {
			pending[key] = n
		}
	}
	queries := formula.Invalidate(changed, e.nodes)
	for key, n := range pending {
		e.nodes[key] = n
	}
	for q := range e.counter {
		if formula.IsBuiltin(q) && !slices.Contains(queries, q) {
			queries = append(queries, q)
		}
	}
	slices.Sort(queries)

	restricted := formula.Restrict(all, changed)
	for _, q := range queries {
		if full[q] || e.counter.Count(q) == 0 {
			continue
		}
		if r := e.results[q]; r != nil && r.Kind == domain.ResultText {
			// a text answer depends on the whole corpus
			jobs = append(jobs, formula.Job{Query: q, Pages: all})
			continue
		}
		jobs = append(jobs, formula.Job{Query: q, Pages: restricted, Restrict: changed})
	}
	return jobs, changed
}

// ApplyResults merges a batch of finished query runs in one pass and redraws
// the formulas that depend on them. Results for queries unmounted in the
// meantime are ignored.
func (e *Engine) ApplyResults(outcomes []formula.Outcome) {
	for _, o := range outcomes {
		q := o.Job.Query
		scope := "restricted"
		if o.Job.Full() {
			scope = "full"
		}
		if e.counter.Count(q) == 0 {
			continue
		}

		if o.Result == nil {
			queryRuns.WithLabelValues(scope, "unresolved").Inc()
			if o.Job.Full() {
				e.unresolved[q] = true
			}
			continue
		}
		delete(e.unresolved, q)

		switch o.Result.Kind {
		case domain.ResultText:
			queryRuns.WithLabelValues(scope, "text").Inc()
			e.results[q] = o.Result

		case domain.ResultNodes:
			queryRuns.WithLabelValues(scope, "nodes").Inc()
			if o.Job.Full() {
				e.dropStale(q, o.Result.Nodes)
			}
			fresh := make([]domain.NodeMarkdown, 0, len(o.Result.Nodes))
			for _, r := range o.Result.Nodes {
				// a pending node edit outranks a result computed before it
				if n, ok := e.nodes[r.Key()]; ok && n.NeedsSyncToPage {
					n.AddQuery(q)
					continue
				}
				fresh = append(fresh, r)
			}
			domain.MergeResults(fresh, q, e.nodes)
			e.results[q] = &domain.FormulaResult{Kind: domain.ResultNodes}
		}
		e.remat[q] = true
	}
	e.materialize()
}

// dropStale removes query from entries a full run no longer returns
func (e *Engine) dropStale(query string, results []domain.NodeMarkdown) {
	keep := make(map[string]bool, len(results))
	for _, r := range results {
		keep[r.Key()] = true
	}
	for key, n := range e.nodes {
		if keep[key] || !n.HasQuery(query) {
			continue
		}
		n.RemoveQuery(query)
		if len(n.Queries) == 0 {
			e.dropNode(key)
		}
	}
}

// materialize redraws every formula whose query is marked. Text answers are
// cached on the formula line; node answers replace the formula's children
// with one [[page]] group per source page. Pages being typed in or in
// conflict are left alone and redrawn later.
func (e *Engine) materialize() {
	if len(e.remat) == 0 {
		return
	}
	retain := make(map[string]bool)

	for _, p := range e.sortedPages() {
		doc := domain.ParseDocument(p.Value)
		touched := false
		for _, f := range doc.Formulas() {
			n, _ := doc.Node(f)
			q := n.Text
			if !e.remat[q] {
				continue
			}
			if p.Status == domain.StatusUserEdit || p.Status == domain.StatusConflict {
				retain[q] = true
				continue
			}
			r := e.results[q]
			if r == nil {
				continue
			}
			touched = true
			switch r.Kind {
			case domain.ResultText:
				doc.SetResult(f, r.Text)
			case domain.ResultNodes:
				doc.SetResult(f, "")
				doc.Materialize(f, e.nodes.ForQuery(q))
			}
		}
		if !touched {
			continue
		}

		value := doc.Markdown()
		if value == p.Value {
			continue
		}
		if err := p.Transition(domain.StatusEditFromSharedNodes); err != nil {
			e.logger.Warn("materialization refused", "page", p.Title, "error", err)
			continue
		}
		p.Value = value
		// line numbers below the formula may have shifted
		e.invalid[p.Title] = true
	}

	clear(e.remat)
	for q := range retain {
		e.remat[q] = true
	}
}

// Sync drives cycles synchronously until no query runs are left, running
// the jobs in-line. It always ends with a cycle so the index matches the
// pages on return.
func (e *Engine) Sync(ctx context.Context) Report {
	var rep Report
	for round := 0; ; round++ {
		rep = e.Reconcile(ctx)
		if len(rep.Jobs) == 0 {
			return rep
		}
		if round == maxSyncRounds {
			e.logger.Warn("sync did not settle", "rounds", round, "pending_jobs", len(rep.Jobs))
			return rep
		}
		e.ApplyResults(e.formulas.RunJobs(ctx, rep.Jobs))
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
