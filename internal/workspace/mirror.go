package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"quaderno/internal/adapters/filesystem"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/domain"
)

// Pages returns a snapshot of the live pages
func (w *Workspace) Pages(ctx context.Context) ([]domain.Page, error) {
	var pages []domain.Page
	err := w.Loop.Inspect(ctx, func(e *reconcile.Engine) {
		pages = e.Pages()
	})
	return pages, err
}

// Mirror keeps m in step with the live pages and feeds edits made to the
// mirrored files back into the loop, until ctx is cancelled. The loop must
// be running. m must not be started; Mirror starts and stops it.
func (w *Workspace) Mirror(ctx context.Context, m *filesystem.Mirror) error {
	pages, err := w.Pages(ctx)
	if err != nil {
		return err
	}
	if err := m.Write(pages); err != nil {
		w.Logger.Warn("mirror write failed", "error", err)
	}
	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	updates := w.Loop.Updates()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-updates:
			pages, err := w.Pages(ctx)
			if err != nil {
				return ignoreCancel(err)
			}
			if err := m.Write(pages); err != nil {
				w.Logger.Warn("mirror write failed", "error", err)
			}

		case ev, ok := <-m.Events():
			if !ok {
				return nil
			}
			w.Logger.Info("external edit", "page", ev.Title)
			if err := w.Loop.EditPage(ctx, ev.PageID, ev.Value); err != nil {
				if errors.Is(err, reconcile.ErrStopped) || ctx.Err() != nil {
					return nil
				}
				w.Logger.Warn("external edit rejected", "page", ev.Title, "error", err)
			}

		case err, ok := <-m.Errors():
			if ok {
				w.Logger.Warn("mirror watcher error", "error", err)
			}
		}
	}
}

// ServeMetrics exposes the Prometheus registry on addr until ctx is
// cancelled
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, reconcile.ErrStopped) {
		return nil
	}
	return err
}
