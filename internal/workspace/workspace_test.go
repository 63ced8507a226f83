package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quaderno/internal/adapters/filesystem"
	"quaderno/internal/application/commands"
	"quaderno/internal/config"
)

func openTest(t *testing.T) *Workspace {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.User = "ada"
	cfg.Debounce = time.Hour // only Settle persists

	w, err := Open(context.Background(), &cfg, Options{NoResolver: true})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWorkspace_SettlePersistsEdits(t *testing.T) {
	ctx := context.Background()
	w := openTest(t)
	stop := w.Start(ctx)
	defer stop()

	res, err := commands.NewCreatePageCommand(w.Store, "ada", "Groceries").Execute(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Loop.Track(ctx, *res.Page))
	require.NoError(t, w.Loop.SetLine(ctx, res.Page.ID, 0, "- milk"))

	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, w.Settle(sctx))

	stored, err := w.Store.Get(ctx, res.Page.ID)
	require.NoError(t, err)
	assert.Equal(t, "- milk", stored.Value)
	assert.Greater(t, stored.RevisionNumber, res.Page.RevisionNumber)
}

func TestWorkspace_ReopenLoadsPages(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default(t.TempDir())
	cfg.User = "ada"

	w, err := Open(ctx, &cfg, Options{NoResolver: true})
	require.NoError(t, err)
	_, err = commands.NewCreatePageCommand(w.Store, "ada", "Reading").Execute(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = Open(ctx, &cfg, Options{NoResolver: true})
	require.NoError(t, err)
	defer w.Close()

	_, ok := w.Engine.PageByTitle("Reading")
	assert.True(t, ok)
}

func TestWorkspace_StopIsIdempotentWithCancelledParent(t *testing.T) {
	w := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	stop := w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
}

func TestWorkspace_MirrorRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := openTest(t)
	stop := w.Start(ctx)
	defer stop()

	res, err := commands.NewCreatePageCommand(w.Store, "ada", "Groceries").Execute(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Loop.Track(ctx, *res.Page))

	m, err := filesystem.NewMirror(filepath.Join(t.TempDir(), "mirror"), nil)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- w.Mirror(ctx, m) }()

	path := m.Path("Groceries")
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("- milk\n- bread\n"), 0600))
	require.Eventually(t, func() bool {
		pages, err := w.Pages(ctx)
		return err == nil && len(pages) == 1 && pages[0].Value == "- milk\n- bread"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Mirror did not return after cancel")
	}
}
