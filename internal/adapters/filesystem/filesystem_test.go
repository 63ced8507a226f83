package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quaderno/internal/application"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

func update(id, value string, at time.Time) ports.QueuedUpdate {
	return ports.QueuedUpdate{
		SaveRequest: ports.SaveRequest{PageID: id, Title: "T-" + id, Value: value, UserID: "u1", ExpectedRevision: 3},
		QueuedAt:    at,
	}
}

func TestQueue_PutGetDelete(t *testing.T) {
	q, err := NewQueue(filepath.Join(t.TempDir(), "queue"))
	require.NoError(t, err)
	ctx := context.Background()
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	got, err := q.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, q.Put(ctx, update("p1", "- first", at)))
	require.NoError(t, q.Put(ctx, update("p1", "- second", at.Add(time.Minute))))

	got, err = q.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "- second", got.Value)
	assert.Equal(t, int64(3), got.ExpectedRevision)
	assert.True(t, got.QueuedAt.Equal(at.Add(time.Minute)))

	require.NoError(t, q.Delete(ctx, "p1"))
	require.NoError(t, q.Delete(ctx, "p1"), "deleting twice is fine")
	got, err = q.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_ListSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "queue")
	ctx := context.Background()
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	q, err := NewQueue(dir)
	require.NoError(t, err)
	require.NoError(t, q.Put(ctx, update("a", "- a", at)))
	require.NoError(t, q.Put(ctx, update("b", "- b", at)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	reopened, err := NewQueue(dir)
	require.NoError(t, err)
	updates, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, updates, 2)
}

func TestQueue_RejectsPathLikeIDs(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", `a\b`, ".hidden"} {
		err := q.Put(context.Background(), update(id, "- x", time.Now()))
		assert.True(t, errors.Is(err, application.ErrInvalidID), "id %q: %v", id, err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Groceries", "Groceries.md"},
		{"2026-10-15", "2026-10-15.md"},
		{"a/b", "a-b.md"},
		{".profile", "_.profile.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.title), tt.title)
	}
}

func TestMirror_WriteAndPrune(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMirror(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Stop() })

	pages := []domain.Page{
		{ID: "1", Title: "Groceries", Value: "- milk"},
		{ID: "2", Title: "Books", Value: "- Dune"},
	}
	require.NoError(t, m.Write(pages))

	data, err := os.ReadFile(filepath.Join(dir, "Groceries.md"))
	require.NoError(t, err)
	assert.Equal(t, "- milk", string(data))

	require.NoError(t, m.Write(pages[:1]))
	_, err = os.Stat(filepath.Join(dir, "Books.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestMirror_ReportsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMirror(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Stop() })

	require.NoError(t, m.Write([]domain.Page{{ID: "1", Title: "Groceries", Value: "- milk"}}))
	require.NoError(t, m.Start())

	// our own rewrite is not an external edit
	require.NoError(t, m.Write([]domain.Page{{ID: "1", Title: "Groceries", Value: "- milk\n- eggs"}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Groceries.md"), []byte("- milk\n- eggs\n- bread\n"), 0644))

	select {
	case ev := <-m.Events():
		assert.Equal(t, MirrorEvent{PageID: "1", Title: "Groceries", Value: "- milk\n- eggs\n- bread"}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for external edit")
	}
}
