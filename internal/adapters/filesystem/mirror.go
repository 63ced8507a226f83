package filesystem

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"quaderno/internal/domain"
)

// MirrorEvent is an edit made to a mirrored page file outside the app
type MirrorEvent struct {
	PageID string
	Title  string
	Value  string
}

// Mirror keeps one markdown file per page in a directory and reports edits
// made to those files by other programs. Writes made by the mirror itself
// are not reported.
type Mirror struct {
	dir     string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	byFile  map[string]mirrored // file name -> page
	running bool

	events chan MirrorEvent
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

type mirrored struct {
	pageID  string
	title   string
	content string // last content written or seen
}

// NewMirror creates a mirror rooted at dir. Call Start to begin watching.
func NewMirror(dir string, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir = expandHome(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Mirror{
		dir:     dir,
		logger:  logger,
		watcher: watcher,
		byFile:  make(map[string]mirrored),
		events:  make(chan MirrorEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// FileName returns the mirror file name for a page title
func FileName(title string) string {
	name := strings.NewReplacer("/", "-", `\`, "-", ":", "-").Replace(title)
	if strings.HasPrefix(name, ".") {
		name = "_" + name
	}
	return name + ".md"
}

// Path returns the mirror file path for a page title
func (m *Mirror) Path(title string) string {
	return filepath.Join(m.dir, FileName(title))
}

// Write brings the directory in line with pages. Files of pages no longer
// present are removed; files of unchanged pages are left alone.
func (m *Mirror) Write(pages []domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := make(map[string]bool, len(pages))
	var errs []error
	for _, p := range pages {
		if p.Deleted {
			continue
		}
		name := FileName(p.Title)
		keep[name] = true
		if prev, ok := m.byFile[name]; ok && prev.content == p.Value && prev.pageID == p.ID {
			continue
		}
		// record first so the watcher sees our own write as known content
		m.byFile[name] = mirrored{pageID: p.ID, title: p.Title, content: p.Value}
		if err := writeFileAtomic(filepath.Join(m.dir, name), []byte(p.Value)); err != nil {
			errs = append(errs, err)
		}
	}

	for name := range m.byFile {
		if keep[name] {
			continue
		}
		delete(m.byFile, name)
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start begins watching the mirror directory
func (m *Mirror) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("mirror already running")
	}
	if err := m.watcher.Add(m.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.dir, err)
	}
	m.running = true
	m.wg.Add(1)
	go m.processEvents()
	return nil
}

// Stop stops watching and closes the event channels
func (m *Mirror) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return m.watcher.Close()
	}
	m.running = false
	m.mu.Unlock()

	close(m.done)
	if err := m.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	m.wg.Wait()
	close(m.events)
	close(m.errors)
	return nil
}

// Events returns external edits. The channel is closed by Stop.
func (m *Mirror) Events() <-chan MirrorEvent {
	return m.events
}

// Errors returns watcher errors. The channel is closed by Stop.
func (m *Mirror) Errors() <-chan error {
	return m.errors
}

func (m *Mirror) processEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev, ok := m.convertEvent(event); ok {
				select {
				case m.events <- ev:
				case <-m.done:
					return
				}
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			select {
			case m.errors <- err:
			case <-m.done:
				return
			}
		}
	}
}

// convertEvent turns a write to a known page file into a MirrorEvent.
// Temp files, removals and content the mirror already knows are ignored.
func (m *Mirror) convertEvent(event fsnotify.Event) (MirrorEvent, bool) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".md") {
		return MirrorEvent{}, false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return MirrorEvent{}, false
	}

	data, err := os.ReadFile(event.Name)
	if err != nil {
		m.logger.Debug("mirror file vanished before read", "file", name, "error", err)
		return MirrorEvent{}, false
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		// truncated by an editor that is about to write
		return MirrorEvent{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	known, ok := m.byFile[name]
	if !ok {
		m.logger.Debug("ignoring file with no page", "file", name)
		return MirrorEvent{}, false
	}
	if known.content == content {
		return MirrorEvent{}, false
	}
	known.content = content
	m.byFile[name] = known
	return MirrorEvent{PageID: known.pageID, Title: known.title, Value: content}, true
}
