package editor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"quaderno/internal/ports"
)

// Opener implements ports.EditorOpener with the user's terminal editor
type Opener struct {
	editor string // overrides $EDITOR when set
}

// Ensure Opener implements EditorOpener
var _ ports.EditorOpener = (*Opener)(nil)

// NewOpener creates a new editor opener. An empty editor falls back to
// $EDITOR, $VISUAL and then common editors on $PATH.
func NewOpener(editor string) *Opener {
	return &Opener{editor: editor}
}

// Edit opens a file in the editor and waits for it to exit
func (o *Opener) Edit(path string) error {
	cmd, err := o.Command(path)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns an exec.Cmd for opening a file in the editor.
// This is useful for integrating with bubbletea's ExecProcess.
func (o *Opener) Command(path string) (*exec.Cmd, error) {
	editor := o.findEditor()
	if editor == "" {
		return nil, fmt.Errorf("no editor found: set $EDITOR environment variable")
	}

	// $EDITOR may carry flags, e.g. "code --wait"
	fields := strings.Fields(editor)
	cmd := exec.Command(fields[0], append(fields[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd, nil
}

// Draft is page text written to a temporary markdown file for editing
type Draft struct {
	dir  string
	Path string
}

// NewDraft writes text to a fresh temporary file named after the page
func NewDraft(name, text string) (*Draft, error) {
	dir, err := os.MkdirTemp("", "quaderno-edit-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	d := &Draft{dir: dir, Path: filepath.Join(dir, safeName(name)+".md")}
	if err := os.WriteFile(d.Path, []byte(text+"\n"), 0600); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	return d, nil
}

// Read returns what the editor saved, without trailing newlines
func (d *Draft) Read() (string, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// Close removes the temporary file
func (d *Draft) Close() error {
	return os.RemoveAll(d.dir)
}

// EditText round-trips text through the editor and returns what the user
// saved
func EditText(opener ports.EditorOpener, name, text string) (string, error) {
	d, err := NewDraft(name, text)
	if err != nil {
		return "", err
	}
	defer d.Close()

	if err := opener.Edit(d.Path); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}
	return d.Read()
}

// safeName keeps page titles with slashes from escaping the temp dir
func safeName(name string) string {
	name = strings.NewReplacer("/", "-", string(os.PathSeparator), "-").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "page"
	}
	return name
}

func (o *Opener) findEditor() string {
	if o.editor != "" {
		return o.editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}

	editors := []string{"nvim", "vim", "vi", "nano"}
	for _, editor := range editors {
		if path, err := exec.LookPath(editor); err == nil {
			return path
		}
	}

	return ""
}
