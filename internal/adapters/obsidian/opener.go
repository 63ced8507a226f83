package obsidian

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"quaderno/internal/ports"
)

// Opener implements ports.EditorOpener by handing mirrored page files to
// Obsidian. The mirror directory is opened as the vault.
type Opener struct {
	vaultPath string
	vaultName string
	goos      string
}

// Ensure Opener implements EditorOpener
var _ ports.EditorOpener = (*Opener)(nil)

// NewOpener creates a new Obsidian opener for the mirror directory
func NewOpener(vaultPath string) *Opener {
	return &Opener{
		vaultPath: vaultPath,
		vaultName: filepath.Base(vaultPath),
		goos:      runtime.GOOS,
	}
}

// Edit asks Obsidian to open the file. It returns once the request is
// handed off; edits come back through the mirror watcher.
func (o *Opener) Edit(filePath string) error {
	cmd, err := o.Command(filePath)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns the OS command that opens the file's obsidian:// URI
func (o *Opener) Command(filePath string) (*exec.Cmd, error) {
	uri, err := o.BuildURI(filePath)
	if err != nil {
		return nil, err
	}

	switch o.goos {
	case "darwin":
		return exec.Command("open", uri), nil
	case "linux":
		return exec.Command("xdg-open", uri), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", "", uri), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", o.goos)
	}
}

// BuildURI constructs the obsidian:// URI for a given file path
func (o *Opener) BuildURI(filePath string) (string, error) {
	relPath, err := filepath.Rel(o.vaultPath, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path: %w", err)
	}

	if strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("file is outside the mirror: %s", filePath)
	}

	// Obsidian resolves notes without their extension
	relPath = strings.TrimSuffix(filepath.ToSlash(relPath), ".md")

	return fmt.Sprintf("obsidian://open?vault=%s&file=%s",
		url.QueryEscape(o.vaultName),
		url.QueryEscape(relPath),
	), nil
}
