package ports

import "os/exec"

// EditorOpener opens a page file in the user's external editor
type EditorOpener interface {
	// Command returns the editor process for path without starting it,
	// so callers can attach the terminal (bubbletea's ExecProcess or os.Stdin)
	Command(path string) (*exec.Cmd, error)

	// Edit runs the editor on path and waits for it to exit
	Edit(path string) error
}
