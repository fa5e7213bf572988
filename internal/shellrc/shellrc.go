// Package shellrc checks and installs the export line that points clients at
// the local forwarder.
package shellrc

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker precedes the line written by Install.
const Marker = "# Added by ccp"

// Result is the outcome of Check.
type Result string

const (
	Present          Result = "present"
	Absent           Result = "absent"
	UnsupportedShell Result = "unsupported_shell"
	FileUnreadable   Result = "file_unreadable"
)

// ExportLine returns the line that exports envVar=address.
func ExportLine(envVar, address string) string {
	return "export " + envVar + "=" + address
}

// Checker locates the startup file of Shell under Home and looks for Line.
type Checker struct {
	Shell string // value of $SHELL or a bare shell name
	Home  string
	Line  string
}

// Report carries the Check result with the file it concerns.
type Report struct {
	Result Result
	Shell  string
	Path   string
	Err    error
}

// FromEnv builds a Checker from $SHELL and the user's home directory.
func FromEnv(line string) Checker {
	home, _ := os.UserHomeDir()
	return Checker{Shell: os.Getenv("SHELL"), Home: home, Line: line}
}

// RCFile returns the startup file for the shell, or false when the shell is
// not supported.
func (c Checker) RCFile() (string, bool) {
	switch filepath.Base(strings.TrimSpace(c.Shell)) {
	case "zsh":
		return filepath.Join(c.Home, ".zshrc"), true
	case "bash":
		return filepath.Join(c.Home, ".bashrc"), true
	default:
		return "", false
	}
}

// Check never modifies anything. A missing startup file is reported as Absent.
func (c Checker) Check() Report {
	shell := filepath.Base(strings.TrimSpace(c.Shell))
	path, ok := c.RCFile()
	if !ok {
		return Report{Result: UnsupportedShell, Shell: shell}
	}
	found, err := containsLine(path, c.Line)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Report{Result: Absent, Shell: shell, Path: path}
	case err != nil:
		return Report{Result: FileUnreadable, Shell: shell, Path: path, Err: err}
	case found:
		return Report{Result: Present, Shell: shell, Path: path}
	default:
		return Report{Result: Absent, Shell: shell, Path: path}
	}
}

// InstallResult reports what Install did.
type InstallResult struct {
	Path    string
	Written bool // false when the line was already present
}

// Install appends the marker and line to the startup file unless the line is
// already there. The file is created when missing.
func (c Checker) Install() (InstallResult, error) {
	path, ok := c.RCFile()
	if !ok {
		return InstallResult{}, fmt.Errorf("unsupported shell %q", c.Shell)
	}
	found, err := containsLine(path, c.Line)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return InstallResult{Path: path}, err
	}
	if found {
		return InstallResult{Path: path}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return InstallResult{Path: path}, err
	}
	if _, err := fmt.Fprintf(f, "\n%s\n%s\n", Marker, c.Line); err != nil {
		_ = f.Close()
		return InstallResult{Path: path}, err
	}
	if err := f.Close(); err != nil {
		return InstallResult{Path: path}, err
	}
	return InstallResult{Path: path, Written: true}, nil
}

func containsLine(path, line string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	want := strings.TrimSpace(line)
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		if strings.TrimSpace(s.Text()) == want {
			return true, nil
		}
	}
	return false, s.Err()
}
