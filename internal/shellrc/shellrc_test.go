package shellrc

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const line = "export ANTHROPIC_BASE_URL=http://localhost:8082"

func TestExportLine(t *testing.T) {
	assert.Equal(t, line, ExportLine("ANTHROPIC_BASE_URL", "http://localhost:8082"))
}

func TestRCFile(t *testing.T) {
	home := t.TempDir()
	p, ok := Checker{Shell: "/usr/bin/zsh", Home: home}.RCFile()
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(home, ".zshrc"), p)

	p, ok = Checker{Shell: "/bin/bash", Home: home}.RCFile()
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(home, ".bashrc"), p)

	_, ok = Checker{Shell: "/usr/bin/fish", Home: home}.RCFile()
	assert.False(t, ok)
}

func TestCheck(t *testing.T) {
	home := t.TempDir()
	c := Checker{Shell: "/bin/zsh", Home: home, Line: line}

	assert.Equal(t, Absent, c.Check().Result, "missing rc file is absent")

	rc := filepath.Join(home, ".zshrc")
	require.NoError(t, os.WriteFile(rc, []byte("alias ll='ls -l'\n"), 0o600))
	assert.Equal(t, Absent, c.Check().Result)

	require.NoError(t, os.WriteFile(rc, []byte("alias ll='ls -l'\n  "+line+"  \n"), 0o600))
	r := c.Check()
	assert.Equal(t, Present, r.Result)
	assert.Equal(t, rc, r.Path)
	assert.Equal(t, "zsh", r.Shell)

	assert.Equal(t, UnsupportedShell, Checker{Shell: "fish", Home: home, Line: line}.Check().Result)
	assert.Equal(t, UnsupportedShell, Checker{Home: home, Line: line}.Check().Result)
}

func TestCheck_Unreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	home := t.TempDir()
	rc := filepath.Join(home, ".bashrc")
	require.NoError(t, os.WriteFile(rc, []byte(line+"\n"), 0o000))
	r := Checker{Shell: "bash", Home: home, Line: line}.Check()
	assert.Equal(t, FileUnreadable, r.Result)
	assert.Error(t, r.Err)
}

func TestInstall_Idempotent(t *testing.T) {
	home := t.TempDir()
	rc := filepath.Join(home, ".bashrc")
	require.NoError(t, os.WriteFile(rc, []byte("export PATH=$PATH:/opt/bin"), 0o600))
	c := Checker{Shell: "/bin/bash", Home: home, Line: line}

	res, err := c.Install()
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, rc, res.Path)

	res, err = c.Install()
	require.NoError(t, err)
	assert.False(t, res.Written)

	b, err := os.ReadFile(rc)
	require.NoError(t, err)
	assert.Equal(t, "export PATH=$PATH:/opt/bin\n"+Marker+"\n"+line+"\n", string(b))
	assert.Equal(t, 1, strings.Count(string(b), line))
	assert.Equal(t, Present, c.Check().Result)
}

func TestInstall_CreatesFileAndRejectsUnsupported(t *testing.T) {
	home := t.TempDir()
	res, err := Checker{Shell: "zsh", Home: home, Line: line}.Install()
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.FileExists(t, filepath.Join(home, ".zshrc"))

	_, err = Checker{Shell: "tcsh", Home: home, Line: line}.Install()
	assert.Error(t, err)
}
