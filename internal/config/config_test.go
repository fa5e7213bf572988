package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	fc, err := Load(filepath.Join(dir, FileName), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.Server.Address != DefaultAddress || fc.Client.Grace != DefaultClientGrace {
		t.Fatalf("unexpected defaults: %+v", fc)
	}
	got := fc.ServerCommand("/usr/local/bin/ccp")
	want := []string{"/usr/local/bin/ccp", "serve", "--addr", DefaultListen}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := `
[server]
command = ["uvicorn", "server:app", "--port", "8082"]
foreground_args = ["--reload"]

[environment]
dir = ".venv"
create = ["python3", "-m", "venv", ".venv"]
install = [".venv/bin/pip", "install", "-e", "."]

[client]
grace = "500ms"

[log]
max_size_mb = 5
compress = true

[history]
dsn = "sqlite://history.db"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	fc, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.ServerCommand("ignored")[0] != "uvicorn" {
		t.Fatalf("server command not loaded: %v", fc.Server.Command)
	}
	if len(fc.Server.ForegroundArgs) != 1 || fc.Server.ForegroundArgs[0] != "--reload" {
		t.Fatalf("foreground args: %v", fc.Server.ForegroundArgs)
	}
	if fc.Environment.Dir != filepath.Join(dir, ".venv") {
		t.Fatalf("environment dir not resolved: %s", fc.Environment.Dir)
	}
	if fc.Client.Grace != 500*time.Millisecond {
		t.Fatalf("grace: %v", fc.Client.Grace)
	}
	if fc.Client.EnvVar != DefaultClientEnvVar || fc.Client.Command[0] != DefaultClientCommand {
		t.Fatalf("client defaults not applied: %+v", fc.Client)
	}
	if fc.Log.MaxSizeMB != 5 || !fc.Log.Compress {
		t.Fatalf("log: %+v", fc.Log)
	}
	if fc.History.DSN != "sqlite://history.db" {
		t.Fatalf("history: %+v", fc.History)
	}
}

func TestLoadRejectsCreateWithoutDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[environment]\ncreate = [\"true\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, dir); err == nil {
		t.Fatalf("expected validation error")
	}
}
