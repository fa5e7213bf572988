package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the conventional settings file name.
const FileName = ".env"

// Well-known keys.
const (
	KeyOpenAIAPIKey      = "OPENAI_API_KEY"
	KeyGeminiAPIKey      = "GEMINI_API_KEY"
	KeyPreferredProvider = "PREFERRED_PROVIDER"
	KeyBigModel          = "BIG_MODEL"
	KeySmallModel        = "SMALL_MODEL"
	KeyLogLevel          = "LOG_LEVEL"
)

// Entry is one line of the settings file.
// Malformed lines (no '=') keep their text in Raw and have an empty Key.
type Entry struct {
	Key       string
	Value     string
	Raw       string
	Malformed bool
}

// Store is a KEY=VALUE settings file.
type Store struct {
	path string
}

// Open returns a store backed by path. The file does not need to exist.
func Open(path string) *Store { return &Store{path: filepath.Clean(path)} }

// Discover finds the settings file starting at dir, falling back to dir/.env.
func Discover(dir string) *Store {
	if p, ok := Find(dir); ok {
		return Open(p)
	}
	return Open(filepath.Join(dir, FileName))
}

// Find walks from dir towards the filesystem root looking for FileName.
func Find(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		p := filepath.Join(abs, FileName)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}

func (s *Store) Path() string { return s.path }

// Exists reports whether the backing file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Entries returns all non-blank, non-comment lines in file order.
// A missing file yields no entries.
func (s *Store) Entries() ([]Entry, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, parseLine(line))
	}
	return out, sc.Err()
}

// Map returns entries as a map; later duplicates win.
func (s *Store) Map() (map[string]string, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.Malformed {
			m[e.Key] = e.Value
		}
	}
	return m, nil
}

// Get returns the value for key. ok is false when the key or the file is absent.
func (s *Store) Get(key string) (string, bool, error) {
	entries, err := s.Entries()
	if err != nil {
		return "", false, err
	}
	val, found := "", false
	for _, e := range entries {
		if !e.Malformed && e.Key == key {
			val, found = e.Value, true
		}
	}
	return val, found, nil
}

// Set writes key=value, replacing an existing assignment in place or
// appending a new line. The file is created when missing.
func (s *Store) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, "=\n") {
		return fmt.Errorf("invalid settings key %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("settings value for %s must be a single line", key)
	}
	quoted, err := quoteIfNeeded(value)
	if err != nil {
		return fmt.Errorf("settings value for %s: %w", key, err)
	}
	var lines []string
	b, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if len(b) > 0 {
		lines = strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	}
	assignment := key + "=" + quoted
	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t != "" && !strings.HasPrefix(t, "#") {
			if e := parseLine(t); !e.Malformed && e.Key == key {
				// later duplicates are dropped so Get stays unambiguous
				if !replaced {
					out = append(out, assignment)
					replaced = true
				}
				continue
			}
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, assignment)
	}
	return writeAtomic(s.path, []byte(strings.Join(out, "\n")+"\n"))
}

func parseLine(line string) Entry {
	line = strings.TrimPrefix(line, "export ")
	k, v, ok := strings.Cut(line, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return Entry{Raw: line, Malformed: true}
	}
	return Entry{Key: k, Value: unquote(strings.TrimSpace(v)), Raw: line}
}

func unquote(v string) string {
	if n := len(v); n >= 2 {
		if (v[0] == '\'' && v[n-1] == '\'') || (v[0] == '"' && v[n-1] == '"') {
			return v[1 : n-1]
		}
	}
	return v
}

// quoteIfNeeded wraps v so that unquote returns it unchanged. There is no
// escape syntax, so a value holding both quote characters cannot be stored.
func quoteIfNeeded(v string) (string, error) {
	if v != "" && !strings.ContainsAny(v, " \t#'\"") {
		return v, nil
	}
	switch {
	case !strings.Contains(v, "'"):
		return "'" + v + "'", nil
	case !strings.Contains(v, `"`):
		return `"` + v + `"`, nil
	default:
		return "", errors.New("value contains both single and double quotes")
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
