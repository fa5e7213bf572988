package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultTailLines is how many trailing lines Follow prints before streaming.
const DefaultTailLines = 10

// FollowPollInterval bounds how long Follow may miss an update when file
// notifications are unavailable or coalesced.
var FollowPollInterval = 500 * time.Millisecond

// Tail returns up to n trailing lines of the file at path, without their
// line terminators.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	lines, _, err := tail(f, n)
	return lines, err
}

// tail reads the last n lines of f and returns them with the file size at
// the time of reading.
func tail(f *os.File, n int) ([]string, int64, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := st.Size()
	if n <= 0 || size == 0 {
		return nil, size, nil
	}
	const chunk = 4096
	var buf []byte
	pos := size
	for pos > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		step := int64(chunk)
		if pos < step {
			step = pos
		}
		pos -= step
		part := make([]byte, step)
		if _, err := f.ReadAt(part, pos); err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, err
		}
		buf = append(part, buf...)
	}
	buf = bytes.TrimSuffix(buf, []byte{'\n'})
	all := bytes.Split(buf, []byte{'\n'})
	if pos > 0 {
		// first element may be a partial line
		all = all[1:]
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]string, 0, len(all))
	for _, l := range all {
		out = append(out, string(bytes.TrimSuffix(l, []byte{'\r'})))
	}
	return out, size, nil
}

// Follow writes the last n lines of path to w and then streams appended
// content until ctx is done. Truncation or replacement of the file (as done by
// rotation) restarts reading from the beginning of the new file. Cancellation
// is a normal return.
func Follow(ctx context.Context, path string, w io.Writer, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	lines, offset, err := tail(f, n)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	cur, err := f.Stat()
	if err != nil {
		return err
	}

	var events chan fsnotify.Event
	var errs chan error
	if watcher, werr := fsnotify.NewWatcher(); werr == nil {
		defer func() { _ = watcher.Close() }()
		// Watch the directory so renames and re-creation are seen too.
		if watcher.Add(filepath.Dir(path)) == nil {
			events, errs = watcher.Events, watcher.Errors
		}
	}
	ticker := time.NewTicker(FollowPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
			continue
		case <-ticker.C:
		}

		st, err := os.Stat(path)
		if err != nil {
			// Rotated away; wait for the new file.
			continue
		}
		if !os.SameFile(st, cur) || st.Size() < offset {
			nf, err := os.Open(path)
			if err != nil {
				continue
			}
			_ = f.Close()
			f, cur, offset = nf, st, 0
		}
		if st.Size() > offset {
			copied, err := io.Copy(w, io.NewSectionReader(f, offset, st.Size()-offset))
			offset += copied
			if err != nil {
				return err
			}
		}
	}
}
