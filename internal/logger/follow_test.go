package logger

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func numbered(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.log")
	require.NoError(t, os.WriteFile(path, []byte(numbered(25)), 0o600))

	lines, err := Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, lines, 10)
	assert.Equal(t, "line 16", lines[0])
	assert.Equal(t, "line 25", lines[9])

	lines, err = Tail(path, 100)
	require.NoError(t, err)
	assert.Len(t, lines, 25)

	_, err = Tail(filepath.Join(t.TempDir(), "none.log"), 10)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTail_LargeFileAndNoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.log")
	content := strings.Repeat(strings.Repeat("y", 300)+"\n", 50) + "last"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	lines, err := Tail(path, 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "last", lines[2])
	assert.Len(t, lines[0], 300)
}

func TestFollow_StreamsAppendsAndTruncation(t *testing.T) {
	old := FollowPollInterval
	FollowPollInterval = 20 * time.Millisecond
	t.Cleanup(func() { FollowPollInterval = old })

	path := filepath.Join(t.TempDir(), ".ccp.log")
	require.NoError(t, os.WriteFile(path, []byte(numbered(12)), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, out, DefaultTailLines) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "line 12") }, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "line 2\n")
	assert.True(t, strings.HasPrefix(out.String(), "line 3\n"))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, _ = f.WriteString("appended\n")
	_ = f.Close()
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "appended") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("fresh\n"), 0o600))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "fresh") }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}
