package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcclickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/ccp/internal/history"
)

// setupClickHouseContainer starts a ClickHouse container and returns its
// native address. It skips the test if Docker is unavailable.
func setupClickHouseContainer(ctx context.Context, t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctr, err := tcclickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		tcclickhouse.WithUsername("default"),
		tcclickhouse.WithPassword(""),
		tcclickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start ClickHouse container: %v", err)
		return ""
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	return host + ":" + port.Port()
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	addr := setupClickHouseContainer(ctx, t)

	sink, err := New(Options{Addr: addr, Table: "ccp_events"})
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	now := time.Now().UTC()
	for i, typ := range []history.EventType{history.EventStart, history.EventStop} {
		e := history.Event{Type: typ, OccurredAt: now.Add(time.Duration(i) * time.Second), Name: "ccp", PID: 4242}
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send %s event: %v", typ, err)
		}
	}

	got, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Type != history.EventStop || got[0].PID != 4242 {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestNew_RejectsTableName(t *testing.T) {
	_, err := New(Options{Addr: "127.0.0.1:1", Table: "x; DROP TABLE y"})
	if err == nil {
		t.Fatal("expected invalid table name error")
	}
}

func TestNew_ConnectionError(t *testing.T) {
	_, err := New(Options{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Error("Expected error with invalid connection, got nil")
	}
}
