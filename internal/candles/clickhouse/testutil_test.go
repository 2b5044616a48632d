package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start ClickHouse container
	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	// Get native port (9000)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	// Connect to ClickHouse
	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	createCandlesTable(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// createCandlesTable creates the candles mirror table.
func createCandlesTable(t *testing.T, conn *Conn) {
	t.Helper()

	err := conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS candles (
			exchange     String,
			pair         String,
			timeframe    String,
			timestamp_ms UInt64,
			open         Float64,
			high         Float64,
			low          Float64,
			close        Float64,
			volume       Float64
		) ENGINE = MergeTree()
		ORDER BY (exchange, pair, timeframe, timestamp_ms)
	`)
	require.NoError(t, err)
}

// seedCandles inserts test rows for one series key.
func seedCandles(t *testing.T, conn *Conn, exchange, pair, timeframe string, rows [][6]float64) {
	t.Helper()
	ctx := context.Background()

	batch, err := conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			exchange, pair, timeframe, timestamp_ms, open, high, low, close, volume
		)
	`)
	require.NoError(t, err)

	for _, r := range rows {
		err = batch.Append(exchange, pair, timeframe,
			uint64(r[0]), r[1], r[2], r[3], r[4], r[5])
		require.NoError(t, err)
	}
	require.NoError(t, batch.Send())
}
