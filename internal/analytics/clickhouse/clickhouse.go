// Package clickhouse batches Plan.TrimReport rows and per-build token
// totals into ClickHouse for offline analysis, grounded on the teacher's
// internal/agentd clickhouse_schema.go (conn.Exec DDL) and
// metrics_clickhouse.go (clickhouse.ParseDSN + clickhouse.Open + Ping).
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"tavernkit"
)

// Sink writes build trim-report rows and token totals to ClickHouse.
type Sink struct {
	conn  clickhouse.Conn
	table string
}

// Open connects to ClickHouse via dsn and ensures the target table exists.
func Open(ctx context.Context, dsn, table string) (*Sink, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: parse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse: ping: %w", err)
	}
	if table == "" {
		table = "tavernkit_trim_report"
	}
	s := &Sink{conn: conn, table: table}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	build_time   DateTime,
	block_id     String,
	slot         String,
	token_group  String,
	reason       String,
	tokens       Int32,
	total_tokens_estimated Int32
) ENGINE = MergeTree() ORDER BY build_time`, s.table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("clickhouse: ensure schema: %w", err)
	}
	return nil
}

// RecordPlan inserts one row per TrimReportEntry in plan, tagged with the
// total estimated token count so trim pressure can be correlated with
// overall prompt size.
func (s *Sink) RecordPlan(ctx context.Context, plan *tavernkit.Plan, totalTokensEstimated int) error {
	if len(plan.TrimReport) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return fmt.Errorf("clickhouse: prepare batch: %w", err)
	}
	now := time.Now()
	for _, t := range plan.TrimReport {
		if err := batch.Append(now, t.BlockID, t.Slot, string(t.Group), t.Reason, int32(t.Tokens), int32(totalTokensEstimated)); err != nil {
			return fmt.Errorf("clickhouse: append row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse: send batch: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}
