package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"VolSurf/internal/domain/repository"
	"VolSurf/internal/services/surface"
)

// insertChunk bounds the rows sent in one multi-row INSERT.
const insertChunk = 2000

// ClickHouseSampleStore implements SampleRepository for ClickHouse.
type ClickHouseSampleStore struct {
	db    *sql.DB
	table string
	seq   atomic.Uint64
	now   func() time.Time
}

// NewClickHouseSampleStore creates the sample store over an open connection.
func NewClickHouseSampleStore(db *sql.DB, table string) *ClickHouseSampleStore {
	return &ClickHouseSampleStore{db: db, table: table, now: time.Now}
}

var _ repository.SampleRepository = (*ClickHouseSampleStore)(nil)

// SchemaStatements returns the DDL for the samples table.
func SchemaStatements(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ingested_at    DateTime64(6, 'UTC'),
	seq            UInt64,
	strike         Float64,
	time_to_expiry Float64,
	implied_vol    Float64
) ENGINE = MergeTree
ORDER BY (ingested_at, seq)`, table)}
}

func (s *ClickHouseSampleStore) Init(ctx context.Context) error {
	for _, stmt := range SchemaStatements(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *ClickHouseSampleStore) Save(ctx context.Context, sample surface.Sample) error {
	return s.SaveBatch(ctx, []surface.Sample{sample})
}

func (s *ClickHouseSampleStore) SaveBatch(ctx context.Context, samples []surface.Sample) error {
	for start := 0; start < len(samples); start += insertChunk {
		end := min(start+insertChunk, len(samples))
		q, args := s.buildInsert(samples[start:end])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %d samples: %w", end-start, err)
		}
	}
	return nil
}

// buildInsert renders one multi-row INSERT. Every row carries the same
// timestamp and a process-wide increasing seq so LoadAll can replay them in
// order.
func (s *ClickHouseSampleStore) buildInsert(samples []surface.Sample) (string, []interface{}) {
	ts := s.now().UTC()
	values := make([]string, 0, len(samples))
	args := make([]interface{}, 0, len(samples)*5)
	for _, smp := range samples {
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, ts, s.seq.Add(1), smp.Strike, smp.TimeToExpiry, smp.ImpliedVol)
	}
	q := fmt.Sprintf("INSERT INTO %s (ingested_at, seq, strike, time_to_expiry, implied_vol) VALUES %s",
		s.table, strings.Join(values, ","))
	return q, args
}

func (s *ClickHouseSampleStore) LoadAll(ctx context.Context) ([]surface.Sample, error) {
	q := fmt.Sprintf("SELECT strike, time_to_expiry, implied_vol FROM %s ORDER BY ingested_at, seq", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	defer rows.Close()

	var out []surface.Sample
	for rows.Next() {
		var smp surface.Sample
		if err := rows.Scan(&smp.Strike, &smp.TimeToExpiry, &smp.ImpliedVol); err != nil {
			return nil, err
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

func (s *ClickHouseSampleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSampleStore) Close() error {
	return nil // connection owned by pkg/clickhouse.Client
}
