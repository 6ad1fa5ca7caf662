package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"
	pkgkafka "VolSurf/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleStore_BuildInsert(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	s := NewClickHouseSampleStore(nil, "vol_samples")
	s.now = func() time.Time { return at }

	q, args := s.buildInsert([]surface.Sample{
		{Strike: 90, TimeToExpiry: 0.25, ImpliedVol: 0.25},
		{Strike: 100, TimeToExpiry: 0.25, ImpliedVol: 0.20},
	})

	assert.True(t, strings.HasPrefix(q, "INSERT INTO vol_samples (ingested_at, seq, strike, time_to_expiry, implied_vol) VALUES "))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?)"))
	require.Len(t, args, 10)
	assert.Equal(t, at.UTC(), args[0])
	assert.Equal(t, uint64(1), args[1])
	assert.Equal(t, 90.0, args[2])
	assert.Equal(t, uint64(2), args[6])
	assert.Equal(t, 0.20, args[9])

	// seq keeps increasing across batches
	_, args = s.buildInsert([]surface.Sample{{Strike: 110, TimeToExpiry: 1, ImpliedVol: 0.2}})
	assert.Equal(t, uint64(3), args[1])
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("db.samples")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS db.samples")
	assert.Contains(t, stmts[0], "ORDER BY (ingested_at, seq)")
}

type fakeBatchPublisher struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (f *fakeBatchPublisher) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	f.topic = topic
	f.msgs = append(f.msgs, messages...)
	return f.err
}

func (f *fakeBatchPublisher) Close() error { return nil }

func header(m pkgkafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaGridPublisher(t *testing.T) {
	fake := &fakeBatchPublisher{}
	p := &KafkaGridPublisher{producer: fake, topic: "surface.grids"}
	snap := &models.GridSnapshot{Version: 7, Samples: 3, Strikes: []float64{1, 2}, Times: []float64{1}}

	ctx := pkgkafka.WithTraceID(context.Background(), "abc")
	require.NoError(t, p.PublishGrid(ctx, snap))
	require.Len(t, fake.msgs, 1)
	assert.Equal(t, "surface.grids", fake.topic)
	assert.Equal(t, []byte("surface"), fake.msgs[0].Key)
	assert.Equal(t, "abc", header(fake.msgs[0], "trace_id"))
	assert.Equal(t, "7", header(fake.msgs[0], "version"))

	b, err := json.Marshal(fake.msgs[0].Value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"version":7`)

	// without a trace id in the context a fresh one is generated
	require.NoError(t, p.PublishGrid(context.Background(), snap))
	assert.Len(t, header(fake.msgs[1], "trace_id"), 36)

	fake.err = errors.New("broker down")
	assert.Error(t, p.PublishGrid(context.Background(), snap))
}
