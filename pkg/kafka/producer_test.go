package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in   string
		want kafka.Compression
	}{
		{"", 0},
		{"none", 0},
		{"gzip", kafka.Gzip},
		{"snappy", kafka.Snappy},
		{"lz4", kafka.Lz4},
		{"zstd", kafka.Zstd},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseCompression("brotli")
	assert.ErrorContains(t, err, `unknown compression "brotli"`)
}

func TestNewProducer_ValidatesConfig(t *testing.T) {
	brokers := WithBrokers([]string{"localhost:9092"})

	_, err := NewProducer()
	assert.ErrorContains(t, err, "brokers are required")

	_, err = NewProducer(brokers, WithCompression("snapy"))
	assert.ErrorContains(t, err, "unknown compression")

	_, err = NewProducer(brokers, WithRequiredAcks(2))
	assert.ErrorContains(t, err, "required acks")

	_, err = NewProducer(brokers, WithMaxAttempts(0))
	assert.ErrorContains(t, err, "max attempts")
}

func TestNewProducer_Defaults(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Snappy, p.writer.Compression)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.Equal(t, "snappy", p.comp)
}
