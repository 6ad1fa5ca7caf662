package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"VolSurf/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	topic string
	fails int
	err   error
	calls int
	got   [][]byte
}

func (h *stubHandler) Topic() string { return h.topic }

func (h *stubHandler) Handle(_ context.Context, data []byte) error {
	h.calls++
	h.got = append(h.got, data)
	if h.calls <= h.fails {
		return h.err
	}
	return nil
}

type stubWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

func testConsumer(retryMax int, dlq *stubWriter) *Consumer {
	c := newConsumer(&ConsumerConfig{
		RetryMax:   retryMax,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
		BufferSize: 1,
		Logger:     logger.Nop(),
	})
	if dlq != nil {
		c.dlq = dlq
		c.cfg.DLQTopic = "surface.samples.dlq"
	}
	return c
}

func testMessage(topic string) *message {
	return &message{topic: topic, data: []byte(`{"strike":100}`), km: kafka.Message{Topic: topic, Partition: 2, Offset: 7}}
}

func TestProcess_RetriesTransientErrors(t *testing.T) {
	c := testConsumer(3, nil)
	h := &stubHandler{topic: "surface.samples", fails: 2, err: errors.New("busy")}
	c.RegisterHandler(h)

	assert.True(t, c.process(testMessage("surface.samples")))
	assert.Equal(t, 3, h.calls)
}

func TestProcess_PermanentGoesToDLQ(t *testing.T) {
	dlq := &stubWriter{}
	c := testConsumer(5, dlq)
	h := &stubHandler{topic: "surface.samples", fails: 100, err: fmt.Errorf("%w: duplicate", ErrPermanent)}
	c.RegisterHandler(h)

	assert.True(t, c.process(testMessage("surface.samples")), "parked in DLQ, safe to commit")
	assert.Equal(t, 1, h.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "surface.samples.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.Equal(t, []byte("surface.samples"), dlq.msgs[0].Headers[0].Value)
}

func TestProcess_NoDLQLeavesOffset(t *testing.T) {
	c := testConsumer(1, nil)
	h := &stubHandler{topic: "t", fails: 100, err: errors.New("down")}
	c.RegisterHandler(h)

	assert.False(t, c.process(testMessage("t")))
	assert.Equal(t, 2, h.calls)
}

func TestProcess_DLQFailureLeavesOffset(t *testing.T) {
	c := testConsumer(0, &stubWriter{err: errors.New("broker gone")})
	c.RegisterHandler(&stubHandler{topic: "t", fails: 1, err: errors.New("x")})

	assert.False(t, c.process(testMessage("t")))
}

type panicHandler struct{}

func (panicHandler) Topic() string                        { return "p" }
func (panicHandler) Handle(context.Context, []byte) error { panic("boom") }

func TestProcess_HandlerPanicIsPermanent(t *testing.T) {
	dlq := &stubWriter{}
	c := testConsumer(3, dlq)
	c.RegisterHandler(panicHandler{})

	assert.True(t, c.process(testMessage("p")))
	assert.Len(t, dlq.msgs, 1)
}

func TestProcess_UnknownTopic(t *testing.T) {
	c := testConsumer(0, nil)
	assert.False(t, c.process(testMessage("nobody")))
}

func TestRegisterHandler_KeepsFirst(t *testing.T) {
	c := testConsumer(0, nil)
	first := &stubHandler{topic: "t"}
	c.RegisterHandler(first)
	c.RegisterHandler(&stubHandler{topic: "t"})

	c.process(testMessage("t"))
	assert.Equal(t, 1, first.calls)
}

func TestPartitionLock_Stable(t *testing.T) {
	c := testConsumer(0, nil)
	var wg sync.WaitGroup
	locks := make([]*sync.Mutex, 16)
	for i := range locks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locks[i] = c.partitionLock("t", 1)
		}(i)
	}
	wg.Wait()
	for _, l := range locks {
		assert.Same(t, locks[0], l)
	}
	assert.NotSame(t, locks[0], c.partitionLock("t", 2))
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestNewConsumer_RequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}
