package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"
	xhttp "VolSurf/pkg/http"
	pkgkafka "VolSurf/pkg/kafka"
	"VolSurf/pkg/logger"
)

// KafkaSamplesHandler consumes quotes from the samples topic and feeds the
// ingestor. Payloads are a single {strike, time_to_expiry, implied_vol}
// object or an array of them.
type KafkaSamplesHandler struct {
	topic    string
	ingestor *SampleIngestor
	log      *logger.Logger
}

func NewKafkaSamplesHandler(topic string, ingestor *SampleIngestor, log *logger.Logger) *KafkaSamplesHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaSamplesHandler{topic: topic, ingestor: ingestor, log: log}
}

func (h *KafkaSamplesHandler) Topic() string { return h.topic }

// Handle rejects malformed or invalid payloads permanently so they go to the
// DLQ. Duplicates are dropped: a redelivered message must not poison the DLQ.
func (h *KafkaSamplesHandler) Handle(ctx context.Context, b []byte) error {
	reqs, err := decodeSamples(b)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}

	samples := make([]surface.Sample, len(reqs))
	for i := range reqs {
		if err := xhttp.ValidateStruct(&reqs[i]); err != nil {
			return fmt.Errorf("%w: sample %d: %v", pkgkafka.ErrPermanent, i, err)
		}
		samples[i] = surface.Sample{
			Strike:       *reqs[i].Strike,
			TimeToExpiry: *reqs[i].TimeToExpiry,
			ImpliedVol:   *reqs[i].ImpliedVol,
		}
	}

	rep := h.ingestor.Ingest(ctx, "kafka", samples)
	for _, r := range rep.Rejected {
		if errors.Is(r.Err, surface.ErrDuplicateSample) {
			h.log.Warn("duplicate sample dropped",
				logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
				logger.Float64("strike", r.Input.Strike),
				logger.Float64("time_to_expiry", r.Input.TimeToExpiry),
			)
			continue
		}
		return fmt.Errorf("%w: sample %d: %v", pkgkafka.ErrPermanent, r.Index, r.Err)
	}
	return nil
}

func decodeSamples(b []byte) ([]models.SampleRequest, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("empty payload")
	}
	var reqs []models.SampleRequest
	if b[0] == '[' {
		if err := json.Unmarshal(b, &reqs); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
		if len(reqs) == 0 {
			return nil, errors.New("empty sample batch")
		}
		return reqs, nil
	}
	var one models.SampleRequest
	if err := json.Unmarshal(b, &one); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return append(reqs, one), nil
}

var _ pkgkafka.MessageHandler = (*KafkaSamplesHandler)(nil)
