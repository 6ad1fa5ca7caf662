package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domrepo "VolSurf/internal/domain/repository"
	domsvc "VolSurf/internal/domain/service"
	"VolSurf/internal/services/surface"
	"VolSurf/pkg/logger"
)

// Rejection describes one sample the surface refused.
type Rejection struct {
	Index  int            `json:"index"`
	Reason string         `json:"reason"`
	Err    error          `json:"-"`
	Input  surface.Sample `json:"input"`
}

// IngestReport is the outcome of one Ingest call.
type IngestReport struct {
	Stored   []surface.Sample
	Accepted []surface.Sample // raw inputs that were accepted
	Rejected []Rejection
	Version  uint64
}

// FirstError returns the error of the first rejection, or nil.
func (r IngestReport) FirstError() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	return r.Rejected[0].Err
}

// SampleIngestor adds samples to the surface and persists the accepted raw
// observations. Persistence is best effort: a failed write is logged and the
// sample stays in memory.
type SampleIngestor struct {
	surface domsvc.Surface
	repo    domrepo.SampleRepository
	metrics domrepo.Metrics
	log     *logger.Logger
	timeout time.Duration
}

// NewSampleIngestor creates an ingestor. repo may be nil when persistence is disabled.
func NewSampleIngestor(s domsvc.Surface, repo domrepo.SampleRepository, metrics domrepo.Metrics, log *logger.Logger) *SampleIngestor {
	if log == nil {
		log = logger.Nop()
	}
	return &SampleIngestor{
		surface: s,
		repo:    repo,
		metrics: metrics,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Ingest adds every sample in order. A rejected sample does not stop the
// rest of the batch.
func (i *SampleIngestor) Ingest(ctx context.Context, source string, in []surface.Sample) IngestReport {
	var rep IngestReport
	for idx, s := range in {
		stored, err := i.surface.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol)
		if err != nil {
			reason := RejectReason(err)
			rep.Rejected = append(rep.Rejected, Rejection{Index: idx, Reason: reason, Err: err, Input: s})
			if i.metrics != nil {
				i.metrics.SampleRejected(source, reason)
			}
			continue
		}
		rep.Stored = append(rep.Stored, stored)
		rep.Accepted = append(rep.Accepted, s)
	}
	rep.Version = i.surface.Version()

	if n := len(rep.Accepted); n > 0 {
		count := i.surface.Count()
		if i.metrics != nil {
			for range rep.Accepted {
				i.metrics.SampleIngested(source, count)
			}
		}
		i.persist(ctx, source, rep.Accepted)
		i.log.Debug("samples ingested",
			logger.String("source", source),
			logger.Int("accepted", n),
			logger.Int("rejected", len(rep.Rejected)),
			logger.Uint64("version", rep.Version),
		)
	}
	return rep
}

func (i *SampleIngestor) persist(ctx context.Context, source string, samples []surface.Sample) {
	if i.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()
	if err := i.repo.SaveBatch(ctx, samples); err != nil {
		i.log.Error("persist samples failed",
			logger.String("source", source),
			logger.Int("count", len(samples)),
			logger.Error(err),
		)
	}
}

// Restore replays persisted samples into the surface without writing them
// back. It returns how many were accepted.
func (i *SampleIngestor) Restore(ctx context.Context) (int, error) {
	if i.repo == nil {
		return 0, nil
	}
	start := time.Now()
	samples, err := i.repo.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore samples: %w", err)
	}

	restored, skipped := 0, 0
	for _, s := range samples {
		if _, err := i.surface.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol); err != nil {
			skipped++
			continue
		}
		restored++
		if i.metrics != nil {
			i.metrics.SampleIngested("restore", i.surface.Count())
		}
	}
	i.log.Info("samples restored",
		logger.Int("restored", restored),
		logger.Int("skipped", skipped),
		logger.Duration("took_ms", time.Since(start)),
	)
	return restored, nil
}

// RejectReason maps a surface error onto a short metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, surface.ErrInvalidSample):
		return "invalid"
	case errors.Is(err, surface.ErrDuplicateSample):
		return "duplicate"
	default:
		return "other"
	}
}
