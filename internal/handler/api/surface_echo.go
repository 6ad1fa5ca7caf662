package api

import (
	"errors"
	"strconv"

	models "VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"
	"VolSurf/internal/usecase"
	xhttp "VolSurf/pkg/http"
	"VolSurf/pkg/http/middleware"
	xlogger "VolSurf/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HeaderSurfaceVersion carries the engine version a response was computed at.
const HeaderSurfaceVersion = "X-Surface-Version"

// SurfaceEchoHandler serves the surface over HTTP.
type SurfaceEchoHandler struct {
	logger   *xlogger.Logger
	ingestor *usecase.SampleIngestor
	query    *usecase.SurfaceQuery
	stream   *SurfaceStream
	gridMW   []echo.MiddlewareFunc
}

// HandlerOption configures SurfaceEchoHandler.
type HandlerOption func(*SurfaceEchoHandler)

// WithStream mounts the WebSocket stream at /api/surface/stream.
func WithStream(s *SurfaceStream) HandlerOption {
	return func(h *SurfaceEchoHandler) {
		h.stream = s
	}
}

// WithGridRateLimit guards /api/grid with a per-client token bucket.
func WithGridRateLimit(l middleware.Allower, capacity, refillPerSec float64) HandlerOption {
	return func(h *SurfaceEchoHandler) {
		if l == nil || capacity <= 0 {
			return
		}
		h.gridMW = append(h.gridMW, middleware.RateLimit(l, capacity, refillPerSec, func(c echo.Context) error {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("grid rate limit exceeded"))
		}))
	}
}

func NewSurfaceEchoHandler(logger *xlogger.Logger, ingestor *usecase.SampleIngestor, query *usecase.SurfaceQuery, opts ...HandlerOption) *SurfaceEchoHandler {
	h := &SurfaceEchoHandler{logger: logger, ingestor: ingestor, query: query}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = xlogger.Nop()
	}
	return h
}

func (h *SurfaceEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/samples", h.AddSamples)
	g.GET("/samples", h.ListSamples)
	g.GET("/point", h.Point)
	g.GET("/grid", h.Grid, h.gridMW...)
	g.GET("/bounds", h.Bounds)
	g.GET("/gradients", h.Gradients)
	g.GET("/health", h.Health)
	if h.stream != nil {
		g.GET("/surface/stream", h.stream.Serve)
	}
}

func (h *SurfaceEchoHandler) AddSamples(c echo.Context) error {
	req := &models.AddSamplesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items := req.Items()
	if len(items) == 0 {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_REQUIRED",
			Field:   "samples",
			Message: "samples is required",
		}})
	}

	samples := make([]surface.Sample, len(items))
	for i, it := range items {
		samples[i] = surface.Sample{Strike: *it.Strike, TimeToExpiry: *it.TimeToExpiry, ImpliedVol: *it.ImpliedVol}
	}

	rep := h.ingestor.Ingest(c.Request().Context(), "http", samples)
	if len(rep.Stored) == 0 {
		first := rep.Rejected[0]
		return xhttp.AppErrorResponse(c, surfaceError(first.Err).WithParam("index", first.Index))
	}

	res := models.IngestResult{
		Accepted: len(rep.Stored),
		Stored:   rep.Stored,
		Version:  rep.Version,
	}
	for _, r := range rep.Rejected {
		res.Rejected = append(res.Rejected, models.RejectedSample{Index: r.Index, Reason: r.Reason, Message: r.Err.Error()})
	}
	setVersion(c, rep.Version)
	return xhttp.CreatedResponse(c, res)
}

func (h *SurfaceEchoHandler) ListSamples(c echo.Context) error {
	samples := h.query.Samples()
	return xhttp.ListResponse(c, samples, int64(len(samples)))
}

func (h *SurfaceEchoHandler) Point(c echo.Context) error {
	req := &models.PointRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.query.Point(c.Request().Context(), *req.Strike, *req.Time)
	if err != nil {
		return h.fail(c, "point", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SurfaceEchoHandler) Grid(c echo.Context) error {
	req := &models.GridRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.query.Grid(c.Request().Context(), "http", req.StrikeSteps, req.TimeSteps)
	if err != nil {
		return h.fail(c, "grid", err)
	}
	setVersion(c, snap.Version)
	return xhttp.SuccessResponse(c, snap)
}

func (h *SurfaceEchoHandler) Bounds(c echo.Context) error {
	res := h.query.Bounds()
	setVersion(c, res.Version)
	return xhttp.SuccessResponse(c, res)
}

func (h *SurfaceEchoHandler) Gradients(c echo.Context) error {
	grads, err := h.query.Gradients()
	if err != nil {
		return h.fail(c, "gradients", err)
	}
	return xhttp.ListResponse(c, grads, int64(len(grads)))
}

func (h *SurfaceEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "ok",
		"samples": h.query.Bounds().Samples,
		"version": h.query.Version(),
	})
}

func (h *SurfaceEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := surfaceError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// surfaceError maps surface and query errors onto HTTP errors.
func surfaceError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, surface.ErrInvalidSample):
		return xhttp.BadRequestError(err.Error()).WithError(err).WithParam("kind", "invalid_sample")
	case errors.Is(err, surface.ErrInvalidResolution), errors.Is(err, usecase.ErrTooManySteps):
		return xhttp.BadRequestError(err.Error()).WithError(err).WithParam("kind", "invalid_resolution")
	case errors.Is(err, surface.ErrDuplicateSample):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, surface.ErrDegenerateDomain):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, surface.ErrInsufficientNeighbors):
		return xhttp.InternalError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}

func setVersion(c echo.Context, v uint64) {
	c.Response().Header().Set(HeaderSurfaceVersion, strconv.FormatUint(v, 10))
}
