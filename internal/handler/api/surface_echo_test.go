package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	models "VolSurf/internal/domain/models"
	"VolSurf/internal/service/ratelimit"
	"VolSurf/internal/services/surface"
	"VolSurf/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type appErr struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params"`
}

func newTestEcho(t *testing.T, e *surface.Engine, opts ...HandlerOption) *echo.Echo {
	t.Helper()
	ing := usecase.NewSampleIngestor(e, nil, nil, nil)
	q := usecase.NewSurfaceQuery(e, nil, nil, nil, usecase.SurfaceQueryConfig{DefaultSteps: 5, MaxSteps: 50})
	ec := echo.New()
	NewSurfaceEchoHandler(nil, ing, q, opts...).RegisterRoutes(ec)
	return ec
}

func seeded(t *testing.T) *surface.Engine {
	t.Helper()
	e := surface.NewEngine()
	for _, s := range surface.DemoSamples() {
		_, err := e.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol)
		require.NoError(t, err)
	}
	return e
}

func do(t *testing.T, ec *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ec.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func errorsOf(t *testing.T, env envelope) []appErr {
	t.Helper()
	var errs []appErr
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	return errs
}

func TestAddSamples_SingleAndBatch(t *testing.T) {
	e := surface.NewEngine()
	ec := newTestEcho(t, e)

	rec, env := do(t, ec, http.MethodPost, "/api/samples", `{"strike":100,"time_to_expiry":0.1,"implied_vol":0.2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, env.Status)
	assert.Equal(t, "1", rec.Header().Get(HeaderSurfaceVersion))

	var res models.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.Accepted)

	rec, env = do(t, ec, http.MethodPost, "/api/samples", `{"samples":[
		{"strike":90,"time_to_expiry":0.1,"implied_vol":0.25},
		{"strike":100,"time_to_expiry":0.1,"implied_vol":0.9},
		{"strike":110,"time_to_expiry":0.5,"implied_vol":0.2}
	]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	res = models.IngestResult{}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 1, res.Rejected[0].Index)
	assert.Equal(t, "duplicate", res.Rejected[0].Reason)
	assert.Equal(t, 3, e.Count())
}

func TestAddSamples_Errors(t *testing.T) {
	ec := newTestEcho(t, seeded(t))

	rec, env := do(t, ec, http.MethodPost, "/api/samples", `{"strike":100,"time_to_expiry":0.1,"implied_vol":0.99}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ERR_CONFLICT", errorsOf(t, env)[0].Code)

	rec, env = do(t, ec, http.MethodPost, "/api/samples", `{"strike":100,"time_to_expiry":0.1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := errorsOf(t, env)
	assert.Equal(t, "ERR_REQUIRED_WITHOUT", errs[0].Code)

	rec, _ = do(t, ec, http.MethodPost, "/api/samples", `{"strike":-5,"time_to_expiry":0.1,"implied_vol":0.2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, ec, http.MethodPost, "/api/samples", `{"samples":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, ec, http.MethodPost, "/api/samples", `{"samples":[{"strike":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoint(t *testing.T) {
	ec := newTestEcho(t, seeded(t))

	rec, env := do(t, ec, http.MethodGet, "/api/point?strike=100&time=0.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.PointResponse
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.NotNil(t, p.Vol)
	assert.Equal(t, 0.20, *p.Vol)
	assert.False(t, p.Outside)

	rec, env = do(t, ec, http.MethodGet, "/api/point?strike=200&time=0.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"strike":200,"time":0.1,"vol":null,"outside":true}`, string(env.Data))

	rec, _ = do(t, ec, http.MethodGet, "/api/point?strike=100", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, ec, http.MethodGet, "/api/point?strike=abc&time=0.1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoint_Degenerate(t *testing.T) {
	ec := newTestEcho(t, surface.NewEngine())
	rec, env := do(t, ec, http.MethodGet, "/api/point?strike=100&time=0.1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ERR_UNPROCESSABLE", errorsOf(t, env)[0].Code)
}

func TestGrid(t *testing.T) {
	ec := newTestEcho(t, seeded(t))

	rec, env := do(t, ec, http.MethodGet, "/api/grid?strike_steps=3&time_steps=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.GridSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, []float64{90, 100, 110}, snap.Strikes)
	assert.Equal(t, []float64{0.1, 0.5}, snap.Times)
	require.Len(t, snap.Vols, 3)
	require.NotNil(t, snap.Vols[1][0])
	assert.Equal(t, 0.20, *snap.Vols[1][0])
	assert.Equal(t, "8", rec.Header().Get(HeaderSurfaceVersion))

	rec, _ = do(t, ec, http.MethodGet, "/api/grid", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, ec, http.MethodGet, "/api/grid?strike_steps=51", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, ec, http.MethodGet, "/api/grid?strike_steps=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrid_RateLimited(t *testing.T) {
	ec := newTestEcho(t, seeded(t), WithGridRateLimit(ratelimit.New(), 2, 0))

	for i := 0; i < 2; i++ {
		rec, _ := do(t, ec, http.MethodGet, "/api/grid?strike_steps=2&time_steps=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := do(t, ec, http.MethodGet, "/api/grid?strike_steps=2&time_steps=2", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR_RATE_LIMITED", errorsOf(t, env)[0].Code)

	// other routes are not limited
	rec, _ = do(t, ec, http.MethodGet, "/api/bounds", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSamplesBoundsGradients(t *testing.T) {
	ec := newTestEcho(t, seeded(t))

	rec, env := do(t, ec, http.MethodGet, "/api/samples", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []surface.Sample `json:"rows"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(8), list.Total)
	assert.Equal(t, surface.DemoSamples(), list.Rows)

	rec, env = do(t, ec, http.MethodGet, "/api/bounds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var b models.BoundsResponse
	require.NoError(t, json.Unmarshal(env.Data, &b))
	require.NotNil(t, b.Bounds)
	assert.Equal(t, 90.0, b.Bounds.MinStrike)
	assert.Equal(t, 0.5, b.Bounds.MaxTime)
	assert.Equal(t, "reject", b.Policy)

	rec, env = do(t, ec, http.MethodGet, "/api/gradients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"d_strike"`)
}

func TestGradients_EmptyIsUnprocessable(t *testing.T) {
	ec := newTestEcho(t, surface.NewEngine())
	rec, _ := do(t, ec, http.MethodGet, "/api/gradients", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSurfaceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{surface.ErrInvalidSample, http.StatusBadRequest},
		{surface.ErrInvalidResolution, http.StatusBadRequest},
		{usecase.ErrTooManySteps, http.StatusBadRequest},
		{surface.ErrDuplicateSample, http.StatusConflict},
		{surface.ErrDegenerateDomain, http.StatusUnprocessableEntity},
		{surface.ErrInsufficientNeighbors, http.StatusInternalServerError},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, surfaceError(tc.err).Status, tc.err.Error())
	}
}
