package main

import (
	"bytes"
	"strings"
	"testing"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	got, err := readCSV(strings.NewReader("strike,time_to_expiry,implied_vol\n100, 0.1, 0.2\n110,0.5,0.22\n"))
	require.NoError(t, err)
	assert.Equal(t, []surface.Sample{
		{Strike: 100, TimeToExpiry: 0.1, ImpliedVol: 0.2},
		{Strike: 110, TimeToExpiry: 0.5, ImpliedVol: 0.22},
	}, got)

	_, err = readCSV(strings.NewReader("100,0.1,0.2\n100,x,0.2\n"))
	assert.ErrorContains(t, err, "row 2")

	_, err = readCSV(strings.NewReader("100,0.1\n"))
	assert.Error(t, err)
}

func TestToRequest(t *testing.T) {
	req := toRequest(surface.DemoSamples())
	require.Len(t, req.Samples, 8)
	assert.Equal(t, 90.0, *req.Samples[0].Strike)
	assert.Equal(t, 0.21, *req.Samples[7].ImpliedVol)
}

func TestPrintIngest(t *testing.T) {
	var buf bytes.Buffer
	printIngest(&buf, &models.IngestResult{
		Accepted: 2,
		Stored:   surface.DemoSamples()[:2],
		Rejected: []models.RejectedSample{{Index: 2, Reason: "duplicate", Message: "already stored"}},
		Version:  7,
	})
	assert.Equal(t, "accepted=2 stored=2 rejected=1 version=7\n  #2 duplicate: already stored\n", buf.String())
}

func TestPrintGrid(t *testing.T) {
	v := 0.2
	var buf bytes.Buffer
	printGrid(&buf, &models.GridSnapshot{
		Version: 4,
		Samples: 3,
		Strikes: []float64{90, 100},
		Times:   []float64{0.1},
		Vols:    [][]*float64{{nil}, {&v}},
	})
	out := buf.String()
	assert.Contains(t, out, "0.2000")
	assert.Contains(t, out, "-")
	assert.Contains(t, out, "version=4 samples=3 inside=1")
}
