// Command seed posts volatility quotes to a running volsurf server and
// prints the resulting grid.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"
	xhttp "VolSurf/pkg/http"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	file := flag.String("file", "", "CSV of strike,time_to_expiry,implied_vol (default: demo quotes)")
	steps := flag.Int("steps", 5, "grid steps per axis to print")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	samples := surface.DemoSamples()
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("open %s: %v", *file, err)
		}
		samples, err = readCSV(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("read %s: %v", *file, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := xhttp.NewClient(*addr, xhttp.WithTimeout(*timeout))

	var res models.IngestResult
	if _, err := c.Do(ctx, &xhttp.RequestOptions{
		Method: http.MethodPost,
		Path:   "/api/samples",
		Body:   toRequest(samples),
	}, &res); err != nil {
		log.Fatalf("post samples: %v", err)
	}
	printIngest(os.Stderr, &res)

	var grid models.GridSnapshot
	if _, err := c.Do(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/grid",
		Query: url.Values{
			"strike_steps": {strconv.Itoa(*steps)},
			"time_steps":   {strconv.Itoa(*steps)},
		},
	}, &grid); err != nil {
		log.Fatalf("get grid: %v", err)
	}
	printGrid(os.Stdout, &grid)
}

func toRequest(samples []surface.Sample) models.AddSamplesRequest {
	req := models.AddSamplesRequest{Samples: make([]models.SampleRequest, len(samples))}
	for i := range samples {
		s := samples[i]
		req.Samples[i] = models.SampleRequest{Strike: &s.Strike, TimeToExpiry: &s.TimeToExpiry, ImpliedVol: &s.ImpliedVol}
	}
	return req
}

// readCSV parses strike,time_to_expiry,implied_vol rows. A first row that
// does not parse as numbers is treated as a header.
func readCSV(r io.Reader) ([]surface.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([]surface.Sample, 0, len(rows))
	for i, row := range rows {
		s, err := parseRow(row)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseRow(row []string) (surface.Sample, error) {
	var vals [3]float64
	for j, cell := range row {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return surface.Sample{}, fmt.Errorf("column %d: %w", j+1, err)
		}
		vals[j] = v
	}
	return surface.Sample{Strike: vals[0], TimeToExpiry: vals[1], ImpliedVol: vals[2]}, nil
}

func printIngest(w io.Writer, res *models.IngestResult) {
	fmt.Fprintf(w, "accepted=%d stored=%d rejected=%d version=%d\n", res.Accepted, len(res.Stored), len(res.Rejected), res.Version)
	for _, r := range res.Rejected {
		fmt.Fprintf(w, "  #%d %s: %s\n", r.Index, r.Reason, r.Message)
	}
}

func printGrid(w io.Writer, g *models.GridSnapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "K \\ T\t")
	for _, t := range g.Times {
		fmt.Fprintf(tw, "%.4f\t", t)
	}
	fmt.Fprintln(tw)
	for i, k := range g.Strikes {
		fmt.Fprintf(tw, "%.2f\t", k)
		for j := range g.Times {
			if v := g.Vols[i][j]; v != nil {
				fmt.Fprintf(tw, "%.4f\t", *v)
			} else {
				fmt.Fprint(tw, "-\t")
			}
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "version=%d samples=%d inside=%d\n", g.Version, g.Samples, g.Inside())
}
