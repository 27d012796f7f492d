package wholesalemarket

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/ecas/connectors"
)

type Response struct {
	FrancePowerExchanges []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

// Points flattens the exchange values ordered by start time.
func (r *Response) Points() ([]connectors.PricePoint, error) {
	var pts []connectors.PricePoint
	for _, exchange := range r.FrancePowerExchanges {
		for _, v := range exchange.Values {
			s, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse start date: %w", err)
			}
			e, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end date: %w", err)
			}
			pts = append(pts, connectors.PricePoint{Start: s, End: e, Price: v.Price})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Start.Before(pts[j].Start) })
	return pts, nil
}

// PriceChartHTML renders the fetched prices as an HTML line chart.
func (r *Response) PriceChartHTML() (string, error) {
	pts, err := r.Points()
	if err != nil {
		return "", err
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Day-ahead prices"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date & Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price (EUR/MWh)"}),
	)

	xAxis := make([]string, 0, len(pts))
	yAxis := make([]opts.LineData, 0, len(pts))
	for _, p := range pts {
		xAxis = append(xAxis, p.Start.Format("2006-01-02 15:04"))
		yAxis = append(yAxis, opts.LineData{Value: p.Price})
	}
	line.SetXAxis(xAxis).AddSeries("Price", yAxis)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.String(), nil
}
