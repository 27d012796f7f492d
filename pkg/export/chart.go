package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/formulation"
	"github.com/kilianp07/ecas/core/model"
)

// WriteChart renders an HTML page with the price curve, the power state of
// every machine and its CPU load over the horizon.
func WriteChart(w io.Writer, inst *model.Instance, s *formulation.Schedule, clock Clock) error {
	slots := inst.TimeSlots()
	if clock.Resolution == 0 {
		clock.Resolution = inst.TimeResolution
	}
	xAxis := make([]string, slots)
	for t := range xAxis {
		xAxis[t] = clock.Label(t)
	}

	prices := charts.NewLine()
	prices.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Energy price"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Slot"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price"}),
	)
	priceData := make([]opts.LineData, slots)
	for t := range priceData {
		priceData[t] = opts.LineData{Value: inst.Prices.At(t)}
	}
	prices.SetXAxis(xAxis).AddSeries("Price", priceData)

	power := charts.NewLine()
	power.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Machine power state", Subtitle: fmt.Sprintf("total cost %.2f", s.Cost.Total)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Slot"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ON"}),
	)
	power.SetXAxis(xAxis)

	load := charts.NewBar()
	load.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "CPU load"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Slot"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Units"}),
	)
	load.SetXAxis(xAxis)

	for _, m := range inst.Machines {
		name := fmt.Sprintf("Machine %d", m.ID)
		state := make([]opts.LineData, slots)
		for t := range state {
			v := 0
			if s.PowerState(m.ID, t) == cp.On {
				v = 1
			}
			state[t] = opts.LineData{Value: v}
		}
		power.AddSeries(name, state)

		cpu := s.Load(inst, m.ID, model.CPU)
		bars := make([]opts.BarData, slots)
		for t := range bars {
			if t < len(cpu) {
				bars[t] = opts.BarData{Value: cpu[t]}
			}
		}
		load.AddSeries(name, bars)
	}

	page := components.NewPage()
	page.PageTitle = "Schedule"
	page.AddCharts(prices, power, load)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
