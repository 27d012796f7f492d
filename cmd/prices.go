package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecas/app"
	"github.com/kilianp07/ecas/core/model"
	"github.com/kilianp07/ecas/infra/instance"
)

var pricesOpts struct {
	date       string
	resolution int
	chart      string
	into       string
	out        string
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch day-ahead prices and print them as an energy_prices array",
	Long: `Fetch day-ahead prices and print them as an energy_prices array.

With --into the prices replace those of an existing instance, resampled to
its time resolution, and the updated instance is written to --out or stdout.`,
	Args: cobra.NoArgs,
	RunE: fetchPrices,
}

func init() {
	f := pricesCmd.Flags()
	f.StringVar(&pricesOpts.date, "date", "", "market day (YYYY-MM-DD), tomorrow when empty")
	f.IntVar(&pricesOpts.resolution, "resolution", 60, "slot length in minutes")
	f.StringVar(&pricesOpts.chart, "chart", "", "write the raw market prices as an HTML chart")
	f.StringVar(&pricesOpts.into, "into", "", "instance file whose energy prices are replaced")
	f.StringVar(&pricesOpts.out, "out", "", "write the updated instance here instead of stdout (with --into)")
	rootCmd.AddCommand(pricesCmd)
}

func fetchPrices(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Prices.Location()
	day := time.Now().In(loc).AddDate(0, 0, 1)
	if pricesOpts.date != "" {
		day, err = time.ParseInLocation(time.DateOnly, pricesOpts.date, loc)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	var (
		inst   *model.Instance
		format instance.Format
	)
	resolution := pricesOpts.resolution
	if pricesOpts.into != "" {
		inst, format, err = instance.Load(pricesOpts.into)
		if err != nil {
			return err
		}
		resolution = inst.TimeResolution
	}

	ps, resp, err := app.FetchPrices(ctx, cfg.Prices, day, resolution)
	if err != nil {
		return err
	}
	if pricesOpts.chart != "" {
		html, err := resp.PriceChartHTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(pricesOpts.chart, []byte(html), 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}
	if inst != nil {
		inst.Prices = ps
		return writeInstance(cmd.OutOrStdout(), inst, format)
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
		"time_resolution": resolution,
		"energy_prices":   ps,
	})
}

func writeInstance(stdout io.Writer, inst *model.Instance, format instance.Format) error {
	if pricesOpts.out == "" {
		return instance.Write(stdout, inst, format)
	}
	switch strings.ToLower(filepath.Ext(pricesOpts.out)) {
	case ".json", ".yaml", ".yml":
		format = instance.FormatOf(pricesOpts.out, nil)
	}
	var buf bytes.Buffer
	if err := instance.Write(&buf, inst, format); err != nil {
		return err
	}
	if err := os.WriteFile(pricesOpts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	return nil
}
