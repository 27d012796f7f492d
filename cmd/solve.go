package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecas/app"
	"github.com/kilianp07/ecas/core/solver"
	"github.com/kilianp07/ecas/infra/instance"
	"github.com/kilianp07/ecas/infra/logger"
	"github.com/kilianp07/ecas/pkg/export"
)

var solveOpts struct {
	model       modelFlags
	engine      string
	timeLimit   time.Duration
	threads     int
	nodeLimit   int64
	exportModel string
	scheduleOut string
	chart       string
	date        string
}

var solveCmd = &cobra.Command{
	Use:   "solve <instance>",
	Short: "Build and solve an instance, then print the run statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  solve,
}

func init() {
	f := solveCmd.Flags()
	solveOpts.model.register(solveCmd)
	f.StringVar(&solveOpts.engine, "engine", "", fmt.Sprintf("solver engine, one of %s (overrides solver.engine.type)", strings.Join(solver.Engines(), ", ")))
	f.DurationVar(&solveOpts.timeLimit, "time-limit", 0, "wall-clock limit of the search, 0 keeps the configured value")
	f.IntVar(&solveOpts.threads, "threads", 0, "worker threads, 0 keeps the configured value")
	f.Int64Var(&solveOpts.nodeLimit, "node-limit", 0, "search effort limit, 0 keeps the configured value")
	f.StringVar(&solveOpts.exportModel, "export-model", "", "write the model to this file before solving")
	f.StringVar(&solveOpts.scheduleOut, "schedule-out", "", "write the schedule to this file (.json or .csv)")
	f.StringVar(&solveOpts.chart, "chart", "", "render the schedule as an HTML chart")
	f.StringVar(&solveOpts.date, "date", "", "calendar day of slot 0 (YYYY-MM-DD) in the market time zone")
	rootCmd.AddCommand(solveCmd)
}

func solve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := solveOpts.model.apply(&cfg.Model); err != nil {
		return err
	}
	if solveOpts.engine != "" {
		cfg.Solver.Engine.Type = solveOpts.engine
	}
	if solveOpts.timeLimit > 0 {
		cfg.Solver.TimeLimit = solveOpts.timeLimit
	}
	if solveOpts.threads > 0 {
		cfg.Solver.Threads = solveOpts.threads
	}
	if solveOpts.nodeLimit > 0 {
		cfg.Solver.NodeLimit = solveOpts.nodeLimit
	}
	if solveOpts.exportModel != "" {
		cfg.Solver.ExportPath = solveOpts.exportModel
		cfg.Solver.ExportFormat = ""
	}
	if err := cfg.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}

	var origin time.Time
	if solveOpts.date != "" {
		origin, err = time.ParseInLocation(time.DateOnly, solveOpts.date, cfg.Prices.Location())
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	inst, _, err := instance.Load(args[0])
	if err != nil {
		return err
	}

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("solve").Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Run(ctx, instanceName(args[0]), inst, origin)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", res.RunID)
	fmt.Fprint(out, res.Stats.Summary())
	if res.Schedule != nil {
		c := res.Schedule.Cost
		fmt.Fprintf(out, "cost: idle %.4f, cycling %.4f, tasks %.4f\n", c.IdleEnergy, c.Cycling, c.TaskEnergy)
	}
	if len(res.PlanIDs) > 0 {
		fmt.Fprintf(out, "plans published: %d\n", len(res.PlanIDs))
	}

	if res.Schedule == nil {
		return nil
	}
	clock := export.Clock{Origin: origin, Resolution: inst.TimeResolution}
	if solveOpts.scheduleOut != "" {
		if err := writeFile(solveOpts.scheduleOut, func(f *os.File) error {
			if strings.EqualFold(filepath.Ext(solveOpts.scheduleOut), ".csv") {
				return export.WriteCSV(f, inst, res.Schedule, clock)
			}
			return export.WriteJSON(f, res.Schedule)
		}); err != nil {
			return fmt.Errorf("write schedule: %w", err)
		}
	}
	if solveOpts.chart != "" {
		if err := writeFile(solveOpts.chart, func(f *os.File) error {
			return export.WriteChart(f, inst, res.Schedule, clock)
		}); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
