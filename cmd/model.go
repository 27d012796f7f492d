package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/formulation"
	"github.com/kilianp07/ecas/infra/instance"
)

var modelOpts struct {
	model  modelFlags
	format string
	out    string
}

var modelCmd = &cobra.Command{
	Use:   "model <instance>",
	Short: "Build the scheduling model of an instance and print it without solving",
	Args:  cobra.ExactArgs(1),
	RunE:  buildModel,
}

func init() {
	modelOpts.model.register(modelCmd)
	modelCmd.Flags().StringVar(&modelOpts.format, "format", "", "text or json; empty selects from --out")
	modelCmd.Flags().StringVarP(&modelOpts.out, "out", "o", "", "output file, stdout when empty")
	rootCmd.AddCommand(modelCmd)
}

func buildModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := modelOpts.model.apply(&cfg.Model); err != nil {
		return err
	}
	inst, _, err := instance.Load(args[0])
	if err != nil {
		return err
	}
	f, err := formulation.Build(inst, cfg.Model)
	if err != nil {
		return err
	}
	f.Model.Name = instanceName(args[0])

	format := modelOpts.format
	if format == "" && strings.EqualFold(filepath.Ext(modelOpts.out), ".json") {
		format = cp.FormatJSON
	}
	if modelOpts.out == "" {
		return cp.Write(cmd.OutOrStdout(), f.Model, format)
	}
	if err := writeFile(modelOpts.out, func(w *os.File) error { return cp.Write(w, f.Model, format) }); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	size := f.Model.Size()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d intervals (%d optional), %d constraints, %d objective terms\n",
		modelOpts.out, size.Intervals, size.Optional, size.Constraints, size.Terms)
	return nil
}
