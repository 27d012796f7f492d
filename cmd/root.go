package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecas/config"
	"github.com/kilianp07/ecas/core/formulation"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "ecas",
	Short: "Energy-cost-aware task scheduler",
	Long: "ecas places tasks on machines over a one day horizon and decides when each\n" +
		"machine is powered, minimising idle, switching and task energy costs.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json); empty uses defaults and ECAS_ variables")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// modelFlags are the model builder overrides shared by solve and model.
type modelFlags struct {
	fragmentation string
	priceEval     string
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fragmentation, "fragmentation", "", "task placement policy: atomic or fragmented")
	cmd.Flags().StringVar(&f.priceEval, "price-eval", "", "price evaluation of partial slots: trapezoid, exact or start")
}

func (f *modelFlags) apply(o *formulation.Options) error {
	if f.fragmentation != "" {
		o.Fragmentation = formulation.Fragmentation(strings.ToLower(f.fragmentation))
	}
	if f.priceEval != "" {
		o.PriceEvaluation = strings.ToLower(f.priceEval)
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// instanceName labels an instance file in metrics and the run log.
func instanceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
