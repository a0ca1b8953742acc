package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/analysis"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gbcs",
		Short:         "Survival analysis of the German Breast Cancer Study cohort",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newResidualsCmd())
	root.AddCommand(newSelectCmd())
	root.AddCommand(newCompareCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var dataPath, outDir, configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis pipeline",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(dataPath, outDir, configPath)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "gbcs.csv", "path to the cohort CSV file")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the report and plots")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML file with analysis thresholds")

	return cmd
}

func newResidualsCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "residuals",
		Short: "Null model martingale residuals and covariate correlations",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, err := loadData(dataPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "", log.Ltime)

			nf := analysis.FitCox(ds, analysis.NullSpec(), logger)
			if !nf.OK() {
				return nf.Err
			}
			resid := nf.Result.MartingaleResiduals()

			fmt.Printf("%-12s %10s\n", "Covariate", "Corr")
			for _, name := range gbcs.Continuous() {
				x, err := ds.Column(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-12s %10.4f\n", name, stat.Correlation(x, resid, nil))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "gbcs.csv", "path to the cohort CSV file")
	return cmd
}

func newSelectCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Model selection: confounding check, interaction screening, stepwise search",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, err := loadData(dataPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "", log.Ltime)

			full := analysis.FitCox(ds, analysis.FullSpec(), logger)
			reduced := analysis.FitCox(ds, analysis.ReducedSpec(), logger)

			changes, err := analysis.ChangeInEstimates(full, reduced, analysis.DefaultConfig().ChangeInEstimatePct)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %12s %12s %10s\n", "Variable", "Full", "Reduced", "Change%")
			for _, ch := range changes {
				fmt.Printf("%-16s %12.6f %12.6f %9.1f%%\n", ch.Term, ch.Full, ch.Reduced, ch.Percent)
			}

			screens, err := analysis.ScreenInteractions(ds, analysis.ReducedSpec(), reduced,
				analysis.InteractionCandidates(), logger)
			if err != nil {
				return err
			}
			fmt.Printf("\n%-24s %10s %10s\n", "Interaction", "LR stat", "P-value")
			for _, sc := range screens {
				if sc.Err != nil {
					fmt.Printf("%-24s failed: %v\n", sc.Term.Name(), sc.Err)
					continue
				}
				fmt.Printf("%-24s %10.3f %10.4f\n", sc.Term.Name(), sc.LR.Stat, sc.LR.PValue)
			}

			pool := make([]analysis.Term, 0)
			for _, name := range gbcs.BaseCovariates() {
				pool = append(pool, analysis.Main(name))
			}
			pool = append(pool, analysis.InteractionCandidates()...)

			sr, err := analysis.Stepwise(ds, analysis.ReducedSpec(), pool, 2, analysis.Bidirectional, logger)
			if err != nil {
				return err
			}
			fmt.Printf("\nAIC stepwise, final criterion %.3f, terms: %v\n", sr.Criterion, sr.Final.XNames)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "gbcs.csv", "path to the cohort CSV file")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare Cox and Weibull coefficients for the final model",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, err := loadData(dataPath)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "", log.Ltime)

			cox := analysis.FitCox(ds, analysis.FinalSpec(), logger)
			if !cox.OK() {
				return cox.Err
			}
			weib, err := analysis.FitWeibull(ds, analysis.FinalSpec(), logger)
			if err != nil {
				return err
			}

			fmt.Printf("%-16s %14s %14s\n", "Variable", "Cox", "Weibull (PH)")
			for j, name := range cox.XNames {
				wph, err := weib.PHCoeffByName(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %14.6f %14.6f\n", name, cox.Result.Params()[j], wph)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "gbcs.csv", "path to the cohort CSV file")
	return cmd
}

func loadData(dataPath string) (statmodel.Dataset, error) {
	f, err := os.Open(dataPath)
	if err != nil {
		return statmodel.Dataset{}, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()
	return gbcs.Load(f)
}

func run(dataPath, outDir, configPath string) error {

	cfg := analysis.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = analysis.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}

	ds, err := loadData(dataPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	logf, err := os.Create(filepath.Join(outDir, "gbcs.log"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logf.Close()
	logger := log.New(logf, "", log.Ltime)

	res, err := analysis.Run(ds, cfg, logger)
	if err != nil {
		return err
	}

	rf, err := os.Create(filepath.Join(outDir, "report.txt"))
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer rf.Close()

	if err := analysis.WriteReport(rf, res, cfg); err != nil {
		return err
	}

	return analysis.SavePlots(outDir, ds, res)
}
