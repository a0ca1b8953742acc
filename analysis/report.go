package analysis

import (
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/duration"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// WriteReport writes a plain text report of all pipeline stages.
func WriteReport(w io.Writer, res *Result, cfg Config) error {

	sec := func(title string) {
		fmt.Fprintf(w, "\n== %s ==\n\n", title)
	}

	sec("Null model martingale residuals")
	fmt.Fprint(w, res.NullFit.Result.Summary().String())
	fmt.Fprintf(w, "\nCorrelation with continuous covariates:\n")
	for _, rc := range res.ResidCorrs {
		fmt.Fprintf(w, "  %-12s %8.4f\n", rc.Covariate, rc.Corr)
	}

	sec("Full model")
	if res.FullFit.OK() {
		fmt.Fprint(w, res.FullFit.Result.Summary().String())
		fmt.Fprintf(w, "AIC: %.2f  BIC: %.2f\n", res.FullFit.AIC(), res.FullFit.BIC())
	} else {
		fmt.Fprintf(w, "fit failed: %v\n", res.FullFit.Err)
	}

	sec("Reduced model")
	fmt.Fprint(w, res.ReducedFit.Result.Summary().String())
	fmt.Fprintf(w, "AIC: %.2f  BIC: %.2f\n", res.ReducedFit.AIC(), res.ReducedFit.BIC())

	sec(fmt.Sprintf("Change in estimate (flagged above %.0f%%)", cfg.ChangeInEstimatePct))
	fmt.Fprintf(w, "  %-16s %12s %12s %10s\n", "Variable", "Full", "Reduced", "Change%")
	for _, ch := range res.Changes {
		flag := ""
		if ch.Flagged {
			flag = "  *"
		}
		fmt.Fprintf(w, "  %-16s %12.6f %12.6f %9.1f%%%s\n", ch.Term, ch.Full, ch.Reduced, ch.Percent, flag)
	}

	sec("Re-examination of excluded covariates")
	fmt.Fprintf(w, "  %-16s %12s %10s %10s\n", "Variable", "Coefficient", "LR stat", "P-value")
	for _, re := range res.Reexamined {
		if re.Err != nil {
			fmt.Fprintf(w, "  %-16s failed: %v\n", re.Covariate, re.Err)
			continue
		}
		fmt.Fprintf(w, "  %-16s %12.6f %10.3f %10.4f\n", re.Covariate, re.Coeff, re.LR.Stat, re.LR.PValue)
	}

	sec("Nonlinearity checks (natural splines)")
	for _, nl := range res.Nonlinearity {
		if nl.Err != nil {
			fmt.Fprintf(w, "  %-16s failed: %v\n", nl.Covariate, nl.Err)
			continue
		}
		fmt.Fprintf(w, "  %-16s LR %8.3f on %d df, p = %.4f\n", nl.Covariate, nl.LR.Stat, nl.LR.Df, nl.LR.PValue)
	}

	sec("Interaction screening")
	for _, sc := range res.Screens {
		if sc.Err != nil {
			fmt.Fprintf(w, "  %-24s failed: %v\n", sc.Term.Name(), sc.Err)
			continue
		}
		fmt.Fprintf(w, "  %-24s LR %8.3f on %d df, p = %.4f\n", sc.Term.Name(), sc.LR.Stat, sc.LR.Df, sc.LR.PValue)
	}

	writeTrace := func(name string, sr *StepwiseResult) {
		sec(name)
		for _, rec := range sr.Trace {
			fmt.Fprintf(w, "  %-7s %-24s criterion %10.3f\n", rec.Action, rec.Term, rec.Criterion)
		}
		fmt.Fprintf(w, "  final criterion %10.3f, terms: %v\n", sr.Criterion, sr.Final.XNames)
	}
	writeTrace("Stepwise reduction of the pairwise interaction model (AIC, bidirectional)", res.StepAIC)
	writeTrace("Stepwise reduction of the pairwise interaction model (BIC, backward)", res.StepBIC)

	sec("Final model")
	fmt.Fprint(w, res.FinalFit.Result.Summary().String())
	fmt.Fprintf(w, "AIC: %.2f  BIC: %.2f  concordance: %.3f\n",
		res.FinalFit.AIC(), res.FinalFit.BIC(), res.CIndex)

	writePH := func(name string, pt *duration.PHTestResult) {
		sec(name)
		fmt.Fprintf(w, "  %-16s %10s %10s\n", "Variable", "Chi-sq", "P-value")
		for j, nm := range pt.Names {
			flag := ""
			if pt.PValues[j] < cfg.PHTestAlpha {
				flag = "  *"
			}
			fmt.Fprintf(w, "  %-16s %10.3f %10.4f%s\n", nm, pt.Stat[j], pt.PValues[j], flag)
		}
		fmt.Fprintf(w, "  %-16s %10.3f %10.4f (%d df)\n", "GLOBAL", pt.GlobalStat, pt.GlobalPValue, pt.GlobalDf)
	}
	writePH("Proportional hazards test, reduced model", res.PHReduce)
	writePH("Proportional hazards test, final model", res.PHFinal)

	sec(fmt.Sprintf("Influential observations (|dfbeta| > %g)", cfg.DFBetaThreshold))
	if len(res.Influence) == 0 {
		fmt.Fprintf(w, "  none\n")
	}
	for _, fl := range res.Influence {
		fmt.Fprintf(w, "  row %4d  %-16s dfbeta %12.6f\n", fl.Row, fl.Term, fl.DFBeta)
	}

	sec("Weibull accelerated failure time model")
	fmt.Fprintf(w, "  intercept %10.4f  scale %8.4f\n", res.Weibull.Intercept(), res.Weibull.Scale())
	fmt.Fprintf(w, "\n  %-16s %14s %14s\n", "Variable", "Cox", "Weibull (PH)")
	for _, cc := range res.Comparison {
		fmt.Fprintf(w, "  %-16s %14.6f %14.6f\n", cc.Term, cc.Cox, cc.WeibullPH)
	}
	fmt.Fprintf(w, "\n  hormone therapy hazard ratio: %.4f\n", res.Curves.HormoneRatio)

	return nil
}

// SavePlots writes the diagnostic plots to the given directory: one
// martingale residual scatter per continuous covariate, and the
// Kaplan-Meier versus Weibull survival comparison by hormone group.
func SavePlots(dir string, ds statmodel.Dataset, res *Result) error {

	for _, name := range gbcs.Continuous() {
		x, err := ds.Column(name)
		if err != nil {
			return err
		}
		fname := filepath.Join(dir, fmt.Sprintf("martingale_%s.png", name))
		if err := plotMartingale(x, res.NullResid, name, fname); err != nil {
			return err
		}
	}

	sp := duration.NewSurvCurvePlotter().
		Title("Survival by hormone therapy").
		AddStep(res.Curves.KMControl, "KM no hormone").
		AddStep(res.Curves.KMTreated, "KM hormone").
		AddCurve(res.Curves.Grid, res.Curves.WeibControl, "Weibull no hormone").
		AddCurve(res.Curves.Grid, res.Curves.WeibTreated, "Weibull hormone").
		Plot()

	return sp.Save(filepath.Join(dir, "survival_hormone.png"))
}

// plotMartingale writes a scatter plot of the null model martingale
// residuals against one covariate.
func plotMartingale(x, resid []float64, name, fname string) error {

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Martingale residuals vs %s", name)
	pl.X.Label.Text = name
	pl.Y.Label.Text = "Martingale residual"

	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = resid[i]
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.Radius = 1.5
	pl.Add(sc)

	if err := pl.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return fmt.Errorf("analysis: saving %s: %w", fname, err)
	}

	return nil
}
