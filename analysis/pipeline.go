package analysis

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/duration"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// NullSpec is the intercept-free null model, used for baseline
// martingale residual diagnostics.
func NullSpec() ModelSpec {
	return ModelSpec{Time: gbcs.Survtime, Status: gbcs.CensDead}
}

// FullSpec contains all base covariates as main effects.
func FullSpec() ModelSpec {
	ms := NullSpec()
	for _, name := range gbcs.BaseCovariates() {
		ms = ms.WithTerm(Main(name))
	}
	return ms
}

// ReducedSpec retains the covariates kept after backward elimination
// from the full model.
func ReducedSpec() ModelSpec {
	ms := NullSpec()
	for _, name := range []string{gbcs.Size, gbcs.ProgRecp, gbcs.Rectime} {
		ms = ms.WithTerm(Main(name))
	}
	return ms
}

// FinalSpec is the working final model: the reduced covariates, the
// hormone and dichotomized age effects recovered on re-examination, and
// the two interactions retained by screening.
func FinalSpec() ModelSpec {
	ms := NullSpec()
	for _, name := range []string{gbcs.Size, gbcs.ProgRecp, gbcs.Rectime, gbcs.Hormone, gbcs.AgeMed} {
		ms = ms.WithTerm(Main(name))
	}
	ms = ms.WithTerm(Interaction(gbcs.ProgRecp, gbcs.Rectime))
	ms = ms.WithTerm(Interaction(gbcs.Size, gbcs.Hormone))
	return ms
}

// PairwiseSpec is the pairwise interaction model: all base covariates
// plus every candidate two-way interaction.  Both stepwise searches
// reduce this model.
func PairwiseSpec() ModelSpec {
	ms := FullSpec()
	for _, t := range InteractionCandidates() {
		ms = ms.WithTerm(t)
	}
	return ms
}

// InteractionCandidates lists the clinically motivated two-way
// interactions screened against the reduced model.
func InteractionCandidates() []Term {
	return []Term{
		Interaction(gbcs.Size, gbcs.Hormone),
		Interaction(gbcs.Size, gbcs.Menopause),
		Interaction(gbcs.Size, gbcs.Grade2),
		Interaction(gbcs.Size, gbcs.Grade3),
		Interaction(gbcs.ProgRecp, gbcs.Rectime),
		Interaction(gbcs.Size, gbcs.ProgRecp),
	}
}

// ResidCorrelation pairs a continuous covariate with its correlation
// against the null-model martingale residuals.
type ResidCorrelation struct {
	Covariate string
	Corr      float64
}

// InfluenceFlag identifies one subject whose removal shifts one
// coefficient by more than the configured dfbeta threshold.
type InfluenceFlag struct {
	Row    int
	Term   string
	DFBeta float64
}

// CoeffComparison lists, for one covariate, the Cox coefficient beside
// the Weibull coefficient converted to the proportional hazards scale.
type CoeffComparison struct {
	Term      string
	Cox       float64
	WeibullPH float64
}

// SurvCurves holds the nonparametric and parametric survival curves for
// the hormone therapy comparison.
type SurvCurves struct {

	// Kaplan-Meier estimates per hormone group.
	KMControl *duration.SurvfuncRight
	KMTreated *duration.SurvfuncRight

	// Evaluation grid and Weibull model curves, hormone at 0 and 1
	// with the remaining covariates at their means.
	Grid         []float64
	WeibControl  []float64
	WeibTreated  []float64
	HormoneRatio float64 // hazard ratio exp(-coeff/scale) for hormone
}

// Result collects the outputs of all pipeline stages.
type Result struct {
	NullFit    *ModelFit
	NullResid  []float64
	ResidCorrs []ResidCorrelation

	FullFit    *ModelFit
	ReducedFit *ModelFit
	Changes    []ChangeInEstimate

	Reexamined   []ReexamineResult
	Nonlinearity []NonlinearityCheck
	Screens      []InteractionScreen
	StepAIC      *StepwiseResult
	StepBIC      *StepwiseResult

	FinalFit *ModelFit
	PHFinal  *duration.PHTestResult
	PHReduce *duration.PHTestResult

	Influence []InfluenceFlag

	// Uno concordance of the final model risk scores.
	CIndex float64

	Weibull    *duration.WeibullAFTResults
	Comparison []CoeffComparison
	Curves     *SurvCurves
}

// Run executes the full analysis pipeline on a loaded GBCS dataset.
func Run(ds statmodel.Dataset, cfg Config, logger *log.Logger) (*Result, error) {

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	res := &Result{}

	// Stage 1: null model martingale residuals against the continuous
	// covariates, screening for covariates with a marginal association.
	res.NullFit = FitCox(ds, NullSpec(), logger)
	if !res.NullFit.OK() {
		return nil, fmt.Errorf("analysis: null model fit failed: %w", res.NullFit.Err)
	}
	res.NullResid = res.NullFit.Result.MartingaleResiduals()

	for _, name := range gbcs.Continuous() {
		x, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		res.ResidCorrs = append(res.ResidCorrs, ResidCorrelation{
			Covariate: name,
			Corr:      stat.Correlation(x, res.NullResid, nil),
		})
	}

	// Stage 2: full and reduced models, confounding check via
	// change-in-estimate.
	res.FullFit = FitCox(ds, FullSpec(), logger)
	res.ReducedFit = FitCox(ds, ReducedSpec(), logger)

	changes, err := ChangeInEstimates(res.FullFit, res.ReducedFit, cfg.ChangeInEstimatePct)
	if err != nil {
		return nil, err
	}
	res.Changes = changes

	// Stage 3: re-examine the eliminated covariates one at a time, and
	// check the retained continuous covariates for nonlinearity.
	var excluded []string
	for _, name := range gbcs.BaseCovariates() {
		if !ReducedSpec().HasTerm(Main(name)) {
			excluded = append(excluded, name)
		}
	}
	excluded = append(excluded, gbcs.AgeMed, gbcs.RectimeMed)

	res.Reexamined, err = Reexamine(ds, ReducedSpec(), res.ReducedFit, excluded, logger)
	if err != nil {
		return nil, err
	}

	res.Nonlinearity = CheckNonlinearity(ds, ReducedSpec(), res.ReducedFit,
		[]string{gbcs.Size, gbcs.ProgRecp, gbcs.Rectime}, logger)

	// Stage 4: interaction screening and stepwise searches.
	res.Screens, err = ScreenInteractions(ds, ReducedSpec(), res.ReducedFit, InteractionCandidates(), logger)
	if err != nil {
		return nil, err
	}

	// Both searches reduce the pairwise interaction model; the AIC
	// search may also re-admit terms it has dropped.
	pool := make([]Term, 0, len(gbcs.BaseCovariates())+len(InteractionCandidates()))
	for _, name := range gbcs.BaseCovariates() {
		pool = append(pool, Main(name))
	}
	pool = append(pool, InteractionCandidates()...)

	res.StepAIC, err = Stepwise(ds, PairwiseSpec(), pool, 2, Bidirectional, logger)
	if err != nil {
		return nil, err
	}

	nobs := ds.NumObs()
	res.StepBIC, err = Stepwise(ds, PairwiseSpec(), nil, math.Log(float64(nobs)), BackwardOnly, logger)
	if err != nil {
		return nil, err
	}

	// Stage 5: final model, proportional hazards tests and influence.
	res.FinalFit = FitCox(ds, FinalSpec(), logger)
	if !res.FinalFit.OK() {
		return nil, fmt.Errorf("analysis: final model fit failed: %w", res.FinalFit.Err)
	}

	res.PHReduce, err = duration.TestPH(res.ReducedFit.Result, duration.RankTransform)
	if err != nil {
		return nil, err
	}
	res.PHFinal, err = duration.TestPH(res.FinalFit.Result, duration.RankTransform)
	if err != nil {
		return nil, err
	}

	dfb, err := res.FinalFit.Result.DFBeta()
	if err != nil {
		return nil, err
	}
	for i, row := range dfb {
		for j, v := range row {
			if math.Abs(v) > cfg.DFBetaThreshold {
				res.Influence = append(res.Influence, InfluenceFlag{
					Row:    i,
					Term:   res.FinalFit.XNames[j],
					DFBeta: v,
				})
			}
		}
	}

	times, err := ds.Column(gbcs.Survtime)
	if err != nil {
		return nil, err
	}
	status, err := ds.Column(gbcs.CensDead)
	if err != nil {
		return nil, err
	}
	scores := res.FinalFit.Result.FittedValues(nil)
	conc := duration.NewConcordance(times, status, scores).Done()
	res.CIndex, err = conc.Concordance(floats.Max(times))
	if err != nil {
		return nil, err
	}

	// Stage 6: Weibull comparison.
	res.Weibull, err = FitWeibull(ds, FinalSpec(), logger)
	if err != nil {
		return nil, err
	}

	for j, name := range res.FinalFit.XNames {
		wph, err := res.Weibull.PHCoeffByName(name)
		if err != nil {
			return nil, err
		}
		res.Comparison = append(res.Comparison, CoeffComparison{
			Term:      name,
			Cox:       res.FinalFit.Result.Params()[j],
			WeibullPH: wph,
		})
	}

	res.Curves, err = hormoneCurves(ds, res.Weibull, cfg.SurvGridStep)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// hormoneCurves builds the Kaplan-Meier curves per hormone group and
// the matching Weibull model curves, with the non-hormone covariates
// held at their means.
func hormoneCurves(ds statmodel.Dataset, weib *duration.WeibullAFTResults, gridStep float64) (*SurvCurves, error) {

	hormone, err := ds.Column(gbcs.Hormone)
	if err != nil {
		return nil, err
	}
	times, err := ds.Column(gbcs.Survtime)
	if err != nil {
		return nil, err
	}

	treated := make([]bool, len(hormone))
	control := make([]bool, len(hormone))
	for i, h := range hormone {
		treated[i] = h == 1
		control[i] = h != 1
	}

	sc := &SurvCurves{}

	sc.KMControl, err = duration.NewSurvfuncRight(ds, gbcs.Survtime, gbcs.CensDead, control)
	if err != nil {
		return nil, err
	}
	sc.KMTreated, err = duration.NewSurvfuncRight(ds, gbcs.Survtime, gbcs.CensDead, treated)
	if err != nil {
		return nil, err
	}

	// The materialized dataset holds the interaction columns needed to
	// evaluate the model at the covariate means.
	dx, xnames, err := Materialize(ds, FinalSpec())
	if err != nil {
		return nil, err
	}

	// Covariate profile: means everywhere, hormone set to zero along
	// with every term involving it.
	x0 := make([]float64, len(xnames))
	for j, name := range xnames {
		col, err := dx.Column(name)
		if err != nil {
			return nil, err
		}
		x0[j] = stat.Mean(col, nil)
	}
	for j, t := range FinalSpec().Terms {
		if t.involves(gbcs.Hormone) {
			x0[j] = 0
		}
	}

	tmax := 0.0
	for _, t := range times {
		if t > tmax {
			tmax = t
		}
	}
	for t := 0.0; t <= tmax; t += gridStep {
		sc.Grid = append(sc.Grid, t)
	}

	sc.WeibControl = weib.SurvivalCurve(sc.Grid, x0)

	// The treated curve is a power of the control curve on the
	// proportional hazards scale.
	hc, err := weib.PHCoeffByName(gbcs.Hormone)
	if err != nil {
		return nil, err
	}
	sc.HormoneRatio = math.Exp(hc)

	sc.WeibTreated = make([]float64, len(sc.WeibControl))
	for i, s := range sc.WeibControl {
		sc.WeibTreated[i] = math.Pow(s, sc.HormoneRatio)
	}

	return sc, nil
}
