package analysis

import (
	"fmt"
	"log"
	"math"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// ChangeInEstimate records how much a coefficient common to the full
// and reduced models shifts when the remaining covariates are removed.
// Percent is always computed against the full model's coefficient.
type ChangeInEstimate struct {
	Term    string
	Full    float64
	Reduced float64
	Percent float64
	Flagged bool
}

// ChangeInEstimates computes |full - reduced| / |full| * 100 for every
// covariate common to both models and flags those exceeding the
// threshold percentage, indicating confounding by a removed covariate.
func ChangeInEstimates(full, reduced *ModelFit, thresholdPct float64) ([]ChangeInEstimate, error) {

	if !full.OK() {
		return nil, fmt.Errorf("analysis: change-in-estimate requires a converged full model: %w", full.Err)
	}
	if !reduced.OK() {
		return nil, fmt.Errorf("analysis: change-in-estimate requires a converged reduced model: %w", reduced.Err)
	}

	var out []ChangeInEstimate
	for _, name := range reduced.XNames {

		fc, err := full.Result.ParamByName(name)
		if err != nil {
			// Present only in the reduced model, not common.
			continue
		}
		rc, err := reduced.Result.ParamByName(name)
		if err != nil {
			return nil, err
		}

		pct := math.Abs(fc-rc) / math.Abs(fc) * 100

		out = append(out, ChangeInEstimate{
			Term:    name,
			Full:    fc,
			Reduced: rc,
			Percent: pct,
			Flagged: pct > thresholdPct,
		})
	}

	return out, nil
}

// NonlinearityCheck holds the result of testing the linearity of one
// continuous covariate's log-hazard relationship via a natural spline
// expansion.
type NonlinearityCheck struct {
	Covariate string
	Fit       *ModelFit
	LR        *statmodel.LRTestResult
	Err       error
}

// CheckNonlinearity fits, for each named continuous covariate in the
// base specification, a model that adds natural spline terms for that
// covariate, and tests the spline terms against the linear base fit
// with a likelihood ratio test.
func CheckNonlinearity(ds statmodel.Dataset, base ModelSpec, baseFit *ModelFit, covariates []string, logger *log.Logger) []NonlinearityCheck {

	out := make([]NonlinearityCheck, len(covariates))

	for i, name := range covariates {
		out[i] = NonlinearityCheck{Covariate: name}

		if !baseFit.OK() {
			out[i].Err = fmt.Errorf("analysis: nonlinearity check requires a converged base model: %w", baseFit.Err)
			continue
		}
		if !base.HasTerm(Main(name)) {
			out[i].Err = fmt.Errorf("analysis: covariate '%s' is not a main effect of the base model", name)
			continue
		}

		dx, nsNames, err := withSplineColumns(ds, name)
		if err != nil {
			out[i].Err = err
			continue
		}

		spec := base
		for _, cn := range nsNames {
			spec = spec.WithTerm(Main(cn))
		}

		fit := FitCox(dx, spec, logger)
		out[i].Fit = fit
		if !fit.OK() {
			out[i].Err = fit.Err
			continue
		}

		lr, err := statmodel.LRTest(baseFit.Result, fit.Result)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].LR = lr
	}

	return out
}

// Direction controls which moves a stepwise search may propose.
type Direction int

const (
	// Bidirectional search proposes both additions and removals.
	Bidirectional Direction = iota

	// BackwardOnly search proposes removals only.
	BackwardOnly
)

// StepRecord describes one accepted move of a stepwise search.
type StepRecord struct {
	Action    string // "add" or "remove"
	Term      string
	Criterion float64
}

// StepwiseResult holds the outcome of a stepwise model search.
type StepwiseResult struct {
	Final     *ModelFit
	Criterion float64
	Trace     []StepRecord
}

// Stepwise searches for the model minimizing -2*loglike + penalty*k,
// starting from the given specification.  Under Bidirectional search,
// terms from the pool may be added and current terms removed; under
// BackwardOnly, only removals are proposed.  Main effects are never
// removed while an interaction involving them remains, and an
// interaction is only added when both its components are present.
// Candidate fits that fail are skipped, never treated as improvements.
func Stepwise(ds statmodel.Dataset, start ModelSpec, pool []Term, penalty float64, dir Direction, logger *log.Logger) (*StepwiseResult, error) {

	crit := func(mf *ModelFit) float64 {
		return -2*mf.Result.LogLike() + penalty*float64(len(mf.Result.Params()))
	}

	cur := FitCox(ds, start, logger)
	if !cur.OK() {
		return nil, fmt.Errorf("analysis: stepwise starting model did not converge: %w", cur.Err)
	}
	curCrit := crit(cur)

	res := &StepwiseResult{}

	for {
		var bestFit *ModelFit
		var bestCrit float64
		var bestRec StepRecord
		improved := false

		consider := func(mf *ModelFit, rec StepRecord) {
			if !mf.OK() {
				return
			}
			c := crit(mf)
			if c < curCrit-1e-8 && (!improved || c < bestCrit) {
				improved = true
				bestFit = mf
				bestCrit = c
				bestRec = rec
				bestRec.Criterion = c
			}
		}

		// Removals
		for _, t := range cur.Spec.Terms {
			if !t.IsInteraction() && specHasInteractionWith(cur.Spec, t.X) {
				continue
			}
			mf := FitCox(ds, cur.Spec.WithoutTerm(t), logger)
			consider(mf, StepRecord{Action: "remove", Term: t.Name()})
		}

		// Additions
		if dir == Bidirectional {
			for _, t := range pool {
				if cur.Spec.HasTerm(t) {
					continue
				}
				if t.IsInteraction() &&
					(!cur.Spec.HasTerm(Main(t.X)) || !cur.Spec.HasTerm(Main(t.By))) {
					continue
				}
				mf := FitCox(ds, cur.Spec.WithTerm(t), logger)
				consider(mf, StepRecord{Action: "add", Term: t.Name()})
			}
		}

		if !improved {
			break
		}

		cur = bestFit
		curCrit = bestCrit
		res.Trace = append(res.Trace, bestRec)
	}

	res.Final = cur
	res.Criterion = curCrit

	return res, nil
}

// specHasInteractionWith reports whether the specification contains an
// interaction term involving the named base covariate.
func specHasInteractionWith(ms ModelSpec, name string) bool {
	for _, t := range ms.Terms {
		if t.IsInteraction() && t.involves(name) {
			return true
		}
	}
	return false
}
