package duration

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TimeTransform maps the sorted event times to the scale on which the
// proportional hazards test correlates residuals with time.
type TimeTransform int

const (
	// RankTransform replaces each event time with its rank.
	RankTransform TimeTransform = iota

	// IdentityTransform uses the event times unchanged.
	IdentityTransform
)

// PHTestResult holds the outcome of testing the proportional hazards
// assumption for each covariate of a fitted model, together with a
// global test over all covariates.  Covariates whose p-value falls
// below the caller's threshold should be flagged for review, not
// removed automatically.
type PHTestResult struct {

	// Names of the covariates, in model order.
	Names []string

	// Stat[j] is the chi-square statistic (1 df) for covariate j.
	Stat []float64

	// PValues[j] is the p-value for covariate j.
	PValues []float64

	// GlobalStat is the chi-square statistic over all covariates.
	GlobalStat float64

	// GlobalDf is the degrees of freedom of the global test.
	GlobalDf int

	// GlobalPValue is the p-value of the global test.
	GlobalPValue float64
}

// TestPH tests the proportional hazards assumption of a fitted model by
// correlating the scaled Schoenfeld residuals with transformed event
// time.  A large statistic for a covariate indicates that its effect on
// the hazard changes over time.
func TestPH(rslt *PHResults, transform TimeTransform) (*PHTestResult, error) {

	ph := rslt.Model().(*PHReg)
	p := ph.NumParams()
	if p == 0 {
		return nil, fmt.Errorf("duration: PH test requires a model with covariates")
	}

	vcov := rslt.VCov()
	if vcov == nil {
		return nil, fmt.Errorf("duration: PH test requires a parameter covariance matrix")
	}

	sr := rslt.SchoenfeldResiduals()
	d := len(sr.Resid)
	if d < 2 {
		return nil, fmt.Errorf("duration: PH test requires at least two events, have %d", d)
	}

	// Transformed event times, centered.
	g := make([]float64, d)
	switch transform {
	case IdentityTransform:
		copy(g, sr.Times)
	default:
		// The residuals are ordered by event time; tied times share
		// the mean of their ranks.
		for r := 0; r < d; {
			q := r
			for q < d && sr.Times[q] == sr.Times[r] {
				q++
			}
			mr := float64(r+q-1)/2 + 1
			for i := r; i < q; i++ {
				g[i] = mr
			}
			r = q
		}
	}

	var gbar float64
	for _, v := range g {
		gbar += v
	}
	gbar /= float64(d)

	var gss float64
	for i := range g {
		g[i] -= gbar
		gss += g[i] * g[i]
	}
	if gss == 0 {
		return nil, fmt.Errorf("duration: PH test is degenerate, all transformed event times are equal")
	}

	// u = sum over events of (g - gbar) * Schoenfeld residual
	u := make([]float64, p)
	for r, row := range sr.Resid {
		for j := 0; j < p; j++ {
			u[j] += g[r] * row[j]
		}
	}

	vm := mat.NewDense(p, p, vcov)
	uv := mat.NewVecDense(p, u)

	// vu = V u
	vu := mat.NewVecDense(p, nil)
	vu.MulVec(vm, uv)

	df := float64(d)
	res := &PHTestResult{
		Names:    rslt.Names(),
		Stat:     make([]float64, p),
		PValues:  make([]float64, p),
		GlobalDf: p,
	}

	chi1 := distuv.ChiSquared{K: 1}
	for j := 0; j < p; j++ {
		num := df * vu.AtVec(j)
		res.Stat[j] = num * num / (df * vcov[j*p+j] * gss)
		res.PValues[j] = chi1.Survival(res.Stat[j])
	}

	// Global statistic: d * u' V u / sum((g - gbar)^2)
	res.GlobalStat = df * mat.Dot(uv, vu) / gss
	chip := distuv.ChiSquared{K: float64(p)}
	res.GlobalPValue = chip.Survival(res.GlobalStat)

	return res, nil
}
