package statmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// AIC returns the Akaike information criterion for a model with the
// given maximized log-likelihood and number of estimated parameters.
func AIC(loglike float64, nparams int) float64 {
	return -2*loglike + 2*float64(nparams)
}

// BIC returns the Bayesian information criterion for a model with the
// given maximized log-likelihood and number of estimated parameters,
// fit to nobs observations.
func BIC(loglike float64, nparams, nobs int) float64 {
	return -2*loglike + float64(nparams)*math.Log(float64(nobs))
}

// LRTestResult holds a likelihood ratio test comparing two nested
// models.  The alternative model must contain every term of the null
// model.
type LRTestResult struct {

	// The likelihood ratio chi-square statistic.
	Stat float64

	// Degrees of freedom (difference in parameter counts).
	Df int

	// The p-value of the test.
	PValue float64
}

// LRTest performs a likelihood ratio test of a null (smaller) model
// against a nested alternative (larger) model.
func LRTest(null, alt BaseResultser) (*LRTestResult, error) {

	df := len(alt.Params()) - len(null.Params())
	if df <= 0 {
		return nil, fmt.Errorf("statmodel: LR test requires the alternative model to have more parameters than the null (%d vs %d)",
			len(alt.Params()), len(null.Params()))
	}

	stat := 2 * (alt.LogLike() - null.LogLike())
	if stat < 0 {
		// A nested null cannot fit better than the alternative;
		// tiny negative values are numerical noise.
		stat = 0
	}

	chi2 := distuv.ChiSquared{K: float64(df)}

	return &LRTestResult{
		Stat:   stat,
		Df:     df,
		PValue: chi2.Survival(stat),
	}, nil
}
