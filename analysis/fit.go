package analysis

import (
	"log"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/duration"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// ModelFit holds the outcome of fitting one candidate model.  A fit
// that fails (rank-deficient design, non-convergence) carries its error
// here and is excluded from downstream comparisons.
type ModelFit struct {

	// The model specification that was fit.
	Spec ModelSpec

	// The covariate column names, in term order.
	XNames []string

	// The fitted results, nil if the fit failed.
	Result *duration.PHResults

	// The fit failure, nil if the fit converged.
	Err error
}

// OK reports whether the fit converged.
func (mf *ModelFit) OK() bool {
	return mf.Err == nil && mf.Result != nil
}

// AIC returns the Akaike information criterion of the fit.
func (mf *ModelFit) AIC() float64 {
	return statmodel.AIC(mf.Result.LogLike(), len(mf.Result.Params()))
}

// BIC returns the Bayesian information criterion of the fit.
func (mf *ModelFit) BIC() float64 {
	nobs := mf.Result.Model().NumObs()
	return statmodel.BIC(mf.Result.LogLike(), len(mf.Result.Params()), nobs)
}

// FitCox fits a proportional hazards model for the given specification.
// Failures are captured in the returned ModelFit rather than aborting
// the caller.
func FitCox(ds statmodel.Dataset, spec ModelSpec, logger *log.Logger) *ModelFit {

	mf := &ModelFit{Spec: spec}

	dx, xnames, err := Materialize(ds, spec)
	if err != nil {
		mf.Err = err
		return mf
	}
	mf.XNames = xnames

	config := duration.DefaultPHRegConfig()
	config.Log = logger

	model, err := duration.NewPHReg(dx, spec.Time, spec.Status, xnames, config)
	if err != nil {
		mf.Err = err
		return mf
	}

	rslt, err := model.Fit()
	if err != nil {
		mf.Err = err
		return mf
	}

	mf.Result = rslt
	return mf
}

// FitWeibull fits a Weibull AFT model with the same covariate set as
// the given specification.
func FitWeibull(ds statmodel.Dataset, spec ModelSpec, logger *log.Logger) (*duration.WeibullAFTResults, error) {

	dx, xnames, err := Materialize(ds, spec)
	if err != nil {
		return nil, err
	}

	config := duration.DefaultWeibullAFTConfig()
	config.Log = logger

	model, err := duration.NewWeibullAFT(dx, spec.Time, spec.Status, xnames, config)
	if err != nil {
		return nil, err
	}

	return model.Fit()
}
