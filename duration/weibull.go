package duration

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// WeibullAFT describes a Weibull accelerated failure time model for
// right censored data.  Covariate effects are on the log-time scale;
// the model is fit by maximizing the full likelihood over the
// intercept, the covariate coefficients, and the log of the scale
// parameter.
type WeibullAFT struct {

	// The names of the variables.  The order agrees with the order of 'data'.
	varnames []string

	// The data to which the model is fit
	data [][]statmodel.Dtype

	// Position of the event variable
	statuspos int

	// Position of the time variable
	timepos int

	// The positions of the covariates in the dataset
	xpos []int

	// Starting values, optional
	start []float64

	// Optimization settings
	optsettings *optimize.Settings

	// Optimization method
	optmethod optimize.Method

	log *log.Logger
}

// WeibullAFTConfig defines configuration parameters for a Weibull AFT
// regression.
type WeibullAFTConfig struct {

	// A logger to which diagnostic information is written
	Log *log.Logger

	// Start contains starting values for (intercept, coefficients..., log scale)
	Start []float64

	// OptMethod is the Gonum optimization method used to fit the model.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultWeibullAFTConfig returns a default configuration struct for a
// Weibull AFT regression.
func DefaultWeibullAFTConfig() *WeibullAFTConfig {

	return &WeibullAFTConfig{
		OptMethod: &optimize.BFGS{
			Linesearcher: &optimize.MoreThuente{},
		},
		OptSettings: &optimize.Settings{
			GradientThreshold: 1e-5,
			MajorIterations:   200,
		},
	}
}

// NewWeibullAFT returns a WeibullAFT value that can be used to fit a
// Weibull accelerated failure time model.  All observed times must be
// strictly positive.
func NewWeibullAFT(data statmodel.Dataset, time, status string, predictors []string, config *WeibullAFTConfig) (*WeibullAFT, error) {

	if config == nil {
		config = DefaultWeibullAFTConfig()
	}

	pos := make(map[string]int)
	for i, v := range data.Names() {
		pos[v] = i
	}

	timepos, ok := pos[time]
	if !ok {
		return nil, fmt.Errorf("duration: time variable '%s' not found in dataset", time)
	}

	statuspos, ok := pos[status]
	if !ok {
		return nil, fmt.Errorf("duration: status variable '%s' not found in dataset", status)
	}

	var xpos []int
	for _, xna := range predictors {
		xp, ok := pos[xna]
		if !ok {
			return nil, fmt.Errorf("duration: predictor '%s' not found in dataset", xna)
		}
		xpos = append(xpos, xp)
	}

	wb := &WeibullAFT{
		data:        data.Data(),
		varnames:    data.Names(),
		timepos:     timepos,
		statuspos:   statuspos,
		xpos:        xpos,
		start:       config.Start,
		log:         config.Log,
		optsettings: config.OptSettings,
		optmethod:   config.OptMethod,
	}

	tv := wb.data[timepos]
	sv := wb.data[statuspos]
	for i := range tv {
		if tv[i] <= 0 {
			return nil, fmt.Errorf("duration: time variable '%s' must be positive at row %d for a parametric fit",
				time, i)
		}
		if sv[i] != 0 && sv[i] != 1 {
			return nil, fmt.Errorf("duration: status variable '%s' has value %v at row %d, must be 0 or 1",
				status, sv[i], i)
		}
	}

	return wb, nil
}

// NumObs returns the number of observations in the data set.
func (wb *WeibullAFT) NumObs() int {
	return len(wb.data[0])
}

// NumParams returns the number of model parameters: the intercept, one
// coefficient per covariate, and the log scale.
func (wb *WeibullAFT) NumParams() int {
	return len(wb.xpos) + 2
}

// Dataset returns the data columns that are used to fit the model.
func (wb *WeibullAFT) Dataset() [][]statmodel.Dtype {
	return wb.data
}

// Xpos returns the positions of the covariates in the model's dataset.
func (wb *WeibullAFT) Xpos() []int {
	return wb.xpos
}

// paramNames returns the parameter names in estimation order.
func (wb *WeibullAFT) paramNames() []string {
	names := []string{"(Intercept)"}
	for _, k := range wb.xpos {
		names = append(names, wb.varnames[k])
	}
	return append(names, "log(scale)")
}

// zvalues fills z with the standardized log-time residuals at the given
// parameter values: z[i] = (log t[i] - intercept - x[i]'beta) / scale.
func (wb *WeibullAFT) zvalues(params []float64, z []float64) {

	p := len(wb.xpos)
	b0 := params[0]
	scale := math.Exp(params[p+1])

	time := wb.data[wb.timepos]
	for i := range z {
		lp := b0
		for j, k := range wb.xpos {
			lp += params[j+1] * float64(wb.data[k][i])
		}
		z[i] = (math.Log(float64(time[i])) - lp) / scale
	}
}

// LogLike returns the log-likelihood at the given parameter value.  The
// 'exact' parameter is ignored here.
func (wb *WeibullAFT) LogLike(param statmodel.Parameter, exact bool) float64 {

	params := param.GetCoeff()
	p := len(wb.xpos)
	logscale := params[p+1]

	z := make([]float64, wb.NumObs())
	wb.zvalues(params, z)

	status := wb.data[wb.statuspos]

	var ll float64
	for i := range z {
		if status[i] == 1 {
			ll += z[i] - logscale
		}
		ll -= math.Exp(z[i])
	}

	return ll
}

// Score computes the score vector at the given parameter setting.
func (wb *WeibullAFT) Score(param statmodel.Parameter, score []float64) {

	params := param.GetCoeff()
	p := len(wb.xpos)
	scale := math.Exp(params[p+1])

	z := make([]float64, wb.NumObs())
	wb.zvalues(params, z)

	status := wb.data[wb.statuspos]

	zero(score)
	for i := range z {
		a := float64(status[i]) - math.Exp(z[i])
		score[0] -= a / scale
		for j, k := range wb.xpos {
			score[j+1] -= a * float64(wb.data[k][i]) / scale
		}
		score[p+1] -= a*z[i] + float64(status[i])
	}
}

// Hessian computes the Hessian matrix at the given parameter setting.
// The Hessian type parameter is not used here.
func (wb *WeibullAFT) Hessian(param statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	params := param.GetCoeff()
	p := len(wb.xpos)
	np := p + 2
	scale := math.Exp(params[p+1])

	z := make([]float64, wb.NumObs())
	wb.zvalues(params, z)

	status := wb.data[wb.statuspos]

	zero(hess)

	// xv holds the design row, with the implicit intercept column.
	xv := make([]float64, p+1)
	xv[0] = 1

	for i := range z {
		e := math.Exp(z[i])
		a := float64(status[i]) - e

		for j, k := range wb.xpos {
			xv[j+1] = float64(wb.data[k][i])
		}

		// Coefficient block
		for j1 := 0; j1 <= p; j1++ {
			for j2 := 0; j2 <= j1; j2++ {
				u := -e * xv[j1] * xv[j2] / (scale * scale)
				hess[j1*np+j2] += u
				if j1 != j2 {
					hess[j2*np+j1] += u
				}
			}
		}

		// Coefficient / log-scale cross terms
		c := (a - e*z[i]) / scale
		for j := 0; j <= p; j++ {
			hess[j*np+p+1] += c * xv[j]
			hess[(p+1)*np+j] += c * xv[j]
		}

		// Log-scale diagonal
		hess[(p+1)*np+p+1] += z[i] * (a - e*z[i])
	}
}

// WeibullAFTResults describes the results of a fitted Weibull AFT model.
type WeibullAFTResults struct {
	statmodel.BaseResults
}

// Fit fits the model to the data.  A *FitError is returned if the
// optimizer does not converge within its iteration budget, or if the
// design matrix is rank deficient.
func (wb *WeibullAFT) Fit() (*WeibullAFTResults, error) {

	np := wb.NumParams()
	names := wb.paramNames()

	start := wb.start
	if start == nil {
		// Anchor the intercept at the mean log time.
		start = make([]float64, np)
		time := wb.data[wb.timepos]
		var m float64
		for i := range time {
			m += math.Log(float64(time[i]))
		}
		start[0] = m / float64(len(time))
	}

	prob := optimize.Problem{
		Func: func(x []float64) float64 {
			return -wb.LogLike(&PHParameter{x}, false)
		},
		Grad: func(grad, x []float64) {
			if len(grad) != len(x) {
				grad = make([]float64, len(x))
			}
			wb.Score(&PHParameter{x}, grad)
			negative(grad)
		},
	}

	settings := wb.optsettings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-5,
			MajorIterations:   200,
		}
	}

	optrslt, err := optimize.Minimize(prob, start, settings, wb.optmethod)
	if err != nil {
		return nil, &FitError{Terms: names, Reason: "optimizer did not converge", Err: err}
	}
	if err := optrslt.Status.Err(); err != nil {
		return nil, &FitError{Terms: names, Reason: "optimizer terminated abnormally", Err: err}
	}

	param := make([]float64, len(optrslt.X))
	copy(param, optrslt.X)

	for _, x := range param {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &FitError{Terms: names, Reason: "estimates are not finite"}
		}
	}

	ll := -optrslt.F
	vcov, err := statmodel.GetVcov(wb, &PHParameter{param})
	if err != nil {
		return nil, &FitError{Terms: names, Reason: "design matrix is rank deficient", Err: err}
	}

	results := &WeibullAFTResults{
		BaseResults: statmodel.NewBaseResults(wb, ll, param, names, vcov),
	}

	return results, nil
}

// Intercept returns the estimated intercept on the log-time scale.
func (rslt *WeibullAFTResults) Intercept() float64 {
	return rslt.Params()[0]
}

// Scale returns the estimated Weibull scale parameter.
func (rslt *WeibullAFTResults) Scale() float64 {
	params := rslt.Params()
	return math.Exp(params[len(params)-1])
}

// CovNames returns the names of the model covariates, excluding the
// intercept and the scale parameter.
func (rslt *WeibullAFTResults) CovNames() []string {
	names := rslt.Names()
	return names[1 : len(names)-1]
}

// AFTCoeff returns the covariate coefficients on the log-time scale,
// excluding the intercept and the scale parameter.
func (rslt *WeibullAFTResults) AFTCoeff() []float64 {
	params := rslt.Params()
	return params[1 : len(params)-1]
}

// AFTToPH converts an accelerated failure time coefficient to the
// proportional hazards (log hazard ratio) scale.  The two models
// parameterize covariate effects in opposite directions, so the sign
// flips and the effect is rescaled by the Weibull scale parameter.
func AFTToPH(coef, scale float64) float64 {
	return -coef / scale
}

// PHCoeff returns the covariate coefficients converted to the
// proportional hazards scale.
func (rslt *WeibullAFTResults) PHCoeff() []float64 {

	scale := rslt.Scale()
	aft := rslt.AFTCoeff()

	ph := make([]float64, len(aft))
	for j, c := range aft {
		ph[j] = AFTToPH(c, scale)
	}

	return ph
}

// PHCoeffByName returns the proportional-hazards-scale coefficient of
// the named covariate.
func (rslt *WeibullAFTResults) PHCoeffByName(name string) (float64, error) {

	for j, na := range rslt.CovNames() {
		if na == name {
			return rslt.PHCoeff()[j], nil
		}
	}

	return 0, fmt.Errorf("duration: term '%s' not present in fitted model", name)
}

// Survival returns the model survival probability at time t for a
// subject with the given covariate values, which must align with the
// model covariates.
func (rslt *WeibullAFTResults) Survival(t float64, x []float64) float64 {

	if t <= 0 {
		return 1
	}

	params := rslt.Params()
	lp := params[0]
	for j, v := range x {
		lp += params[j+1] * v
	}

	z := (math.Log(t) - lp) / rslt.Scale()
	return math.Exp(-math.Exp(z))
}

// SurvivalCurve evaluates the model survival function on a time grid
// for a subject with the given covariate values.
func (rslt *WeibullAFTResults) SurvivalCurve(times []float64, x []float64) []float64 {

	s := make([]float64, len(times))
	for i, t := range times {
		s[i] = rslt.Survival(t, x)
	}
	return s
}

// MartingaleResiduals returns the martingale residual for each subject:
// the event indicator minus the fitted cumulative hazard at the
// observed time.
func (rslt *WeibullAFTResults) MartingaleResiduals() []float64 {

	wb := rslt.Model().(*WeibullAFT)

	z := make([]float64, wb.NumObs())
	wb.zvalues(rslt.Params(), z)

	status := wb.data[wb.statuspos]

	mr := make([]float64, len(z))
	for i := range z {
		mr[i] = float64(status[i]) - math.Exp(z[i])
	}

	return mr
}

// DevianceResiduals returns the deviance residual for each subject,
// analogous to the deviance residuals of a proportional hazards model.
func (rslt *WeibullAFTResults) DevianceResiduals() []float64 {

	wb := rslt.Model().(*WeibullAFT)
	status := wb.data[wb.statuspos]

	mr := rslt.MartingaleResiduals()

	dr := make([]float64, len(mr))
	for i, m := range mr {
		dr[i] = devianceFromMartingale(m, float64(status[i]))
	}

	return dr
}
