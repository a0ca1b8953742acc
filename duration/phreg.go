// Package duration supports statistical analysis of right censored
// duration data (survival analysis).
package duration

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// TieMethod selects how tied event times are handled in the partial
// likelihood.
type TieMethod int

const (
	// EfronTies resolves tied event times with Efron's approximation.
	EfronTies TieMethod = iota

	// BreslowTies resolves tied event times with Breslow's approximation.
	BreslowTies
)

// String returns the name of the tie method.
func (t TieMethod) String() string {
	switch t {
	case EfronTies:
		return "Efron"
	case BreslowTies:
		return "Breslow"
	}
	return fmt.Sprintf("TieMethod(%d)", int(t))
}

// PHParameter contains a parameter value for a proportional hazards
// regression model.
type PHParameter struct {
	coeff []float64
}

// GetCoeff returns the array of model coefficients from a parameter value.
func (p *PHParameter) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the array of model coefficients for a parameter value.
func (p *PHParameter) SetCoeff(x []float64) {
	p.coeff = x
}

// Clone returns a deep copy of the parameter value.
func (p *PHParameter) Clone() statmodel.Parameter {
	q := make([]float64, len(p.coeff))
	copy(q, p.coeff)
	return &PHParameter{q}
}

// FitError describes a model fit that could not be completed, either
// because the optimizer failed to converge within its iteration budget
// or because the design matrix is rank deficient.
type FitError struct {

	// The covariate names of the model being fit.
	Terms []string

	// A short description of what failed.
	Reason string

	// The underlying error, if any.
	Err error
}

func (e *FitError) Error() string {
	msg := fmt.Sprintf("duration: fit of model [%s] failed: %s", strings.Join(e.Terms, " + "), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// PHReg describes a proportional hazards regression model for right
// censored data.  A model with no covariates (a null model) is
// permitted, in which case only the baseline hazard is estimated.
type PHReg struct {

	// The names of the variables.  The order agrees with the order of 'data'.
	varnames []string

	// The data to which the model is fit
	data [][]statmodel.Dtype

	// Starting values, optional
	start []float64

	// Position of the event variable
	statuspos int

	// Position of the time variable
	timepos int

	// Tie handling method
	ties TieMethod

	// The sorted distinct times at which events occur
	etimes []float64

	// enter[j] are the row indices that enter the risk set at
	// the jth distinct event time
	enter [][]int

	// event[j] are the row indices that have an event at
	// the jth distinct event time
	event [][]int

	// exit[j] are the row indices that exit the risk set at
	// the jth distinct event time
	exit [][]int

	// The sum of covariates over cases with events
	sumx []float64

	// The positions of the covariates in the dataset
	xpos []int

	// If skip[i] is true, case i is skipped since it is censored before the first event.
	skip []bool

	// The number of cases that are skipped because they are censored before the first event
	skipEarlyCensor int

	// Optimization settings
	optsettings *optimize.Settings

	// Optimization method
	optmethod optimize.Method

	log *log.Logger

	nslices [][]float64
}

// NumObs returns the number of observations in the data set.
func (ph *PHReg) NumObs() int {
	return len(ph.data[0])
}

// NumParams returns the number of model parameters (regression coefficients).
func (ph *PHReg) NumParams() int {
	return len(ph.xpos)
}

// NumEvents returns the number of observed (uncensored) events.
func (ph *PHReg) NumEvents() int {
	var e int
	status := ph.data[ph.statuspos]
	for i := range status {
		if !ph.skip[i] && status[i] == 1 {
			e++
		}
	}
	return e
}

// Dataset returns the data columns that are used to fit the model.
func (ph *PHReg) Dataset() [][]statmodel.Dtype {
	return ph.data
}

// Xpos returns the positions of the covariates in the model's dataset.
func (ph *PHReg) Xpos() []int {
	return ph.xpos
}

// Ties returns the tie handling method used by the model.
func (ph *PHReg) Ties() TieMethod {
	return ph.ties
}

// PHRegConfig defines configuration parameters for a proportional
// hazards regression.
type PHRegConfig struct {

	// A logger to which diagnostic information is written
	Log *log.Logger

	// Start contains starting values for the regression parameter estimates
	Start []float64

	// Ties selects the tie handling method.  The zero value is Efron.
	Ties TieMethod

	// OptMethod is the Gonum optimization method used to fit the model.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.  The
	// default settings bound the number of iterations.
	OptSettings *optimize.Settings
}

// DefaultPHRegConfig returns a default configuration struct for a
// proportional hazards regression.
func DefaultPHRegConfig() *PHRegConfig {

	return &PHRegConfig{
		Ties: EfronTies,
		OptMethod: &optimize.BFGS{
			Linesearcher: &optimize.MoreThuente{},
		},
		OptSettings: &optimize.Settings{
			GradientThreshold: 1e-5,
			MajorIterations:   200,
		},
	}
}

// NewPHReg returns a PHReg value that can be used to fit a
// proportional hazards regression model.  The predictors may be empty,
// yielding a null model with no covariates.
func NewPHReg(data statmodel.Dataset, time, status string, predictors []string, config *PHRegConfig) (*PHReg, error) {

	if config == nil {
		config = DefaultPHRegConfig()
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

	if len(xpos) >= data.NumObs() {
		return nil, fmt.Errorf("duration: model has %d terms but only %d observations", len(xpos), data.NumObs())
	}

	ph := &PHReg{
		data:        data.Data(),
		varnames:    data.Names(),
		timepos:     timepos,
		statuspos:   statuspos,
		xpos:        xpos,
		ties:        config.Ties,
		start:       config.Start,
		log:         config.Log,
		optsettings: config.OptSettings,
		optmethod:   config.OptMethod,
	}

	if err := ph.validate(); err != nil {
		return nil, err
	}

	ph.setupTimes()
	ph.setupCovs()

	return ph, nil
}

func (ph *PHReg) validate() error {

	time := ph.data[ph.timepos]
	status := ph.data[ph.statuspos]

	for i := range time {
		if time[i] < 0 {
			return fmt.Errorf("duration: time variable '%s' is negative at row %d",
				ph.varnames[ph.timepos], i)
		}
		if status[i] != 0 && status[i] != 1 {
			return fmt.Errorf("duration: status variable '%s' has value %v at row %d, must be 0 or 1",
				ph.varnames[ph.statuspos], status[i], i)
		}
	}

	return nil
}

func (ph *PHReg) setupTimes() {

	time := ph.data[ph.timepos]
	status := ph.data[ph.statuspos]
	nobs := len(time)

	// Track cases that are omitted since they are censored before
	// the first event.
	ph.skip = make([]bool, nobs)

	// Get the sorted distinct times where events occur
	var et []float64
	for i := range time {
		if status[i] == 1 {
			et = append(et, float64(time[i]))
		}
	}

	if len(et) > 0 {
		sort.Float64s(et)

		// Deduplicate
		j := 0
		for i := 1; i < len(et); i++ {
			if et[i] != et[j] {
				j++
				et[j] = et[i]
			}
		}
		et = et[0 : j+1]
	}
	ph.etimes = et

	// Indices of cases that enter or exit the risk set,
	// or have an event at each time point.
	ph.enter = make([][]int, len(et))
	ph.exit = make([][]int, len(et))
	ph.event = make([][]int, len(et))

	if len(et) == 0 {
		return
	}

	// Risk set exit times
	for i := range time {
		ii := sort.SearchFloat64s(et, float64(time[i]))
		if ii < len(et) {
			if et[ii] == float64(time[i]) {
				// Event or censored at an event time
				ph.exit[ii] = append(ph.exit[ii], i)
			} else if ii == 0 {
				// Censored before first event, never enters
				ph.skip[i] = true
				ph.skipEarlyCensor++
			} else {
				// Censored between event times
				ph.exit[ii-1] = append(ph.exit[ii-1], i)
			}
		}
	}

	// Event times
	for i := range time {
		if status[i] == 0 || ph.skip[i] {
			continue
		}
		ii := sort.SearchFloat64s(et, float64(time[i]))
		ph.event[ii] = append(ph.event[ii], i)
	}

	// Everyone enters at time 0
	for i := range time {
		if !ph.skip[i] {
			ph.enter[0] = append(ph.enter[0], i)
		}
	}
}

func (ph *PHReg) setupCovs() {

	status := ph.data[ph.statuspos]

	// Get the sum of covariates over cases with the event
	ph.sumx = make([]float64, len(ph.xpos))
	for j, k := range ph.xpos {
		x := ph.data[k]
		for i := range x {
			if !ph.skip[i] && status[i] == 1 {
				ph.sumx[j] += float64(x[i])
			}
		}
	}
}

func (ph *PHReg) putNslice(x []float64) {
	ph.nslices = append(ph.nslices, x)
}

func (ph *PHReg) getNslice() []float64 {

	if len(ph.nslices) == 0 {
		return make([]float64, ph.NumObs())
	}
	q := len(ph.nslices) - 1
	x := ph.nslices[q]
	zero(x)
	ph.nslices = ph.nslices[0:q]

	return x
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

func negative(x []float64) {
	for i := 0; i < len(x); i++ {
		x[i] *= -1
	}
}

// linpred fills lp with the linear predictor at the given parameter values.
func (ph *PHReg) linpred(params []float64, lp []float64) {
	zero(lp)
	for j, k := range ph.xpos {
		x := ph.data[k]
		for i := range x {
			lp[i] += float64(x[i]) * params[j]
		}
	}
}

// LogLike returns the log partial likelihood at the given parameter
// value.  The 'exact' parameter is ignored here.
func (ph *PHReg) LogLike(param statmodel.Parameter, exact bool) float64 {

	coeff := param.GetCoeff()

	if ph.ties == BreslowTies {
		return ph.breslowLogLike(coeff)
	}
	return ph.efronLogLike(coeff)
}

// breslowLogLike returns the log partial likelihood at the given
// parameter values, using the Breslow method to resolve ties.
func (ph *PHReg) breslowLogLike(params []float64) float64 {

	lp := ph.getNslice()
	elp := ph.getNslice()

	ph.linpred(params, lp)

	// We can add any constant here due to invariance in
	// the partial likelihood.
	mx := floats.Max(lp)
	for i := range lp {
		lp[i] -= mx
		elp[i] = math.Exp(lp[i])
	}

	ql := float64(0)
	rlp := float64(0)
	for k := 0; k < len(ph.etimes); k++ {

		// Update for new entries
		for _, i := range ph.enter[k] {
			rlp += elp[i]
		}

		for _, i := range ph.event[k] {
			ql += lp[i]
		}
		ql -= float64(len(ph.event[k])) * math.Log(rlp)

		// Update for new exits
		for _, i := range ph.exit[k] {
			rlp -= elp[i]
		}
	}

	ph.putNslice(lp)
	ph.putNslice(elp)

	return ql
}

// efronLogLike returns the log partial likelihood at the given
// parameter values, using the Efron method to resolve ties.
func (ph *PHReg) efronLogLike(params []float64) float64 {

	lp := ph.getNslice()
	elp := ph.getNslice()

	ph.linpred(params, lp)

	mx := floats.Max(lp)
	for i := range lp {
		lp[i] -= mx
		elp[i] = math.Exp(lp[i])
	}

	ql := float64(0)
	rlp := float64(0)
	for k := 0; k < len(ph.etimes); k++ {

		for _, i := range ph.enter[k] {
			rlp += elp[i]
		}

		// Sum of risk scores over the tied events at this time
		var dlp float64
		for _, i := range ph.event[k] {
			ql += lp[i]
			dlp += elp[i]
		}

		d := float64(len(ph.event[k]))
		for l := 0; l < len(ph.event[k]); l++ {
			ql -= math.Log(rlp - float64(l)*dlp/d)
		}

		for _, i := range ph.exit[k] {
			rlp -= elp[i]
		}
	}

	ph.putNslice(lp)
	ph.putNslice(elp)

	return ql
}

// Score computes the score vector for the proportional hazards
// regression model at the given parameter setting.
func (ph *PHReg) Score(params statmodel.Parameter, score []float64) {

	coeff := params.GetCoeff()

	if ph.ties == BreslowTies {
		ph.breslowScore(coeff, score)
		return
	}
	ph.efronScore(coeff, score)
}

// breslowScore calculates the score vector at the given parameter
// values, using the Breslow approach to resolving ties.
func (ph *PHReg) breslowScore(params, score []float64) {

	zero(score)

	lp := ph.getNslice()
	ph.linpred(params, lp)

	floats.Add(score, ph.sumx)

	mx := floats.Max(lp)
	for i := range lp {
		lp[i] = math.Exp(lp[i] - mx)
	}

	rlp := float64(0)
	rlpv := make([]float64, len(ph.xpos))
	for q := range ph.etimes {

		// Update for new entries
		for _, i := range ph.enter[q] {
			rlp += lp[i]
			for j, k := range ph.xpos {
				rlpv[j] += lp[i] * float64(ph.data[k][i])
			}
		}

		d := float64(len(ph.event[q]))
		floats.AddScaledTo(score, score, -d/rlp, rlpv)

		// Update for new exits
		for _, i := range ph.exit[q] {
			rlp -= lp[i]
			for j, k := range ph.xpos {
				rlpv[j] -= lp[i] * float64(ph.data[k][i])
			}
		}
	}

	ph.putNslice(lp)
}

// efronScore calculates the score vector at the given parameter
// values, using the Efron approach to resolving ties.
func (ph *PHReg) efronScore(params, score []float64) {

	zero(score)

	lp := ph.getNslice()
	ph.linpred(params, lp)

	floats.Add(score, ph.sumx)

	mx := floats.Max(lp)
	for i := range lp {
		lp[i] = math.Exp(lp[i] - mx)
	}

	p := len(ph.xpos)
	rlp := float64(0)
	rlpv := make([]float64, p)
	dlpv := make([]float64, p)
	for q := range ph.etimes {

		for _, i := range ph.enter[q] {
			rlp += lp[i]
			for j, k := range ph.xpos {
				rlpv[j] += lp[i] * float64(ph.data[k][i])
			}
		}

		// Sums over the tied events at this time
		var dlp float64
		zero(dlpv)
		for _, i := range ph.event[q] {
			dlp += lp[i]
			for j, k := range ph.xpos {
				dlpv[j] += lp[i] * float64(ph.data[k][i])
			}
		}

		d := float64(len(ph.event[q]))
		for l := 0; l < len(ph.event[q]); l++ {
			f := float64(l) / d
			den := rlp - f*dlp
			for j := 0; j < p; j++ {
				score[j] -= (rlpv[j] - f*dlpv[j]) / den
			}
		}

		for _, i := range ph.exit[q] {
			rlp -= lp[i]
			for j, k := range ph.xpos {
				rlpv[j] -= lp[i] * float64(ph.data[k][i])
			}
		}
	}

	ph.putNslice(lp)
}

// Hessian computes the Hessian matrix for the model evaluated at the
// given parameter setting.  The Hessian type parameter is not used
// here.
func (ph *PHReg) Hessian(params statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	coeff := params.GetCoeff()

	if ph.ties == BreslowTies {
		ph.breslowHess(coeff, hess)
		return
	}
	ph.efronHess(coeff, hess)
}

// breslowHess calculates the Hessian matrix at the given parameter
// values, using the Breslow approach to resolving ties.
func (ph *PHReg) breslowHess(params []float64, hess []float64) {

	zero(hess)

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	mx := floats.Max(lp)
	for i := range lp {
		lp[i] = math.Exp(lp[i] - mx)
	}

	p := len(ph.xpos)
	d1s := make([]float64, p)
	d2s := make([]float64, p*p)

	rlp := float64(0)
	for k := 0; k < len(ph.etimes); k++ {

		// Update for new entries
		for _, i := range ph.enter[k] {

			rlp += lp[i]

			for j1, k1 := range ph.xpos {
				x1 := ph.data[k1]
				d1s[j1] += lp[i] * float64(x1[i])
				for j2 := 0; j2 <= j1; j2++ {
					k2 := ph.xpos[j2]
					x2 := ph.data[k2]
					u := lp[i] * float64(x1[i]*x2[i])
					d2s[j1*p+j2] += u
					if j2 != j1 {
						d2s[j2*p+j1] += u
					}
				}
			}
		}

		d := float64(len(ph.event[k]))

		jj := 0
		for j1 := 0; j1 < p; j1++ {
			for j2 := 0; j2 < p; j2++ {
				hess[jj] -= d * d2s[j1*p+j2] / rlp
				hess[jj] += d * d1s[j1] * d1s[j2] / (rlp * rlp)
				jj++
			}
		}

		// Update for new exits
		for _, i := range ph.exit[k] {

			rlp -= lp[i]
			for j1, k1 := range ph.xpos {
				x1 := ph.data[k1]
				d1s[j1] -= lp[i] * float64(x1[i])
				for j2 := 0; j2 <= j1; j2++ {
					k2 := ph.xpos[j2]
					x2 := ph.data[k2]
					u := lp[i] * float64(x1[i]*x2[i])
					d2s[j1*p+j2] -= u
					if j2 != j1 {
						d2s[j2*p+j1] -= u
					}
				}
			}
		}
	}
}

// efronHess calculates the Hessian matrix at the given parameter
// values, using the Efron approach to resolving ties.
func (ph *PHReg) efronHess(params []float64, hess []float64) {

	zero(hess)

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	mx := floats.Max(lp)
	for i := range lp {
		lp[i] = math.Exp(lp[i] - mx)
	}

	p := len(ph.xpos)
	d1s := make([]float64, p)
	d2s := make([]float64, p*p)
	e1s := make([]float64, p)
	e2s := make([]float64, p*p)

	rlp := float64(0)
	for k := 0; k < len(ph.etimes); k++ {

		for _, i := range ph.enter[k] {

			rlp += lp[i]

			for j1, k1 := range ph.xpos {
				x1 := ph.data[k1]
				d1s[j1] += lp[i] * float64(x1[i])
				for j2 := 0; j2 <= j1; j2++ {
					k2 := ph.xpos[j2]
					x2 := ph.data[k2]
					u := lp[i] * float64(x1[i]*x2[i])
					d2s[j1*p+j2] += u
					if j2 != j1 {
						d2s[j2*p+j1] += u
					}
				}
			}
		}

		// Sums over the tied events at this time
		var dlp float64
		zero(e1s)
		zero(e2s)
		for _, i := range ph.event[k] {
			dlp += lp[i]
			for j1, k1 := range ph.xpos {
				x1 := ph.data[k1]
				e1s[j1] += lp[i] * float64(x1[i])
				for j2 := 0; j2 <= j1; j2++ {
					k2 := ph.xpos[j2]
					x2 := ph.data[k2]
					u := lp[i] * float64(x1[i]*x2[i])
					e2s[j1*p+j2] += u
					if j2 != j1 {
						e2s[j2*p+j1] += u
					}
				}
			}
		}

		d := float64(len(ph.event[k]))
		for l := 0; l < len(ph.event[k]); l++ {
			f := float64(l) / d
			den := rlp - f*dlp
			jj := 0
			for j1 := 0; j1 < p; j1++ {
				m1 := d1s[j1] - f*e1s[j1]
				for j2 := 0; j2 < p; j2++ {
					m2 := d1s[j2] - f*e1s[j2]
					hess[jj] -= (d2s[j1*p+j2] - f*e2s[j1*p+j2]) / den
					hess[jj] += m1 * m2 / (den * den)
					jj++
				}
			}
		}

		for _, i := range ph.exit[k] {

			rlp -= lp[i]
			for j1, k1 := range ph.xpos {
				x1 := ph.data[k1]
				d1s[j1] -= lp[i] * float64(x1[i])
				for j2 := 0; j2 <= j1; j2++ {
					k2 := ph.xpos[j2]
					x2 := ph.data[k2]
					u := lp[i] * float64(x1[i]*x2[i])
					d2s[j1*p+j2] -= u
					if j2 != j1 {
						d2s[j2*p+j1] -= u
					}
				}
			}
		}
	}
}

// BaselineCumHaz returns the sorted distinct event times and the
// estimated cumulative baseline hazard through each event time, at the
// given parameter values.  The estimator matches the model's tie
// handling method.
func (ph *PHReg) BaselineCumHaz(params []float64) ([]float64, []float64) {

	h0 := ph.baselineHazIncrements(params)

	ch := make([]float64, len(h0))
	var c float64
	for k := range h0 {
		c += h0[k]
		ch[k] = c
	}

	return ph.etimes, ch
}

// baselineHazIncrements returns the baseline hazard increment at each
// distinct event time.
func (ph *PHReg) baselineHazIncrements(params []float64) []float64 {

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)
	for i := range lp {
		lp[i] = math.Exp(lp[i])
	}

	h0 := make([]float64, len(ph.etimes))

	rlp := float64(0)
	for k := range ph.etimes {

		for _, i := range ph.enter[k] {
			rlp += lp[i]
		}

		d := float64(len(ph.event[k]))
		switch ph.ties {
		case BreslowTies:
			h0[k] = d / rlp
		default:
			var dlp float64
			for _, i := range ph.event[k] {
				dlp += lp[i]
			}
			for l := 0; l < len(ph.event[k]); l++ {
				h0[k] += 1 / (rlp - float64(l)*dlp/d)
			}
		}

		for _, i := range ph.exit[k] {
			rlp -= lp[i]
		}
	}

	return h0
}

// PHResults describes the results of a proportional hazards model.
type PHResults struct {
	statmodel.BaseResults
}

// xnames returns the names of the covariates in the model.
func (ph *PHReg) xnames() []string {
	var xna []string
	for _, k := range ph.xpos {
		xna = append(xna, ph.varnames[k])
	}
	return xna
}

// failDiagnostics logs information that can help diagnose optimization failures.
func (ph *PHReg) failDiagnostics(optrslt *optimize.Result) {

	if ph.log == nil {
		return
	}

	ph.log.Print("Current point and gradient:")
	for j, x := range optrslt.X {
		na := ph.varnames[ph.xpos[j]]
		ph.log.Printf("%16.8f %16.8f %s", x, optrslt.Gradient[j], na)
	}

	mn := make([]float64, len(ph.xpos))
	sd := make([]float64, len(ph.xpos))
	nobs := float64(ph.NumObs())

	for j, k := range ph.xpos {
		x := ph.data[k]
		for i := range x {
			mn[j] += float64(x[i])
		}
		mn[j] /= nobs
		for i := range x {
			u := float64(x[i]) - mn[j]
			sd[j] += u * u
		}
		sd[j] = math.Sqrt(sd[j] / nobs)
	}

	ph.log.Print("Covariate means and standard deviations:")
	for j, m := range mn {
		ph.log.Printf("%16.8f %16.8f %s", m, sd[j], ph.varnames[ph.xpos[j]])
	}
}

// Fit fits the model to the data.  A *FitError is returned if the
// optimizer does not converge within its iteration budget, or if the
// design matrix is rank deficient.
func (ph *PHReg) Fit() (*PHResults, error) {

	nvar := len(ph.xpos)
	xna := ph.xnames()

	if nvar == 0 {
		// Null model, nothing to optimize.
		ll := ph.LogLike(&PHParameter{nil}, false)
		results := &PHResults{
			BaseResults: statmodel.NewBaseResults(ph, ll, nil, nil, nil),
		}
		return results, nil
	}

	if ph.start == nil {
		ph.start = make([]float64, nvar)
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -ph.LogLike(&PHParameter{x}, false)
		},
		Grad: func(grad, x []float64) {
			if len(grad) != len(x) {
				grad = make([]float64, len(x))
			}
			ph.Score(&PHParameter{x}, grad)
			negative(grad)
		},
	}

	settings := ph.optsettings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-5,
			MajorIterations:   200,
		}
	}

	optrslt, err := optimize.Minimize(p, ph.start, settings, ph.optmethod)
	if err != nil {
		if optrslt != nil {
			ph.failDiagnostics(optrslt)
		}
		return nil, &FitError{Terms: xna, Reason: "optimizer did not converge", Err: err}
	}
	if err := optrslt.Status.Err(); err != nil {
		return nil, &FitError{Terms: xna, Reason: "optimizer terminated abnormally", Err: err}
	}

	param := make([]float64, len(optrslt.X))
	copy(param, optrslt.X)

	for _, x := range param {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &FitError{Terms: xna, Reason: "estimates are not finite"}
		}
	}

	ll := -optrslt.F
	vcov, err := statmodel.GetVcov(ph, &PHParameter{param})
	if err != nil {
		return nil, &FitError{Terms: xna, Reason: "design matrix is rank deficient", Err: err}
	}

	results := &PHResults{
		BaseResults: statmodel.NewBaseResults(ph, ll, param, xna, vcov),
	}

	return results, nil
}

// PHSummary summarizes a fitted proportional hazards regression model.
type PHSummary struct {

	// The model
	ph *PHReg

	// The results structure
	results *PHResults

	// Messages that are appended to the table
	messages []string
}

// Summary displays a summary table of the model results.
func (rslt *PHResults) Summary() *PHSummary {

	ph := rslt.Model().(*PHReg)

	return &PHSummary{
		ph:      ph,
		results: rslt,
	}
}

// String returns a string representation of a summary table for the model.
func (phs *PHSummary) String() string {

	ph := phs.ph
	sum := &statmodel.SummaryTable{
		Msg: phs.messages,
	}

	sum.Title = "Proportional hazards regression analysis"

	if ph.NumParams() == 0 {
		return fmt.Sprintf("%s\nNull model: %d observations, %d events, %s ties, log-likelihood %.4f\n",
			sum.Title, ph.NumObs(), ph.NumEvents(), ph.ties, phs.results.LogLike())
	}

	sum.Top = append(sum.Top, fmt.Sprintf("  Sample size: %10d", ph.NumObs()))
	sum.Top = append(sum.Top, fmt.Sprintf("  Events:      %10d", ph.NumEvents()))
	sum.Top = append(sum.Top, fmt.Sprintf("  Ties:        %10s", ph.ties))

	fs := func(x interface{}, h string) []string {
		y := x.([]string)
		m := len(h)
		for i := range y {
			if len(y[i]) > m {
				m = len(y[i])
			}
		}
		var z []string
		for i := range y {
			c := fmt.Sprintf("%%-%ds", m)
			z = append(z, fmt.Sprintf(c, y[i]))
		}
		return z
	}

	fn := func(x interface{}, h string) []string {
		y := x.([]float64)
		var s []string
		for i := range y {
			s = append(s, fmt.Sprintf("%10.4f", y[i]))
		}
		return s
	}

	var hr []float64
	for j := range phs.results.Params() {
		hr = append(hr, math.Exp(phs.results.Params()[j]))
	}

	if phs.results.StdErr() != nil {
		sum.ColNames = []string{"Variable   ", "Coefficient", "SE", "HR", "LCB", "UCB", "Z-score", "P-value"}
		sum.ColFmt = []statmodel.Fmter{fs, fn, fn, fn, fn, fn, fn, fn}

		// Create estimate and CI for the hazard ratio
		var lcb, ucb []float64
		for j := range phs.results.Params() {
			lcb = append(lcb, math.Exp(phs.results.Params()[j]-2*phs.results.StdErr()[j]))
			ucb = append(ucb, math.Exp(phs.results.Params()[j]+2*phs.results.StdErr()[j]))
		}
		sum.Cols = []interface{}{phs.results.Names(), phs.results.Params(), phs.results.StdErr(), hr, lcb, ucb,
			phs.results.ZScores(), phs.results.PValues()}
	} else {
		sum.ColNames = []string{"Variable   ", "Coefficient", "HR"}
		sum.ColFmt = []statmodel.Fmter{fs, fn, fn}
		sum.Cols = []interface{}{phs.results.Names(), phs.results.Params(), hr}
	}

	if ph.skipEarlyCensor > 0 {
		msg := fmt.Sprintf("%d observations dropped for being censored before the first event", ph.skipEarlyCensor)
		sum.Msg = append(sum.Msg, msg)
	}

	return sum.String()
}
