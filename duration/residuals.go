package duration

import (
	"fmt"
	"math"
	"sort"
)

// chIndex returns the index of the last distinct event time that is
// less than or equal to t, or -1 if t precedes the first event.
func (ph *PHReg) chIndex(t float64) int {
	ii := sort.SearchFloat64s(ph.etimes, t)
	if ii < len(ph.etimes) && ph.etimes[ii] == t {
		return ii
	}
	return ii - 1
}

// MartingaleResiduals returns the martingale residual for each subject:
// the observed event indicator minus the model-expected number of
// events through the subject's observed time.  The residuals are
// aligned with the rows of the dataset used to fit the model.
func (rslt *PHResults) MartingaleResiduals() []float64 {

	ph := rslt.Model().(*PHReg)
	params := rslt.Params()

	_, ch := ph.BaselineCumHaz(params)

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	time := ph.data[ph.timepos]
	status := ph.data[ph.statuspos]

	mr := make([]float64, ph.NumObs())
	for i := range mr {
		var h float64
		if k := ph.chIndex(float64(time[i])); k >= 0 {
			h = ch[k]
		}
		mr[i] = float64(status[i]) - h*math.Exp(lp[i])
	}

	return mr
}

// DevianceResiduals returns the deviance residual for each subject, a
// symmetrized transform of the martingale residual.
func (rslt *PHResults) DevianceResiduals() []float64 {

	ph := rslt.Model().(*PHReg)
	status := ph.data[ph.statuspos]

	mr := rslt.MartingaleResiduals()

	dr := make([]float64, len(mr))
	for i, m := range mr {
		dr[i] = devianceFromMartingale(m, float64(status[i]))
	}

	return dr
}

// devianceFromMartingale converts one martingale residual to a deviance
// residual.
func devianceFromMartingale(m, status float64) float64 {

	v := -m
	if status == 1 {
		v -= math.Log(status - m)
	}
	v *= 2
	if v < 0 {
		// Exact zeros can drift slightly negative in floating point.
		v = 0
	}
	if m < 0 {
		return -math.Sqrt(v)
	}
	return math.Sqrt(v)
}

// riskStats returns, for each distinct event time, the baseline hazard
// increment and the risk set covariate means, adjusted for the model's
// tie handling method.
func (ph *PHReg) riskStats(params []float64) (h0 []float64, xbar [][]float64) {

	p := len(ph.xpos)

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)
	for i := range lp {
		lp[i] = math.Exp(lp[i])
	}

	h0 = make([]float64, len(ph.etimes))
	xbar = make([][]float64, len(ph.etimes))

	rlp := float64(0)
	rlpv := make([]float64, p)
	dlpv := make([]float64, p)

	for k := range ph.etimes {

		for _, i := range ph.enter[k] {
			rlp += lp[i]
			for j, kx := range ph.xpos {
				rlpv[j] += lp[i] * float64(ph.data[kx][i])
			}
		}

		xbar[k] = make([]float64, p)
		d := float64(len(ph.event[k]))

		switch ph.ties {
		case BreslowTies:
			h0[k] = d / rlp
			for j := 0; j < p; j++ {
				xbar[k][j] = rlpv[j] / rlp
			}
		default:
			var dlp float64
			zero(dlpv)
			for _, i := range ph.event[k] {
				dlp += lp[i]
				for j, kx := range ph.xpos {
					dlpv[j] += lp[i] * float64(ph.data[kx][i])
				}
			}
			for l := 0; l < len(ph.event[k]); l++ {
				f := float64(l) / d
				den := rlp - f*dlp
				h0[k] += 1 / den
				for j := 0; j < p; j++ {
					xbar[k][j] += (rlpv[j] - f*dlpv[j]) / den / d
				}
			}
			// The per-tie means are averaged against their share
			// of the hazard mass.
			for j := 0; j < p; j++ {
				xbar[k][j] *= d / h0[k]
			}
		}

		for _, i := range ph.exit[k] {
			rlp -= lp[i]
			for j, kx := range ph.xpos {
				rlpv[j] -= lp[i] * float64(ph.data[kx][i])
			}
		}
	}

	return h0, xbar
}

// SchoenfeldResiduals holds one Schoenfeld residual row per observed
// event, ordered by event time.
type SchoenfeldResiduals struct {

	// Index[r] is the dataset row of the subject contributing residual r.
	Index []int

	// Times[r] is the event time of residual r.
	Times []float64

	// Resid[r] is the residual vector, with one element per model covariate.
	Resid [][]float64
}

// SchoenfeldResiduals returns the Schoenfeld residuals of the fitted
// model: for each event, the covariate value of the subject minus the
// risk-set weighted covariate mean at the event time.
func (rslt *PHResults) SchoenfeldResiduals() *SchoenfeldResiduals {

	ph := rslt.Model().(*PHReg)
	p := ph.NumParams()

	sr := &SchoenfeldResiduals{}
	if p == 0 {
		return sr
	}

	_, xbar := ph.riskStats(rslt.Params())

	for k := range ph.etimes {
		for _, i := range ph.event[k] {
			row := make([]float64, p)
			for j, kx := range ph.xpos {
				row[j] = float64(ph.data[kx][i]) - xbar[k][j]
			}
			sr.Index = append(sr.Index, i)
			sr.Times = append(sr.Times, ph.etimes[k])
			sr.Resid = append(sr.Resid, row)
		}
	}

	return sr
}

// ScoreResiduals returns the per-subject score residuals, one row per
// subject and one column per covariate.  The rows sum to the score
// vector, which is zero at the maximum likelihood estimate.
func (rslt *PHResults) ScoreResiduals() [][]float64 {

	ph := rslt.Model().(*PHReg)
	p := ph.NumParams()
	params := rslt.Params()

	h0, xbar := ph.riskStats(params)

	// Cumulative hazard mass and covariate-mean weighted hazard mass
	// through each event time.
	ca := make([]float64, len(h0))
	cb := make([][]float64, len(h0))
	var a float64
	b := make([]float64, p)
	for k := range h0 {
		a += h0[k]
		for j := 0; j < p; j++ {
			b[j] += xbar[k][j] * h0[k]
		}
		ca[k] = a
		cb[k] = make([]float64, p)
		copy(cb[k], b)
	}

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	time := ph.data[ph.timepos]
	status := ph.data[ph.statuspos]

	ur := make([][]float64, ph.NumObs())
	for i := range ur {
		row := make([]float64, p)
		ur[i] = row

		if ph.skip[i] {
			continue
		}

		k := ph.chIndex(float64(time[i]))
		if k < 0 {
			continue
		}

		elp := math.Exp(lp[i])
		for j, kx := range ph.xpos {
			x := float64(ph.data[kx][i])
			row[j] = -elp * (x*ca[k] - cb[k][j])
			if status[i] == 1 {
				row[j] += x - xbar[k][j]
			}
		}
	}

	return ur
}

// DFBeta returns the approximate change in each fitted coefficient when
// a single subject is removed from the fit, one row per subject and one
// column per covariate.
func (rslt *PHResults) DFBeta() ([][]float64, error) {

	vcov := rslt.VCov()
	if vcov == nil {
		return nil, fmt.Errorf("duration: DFBeta requires a parameter covariance matrix")
	}

	ph := rslt.Model().(*PHReg)
	p := ph.NumParams()

	ur := rslt.ScoreResiduals()

	dfb := make([][]float64, len(ur))
	for i, u := range ur {
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			var v float64
			for m := 0; m < p; m++ {
				v += u[m] * vcov[m*p+j]
			}
			row[j] = v
		}
		dfb[i] = row
	}

	return dfb, nil
}
