package duration

import (
	"fmt"
	"math"
	"sort"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// SurvfuncRight uses the method of Kaplan and Meier to estimate the
// survival distribution based on (possibly) right censored data.
type SurvfuncRight struct {

	// Times at which events occur, sorted.
	times []float64

	// Number of events at each time in times.
	nEvents []float64

	// Number of people at risk just before each time in times.
	nRisk []float64

	// The estimated survival function evaluated at each time in times.
	survProb []float64

	// The standard errors for the estimates in survProb.
	survProbSE []float64
}

// NewSurvfuncRight estimates a survival function from the named time
// and status columns of the dataset.  If keep is not nil, only rows i
// with keep[i] true contribute; this supports estimating per-subgroup
// curves from one table.
func NewSurvfuncRight(data statmodel.Dataset, timevar, statusvar string, keep []bool) (*SurvfuncRight, error) {

	time, err := data.Column(timevar)
	if err != nil {
		return nil, err
	}
	status, err := data.Column(statusvar)
	if err != nil {
		return nil, err
	}
	if keep != nil && len(keep) != len(time) {
		return nil, fmt.Errorf("duration: keep mask has length %d, expected %d", len(keep), len(time))
	}

	events := make(map[float64]float64)
	total := make(map[float64]float64)

	for i, t := range time {
		if keep != nil && !keep[i] {
			continue
		}
		if t < 0 {
			return nil, fmt.Errorf("duration: time variable '%s' is negative at row %d", timevar, i)
		}
		switch status[i] {
		case 1:
			events[float64(t)]++
		case 0:
		default:
			return nil, fmt.Errorf("duration: status variable '%s' has value %v at row %d, must be 0 or 1",
				statusvar, status[i], i)
		}
		total[float64(t)]++
	}

	if len(total) == 0 {
		return nil, fmt.Errorf("duration: no observations for survival function")
	}

	sf := &SurvfuncRight{}
	sf.eventstats(events, total)
	sf.compress()
	sf.fit()

	return sf, nil
}

// Time returns the times at which the survival function changes.
func (sf *SurvfuncRight) Time() []float64 {
	return sf.times
}

// NumRisk returns the number of people at risk at each time point
// where the survival function changes.
func (sf *SurvfuncRight) NumRisk() []float64 {
	return sf.nRisk
}

// SurvProb returns the estimated survival probabilities at the points
// where the survival function changes.
func (sf *SurvfuncRight) SurvProb() []float64 {
	return sf.survProb
}

// SurvProbSE returns the standard errors of the estimated survival
// probabilities at the points where the survival function changes.
func (sf *SurvfuncRight) SurvProbSE() []float64 {
	return sf.survProbSE
}

// ProbAt returns the estimated survival probability at time t.
func (sf *SurvfuncRight) ProbAt(t float64) float64 {

	ii := sort.SearchFloat64s(sf.times, t)
	if ii < len(sf.times) && sf.times[ii] == t {
		return sf.survProb[ii]
	}
	if ii == 0 {
		return 1
	}
	return sf.survProb[ii-1]
}

func rollback(x []float64) {
	var z float64
	for i := len(x) - 1; i >= 0; i-- {
		z += x[i]
		x[i] = z
	}
}

func (sf *SurvfuncRight) eventstats(events, total map[float64]float64) {

	// Get the sorted distinct times (event or censoring)
	sf.times = make([]float64, len(total))
	var i int
	for t := range total {
		sf.times[i] = t
		i++
	}
	sort.Float64s(sf.times)

	// Get the event count and risk set size at each time point
	// (in same order as times).
	sf.nEvents = make([]float64, len(sf.times))
	sf.nRisk = make([]float64, len(sf.times))
	for i, t := range sf.times {
		sf.nEvents[i] = events[t]
		sf.nRisk[i] = total[t]
	}
	rollback(sf.nRisk)
}

// compress removes times where no events occurred.
func (sf *SurvfuncRight) compress() {

	var ix []int
	for i := 0; i < len(sf.times); i++ {
		// Only retain events, except for the last point,
		// which is retained even if there are no events.
		if sf.nEvents[i] > 0 || i == len(sf.times)-1 {
			ix = append(ix, i)
		}
	}

	if len(ix) < len(sf.times) {
		for i, j := range ix {
			sf.times[i] = sf.times[j]
			sf.nEvents[i] = sf.nEvents[j]
			sf.nRisk[i] = sf.nRisk[j]
		}
		sf.times = sf.times[0:len(ix)]
		sf.nEvents = sf.nEvents[0:len(ix)]
		sf.nRisk = sf.nRisk[0:len(ix)]
	}
}

func (sf *SurvfuncRight) fit() {

	sf.survProb = make([]float64, len(sf.times))
	x := float64(1)
	for i := range sf.times {
		x *= 1 - sf.nEvents[i]/sf.nRisk[i]
		sf.survProb[i] = x
	}

	// Greenwood standard errors
	sf.survProbSE = make([]float64, len(sf.times))
	x = 0
	for i := range sf.times {
		d := sf.nEvents[i]
		n := sf.nRisk[i]
		if n > d {
			x += d / (n * (n - d))
		}
		sf.survProbSE[i] = math.Sqrt(x) * sf.survProb[i]
	}
}
