package duration

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Concordance estimates the survival concordance of Uno et al.
// (https://www.ncbi.nlm.nih.gov/pmc/articles/PMC3079915): the
// probability that of two comparable subjects, the one with the higher
// risk score fails first, weighted by the inverse censoring
// distribution.
type Concordance struct {

	// The risk scores that are being assessed
	score []float64

	// Event or censoring time
	time []float64

	// Event status
	status []float64

	// Number of pairs sampled at random to estimate the concordance
	npair int

	rng *rand.Rand

	// The survival function for the censoring distribution
	censTimes []float64
	censProb  []float64
}

// NewConcordance creates a Concordance value for the given times,
// event statuses and risk scores.
func NewConcordance(time, status, score []float64) *Concordance {

	c := &Concordance{
		time:   time,
		status: status,
		score:  score,
		npair:  10000,
		rng:    rand.New(rand.NewSource(50731)),
	}

	return c
}

// NumPair sets the number of pairs of observations sampled at random
// to estimate the concordance.
func (c *Concordance) NumPair(npair int) *Concordance {
	c.npair = npair
	return c
}

// Done signals that the Concordance value has been built and now can
// be fit.
func (c *Concordance) Done() *Concordance {

	// Sort everything by time
	ii := make([]int, len(c.time))
	time1 := make([]float64, len(c.time))
	status1 := make([]float64, len(c.time))
	score1 := make([]float64, len(c.time))
	copy(time1, c.time)
	floats.Argsort(time1, ii)

	ncens := 0
	for i, j := range ii {
		status1[i] = c.status[j]
		score1[i] = c.score[j]
		if c.status[j] == 0 {
			ncens++
		}
	}

	c.time = time1
	c.status = status1
	c.score = score1

	if ncens == 0 {
		// No censoring, use P(C>t) = 1 for all t.
		c.censTimes = []float64{0, math.Inf(1)}
		c.censProb = []float64{1, 1}
		return c
	}

	c.fitCensoring()

	return c
}

// fitCensoring estimates the Kaplan-Meier curve of the censoring
// distribution, treating censorings as events.
func (c *Concordance) fitCensoring() {

	events := make(map[float64]float64)
	total := make(map[float64]float64)
	for i, t := range c.time {
		if c.status[i] == 0 {
			events[t]++
		}
		total[t]++
	}

	sf := &SurvfuncRight{}
	sf.eventstats(events, total)
	sf.compress()
	sf.fit()

	c.censTimes = sf.times
	c.censProb = sf.survProb
}

// Concordance returns the estimated concordance statistic, considering
// only pairs whose earlier time falls below the truncation point.
func (c *Concordance) Concordance(trunc float64) (float64, error) {

	n := len(c.time)

	jt := sort.SearchFloat64s(c.time, trunc)
	if jt <= 0 {
		return 0, fmt.Errorf("duration: no data below the truncation point %v", trunc)
	}

	// A comparable pair needs an event below the truncation point with
	// a subject observed strictly later.
	ok := false
	for i := 0; i < jt; i++ {
		if c.status[i] == 1 && c.time[i] < c.time[n-1] {
			ok = true
			break
		}
	}
	if !ok {
		return 0, fmt.Errorf("duration: no comparable event pairs below the truncation point %v", trunc)
	}

	var numer, denom float64

	for i := 0; i < c.npair; i++ {

		// Find a comparable pair
		var j1, j2 int
		for {
			j1 = c.rng.Intn(n)
			if j1 >= jt {
				continue
			}
			j2 = c.rng.Intn(n)
			if j2 <= j1 {
				continue
			}
			if c.time[j1] < c.time[j2] && c.status[j1] == 1 {
				break
			}
		}

		jj := sort.SearchFloat64s(c.censTimes, c.time[j1])
		if jj == len(c.censTimes) {
			jj--
		}
		g := c.censProb[jj]

		denom += 1 / (g * g)
		if c.score[j1] > c.score[j2] {
			numer += 1 / (g * g)
		}
	}

	return numer / denom, nil
}
