package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// splineDf is the number of nonlinear basis columns added by a natural
// cubic spline expansion, and therefore the degrees of freedom of the
// nonlinearity likelihood ratio test.
const splineDf = 3

// NaturalSplineBasis returns the nonlinear basis columns of a natural
// cubic spline of x, with boundary knots at the minimum and maximum and
// interior knots at the quartiles.  The linear component is not
// included; together with x itself the expansion spans a natural cubic
// spline with three extra degrees of freedom.
func NaturalSplineBasis(x []float64) ([][]float64, error) {

	n := len(x)
	if n < 5 {
		return nil, fmt.Errorf("analysis: spline basis requires at least 5 observations, have %d", n)
	}

	xs := make([]float64, n)
	copy(xs, x)
	sort.Float64s(xs)

	knots := []float64{
		xs[0],
		stat.Quantile(0.25, stat.Empirical, xs, nil),
		stat.Quantile(0.50, stat.Empirical, xs, nil),
		stat.Quantile(0.75, stat.Empirical, xs, nil),
		xs[n-1],
	}

	for k := 1; k < len(knots); k++ {
		if knots[k] <= knots[k-1] {
			return nil, fmt.Errorf("analysis: spline knots are not distinct, covariate has too few distinct values")
		}
	}

	kk := len(knots)
	tmax := knots[kk-1]
	tpen := knots[kk-2]

	cube := func(v float64) float64 {
		if v <= 0 {
			return 0
		}
		return v * v * v
	}

	// d_k(x) = ((x - t_k)+^3 - (x - t_K)+^3) / (t_K - t_k)
	d := func(tk, v float64) float64 {
		return (cube(v-tk) - cube(v-tmax)) / (tmax - tk)
	}

	basis := make([][]float64, splineDf)
	for j := 0; j < splineDf; j++ {
		tk := knots[j]
		col := make([]float64, n)
		for i, v := range x {
			col[i] = d(tk, v) - d(tpen, v)
		}
		basis[j] = col
	}

	return basis, nil
}

// withSplineColumns adds the spline basis columns for the named
// covariate to the dataset and returns the new dataset together with
// the basis column names.
func withSplineColumns(ds statmodel.Dataset, name string) (statmodel.Dataset, []string, error) {

	x, err := ds.Column(name)
	if err != nil {
		return statmodel.Dataset{}, nil, err
	}

	basis, err := NaturalSplineBasis(x)
	if err != nil {
		return statmodel.Dataset{}, nil, err
	}

	var names []string
	for j, col := range basis {
		cn := fmt.Sprintf("%s_ns%d", name, j+1)
		names = append(names, cn)
		ds, err = ds.WithColumn(cn, col)
		if err != nil {
			return statmodel.Dataset{}, nil, err
		}
	}

	return ds, names, nil
}
