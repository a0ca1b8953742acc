package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestNaturalSplineBasis(t *testing.T) {

	rng := rand.New(rand.NewSource(88))

	n := 100
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.NormFloat64()
	}

	basis, err := NaturalSplineBasis(x)
	if err != nil {
		panic(err)
	}

	if len(basis) != splineDf {
		t.Fail()
	}
	for _, col := range basis {
		if len(col) != n {
			t.Fail()
		}
	}

	// Below the first knot every basis column is zero.
	imin := 0
	for i := range x {
		if x[i] < x[imin] {
			imin = i
		}
	}
	for _, col := range basis {
		if col[imin] != 0 {
			t.Fail()
		}
		for i := range col {
			if math.IsNaN(col[i]) || math.IsInf(col[i], 0) {
				t.Fail()
			}
		}
	}
}

func TestNaturalSplineBasisErrors(t *testing.T) {

	if _, err := NaturalSplineBasis([]float64{1, 2, 3}); err == nil {
		t.Fail()
	}

	// A binary covariate has no distinct quartile knots.
	x := make([]float64, 40)
	for i := range x {
		x[i] = float64(i % 2)
	}
	if _, err := NaturalSplineBasis(x); err == nil {
		t.Fail()
	}
}

func TestWithSplineColumns(t *testing.T) {

	ds := testCohort(80, 19)

	dx, names, err := withSplineColumns(ds, "size")
	if err != nil {
		panic(err)
	}

	if len(names) != splineDf {
		t.Fail()
	}
	for _, na := range names {
		if !dx.HasColumn(na) {
			t.Fail()
		}
	}
	if ds.HasColumn(names[0]) {
		t.Fail()
	}
}
