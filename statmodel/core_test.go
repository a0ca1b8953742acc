package statmodel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// A mock model for testing
type Mock struct {
	data [][]Dtype
	xpos []int
	ll   float64
}

func (m *Mock) Dataset() [][]Dtype {
	return m.data
}

func (m *Mock) LogLike(params Parameter, exact bool) float64 {
	return m.ll
}

func (m *Mock) Score(params Parameter, score []float64) {
}

func (m *Mock) Hessian(params Parameter, ht HessType, hess []float64) {
}

func (m *Mock) NumParams() int {
	return len(m.xpos)
}

func (m *Mock) NumObs() int {
	return len(m.data[0])
}

func (m *Mock) Xpos() []int {
	return m.xpos
}

func mockModel() *Mock {
	return &Mock{
		data: [][]Dtype{
			{2, 1, 0, 3, 1, 2, 0},
			{1, 1, 1, 1, 1, 1, 1},
			{3, -1, 2, 4, -2, 1, 5},
		},
		xpos: []int{1, 2},
	}
}

func TestFittedValues(t *testing.T) {

	model := mockModel()

	params := []float64{2, 3}
	xnames := []string{"x1", "x2"}
	vcov := []float64{0, 0, 0, 0}

	r := NewBaseResults(model, 0, params, xnames, vcov)

	fv := []float64{11, -1, 8, 14, -4, 5, 17}
	if !floats.Equal(fv, r.FittedValues(nil)) {
		t.Fail()
	}

	// New data with the same layout.
	da := [][]Dtype{
		{0, 0, 0},
		{1, 1, 1},
		{1, 2, 3},
	}
	fv = []float64{5, 8, 11}
	if !floats.Equal(fv, r.FittedValues(da)) {
		t.Fail()
	}
}

func TestParamByName(t *testing.T) {

	model := mockModel()

	params := []float64{0.5, -1.5}
	xnames := []string{"x1", "x2"}

	r := NewBaseResults(model, 0, params, xnames, nil)

	v, err := r.ParamByName("x2")
	if err != nil {
		panic(err)
	}
	if v != -1.5 {
		t.Fail()
	}

	if _, err := r.ParamByName("x9"); err == nil {
		t.Fail()
	}
}

func TestZScores(t *testing.T) {

	model := mockModel()

	params := []float64{2, -1}
	xnames := []string{"x1", "x2"}
	vcov := []float64{4, 0, 0, 0.25}

	r := NewBaseResults(model, 0, params, xnames, vcov)

	if !floats.EqualApprox(r.StdErr(), []float64{2, 0.5}, 1e-10) {
		t.Fail()
	}
	if !floats.EqualApprox(r.ZScores(), []float64{1, -2}, 1e-10) {
		t.Fail()
	}

	pv := r.PValues()
	for i := range pv {
		if pv[i] < 0 || pv[i] > 1 {
			t.Fail()
		}
	}
	// Two sided p-value for z = -2.
	if math.Abs(pv[1]-0.04550026) > 1e-6 {
		t.Fail()
	}
}
