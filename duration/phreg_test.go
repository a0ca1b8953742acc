package duration

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

func data1() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{1, 1, 2, 3, 3, 4},
		{1, 1, 0, 0, 1, 0},
		{4, 2, 5, 6, 6, 5},
	}

	varnames := []string{"Time", "Status", "X"}

	return statmodel.NewDataset(da, varnames)
}

func data3() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{1, 1, 2, 3, 3, 4, 5, 5, 6, 7},
		{1, 1, 0, 0, 1, 0, 0, 1, 1, 1},
		{4, 2, 5, 6, 6, 5, 4, 3, 3, 5},
		{3, 2, 2, 0, 5, 4, 5, 6, 5, 4},
	}

	varnames := []string{"Time", "Status", "X1", "X2"}

	return statmodel.NewDataset(da, varnames)
}

// Tie-free version of data3, so that the Breslow and Efron partial
// likelihoods coincide.
func dataUntied() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		{1, 1, 0, 0, 1, 0, 0, 1, 1, 1},
		{4, 2, 5, 6, 6, 5, 4, 3, 3, 5},
		{3, 2, 2, 0, 5, 4, 5, 6, 5, 4},
	}

	varnames := []string{"Time", "Status", "X1", "X2"}

	return statmodel.NewDataset(da, varnames)
}

func TestSimple(t *testing.T) {

	config := DefaultPHRegConfig()
	config.Ties = BreslowTies

	ph, err := NewPHReg(data1(), "Time", "Status", []string{"X"}, config)
	if err != nil {
		panic(err)
	}

	if fmt.Sprintf("%v", ph.etimes) != "[1 3]" {
		t.Fail()
	}
	if fmt.Sprintf("%v", ph.enter) != "[[0 1 2 3 4 5] []]" {
		t.Fail()
	}
	if fmt.Sprintf("%v", ph.exit) != "[[0 1 2] [3 4]]" {
		t.Fail()
	}
	if fmt.Sprintf("%v", ph.event) != "[[0 1] [4]]" {
		t.Fail()
	}

	ll := -14.415134793348063
	if math.Abs(ph.breslowLogLike([]float64{2})-ll) > 1e-5 {
		t.Fail()
	}

	ll = -8.9840993267811093
	if math.Abs(ph.breslowLogLike([]float64{1})-ll) > 1e-5 {
		t.Fail()
	}

	score := make([]float64, 1)
	ph.breslowScore([]float64{2}, score)
	if math.Abs(score[0]-(-5.66698338)) > 1e-5 {
		t.Fail()
	}

	ph.breslowScore([]float64{1}, score)
	if math.Abs(score[0]-(-5.09729328)) > 1e-5 {
		t.Fail()
	}

	hess := make([]float64, 1)
	ph.breslowHess([]float64{1}, hess)
	if math.Abs(hess[0]-(-0.93879427)) > 1e-5 {
		t.Fail()
	}
}

// With two tied events among three subjects and a single binary
// covariate, the Efron partial likelihood has a short closed form.
func TestEfronClosedForm(t *testing.T) {

	da := [][]statmodel.Dtype{
		{1, 1, 2},
		{1, 1, 0},
		{1, 0, 0},
	}
	data := statmodel.NewDataset(da, []string{"Time", "Status", "X"})

	ph, err := NewPHReg(data, "Time", "Status", []string{"X"}, nil)
	if err != nil {
		panic(err)
	}

	ll := func(b float64) float64 {
		return b - math.Log(math.Exp(b)+2) - math.Log(0.5*math.Exp(b)+1.5)
	}
	sc := func(b float64) float64 {
		e := math.Exp(b)
		return 1 - e/(e+2) - 0.5*e/(0.5*e+1.5)
	}
	he := func(b float64) float64 {
		e := math.Exp(b)
		return -2*e/((e+2)*(e+2)) - 0.75*e/((0.5*e+1.5)*(0.5*e+1.5))
	}

	score := make([]float64, 1)
	hess := make([]float64, 1)

	for _, b := range []float64{-1, 0, 0.5, 1} {

		if math.Abs(ph.efronLogLike([]float64{b})-ll(b)) > 1e-8 {
			t.Fail()
		}

		ph.efronScore([]float64{b}, score)
		if math.Abs(score[0]-sc(b)) > 1e-8 {
			t.Fail()
		}

		ph.efronHess([]float64{b}, hess)
		if math.Abs(hess[0]-he(b)) > 1e-8 {
			t.Fail()
		}
	}
}

// Without ties, the Breslow and Efron methods must agree exactly.
func TestEfronBreslowUntied(t *testing.T) {

	ph, err := NewPHReg(dataUntied(), "Time", "Status", []string{"X1", "X2"}, nil)
	if err != nil {
		panic(err)
	}

	params := []float64{0.3, -0.2}

	if math.Abs(ph.efronLogLike(params)-ph.breslowLogLike(params)) > 1e-10 {
		t.Fail()
	}

	se := make([]float64, 2)
	sb := make([]float64, 2)
	ph.efronScore(params, se)
	ph.breslowScore(params, sb)
	if !floats.EqualApprox(se, sb, 1e-10) {
		t.Fail()
	}

	he := make([]float64, 4)
	hb := make([]float64, 4)
	ph.efronHess(params, he)
	ph.breslowHess(params, hb)
	if !floats.EqualApprox(he, hb, 1e-10) {
		t.Fail()
	}
}

func TestNullModel(t *testing.T) {

	config := DefaultPHRegConfig()
	config.Ties = BreslowTies

	ph, err := NewPHReg(data1(), "Time", "Status", nil, config)
	if err != nil {
		panic(err)
	}

	rslt, err := ph.Fit()
	if err != nil {
		panic(err)
	}

	// Smoke test
	_ = rslt.Summary().String()

	et, ch := ph.BaselineCumHaz(nil)
	if fmt.Sprintf("%v", et) != "[1 3]" {
		t.Fail()
	}
	if !floats.EqualApprox(ch, []float64{1.0 / 3, 2.0 / 3}, 1e-10) {
		t.Fail()
	}

	mr := rslt.MartingaleResiduals()
	emr := []float64{2.0 / 3, 2.0 / 3, -1.0 / 3, -2.0 / 3, 1.0 / 3, -2.0 / 3}
	if !floats.EqualApprox(mr, emr, 1e-10) {
		t.Fail()
	}

	if math.Abs(floats.Sum(mr)) > 1e-10 {
		t.Fail()
	}
}

func TestFitSign(t *testing.T) {

	// Subjects with larger covariate values fail earlier.
	da := [][]statmodel.Dtype{
		{1, 2, 3, 4, 5},
		{1, 1, 1, 1, 0},
		{5, 4, 3, 2, 1},
	}
	data := statmodel.NewDataset(da, []string{"Time", "Status", "X"})

	ph, err := NewPHReg(data, "Time", "Status", []string{"X"}, nil)
	if err != nil {
		panic(err)
	}

	rslt, err := ph.Fit()
	if err != nil {
		panic(err)
	}

	if rslt.Params()[0] <= 0 {
		t.Fail()
	}
}

func TestFitCollinear(t *testing.T) {

	// X2 is an exact multiple of X1.
	da := [][]statmodel.Dtype{
		{1, 2, 3, 4, 5, 6},
		{1, 1, 0, 1, 1, 0},
		{4, 2, 5, 6, 6, 5},
		{8, 4, 10, 12, 12, 10},
	}
	data := statmodel.NewDataset(da, []string{"Time", "Status", "X1", "X2"})

	ph, err := NewPHReg(data, "Time", "Status", []string{"X1", "X2"}, nil)
	if err != nil {
		panic(err)
	}

	_, err = ph.Fit()
	if err == nil {
		t.Fail()
	}
	var fe *FitError
	if !errors.As(err, &fe) {
		t.Fail()
	}
}

func TestFitRecovery(t *testing.T) {

	rng := rand.New(rand.NewSource(4523))

	n := 1000
	b := 1.0

	var time, status, x []statmodel.Dtype
	for i := 0; i < n; i++ {
		xi := rng.NormFloat64()
		haz := math.Exp(b * xi)
		ti := -math.Log(rng.Float64()) / haz
		x = append(x, statmodel.Dtype(xi))
		time = append(time, statmodel.Dtype(ti))
		status = append(status, 1)
	}

	da := [][]statmodel.Dtype{time, status, x}
	data := statmodel.NewDataset(da, []string{"Time", "Status", "X"})

	ph, err := NewPHReg(data, "Time", "Status", []string{"X"}, nil)
	if err != nil {
		panic(err)
	}

	rslt, err := ph.Fit()
	if err != nil {
		panic(err)
	}

	if math.Abs(rslt.Params()[0]-b) > 0.2 {
		t.Fail()
	}

	if rslt.StdErr()[0] <= 0 || rslt.StdErr()[0] > 0.2 {
		t.Fail()
	}
}

func TestNewPHRegErrors(t *testing.T) {

	data := data1()

	if _, err := NewPHReg(data, "Nope", "Status", []string{"X"}, nil); err == nil {
		t.Fail()
	}
	if _, err := NewPHReg(data, "Time", "Nope", []string{"X"}, nil); err == nil {
		t.Fail()
	}
	if _, err := NewPHReg(data, "Time", "Status", []string{"Nope"}, nil); err == nil {
		t.Fail()
	}

	da := [][]statmodel.Dtype{
		{1, 2, 3},
		{1, 2, 0},
		{4, 2, 5},
	}
	bad := statmodel.NewDataset(da, []string{"Time", "Status", "X"})
	if _, err := NewPHReg(bad, "Time", "Status", []string{"X"}, nil); err == nil {
		t.Fail()
	}
}
