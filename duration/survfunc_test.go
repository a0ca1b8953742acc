package duration

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

func survData() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{1, 2, 3},
		{1, 1, 0},
	}

	return statmodel.NewDataset(da, []string{"Time", "Status"})
}

func TestSurvfunc(t *testing.T) {

	sf, err := NewSurvfuncRight(survData(), "Time", "Status", nil)
	if err != nil {
		panic(err)
	}

	// The last time is retained even though it is a censoring.
	if !floats.EqualApprox(sf.Time(), []float64{1, 2, 3}, 1e-10) {
		t.Fail()
	}
	if !floats.EqualApprox(sf.SurvProb(), []float64{2.0 / 3, 1.0 / 3, 1.0 / 3}, 1e-10) {
		t.Fail()
	}
	if !floats.EqualApprox(sf.NumRisk(), []float64{3, 2, 1}, 1e-10) {
		t.Fail()
	}

	// Greenwood standard errors
	se1 := (2.0 / 3) * math.Sqrt(1.0/(3*2))
	se2 := (1.0 / 3) * math.Sqrt(1.0/(3*2)+1.0/(2*1))
	if !floats.EqualApprox(sf.SurvProbSE(), []float64{se1, se2, se2}, 1e-10) {
		t.Fail()
	}

	if sf.ProbAt(0.5) != 1 {
		t.Fail()
	}
	if math.Abs(sf.ProbAt(1.5)-2.0/3) > 1e-10 {
		t.Fail()
	}
	if math.Abs(sf.ProbAt(10)-1.0/3) > 1e-10 {
		t.Fail()
	}
}

func TestSurvfuncKeep(t *testing.T) {

	da := [][]statmodel.Dtype{
		{1, 2, 3, 5, 6, 7},
		{1, 1, 0, 1, 1, 0},
		{0, 0, 0, 1, 1, 1},
	}
	data := statmodel.NewDataset(da, []string{"Time", "Status", "Group"})

	grp, err := data.Column("Group")
	if err != nil {
		panic(err)
	}
	keep := make([]bool, len(grp))
	for i, g := range grp {
		keep[i] = g == 1
	}

	sf, err := NewSurvfuncRight(data, "Time", "Status", keep)
	if err != nil {
		panic(err)
	}

	if !floats.EqualApprox(sf.Time(), []float64{5, 6, 7}, 1e-10) {
		t.Fail()
	}
	if !floats.EqualApprox(sf.SurvProb(), []float64{2.0 / 3, 1.0 / 3, 1.0 / 3}, 1e-10) {
		t.Fail()
	}
}

func TestSurvfuncErrors(t *testing.T) {

	data := survData()

	if _, err := NewSurvfuncRight(data, "Nope", "Status", nil); err == nil {
		t.Fail()
	}
	if _, err := NewSurvfuncRight(data, "Time", "Nope", nil); err == nil {
		t.Fail()
	}
	if _, err := NewSurvfuncRight(data, "Time", "Status", []bool{true}); err == nil {
		t.Fail()
	}
	if _, err := NewSurvfuncRight(data, "Time", "Status", []bool{false, false, false}); err == nil {
		t.Fail()
	}
}
