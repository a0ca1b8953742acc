package duration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

func TestPHBasic(t *testing.T) {

	ph, err := NewPHReg(data3(), "Time", "Status", []string{"X1", "X2"}, nil)
	if err != nil {
		panic(err)
	}
	rslt, err := ph.Fit()
	if err != nil {
		panic(err)
	}

	for _, tr := range []TimeTransform{RankTransform, IdentityTransform} {

		pt, err := TestPH(rslt, tr)
		if err != nil {
			panic(err)
		}

		if len(pt.Names) != 2 || len(pt.Stat) != 2 || len(pt.PValues) != 2 {
			t.Fail()
		}
		if pt.GlobalDf != 2 {
			t.Fail()
		}
		if pt.GlobalStat < 0 {
			t.Fail()
		}
		for j := range pt.Stat {
			if pt.Stat[j] < 0 {
				t.Fail()
			}
			if pt.PValues[j] < 0 || pt.PValues[j] > 1 {
				t.Fail()
			}
		}
		if pt.GlobalPValue < 0 || pt.GlobalPValue > 1 {
			t.Fail()
		}
	}
}

func TestPHNullModel(t *testing.T) {

	ph, err := NewPHReg(data3(), "Time", "Status", nil, nil)
	if err != nil {
		panic(err)
	}
	rslt, err := ph.Fit()
	if err != nil {
		panic(err)
	}

	if _, err := TestPH(rslt, RankTransform); err == nil {
		t.Fail()
	}
}

// Under proportional hazards the test should rarely reject.
func TestPHSimulated(t *testing.T) {

	rng := rand.New(rand.NewSource(3301))

	n := 300
	var time, status, x []statmodel.Dtype
	for i := 0; i < n; i++ {
		xi := rng.NormFloat64()
		ti := -math.Log(rng.Float64()) / math.Exp(0.5*xi)
		ci := -2 * math.Log(rng.Float64())
		if ti < ci {
			time = append(time, statmodel.Dtype(ti))
			status = append(status, 1)
		} else {
			time = append(time, statmodel.Dtype(ci))
			status = append(status, 0)
		}
		x = append(x, statmodel.Dtype(xi))
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

	pt, err := TestPH(rslt, RankTransform)
	if err != nil {
		panic(err)
	}

	if pt.PValues[0] < 1e-4 {
		t.Fail()
	}
	if pt.GlobalPValue < 1e-4 {
		t.Fail()
	}
}
