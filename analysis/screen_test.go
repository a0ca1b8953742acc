package analysis

import (
	"testing"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
)

func TestScreenInteractions(t *testing.T) {

	ds := testCohort(200, 5521)

	base := ReducedSpec()
	baseFit := FitCox(ds, base, nil)
	if !baseFit.OK() {
		t.Fatalf("base fit failed: %v", baseFit.Err)
	}

	cands := InteractionCandidates()
	screens, err := ScreenInteractions(ds, base, baseFit, cands, nil)
	if err != nil {
		panic(err)
	}

	if len(screens) != len(cands) {
		t.Fail()
	}

	for _, sc := range screens {
		if sc.Err != nil {
			t.Errorf("%s: %v", sc.Term.Name(), sc.Err)
			continue
		}

		// The test has one degree of freedom per added term: the
		// interaction plus any main effect absent from the base model.
		df := 1
		if !base.HasTerm(Main(sc.Term.X)) {
			df++
		}
		if !base.HasTerm(Main(sc.Term.By)) {
			df++
		}
		if sc.LR.Df != df {
			t.Fail()
		}
		if sc.LR.Stat < 0 {
			t.Fail()
		}
		if sc.LR.PValue < 0 || sc.LR.PValue > 1 {
			t.Fail()
		}
	}

	// A main effect is not a valid screen candidate.
	screens, err = ScreenInteractions(ds, base, baseFit, []Term{Main(gbcs.Nodes)}, nil)
	if err != nil {
		panic(err)
	}
	if screens[0].Err == nil {
		t.Fail()
	}
}

func TestReexamine(t *testing.T) {

	ds := testCohort(200, 3310)

	base := ReducedSpec()
	baseFit := FitCox(ds, base, nil)
	if !baseFit.OK() {
		t.Fatalf("base fit failed: %v", baseFit.Err)
	}

	excluded := []string{gbcs.Hormone, gbcs.Nodes, gbcs.AgeMed}
	results, err := Reexamine(ds, base, baseFit, excluded, nil)
	if err != nil {
		panic(err)
	}

	if len(results) != len(excluded) {
		t.Fail()
	}

	for _, re := range results {
		if re.Err != nil {
			t.Errorf("%s: %v", re.Covariate, re.Err)
			continue
		}

		coef, err := re.Fit.Result.ParamByName(re.Covariate)
		if err != nil {
			panic(err)
		}
		if coef != re.Coeff {
			t.Fail()
		}
		if re.LR.Df != 1 {
			t.Fail()
		}
	}

	// Covariates already in the base model are rejected.
	results, err = Reexamine(ds, base, baseFit, []string{gbcs.Size}, nil)
	if err != nil {
		panic(err)
	}
	if results[0].Err == nil {
		t.Fail()
	}
}
