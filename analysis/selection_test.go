package analysis

import (
	"math"
	"testing"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/duration"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

func TestChangeInEstimates(t *testing.T) {

	ds := testCohort(200, 1851)

	full := FitCox(ds, FullSpec(), nil)
	reduced := FitCox(ds, ReducedSpec(), nil)
	if !full.OK() || !reduced.OK() {
		t.Fatalf("fits failed: %v %v", full.Err, reduced.Err)
	}

	changes, err := ChangeInEstimates(full, reduced, 20)
	if err != nil {
		panic(err)
	}

	// One record per reduced-model covariate.
	if len(changes) != len(reduced.XNames) {
		t.Fail()
	}

	for _, ch := range changes {
		fc, err := full.Result.ParamByName(ch.Term)
		if err != nil {
			panic(err)
		}
		rc, err := reduced.Result.ParamByName(ch.Term)
		if err != nil {
			panic(err)
		}
		pct := math.Abs(fc-rc) / math.Abs(fc) * 100
		if math.Abs(ch.Percent-pct) > 1e-10 {
			t.Fail()
		}
		if ch.Flagged != (pct > 20) {
			t.Fail()
		}
	}

	// With an extreme threshold nothing is flagged.
	changes, err = ChangeInEstimates(full, reduced, 1e6)
	if err != nil {
		panic(err)
	}
	for _, ch := range changes {
		if ch.Flagged {
			t.Fail()
		}
	}
}

func TestChangeInEstimateFixture(t *testing.T) {

	// Fixed coefficients: size shifts from 2.0 to 1.5, which is
	// exactly a 25% change.
	fullRes := &duration.PHResults{
		BaseResults: statmodel.NewBaseResults(nil, 0,
			[]float64{2.0, 1.0}, []string{gbcs.Size, gbcs.Hormone}, nil),
	}
	redRes := &duration.PHResults{
		BaseResults: statmodel.NewBaseResults(nil, 0,
			[]float64{1.5}, []string{gbcs.Size}, nil),
	}

	full := &ModelFit{XNames: []string{gbcs.Size, gbcs.Hormone}, Result: fullRes}
	reduced := &ModelFit{XNames: []string{gbcs.Size}, Result: redRes}

	changes, err := ChangeInEstimates(full, reduced, 20)
	if err != nil {
		panic(err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected one common covariate, got %d", len(changes))
	}

	ch := changes[0]
	if ch.Term != gbcs.Size || ch.Full != 2.0 || ch.Reduced != 1.5 {
		t.Fail()
	}
	if ch.Percent != 25.0 {
		t.Fail()
	}
	if !ch.Flagged {
		t.Fail()
	}

	// A 25% change is below a 30% threshold.
	changes, err = ChangeInEstimates(full, reduced, 30)
	if err != nil {
		panic(err)
	}
	if changes[0].Flagged {
		t.Fail()
	}
}

func TestStepwiseBackward(t *testing.T) {

	ds := testCohort(200, 902)

	// The backward search reduces the pairwise interaction model, so
	// the starting specification must carry the interaction terms.
	start := PairwiseSpec()
	ni := 0
	for _, tm := range start.Terms {
		if tm.IsInteraction() {
			ni++
		}
	}
	if ni != len(InteractionCandidates()) {
		t.Fail()
	}

	sr, err := Stepwise(ds, start, nil, math.Log(200), BackwardOnly, nil)
	if err != nil {
		panic(err)
	}

	// Backward search never adds terms.
	for _, rec := range sr.Trace {
		if rec.Action != "remove" {
			t.Fail()
		}
	}
	if len(sr.Final.Spec.Terms) > len(start.Terms) {
		t.Fail()
	}

	// Terms of the final model all come from the starting model, and
	// any retained interaction keeps both of its main effects.
	for _, tm := range sr.Final.Spec.Terms {
		if !start.HasTerm(tm) {
			t.Fail()
		}
		if tm.IsInteraction() &&
			(!sr.Final.Spec.HasTerm(Main(tm.X)) || !sr.Final.Spec.HasTerm(Main(tm.By))) {
			t.Fail()
		}
	}

	// Every accepted move lowers the criterion.
	prev := math.Inf(1)
	for _, rec := range sr.Trace {
		if rec.Criterion >= prev {
			t.Fail()
		}
		prev = rec.Criterion
	}
}

func TestStepwiseHierarchy(t *testing.T) {

	ds := testCohort(200, 411)

	pool := append([]Term{}, InteractionCandidates()...)
	sr, err := Stepwise(ds, FinalSpec(), pool, 2, Bidirectional, nil)
	if err != nil {
		panic(err)
	}

	// Any interaction retained in the final model keeps both of its
	// main effects.
	spec := sr.Final.Spec
	for _, tm := range spec.Terms {
		if !tm.IsInteraction() {
			continue
		}
		if !spec.HasTerm(Main(tm.X)) || !spec.HasTerm(Main(tm.By)) {
			t.Fail()
		}
	}
}

func TestCheckNonlinearity(t *testing.T) {

	ds := testCohort(200, 7408)

	base := ReducedSpec()
	baseFit := FitCox(ds, base, nil)
	if !baseFit.OK() {
		t.Fatalf("base fit failed: %v", baseFit.Err)
	}

	checks := CheckNonlinearity(ds, base, baseFit, []string{gbcs.Size, gbcs.ProgRecp}, nil)
	if len(checks) != 2 {
		t.Fail()
	}

	for _, nl := range checks {
		if nl.Err != nil {
			t.Errorf("%s: %v", nl.Covariate, nl.Err)
			continue
		}
		if nl.LR.Df != splineDf {
			t.Fail()
		}
		if nl.LR.PValue < 0 || nl.LR.PValue > 1 {
			t.Fail()
		}
	}

	// Covariates outside the base model are rejected.
	checks = CheckNonlinearity(ds, base, baseFit, []string{gbcs.Nodes}, nil)
	if checks[0].Err == nil {
		t.Fail()
	}
}
