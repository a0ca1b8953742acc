package analysis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
)

func TestPipelineRun(t *testing.T) {

	ds := testCohort(250, 6125)

	cfg := DefaultConfig()
	cfg.SurvGridStep = 0.1

	res, err := Run(ds, cfg, nil)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(res.NullResid) != ds.NumObs() {
		t.Fail()
	}
	if len(res.ResidCorrs) != len(gbcs.Continuous()) {
		t.Fail()
	}
	for _, rc := range res.ResidCorrs {
		if rc.Corr < -1 || rc.Corr > 1 {
			t.Fail()
		}
	}

	if !res.FinalFit.OK() {
		t.Fail()
	}
	if len(res.Changes) != 3 {
		t.Fail()
	}
	if len(res.Screens) != len(InteractionCandidates()) {
		t.Fail()
	}

	if res.PHFinal == nil || res.PHFinal.GlobalDf != len(res.FinalFit.XNames) {
		t.Fail()
	}

	if res.CIndex < 0 || res.CIndex > 1 {
		t.Fail()
	}

	// The BIC search only removes terms of the pairwise interaction
	// model; the AIC search may also add from the candidate pool.
	for _, rec := range res.StepBIC.Trace {
		if rec.Action != "remove" {
			t.Fail()
		}
	}
	pw := PairwiseSpec()
	for _, tm := range res.StepBIC.Final.Spec.Terms {
		if !pw.HasTerm(tm) {
			t.Fail()
		}
	}

	if res.Weibull == nil {
		t.Fail()
	}
	if len(res.Comparison) != len(res.FinalFit.XNames) {
		t.Fail()
	}

	// The model curves for the treated group never cross below or
	// above [0, 1] and start at 1.
	if res.Curves == nil || len(res.Curves.Grid) == 0 {
		t.Fail()
	}
	if res.Curves.WeibControl[0] != 1 {
		t.Fail()
	}
	for i := range res.Curves.Grid {
		s0 := res.Curves.WeibControl[i]
		s1 := res.Curves.WeibTreated[i]
		if s0 < 0 || s0 > 1 || s1 < 0 || s1 > 1 {
			t.Fail()
		}
	}

	// Hormone therapy is protective in the simulated cohort, so the
	// treated curve should dominate.
	mid := len(res.Curves.Grid) / 2
	if res.Curves.WeibTreated[mid] < res.Curves.WeibControl[mid] {
		t.Fail()
	}
}

func TestPairwiseSpec(t *testing.T) {

	pw := PairwiseSpec()

	if len(pw.Terms) != len(FullSpec().Terms)+len(InteractionCandidates()) {
		t.Fail()
	}
	for _, name := range gbcs.BaseCovariates() {
		if !pw.HasTerm(Main(name)) {
			t.Fail()
		}
	}
	for _, tm := range InteractionCandidates() {
		if !pw.HasTerm(tm) {
			t.Fail()
		}
	}

	if err := pw.Validate(); err != nil {
		panic(err)
	}
}

func TestWriteReport(t *testing.T) {

	ds := testCohort(250, 2290)

	cfg := DefaultConfig()
	cfg.SurvGridStep = 0.1

	res, err := Run(ds, cfg, nil)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, res, cfg); err != nil {
		panic(err)
	}

	out := buf.String()
	for _, want := range []string{
		"Null model martingale residuals",
		"Change in estimate",
		"Interaction screening",
		"Proportional hazards test, final model",
		"Weibull accelerated failure time model",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report is missing section %q", want)
		}
	}
}
