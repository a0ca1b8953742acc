// Package gbcs loads and normalizes the German Breast Cancer Study
// cohort data.
package gbcs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// Frozen cutoffs for the derived median splits.  These are fixed by the
// analysis protocol and are never recomputed, so the splits stay
// comparable across model variants.
const (
	// AgeCutoff is the age median split point in years.
	AgeCutoff = 53.0

	// RectimeCutoff is the recurrence-time median split point in days.
	RectimeCutoff = 1084.0
)

// Column names of the normalized dataset produced by Load.
const (
	ID         = "id"
	Age        = "age"
	Menopause  = "menopause"
	Hormone    = "hormone"
	Size       = "size"
	Grade2     = "grade2"
	Grade3     = "grade3"
	Nodes      = "nodes"
	ProgRecp   = "prog_recp"
	EstrgRecp  = "estrg_recp"
	Rectime    = "rectime"
	CensRec    = "censrec"
	Survtime   = "survtime"
	CensDead   = "censdead"
	AgeMed     = "age_med"
	RectimeMed = "rectime_med"
)

// rawColumns are the columns that must be present in the input file,
// in the order their parsed values are collected.
var rawColumns = []string{
	"id", "age", "menopause", "hormone", "size", "grade", "nodes",
	"prog_recp", "estrg_recp", "rectime", "censrec", "survtime", "censdead",
}

// ParseError describes a field of the input file that could not be
// coerced to its expected type or value range.  The row number is
// 1-based and counts data rows, excluding the header.
type ParseError struct {
	Row   int
	Col   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gbcs: row %d, column '%s': cannot use value '%s': %v", e.Row, e.Col, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the GBCS table from r and returns a normalized dataset
// holding the raw numeric columns and the derived factor and
// median-split columns.  Any row with a non-coercible required field
// aborts the load with a *ParseError; no value is imputed.
func Load(r io.Reader) (statmodel.Dataset, error) {

	rd := csv.NewReader(r)

	header, err := rd.Read()
	if err != nil {
		return statmodel.Dataset{}, fmt.Errorf("gbcs: cannot read header: %w", err)
	}

	colix := make(map[string]int)
	for j, na := range header {
		colix[na] = j
	}
	for _, na := range rawColumns {
		if _, ok := colix[na]; !ok {
			return statmodel.Dataset{}, fmt.Errorf("gbcs: required column '%s' missing from input", na)
		}
	}

	raw := make([][]float64, len(rawColumns))

	for row := 1; ; row++ {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return statmodel.Dataset{}, fmt.Errorf("gbcs: row %d: %w", row, err)
		}

		for j, na := range rawColumns {
			sval := rec[colix[na]]
			v, err := strconv.ParseFloat(sval, 64)
			if err != nil {
				return statmodel.Dataset{}, &ParseError{Row: row, Col: na, Value: sval, Err: err}
			}
			raw[j] = append(raw[j], v)
		}
	}

	return normalize(raw)
}

// normalize validates the raw columns and constructs the derived
// columns.  The raw slices are indexed in rawColumns order.
func normalize(raw [][]float64) (statmodel.Dataset, error) {

	col := func(name string) []float64 {
		for j, na := range rawColumns {
			if na == name {
				return raw[j]
			}
		}
		panic("gbcs: unknown raw column " + name)
	}

	id := col("id")
	age := col("age")
	size := col("size")
	nodes := col("nodes")
	prog := col("prog_recp")
	estrg := col("estrg_recp")
	rectime := col("rectime")
	censrec := col("censrec")
	survtime := col("survtime")
	censdead := col("censdead")
	grade := col("grade")

	n := len(id)

	check := func(name string, x []float64, ok func(float64) bool, what string) error {
		for i, v := range x {
			if !ok(v) {
				return &ParseError{
					Row:   i + 1,
					Col:   name,
					Value: strconv.FormatFloat(v, 'g', -1, 64),
					Err:   fmt.Errorf("%s", what),
				}
			}
		}
		return nil
	}

	nonneg := func(v float64) bool { return v >= 0 }
	binary := func(v float64) bool { return v == 0 || v == 1 }

	if err := check("rectime", rectime, nonneg, "time must be non-negative"); err != nil {
		return statmodel.Dataset{}, err
	}
	if err := check("survtime", survtime, nonneg, "time must be non-negative"); err != nil {
		return statmodel.Dataset{}, err
	}
	if err := check("censrec", censrec, binary, "event indicator must be 0 or 1"); err != nil {
		return statmodel.Dataset{}, err
	}
	if err := check("censdead", censdead, binary, "event indicator must be 0 or 1"); err != nil {
		return statmodel.Dataset{}, err
	}
	if err := check("grade", grade, func(v float64) bool { return v == 1 || v == 2 || v == 3 }, "tumor grade must be 1, 2 or 3"); err != nil {
		return statmodel.Dataset{}, err
	}

	// Indicator coding for the binary factors; the raw file codes
	// menopause and hormone as 1/2.
	indicator := func(x []float64) []float64 {
		z := make([]float64, len(x))
		for i, v := range x {
			if v == 1 {
				z[i] = 1
			}
		}
		return z
	}

	menopause := indicator(col("menopause"))
	hormone := indicator(col("hormone"))

	grade2 := make([]float64, n)
	grade3 := make([]float64, n)
	for i, g := range grade {
		switch g {
		case 2:
			grade2[i] = 1
		case 3:
			grade3[i] = 1
		}
	}

	// Median splits at the frozen protocol cutoffs.
	ageMed := make([]float64, n)
	rectimeMed := make([]float64, n)
	for i := range age {
		if age[i] > AgeCutoff {
			ageMed[i] = 1
		}
		if rectime[i] > RectimeCutoff {
			rectimeMed[i] = 1
		}
	}

	da := [][]statmodel.Dtype{
		id, age, menopause, hormone, size, grade2, grade3, nodes,
		prog, estrg, rectime, censrec, survtime, censdead, ageMed, rectimeMed,
	}
	names := []string{
		ID, Age, Menopause, Hormone, Size, Grade2, Grade3, Nodes,
		ProgRecp, EstrgRecp, Rectime, CensRec, Survtime, CensDead, AgeMed, RectimeMed,
	}

	return statmodel.NewDataset(da, names), nil
}

// Continuous lists the continuous covariates that are examined for
// nonlinearity and correlated against martingale residuals.
func Continuous() []string {
	return []string{Age, Size, Nodes, ProgRecp, EstrgRecp, Rectime}
}

// BaseCovariates lists the covariates of the full model: all base
// covariates, excluding the median splits whose continuous sources are
// already present.
func BaseCovariates() []string {
	return []string{Age, Menopause, Hormone, Size, Grade2, Grade3, Nodes, ProgRecp, EstrgRecp, Rectime}
}
