package duration

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SurvCurvePlotter draws survival curves: step functions for
// Kaplan-Meier estimates and smooth curves for parametric models.
type SurvCurvePlotter struct {
	plt *plot.Plot

	labels []string
	lines  []*plotter.Line

	width  vg.Length
	height vg.Length
}

// NewSurvCurvePlotter returns a default SurvCurvePlotter.
func NewSurvCurvePlotter() *SurvCurvePlotter {

	return &SurvCurvePlotter{
		plt:    plot.New(),
		width:  4,
		height: 4,
	}
}

// Width sets the width of the plot in inches.
func (sp *SurvCurvePlotter) Width(w float64) *SurvCurvePlotter {
	sp.width = vg.Length(w)
	return sp
}

// Height sets the height of the plot in inches.
func (sp *SurvCurvePlotter) Height(h float64) *SurvCurvePlotter {
	sp.height = vg.Length(h)
	return sp
}

// Title sets the plot title.
func (sp *SurvCurvePlotter) Title(t string) *SurvCurvePlotter {
	sp.plt.Title.Text = t
	return sp
}

// AddStep plots a Kaplan-Meier survival function as a step function.
func (sp *SurvCurvePlotter) AddStep(sf *SurvfuncRight, label string) *SurvCurvePlotter {

	ti := sf.Time()
	pr := sf.SurvProb()

	m := len(ti)
	n := 2*m + 1

	pts := make(plotter.XYs, n)

	j := 0
	pts[j].X = 0
	pts[j].Y = 1
	j++

	for i := range ti {
		pts[j].X = ti[i]
		pts[j].Y = pts[j-1].Y
		j++
		pts[j].X = ti[i]
		pts[j].Y = pr[i]
		j++
	}

	return sp.addLine(pts, label)
}

// AddCurve plots a survival curve evaluated on a time grid.
func (sp *SurvCurvePlotter) AddCurve(times, probs []float64, label string) *SurvCurvePlotter {

	pts := make(plotter.XYs, len(times))
	for i := range times {
		pts[i].X = times[i]
		pts[i].Y = probs[i]
	}

	return sp.addLine(pts, label)
}

func (sp *SurvCurvePlotter) addLine(pts plotter.XYs, label string) *SurvCurvePlotter {

	line, err := plotter.NewLine(pts)
	if err != nil {
		panic(err)
	}
	line.Color = plotutil.Color(len(sp.lines))

	sp.lines = append(sp.lines, line)
	sp.labels = append(sp.labels, label)

	return sp
}

// Plot assembles the plot from the curves added so far.
func (sp *SurvCurvePlotter) Plot() *SurvCurvePlotter {

	sp.plt.Y.Min = 0
	sp.plt.Y.Max = 1

	sp.plt.X.Label.Text = "Time"
	sp.plt.Y.Label.Text = "Proportion surviving"

	for i := range sp.lines {
		sp.plt.Add(sp.lines[i])
		sp.plt.Legend.Add(sp.labels[i], sp.lines[i])
	}

	if len(sp.lines) > 1 {
		sp.plt.Legend.Top = false
		sp.plt.Legend.Left = true
	}

	return sp
}

// GetPlotStruct returns the plotting structure for this plot.
func (sp *SurvCurvePlotter) GetPlotStruct() *plot.Plot {
	return sp.plt
}

// Save writes the plot to the given file.
func (sp *SurvCurvePlotter) Save(fname string) error {
	return sp.plt.Save(sp.width*vg.Inch, sp.height*vg.Inch, fname)
}
