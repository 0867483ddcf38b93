package chart

import (
	"math"

	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// LinePoint is a plotted point with the value it represents.
type LinePoint struct {
	X     float64         `json:"x"`
	Y     float64         `json:"y"`
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// Line is a polyline over an evenly spaced series.
type Line struct {
	Size   Size        `json:"size"`
	Max    float64     `json:"max"`
	Points []LinePoint `json:"points"`
	values []float64
}

// NewLine places one point per datum. X steps evenly across the padded
// width; Y is scaled against the largest value (at least 1).
func NewLine(size Size, data []Datum) *Line {
	l := &Line{Size: size, values: floats(data)}
	l.Max = scaleMax(l.values)

	step := 0.0
	if n := len(data); n > 1 {
		step = (size.Width - 2*Padding) / float64(n-1)
	}
	l.Points = make([]LinePoint, len(data))
	for i, datum := range data {
		l.Points[i] = LinePoint{
			X:     Padding + float64(i)*step,
			Y:     l.y(l.values[i]),
			Label: datum.Label,
			Value: datum.Value,
		}
	}
	return l
}

func (l *Line) y(v float64) float64 {
	return l.Size.Height - Padding - v/l.Max*(l.Size.Height-2*Padding)
}

// Empty reports whether the series sums to zero.
func (l *Line) Empty() bool {
	return sum(l.values) == 0
}

// At returns the polyline at animation progress p, every height
// interpolated linearly from the baseline.
func (l *Line) At(p float64) []Point {
	p = clamp01(p)
	out := make([]Point, len(l.Points))
	for i, pt := range l.Points {
		out[i] = Point{X: pt.X, Y: l.y(l.values[i] * p)}
	}
	return out
}

// Nearest returns the point horizontally closest to x. Ties go to the
// earlier point.
func (l *Line) Nearest(x float64) (LinePoint, bool) {
	if len(l.Points) == 0 {
		return LinePoint{}, false
	}
	best := l.Points[0]
	bestDist := math.Abs(x - best.X)
	for _, pt := range l.Points[1:] {
		if d := math.Abs(x - pt.X); d < bestDist {
			best, bestDist = pt, d
		}
	}
	return best, true
}

// Tooltip shows the amount of the point nearest to pt.
func (l *Line) Tooltip(pt Point) (Tooltip, bool) {
	if l.Empty() {
		return Tooltip{}, false
	}
	near, ok := l.Nearest(pt.X)
	if !ok {
		return Tooltip{}, false
	}
	return newTooltip(core.FormatAmount(near.Value), pt), true
}
