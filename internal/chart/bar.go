package chart

import (
	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// barFill is the share of each slot covered by its bar.
const barFill = 0.8

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether pt lies inside r, edges included.
func (r Rect) Contains(pt Point) bool {
	return pt.X >= r.X && pt.X <= r.X+r.W && pt.Y >= r.Y && pt.Y <= r.Y+r.H
}

// BarRect is a plotted bar with the value it represents.
type BarRect struct {
	Rect
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// Bar is a column chart with one bar per datum.
type Bar struct {
	Size   Size      `json:"size"`
	Max    float64   `json:"max"`
	Bars   []BarRect `json:"bars"`
	values []float64
}

// NewBar splits the padded width into equal slots, one bar per datum, with
// heights scaled against the largest value (at least 1).
func NewBar(size Size, data []Datum) *Bar {
	b := &Bar{Size: size, values: floats(data)}
	b.Max = scaleMax(b.values)
	b.Bars = make([]BarRect, len(data))
	for i, datum := range data {
		b.Bars[i] = BarRect{
			Rect:  b.rect(i, b.values[i]),
			Label: datum.Label,
			Value: datum.Value,
		}
	}
	return b
}

func (b *Bar) slot() float64 {
	if len(b.values) == 0 {
		return 0
	}
	return (b.Size.Width - 2*Padding) / float64(len(b.values))
}

func (b *Bar) rect(i int, v float64) Rect {
	bw := b.slot()
	h := v / b.Max * (b.Size.Height - 2*Padding)
	return Rect{
		X: Padding + float64(i)*bw,
		Y: b.Size.Height - Padding - h,
		W: bw * barFill,
		H: h,
	}
}

// Empty reports whether the series sums to zero.
func (b *Bar) Empty() bool {
	return sum(b.values) == 0
}

// At returns the bars at animation progress p, every height interpolated
// linearly from the baseline.
func (b *Bar) At(p float64) []Rect {
	p = clamp01(p)
	out := make([]Rect, len(b.values))
	for i, v := range b.values {
		out[i] = b.rect(i, v*p)
	}
	return out
}

// HitTest returns the bar whose rectangle contains pt.
func (b *Bar) HitTest(pt Point) (BarRect, bool) {
	for _, r := range b.Bars {
		if r.Contains(pt) {
			return r, true
		}
	}
	return BarRect{}, false
}

// Tooltip shows the amount of the bar under pt.
func (b *Bar) Tooltip(pt Point) (Tooltip, bool) {
	if b.Empty() {
		return Tooltip{}, false
	}
	r, ok := b.HitTest(pt)
	if !ok {
		return Tooltip{}, false
	}
	return newTooltip(core.FormatAmount(r.Value), pt), true
}
