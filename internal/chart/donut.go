package chart

import (
	"math"

	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// donutStart is 12 o'clock in screen coordinates (y grows downwards).
const donutStart = -math.Pi / 2

// hoverSlack extends the outer hit radius past the drawn edge.
const hoverSlack = 5.0

// Slice is one category arc, angles in radians clockwise from 3 o'clock.
type Slice struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
	Color string          `json:"color"`
	Start float64         `json:"start"`
	End   float64         `json:"end"`
}

// Donut is a ring chart of category shares.
type Donut struct {
	Size   Size    `json:"size"`
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
	Inner  float64 `json:"inner"`
	Slices []Slice `json:"slices"`
}

// NewDonut lays out one slice per datum in order, starting at 12 o'clock.
// Each slice angle is proportional to its share of the total.
func NewDonut(size Size, data []Datum) *Donut {
	cx, cy := size.Width/2, size.Height/2
	radius := max(min(cx, cy)-Padding, 0)
	d := &Donut{
		Size:   size,
		Center: Point{X: cx, Y: cy},
		Radius: radius,
		Inner:  radius * 0.5,
	}

	values := floats(data)
	total := sum(values)
	if total <= 0 {
		return d
	}

	start := donutStart
	d.Slices = make([]Slice, 0, len(data))
	for i, datum := range data {
		angle := values[i] / total * 2 * math.Pi
		d.Slices = append(d.Slices, Slice{
			Label: datum.Label,
			Value: datum.Value,
			Color: ColorAt(i),
			Start: start,
			End:   start + angle,
		})
		start += angle
	}
	return d
}

// Empty reports whether there is nothing to draw.
func (d *Donut) Empty() bool {
	return len(d.Slices) == 0
}

// Sweep returns the slices as drawn at animation progress p: each slice
// grows from its start angle towards its end.
func (d *Donut) Sweep(p float64) []Slice {
	p = clamp01(p)
	out := make([]Slice, len(d.Slices))
	for i, s := range d.Slices {
		s.End = s.Start + (s.End-s.Start)*p
		out[i] = s
	}
	return out
}

// HitTest returns the slice under pt. Points inside the hole or beyond the
// outer edge miss.
func (d *Donut) HitTest(pt Point) (Slice, bool) {
	if d.Empty() {
		return Slice{}, false
	}
	dx, dy := pt.X-d.Center.X, pt.Y-d.Center.Y
	r := math.Hypot(dx, dy)
	if r < d.Inner || r > d.Radius+hoverSlack {
		return Slice{}, false
	}

	angle := math.Atan2(dy, dx)
	if angle < donutStart {
		angle += 2 * math.Pi
	}
	for _, s := range d.Slices {
		if angle >= s.Start && angle < s.End {
			return s, true
		}
	}
	return Slice{}, false
}

// Tooltip describes the slice under pt as "label: amount".
func (d *Donut) Tooltip(pt Point) (Tooltip, bool) {
	s, ok := d.HitTest(pt)
	if !ok {
		return Tooltip{}, false
	}
	return newTooltip(s.Label+": "+core.FormatAmount(s.Value), pt), true
}
