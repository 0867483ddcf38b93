package chart

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finset/internal/aggregate"
	"finset/internal/core"
)

func data(values ...int64) []Datum {
	labels := []string{"Food", "Cafe", "Rent", "Bus", "Gym"}
	out := make([]Datum, len(values))
	for i, v := range values {
		out[i] = Datum{Label: labels[i%len(labels)], Value: decimal.NewFromInt(v)}
	}
	return out
}

func TestProgress(t *testing.T) {
	cases := []struct {
		elapsed  time.Duration
		duration time.Duration
		want     float64
	}{
		{0, DefaultDuration, 0},
		{-time.Second, DefaultDuration, 0},
		{250 * time.Millisecond, DefaultDuration, 0.5},
		{DefaultDuration, DefaultDuration, 1},
		{2 * time.Second, DefaultDuration, 1},
		{time.Second, 0, 1},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Progress(tc.elapsed, tc.duration), 1e-9, "elapsed %s", tc.elapsed)
	}
}

func TestFrames(t *testing.T) {
	frames := Frames(DefaultDuration, 100*time.Millisecond)
	require.Len(t, frames, 6)
	assert.Equal(t, 0.0, frames[0])
	assert.Equal(t, 1.0, frames[len(frames)-1])
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i], frames[i-1])
	}
	assert.Equal(t, []float64{1}, Frames(0, time.Millisecond))
	assert.Equal(t, []float64{1}, Frames(DefaultDuration, 0))
	assert.Equal(t, []float64{1}, Frames(DefaultDuration, -time.Millisecond))
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, Palette[0], ColorFor(""))
	// 'A' = 65, 65 % 9 = 2
	assert.Equal(t, Palette[2], ColorFor("A"))
	assert.Equal(t, ColorFor("Food"), ColorFor("Food"))
	assert.Equal(t, Palette[0], ColorAt(9))
}

func TestDonutGeometry(t *testing.T) {
	d := NewDonut(Size{Width: 300, Height: 200}, data(1, 1, 2))
	assert.Equal(t, Point{X: 150, Y: 100}, d.Center)
	assert.Equal(t, 80.0, d.Radius)
	assert.Equal(t, 40.0, d.Inner)
	require.Len(t, d.Slices, 3)

	assert.InDelta(t, -math.Pi/2, d.Slices[0].Start, 1e-9)
	assert.InDelta(t, 0, d.Slices[0].End, 1e-9)
	assert.InDelta(t, math.Pi/2, d.Slices[1].End, 1e-9)
	assert.InDelta(t, 3*math.Pi/2, d.Slices[2].End, 1e-9)
	assert.Equal(t, Palette[1], d.Slices[1].Color)
	assert.False(t, d.Empty())
}

func TestDonutSweep(t *testing.T) {
	d := NewDonut(Size{Width: 200, Height: 200}, data(1, 1))
	half := d.Sweep(0.5)
	for i, s := range half {
		assert.InDelta(t, d.Slices[i].Start, s.Start, 1e-9)
		assert.InDelta(t, (d.Slices[i].End-d.Slices[i].Start)/2, s.End-s.Start, 1e-9)
	}
	for _, s := range d.Sweep(0) {
		assert.Equal(t, s.Start, s.End)
	}
}

func TestDonutHitTest(t *testing.T) {
	// Two equal slices: the first covers the right half, the second the left.
	d := NewDonut(Size{Width: 200, Height: 200}, data(1, 1))
	c := d.Center
	mid := (d.Inner + d.Radius) / 2

	cases := []struct {
		name  string
		pt    Point
		label string
		hit   bool
	}{
		{"right half", Point{X: c.X + mid, Y: c.Y}, "Food", true},
		{"left half", Point{X: c.X - mid, Y: c.Y}, "Cafe", true},
		{"top just left of 12 o'clock", Point{X: c.X - 0.01, Y: c.Y - mid}, "Cafe", true},
		{"top at 12 o'clock", Point{X: c.X, Y: c.Y - mid}, "Food", true},
		{"bottom", Point{X: c.X, Y: c.Y + mid}, "Cafe", true},
		{"inside hole", Point{X: c.X + d.Inner - 1, Y: c.Y}, "", false},
		{"outer slack", Point{X: c.X + d.Radius + 4, Y: c.Y}, "Food", true},
		{"outside", Point{X: c.X + d.Radius + 6, Y: c.Y}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, ok := d.HitTest(tc.pt)
			assert.Equal(t, tc.hit, ok)
			assert.Equal(t, tc.label, s.Label)
		})
	}

	tip, ok := d.Tooltip(Point{X: c.X + mid, Y: c.Y})
	require.True(t, ok)
	assert.Equal(t, "Food: 1.00", tip.Text)
}

func TestDonutEmpty(t *testing.T) {
	d := NewDonut(Size{Width: 200, Height: 200}, data(0, 0))
	assert.True(t, d.Empty())
	_, ok := d.HitTest(d.Center)
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, d.WriteSVG(&buf, SVGOptions{}))
	assert.Contains(t, buf.String(), EmptyDonut)
	assert.NotContains(t, buf.String(), "<path")
}

func TestLineGeometry(t *testing.T) {
	l := NewLine(Size{Width: 140, Height: 120}, data(0, 5, 10))
	require.Len(t, l.Points, 3)
	assert.Equal(t, 10.0, l.Max)

	assert.Equal(t, 20.0, l.Points[0].X)
	assert.Equal(t, 70.0, l.Points[1].X)
	assert.Equal(t, 120.0, l.Points[2].X)
	assert.Equal(t, 100.0, l.Points[0].Y)
	assert.Equal(t, 60.0, l.Points[1].Y)
	assert.Equal(t, 20.0, l.Points[2].Y)

	half := l.At(0.5)
	assert.Equal(t, 60.0, half[2].Y)
	for _, p := range l.At(0) {
		assert.Equal(t, 100.0, p.Y)
	}

	near, ok := l.Nearest(100)
	require.True(t, ok)
	assert.Equal(t, "Rent", near.Label)
	near, _ = l.Nearest(45)
	assert.Equal(t, "Food", near.Label, "ties go to the earlier point")

	tip, ok := l.Tooltip(Point{X: 69, Y: 0})
	require.True(t, ok)
	assert.Equal(t, "5.00", tip.Text)
	assert.Equal(t, 81.0, tip.X)
}

func TestLineScaleFloor(t *testing.T) {
	l := NewLine(Size{Width: 100, Height: 100}, []Datum{
		{Label: "a", Value: decimal.RequireFromString("0.5")},
	})
	assert.Equal(t, 1.0, l.Max)
	require.Len(t, l.Points, 1)
	assert.Equal(t, Padding, l.Points[0].X)
	assert.Equal(t, 50.0, l.Points[0].Y)
}

func TestLineEmpty(t *testing.T) {
	l := NewLine(Size{Width: 100, Height: 100}, data(0, 0, 0))
	assert.True(t, l.Empty())
	_, ok := l.Tooltip(Point{X: 20})
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, l.WriteSVG(&buf, SVGOptions{}))
	assert.Contains(t, buf.String(), EmptySeries)
}

func TestBarGeometry(t *testing.T) {
	b := NewBar(Size{Width: 140, Height: 120}, data(10, 0, 5, 2))
	require.Len(t, b.Bars, 4)

	first := b.Bars[0]
	assert.Equal(t, 20.0, first.X)
	assert.Equal(t, 20.0, first.Y)
	assert.Equal(t, 20.0, first.W)
	assert.Equal(t, 80.0, first.H)

	third := b.Bars[2]
	assert.Equal(t, 70.0, third.X)
	assert.Equal(t, 60.0, third.Y)
	assert.Equal(t, 40.0, third.H)

	for _, r := range b.At(0) {
		assert.Equal(t, 0.0, r.H)
	}

	hit, ok := b.HitTest(Point{X: 75, Y: 90})
	require.True(t, ok)
	assert.Equal(t, "Rent", hit.Label)

	_, ok = b.HitTest(Point{X: 75, Y: 50})
	assert.False(t, ok, "above the bar")
	_, ok = b.HitTest(Point{X: 44, Y: 90})
	assert.False(t, ok, "gap between bars")

	tip, ok := b.Tooltip(Point{X: 25, Y: 99})
	require.True(t, ok)
	assert.Equal(t, "10.00", tip.Text)
}

func TestWriteSVG(t *testing.T) {
	size := Size{Width: 320, Height: 200}
	for _, kind := range []string{KindDonut, KindLine, KindBar} {
		t.Run(kind, func(t *testing.T) {
			c, err := New(kind, size, data(3, 1, 4))
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, c.WriteSVG(&buf, SVGOptions{Theme: "dark"}))
			out := buf.String()
			assert.Contains(t, out, `<svg xmlns="http://www.w3.org/2000/svg" width="320" height="200"`)
			assert.Contains(t, out, "#0f172a")
			assert.Contains(t, out, "</svg>")
		})
	}

	_, err := New("pie", size, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDonutSingleSliceFullCircle(t *testing.T) {
	d := NewDonut(Size{Width: 100, Height: 100}, data(7))
	var buf bytes.Buffer
	require.NoError(t, d.WriteSVG(&buf, SVGOptions{}))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("<path")))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(0))
	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "10", num(10))
	assert.Equal(t, "12.5", num(12.5))
	assert.Equal(t, "1.23", num(1.234))
}

func TestDashboardData(t *testing.T) {
	dash := aggregate.Dashboard{
		Rollup:   []core.CategoryAmount{{Category: "Food", Total: decimal.NewFromInt(5)}},
		Trailing: make([]aggregate.DayAmount, aggregate.TrailingWindow),
		Month:    make([]aggregate.DayAmount, 31),
	}

	donut, err := DashboardData(KindDonut, dash)
	require.NoError(t, err)
	assert.Equal(t, []Datum{{Label: "Food", Value: decimal.NewFromInt(5)}}, donut)

	line, err := DashboardData(KindLine, dash)
	require.NoError(t, err)
	assert.Len(t, line, aggregate.TrailingWindow)

	bar, err := DashboardData(KindBar, dash)
	require.NoError(t, err)
	assert.Len(t, bar, 31)

	_, err = DashboardData("pie", dash)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
