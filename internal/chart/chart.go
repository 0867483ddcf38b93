// Package chart computes donut, line and bar chart geometry, hit-tests
// pointer positions against it and renders the result as SVG.
//
// Charts are values: a redraw (new data or a resized surface) builds a new
// chart with the matching constructor. Animation is expressed as a progress
// value in [0,1] obtained from Progress, so every frame can be computed and
// tested without a clock.
package chart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"finset/internal/aggregate"
	"finset/internal/core"
)

// Padding is the inset between the surface edge and the plotted area of the
// line and bar charts, and the gap between the donut and the surface edge.
const Padding = 20.0

// Empty state labels.
const (
	EmptyDonut  = "No expenses"
	EmptySeries = "No data"
)

// Chart kinds.
const (
	KindDonut = "donut"
	KindLine  = "line"
	KindBar   = "bar"
)

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Datum is one labelled value to plot.
type Datum struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// Tooltip is the text shown next to the pointer and where to place it.
type Tooltip struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func newTooltip(text string, at Point) Tooltip {
	return Tooltip{Text: text, X: at.X + 12, Y: at.Y - 10}
}

// FromRollup converts category totals to chart data, keeping their order.
func FromRollup(entries []core.CategoryAmount) []Datum {
	out := make([]Datum, len(entries))
	for i, e := range entries {
		out[i] = Datum{Label: e.Category, Value: e.Total}
	}
	return out
}

// FromSeries converts a daily series to chart data labelled by date.
func FromSeries(series []aggregate.DayAmount) []Datum {
	out := make([]Datum, len(series))
	for i, s := range series {
		out[i] = Datum{Label: s.Date.String(), Value: s.Total}
	}
	return out
}

// DashboardData picks the series a chart kind plots: the expense rollup for
// the donut, the trailing window for the line and the current month for the
// bar.
func DashboardData(kind string, d aggregate.Dashboard) ([]Datum, error) {
	switch kind {
	case KindDonut:
		return FromRollup(d.Rollup), nil
	case KindLine:
		return FromSeries(d.Trailing), nil
	case KindBar:
		return FromSeries(d.Month), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func floats(data []Datum) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d.Value.InexactFloat64()
	}
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// scaleMax is the largest value, never less than 1.
func scaleMax(values []float64) float64 {
	m := 1.0
	for _, v := range values {
		m = max(m, v)
	}
	return m
}

func clamp01(p float64) float64 {
	return min(max(p, 0), 1)
}
