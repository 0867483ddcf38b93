package chart

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strings"
)

var ErrUnknownKind = errors.New("unknown chart kind")

// Chart is the behaviour shared by the three chart types.
type Chart interface {
	Empty() bool
	Tooltip(pt Point) (Tooltip, bool)
	WriteSVG(w io.Writer, opts SVGOptions) error
}

// New builds a chart of the given kind.
func New(kind string, size Size, data []Datum) (Chart, error) {
	switch kind {
	case KindDonut:
		return NewDonut(size, data), nil
	case KindLine:
		return NewLine(size, data), nil
	case KindBar:
		return NewBar(size, data), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// SVGOptions control a rendered frame.
type SVGOptions struct {
	// Progress is the animation progress of the frame; 0 means final.
	Progress float64
	// Theme is "light" or "dark".
	Theme string
}

func (o SVGOptions) progress() float64 {
	if o.Progress <= 0 {
		return 1
	}
	return clamp01(o.Progress)
}

type colors struct {
	background string
	text       string
	muted      string
	accent     string
}

func themeColors(theme string) colors {
	if theme == "dark" {
		return colors{background: "#0f172a", text: "#e2e8f0", muted: "#94a3b8", accent: Palette[0]}
	}
	return colors{background: "#ffffff", text: "#0f172a", muted: "#64748b", accent: Palette[0]}
}

type svgDoc struct {
	buf bytes.Buffer
	c   colors
}

func newDoc(size Size, theme string) *svgDoc {
	d := &svgDoc{c: themeColors(theme)}
	fmt.Fprintf(&d.buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(size.Width), num(size.Height), num(size.Width), num(size.Height))
	d.buf.WriteByte('\n')
	fmt.Fprintf(&d.buf, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", d.c.background)
	return d
}

func (d *svgDoc) emptyState(size Size, label string) {
	fmt.Fprintf(&d.buf, `<text x="%s" y="%s" fill="%s" font-family="Inter, sans-serif" font-size="14" text-anchor="middle">%s</text>`+"\n",
		num(size.Width/2), num(size.Height/2), d.c.muted, html.EscapeString(label))
}

func (d *svgDoc) flush(w io.Writer) error {
	d.buf.WriteString("</svg>\n")
	_, err := w.Write(d.buf.Bytes())
	return err
}

// num prints a coordinate with at most two decimals.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// WriteSVG renders the donut. A full turn is split in two arcs since a
// single SVG arc cannot close on itself.
func (d *Donut) WriteSVG(w io.Writer, opts SVGOptions) error {
	doc := newDoc(d.Size, opts.Theme)
	if d.Empty() {
		doc.emptyState(d.Size, EmptyDonut)
		return doc.flush(w)
	}

	for _, s := range d.Sweep(opts.progress()) {
		sweep := s.End - s.Start
		if sweep <= 0 {
			continue
		}
		if sweep >= 2*math.Pi-1e-9 {
			mid := s.Start + math.Pi
			doc.ring(d.Center, d.Radius, d.Inner, s.Start, mid, s.Color, s.Label)
			doc.ring(d.Center, d.Radius, d.Inner, mid, s.End, s.Color, s.Label)
			continue
		}
		doc.ring(d.Center, d.Radius, d.Inner, s.Start, s.End, s.Color, s.Label)
	}
	return doc.flush(w)
}

// ring draws an annular sector between two angles.
func (d *svgDoc) ring(c Point, outer, inner, start, end float64, fill, title string) {
	large := 0
	if end-start > math.Pi {
		large = 1
	}
	polar := func(r, a float64) string {
		return num(c.X+r*math.Cos(a)) + " " + num(c.Y+r*math.Sin(a))
	}
	fmt.Fprintf(&d.buf, `<path d="M %s A %s %s 0 %d 1 %s L %s A %s %s 0 %d 0 %s Z" fill="%s"><title>%s</title></path>`+"\n",
		polar(outer, start), num(outer), num(outer), large, polar(outer, end),
		polar(inner, end), num(inner), num(inner), large, polar(inner, start),
		fill, html.EscapeString(title))
}

// WriteSVG renders the line as a single polyline.
func (l *Line) WriteSVG(w io.Writer, opts SVGOptions) error {
	doc := newDoc(l.Size, opts.Theme)
	if l.Empty() {
		doc.emptyState(l.Size, EmptySeries)
		return doc.flush(w)
	}

	pts := l.At(opts.progress())
	coords := make([]string, len(pts))
	for i, p := range pts {
		coords[i] = num(p.X) + "," + num(p.Y)
	}
	fmt.Fprintf(&doc.buf, `<polyline points="%s" fill="none" stroke="%s" stroke-width="3" stroke-linejoin="round"/>`+"\n",
		strings.Join(coords, " "), doc.c.accent)
	return doc.flush(w)
}

// WriteSVG renders one rect per bar.
func (b *Bar) WriteSVG(w io.Writer, opts SVGOptions) error {
	doc := newDoc(b.Size, opts.Theme)
	if b.Empty() {
		doc.emptyState(b.Size, EmptySeries)
		return doc.flush(w)
	}

	for i, r := range b.At(opts.progress()) {
		fmt.Fprintf(&doc.buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"><title>%s</title></rect>`+"\n",
			num(r.X), num(r.Y), num(r.W), num(r.H), doc.c.accent, html.EscapeString(b.Bars[i].Label))
	}
	return doc.flush(w)
}
