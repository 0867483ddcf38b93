package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finset/internal/chart"
)

type ChartCmd struct {
	FilterFlags `embed:""`

	Kind   string  `arg:"" enum:"donut,line,bar" help:"Chart kind (${enum})."`
	Out    string  `short:"o" default:"-" help:"Output file, - for stdout."`
	Width  float64 `default:"640" help:"Width in pixels."`
	Height float64 `default:"320" help:"Height in pixels."`
	Color  string  `name:"color-theme" default:"auto" enum:"auto,light,dark" help:"Colors; auto follows the saved theme."`
	Hover  string  `help:"Print the tooltip at x,y instead of the chart."`

	Frames        string        `type:"path" help:"Write the entry animation as numbered SVG files into this directory."`
	FrameInterval time.Duration `default:"50ms" help:"Time between animation frames."`
}

func (c *ChartCmd) Run(app *App) error {
	f, err := c.filter()
	if err != nil {
		return err
	}
	if c.Width < 50 || c.Height < 50 {
		return fmt.Errorf("width and height must be at least 50")
	}
	app.sync()

	data, err := chart.DashboardData(c.Kind, app.controller.Dashboard(f))
	if err != nil {
		return err
	}
	ch, err := chart.New(c.Kind, chart.Size{Width: c.Width, Height: c.Height}, data)
	if err != nil {
		return err
	}

	if c.Hover != "" {
		pt, err := parsePoint(c.Hover)
		if err != nil {
			return err
		}
		tip, ok := ch.Tooltip(pt)
		if app.json {
			return app.printJSON(map[string]any{"hit": ok, "tooltip": tip})
		}
		if !ok {
			fmt.Fprintln(app.out, "Nothing under the pointer.")
			return nil
		}
		fmt.Fprintln(app.out, tip.Text)
		return nil
	}

	theme := c.Color
	if theme == "auto" {
		theme = app.controller.Theme()
	}
	if c.Frames != "" {
		return c.writeFrames(app, ch, theme)
	}

	var buf bytes.Buffer
	if err := ch.WriteSVG(&buf, chart.SVGOptions{Theme: theme}); err != nil {
		return err
	}

	if c.Out == "-" {
		_, err := app.out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(c.Out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Wrote %s chart to %s\n", c.Kind, c.Out)
	return nil
}

// writeFrames renders one SVG per animation frame, sampled every
// FrameInterval over chart.DefaultDuration.
func (c *ChartCmd) writeFrames(app *App, ch chart.Chart, theme string) error {
	if c.FrameInterval <= 0 {
		return errors.New("frame interval must be positive")
	}
	if err := os.MkdirAll(c.Frames, 0o755); err != nil {
		return err
	}

	n := 0
	for _, p := range chart.Frames(chart.DefaultDuration, c.FrameInterval) {
		// SVGOptions reads a zero progress as the final frame.
		if p == 0 {
			continue
		}
		n++
		var buf bytes.Buffer
		if err := ch.WriteSVG(&buf, chart.SVGOptions{Theme: theme, Progress: p}); err != nil {
			return err
		}
		path := filepath.Join(c.Frames, fmt.Sprintf("%s-%03d.svg", c.Kind, n))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	fmt.Fprintf(app.out, "Wrote %d %s frames to %s\n", n, c.Kind, c.Frames)
	return nil
}

// parsePoint reads "x,y".
func parsePoint(s string) (chart.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if ok {
		x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if errX == nil && errY == nil {
			return chart.Point{X: x, Y: y}, nil
		}
	}
	return chart.Point{}, fmt.Errorf("hover must be x,y, got %q", s)
}
