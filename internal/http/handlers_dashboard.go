package http

import (
	"bytes"
	"net/http"
	"strings"

	"finset/internal/aggregate"
	"finset/internal/chart"
	"finset/internal/log"
)

// dashboard builds the aggregate for the request's filter and budget.
func (s *Server) dashboard(r *http.Request) (aggregate.Dashboard, error) {
	q := r.URL.Query()
	f, err := parseFilter(q)
	if err != nil {
		return aggregate.Dashboard{}, err
	}
	budget, err := parseBudget(q)
	if err != nil {
		return aggregate.Dashboard{}, err
	}
	txs, err := s.transactions(r.Context())
	if err != nil {
		return aggregate.Dashboard{}, err
	}
	return aggregate.Build(txs, f, budget, s.today()), nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	dash, err := s.dashboard(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(dash).Write(w)
}

// buildChart constructs the chart named by the {kind} path segment over the
// filtered dashboard.
func (s *Server) buildChart(r *http.Request) (chart.Chart, error) {
	kind := r.PathValue("kind")
	size, err := parseSize(r.URL.Query())
	if err != nil {
		return nil, err
	}
	dash, err := s.dashboard(r)
	if err != nil {
		return nil, err
	}
	data, err := chart.DashboardData(kind, dash)
	if err != nil {
		return nil, err
	}
	return chart.New(kind, size, data)
}

type chartResponse struct {
	Kind  string      `json:"kind"`
	Empty bool        `json:"empty"`
	Chart chart.Chart `json:"chart"`
}

// handleChart returns the final-frame geometry as JSON or the rendered SVG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format != "" && format != "svg" && format != "json" {
		s.writeError(w, r, log.OpRender, errInvalidFormat)
		return
	}

	c, err := s.buildChart(r)
	if err != nil {
		s.writeError(w, r, log.OpRender, err)
		return
	}

	if format == "json" {
		NewResponse().JSON(chartResponse{Kind: r.PathValue("kind"), Empty: c.Empty(), Chart: c}).Write(w)
		return
	}

	theme := "light"
	if strings.EqualFold(q.Get("theme"), "dark") {
		theme = "dark"
	}
	var buf bytes.Buffer
	if err := c.WriteSVG(&buf, chart.SVGOptions{Theme: theme}); err != nil {
		s.writeError(w, r, log.OpRender, err)
		return
	}
	NewResponse().Raw("image/svg+xml", buf.Bytes()).Write(w)
}

type tooltipResponse struct {
	Hit     bool           `json:"hit"`
	Tooltip *chart.Tooltip `json:"tooltip,omitempty"`
}

// handleChartTooltip hit-tests a pointer position against the chart.
func (s *Server) handleChartTooltip(w http.ResponseWriter, r *http.Request) {
	pt, err := parsePoint(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpRender, err)
		return
	}
	c, err := s.buildChart(r)
	if err != nil {
		s.writeError(w, r, log.OpRender, err)
		return
	}

	tip, ok := c.Tooltip(pt)
	if !ok {
		NewResponse().JSON(tooltipResponse{}).Write(w)
		return
	}
	NewResponse().JSON(tooltipResponse{Hit: true, Tooltip: &tip}).Write(w)
}
