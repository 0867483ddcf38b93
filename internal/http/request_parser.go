package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"finset/internal/aggregate"
	"finset/internal/chart"
	"finset/internal/core"
	"finset/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 16 << 20

	defaultChartWidth  = 640
	defaultChartHeight = 320
	minChartSide       = 50
	maxChartSide       = 4000
)

var (
	errInvalidBody    = &core.ValidationError{Field: "body", Message: "invalid JSON body"}
	errBodyTooLarge   = errors.New("request body too large")
	errInvalidFilter  = &core.ValidationError{Field: "type", Message: "type must be all, income or expense"}
	errInvalidBudget  = &core.ValidationError{Field: "budget", Message: "budget must be a non-negative number"}
	errInvalidSize    = &core.ValidationError{Field: "width,height", Message: "width and height must be numbers between 50 and 4000"}
	errInvalidPoint   = &core.ValidationError{Field: "x,y", Message: "x and y must be numbers"}
	errImportRequired = &core.ValidationError{Field: "transactions", Message: "transactions array required"}
	errInvalidFormat  = &core.ValidationError{Field: "format", Message: "format must be svg or json"}
)

// amountField accepts an amount sent as a JSON number or as a numeric
// string. Numbers are expanded to plain decimals so 1e3 reads as 1000; the
// comma separator is only accepted in strings. Anything else decodes to ""
// and fails validation later.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*a = ""
		return nil
	}
	plain, err := core.ParseNumber(n.String())
	if err != nil {
		*a = ""
		return nil
	}
	*a = amountField(plain)
	return nil
}

// transactionRequest is the body of POST /api/transactions and one element
// of an import.
type transactionRequest struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Amount   amountField `json:"amount"`
	Category string      `json:"category"`
	Method   string      `json:"method"`
	Date     string      `json:"date"`
	Note     string      `json:"note"`
}

func (r transactionRequest) input() core.TransactionInput {
	return core.TransactionInput{
		ID:       sanitizeInput(r.ID),
		Type:     sanitizeInput(r.Type),
		Amount:   strings.TrimSpace(string(r.Amount)),
		Category: sanitizeInput(r.Category),
		Method:   sanitizeInput(r.Method),
		Date:     sanitizeInput(r.Date),
		Note:     sanitizeInput(r.Note),
	}
}

type importRequest struct {
	Transactions []transactionRequest `json:"transactions"`
}

func (r importRequest) inputs() []core.TransactionInput {
	out := make([]core.TransactionInput, len(r.Transactions))
	for i, tx := range r.Transactions {
		out[i] = tx.input()
	}
	return out
}

// decodeJSON reads at most limit bytes of JSON into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errInvalidBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

// parseFilter reads the dashboard filter from type, category, start, end
// and q.
func parseFilter(q url.Values) (aggregate.Filter, error) {
	f := aggregate.Filter{
		Type:     strings.ToLower(strings.TrimSpace(q.Get("type"))),
		Category: sanitizeInput(q.Get("category")),
		Search:   sanitizeInput(q.Get("q")),
	}
	switch f.Type {
	case "", aggregate.All, string(core.Income), string(core.Expense):
	default:
		return aggregate.Filter{}, errInvalidFilter
	}

	for _, p := range []struct {
		key string
		dst *core.Date
	}{{"start", &f.Start}, {"end", &f.End}} {
		v := strings.TrimSpace(q.Get(p.key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return aggregate.Filter{}, core.ErrInvalidDate
		}
		*p.dst = d
	}
	return f, nil
}

// parseBudget reads the optional monthly budget; absent means unset.
func parseBudget(q url.Values) (decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get("budget"))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := core.ParseAmount(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, errInvalidBudget
	}
	return d, nil
}

func parseMonths(q url.Values) int {
	months, err := strconv.Atoi(strings.TrimSpace(q.Get("months")))
	if err != nil {
		months = services.DefaultFlowMonths
	}
	return services.ClampMonths(months)
}

func parseSize(q url.Values) (chart.Size, error) {
	width, err := floatParam(q, "width", defaultChartWidth)
	if err != nil {
		return chart.Size{}, errInvalidSize
	}
	height, err := floatParam(q, "height", defaultChartHeight)
	if err != nil {
		return chart.Size{}, errInvalidSize
	}
	if width < minChartSide || width > maxChartSide || height < minChartSide || height > maxChartSide {
		return chart.Size{}, errInvalidSize
	}
	return chart.Size{Width: width, Height: height}, nil
}

func parsePoint(q url.Values) (chart.Point, error) {
	if q.Get("x") == "" || q.Get("y") == "" {
		return chart.Point{}, errInvalidPoint
	}
	x, errX := floatParam(q, "x", 0)
	y, errY := floatParam(q, "y", 0)
	if errX != nil || errY != nil {
		return chart.Point{}, errInvalidPoint
	}
	return chart.Point{X: x, Y: y}, nil
}

func floatParam(q url.Values, key string, def float64) (float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not finite", key)
	}
	return f, nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
