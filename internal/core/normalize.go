package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalize maps an arbitrary decoded JSON record to a Transaction. It never
// fails; every field has a documented default:
//
//   - id: string as-is, numbers in their shortest decimal form, otherwise ""
//   - type: "income" when the value equals income (case-insensitive), otherwise "expense"
//   - amount: a number or numeric string, otherwise 0; negative and non-finite values become 0
//   - category: category, else note, else "Uncategorized"
//   - method: method, else "Cash"
//   - date: first 10 characters when they parse as YYYY-MM-DD, otherwise today
//   - created_at: RFC 3339 timestamp, otherwise the zero time
func Normalize(rec map[string]any, today Date) Transaction {
	tx := Transaction{
		ID:     idString(rec["id"]),
		Type:   Expense,
		Amount: amountValue(rec["amount"]),
		Note:   strings.TrimSpace(stringValue(rec["note"])),
		Method: strings.TrimSpace(stringValue(rec["method"])),
		Date:   today,
	}

	if strings.EqualFold(strings.TrimSpace(stringValue(rec["type"])), string(Income)) {
		tx.Type = Income
	}

	tx.Category = strings.TrimSpace(stringValue(rec["category"]))
	if tx.Category == "" {
		tx.Category = tx.Note
	}
	if tx.Category == "" {
		tx.Category = DefaultCategory
	}
	if tx.Method == "" {
		tx.Method = DefaultMethod
	}

	if s := stringValue(rec["date"]); len(s) >= len(DateLayout) {
		if d, err := ParseDate(s[:len(DateLayout)]); err == nil {
			tx.Date = d
		}
	}

	if s := stringValue(rec["created_at"]); s != "" {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			tx.CreatedAt = ts
		}
	}

	return tx
}

// NormalizeAll applies Normalize to every record.
func NormalizeAll(recs []map[string]any, today Date) []Transaction {
	out := make([]Transaction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Normalize(rec, today))
	}
	return out
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

func idString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return ""
	default:
		return strings.TrimSpace(stringValue(val))
	}
}

func amountValue(v any) decimal.Decimal {
	var d decimal.Decimal
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(val)
	case json.Number:
		parsed, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case string:
		parsed, err := ParseAmount(val)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
