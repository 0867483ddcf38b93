package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	DefaultCategory = "Uncategorized"
	DefaultMethod   = "Cash"

	maxNoteLength     = 500
	maxCategoryLength = 100
)

type (
	TxType string

	Date struct {
		time.Time
	}

	// Transaction is a single dated income or expense record. Amount is always
	// non-negative; the sign of its contribution is derived from Type.
	Transaction struct {
		ID        string          `json:"id"`
		Type      TxType          `json:"type"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Method    string          `json:"method"`
		Date      Date            `json:"date"`
		Note      string          `json:"note"`
		CreatedAt time.Time       `json:"created_at"`
	}

	// TransactionInput is a create request as received at a boundary, before
	// validation.
	TransactionInput struct {
		ID       string `json:"id,omitempty"`
		Type     string `json:"type"`
		Amount   string `json:"amount"`
		Category string `json:"category"`
		Method   string `json:"method,omitempty"`
		Date     string `json:"date"`
		Note     string `json:"note,omitempty"`
	}
)

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidType     = &ValidationError{Field: "type", Message: "type must be income or expense"}
	ErrInvalidAmount   = &ValidationError{Field: "amount", Message: "amount must be a positive number"}
	ErrMissingFields   = &ValidationError{Field: "category,date", Message: "category and date are required"}
	ErrInvalidDate     = &ValidationError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"}
	ErrAmountTooLarge  = &ValidationError{Field: "amount", Message: "amount must not exceed 9999999999.99"}
	ErrNoteTooLong     = &ValidationError{Field: "note", Message: "note too long (max 500 characters)"}
	ErrCategoryTooLong = &ValidationError{Field: "category", Message: "category too long (max 100 characters)"}
)

// ValidationErrors lists the sentinel validation errors.
func ValidationErrors() []*ValidationError {
	return []*ValidationError{
		ErrInvalidType, ErrInvalidAmount, ErrAmountTooLarge, ErrMissingFields,
		ErrInvalidDate, ErrNoteTooLong, ErrCategoryTooLong,
	}
}

// ValidationError reports a malformed create request. Use errors.As to
// recover the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (t TxType) String() string {
	return string(t)
}

// Sign returns +1 for income and -1 for expense.
func (t TxType) Sign() int {
	if t == Income {
		return 1
	}
	return -1
}

// Validate checks the invariants of an already constructed transaction.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Amount.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if strings.TrimSpace(t.Category) == "" || t.Date.IsZero() {
		return ErrMissingFields
	}
	if len(t.Category) > maxCategoryLength {
		return ErrCategoryTooLong
	}
	if len(t.Note) > maxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// IsExpense is a convenience used throughout the aggregation code.
func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

// ParseTransactionInput validates a raw create request and converts it into a
// Transaction without ID or CreatedAt. Checks run in a fixed order so the
// first failing rule determines the reported message.
func ParseTransactionInput(in TransactionInput) (Transaction, error) {
	typ := TxType(strings.TrimSpace(in.Type))
	if !typ.Valid() {
		return Transaction{}, ErrInvalidType
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil || !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	category := strings.TrimSpace(in.Category)
	dateStr := strings.TrimSpace(in.Date)
	if category == "" || dateStr == "" {
		return Transaction{}, ErrMissingFields
	}

	date, err := ParseDate(dateStr)
	if err != nil {
		return Transaction{}, ErrInvalidDate
	}

	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = DefaultMethod
	}

	tx := Transaction{
		ID:       strings.TrimSpace(in.ID),
		Type:     typ,
		Amount:   RoundAmount(amount),
		Category: category,
		Method:   method,
		Date:     date,
		Note:     strings.TrimSpace(in.Note),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Input converts a transaction back to its boundary representation.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		ID:       t.ID,
		Type:     string(t.Type),
		Amount:   FormatAmount(t.Amount),
		Category: t.Category,
		Method:   t.Method,
		Date:     t.Date.String(),
		Note:     t.Note,
	}
}
