// Package sheets mirrors transactions into a Google Sheets tab, one row per
// transaction keyed by id in column A.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finset/internal/core"
)

// Header is written to row 1 of an empty sheet.
var Header = []any{"ID", "Date", "Type", "Category", "Method", "Amount", "Note", "Created At"}

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	ClientOptions      []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID *int64
}

// New creates a Sheets client using service account credentials, inline
// JSON first then the file. Extra ClientOptions are appended, which lets
// tests point the client at a local endpoint.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	opts := cfg.ClientOptions
	if len(opts) == 0 {
		var credentialsJSON []byte
		switch {
		case cfg.ServiceAccountJSON != "":
			slog.InfoContext(ctx, "Using inline JSON credentials")
			credentialsJSON = []byte(cfg.ServiceAccountJSON)
		case cfg.ServiceAccountFile != "":
			slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.ServiceAccountFile)
			data, err := os.ReadFile(cfg.ServiceAccountFile)
			if err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
			credentialsJSON = data
		default:
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

func (c *Client) Name() string { return "sheets" }

// Row renders tx in Header order.
func Row(tx core.Transaction) []any {
	created := ""
	if !tx.CreatedAt.IsZero() {
		created = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		tx.ID,
		tx.Date.String(),
		string(tx.Type),
		tx.Category,
		tx.Method,
		tx.Amount.StringFixed(2),
		tx.Note,
		created,
	}
}

// readIDs returns column A, one entry per used row, header included.
func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", c.sheetName, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// rowIndex returns the 1-based sheet row holding id, or 0.
func rowIndex(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i + 1
		}
	}
	return 0
}

// Upsert rewrites the rows of known ids and appends the rest.
func (c *Client) Upsert(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	var (
		updates []*gsheet.ValueRange
		appends [][]any
	)
	if len(ids) == 0 {
		appends = append(appends, Header)
	}
	for _, tx := range txs {
		if n := rowIndex(ids, tx.ID); n > 0 {
			updates = append(updates, &gsheet.ValueRange{
				Range:  fmt.Sprintf("%s!A%d:H%d", c.sheetName, n, n),
				Values: [][]any{Row(tx)},
			})
			continue
		}
		appends = append(appends, Row(tx))
	}

	if len(updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: updates}
		if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update rows in %s: %w", c.sheetName, err)
		}
	}
	if len(appends) > 0 {
		rng := fmt.Sprintf("%s!A:H", c.sheetName)
		vr := &gsheet.ValueRange{Values: appends}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append rows to %s: %w", c.sheetName, err)
		}
	}

	slog.InfoContext(ctx, "Synced transactions to Google Sheets",
		"sheet", c.sheetName, "updated", len(updates), "appended", len(txs)-len(updates))
	return nil
}

// Delete removes the row holding id. Unknown ids are ignored.
func (c *Client) Delete(ctx context.Context, id string) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	n := rowIndex(ids, id)
	if n == 0 {
		slog.InfoContext(ctx, "Transaction not present in sheet", "id", id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", n, c.sheetName, err)
	}

	slog.InfoContext(ctx, "Deleted transaction from Google Sheets", "id", id, "row", n)
	return nil
}

// lookupSheetID resolves the numeric id of the tab named sheetName.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}
