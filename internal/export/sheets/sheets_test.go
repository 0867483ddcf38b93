package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"finset/internal/core"
)

type fakeSheets struct {
	mu       sync.Mutex
	ids      []string
	appended [][]any
	updated  []string
	deleted  []map[string]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		values := make([][]string, len(f.ids))
		for i, id := range f.ids {
			values[i] = []string{id}
		}
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		fmt.Fprint(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/values:batchUpdate"):
		var body struct {
			Data []struct {
				Range string `json:"range"`
			} `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for _, d := range body.Data {
			f.updated = append(f.updated, d.Range)
		}
		fmt.Fprint(w, `{}`)
	case r.Method == http.MethodGet:
		fmt.Fprint(w, `{"sheets":[{"properties":{"title":"Other","sheetId":1}},{"properties":{"title":"Transactions","sheetId":7}}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		json.Unmarshal(data, &body)
		f.deleted = append(f.deleted, body)
		fmt.Fprint(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-1",
		SheetName:     "Transactions",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
		},
	})
	require.NoError(t, err)
	return c
}

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:        id,
		Type:      core.Expense,
		Amount:    decimal.RequireFromString("12.5"),
		Category:  "Food",
		Method:    "Cash",
		Date:      core.NewDate(2024, 5, 3),
		Note:      "lunch",
		CreatedAt: time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC),
	}
}

func TestRow(t *testing.T) {
	row := Row(sampleTx("a"))
	assert.Equal(t, []any{"a", "2024-05-03", "expense", "Food", "Cash", "12.50", "lunch", "2024-05-03T12:00:00Z"}, row)
	assert.Len(t, Header, len(row))

	tx := sampleTx("b")
	tx.CreatedAt = time.Time{}
	assert.Equal(t, "", Row(tx)[7])
}

func TestRowIndex(t *testing.T) {
	ids := []string{"ID", "a", "b"}
	assert.Equal(t, 2, rowIndex(ids, "a"))
	assert.Equal(t, 3, rowIndex(ids, "b"))
	assert.Equal(t, 0, rowIndex(ids, "c"))
}

func TestNewValidation(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "x"})
	assert.ErrorContains(t, err, "missing spreadsheet id")

	_, err = New(context.Background(), Config{SpreadsheetID: "x"})
	assert.ErrorContains(t, err, "missing sheet name")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", SheetName: "y"})
	assert.ErrorContains(t, err, "missing service account credentials")
}

func TestUpsertEmptySheetWritesHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	require.NoError(t, c.Upsert(context.Background(), []core.Transaction{sampleTx("a")}))

	require.Len(t, fake.appended, 2)
	assert.Equal(t, "ID", fake.appended[0][0])
	assert.Equal(t, "a", fake.appended[1][0])
	assert.Empty(t, fake.updated)
}

func TestUpsertUpdatesKnownRows(t *testing.T) {
	fake := &fakeSheets{ids: []string{"ID", "a", "b"}}
	c := newTestClient(t, fake)

	require.NoError(t, c.Upsert(context.Background(), []core.Transaction{sampleTx("b"), sampleTx("c")}))

	assert.Equal(t, []string{"Transactions!A3:H3"}, fake.updated)
	require.Len(t, fake.appended, 1)
	assert.Equal(t, "c", fake.appended[0][0])
}

func TestDelete(t *testing.T) {
	fake := &fakeSheets{ids: []string{"ID", "a", "b"}}
	c := newTestClient(t, fake)

	require.NoError(t, c.Delete(context.Background(), "missing"))
	assert.Empty(t, fake.deleted)

	require.NoError(t, c.Delete(context.Background(), "b"))
	require.Len(t, fake.deleted, 1)

	reqs := fake.deleted[0]["requests"].([]any)
	rng := reqs[0].(map[string]any)["deleteDimension"].(map[string]any)["range"].(map[string]any)
	assert.Equal(t, float64(7), rng["sheetId"])
	assert.Equal(t, float64(2), rng["startIndex"])
	assert.Equal(t, float64(3), rng["endIndex"])
	assert.Equal(t, "sheets", c.Name())
}
