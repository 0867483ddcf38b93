package storage

import "testing"

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"placeholders kept", "SELECT * FROM transactions WHERE id = $1", "SELECT * FROM transactions WHERE id = $1"},
		{"string literal", "SELECT * FROM t WHERE type = 'income'", "SELECT * FROM t WHERE type = '?'"},
		{"escaped quote", "SELECT 'it''s'", "SELECT '?'"},
		{"numbers", "SELECT 1, 2.5 FROM t LIMIT 10", "SELECT ?, ? FROM t LIMIT ?"},
		{"identifier digits", "SELECT col1 FROM t2", "SELECT col1 FROM t2"},
		{"whitespace", "SELECT\n\t  NOW()", "SELECT NOW()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeQuery(tt.in); got != tt.want {
				t.Errorf("sanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractSQLVerb(t *testing.T) {
	if got := extractSQLVerb("  insert into t values ($1)"); got != "INSERT" {
		t.Errorf("got %q", got)
	}
	if got := extractSQLVerb(""); got != "" {
		t.Errorf("got %q", got)
	}
}
