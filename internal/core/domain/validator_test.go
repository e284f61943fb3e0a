package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestWorkloadFilter_Validate(t *testing.T) {
	f := NewWorkloadFilter()

	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{"select", "SELECT * FROM orders WHERE status = $1", nil},
		{"select with join", "SELECT o.id FROM orders o JOIN customers c ON c.id = o.customer_id", nil},
		{"cte", "WITH recent AS (SELECT * FROM orders) SELECT count(*) FROM recent", nil},
		{"empty", "   ", ErrEmptyQuery},
		{"comment only", "-- nothing here", ErrEmptyQuery},
		{"insert", "INSERT INTO orders (id) VALUES (1)", ErrNotAllowed},
		{"update", "UPDATE orders SET status = 'paid'", ErrNotAllowed},
		{"ddl", "DROP INDEX idx_orders_status", ErrNotAllowed},
		{"multi statement", "SELECT 1; SELECT 2", ErrMultiStatement},
		{"garbage", "SELEC FROM", ErrParseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Validate(tt.sql)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkloadFilter_Fingerprint(t *testing.T) {
	f := NewWorkloadFilter()

	a := f.Fingerprint("SELECT * FROM orders WHERE id = 1")
	b := f.Fingerprint("select *   from orders where id = 42")
	assert.Equal(t, a, b, "literals and whitespace do not change the shape")
	assert.NotEqual(t, a, f.Fingerprint("SELECT * FROM orders WHERE status = 'new'"))

	long := "not sql at all with quite a lot of words that keep going past the limit"
	got := f.Fingerprint(long)
	assert.LessOrEqual(t, len(got), 64)
}

func TestWorkloadFilter_FingerprintMultibyte(t *testing.T) {
	f := NewWorkloadFilter()

	tests := []struct {
		name string
		sql  string
	}{
		{"two byte runes", "not sql " + strings.Repeat("é", 60)},
		{"three byte runes", "garbage ¿" + strings.Repeat("€", 30)},
		{"four byte runes", "x " + strings.Repeat("🙂", 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Fingerprint(tt.sql)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), 64)
			assert.Greater(t, len(got), 60)
			assert.True(t, strings.HasPrefix(tt.sql, got))
		})
	}
}
