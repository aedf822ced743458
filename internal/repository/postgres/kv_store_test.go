package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestLikePrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"credentials/local/", "credentials/local/%"},
		{"", "%"},
		{"user_1/", `user\_1/%`},
		{"100%", `100\%%`},
		{`a\b`, `a\\b%`},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, likePrefix(tt.prefix))
		})
	}
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "test_kv_store", NewTableNames("test_").KVStore)
	assert.Equal(t, "kv_store", NewTableNames("").KVStore)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsPgNoRowsError(pgx.ErrNoRows))
	assert.True(t, IsPgNoRowsError(errors.Join(errors.New("wrapped"), pgx.ErrNoRows)))
	assert.False(t, IsPgNoRowsError(errors.New("other")))

	assert.True(t, IsPgUndefinedTableError(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, IsPgUndefinedTableError(&pgconn.PgError{Code: "23505"}))
}
