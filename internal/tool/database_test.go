package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/store"
)

func newDatabaseHandler(t *testing.T) Handler {
	t.Helper()
	st, err := store.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Seed(context.Background()))
	_, handler := databaseTool(st)
	return handler
}

func TestExecuteSQLSelect(t *testing.T) {
	handler := newDatabaseHandler(t)

	raw, err := handler(context.Background(),
		`{"sql":"SELECT name, city FROM users ORDER BY id"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.True(t, res.Success)

	data := res.Data.(map[string]interface{})
	assert.Equal(t, float64(5), data["row_count"])
	results := data["results"].([]interface{})
	require.Len(t, results, 5)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "张三", first["name"])
	assert.Equal(t, "北京", first["city"])
	assert.Nil(t, data["truncated"])
}

func TestExecuteSQLAggregate(t *testing.T) {
	handler := newDatabaseHandler(t)

	raw, err := handler(context.Background(),
		`{"sql":"SELECT status, COUNT(*) AS n FROM orders GROUP BY status ORDER BY status"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.True(t, res.Success)

	results := res.Data.(map[string]interface{})["results"].([]interface{})
	require.Len(t, results, 2)
	completed := results[0].(map[string]interface{})
	assert.Equal(t, "completed", completed["status"])
	assert.Equal(t, float64(6), completed["n"])
}

func TestExecuteSQLRejectsWrites(t *testing.T) {
	handler := newDatabaseHandler(t)

	for _, stmt := range []string{
		"INSERT INTO users (name) VALUES ('x')",
		"DELETE FROM orders",
		"DROP TABLE users",
		"SELECT 1; DELETE FROM users;",
	} {
		raw, err := handler(context.Background(), `{"sql":"`+stmt+`"}`)
		require.NoError(t, err)
		res := decodeResult(t, raw)
		assert.False(t, res.Success, "statement %q should be rejected", stmt)
	}
}

func TestExecuteSQLBadQuery(t *testing.T) {
	handler := newDatabaseHandler(t)

	raw, err := handler(context.Background(), `{"sql":"SELECT * FROM no_such_table"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "query failed")
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		allowed bool
	}{
		{"plain select", "SELECT * FROM users", true},
		{"lowercase select", "select id from products", true},
		{"leading spaces", "   SELECT 1", true},
		{"trailing semicolon", "SELECT 1;", true},
		{"update", "UPDATE users SET age = 1", false},
		{"truncate", "TRUNCATE TABLE users", false},
		{"stacked statements", "SELECT 1; DROP TABLE users;", false},
		{"comment", "SELECT id-- hidden", false},
		{"with clause", "WITH x AS (SELECT 1) SELECT * FROM x", false},
		{"pragma", "PRAGMA table_info(users)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkReadOnly(tt.query)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
