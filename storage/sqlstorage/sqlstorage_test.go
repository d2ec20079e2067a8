package sqlstorage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/scout/sqldb"
	"github.com/wenzapen/scout/storage"
)

func cell(recipe string, data any) *storage.Cell {
	return &storage.Cell{RunID: "r1", Recipe: recipe, URL: "https://shop.example/", Time: "2026-01-02T03:04:05Z", Data: data}
}

func count(t *testing.T, s *SQLStorage, table string) int {
	t.Helper()
	var n int
	db := s.db.(*sqldb.Sqldb).DB()
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "`+table+`"`).Scan(&n))
	return n
}

func TestSaveBatchesAndEvolvesColumns(t *testing.T) {
	s, err := New(WithBatchCount(2))
	require.NoError(t, err)
	defer s.db.Close()

	require.NoError(t, s.Save(cell("Shop Search", map[string]any{"TITLE": "a", "URL": "/a"})))
	assert.Empty(t, s.Table, "nothing written before the batch fills")
	require.NoError(t, s.Save(cell("Shop Search", map[string]any{"TITLE": "b", "URL": "/b"})))
	assert.Equal(t, 2, count(t, s, "shop_search"))

	// a later record brings a new field
	require.NoError(t, s.Save(cell("Shop Search", map[string]any{"TITLE": "c", "PRICE": "3"})))
	require.NoError(t, s.Flush())
	assert.Equal(t, 3, count(t, s, "shop_search"))

	var price, url string
	db := s.db.(*sqldb.Sqldb).DB()
	require.NoError(t, db.QueryRow(`SELECT "PRICE", COALESCE("URL", '') FROM shop_search WHERE "TITLE" = 'c'`).Scan(&price, &url))
	assert.Equal(t, "3", price)
	assert.Equal(t, "", url)
}

func TestNonObjectRecordsAndNestedValues(t *testing.T) {
	s, err := New(WithBatchCount(10))
	require.NoError(t, err)
	defer s.db.Close()

	require.NoError(t, s.Save(
		cell("detail", map[string]any{"TAGS": []any{"x", "y"}}),
		cell("scalar", "just text"),
	))
	require.NoError(t, s.Flush())

	db := s.db.(*sqldb.Sqldb).DB()
	var tags, data string
	require.NoError(t, db.QueryRow(`SELECT "TAGS" FROM detail`).Scan(&tags))
	assert.Equal(t, `["x","y"]`, tags)
	require.NoError(t, db.QueryRow(`SELECT "data" FROM scalar`).Scan(&data))
	assert.Equal(t, "just text", data)
}

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	s, err := New(WithSQLURL(path), WithBatchCount(5))
	require.NoError(t, err)
	require.NoError(t, s.Save(cell("r", map[string]any{"A": "1"})))
	require.NoError(t, s.Close())

	s, err = New(WithSQLURL(path))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, count(t, s, "r"))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "shop_search_v2", TableName("Shop Search-v2"))
	assert.Equal(t, "records", TableName(""))
}
