package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndInsert(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	cols := []Field{{Title: "name", Type: "TEXT"}, {Title: `odd "col"`, Type: "TEXT"}}
	require.NoError(t, d.CreateTable(TableData{TableName: "t", ColumnNames: cols, AutoKey: true}))
	require.NoError(t, d.CreateTable(TableData{TableName: "t", ColumnNames: cols, AutoKey: true}), "idempotent")
	require.NoError(t, d.Insert(TableData{TableName: "t", ColumnNames: cols, Args: []any{"a", "1", "b", "2"}, DataCount: 2}))

	var n int
	require.NoError(t, d.DB().QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 2, n)

	have, err := d.columns("t")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"id": true, "name": true, `odd "col"`: true}, have)
}

func TestInsertChecksArgs(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	err = d.Insert(TableData{TableName: "t", ColumnNames: []Field{{Title: "a", Type: "TEXT"}}, Args: []any{"x", "y"}, DataCount: 1})
	assert.ErrorContains(t, err, "2 args for 1 rows")
	assert.Error(t, d.CreateTable(TableData{TableName: "t"}))
}
