package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/scout/sqldb"
	"github.com/wenzapen/scout/storage/sqlstorage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `logLevel = "INFO"`)
	assert.Contains(t, out, "[prober]")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Git Branch:")
}

const listing = `<html><body><ol id="hits">
<li class="r"><a href="/p/1">Red kettle</a></li>
<li class="r"><a href="/p/2">Blue kettle</a></li>
</ol></body></html>`

func kettleRecipe(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, listing)
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "kettles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: kettles
url: `+srv.URL+`/search
mode: listing
steps:
  - command: navigate
  - command: extract_text
    locator: "#hits > li.r:nth-child($i) a"
    output: {name: "TITLE$i", show: true}
    loop: {index: i, from: 1, to: 2}
`), 0o644))
	return path
}

func TestRunCommand(t *testing.T) {
	path := kettleRecipe(t)
	out, err := execute(t, "run", "--recipe", path)
	require.NoError(t, err)

	var res struct {
		Status string `json:"status"`
		Output struct {
			Results []map[string]string `json:"results"`
		} `json:"output"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(out), &res))
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, []map[string]string{{"TITLE": "Red kettle"}, {"TITLE": "Blue kettle"}}, res.Output.Results)
}

// Run flags are package state, so this stays the last run test.
func TestRunCommandSQLite(t *testing.T) {
	path := kettleRecipe(t)
	dbPath := filepath.Join(t.TempDir(), "scout.db")

	out, err := execute(t, "run", "--recipe", path, "--sqlite", dbPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	db, err := sqldb.New(sqldb.WithConnURL(dbPath))
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.DB().Query(`SELECT "TITLE" FROM ` + sqlstorage.TableName("kettles") + ` ORDER BY "TITLE"`)
	require.NoError(t, err)
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var title string
		require.NoError(t, rows.Scan(&title))
		titles = append(titles, title)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Blue kettle", "Red kettle"}, titles)
}
