// Package sqldb is a small table writer over SQLite.
package sqldb

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Field struct {
	Title string
	Type  string
}

type TableData struct {
	TableName   string
	ColumnNames []Field
	// Args holds DataCount rows of len(ColumnNames) values, row after row.
	Args      []any
	DataCount int
	AutoKey   bool
}

type DBer interface {
	CreateTable(t TableData) error
	Insert(t TableData) error
	Close() error
}

type Sqldb struct {
	options
	db *sql.DB
}

func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	d := &Sqldb{options: options}
	if err := d.OpenDB(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Sqldb) OpenDB() error {
	db, err := sql.Open("sqlite", d.sqlURL)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.sqlURL, err)
	}
	// one connection keeps ":memory:" databases alive between statements
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping %s: %w", d.sqlURL, err)
	}
	d.db = db
	return nil
}

// CreateTable creates t.TableName if needed and adds any of
// t.ColumnNames it lacks.
func (d *Sqldb) CreateTable(t TableData) error {
	if len(t.ColumnNames) == 0 {
		return fmt.Errorf("create table %s: no columns", t.TableName)
	}
	var cols []string
	if t.AutoKey {
		cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	}
	for _, f := range t.ColumnNames {
		cols = append(cols, quote(f.Title)+" "+f.Type)
	}
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(t.TableName), strings.Join(cols, ","))
	d.logger.Debug("create table", zap.String("sql", q))
	if _, err := d.db.Exec(q); err != nil {
		return fmt.Errorf("create table %s: %w", t.TableName, err)
	}

	have, err := d.columns(t.TableName)
	if err != nil {
		return err
	}
	for _, f := range t.ColumnNames {
		if have[f.Title] {
			continue
		}
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(t.TableName), quote(f.Title), f.Type)
		if _, err := d.db.Exec(q); err != nil {
			return fmt.Errorf("add column %s.%s: %w", t.TableName, f.Title, err)
		}
	}
	return nil
}

func (d *Sqldb) columns(table string) (map[string]bool, error) {
	rows, err := d.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	have := map[string]bool{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		have[name] = true
	}
	return have, rows.Err()
}

// Insert writes t.DataCount rows in one statement.
func (d *Sqldb) Insert(t TableData) error {
	if t.DataCount == 0 {
		return nil
	}
	if len(t.Args) != t.DataCount*len(t.ColumnNames) {
		return fmt.Errorf("insert %s: %d args for %d rows of %d columns", t.TableName, len(t.Args), t.DataCount, len(t.ColumnNames))
	}
	names := make([]string, len(t.ColumnNames))
	for i, f := range t.ColumnNames {
		names[i] = quote(f.Title)
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", len(names)), ",") + ")"
	rows := strings.TrimSuffix(strings.Repeat(row+",", t.DataCount), ",")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", quote(t.TableName), strings.Join(names, ","), rows)
	if _, err := d.db.Exec(q, t.Args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.TableName, err)
	}
	return nil
}

// DB exposes the handle for reads.
func (d *Sqldb) DB() *sql.DB { return d.db }

func (d *Sqldb) Close() error {
	return d.db.Close()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
