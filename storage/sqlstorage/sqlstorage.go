// Package sqlstorage saves cells into SQLite, one table per recipe and
// one column per record field.
package sqlstorage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/sqldb"
	"github.com/wenzapen/scout/storage"
)

// metaFields are prefixed so record fields such as URL cannot collide
// with them; SQLite column names ignore case.
var metaFields = []sqldb.Field{
	{Title: "_run_id", Type: "TEXT"},
	{Title: "_url", Type: "TEXT"},
	{Title: "_time", Type: "TEXT"},
}

type SQLStorage struct {
	dataDocker []*storage.Cell
	db         sqldb.DBer
	// Table remembers the columns already ensured per table.
	Table map[string]map[string]bool
	options
}

func New(opts ...Option) (*SQLStorage, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchCount < 1 {
		options.BatchCount = 1
	}

	s := &SQLStorage{
		options: options,
		Table:   make(map[string]map[string]bool),
	}
	dbOpts := []sqldb.Option{sqldb.WithLogger(s.logger)}
	if s.sqlURL != "" {
		dbOpts = append(dbOpts, sqldb.WithConnURL(s.sqlURL))
	}
	var err error
	if s.db, err = sqldb.New(dbOpts...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStorage) Save(cells ...*storage.Cell) error {
	for _, cell := range cells {
		s.dataDocker = append(s.dataDocker, cell)
		if len(s.dataDocker) >= s.BatchCount {
			if err := s.Flush(); err != nil {
				s.logger.Error("insert data failed", zap.Error(err))
				return err
			}
		}
	}
	return nil
}

// Flush writes buffered cells, one statement per table.
func (s *SQLStorage) Flush() error {
	if len(s.dataDocker) == 0 {
		return nil
	}
	defer func() {
		s.dataDocker = nil
	}()

	var order []string
	groups := map[string][]*storage.Cell{}
	for _, cell := range s.dataDocker {
		name := TableName(cell.Recipe)
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], cell)
	}
	for _, name := range order {
		if err := s.insert(name, groups[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStorage) insert(table string, cells []*storage.Cell) error {
	fields := getFields(cells)
	if err := s.ensure(table, fields); err != nil {
		return err
	}

	args := make([]any, 0, len(cells)*len(fields))
	for _, cell := range cells {
		args = append(args, cell.RunID, cell.URL, cell.Time)
		data := dataOf(cell)
		for _, f := range fields[len(metaFields):] {
			args = append(args, columnValue(data[f.Title]))
		}
	}
	return s.db.Insert(sqldb.TableData{
		TableName:   table,
		ColumnNames: fields,
		Args:        args,
		DataCount:   len(cells),
	})
}

func (s *SQLStorage) ensure(table string, fields []sqldb.Field) error {
	known := s.Table[table]
	missing := false
	for _, f := range fields {
		if !known[f.Title] {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}
	if err := s.db.CreateTable(sqldb.TableData{
		TableName:   table,
		ColumnNames: fields,
		AutoKey:     true,
	}); err != nil {
		return err
	}
	if known == nil {
		known = map[string]bool{}
		s.Table[table] = known
	}
	for _, f := range fields {
		known[f.Title] = true
	}
	return nil
}

// getFields is the meta columns followed by the sorted union of the
// cells' record fields.
func getFields(cells []*storage.Cell) []sqldb.Field {
	seen := map[string]bool{}
	var names []string
	for _, cell := range cells {
		for k := range dataOf(cell) {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	fields := append([]sqldb.Field(nil), metaFields...)
	for _, n := range names {
		fields = append(fields, sqldb.Field{Title: n, Type: "TEXT"})
	}
	return fields
}

// dataOf returns the record as columns. Records that are not objects are
// stored whole in a "data" column.
func dataOf(cell *storage.Cell) map[string]any {
	if m, ok := cell.Data.(map[string]any); ok {
		return m
	}
	return map[string]any{"data": cell.Data}
}

func columnValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		j, err := sonic.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(j)
	}
}

// TableName maps a recipe name to a table name.
func TableName(recipe string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(recipe) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "records"
	}
	return b.String()
}

func (s *SQLStorage) Close() error {
	err := s.Flush()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
