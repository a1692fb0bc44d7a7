package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// QueryParams selects and pages the rows of a table.
type QueryParams struct {
	// Where is a condition with ? placeholders, e.g. "Kind = ?".
	Where string
	Args  []any

	// A zero Limit returns every row; Offset then has no effect.
	Limit  int
	Offset int

	// OrderBy lists the sort columns, e.g. "Seq DESC".
	OrderBy string
}

// DataReader reads the records written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct a table's rows decode into.
	// Columns without a field of the same name are skipped.
	MapTable(table string, sample any)

	// ListTables returns the mapped tables, sorted.
	ListTables() []string

	// Query returns pointers to the decoded rows of one page, and the number
	// of rows that match params.Where.
	Query(ctx context.Context, table string, params QueryParams) (
		rows []any,
		total int,
		err error,
	)

	Close() error
}

type tableReader struct {
	db     *sql.DB
	tables map[string]reflect.Type
}

// NewReader opens a database file for reading.
func NewReader(path string) (DataReader, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &tableReader{
		db:     db,
		tables: make(map[string]reflect.Type),
	}
}

func (r *tableReader) MapTable(table string, sample any) {
	r.tables[table] = reflect.TypeOf(sample)
}

func (r *tableReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func (r *tableReader) Query(
	ctx context.Context,
	table string,
	params QueryParams,
) ([]any, int, error) {
	rowType, mapped := r.tables[table]
	if !mapped {
		return nil, 0, fmt.Errorf("table %s is not mapped", table)
	}

	var total int

	count := "SELECT COUNT(*) FROM " + table + whereClause(params)
	if err := r.db.QueryRowContext(ctx, count, params.Args...).
		Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", table, err)
	}

	rows, err := r.db.QueryContext(ctx, selectStatement(table, params),
		params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	decoded, err := decodeRows(rows, rowType)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", table, err)
	}

	return decoded, total, nil
}

func whereClause(params QueryParams) string {
	if params.Where == "" {
		return ""
	}

	return " WHERE " + params.Where
}

func selectStatement(table string, params QueryParams) string {
	var b strings.Builder

	b.WriteString("SELECT * FROM ")
	b.WriteString(table)
	b.WriteString(whereClause(params))

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	return b.String()
}

// columnFields maps each result column to the index of the field of the same
// name, or -1.
func columnFields(columns []string, rowType reflect.Type) []int {
	fields := make([]int, len(columns))

	for i, name := range columns {
		fields[i] = -1

		if f, found := rowType.FieldByName(name); found && len(f.Index) == 1 {
			fields[i] = f.Index[0]
		}
	}

	return fields
}

func decodeRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fields := columnFields(columns, rowType)

	var (
		decoded []any
		skipped any
	)

	targets := make([]any, len(columns))

	for rows.Next() {
		row := reflect.New(rowType)

		for i, field := range fields {
			if field < 0 {
				targets[i] = &skipped
				continue
			}

			targets[i] = row.Elem().Field(field).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		decoded = append(decoded, row.Interface())
	}

	return decoded, rows.Err()
}

func (r *tableReader) Close() error {
	return r.db.Close()
}
