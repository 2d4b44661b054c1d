// SQLite backend. Each collection maps to one table created from its shape
// at first use: one column per field named by the field's storage column,
// plus a version column for optimistic concurrency. Query plans compile to
// plain SQL; instr() keeps substring filtering case-sensitive where LIKE
// would not be.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/meshline/datashelf/internal/query"
	"github.com/meshline/datashelf/pkg/schema"
)

// versionColumn tracks per-record versions for optimistic concurrency. The
// name is reserved; shapes must not declare a column with it.
const versionColumn = "_version"

// SQLiteBackend stores every collection in one SQLite database file.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database under dataDir.
func OpenSQLite(dataDir string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "datashelf.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Collection returns the collection for name, creating its table from the
// shape if it does not exist yet.
func (b *SQLiteBackend) Collection(name string, shape *schema.Shape) (Collection, error) {
	if _, err := b.db.Exec(createTableDDL(name, shape)); err != nil {
		return nil, fmt.Errorf("creating table %s: %w", name, err)
	}
	return &sqliteCollection{db: b.db, table: name, shape: shape}, nil
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// createTableDDL renders the CREATE TABLE statement for a shape. About
// column affinities: bool and int map to INTEGER, float to REAL, and
// everything else (string, enum, datetime as RFC 3339, decimal as exact
// text) to TEXT.
func createTableDDL(table string, shape *schema.Shape) string {
	var cols []string
	for i := range shape.Fields {
		f := &shape.Fields[i]
		col := fmt.Sprintf("%q %s", f.Column(), columnType(f.Kind))
		if f.Name == shape.PrimaryKey {
			col += " PRIMARY KEY"
		} else if !f.Nullable && f.Kind != schema.KindString {
			// String fields keep reference semantics: they accept null.
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	cols = append(cols, fmt.Sprintf("%q INTEGER NOT NULL DEFAULT 1", versionColumn))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (\n    %s\n)",
		table, strings.Join(cols, ",\n    "))
}

func columnType(k schema.Kind) string {
	switch k {
	case schema.KindBool, schema.KindInt:
		return "INTEGER"
	case schema.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

type sqliteCollection struct {
	db    *sql.DB
	table string
	shape *schema.Shape
}

// columns returns every field's storage column, in shape order.
func (c *sqliteCollection) columns() []string {
	cols := make([]string, 0, len(c.shape.Fields))
	for i := range c.shape.Fields {
		cols = append(cols, c.shape.Fields[i].Column())
	}
	return cols
}

// column maps an internal field name to its storage column.
func (c *sqliteCollection) column(field string) string {
	for i := range c.shape.Fields {
		if c.shape.Fields[i].Name == field {
			return c.shape.Fields[i].Column()
		}
	}
	return field
}

// sortExpr renders the ORDER BY expression for a sort field. Decimals live
// in TEXT columns, so they take a numeric cast to order by magnitude rather
// than lexicographically.
func (c *sqliteCollection) sortExpr(field string) string {
	for i := range c.shape.Fields {
		f := &c.shape.Fields[i]
		if f.Name == field {
			if f.Kind == schema.KindDecimal {
				return fmt.Sprintf("CAST(%q AS REAL)", f.Column())
			}
			return fmt.Sprintf("%q", f.Column())
		}
	}
	return fmt.Sprintf("%q", field)
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = fmt.Sprintf("%q", col)
	}
	return out
}

func (c *sqliteCollection) Get(id string) (schema.Record, uint64, error) {
	if id == "" {
		return nil, 0, ErrInvalidID
	}

	cols := c.columns()
	selectSQL := fmt.Sprintf("SELECT %s, %q FROM %q WHERE %q = ?",
		strings.Join(quoteAll(cols), ", "), versionColumn, c.table,
		c.column(c.shape.PrimaryKey))

	row := c.db.QueryRow(selectSQL, id)
	rec, version, err := c.scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading record %s: %w", id, err)
	}
	return rec, version, nil
}

func (c *sqliteCollection) Insert(rec schema.Record) error {
	id, _ := rec[c.shape.PrimaryKey].(string)
	if id == "" {
		return ErrInvalidID
	}

	cols := c.columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		c.table, strings.Join(quoteAll(cols), ", "), placeholders)

	args := make([]any, 0, len(cols))
	for i := range c.shape.Fields {
		args = append(args, encodeValue(rec[c.shape.Fields[i].Name]))
	}

	if _, err := c.db.Exec(insertSQL, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting record %s: %w", id, err)
	}
	return nil
}

func (c *sqliteCollection) Update(id string, rec schema.Record, expected uint64) error {
	if id == "" {
		return ErrInvalidID
	}

	var sets []string
	var args []any
	for i := range c.shape.Fields {
		f := &c.shape.Fields[i]
		if f.Name == c.shape.PrimaryKey {
			continue
		}
		sets = append(sets, fmt.Sprintf("%q = ?", f.Column()))
		args = append(args, encodeValue(rec[f.Name]))
	}
	sets = append(sets, fmt.Sprintf("%q = %q + 1", versionColumn, versionColumn))

	updateSQL := fmt.Sprintf("UPDATE %q SET %s WHERE %q = ? AND %q = ?",
		c.table, strings.Join(sets, ", "), c.column(c.shape.PrimaryKey), versionColumn)
	args = append(args, id, expected)

	res, err := c.db.Exec(updateSQL, args...)
	if err != nil {
		return fmt.Errorf("updating record %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of %s: %w", id, err)
	}
	if affected == 0 {
		// Either the record is gone or its version moved on.
		if _, _, err := c.Get(id); err == ErrNotFound {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (c *sqliteCollection) Delete(id string) error {
	if id == "" {
		return ErrInvalidID
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %q WHERE %q = ?",
		c.table, c.column(c.shape.PrimaryKey))
	res, err := c.db.Exec(deleteSQL, id)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion of %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *sqliteCollection) Select(plan query.Plan) ([]schema.Record, int, error) {
	where, args := c.wherePlan(plan)

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %q%s", c.table, where)
	var total int
	if err := c.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	cols := c.columns()
	selectSQL := fmt.Sprintf("SELECT %s, %q FROM %q%s",
		strings.Join(quoteAll(cols), ", "), versionColumn, c.table, where)
	if plan.SortField != "" {
		dir := "ASC"
		if plan.SortDesc {
			dir = "DESC"
		}
		selectSQL += fmt.Sprintf(" ORDER BY %s %s", c.sortExpr(plan.SortField), dir)
	} else {
		selectSQL += " ORDER BY rowid"
	}
	selectArgs := args
	if !plan.Page.All {
		selectSQL += " LIMIT ? OFFSET ?"
		selectArgs = append(append([]any{}, args...), plan.Page.Size, plan.Page.Offset())
	}

	rows, err := c.db.Query(selectSQL, selectArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("selecting records: %w", err)
	}
	defer rows.Close()

	var records []schema.Record
	for rows.Next() {
		rec, _, err := c.scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating records: %w", err)
	}
	return records, total, nil
}

// wherePlan renders the plan's substring filter as a WHERE clause.
// instr is case-sensitive, unlike LIKE on ASCII.
func (c *sqliteCollection) wherePlan(plan query.Plan) (string, []any) {
	if !plan.Filtered() {
		return "", nil
	}
	var terms []string
	var args []any
	for _, field := range plan.FilterFields {
		terms = append(terms, fmt.Sprintf("instr(%q, ?) > 0", c.column(field)))
		args = append(args, plan.Substring)
	}
	return " WHERE (" + strings.Join(terms, " OR ") + ")", args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row into a typed record plus its version.
func (c *sqliteCollection) scanRecord(row rowScanner) (schema.Record, uint64, error) {
	dests := make([]any, len(c.shape.Fields)+1)
	for i := range c.shape.Fields {
		dests[i] = new(any)
	}
	var version uint64
	dests[len(c.shape.Fields)] = &version

	if err := row.Scan(dests...); err != nil {
		return nil, 0, err
	}

	rec := make(schema.Record, len(c.shape.Fields))
	for i := range c.shape.Fields {
		f := &c.shape.Fields[i]
		value, err := decodeValue(*dests[i].(*any), f)
		if err != nil {
			return nil, 0, fmt.Errorf("decoding column %s: %w", f.Column(), err)
		}
		rec[f.Name] = value
	}
	return rec, version, nil
}

// encodeValue converts a typed record value to its SQLite representation.
func encodeValue(v any) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case bool:
		if tv {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return tv.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		return tv.String()
	default:
		return v
	}
}

// decodeValue converts a scanned SQLite value back to the field's typed
// representation.
func decodeValue(v any, f *schema.Field) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case schema.KindString, schema.KindEnum:
		return toText(v), nil
	case schema.KindBool:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected bool representation %T", v)
		}
		return n != 0, nil
	case schema.KindInt:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected int representation %T", v)
		}
		return n, nil
	case schema.KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("unexpected float representation %T", v)
	case schema.KindDecimal:
		return decimal.NewFromString(toText(v))
	case schema.KindDateTime:
		return time.Parse(time.RFC3339, toText(v))
	default:
		return v, nil
	}
}

func toText(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case []byte:
		return string(tv)
	default:
		return fmt.Sprint(tv)
	}
}
