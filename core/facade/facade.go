/*Package facade provides the generic create/read/update/delete access
layer over the relational store.

All operations are dynamically parameterized: the caller names a table and
passes field or condition maps, and the facade builds the SQL text with
positional placeholders. Table and column names never come from request
input directly, they are checked against the schema registry first.
*/
package facade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/galerie-tech/galerie/core/csql"
	"github.com/galerie-tech/galerie/core/logger"
	"github.com/galerie-tech/galerie/core/registry"
)

// Sentinel errors for callers that map store failures to HTTP statuses.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Facade is the generic data access layer.
type Facade struct {
	db       *csql.DB
	registry *registry.Registry
	runner   runner
}

// New creates a facade running on the shared database handle.
func New(db *csql.DB, reg *registry.Registry) *Facade {
	return &Facade{db: db, registry: reg, runner: db.DB}
}

// WithTx returns a facade bound to the transaction. The registry and
// schema are shared with the receiver.
func (f *Facade) WithTx(tx *sql.Tx) *Facade {
	return &Facade{db: f.db, registry: f.registry, runner: tx}
}

// Registry returns the schema registry the facade validates against.
func (f *Facade) Registry() *registry.Registry {
	return f.registry
}

func (f *Facade) lookup(table string) (*registry.Table, error) {
	t := f.registry.Lookup(table)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return t, nil
}

func (f *Facade) qualified(table string) string {
	return f.db.Schema + "." + table
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Create inserts a new row built from the field map and returns the newly
// assigned primary key value. Fields must name registered columns;
// constraint violations surface as the driver's error.
func (f *Facade) Create(ctx context.Context, table string, fields map[string]interface{}) (interface{}, error) {
	t, err := f.lookup(table)
	if err != nil {
		return nil, err
	}
	keys := sortedKeys(fields)
	columns := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if !t.HasColumn(key) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
		columns = append(columns, key)
		args = append(args, fields[key])
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("nothing to insert into %s", table)
	}
	query := "INSERT INTO " + f.qualified(table) +
		" (" + strings.Join(columns, ", ") + ") VALUES (" + parameterString(len(columns)) + ")" +
		" RETURNING " + t.Primary + ";"
	logger.FromContext(ctx).Debugln("facade create:", query)

	var id interface{}
	if err := f.runner.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, err
	}
	return normalizeValue(id), nil
}

// Read selects rows from the table. Conditions go through the condition
// translator, so the price and size filter semantics apply. An empty
// projection selects *. The join fragment is appended verbatim between
// table and WHERE clause and must only ever come from code, never from
// request input; the same holds for the column qualifier.
func (f *Facade) Read(ctx context.Context, table string, conditions map[string]string, projection, join, qualifier string) ([]map[string]interface{}, error) {
	t, err := f.lookup(table)
	if err != nil {
		return nil, err
	}
	if projection == "" {
		projection = "*"
	}
	where, args, err := translateConditions(t, conditions, sortedKeys(conditions), 0, qualifier)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + projection + " FROM " + f.qualified(table)
	if join != "" {
		query += " " + join
	}
	if where != "" {
		query += " " + where
	}
	query += ";"
	logger.FromContext(ctx).Debugln("facade read:", query)

	rows, err := f.runner.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Update sets the given fields on all rows matching the equality
// conditions and returns the number of affected rows. Unlike Read, update
// conditions are plain equality only.
func (f *Facade) Update(ctx context.Context, table string, fields map[string]interface{}, conditions map[string]interface{}) (int64, error) {
	t, err := f.lookup(table)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("nothing to update in %s", table)
	}
	keys := sortedKeys(fields)
	sets := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if !t.HasColumn(key) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
		}
		sets = append(sets, key+" = $"+strconv.Itoa(len(args)+1))
		args = append(args, fields[key])
	}
	where, whereArgs, err := equalityConditions(t, conditions, sortedKeys(conditions), len(args))
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	query := "UPDATE " + f.qualified(table) + " SET " + strings.Join(sets, ", ")
	if where != "" {
		query += " " + where
	}
	query += ";"
	logger.FromContext(ctx).Debugln("facade update:", query)

	result, err := f.runner.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes all rows matching the equality conditions and returns the
// number of affected rows. A non-matching condition is not an error, the
// count is simply zero.
func (f *Facade) Delete(ctx context.Context, table string, conditions map[string]interface{}) (int64, error) {
	t, err := f.lookup(table)
	if err != nil {
		return 0, err
	}
	where, args, err := equalityConditions(t, conditions, sortedKeys(conditions), 0)
	if err != nil {
		return 0, err
	}
	query := "DELETE FROM " + f.qualified(table)
	if where != "" {
		query += " " + where
	}
	query += ";"
	logger.FromContext(ctx).Debugln("facade delete:", query)

	result, err := f.runner.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// returns $1,...,$n
func parameterString(n int) string {
	result := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			result += ","
		}
		result += "$" + strconv.Itoa(i+1)
	}
	return result
}

// scanRows turns a generic result set into string-keyed row maps.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	response := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			values[i] = new(interface{})
		}
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		object := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			object[column] = normalizeValue(*(values[i].(*interface{})))
		}
		response = append(response, object)
	}
	return response, rows.Err()
}

// normalizeValue converts driver types into JSON-friendly ones.
func normalizeValue(v interface{}) interface{} {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case time.Time:
		return value.UTC()
	default:
		return v
	}
}
