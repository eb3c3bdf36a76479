// Package sqlcheck verifies the syntax of rendered MySQL statements against
// an in-memory SQLite database.
//
// A table is synthesized for every statement from the identifiers it
// references, then the parameterized SQL is prepared. Statements are never
// executed. SQLite lacks a REGEXP implementation, so one backed by the
// regexp package is registered on every connection.
package sqlcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/querysql"
)

const driverName = "sqlite3_querify"

// filterTable is the table filters are checked against.
const filterTable = "checked"

// placeholderColumn is used when a statement references no column.
const placeholderColumn = "querify_row"

// ErrNotCheckable is returned for statements SQLite has no equivalent of.
var ErrNotCheckable = errors.New("statement cannot be checked against SQLite")

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", matchRegexp, true)
		},
	})
}

// matchRegexp implements "s REGEXP pattern", which SQLite calls as
// regexp(pattern, s).
func matchRegexp(pattern, s string) (bool, error) {
	return regexp.MatchString(pattern, s)
}

// Error reports SQL that SQLite rejected.
type Error struct {
	SQL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sql check failed for %q: %v", e.SQL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Check renders stmt as parameterized MySQL and prepares it.
func Check(ctx context.Context, stmt queryir.Statement) error {
	sel, ok := stmt.(*queryir.Select)
	if !ok {
		return fmt.Errorf("%T: %w", stmt, ErrNotCheckable)
	}

	query, _, err := (&querysql.Compiler{Parameterize: true}).Compile(sel)
	if err != nil {
		return fmt.Errorf("compile statement: %w", err)
	}

	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()

	if sel.Database != nil {
		if err := attach(ctx, db, sel.Database.Text()); err != nil {
			return err
		}
	}
	if err := createTable(ctx, db, sel); err != nil {
		return err
	}

	prepared, err := db.PrepareContext(ctx, query)
	if err != nil {
		return &Error{SQL: query, Err: err}
	}
	return prepared.Close()
}

// CheckFilter checks e as the WHERE clause of a SELECT on a synthesized
// table.
func CheckFilter(ctx context.Context, e queryir.Expr) error {
	stmt, err := queryir.NewSelect(queryir.SelectArgs{Table: filterTable, Where: e})
	if err != nil {
		return err
	}
	return Check(ctx, stmt)
}

func open() (*sql.DB, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every in-memory connection is its own database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func attach(ctx context.Context, db *sql.DB, name string) error {
	stmt := "ATTACH DATABASE ':memory:' AS " + querysql.QuoteIdentifier(name)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to attach %s: %w", name, err)
	}
	return nil
}

func createTable(ctx context.Context, db *sql.DB, sel *queryir.Select) error {
	columns := columnsOf(sel)
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = querysql.QuoteIdentifier(c)
	}

	table := querysql.QuoteIdentifier(sel.Table.Text())
	if sel.Database != nil {
		table = querysql.QuoteIdentifier(sel.Database.Text()) + "." + table
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(quoted, ", "))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// columnsOf returns the column names sel references, projected columns
// first. SQLite column names are case-insensitive.
func columnsOf(sel *queryir.Select) []string {
	var columns []string
	add := func(name string) {
		if !slices.ContainsFunc(columns, func(c string) bool { return strings.EqualFold(c, name) }) {
			columns = append(columns, name)
		}
	}
	for _, c := range sel.Columns {
		add(c.Text())
	}
	for _, name := range queryir.Identifiers(sel.Where) {
		add(name)
	}
	if len(columns) == 0 {
		columns = append(columns, placeholderColumn)
	}
	return columns
}
