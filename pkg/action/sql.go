// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package action

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// NullValue is the textual form of a SQL NULL.
const NullValue = "NULL"

// SQLBase holds what both SQL actions share.
type SQLBase struct {
	Base
	DataSource string
	Statements []string
	// Resource is an optional file of statements, each terminated by ';'.
	Resource string
}

func (a *SQLBase) db(tc *testcontext.Context) (*sql.DB, error) {
	name, err := tc.ReplaceDynamicContent(a.DataSource)
	if err != nil {
		return nil, err
	}
	return testcontext.Resolve[*sql.DB](tc.References(), "datasource", name)
}

func (a *SQLBase) statements(tc *testcontext.Context) ([]string, error) {
	stmts := append([]string(nil), a.Statements...)
	if a.Resource != "" {
		fromFile, err := readStatements(a.Resource)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fromFile...)
	}

	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		resolved, err := tc.ReplaceDynamicContent(strings.TrimSpace(stmt))
		if err != nil {
			return nil, err
		}
		resolved = strings.TrimSuffix(strings.TrimSpace(resolved), ";")
		if resolved != "" {
			out = append(out, resolved)
		}
	}
	return out, nil
}

// readStatements splits a SQL file into statements. Lines starting with "--"
// are comments.
func readStatements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithCause(err, errors.KindCitrusRuntime, "failed to read SQL resource")
	}
	defer f.Close()

	var stmts []string
	var current strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ";") {
			stmts = append(stmts, current.String())
			current.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithCause(err, errors.KindCitrusRuntime, "failed to read SQL resource")
	}
	if current.Len() > 0 {
		stmts = append(stmts, current.String())
	}
	return stmts, nil
}

// ExecuteSQL runs update statements.
type ExecuteSQL struct {
	SQLBase
	IgnoreErrors bool
}

// NewExecuteSQL creates a sql action.
func NewExecuteSQL(dataSource string, statements ...string) *ExecuteSQL {
	return &ExecuteSQL{SQLBase: SQLBase{Base: Named("sql"), DataSource: dataSource, Statements: statements}}
}

// Execute implements TestAction.
func (a *ExecuteSQL) Execute(ctx context.Context, tc *testcontext.Context) error {
	db, err := a.db(tc)
	if err != nil {
		return err
	}
	stmts, err := a.statements(tc)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		res, err := db.ExecContext(ctx, stmt)
		if err != nil {
			if a.IgnoreErrors {
				tc.Logger().Warn("ignoring error while executing SQL statement", slog.String("statement", stmt), slog.Any("error", err))
				continue
			}
			return errors.WithCause(err, errors.KindCitrusRuntime, fmt.Sprintf("failed to execute SQL statement '%s'", stmt))
		}
		rows, _ := res.RowsAffected()
		tc.Logger().Debug("SQL statement executed", slog.String("statement", stmt), slog.Int64("rows_affected", rows))
	}
	tc.Logger().Info("SQL statements executed", slog.Int("count", len(stmts)))
	return nil
}

// ExecuteSQLQuery runs select statements, validates column values and
// extracts them into variables.
type ExecuteSQLQuery struct {
	SQLBase
	// Validate maps a column name to its expected values, one per row.
	Validate map[string][]string
	// Extract maps a column name to a variable name. Values of several rows
	// are joined with ';'.
	Extract map[string]string
}

// NewExecuteSQLQuery creates a sql-query action.
func NewExecuteSQLQuery(dataSource string, statements ...string) *ExecuteSQLQuery {
	return &ExecuteSQLQuery{SQLBase: SQLBase{Base: Named("sql-query"), DataSource: dataSource, Statements: statements}}
}

// column values keyed by lower-case column name; nil entries are NULL
type columnValues map[string][]*string

// Execute implements TestAction.
func (a *ExecuteSQLQuery) Execute(ctx context.Context, tc *testcontext.Context) error {
	db, err := a.db(tc)
	if err != nil {
		return err
	}
	stmts, err := a.statements(tc)
	if err != nil {
		return err
	}

	values := make(columnValues)
	for _, stmt := range stmts {
		lower := strings.ToLower(stmt)
		if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
			return errors.Runtimef("invalid SQL query statement '%s': only select and with statements are allowed", stmt)
		}
		if err := query(ctx, db, stmt, values); err != nil {
			return errors.WithCause(err, errors.KindCitrusRuntime, fmt.Sprintf("failed to execute SQL query '%s'", stmt))
		}
	}

	if err := a.extractVariables(tc, values); err != nil {
		return err
	}
	if err := a.validateColumns(tc, values); err != nil {
		return err
	}
	tc.Logger().Info("SQL query executed", slog.Int("statements", len(stmts)))
	return nil
}

func query(ctx context.Context, db *sql.DB, stmt string, values columnValues) error {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		for i, col := range cols {
			key := strings.ToLower(col)
			if raw[i].Valid {
				v := raw[i].String
				values[key] = append(values[key], &v)
			} else {
				values[key] = append(values[key], nil)
			}
		}
	}
	return rows.Err()
}

func (a *ExecuteSQLQuery) extractVariables(tc *testcontext.Context, values columnValues) error {
	for _, col := range sortedKeys(a.Extract) {
		colValues, ok := values[strings.ToLower(col)]
		if !ok {
			return errors.Runtimef("failed to create variables from database values: unable to find column '%s'", col)
		}
		parts := make([]string, len(colValues))
		for i, v := range colValues {
			if v == nil {
				parts[i] = NullValue
			} else {
				parts[i] = *v
			}
		}
		tc.SetVariable(a.Extract[col], strings.Join(parts, ";"))
	}
	return nil
}

func (a *ExecuteSQLQuery) validateColumns(tc *testcontext.Context, values columnValues) error {
	cols := make([]string, 0, len(a.Validate))
	for col := range a.Validate {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		expected := a.Validate[col]
		actual, ok := values[strings.ToLower(col)]
		if !ok {
			return errors.Validationf("column '%s' is missing in the result set", col)
		}
		if len(expected) != len(actual) {
			return errors.Validationf("validation failed for column '%s': expected %d rows but found %d",
				col, len(expected), len(actual))
		}
		for i, raw := range expected {
			want, err := tc.ReplaceDynamicContent(raw)
			if err != nil {
				return err
			}
			if err := checkColumnValue(col, want, actual[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkColumnValue(col, expected string, actual *string) error {
	if strings.TrimSpace(expected) == IgnorePlaceholder {
		return nil
	}
	if actual == nil {
		if strings.EqualFold(strings.TrimSpace(expected), NullValue) || expected == "" {
			return nil
		}
		return errors.Validationf("validation failed for column '%s': expected '%s' but was NULL", col, expected)
	}
	if !MatchValue(expected, *actual) {
		return errors.Validationf("validation failed for column '%s': expected '%s' but was '%s'", col, expected, *actual)
	}
	return nil
}
