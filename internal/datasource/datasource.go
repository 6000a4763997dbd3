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

// Package datasource opens the SQL databases used by sql and sql-query
// actions.
package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/tombee/citrus/pkg/errors"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Validate checks driver and dsn without connecting.
func Validate(driver, dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("dsn is required")
	}
	switch driver {
	case DriverSQLite:
		return nil
	case DriverMySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("invalid mysql dsn: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported driver %q (use %s or %s)", driver, DriverSQLite, DriverMySQL)
	}
}

// Open connects to a database and verifies the connection.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*sql.DB, error) {
	if err := Validate(driver, dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}

	// every connection to an in-memory sqlite database sees its own database
	if driver == DriverSQLite && isMemory(dsn) {
		maxOpenConns = 1
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connecting to %s database", driver)
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Pool holds the named databases of a run.
type Pool struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{dbs: make(map[string]*sql.DB)}
}

// Open connects to a database and adds it under name.
func (p *Pool) Open(ctx context.Context, name, driver, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := Open(ctx, driver, dsn, maxOpenConns)
	if err != nil {
		return nil, errors.Wrapf(err, "data source %s", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.dbs[name]; ok {
		old.Close()
	}
	p.dbs[name] = db
	return db, nil
}

// Get returns the database added under name.
func (p *Pool) Get(name string) (*sql.DB, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	db, ok := p.dbs[name]
	return db, ok
}

// Names returns the data source names, sorted.
func (p *Pool) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.dbs))
	for name := range p.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every database in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for name, db := range p.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "closing data source %s", name))
		}
	}
	p.dbs = make(map[string]*sql.DB)
	return errors.Join(errs...)
}
