/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/config"
)

// DBAdapter defines the store operations used by the loader, the view
// applier and the validator.
type DBAdapter interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, tableName string) ([]ColumnInfo, error)
	ListViews(ctx context.Context) ([]ViewInfo, error)
	QuoteIdentifier(name string) string
	CreateTableSQL(tableName string, columns []ColumnDef) string
	ExecuteSQLStatements(ctx context.Context, sqlStatements []string) error
	QueryRows(ctx context.Context, query string, args ...any) ([]string, [][]any, error)
	BulkInsert(ctx context.Context, tableName string, columns []string, rows [][]any) (int64, error)
	Ping(ctx context.Context) error
	Close() error
	GetConfig() config.DatabaseConfig
}

var _ DBAdapter = (*DB)(nil)

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

// ColumnInfo holds basic information about a database column.
type ColumnInfo struct {
	Name     string
	DataType string
}

// ViewInfo is a view as stored by the database, with its SQL text.
type ViewInfo struct {
	Name string
	SQL  string
}

// ValueKind is the storage class inferred for a loaded column.
type ValueKind int

const (
	KindText ValueKind = iota
	KindInteger
	KindReal
)

func (k ValueKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	default:
		return "text"
	}
}

// ColumnDef describes a column for CreateTableSQL.
type ColumnDef struct {
	Name       string
	Kind       ValueKind
	NotNull    bool
	PrimaryKey bool
}

// DialectHandler hides the per-dialect catalog queries and SQL spelling.
type DialectHandler interface {
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	Placeholder(n int) string
	ColumnType(kind ValueKind) string
	ListTables(ctx context.Context, db *DB) ([]string, error)
	ListColumns(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error)
	ListViews(ctx context.Context, db *DB) ([]ViewInfo, error)
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	return handler, nil
}

// New opens and pings a pool for cfg. Failures to reach the store are
// reported as *ErrStoreUnavailable.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}
	if err != nil {
		return nil, &ErrStoreUnavailable{Msg: fmt.Sprintf("failed to create pool for dialect %s", cfg.Dialect), Err: err}
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, &ErrStoreUnavailable{Msg: fmt.Sprintf("ping failed for dialect %s", cfg.Dialect), Err: err}
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (db *DB) GetConfig() config.DatabaseConfig {
	return db.Config
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	return nil
}

func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.ListTables(ctx, db)
}

func (db *DB) ListColumns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.ListColumns(ctx, db, tableName)
}

func (db *DB) ListViews(ctx context.Context) ([]ViewInfo, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.ListViews(ctx, db)
}

func (db *DB) QuoteIdentifier(name string) string {
	if db.Handler == nil {
		return name
	}
	return db.Handler.QuoteIdentifier(name)
}

// CreateTableSQL renders a CREATE TABLE statement in the handler's dialect.
func (db *DB) CreateTableSQL(tableName string, columns []ColumnDef) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		def := db.QuoteIdentifier(c.Name) + " " + db.Handler.ColumnType(c.Kind)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", db.QuoteIdentifier(tableName), strings.Join(defs, ", "))
}

// ExecuteSQLStatements runs the statements in order inside one transaction
// and stops at the first failure.
func (db *DB) ExecuteSQLStatements(ctx context.Context, sqlStatements []string) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	if len(sqlStatements) == 0 {
		return nil
	}

	tx, err := db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range sqlStatements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, trimmedStmt); err != nil {
			return &ErrQueryExecution{Msg: fmt.Sprintf("failed executing statement #%d", i+1), Statement: trimmedStmt, Err: err}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryRows runs query and returns the column names and every row. Byte
// slices are converted to strings.
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) ([]string, [][]any, error) {
	if db.Pool == nil {
		return nil, nil, fmt.Errorf("database connection pool is not initialized")
	}
	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, &ErrQueryExecution{Msg: "query failed", Statement: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading result columns: %w", err)
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("error scanning result row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return columns, result, nil
}

// BulkInsert inserts rows into tableName in a single transaction and
// returns the number of rows written.
func (db *DB) BulkInsert(ctx context.Context, tableName string, columns []string, rows [][]any) (int64, error) {
	if db.Pool == nil {
		return 0, fmt.Errorf("database connection pool is not initialized")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = db.QuoteIdentifier(c)
		placeholders[i] = db.Handler.Placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		db.QuoteIdentifier(tableName), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	tx, err := db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, &ErrQueryExecution{Msg: "failed to prepare insert", Statement: stmt, Err: err}
	}
	defer prepared.Close()

	var n int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values, want %d", i+1, len(row), len(columns))
		}
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return 0, &ErrQueryExecution{Msg: fmt.Sprintf("failed inserting row %d into %s", i+1, tableName), Statement: stmt, Err: err}
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// CollectStrings drains single-column rows into a slice.
func CollectStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("error scanning name: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// CollectColumns drains (name, data type) rows.
func CollectColumns(rows *sql.Rows) ([]ColumnInfo, error) {
	defer rows.Close()
	var columns []ColumnInfo
	for rows.Next() {
		var colInfo ColumnInfo
		if err := rows.Scan(&colInfo.Name, &colInfo.DataType); err != nil {
			return nil, fmt.Errorf("error scanning column name and data type: %w", err)
		}
		columns = append(columns, colInfo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}
	return columns, nil
}

// CollectViews drains (name, definition) rows.
func CollectViews(rows *sql.Rows) ([]ViewInfo, error) {
	defer rows.Close()
	var views []ViewInfo
	for rows.Next() {
		var v ViewInfo
		var def sql.NullString
		if err := rows.Scan(&v.Name, &def); err != nil {
			return nil, fmt.Errorf("error scanning view definition: %w", err)
		}
		v.SQL = def.String
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view rows: %w", err)
	}
	return views, nil
}
