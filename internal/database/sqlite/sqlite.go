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
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/config"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
	_ "modernc.org/sqlite"
)

// sqliteHandler implements database.DialectHandler for SQLite files.
type sqliteHandler struct{}

var _ database.DialectHandler = (*sqliteHandler)(nil)

// CreateCloudSQLPool is not available for SQLite.
func (h sqliteHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, fmt.Errorf("cloud sql is not supported for sqlite")
}

// CreateStandardPool opens the database file named by cfg.Path. The pool is
// limited to a single connection so that ":memory:" databases are shared
// by every statement of the run.
func (h sqliteHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	path := strings.TrimPrefix(cfg.Path, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}

	dbPool, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	dbPool.SetMaxOpenConns(1)
	return dbPool, nil
}

func (h sqliteHandler) QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, `"`, `""`)
	return fmt.Sprintf(`"%s"`, name)
}

func (h sqliteHandler) Placeholder(n int) string {
	return "?"
}

func (h sqliteHandler) ColumnType(kind database.ValueKind) string {
	switch kind {
	case database.KindInteger:
		return "INTEGER"
	case database.KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ListTables returns every table in sqlite_master, in catalog order.
func (h sqliteHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	rows, err := db.Pool.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("error querying tables: %w", err)
	}
	return database.CollectStrings(rows)
}

// ListColumns returns the columns of tableName in declaration order.
func (h sqliteHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]database.ColumnInfo, error) {
	rows, err := db.Pool.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	return database.CollectColumns(rows)
}

// ListViews returns each view with the CREATE VIEW text SQLite stored for it.
func (h sqliteHandler) ListViews(ctx context.Context, db *database.DB) ([]database.ViewInfo, error) {
	rows, err := db.Pool.QueryContext(ctx, "SELECT name, sql FROM sqlite_master WHERE type = 'view'")
	if err != nil {
		return nil, fmt.Errorf("error querying views: %w", err)
	}
	return database.CollectViews(rows)
}

func init() {
	database.RegisterDialectHandler("sqlite", sqliteHandler{})
}
