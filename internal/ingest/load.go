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

// Package ingest loads the warehouse source extracts into a store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/logging"
)

// SourceTables are the extracts loaded from the data directory, in load
// order. Each is read from <name>.csv.
var SourceTables = []string{"patients", "visits", "medications"}

// Store is the part of database.DBAdapter used for loading.
type Store interface {
	ListTables(ctx context.Context) ([]string, error)
	QuoteIdentifier(name string) string
	CreateTableSQL(tableName string, columns []database.ColumnDef) string
	ExecuteSQLStatements(ctx context.Context, sqlStatements []string) error
	QueryRows(ctx context.Context, query string, args ...any) ([]string, [][]any, error)
	BulkInsert(ctx context.Context, tableName string, columns []string, rows [][]any) (int64, error)
}

// Table is a parsed CSV extract with inferred column kinds.
type Table struct {
	Name    string
	Columns []database.ColumnDef
	Rows    [][]any
}

// LoadResult describes one source table of a LoadDir call.
type LoadResult struct {
	Table   string
	Path    string
	Rows    int64
	Skipped bool // the CSV file does not exist
}

// ReadCSV parses r into a table. The first record is the header. Column
// kinds are inferred from the non-empty cells and empty cells become nil.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv for %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv for %s has no header", name)
	}

	header := records[0]
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			return nil, fmt.Errorf("csv for %s: column %d has an empty name", name, i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("csv for %s: duplicate column %q", name, h)
		}
		seen[h] = true
		header[i] = h
	}

	body := records[1:]
	t := &Table{Name: name, Columns: make([]database.ColumnDef, len(header))}
	for i, h := range header {
		cells := make([]string, len(body))
		for j, rec := range body {
			cells[j] = rec[i]
		}
		t.Columns[i] = database.ColumnDef{Name: h, Kind: InferKind(cells)}
	}

	t.Rows = make([][]any, len(body))
	for j, rec := range body {
		row := make([]any, len(rec))
		for i, cell := range rec {
			row[i] = ParseValue(t.Columns[i].Kind, cell)
		}
		t.Rows[j] = row
	}
	return t, nil
}

// InferKind returns KindInteger when every non-empty cell is an integer,
// KindReal when every non-empty cell is a number, and KindText otherwise.
// A column without values is text.
func InferKind(cells []string) database.ValueKind {
	kind := database.KindInteger
	hasValue := false
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		hasValue = true
		if kind == database.KindInteger {
			if _, err := strconv.ParseInt(c, 10, 64); err == nil {
				continue
			}
			kind = database.KindReal
		}
		if !isFloat(c) {
			return database.KindText
		}
	}
	if !hasValue {
		return database.KindText
	}
	return kind
}

// ParseValue converts a cell to the Go value stored for kind. Empty cells
// are NULL.
func ParseValue(kind database.ValueKind, cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	switch kind {
	case database.KindInteger:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case database.KindReal:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	}
	return cell
}

func isFloat(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ReplaceTable drops t.Name if it exists, recreates it from the inferred
// columns and inserts every row.
func ReplaceTable(ctx context.Context, store Store, t *Table) (int64, error) {
	stmts := []string{
		"DROP TABLE IF EXISTS " + store.QuoteIdentifier(t.Name),
		store.CreateTableSQL(t.Name, t.Columns),
	}
	if err := store.ExecuteSQLStatements(ctx, stmts); err != nil {
		return 0, fmt.Errorf("failed to recreate table %s: %w", t.Name, err)
	}

	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	n, err := store.BulkInsert(ctx, t.Name, names, t.Rows)
	if err != nil {
		return 0, fmt.Errorf("failed to load table %s: %w", t.Name, err)
	}
	return n, nil
}

// LoadFile replaces table with the contents of the CSV file at path.
func LoadFile(ctx context.Context, store Store, path, table string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	t, err := ReadCSV(table, f)
	if err != nil {
		return 0, err
	}
	return ReplaceTable(ctx, store, t)
}

// LoadDir loads every source table from dir. Missing files are logged and
// skipped; any other failure stops the load.
func LoadDir(ctx context.Context, store Store, dir string, logger *zap.Logger) ([]LoadResult, error) {
	logger = logging.OrNop(logger)
	results := make([]LoadResult, 0, len(SourceTables))
	for _, table := range SourceTables {
		path := filepath.Join(dir, table+".csv")
		res := LoadResult{Table: table, Path: path}

		n, err := LoadFile(ctx, store, path, table)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("source file not found, skipping", zap.String("file", path), zap.String("table", table))
			res.Skipped = true
		case err != nil:
			return results, err
		default:
			res.Rows = n
			logger.Info("table loaded", zap.String("table", table), zap.Int64("rows", n))
		}
		results = append(results, res)
	}
	return results, nil
}
