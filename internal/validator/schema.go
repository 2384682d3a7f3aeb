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
package validator

import (
	"context"
	"fmt"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
)

// SchemaReader lists the tables of a store and their columns.
type SchemaReader interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, tableName string) ([]database.ColumnInfo, error)
}

// TableSchema is one table of a snapshot.
type TableSchema struct {
	Name    string
	Columns []string
}

// SchemaSnapshot is a point-in-time copy of table -> ordered columns. It is
// never modified after construction.
type SchemaSnapshot struct {
	tables []TableSchema
	index  map[string]int
}

// NewSchemaSnapshot copies tables into a snapshot. A repeated table name
// keeps its first position and its last column list.
func NewSchemaSnapshot(tables ...TableSchema) SchemaSnapshot {
	s := SchemaSnapshot{index: make(map[string]int, len(tables))}
	for _, t := range tables {
		cols := append([]string(nil), t.Columns...)
		if i, ok := s.index[t.Name]; ok {
			s.tables[i].Columns = cols
			continue
		}
		s.index[t.Name] = len(s.tables)
		s.tables = append(s.tables, TableSchema{Name: t.Name, Columns: cols})
	}
	return s
}

// CaptureSchema reads every table of the store with its columns in
// declaration order.
func CaptureSchema(ctx context.Context, store SchemaReader) (SchemaSnapshot, error) {
	names, err := store.ListTables(ctx)
	if err != nil {
		return SchemaSnapshot{}, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]TableSchema, 0, len(names))
	for _, name := range names {
		infos, err := store.ListColumns(ctx, name)
		if err != nil {
			return SchemaSnapshot{}, fmt.Errorf("failed to list columns for table %s: %w", name, err)
		}
		cols := make([]string, len(infos))
		for i, info := range infos {
			cols[i] = info.Name
		}
		tables = append(tables, TableSchema{Name: name, Columns: cols})
	}
	return NewSchemaSnapshot(tables...), nil
}

// Tables returns the table names in store order.
func (s SchemaSnapshot) Tables() []string {
	names := make([]string, len(s.tables))
	for i, t := range s.tables {
		names[i] = t.Name
	}
	return names
}

// Columns returns a copy of the columns of table, and whether the table
// exists.
func (s SchemaSnapshot) Columns(table string) ([]string, bool) {
	i, ok := s.index[table]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s.tables[i].Columns...), true
}

// HasTable reports whether table is part of the snapshot.
func (s SchemaSnapshot) HasTable(table string) bool {
	_, ok := s.index[table]
	return ok
}

// HasColumn reports whether table exists and declares column.
func (s SchemaSnapshot) HasColumn(table, column string) bool {
	i, ok := s.index[table]
	if !ok {
		return false
	}
	for _, c := range s.tables[i].Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Len is the number of tables.
func (s SchemaSnapshot) Len() int {
	return len(s.tables)
}
