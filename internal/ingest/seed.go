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
package ingest

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/logging"
)

// Disease is a row of the diseases master table.
type Disease struct {
	ID   int64
	Name string
	Type string
}

const DiseasesTable = "diseases"

// Diseases is the master data inserted into an empty diseases table.
var Diseases = []Disease{
	{ID: 1, Name: "Diabetes", Type: "Chronic"},
	{ID: 2, Name: "Hypertension", Type: "Chronic"},
	{ID: 3, Name: "Asthma", Type: "Respiratory"},
	{ID: 4, Name: "Heart Disease", Type: "Cardiovascular"},
}

var diseaseColumns = []database.ColumnDef{
	{Name: "disease_id", Kind: database.KindInteger, PrimaryKey: true},
	{Name: "name", Kind: database.KindText, NotNull: true},
	{Name: "type", Kind: database.KindText},
}

// EnsureDiseases creates the diseases table when it is absent and fills it
// with Diseases when it is empty. It returns the number of rows inserted.
func EnsureDiseases(ctx context.Context, store Store, logger *zap.Logger) (int64, error) {
	logger = logging.OrNop(logger)

	tables, err := store.ListTables(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tables: %w", err)
	}
	if !slices.Contains(tables, DiseasesTable) {
		if err := store.ExecuteSQLStatements(ctx, []string{store.CreateTableSQL(DiseasesTable, diseaseColumns)}); err != nil {
			return 0, fmt.Errorf("failed to create %s table: %w", DiseasesTable, err)
		}
		logger.Debug("table created", zap.String("table", DiseasesTable))
	}

	count, err := CountRows(ctx, store, DiseasesTable)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Debug("disease master rows present", zap.Int64("rows", count))
		return 0, nil
	}

	rows := make([][]any, len(Diseases))
	for i, d := range Diseases {
		rows[i] = []any{d.ID, d.Name, d.Type}
	}
	n, err := store.BulkInsert(ctx, DiseasesTable, []string{"disease_id", "name", "type"}, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to insert disease master rows: %w", err)
	}
	logger.Info("disease master rows inserted", zap.Int64("rows", n))
	return n, nil
}

// TableCount is the row count of one table. Missing is set when the count
// query failed, usually because the table does not exist.
type TableCount struct {
	Table   string
	Rows    int64
	Missing bool
}

func (c TableCount) String() string {
	if c.Missing {
		return c.Table + ": (table missing)"
	}
	return c.Table + ": " + strconv.FormatInt(c.Rows, 10)
}

// CountRows returns SELECT COUNT(*) of table.
func CountRows(ctx context.Context, store Store, table string) (int64, error) {
	_, rows, err := store.QueryRows(ctx, "SELECT COUNT(*) FROM "+store.QuoteIdentifier(table))
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("unexpected count result for table %s", table)
	}
	return toInt64(rows[0][0])
}

// CountTables counts each table. A failed count marks the table missing
// rather than failing the call.
func CountTables(ctx context.Context, store Store, tables []string) []TableCount {
	counts := make([]TableCount, len(tables))
	for i, t := range tables {
		n, err := CountRows(ctx, store, t)
		counts[i] = TableCount{Table: t, Rows: n, Missing: err != nil}
	}
	return counts
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
