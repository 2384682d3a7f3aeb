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

// Package validator checks that the table.column references of the
// store's views resolve against the live schema.
package validator

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/logging"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/views"
)

// Store is the part of database.DBAdapter the validator needs.
type Store interface {
	SchemaReader
	views.Executor
	ListViews(ctx context.Context) ([]database.ViewInfo, error)
}

// ViewResult is the outcome for one view.
type ViewResult struct {
	Name          string
	SQL           string
	References    []ColumnReference
	Discrepancies []Discrepancy
}

// Consistent reports whether every reference of the view resolved.
func (r ViewResult) Consistent() bool {
	return len(r.Discrepancies) == 0
}

// Result is the outcome of one validation pass.
type Result struct {
	Schema        SchemaSnapshot
	Views         []ViewResult
	Discrepancies []Discrepancy
	ReportPath    string
}

// Validator runs a single validation pass against a store.
type Validator struct {
	store   Store
	defs    []views.Definition
	reports ReportWriter
	out     io.Writer
	logger  *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithDefinitions replaces the built-in view set.
func WithDefinitions(defs []views.Definition) Option {
	return func(v *Validator) { v.defs = defs }
}

// WithReportWriter sets where reports are written.
func WithReportWriter(w ReportWriter) Option {
	return func(v *Validator) { v.reports = w }
}

// WithOutput sets the console writer. Output is discarded by default.
func WithOutput(w io.Writer) Option {
	return func(v *Validator) { v.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New returns a Validator over store that installs the built-in views unless
// WithDefinitions says otherwise.
func New(store Store, opts ...Option) *Validator {
	v := &Validator{
		store: store,
		defs:  views.Default(),
		out:   io.Discard,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = logging.OrNop(v.logger)
	return v
}

// Run captures the schema, installs the view set, validates every view the
// store reports and writes a report when discrepancies exist. Any store
// failure aborts the pass without a result.
func (v *Validator) Run(ctx context.Context) (*Result, error) {
	schema, err := CaptureSchema(ctx, v.store)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("schema captured", zap.Int("tables", schema.Len()))
	v.printSchema(schema)

	if err := views.Apply(ctx, v.store, v.defs, v.logger); err != nil {
		return nil, err
	}

	installed, err := v.store.ListViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	res := &Result{Schema: schema}
	fmt.Fprintln(v.out, "\n=== Views and Validation ===")
	for _, view := range installed {
		refs := ExtractReferences(view.SQL)
		vr := ViewResult{
			Name:          view.Name,
			SQL:           view.SQL,
			References:    refs,
			Discrepancies: CheckReferences(schema, view.Name, refs),
		}
		v.printView(vr)
		v.logger.Debug("view validated",
			zap.String("view", vr.Name),
			zap.Int("references", len(refs)),
			zap.Int("missing", len(vr.Discrepancies)))
		res.Views = append(res.Views, vr)
		res.Discrepancies = append(res.Discrepancies, vr.Discrepancies...)
	}

	if len(res.Discrepancies) == 0 {
		fmt.Fprintln(v.out, "\n✔ No missing columns detected. No report generated.")
		v.logger.Info("validation passed", zap.Int("views", len(res.Views)))
		return res, nil
	}

	path, err := v.reports.Write(res.Discrepancies)
	if err != nil {
		return nil, err
	}
	res.ReportPath = path
	fmt.Fprintf(v.out, "\n📄 Missing columns report saved: %s\n", path)
	v.logger.Warn("missing references detected",
		zap.Int("views", len(res.Views)),
		zap.Int("missing", len(res.Discrepancies)),
		zap.String("report", path))
	return res, nil
}

func (v *Validator) printSchema(schema SchemaSnapshot) {
	fmt.Fprintln(v.out, "=== Tables and Columns ===")
	for _, table := range schema.Tables() {
		fmt.Fprintf(v.out, "\nTable: %s\n", table)
		cols, _ := schema.Columns(table)
		for _, c := range cols {
			fmt.Fprintf(v.out, "  - %s\n", c)
		}
	}
}

func (v *Validator) printView(vr ViewResult) {
	fmt.Fprintf(v.out, "\nView: %s\n%s\n", vr.Name, vr.SQL)
	if vr.Consistent() {
		fmt.Fprintln(v.out, "✔ All columns exist in tables.")
		return
	}
	fmt.Fprintln(v.out, "⚠ Missing columns or tables detected:")
	for _, d := range vr.Discrepancies {
		fmt.Fprintf(v.out, "  - %s\n", d.MissingColumn)
	}
}
