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
package views

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/logging"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/utils"
)

// Executor runs a batch of statements, stopping at the first failure.
type Executor interface {
	ExecuteSQLStatements(ctx context.Context, sqlStatements []string) error
}

// ApplyError reports the view whose installation failed.
type ApplyError struct {
	View string
	Err  error
}

func (e *ApplyError) Error() string {
	if e.View == "" {
		return fmt.Sprintf("failed to apply views script: %v", e.Err)
	}
	return fmt.Sprintf("failed to apply view %s: %v", e.View, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Apply drops and recreates every view in defs, in order. The first
// failure aborts the remaining views.
func Apply(ctx context.Context, exec Executor, defs []Definition, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	if err := Validate(defs); err != nil {
		return err
	}
	for _, d := range defs {
		if err := exec.ExecuteSQLStatements(ctx, d.Statements()); err != nil {
			logger.Error("view apply failed", zap.String("view", d.Name), zap.Error(err))
			return &ApplyError{View: d.Name, Err: err}
		}
		logger.Debug("view applied", zap.String("view", d.Name))
	}
	logger.Info("views applied", zap.Int("count", len(defs)))
	return nil
}

// ApplyScriptFile executes a SQL script file as one batch.
func ApplyScriptFile(ctx context.Context, exec Executor, path string, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	statements, err := utils.ReadSQLStatementsFromFile(path)
	if err != nil {
		return err
	}
	if err := exec.ExecuteSQLStatements(ctx, statements); err != nil {
		logger.Error("views script failed", zap.String("file", path), zap.Error(err))
		return &ApplyError{Err: err}
	}
	logger.Info("views script applied", zap.String("file", path), zap.Int("statements", len(statements)))
	return nil
}
