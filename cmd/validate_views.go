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
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/validator"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/views"
)

var strictValidation bool

var validateViewsCmd = &cobra.Command{
	Use:   "validate-views",
	Short: "Check view column references against the live schema",
	Long: `Lists every table and its columns, drops and recreates the KPI views, then
scans each view stored in the database for table.column references and
reports the ones the schema cannot satisfy. When any are found a
missing_columns_report_<timestamp>.csv file is written to the report
directory.`,
	Example: `./dwcheck validate-views --db-path chronic_disease_dw.db --report-dir reports`,
	RunE:    runValidateViews,
}

func runValidateViews(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	defs, err := views.Resolve(s.cfg.ViewsFile)
	if err != nil {
		return err
	}

	s.logger.Info("starting view validation",
		zap.String("dialect", s.cfg.Database.Dialect),
		zap.Int("views", len(defs)))

	v := validator.New(s.db,
		validator.WithDefinitions(defs),
		validator.WithReportWriter(validator.ReportWriter{Dir: s.cfg.ReportDir}),
		validator.WithOutput(cmd.OutOrStdout()),
		validator.WithLogger(s.logger),
	)
	res, err := v.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("view validation failed: %w", err)
	}

	if strictValidation && len(res.Discrepancies) > 0 {
		return fmt.Errorf("%d missing column references found", len(res.Discrepancies))
	}
	return nil
}

func init() {
	validateViewsCmd.Flags().BoolVar(&strictValidation, "strict", false, "Exit with an error when any reference is missing")
}
