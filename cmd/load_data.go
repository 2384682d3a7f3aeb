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
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/ingest"
)

var loadDataCmd = &cobra.Command{
	Use:   "load-data",
	Short: "Load the CSV extracts into the database",
	Long: `Replaces the patients, visits and medications tables with the contents of
the matching CSV files in the data directory. Column types are inferred from
the values; empty cells are stored as NULL. Missing files are skipped.`,
	Example: `./dwcheck load-data --data-dir data`,
	RunE:    runLoadData,
}

func runLoadData(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := loadSourceTables(cmd.Context(), s, cmd.OutOrStdout()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Data loaded successfully into the database!")
	return nil
}

func loadSourceTables(ctx context.Context, s *session, out io.Writer) error {
	results, err := ingest.LoadDir(ctx, s.db, s.cfg.DataDir, s.logger)
	for _, r := range results {
		if r.Skipped {
			fmt.Fprintf(out, "Warning: %s not found, skipping %s\n", r.Path, r.Table)
			continue
		}
		fmt.Fprintf(out, "Loaded %s rows into table '%s'\n", humanize.Comma(r.Rows), r.Table)
	}
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	return nil
}
