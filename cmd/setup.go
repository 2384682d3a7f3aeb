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

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/ingest"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/views"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the warehouse: disease master data, CSV extracts and KPI views",
	Long: `Creates the diseases table with its master rows when it is empty, loads the
CSV extracts, installs the KPI views and prints the row count of every
warehouse table.`,
	Example: `./dwcheck setup --db-path chronic_disease_dw.db --data-dir data`,
	RunE:    runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if s.cfg.Database.Dialect == "sqlite" {
		fmt.Fprintln(out, "DB path:", s.cfg.Database.Path)
	}
	fmt.Fprintln(out, "Data dir:", s.cfg.DataDir)

	inserted, err := ingest.EnsureDiseases(ctx, s.db, s.logger)
	if err != nil {
		return err
	}
	if inserted > 0 {
		fmt.Fprintln(out, "Inserted sample disease master rows")
	}

	if err := loadSourceTables(ctx, s, out); err != nil {
		return err
	}

	defs, err := views.Resolve(s.cfg.ViewsFile)
	if err != nil {
		return err
	}
	if err := views.Apply(ctx, s.db, defs, s.logger); err != nil {
		return err
	}

	tables := append([]string{ingest.DiseasesTable}, ingest.SourceTables...)
	for _, c := range ingest.CountTables(ctx, s.db, tables) {
		fmt.Fprintln(out, c.String())
	}

	fmt.Fprintln(out, "\n✅ Setup complete. Database and views are ready.")
	return nil
}
