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

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/views"
)

var viewsSQLFile string

var applyViewsCmd = &cobra.Command{
	Use:   "apply-views",
	Short: "Drop and recreate the KPI views",
	Long: `Installs the KPI views, replacing any view with the same name. The view set
is the built-in one unless --views-file is given. With --sql-file the given
SQL script is executed instead, stopping at the first failing statement.`,
	Example: `./dwcheck apply-views --sql-file sql/views.sql`,
	RunE:    runApplyViews,
}

func runApplyViews(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if viewsSQLFile != "" {
		if err := views.ApplyScriptFile(ctx, s.db, viewsSQLFile, s.logger); err != nil {
			return err
		}
	} else {
		defs, err := views.Resolve(s.cfg.ViewsFile)
		if err != nil {
			return err
		}
		if err := views.Apply(ctx, s.db, defs, s.logger); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ Views applied successfully")
	return nil
}

func init() {
	applyViewsCmd.Flags().StringVar(&viewsSQLFile, "sql-file", "", "SQL script to execute instead of the view definitions")
}
