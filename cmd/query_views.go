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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/views"
)

var queryViewsCmd = &cobra.Command{
	Use:     "query-views",
	Short:   "Print the rows of every KPI view",
	Example: `./dwcheck query-views`,
	RunE:    runQueryViews,
}

func runQueryViews(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	defs, err := views.Resolve(s.cfg.ViewsFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, d := range defs {
		_, rows, err := s.db.QueryRows(cmd.Context(), "SELECT * FROM "+s.db.QuoteIdentifier(d.Name))
		if err != nil {
			return fmt.Errorf("failed to query view %s: %w", d.Name, err)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "=== %s ===\n", d.Name)
		for _, row := range rows {
			fmt.Fprintln(out, formatRow(row))
		}
	}
	return nil
}

// formatRow renders a result row as a parenthesized tuple.
func formatRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "\\'") + "'"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return "'" + x.Format(time.RFC3339) + "'"
	default:
		return fmt.Sprint(x)
	}
}
