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
package utils

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func ReadSQLStatementsFromFile(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return SplitSQLStatements(string(content)), nil
}

// SplitSQLStatements splits a script on semicolons outside string literals
// and quoted identifiers. "--" comments are dropped up to the end of their
// line.
func SplitSQLStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	runes := []rune(strings.ReplaceAll(script, "\r\n", "\n"))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			kept := strings.TrimRight(current.String(), " \t")
			current.Reset()
			current.WriteString(kept)
			if i < len(runes) && kept != "" && !strings.HasSuffix(kept, "\n") {
				current.WriteRune('\n')
			}
			continue
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return statements
}

// ReportFileName is the name of the missing-columns report for a run
// started at t.
func ReportFileName(t time.Time) string {
	return fmt.Sprintf("missing_columns_report_%s.csv", t.Format("20060102_150405"))
}
