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

// Package views holds the KPI view definitions and installs them in a store.
package views

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a named view and the SELECT statement behind it.
type Definition struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Every ROUND argument is a DECIMAL cast. PostgreSQL rounds to a scale only
// for numerics.
var builtin = []Definition{
	{
		Name: "disease_prevalence",
		SQL: `SELECT
    d.name AS disease,
    COUNT(p.patient_id) AS total_patients
FROM diseases d
LEFT JOIN patients p ON d.name = p.disease
GROUP BY d.name`,
	},
	{
		Name: "readmission_rate",
		SQL: `SELECT
    d.name AS disease,
    COUNT(DISTINCT v.patient_id) AS readmitted_patients,
    COUNT(DISTINCT p.patient_id) AS total_patients,
    ROUND(
        CAST((CAST(COUNT(DISTINCT v.patient_id) AS REAL) / NULLIF(COUNT(DISTINCT p.patient_id), 0)) * 100 AS DECIMAL(20, 10)),
        2
    ) AS readmission_rate_percent
FROM diseases d
LEFT JOIN patients p ON d.name = p.disease
LEFT JOIN visits v ON p.patient_id = v.patient_id AND v.outcome = 'Readmitted'
GROUP BY d.name`,
	},
	{
		Name: "medication_adherence",
		SQL: `SELECT
    d.name AS disease,
    ROUND(CAST(AVG(m.adherence) AS DECIMAL(20, 10)), 2) AS avg_adherence_percent
FROM diseases d
LEFT JOIN patients p ON d.name = p.disease
LEFT JOIN medications m ON p.patient_id = m.patient_id
GROUP BY d.name`,
	},
	{
		Name: "patient_outcomes_summary",
		SQL: `SELECT
    v.outcome,
    COUNT(DISTINCT v.patient_id) AS total_patients
FROM visits v
GROUP BY v.outcome`,
	},
}

// Default returns the built-in KPI views in install order.
func Default() []Definition {
	out := make([]Definition, len(builtin))
	copy(out, builtin)
	return out
}

// Names returns the view names of defs in order.
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

type definitionsFile struct {
	Views []Definition `yaml:"views"`
}

// LoadFile reads view definitions from a YAML file of the form
//
//	views:
//	  - name: disease_prevalence
//	    sql: SELECT ...
func LoadFile(path string) ([]Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read views file: %w", err)
	}
	var f definitionsFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("failed to parse views file %s: %w", path, err)
	}
	if err := Validate(f.Views); err != nil {
		return nil, fmt.Errorf("invalid views file %s: %w", path, err)
	}
	return f.Views, nil
}

// Resolve returns the definitions in path, or the built-in set when path
// is empty.
func Resolve(path string) ([]Definition, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Validate checks that defs is non-empty, that every name is a plain
// identifier used once, and that every view has a body.
func Validate(defs []Definition) error {
	if len(defs) == 0 {
		return fmt.Errorf("no view definitions")
	}
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if !identifierPattern.MatchString(d.Name) {
			return fmt.Errorf("view #%d: invalid name %q", i+1, d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("view %s is defined more than once", d.Name)
		}
		seen[d.Name] = true
		if strings.TrimSpace(d.SQL) == "" {
			return fmt.Errorf("view %s has an empty body", d.Name)
		}
	}
	return nil
}

// Statements returns the drop-then-create batch that installs d.
func (d Definition) Statements() []string {
	body := strings.TrimSpace(d.SQL)
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	return []string{
		fmt.Sprintf("DROP VIEW IF EXISTS %s", d.Name),
		fmt.Sprintf("CREATE VIEW %s AS\n%s", d.Name, body),
	}
}
