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
package validator

import "regexp"

// ColumnReference is a table.column token pair found in view SQL. Table may
// be a query-local alias rather than a real table.
type ColumnReference struct {
	Table  string
	Column string
}

func (r ColumnReference) String() string {
	return r.Table + "." + r.Column
}

var referencePattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\.([a-zA-Z_][a-zA-Z0-9_]*)`)

// ExtractReferences returns every word.word pair in sql in order of
// appearance, duplicates included. The scan is lexical: string literals,
// comments and aliases are not interpreted.
func ExtractReferences(sql string) []ColumnReference {
	matches := referencePattern.FindAllStringSubmatch(sql, -1)
	refs := make([]ColumnReference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, ColumnReference{Table: m[1], Column: m[2]})
	}
	return refs
}
