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

// Discrepancy is a view reference that the live schema cannot satisfy.
type Discrepancy struct {
	View          string
	MissingColumn string
}

// CheckReferences validates refs of view against schema. Discrepancies keep
// the order of refs.
func CheckReferences(schema SchemaSnapshot, view string, refs []ColumnReference) []Discrepancy {
	var out []Discrepancy
	for _, ref := range refs {
		switch {
		case !schema.HasTable(ref.Table):
			out = append(out, Discrepancy{View: view, MissingColumn: ref.String() + " (table does not exist)"})
		case !schema.HasColumn(ref.Table, ref.Column):
			out = append(out, Discrepancy{View: view, MissingColumn: ref.String()})
		}
	}
	return out
}
