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

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/utils"
)

// ReportWriter persists discrepancies as a timestamped CSV file.
type ReportWriter struct {
	Dir string           // output directory, working directory when empty
	Now func() time.Time // clock, time.Now when nil
}

// Write stores ds and returns the file path. With no discrepancies it
// writes nothing and returns an empty path.
func (w ReportWriter) Write(ds []Discrepancy) (string, error) {
	if len(ds) == 0 {
		return "", nil
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	path := filepath.Join(w.Dir, utils.ReportFileName(now()))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"view", "missing_column"}); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}
	for _, d := range ds {
		if err := cw.Write([]string{d.View, d.MissingColumn}); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return path, nil
}
