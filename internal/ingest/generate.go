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
package ingest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Outcomes are the visit outcomes written by GenerateDataset.
var Outcomes = []string{"Improved", "Stable", "Readmitted", "Worsened"}

var drugsByDisease = map[string][]string{
	"Diabetes":      {"Metformin", "Insulin Glargine", "Sitagliptin"},
	"Hypertension":  {"Lisinopril", "Amlodipine", "Losartan"},
	"Asthma":        {"Albuterol", "Fluticasone", "Montelukast"},
	"Heart Disease": {"Atorvastatin", "Aspirin", "Metoprolol"},
}

// GenerateOptions controls the synthetic dataset.
type GenerateOptions struct {
	Patients          int
	MaxVisits         int // per patient, at least 1
	MaxMedications    int // per patient, at least 1
	Seed              int64
	Until             time.Time // latest visit date
	VisitWindowMonths int
}

// DefaultGenerateOptions returns the sizes used by generate-data.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Patients:          200,
		MaxVisits:         4,
		MaxMedications:    2,
		Seed:              1,
		Until:             time.Now(),
		VisitWindowMonths: 24,
	}
}

// Dataset is the content of the three source extracts.
type Dataset struct {
	Patients    [][]string
	Visits      [][]string
	Medications [][]string
}

var (
	patientHeader    = []string{"patient_id", "name", "age", "gender", "disease"}
	visitHeader      = []string{"visit_id", "patient_id", "visit_date", "outcome"}
	medicationHeader = []string{"medication_id", "patient_id", "drug_name", "adherence"}
)

// GenerateDataset builds a deterministic dataset for opts. Patient
// diseases are drawn from Diseases so the KPI views join.
func GenerateDataset(opts GenerateOptions) (*Dataset, error) {
	if opts.Patients <= 0 {
		return nil, fmt.Errorf("patients must be positive, got %d", opts.Patients)
	}
	if opts.MaxVisits < 1 {
		opts.MaxVisits = 1
	}
	if opts.MaxMedications < 1 {
		opts.MaxMedications = 1
	}
	if opts.VisitWindowMonths < 1 {
		opts.VisitWindowMonths = 1
	}
	if opts.Until.IsZero() {
		opts.Until = time.Now()
	}
	from := opts.Until.AddDate(0, -opts.VisitWindowMonths, 0)

	faker := gofakeit.New(opts.Seed)
	names := make([]string, len(Diseases))
	for i, d := range Diseases {
		names[i] = d.Name
	}

	ds := &Dataset{
		Patients:    [][]string{patientHeader},
		Visits:      [][]string{visitHeader},
		Medications: [][]string{medicationHeader},
	}
	visitID, medicationID := 1, 1
	for p := 1; p <= opts.Patients; p++ {
		pid := strconv.Itoa(p)
		disease := faker.RandomString(names)
		ds.Patients = append(ds.Patients, []string{
			pid,
			faker.Name(),
			strconv.Itoa(faker.Number(18, 90)),
			faker.RandomString([]string{"Male", "Female"}),
			disease,
		})

		for i, n := 0, faker.Number(1, opts.MaxVisits); i < n; i++ {
			ds.Visits = append(ds.Visits, []string{
				strconv.Itoa(visitID),
				pid,
				faker.DateRange(from, opts.Until).Format(time.DateOnly),
				faker.RandomString(Outcomes),
			})
			visitID++
		}

		for i, n := 0, faker.Number(1, opts.MaxMedications); i < n; i++ {
			adherence := math.Round(faker.Float64Range(40, 100)*10) / 10
			ds.Medications = append(ds.Medications, []string{
				strconv.Itoa(medicationID),
				pid,
				faker.RandomString(drugsByDisease[disease]),
				strconv.FormatFloat(adherence, 'f', 1, 64),
			})
			medicationID++
		}
	}
	return ds, nil
}

// WriteDir writes patients.csv, visits.csv and medications.csv into dir,
// creating it if needed, and returns the written paths.
func (ds *Dataset) WriteDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	files := []struct {
		table   string
		records [][]string
	}{
		{"patients", ds.Patients},
		{"visits", ds.Visits},
		{"medications", ds.Medications},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.table+".csv")
		if err := writeCSV(path, f.records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
