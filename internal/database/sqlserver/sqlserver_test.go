package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
)

func TestSQLServerQuoteIdentifier(t *testing.T) {
	handler := sqlServerHandler{}
	if got := handler.QuoteIdentifier("patients"); got != "[patients]" {
		t.Errorf("QuoteIdentifier() = %q", got)
	}
	if got := handler.QuoteIdentifier("odd]name"); got != "[odd]]name]" {
		t.Errorf("QuoteIdentifier() = %q", got)
	}
	if got := handler.Placeholder(2); got != "@p2" {
		t.Errorf("Placeholder(2) = %q", got)
	}
}

func TestConnString(t *testing.T) {
	got := connString("sa", "p@ss word", "db.local", 1433, "dw")
	if !strings.HasPrefix(got, "sqlserver://sa:") || !strings.Contains(got, "@db.local:1433?database=dw") {
		t.Errorf("connString() = %q", got)
	}
	if strings.Contains(got, "p@ss word") {
		t.Errorf("connString() did not escape the password: %q", got)
	}
}

func TestSQLServerListColumns(t *testing.T) {
	tests := []struct {
		name          string
		tableName     string
		expectedCols  []database.ColumnInfo
		expectedError string
		mockSetup     func(sqlmock.Sqlmock)
	}{
		{
			name:      "Success",
			tableName: "patients",
			expectedCols: []database.ColumnInfo{
				{Name: "patient_id", DataType: "bigint"},
				{Name: "disease", DataType: "nvarchar"},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE"}).
					AddRow("patient_id", "bigint").
					AddRow("disease", "nvarchar")
				mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.COLUMNS`).WithArgs(sql.Named("tableName", "patients")).WillReturnRows(rows)
			},
		},
		{
			name:          "Database query error",
			tableName:     "patients",
			expectedError: "error querying columns for table patients",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.COLUMNS`).WithArgs(sql.Named("tableName", "patients")).WillReturnError(errors.New("database connection failed"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("Failed to create mock database: %v", err)
			}
			defer mockDB.Close()
			tt.mockSetup(mock)

			db := &database.DB{Pool: mockDB}
			cols, err := sqlServerHandler{}.ListColumns(context.Background(), db, tt.tableName)

			if tt.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("Expected error containing %q, got %v", tt.expectedError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Expected no error, but got: %v", err)
				}
				if len(cols) != len(tt.expectedCols) {
					t.Fatalf("Expected %d columns, got %d", len(tt.expectedCols), len(cols))
				}
				for i := range cols {
					if cols[i] != tt.expectedCols[i] {
						t.Errorf("Column %d mismatch. Expected: %+v, Got: %+v", i, tt.expectedCols[i], cols[i])
					}
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled mock expectations: %v", err)
			}
		})
	}
}

func TestSQLServerListTablesAndViews(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer mockDB.Close()
	db := &database.DB{Pool: mockDB}
	ctx := context.Background()

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.TABLES`).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("diseases"))
	mock.ExpectQuery(`FROM sys\.views v\s+JOIN sys\.sql_modules m`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "definition"}).AddRow("disease_prevalence", "CREATE VIEW disease_prevalence AS SELECT d.name FROM diseases d"))

	tables, err := sqlServerHandler{}.ListTables(ctx, db)
	if err != nil || len(tables) != 1 || tables[0] != "diseases" {
		t.Fatalf("ListTables() = %v, %v", tables, err)
	}
	views, err := sqlServerHandler{}.ListViews(ctx, db)
	if err != nil || len(views) != 1 || views[0].Name != "disease_prevalence" {
		t.Fatalf("ListViews() = %v, %v", views, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled mock expectations: %v", err)
	}
}
