package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/config"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
)

// Helper to create a mock DB and handler for testing
func newMockPostgresDB(t *testing.T) (*database.DB, sqlmock.Sqlmock, *postgresHandler) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	handler := postgresHandler{}
	db := &database.DB{
		Pool:    mockDb,
		Handler: &handler,
		Config:  config.DatabaseConfig{Dialect: "postgres"},
	}
	return db, mock, &handler
}

func TestPostgresQuoteIdentifier(t *testing.T) {
	handler := postgresHandler{}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple name", "mytable", `"mytable"`},
		{"Name with spaces", "my table", `"my table"`},
		{"Name with quotes", `my"table`, `"my""table"`},
		{"Empty name", "", `""`},
		{"Keyword", "user", `"user"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handler.QuoteIdentifier(tt.in); got != tt.want {
				t.Errorf("QuoteIdentifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostgresPlaceholderAndTypes(t *testing.T) {
	handler := postgresHandler{}
	if got := handler.Placeholder(3); got != "$3" {
		t.Errorf("Placeholder(3) = %q, want $3", got)
	}
	if got := handler.ColumnType(database.KindReal); got != "DOUBLE PRECISION" {
		t.Errorf("ColumnType(real) = %q", got)
	}
	if got := handler.ColumnType(database.KindInteger); got != "BIGINT" {
		t.Errorf("ColumnType(integer) = %q", got)
	}
}

func TestPostgresListTables(t *testing.T) {
	db, mock, handler := newMockPostgresDB(t)
	defer db.Close()
	ctx := context.Background()

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		AND table_type = 'BASE TABLE'
		ORDER BY table_name;`

	expectedQuery := regexp.QuoteMeta(query)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"table_name"}).
			AddRow("diseases").
			AddRow("patients")
		mock.ExpectQuery(expectedQuery).WillReturnRows(rows)

		tables, err := handler.ListTables(ctx, db)
		if err != nil {
			t.Fatalf("ListTables() unexpected error: %v", err)
		}

		if len(tables) != 2 || tables[0] != "diseases" || tables[1] != "patients" {
			t.Errorf("ListTables() got %v, want [diseases patients]", tables)
		}
	})

	t.Run("Query Error", func(t *testing.T) {
		dbError := errors.New("connection failed")
		mock.ExpectQuery(expectedQuery).WillReturnError(dbError)

		_, err := handler.ListTables(ctx, db)
		if err == nil {
			t.Fatalf("ListTables() expected error, got nil")
		}
		if !errors.Is(err, dbError) {
			t.Errorf("ListTables() got error %v, want error containing %v", err, dbError)
		}
	})

	t.Run("Scan Error", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"table_name"}).
			AddRow("diseases").
			AddRow(nil)
		mock.ExpectQuery(expectedQuery).WillReturnRows(rows)

		_, err := handler.ListTables(ctx, db)
		if err == nil {
			t.Fatalf("ListTables() expected scan error, got nil")
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresListColumns(t *testing.T) {
	db, mock, handler := newMockPostgresDB(t)
	defer db.Close()
	ctx := context.Background()
	tableName := "diseases"

	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		AND table_name = $1
		ORDER BY ordinal_position;`
	expectedQuery := regexp.QuoteMeta(query)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("disease_id", "integer").
			AddRow("name", "text")
		mock.ExpectQuery(expectedQuery).WithArgs(tableName).WillReturnRows(rows)

		cols, err := handler.ListColumns(ctx, db, tableName)
		if err != nil {
			t.Fatalf("ListColumns() unexpected error: %v", err)
		}

		expectedCols := []database.ColumnInfo{
			{Name: "disease_id", DataType: "integer"},
			{Name: "name", DataType: "text"},
		}
		if len(cols) != len(expectedCols) {
			t.Fatalf("ListColumns() got %d columns, want %d", len(cols), len(expectedCols))
		}
		for i := range cols {
			if cols[i] != expectedCols[i] {
				t.Errorf("ListColumns() col %d got %+v, want %+v", i, cols[i], expectedCols[i])
			}
		}
	})

	t.Run("Query Error", func(t *testing.T) {
		dbError := errors.New("table not found")
		mock.ExpectQuery(expectedQuery).WithArgs(tableName).WillReturnError(dbError)

		_, err := handler.ListColumns(ctx, db, tableName)
		if !errors.Is(err, dbError) {
			t.Errorf("ListColumns() got error %v, want error containing %v", err, dbError)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresListViews(t *testing.T) {
	db, mock, handler := newMockPostgresDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"viewname", "definition"}).
		AddRow("patient_outcomes_summary", "CREATE VIEW patient_outcomes_summary AS  SELECT v.outcome FROM visits v;")
	mock.ExpectQuery(`FROM pg_catalog\.pg_views`).WillReturnRows(rows)

	views, err := handler.ListViews(context.Background(), db)
	if err != nil {
		t.Fatalf("ListViews() unexpected error: %v", err)
	}
	if len(views) != 1 || views[0].Name != "patient_outcomes_summary" {
		t.Fatalf("ListViews() got %+v", views)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
