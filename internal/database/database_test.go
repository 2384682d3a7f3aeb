package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock DialectHandler implementation
type mockDialectHandler struct {
	createCloudSQLPoolFn func(cfg config.DatabaseConfig) (*sql.DB, error)
	createStandardPoolFn func(cfg config.DatabaseConfig) (*sql.DB, error)
	listTablesFn         func(ctx context.Context, db *DB) ([]string, error)

	listTablesCalls int
}

func (m *mockDialectHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	if m.createCloudSQLPoolFn != nil {
		return m.createCloudSQLPoolFn(cfg)
	}
	return nil, errors.New("cloud sql not mocked")
}

func (m *mockDialectHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	if m.createStandardPoolFn != nil {
		return m.createStandardPoolFn(cfg)
	}
	mockDb, _, err := sqlmock.New()
	return mockDb, err
}

func (m *mockDialectHandler) QuoteIdentifier(name string) string { return fmt.Sprintf(`"%s"`, name) }

func (m *mockDialectHandler) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (m *mockDialectHandler) ColumnType(kind ValueKind) string {
	switch kind {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (m *mockDialectHandler) ListTables(ctx context.Context, db *DB) ([]string, error) {
	m.listTablesCalls++
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, db)
	}
	return []string{"table1"}, nil
}

func (m *mockDialectHandler) ListColumns(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error) {
	return []ColumnInfo{{Name: "col1", DataType: "int"}}, nil
}

func (m *mockDialectHandler) ListViews(ctx context.Context, db *DB) ([]ViewInfo, error) {
	return []ViewInfo{{Name: "v1", SQL: "CREATE VIEW v1 AS SELECT 1"}}, nil
}

func withHandlers(t *testing.T) {
	t.Helper()
	mu.Lock()
	original := dialectHandlers
	dialectHandlers = make(map[string]DialectHandler)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		dialectHandlers = original
		mu.Unlock()
	})
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock, *mockDialectHandler) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	handler := &mockDialectHandler{}
	return &DB{Pool: mockDb, Handler: handler}, mock, handler
}

func TestRegisterAndGetDialectHandler(t *testing.T) {
	withHandlers(t)

	mockHandler := &mockDialectHandler{}
	_, err := GetDialectHandler("testdialect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database dialect: testdialect")

	RegisterDialectHandler("testdialect", mockHandler)
	handler, err := GetDialectHandler("testdialect")
	require.NoError(t, err)
	assert.Same(t, mockHandler, handler)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		withHandlers(t)
		RegisterDialectHandler("mockdb", &mockDialectHandler{})

		db, err := New(ctx, config.DatabaseConfig{Dialect: "mockdb"})
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, "mockdb", db.GetConfig().Dialect)
	})

	t.Run("Unknown dialect", func(t *testing.T) {
		withHandlers(t)
		_, err := New(ctx, config.DatabaseConfig{Dialect: "nope"})
		require.Error(t, err)
		var unavailable *ErrStoreUnavailable
		assert.False(t, errors.As(err, &unavailable))
	})

	t.Run("Pool creation fails", func(t *testing.T) {
		withHandlers(t)
		poolErr := errors.New("bad dsn")
		RegisterDialectHandler("mockdb", &mockDialectHandler{
			createStandardPoolFn: func(config.DatabaseConfig) (*sql.DB, error) { return nil, poolErr },
		})

		_, err := New(ctx, config.DatabaseConfig{Dialect: "mockdb"})
		var unavailable *ErrStoreUnavailable
		require.True(t, errors.As(err, &unavailable))
		assert.ErrorIs(t, err, poolErr)
	})

	t.Run("Ping fails", func(t *testing.T) {
		withHandlers(t)
		pingErr := errors.New("connection refused")
		mockDb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		mock.ExpectPing().WillReturnError(pingErr)
		mock.ExpectClose()
		RegisterDialectHandler("mockdb", &mockDialectHandler{
			createStandardPoolFn: func(config.DatabaseConfig) (*sql.DB, error) { return mockDb, nil },
		})

		_, err = New(ctx, config.DatabaseConfig{Dialect: "mockdb"})
		var unavailable *ErrStoreUnavailable
		require.True(t, errors.As(err, &unavailable))
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cloud SQL dialect uses cloud pool", func(t *testing.T) {
		withHandlers(t)
		called := false
		RegisterDialectHandler("cloudsqlmock", &mockDialectHandler{
			createCloudSQLPoolFn: func(config.DatabaseConfig) (*sql.DB, error) {
				called = true
				mockDb, _, err := sqlmock.New()
				return mockDb, err
			},
		})

		db, err := New(ctx, config.DatabaseConfig{Dialect: "cloudsqlmock"})
		require.NoError(t, err)
		defer db.Close()
		assert.True(t, called)
	})
}

func TestDelegatesToHandler(t *testing.T) {
	db, _, handler := newMockDB(t)
	defer db.Close()
	ctx := context.Background()

	tables, err := db.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"table1"}, tables)
	assert.Equal(t, 1, handler.listTablesCalls)

	views, err := db.ListViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", views[0].Name)

	_, err = (&DB{}).ListColumns(ctx, "t")
	assert.EqualError(t, err, "dialect handler not initialized")
}

func TestCreateTableSQL(t *testing.T) {
	db, _, _ := newMockDB(t)
	defer db.Close()

	got := db.CreateTableSQL("diseases", []ColumnDef{
		{Name: "disease_id", Kind: KindInteger, PrimaryKey: true},
		{Name: "name", Kind: KindText, NotNull: true},
		{Name: "score", Kind: KindReal},
	})
	assert.Equal(t, `CREATE TABLE "diseases" ("disease_id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL, "score" REAL)`, got)
}

func TestExecuteSQLStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, _ := newMockDB(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DROP VIEW IF EXISTS v")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE VIEW v AS SELECT 1")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := db.ExecuteSQLStatements(ctx, []string{"DROP VIEW IF EXISTS v", "  ", "CREATE VIEW v AS SELECT 1"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stops at first failure", func(t *testing.T) {
		db, mock, _ := newMockDB(t)
		defer db.Close()
		execErr := errors.New("syntax error")

		mock.ExpectBegin()
		mock.ExpectExec("DROP VIEW").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE VIEW").WillReturnError(execErr)
		mock.ExpectRollback()

		err := db.ExecuteSQLStatements(ctx, []string{"DROP VIEW IF EXISTS v", "CREATE VIEW v AS SELEC", "SELECT 1"})
		var qe *ErrQueryExecution
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, "CREATE VIEW v AS SELEC", qe.Statement)
		assert.ErrorIs(t, err, execErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No statements", func(t *testing.T) {
		db, mock, _ := newMockDB(t)
		defer db.Close()
		require.NoError(t, db.ExecuteSQLStatements(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryRows(t *testing.T) {
	db, mock, _ := newMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"disease", "total_patients"}).
		AddRow([]byte("Asthma"), int64(3)).
		AddRow("Diabetes", int64(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM disease_prevalence")).WillReturnRows(rows)

	cols, got, err := db.QueryRows(context.Background(), "SELECT * FROM disease_prevalence")
	require.NoError(t, err)
	assert.Equal(t, []string{"disease", "total_patients"}, cols)
	assert.Equal(t, [][]any{{"Asthma", int64(3)}, {"Diabetes", int64(0)}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, _ := newMockDB(t)
		defer db.Close()

		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "patients" ("patient_id", "disease") VALUES ($1, $2)`))
		prep.ExpectExec().WithArgs(int64(1), "Asthma").WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().WithArgs(int64(2), nil).WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		n, err := db.BulkInsert(ctx, "patients", []string{"patient_id", "disease"}, [][]any{{int64(1), "Asthma"}, {int64(2), nil}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ragged row", func(t *testing.T) {
		db, mock, _ := newMockDB(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO")
		mock.ExpectRollback()

		_, err := db.BulkInsert(ctx, "patients", []string{"a", "b"}, [][]any{{1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 1 has 1 values, want 2")
	})

	t.Run("Empty", func(t *testing.T) {
		db, mock, _ := newMockDB(t)
		defer db.Close()
		n, err := db.BulkInsert(ctx, "patients", []string{"a"}, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
