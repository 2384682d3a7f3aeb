package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "chronic_disease_dw.db", cfg.Database.Path)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ".", cfg.ReportDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("database.dialect", " Postgres ")
	v.Set("database.host", "db.internal")
	v.Set("database.port", 5433)
	v.Set("database.user", "etl")
	v.Set("database.dbname", "dw")
	v.Set("report_dir", "/tmp/reports")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "/tmp/reports", cfg.ReportDir)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"sqlite ok", DatabaseConfig{Dialect: "sqlite", Path: ":memory:"}, ""},
		{"sqlite without path", DatabaseConfig{Dialect: "sqlite"}, "database.path"},
		{"unknown dialect", DatabaseConfig{Dialect: "oracle"}, "unsupported dialect: oracle"},
		{"mysql missing host", DatabaseConfig{Dialect: "mysql", DBName: "dw", User: "u"}, "requires database.host"},
		{"cloudsql missing instance", DatabaseConfig{Dialect: "cloudsqlpostgres", DBName: "dw", User: "u"}, "cloudsql_instance"},
		{"invalid port", DatabaseConfig{Dialect: "postgres", Host: "localhost", Port: 70000, DBName: "dw", User: "u"}, "out of range"},
		{"cloudsql ok", DatabaseConfig{Dialect: "cloudsqlmysql", DBName: "dw", User: "u", CloudSQLInstanceConnectionName: "p:r:i"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: tt.db}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
