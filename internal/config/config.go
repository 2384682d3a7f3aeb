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
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SupportedDialects lists every dialect a handler is registered for.
var SupportedDialects = []string{
	"sqlite",
	"postgres", "cloudsqlpostgres",
	"mysql", "cloudsqlmysql",
	"sqlserver", "cloudsqlsqlserver",
}

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig `mapstructure:"database"`
	DataDir   string         `mapstructure:"data_dir"`
	ViewsFile string         `mapstructure:"views_file"`
	ReportDir string         `mapstructure:"report_dir"`
	LogLevel  string         `mapstructure:"log_level"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Path                           string `mapstructure:"path"` // sqlite file path or DSN
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"user"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"dbname"`
	SSLMode                        string `mapstructure:"sslmode"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance"`
	UsePrivateIP                   bool   `mapstructure:"private_ip"`
}

// GetConfig returns a default configuration. Flags, environment and the
// config file are layered on top of it by Load.
func GetConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "sqlite",
			Path:    "chronic_disease_dw.db",
			Host:    "localhost",
			SSLMode: "disable",
		},
		DataDir:   "data",
		ReportDir: ".",
		LogLevel:  "info",
	}
}

// SetDefaults registers the default configuration on v.
func SetDefaults(v *viper.Viper) {
	def := GetConfig()
	v.SetDefault("database.dialect", def.Database.Dialect)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.host", def.Database.Host)
	v.SetDefault("database.port", def.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.sslmode", def.Database.SSLMode)
	v.SetDefault("database.cloudsql_instance", "")
	v.SetDefault("database.private_ip", false)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("views_file", "")
	v.SetDefault("report_dir", def.ReportDir)
	v.SetDefault("log_level", def.LogLevel)
}

// Load builds a Config from everything registered on v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Database.Dialect = strings.ToLower(strings.TrimSpace(cfg.Database.Dialect))
	return cfg, nil
}

// Validate checks the database section for the fields its dialect needs.
func (c *Config) Validate() error {
	db := c.Database
	if !isSupportedDialect(db.Dialect) {
		return fmt.Errorf("unsupported dialect: %s (only %s are supported)", db.Dialect, strings.Join(SupportedDialects, ", "))
	}
	if db.Port < 0 || db.Port > 65535 {
		return fmt.Errorf("database.port %d is out of range", db.Port)
	}
	switch {
	case db.Dialect == "sqlite":
		if db.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case strings.HasPrefix(db.Dialect, "cloudsql"):
		if db.CloudSQLInstanceConnectionName == "" || db.DBName == "" || db.User == "" {
			return fmt.Errorf("cloudsql dialects require database.cloudsql_instance, database.dbname and database.user")
		}
	default:
		if db.Host == "" || db.DBName == "" || db.User == "" {
			return fmt.Errorf("%s requires database.host, database.dbname and database.user", db.Dialect)
		}
	}
	return nil
}

func isSupportedDialect(dialect string) bool {
	for _, d := range SupportedDialects {
		if d == dialect {
			return true
		}
	}
	return false
}
