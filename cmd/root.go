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
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/dw-view-validator/internal/config"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/database"
	_ "github.com/GoogleCloudPlatform/dw-view-validator/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/dw-view-validator/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/dw-view-validator/internal/database/sqlite"
	_ "github.com/GoogleCloudPlatform/dw-view-validator/internal/database/sqlserver"
	"github.com/GoogleCloudPlatform/dw-view-validator/internal/logging"
)

const (
	envPrefix      = "DWCHECK"
	defaultEnvFile = ".env"
	configName     = "dwcheck"
)

var (
	cfgFile string
	envFile string
)

// flagKeys maps configuration keys to the persistent flags overriding them.
var flagKeys = map[string]string{
	"database.dialect":           "dialect",
	"database.path":              "db-path",
	"database.host":              "host",
	"database.port":              "port",
	"database.user":              "username",
	"database.password":          "password",
	"database.dbname":            "database",
	"database.sslmode":           "sslmode",
	"database.cloudsql_instance": "cloudsql-instance-connection-name",
	"database.private_ip":        "cloudsql-use-private-ip",
	"data_dir":                   "data-dir",
	"views_file":                 "views-file",
	"report_dir":                 "report-dir",
	"log_level":                  "log-level",
}

var rootCmd = &cobra.Command{
	Use:   "dwcheck",
	Short: "Build and validate the chronic disease warehouse",
	Long: `dwcheck loads the chronic disease CSV extracts into a relational store,
installs the KPI views over them, and checks that every table.column
reference in those views exists in the live schema.`,
	SilenceUsage: true,
}

// loadConfig layers flags, environment, the config file and .env values
// over the defaults. The result is validated.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile exports the variables of path that are not already set. A
// missing default file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

// session is the state of one command invocation: its configuration, its
// logger and, once opened, the store.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger}, nil
}

// openSession builds a session and connects to the configured store.
func openSession(cmd *cobra.Command) (*session, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}
	if err := s.connect(cmd); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) connect(cmd *cobra.Command) error {
	dbCfg := s.cfg.Database
	s.logger.Debug("connecting to database",
		zap.String("dialect", dbCfg.Dialect),
		zap.String("path", dbCfg.Path),
		zap.String("host", dbCfg.Host),
		zap.String("database", dbCfg.DBName))

	db, err := database.New(cmd.Context(), dbCfg)
	if err != nil {
		s.logger.Error("failed to connect to database", zap.Error(err))
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}

// Close releases the store and flushes the logger.
func (s *session) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close database", zap.Error(err))
		}
		s.db = nil
	}
	_ = s.logger.Sync()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./dwcheck.yaml)")
	pf.StringVar(&envFile, "env-file", defaultEnvFile, "Dotenv file exported before reading the environment")

	// Database connection flags
	pf.String("dialect", "", fmt.Sprintf("Database dialect (%s), default sqlite", strings.Join(config.SupportedDialects, ", ")))
	pf.String("db-path", "", "SQLite database file, default chronic_disease_dw.db")
	pf.String("host", "", "Database host")
	pf.Int("port", 0, "Database port, dialect default when 0")
	pf.String("username", "", "Database username")
	pf.String("password", "", "Database password")
	pf.String("database", "", "Database name")
	pf.String("sslmode", "", "PostgreSQL sslmode, default disable")
	pf.String("cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	pf.Bool("cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	pf.String("data-dir", "", "Directory holding patients.csv, visits.csv and medications.csv, default data")
	pf.String("views-file", "", "YAML file replacing the built-in view definitions")
	pf.String("report-dir", "", "Directory for missing column reports, default the working directory")
	pf.String("log-level", "", "Log level (debug, info, warn, error), default info")

	rootCmd.AddCommand(validateViewsCmd)
	rootCmd.AddCommand(applyViewsCmd)
	rootCmd.AddCommand(loadDataCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(queryViewsCmd)
	rootCmd.AddCommand(generateDataCmd)
}
