// Package config loads the application configuration from, in increasing
// priority: built-in defaults, a JSON config file, environment variables,
// and command line flags.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the service.
type Config struct {
	RunAddr               string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel              string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName            string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	DBConnectionTimeout   time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir         string        `env:"MIGRATIONS_DIR"`
	TokenSigningSecretKey string        `env:"TOKEN_SIGNING_SECRET_KEY" validate:"required,base64url"`
	AuthCookieName        string        `env:"AUTH_COOKIE_NAME" validate:"required"`
	TokenTTL              time.Duration `env:"TOKEN_TTL"`
	TrustedSubnet         string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
}

// jsonConfig mirrors the JSON config file. Durations are given as strings
// in time.ParseDuration format, e.g. "10s".
type jsonConfig struct {
	RunAddr               string `json:"server_address"`
	LogLevel              string `json:"log_level"`
	DBFileName            string `json:"file_storage_path"`
	DatabaseDSN           string `json:"database_dsn"`
	DBConnectionTimeout   string `json:"db_connection_timeout"`
	MigrationsDir         string `json:"migrations_dir"`
	TokenSigningSecretKey string `json:"token_signing_secret_key"`
	AuthCookieName        string `json:"auth_cookie_name"`
	TokenTTL              string `json:"token_ttl"`
	TrustedSubnet         string `json:"trusted_subnet"`
}

var defaultConfig = Config{
	RunAddr:             "localhost:8080",
	LogLevel:            "info",
	DBFileName:          "",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/todolist/migrations",
	// base64url of a development-only signing key; override in production.
	TokenSigningSecretKey: "c3VwZXJzZWNyZXRrZXk=",
	AuthCookieName:        "access_token",
	TokenTTL:              72 * time.Hour,
	TrustedSubnet:         "",
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (values *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(values)
}

func (values *Config) applyJSONConfig() error {
	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var fromJSON jsonConfig
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		return err
	}

	if fromJSON.RunAddr != "" {
		values.RunAddr = fromJSON.RunAddr
	}
	if fromJSON.LogLevel != "" {
		values.LogLevel = fromJSON.LogLevel
	}
	if fromJSON.DBFileName != "" {
		values.DBFileName = fromJSON.DBFileName
	}
	if fromJSON.DatabaseDSN != "" {
		values.DatabaseDSN = fromJSON.DatabaseDSN
	}
	if fromJSON.MigrationsDir != "" {
		values.MigrationsDir = fromJSON.MigrationsDir
	}
	if fromJSON.TokenSigningSecretKey != "" {
		values.TokenSigningSecretKey = fromJSON.TokenSigningSecretKey
	}
	if fromJSON.AuthCookieName != "" {
		values.AuthCookieName = fromJSON.AuthCookieName
	}
	if fromJSON.TrustedSubnet != "" {
		values.TrustedSubnet = fromJSON.TrustedSubnet
	}
	if fromJSON.DBConnectionTimeout != "" {
		timeout, err := time.ParseDuration(fromJSON.DBConnectionTimeout)
		if err != nil {
			return err
		}
		values.DBConnectionTimeout = timeout
	}
	if fromJSON.TokenTTL != "" {
		ttl, err := time.ParseDuration(fromJSON.TokenTTL)
		if err != nil {
			return err
		}
		values.TokenTTL = ttl
	}

	return nil
}

func (values *Config) applyEnv() error {
	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return err
	}

	if fromEnv.RunAddr != "" {
		values.RunAddr = fromEnv.RunAddr
	}
	if fromEnv.LogLevel != "" {
		values.LogLevel = fromEnv.LogLevel
	}
	if fromEnv.DBFileName != "" {
		values.DBFileName = fromEnv.DBFileName
	}
	if fromEnv.DatabaseDSN != "" {
		values.DatabaseDSN = fromEnv.DatabaseDSN
	}
	if fromEnv.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = fromEnv.DBConnectionTimeout
	}
	if fromEnv.MigrationsDir != "" {
		values.MigrationsDir = fromEnv.MigrationsDir
	}
	if fromEnv.TokenSigningSecretKey != "" {
		values.TokenSigningSecretKey = fromEnv.TokenSigningSecretKey
	}
	if fromEnv.AuthCookieName != "" {
		values.AuthCookieName = fromEnv.AuthCookieName
	}
	if fromEnv.TokenTTL != 0 {
		values.TokenTTL = fromEnv.TokenTTL
	}
	if fromEnv.TrustedSubnet != "" {
		values.TrustedSubnet = fromEnv.TrustedSubnet
	}

	return nil
}

// InitOption defines a functional option for configuring config loading.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing turns off command line parsing; tests use it so
// `go test` flags do not leak into the configuration.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New loads, merges, and validates the configuration.
// Priority: command line flags > environment > JSON config file > defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if err := values.applyJSONConfig(); err != nil {
		return nil, err
	}

	// Environment is applied before flag registration so explicitly passed
	// flags win over environment values, and untouched flags fall back to
	// environment, JSON, or defaults.
	if err := values.applyEnv(); err != nil {
		return nil, err
	}

	if !options.disableFlagsParsing {
		flagSet := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
		flagSet.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flagSet.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flagSet.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with database")
		flagSet.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "a string with the database connection details")
		flagSet.StringVar(&values.MigrationsDir, "m", values.MigrationsDir, "directory with goose migrations")
		flagSet.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "CIDR of the subnet trusted to read internal stats")
		flagSet.DurationVar(&values.TokenTTL, "token-ttl", values.TokenTTL, "token lifetime; 0 disables expiry")
		if err := flagSet.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
