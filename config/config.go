package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	KeyHTTPAddr              = "LOANLEDGER_HTTP_ADDR"
	KeyDatabaseURL           = "LOANLEDGER_DATABASE_URL"
	KeyReplicaURL            = "LOANLEDGER_REPLICA_URL"
	KeyAdapterType           = "ADAPTER_TYPE"
	KeyFeatureServiceURL     = "LOANLEDGER_FEATURE_SERVICE_URL"
	KeyFeatureServiceTimeout = "LOANLEDGER_FEATURE_SERVICE_TIMEOUT"
	KeyMatchThreshold        = "LOANLEDGER_MATCH_THRESHOLD"
	KeyDayUTCOffsetMinutes   = "LOANLEDGER_DAY_UTC_OFFSET_MINUTES"
	KeyLogLevel              = "LOANLEDGER_LOG_LEVEL"
	KeyOTelEnabled           = "LOANLEDGER_OTEL_ENABLED"
	KeyOTLPEndpoint          = "LOANLEDGER_OTLP_ENDPOINT"
	KeyAutoMigrate           = "LOANLEDGER_AUTO_MIGRATE"
)

// Adapter types selectable with ADAPTER_TYPE.
const (
	AdapterPGXPool = "pgx.pool"
	AdapterSQLDB   = "sql.db"
	AdapterSQLXDB  = "sqlx.db"
)

var (
	ErrLoadingEnvFileFailed = errors.New("loading env file failed")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// Config is the validated service configuration.
type Config struct {
	HTTPAddr              string        `validate:"required"`
	DatabaseURL           string        `validate:"required,url"`
	ReplicaURL            string        `validate:"omitempty,url"`
	AdapterType           string        `validate:"oneof=pgx.pool sql.db sqlx.db"`
	FeatureServiceURL     string        `validate:"omitempty,url"`
	FeatureServiceTimeout time.Duration `validate:"min=1ms"`
	MatchThreshold        float64       `validate:"gt=0"`
	DayUTCOffsetMinutes   int           `validate:"min=-720,max=840"`
	LogLevel              string        `validate:"oneof=debug info warn error"`
	OTelEnabled           bool
	OTLPEndpoint          string `validate:"required_if=OTelEnabled true"`
	AutoMigrate           bool
}

// Load reads envFiles (".env" when none are given) into the process environment, without
// overriding variables that are already set, and builds the Config. Missing env files are
// not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Join(ErrLoadingEnvFileFailed, err)
	}

	return FromEnv()
}

// FromEnv builds the Config from the process environment only.
func FromEnv() (Config, error) {
	var parseErrs []error

	cfg := Config{
		HTTPAddr:              GetEnv(KeyHTTPAddr, ":8080"),
		DatabaseURL:           GetEnv(KeyDatabaseURL),
		ReplicaURL:            GetEnv(KeyReplicaURL),
		AdapterType:           strings.ToLower(GetEnv(KeyAdapterType, AdapterPGXPool)),
		FeatureServiceURL:     GetEnv(KeyFeatureServiceURL),
		FeatureServiceTimeout: parse(KeyFeatureServiceTimeout, "5s", time.ParseDuration, &parseErrs),
		MatchThreshold:        parse(KeyMatchThreshold, "0.6", parseFloat, &parseErrs),
		DayUTCOffsetMinutes:   parse(KeyDayUTCOffsetMinutes, "0", strconv.Atoi, &parseErrs),
		LogLevel:              strings.ToLower(GetEnv(KeyLogLevel, "info")),
		OTelEnabled:           parse(KeyOTelEnabled, "false", strconv.ParseBool, &parseErrs),
		OTLPEndpoint:          GetEnv(KeyOTLPEndpoint, "localhost:4317"),
		AutoMigrate:           parse(KeyAutoMigrate, "true", strconv.ParseBool, &parseErrs),
	}

	if len(parseErrs) > 0 {
		return Config{}, errors.Join(append([]error{ErrInvalidConfig}, parseErrs...)...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	return cfg, nil
}

// GetEnv returns the value of key, or the first default when key is unset.
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return value
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parse[T any](key, defaultValue string, parseFn func(string) (T, error), errs *[]error) T {
	raw := GetEnv(key, defaultValue)

	value, err := parseFn(raw)
	if err != nil {
		*errs = append(*errs, errors.New(key+": cannot parse "+strconv.Quote(raw)))
	}

	return value
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}
