package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/log"
)

const (
	// DriverPostgres selects github.com/lib/pq.
	DriverPostgres = "postgres"
	// DriverPgx selects the database/sql adapter of github.com/jackc/pgx/v5.
	DriverPgx = "pgx"
	// DriverSQLite selects the embedded modernc.org/sqlite engine.
	DriverSQLite = "sqlite"
)

// Config is a container for everything found in the TOML config file
type Config struct {
	ListenAddr              string        `toml:"listen_addr" split_words:"true"`
	SocketPath              string        `toml:"socket_path" split_words:"true"`
	PrometheusListenAddr    string        `toml:"prometheus_listen_addr" split_words:"true"`
	Logging                 Logging       `toml:"logging" envconfig:"logging"`
	Sentry                  Sentry        `toml:"sentry" envconfig:"sentry"`
	Prometheus              Prometheus    `toml:"prometheus" envconfig:"prometheus"`
	DB                      DB            `toml:"database" envconfig:"database"`
	GracefulStopTimeout     time.Duration `toml:"-" ignored:"true"`
	GracefulStopTimeoutToml duration      `toml:"graceful_stop_timeout" envconfig:"graceful_stop_timeout"`
}

// Logging contains the logging configuration
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Sentry configures error reporting
type Sentry struct {
	DSN         string `toml:"dsn"`
	Environment string `toml:"environment"`
}

// Prometheus contains additional histogram settings
type Prometheus struct {
	RequestLatencyBuckets []float64 `toml:"request_latency_buckets" split_words:"true"`
}

// DB holds database configuration data. Driver is one of "postgres" (the
// default), "pgx" or "sqlite"; Path is only used by "sqlite".
type DB struct {
	Driver      string `toml:"driver"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	DBName      string `toml:"dbname"`
	SSLMode     string `toml:"sslmode"`
	SSLCert     string `toml:"sslcert"`
	SSLKey      string `toml:"sslkey"`
	SSLRootCert string `toml:"sslrootcert"`
	Path        string `toml:"path"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// FromFile loads the config for the passed file path. Environment variables
// prefixed with BLESSINGS_ take precedence over the file.
func FromFile(filePath string) (Config, error) {
	config := &Config{}
	cfgFile, err := os.Open(filePath)
	if err != nil {
		return *config, err
	}
	defer cfgFile.Close()

	if _, err := toml.DecodeReader(cfgFile, config); err != nil {
		return *config, fmt.Errorf("load toml: %w", err)
	}

	if err := envconfig.Process("blessings", config); err != nil {
		return *config, fmt.Errorf("envconfig: %w", err)
	}

	config.setDefaults()

	return *config, nil
}

func (c *Config) setDefaults() {
	c.GracefulStopTimeout = c.GracefulStopTimeoutToml.Duration
	if c.GracefulStopTimeout == 0 {
		c.GracefulStopTimeout = 1 * time.Minute
	}

	if c.DB.Driver == "" {
		c.DB.Driver = DriverPostgres
	}
}

var (
	errNoListener         = errors.New("no listen address or socket path configured")
	errUnknownDriver      = errors.New("unknown database driver")
	errNoSQLitePath       = errors.New("sqlite database requires a path")
	errInvalidLogFormat   = errors.New("invalid logging format")
	errNegativeTimeout    = errors.New("graceful stop timeout must not be negative")
	errUnsortedLatencyBkt = errors.New("request latency buckets must be sorted in increasing order")
)

// Validate establishes if the config is valid
func (c Config) Validate() error {
	if c.ListenAddr == "" && c.SocketPath == "" {
		return errNoListener
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: %q", errInvalidLogFormat, c.Logging.Format)
	}

	if c.GracefulStopTimeout < 0 {
		return errNegativeTimeout
	}

	buckets := c.Prometheus.RequestLatencyBuckets
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return errUnsortedLatencyBkt
		}
	}

	return c.DB.Validate()
}

// Validate checks that the database settings are usable by the selected driver.
func (db DB) Validate() error {
	switch db.Driver {
	case "", DriverPostgres, DriverPgx:
		return nil
	case DriverSQLite:
		if db.Path == "" {
			return errNoSQLitePath
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, db.Driver)
	}
}

// ConfigureLogger applies the logging configuration and returns the default entry.
func (c Config) ConfigureLogger() *logrus.Entry {
	log.Configure(c.Logging.Format, c.Logging.Level)

	return log.Default()
}

// ToPQString returns a connection string that can be passed to github.com/lib/pq.
func (db DB) ToPQString() string {
	return strings.Join(append(db.keywordFields(), "binary_parameters=yes"), " ")
}

// ToPgxString returns a connection string that can be passed to github.com/jackc/pgx.
// pgx forwards unknown keywords to the server as runtime parameters, so the
// lib/pq specific options are left out.
func (db DB) ToPgxString() string {
	return strings.Join(db.keywordFields(), " ")
}

// ToSQLiteDSN returns a data source name for modernc.org/sqlite with foreign
// key enforcement switched on for every connection of the pool.
func (db DB) ToSQLiteDSN() string {
	return "file:" + db.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// DSN returns the data source name matching the configured driver.
func (db DB) DSN() string {
	switch db.Driver {
	case DriverPgx:
		return db.ToPgxString()
	case DriverSQLite:
		return db.ToSQLiteDSN()
	default:
		return db.ToPQString()
	}
}

func (db DB) keywordFields() []string {
	var fields []string
	if db.Port > 0 {
		fields = append(fields, fmt.Sprintf("port=%d", db.Port))
	}

	for _, kv := range []struct {
		key, value string
	}{
		{"host", db.Host},
		{"user", db.User},
		{"password", db.Password},
		{"dbname", db.DBName},
		{"sslmode", db.SSLMode},
		{"sslcert", db.SSLCert},
		{"sslkey", db.SSLKey},
		{"sslrootcert", db.SSLRootCert},
	} {
		if len(kv.value) == 0 {
			continue
		}

		kv.value = strings.ReplaceAll(kv.value, "'", `\'`)
		kv.value = strings.ReplaceAll(kv.value, " ", `\ `)

		fields = append(fields, kv.key+"="+kv.value)
	}

	return fields
}
