package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBSSLMode      = "prefer"
	defaultConnectTimeout = 10 * time.Second
	defaultMaxConns       = 4
	defaultForecastTable  = "mimiciv_derived.vital_forecasts"
	defaultPort           = 8080
	defaultChartWidth     = 800
	defaultChartHeight    = 600
)

// Database enumerates the recognized connection options for the research
// database. It is passed explicitly to db.Connect.
type Database struct {
	User           string        `validate:"required"`
	Password       string
	Host           string        `validate:"required,hostname_rfc1123|ip"`
	Port           int           `validate:"gt=0,lt=65536"`
	Name           string        `validate:"required"`
	SSLMode        string        `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration `validate:"gte=0"`
	MaxConns       int32         `validate:"gt=0"`
	ForecastTable  string        `validate:"required"`
}

// Config holds environment-driven settings for the CLI and the API.
type Config struct {
	DB          Database
	Port        int    `validate:"gt=0,lt=65536"`
	BearerToken string
	LogLevel    string `validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	LogFormat   string `validate:"oneof=json console"`
	ChartWidth  int    `validate:"gt=0"`
	ChartHeight int    `validate:"gt=0"`
}

var validate = validator.New()

// Defaults returns a Config populated with default values only.
func Defaults() Config {
	return Config{
		DB: Database{
			Host:           defaultDBHost,
			Port:           defaultDBPort,
			SSLMode:        defaultDBSSLMode,
			ConnectTimeout: defaultConnectTimeout,
			MaxConns:       defaultMaxConns,
			ForecastTable:  defaultForecastTable,
		},
		Port:        defaultPort,
		LogLevel:    "info",
		LogFormat:   "console",
		ChartWidth:  defaultChartWidth,
		ChartHeight: defaultChartHeight,
	}
}

// Load reads configuration from environment variables (optionally from the
// given .env files; a missing file is ignored).
func Load(envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary key lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg.DB.User = get("DB_USER")
	cfg.DB.Password, _ = lookup("DB_PASSWORD")
	cfg.DB.Name = get("DB_NAME")
	if v := get("DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := get("DB_SSLMODE"); v != "" {
		cfg.DB.SSLMode = v
	}
	if v := get("FORECAST_TABLE"); v != "" {
		cfg.DB.ForecastTable = v
	}

	if v := get("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid DB_PORT: %s", v)
		}
		cfg.DB.Port = port
	}

	if v := get("DB_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DB_CONNECT_TIMEOUT: %w", err)
		}
		cfg.DB.ConnectTimeout = d
	}

	if v := get("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid DB_MAX_CONNS: %s", v)
		}
		cfg.DB.MaxConns = int32(n)
	}

	if v := get("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", v)
		}
		cfg.Port = port
	}

	if v := get("CHART_WIDTH"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil || w <= 0 {
			return cfg, fmt.Errorf("invalid CHART_WIDTH: %s", v)
		}
		cfg.ChartWidth = w
	}

	if v := get("CHART_HEIGHT"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return cfg, fmt.Errorf("invalid CHART_HEIGHT: %s", v)
		}
		cfg.ChartHeight = h
	}

	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	cfg.BearerToken = get("API_BEARER_TOKEN")

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks everything except the database section, which is only
// required by commands that connect.
func (c Config) Validate() error {
	if err := validate.StructExcept(c, "DB"); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate reports missing or malformed connection options.
func (d Database) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	return nil
}

// ConnString renders the options as a postgresql:// URL.
func (d Database) ConnString() string {
	u := url.URL{
		Scheme: "postgresql",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}

	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		secs := int(d.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted is ConnString with the password masked, for logs.
func (d Database) Redacted() string {
	if d.Password == "" {
		return d.ConnString()
	}
	masked := d
	masked.Password = "xxxxx"
	return masked.ConnString()
}
