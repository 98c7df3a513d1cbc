package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

// Config is the remote store server configuration.
type Config struct {
	AppPort  string
	LogLevel string

	StoreDriver string
	DBFile      string
	SQLitePath  string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	// RedisAddr empty disables idempotent replay and the pub/sub relay.
	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	JWTSecret       string
	TokenTTL        time.Duration
	DocsRequireAuth bool
}

// ClientConfig drives the doctrack CLI.
type ClientConfig struct {
	Home string
	// Server empty means local-only.
	Server            string
	PollInterval      time.Duration
	ReconnectDelay    time.Duration
	InactivityTimeout time.Duration
	LogLevel          string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getbool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// loadDotenv reads an optional .env from the working directory. Variables
// already set in the environment win.
func loadDotenv() {
	_ = godotenv.Load()
}

func Load() *Config {
	loadDotenv()
	c := &Config{
		AppPort:     getenv("APP_PORT", "8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", StoreFile)),
		DBFile:      getenv("DB_FILE", "db.json"),
		SQLitePath:  getenv("SQLITE_PATH", "doctrack.db"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "doctrack"),
		MySQLUser: getenv("MYSQL_USER", "doctrack"),
		MySQLPass: getenv("MYSQL_PASS", "doctrack"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		JWTSecret:       getenv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:        time.Duration(getint("TOKEN_TTL_HOURS", 168)) * time.Hour,
		DocsRequireAuth: getbool("DOCS_REQUIRE_AUTH", false),
	}
	return c
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.AppPort); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.AppPort, err)
	}
	switch c.StoreDriver {
	case StoreFile:
		if c.DBFile == "" {
			return errors.New("missing DB_FILE")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	case StoreMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want file, sqlite or mysql)", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL_HOURS must be positive")
	}
	if c.IdempTTLSecs <= 0 {
		return errors.New("IDEMPOTENCY_TTL_SECONDS must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the SQL drivers.
func (c *Config) DSN() string {
	if c.StoreDriver == StoreMySQL {
		return c.MySQLDSN()
	}
	return c.SQLitePath
}

func LoadClient() *ClientConfig {
	loadDotenv()
	home := os.Getenv("DOCTRACK_HOME")
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(h, ".doctrack")
		} else {
			home = ".doctrack"
		}
	}
	return &ClientConfig{
		Home:              home,
		Server:            strings.TrimRight(os.Getenv("DOCTRACK_SERVER"), "/"),
		PollInterval:      time.Duration(getint("DOCTRACK_POLL_SECONDS", 5)) * time.Second,
		ReconnectDelay:    time.Duration(getint("DOCTRACK_RECONNECT_SECONDS", 3)) * time.Second,
		InactivityTimeout: time.Duration(getint("DOCTRACK_INACTIVITY_MINUTES", 60)) * time.Minute,
		LogLevel:          getenv("LOG_LEVEL", "warn"),
	}
}

func (c *ClientConfig) Validate() error {
	if c.Home == "" {
		return errors.New("missing DOCTRACK_HOME")
	}
	if c.PollInterval <= 0 || c.ReconnectDelay <= 0 || c.InactivityTimeout <= 0 {
		return errors.New("poll, reconnect and inactivity intervals must be positive")
	}
	if c.Server != "" && !strings.HasPrefix(c.Server, "http://") && !strings.HasPrefix(c.Server, "https://") {
		return fmt.Errorf("DOCTRACK_SERVER %q must be an http(s) URL", c.Server)
	}
	return nil
}
