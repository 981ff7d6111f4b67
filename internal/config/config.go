// Package config loads client and stub server settings from defaults, a
// config file, a .env file, REINSDESK_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. REINSDESK_API_BASE_URL.
const EnvPrefix = "REINSDESK"

// Options holds the configuration values for the application.
type Options struct {
	API     API     `mapstructure:"api"`
	Storage Storage `mapstructure:"storage"`
	Listing Listing `mapstructure:"listing"`
	Log     Log     `mapstructure:"log"`
	Output  Output  `mapstructure:"output"`
	Server  Server  `mapstructure:"server"`
}

// API configures the backend connection.
type API struct {
	// BaseURL is the REST API root, including the /api segment.
	BaseURL string `mapstructure:"base_url"`
	// FileBaseURL serves relative file references. Empty means BaseURL
	// without its trailing /api.
	FileBaseURL string        `mapstructure:"file_base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// CAFile is an optional PEM bundle trusted for HTTPS backends.
	CAFile string `mapstructure:"ca_file"`
}

// Storage selects the durable session storage.
type Storage struct {
	// Driver is one of file, sqlite, postgres or memory.
	Driver string `mapstructure:"driver"`
	// DSN is the file path or database connection string.
	DSN string `mapstructure:"dsn"`
}

// Listing configures the listing store.
type Listing struct {
	PageSize int `mapstructure:"page_size"`
}

// Log configures zap.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Output configures how commands print results.
type Output struct {
	// Format is table or json.
	Format string `mapstructure:"format"`
	Pretty bool   `mapstructure:"pretty"`
}

// Server configures the stub backend.
type Server struct {
	Addr      string        `mapstructure:"addr"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// Seed is the number of demo listings created at startup.
	Seed int `mapstructure:"seed"`
	// FilesDir holds uploaded files. Empty keeps them in memory.
	FilesDir string `mapstructure:"files_dir"`
	// TLSCert and TLSKey switch the server to HTTPS when both are set.
	TLSCert string `mapstructure:"tls_cert"`
	TLSKey  string `mapstructure:"tls_key"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.file_base_url", "")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.ca_file", "")
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("listing.page_size", 20)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.pretty", false)
	v.SetDefault("server.addr", "localhost:3000")
	v.SetDefault("server.jwt_secret", "dev-secret-change-me")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.seed", 45)
	v.SetDefault("server.files_dir", "")
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"api-url":     "api.base_url",
	"files-url":   "api.file_base_url",
	"timeout":     "api.timeout",
	"ca":          "api.ca_file",
	"storage":     "storage.driver",
	"storage-dsn": "storage.dsn",
	"page-size":   "listing.page_size",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"format":      "output.format",
	"pretty":      "output.pretty",
	"addr":        "server.addr",
	"jwt-secret":  "server.jwt_secret",
	"token-ttl":   "server.token_ttl",
	"seed":        "server.seed",
	"files-dir":   "server.files_dir",
	"tls-cert":    "server.tls_cert",
	"tls-key":     "server.tls_key",
	"cors-origin": "server.cors_origins",
}

// BindFlags binds every flag of fs that appears in FlagKeys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := FlagKeys[f.Name]; ok {
			if err := v.BindPFlag(key, f); err != nil {
				errs = append(errs, fmt.Errorf("bind flag %s: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

// Load reads the optional .env file and config file into v and decodes the
// result. A missing .env is ignored; a missing explicit config file is an
// error. Without configFile, reinsdesk.{yaml,json,toml} in the working
// directory is used when present.
func Load(v *viper.Viper, configFile, envFile string) (*Options, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("reinsdesk")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Validate checks values that have a closed set of choices.
func (o *Options) Validate() error {
	switch o.Storage.Driver {
	case "file", "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", o.Storage.Driver)
	}
	if (o.Storage.Driver == "sqlite" || o.Storage.Driver == "postgres") && o.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for driver %q", o.Storage.Driver)
	}
	switch o.Output.Format {
	case "table", "json":
	default:
		return fmt.Errorf("output.format: unknown format %q", o.Output.Format)
	}
	if o.Listing.PageSize <= 0 {
		return fmt.Errorf("listing.page_size must be positive, got %d", o.Listing.PageSize)
	}
	return nil
}
