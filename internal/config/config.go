// Package config loads the settings of the command line tools from flags,
// environment variables, an optional config file and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. OUTBOUND_API_KEY.
const EnvPrefix = "OUTBOUND"

// Config is the resolved configuration.
type Config struct {
	API struct {
		BaseURL    string        `mapstructure:"base_url"`
		Key        string        `mapstructure:"key"`
		Timeout    time.Duration `mapstructure:"timeout"`
		MaxRetries int           `mapstructure:"max_retries"`
	} `mapstructure:"api"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Keyring struct {
		Service      string `mapstructure:"service"`
		Backend      string `mapstructure:"backend"`
		FileDir      string `mapstructure:"file_dir"`
		FilePassword string `mapstructure:"file_password"`
	} `mapstructure:"keyring"`

	Send struct {
		Algorithm     string        `mapstructure:"algorithm"`
		LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
		Retries       int           `mapstructure:"retries"`
		SignExternal  bool          `mapstructure:"sign_external"`
	} `mapstructure:"send"`

	// Contacts is the path of the YAML contact book.
	Contacts string `mapstructure:"contacts"`
}

var defaults = map[string]any{
	"api.base_url":          "",
	"api.key":               "",
	"api.timeout":           30 * time.Second,
	"api.max_retries":       3,
	"log.level":             "info",
	"keyring.service":       "outbound",
	"keyring.backend":       "",
	"keyring.file_dir":      "",
	"keyring.file_password": "",
	"send.algorithm":        "aes256-gcm",
	"send.lookup_timeout":   10 * time.Second,
	"send.retries":          2,
	"send.sign_external":    false,
	"contacts":              "",
}

// Flags registers the flags understood by Load on fs.
func Flags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "config file")
	fs.String("env-file", ".env", "dotenv file loaded before the environment is read")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("base-url", "", "API base URL")
	fs.String("contacts", "", "contact book file")
	fs.String("algorithm", "", "session key algorithm")
	fs.String("keyring-backend", "", "keyring backend (file, secret-service, keychain, ...)")
	fs.String("keyring-dir", "", "directory of the file keyring")
}

var flagKeys = map[string]string{
	"log-level": "log.level",
	"base-url":  "api.base_url",
	"contacts":  "contacts",
	"algorithm": "send.algorithm",

	"keyring-backend": "keyring.backend",
	"keyring-dir":     "keyring.file_dir",
}

// Load builds a Config. fs is used for the config file; flags must have been
// registered with Flags and parsed.
func Load(fs afero.Fs, flags *pflag.FlagSet) (*Config, error) {
	envFile, _ := flags.GetString("env-file")
	if err := loadDotEnv(fs, envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if file, _ := flags.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv sets variables from path that are not already in the
// environment. A missing file is ignored.
func loadDotEnv(fs afero.Fs, path string) error {
	if path == "" {
		return nil
	}
	f, err := fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for k, val := range env {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}
