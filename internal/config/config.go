// Package config loads client settings from YAML and API credentials from
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"cexws/pkg/auth"
	"cexws/pkg/core"
)

// Environment variables read by this package.
const (
	EnvAPIKey    = "CEX_API_KEY"
	EnvAPISecret = "CEX_API_SECRET"
	EnvURL       = "CEX_WS_URL"
	EnvLogLevel  = "CEX_LOG_LEVEL"
)

// Load reads path as YAML over DefaultConfig, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*core.Config, error) {
	cfg := core.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvURL); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode unmarshals YAML onto cfg, leaving unset fields untouched. Unknown
// keys are rejected.
func Decode(data []byte, cfg *core.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadEnv loads KEY=VALUE pairs from files into the process environment
// without overriding variables that are already set. Missing files are
// ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("load %s: %w", f, err)
	}
	return nil
}

// Signer builds a signer from CEX_API_KEY and CEX_API_SECRET. It returns
// core.ErrNoCredentials when either is unset.
func Signer() (*auth.Signer, error) {
	key := os.Getenv(EnvAPIKey)
	secret := os.Getenv(EnvAPISecret)
	if key == "" || secret == "" {
		return nil, core.ErrNoCredentials
	}
	return auth.NewSigner(key, []byte(secret)), nil
}

// Logger builds a zerolog logger at level writing to w.
func Logger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
