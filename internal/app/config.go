package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables mapped onto config keys.
// Nested keys are separated by a double underscore, e.g. CONNECTOR_SERVER__PORT.
const EnvPrefix = "CONNECTOR_"

// legacyEnv maps the environment names of earlier connector releases to config keys.
var legacyEnv = map[string]string{
	"PROXY_PORT":     "server.port",
	"LITELLM_URL":    "backend.url",
	"PROXY_LOG_FILE": "log.file",
	"PROXY_DEBUG":    "debug",
}

// Config is the effective connector configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Backend BackendConfig `koanf:"backend"`
	Log     LogConfig     `koanf:"log"`
	Debug   bool          `koanf:"debug"`
}

type ServerConfig struct {
	Host            string `koanf:"host" validate:"omitempty,ip|hostname"`
	Port            int    `koanf:"port" validate:"min=1,max=65535"`
	MaxRequestBytes int64  `koanf:"max_request_bytes" validate:"min=1"`
}

type BackendConfig struct {
	URL         string        `koanf:"url" validate:"required,http_url"`
	PostTimeout time.Duration `koanf:"post_timeout" validate:"gt=0"`
	GetTimeout  time.Duration `koanf:"get_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level    string `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format   string `koanf:"format" validate:"oneof=text json"`
	File     string `koanf:"file"`
	Exporter string `koanf:"exporter" validate:"omitempty,oneof=otlp-grpc otlp-http stdout"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.host":              "0.0.0.0",
		"server.port":              4001,
		"server.max_request_bytes": 32 << 20,
		"backend.url":              "http://localhost:4000",
		"backend.post_timeout":     "5m",
		"backend.get_timeout":      "30s",
		"log.level":                "info",
		"log.format":               "text",
		"log.file":                 "",
		"log.exporter":             "",
		"debug":                    false,
	}
}

// Load builds the configuration from defaults, the optional TOML file at path,
// the environment returned by environ and finally overrides (dotted keys, usually
// explicitly set CLI flags). environ defaults to os.Environ.
func Load(path string, environ func() []string, overrides map[string]any) (*Config, error) {
	if environ == nil {
		environ = os.Environ
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		EnvironFunc:   environ,
		TransformFunc: transformLegacyEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("load legacy environment: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:      EnvPrefix,
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			return strings.ToLower(strings.ReplaceAll(key, "__", ".")), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// transformLegacyEnv keeps only the legacy variable names. Keys mapped to "" are
// skipped by the provider.
func transformLegacyEnv(key, value string) (string, any) {
	target, ok := legacyEnv[key]
	if !ok {
		return "", nil
	}
	if target == "debug" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes":
			return target, true
		default:
			return target, false
		}
	}
	return target, value
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LocalAddr returns an address at which a local client reaches the listener.
// Wildcard hosts are replaced by the loopback address.
func (c *Config) LocalAddr() string {
	host := c.Server.Host
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// TOML renders the configuration in the format accepted by --config.
func (c *Config) TOML() ([]byte, error) {
	out, err := toml.Parser().Marshal(map[string]any{
		"server": map[string]any{
			"host":              c.Server.Host,
			"port":              c.Server.Port,
			"max_request_bytes": c.Server.MaxRequestBytes,
		},
		"backend": map[string]any{
			"url":          c.Backend.URL,
			"post_timeout": c.Backend.PostTimeout.String(),
			"get_timeout":  c.Backend.GetTimeout.String(),
		},
		"log": map[string]any{
			"level":    c.Log.Level,
			"format":   c.Log.Format,
			"file":     c.Log.File,
			"exporter": c.Log.Exporter,
		},
		"debug": c.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return out, nil
}
