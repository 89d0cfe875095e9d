// Package config loads station settings from general/settings.yaml with
// STATION_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// STATION_API_REQUEST_BETWEEN_QUERIES.
const EnvPrefix = "STATION"

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "environment"
)

type Range struct {
	Minimum int `yaml:"minimum" mapstructure:"minimum"`
	Maximum int `yaml:"maximum" mapstructure:"maximum"`
}

type HistoryLimits struct {
	Turns  int `yaml:"turns" mapstructure:"turns"`
	Tokens int `yaml:"tokens" mapstructure:"tokens"`
}

type FetchLimits struct {
	Bytes  int `yaml:"bytes" mapstructure:"bytes"`
	Tokens int `yaml:"tokens" mapstructure:"tokens"`
}

type PromptLimits struct {
	TotalTokens int           `yaml:"total_tokens" mapstructure:"total_tokens"`
	History     HistoryLimits `yaml:"history" mapstructure:"history"`
	FetchURL    FetchLimits   `yaml:"fetch_url" mapstructure:"fetch_url"`
}

type LengthLimits struct {
	Username Range `yaml:"username" mapstructure:"username"`
	Password Range `yaml:"password" mapstructure:"password"`
	Message  int   `yaml:"message" mapstructure:"message"`
}

type RateLimit struct {
	PerMinute int `yaml:"per_minute" mapstructure:"per_minute"`
	Burst     int `yaml:"burst" mapstructure:"burst"`
}

type Website struct {
	ServerPort     int          `yaml:"server_port" mapstructure:"server_port"`
	ClientRefresh  int          `yaml:"client_refresh" mapstructure:"client_refresh"`
	LengthLimit    LengthLimits `yaml:"length_limit" mapstructure:"length_limit"`
	RateLimit      RateLimit    `yaml:"rate_limit" mapstructure:"rate_limit"`
	AllowedOrigins []string     `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type APIRequest struct {
	Model            string `yaml:"model" mapstructure:"model"`
	BetweenQueries   int    `yaml:"between_queries" mapstructure:"between_queries"`
	ForCaseOfFailure int    `yaml:"for_case_of_failure" mapstructure:"for_case_of_failure"`
	MaxRetries       int    `yaml:"max_retries" mapstructure:"max_retries"`
}

type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Tracing exports cycle and command spans through OpenTelemetry.
type Tracing struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter       string  `yaml:"exporter" mapstructure:"exporter"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	ZipkinEndpoint string  `yaml:"zipkin_endpoint" mapstructure:"zipkin_endpoint"`
	SampleRate     float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	ServiceName    string  `yaml:"service_name" mapstructure:"service_name"`
}

// Settings is the full station configuration. Durations are whole seconds.
type Settings struct {
	PromptLimits PromptLimits `yaml:"prompt_limits" mapstructure:"prompt_limits"`
	Website      Website      `yaml:"website" mapstructure:"website"`
	APIRequest   APIRequest   `yaml:"api_request" mapstructure:"api_request"`
	Logging      Logging      `yaml:"logging" mapstructure:"logging"`
	Tracing      Tracing      `yaml:"tracing" mapstructure:"tracing"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		PromptLimits: PromptLimits{
			TotalTokens: 786432,
			History:     HistoryLimits{Turns: 30, Tokens: 98304},
			FetchURL:    FetchLimits{Bytes: 2621440, Tokens: 196608},
		},
		Website: Website{
			ServerPort:    3000,
			ClientRefresh: 3,
			LengthLimit: LengthLimits{
				Username: Range{Minimum: 3, Maximum: 16},
				Password: Range{Minimum: 8, Maximum: 64},
				Message:  4096,
			},
			RateLimit:      RateLimit{PerMinute: 30, Burst: 5},
			AllowedOrigins: []string{"*"},
		},
		APIRequest: APIRequest{
			Model:            "gemini-2.5-flash",
			BetweenQueries:   90,
			ForCaseOfFailure: 30,
			MaxRetries:       3,
		},
		Logging: Logging{Level: "info", Format: "text"},
		Tracing: Tracing{
			Exporter:       "otlp",
			OTLPEndpoint:   "localhost:4318",
			ZipkinEndpoint: "http://localhost:9411/api/v2/spans",
			SampleRate:     1.0,
			ServiceName:    "station",
		},
	}
}

func (s Settings) QueryInterval() time.Duration {
	return time.Duration(s.APIRequest.BetweenQueries) * time.Second
}

func (s Settings) FailureDelay() time.Duration {
	return time.Duration(s.APIRequest.ForCaseOfFailure) * time.Second
}

// UserCooldown is the pause imposed on all users after an accepted message.
func (s Settings) UserCooldown() time.Duration {
	return s.QueryInterval() / 4
}

// Metadata contains provenance details for loaded configuration.
type Metadata struct {
	Path     string
	Created  bool
	sources  map[string]ValueSource
	loadedAt time.Time
}

// Source returns the origin of a dotted key such as "website.server_port".
func (m Metadata) Source(key string) ValueSource {
	if src, ok := m.sources[key]; ok {
		return src
	}
	return SourceDefault
}

// Overridden lists the keys that did not come from defaults, sorted.
func (m Metadata) Overridden() []string {
	var keys []string
	for k, src := range m.sources {
		if src != SourceDefault {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	env  func(string) (string, bool)
	now  func() time.Time
	keep bool
}

// WithEnv replaces os.LookupEnv.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.env = lookup }
}

// WithoutCreate leaves a missing settings file missing.
func WithoutCreate() Option {
	return func(o *loadOptions) { o.keep = true }
}

// Load reads path, creating it from defaults when it does not exist, and
// applies environment overrides.
func Load(path string, opts ...Option) (Settings, Metadata, error) {
	options := loadOptions{env: os.LookupEnv, now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	meta := Metadata{Path: path, sources: map[string]ValueSource{}, loadedAt: options.now()}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if !options.keep {
			if err := Save(path, Default()); err != nil {
				return Settings{}, meta, err
			}
			meta.Created = true
		}
	} else if err != nil {
		return Settings{}, meta, fmt.Errorf("stat settings: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	keys, err := setDefaults(v, Default())
	if err != nil {
		return Settings{}, meta, err
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, meta, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	replacer := strings.NewReplacer(".", "_")
	for _, key := range keys {
		if v.InConfig(key) {
			meta.sources[key] = SourceFile
		}
		envKey := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if value, ok := options.env(envKey); ok {
			v.Set(key, envValue(key, value))
			meta.sources[key] = SourceEnv
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, meta, fmt.Errorf("decode settings: %w", err)
	}
	return settings, meta, nil
}

// envValue splits list values given as comma separated text.
func envValue(key, value string) any {
	if key == "website.allowed_origins" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return value
}

// setDefaults registers every leaf of defaults and returns the dotted keys.
func setDefaults(v *viper.Viper, defaults Settings) ([]string, error) {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	var keys []string
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
			keys = append(keys, key)
		}
	}
	walk("", tree)
	sort.Strings(keys)
	return keys, nil
}

// Save writes settings as YAML.
func Save(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
