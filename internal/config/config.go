package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type MarkupConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
	LinkLabel       string `mapstructure:"link_label"`
}

type ReferencesConfig struct {
	ExternalBaseURL  string            `mapstructure:"external_base_url"`
	ExternalPrefixes []string          `mapstructure:"external_prefixes"`
	Keywords         map[string]string `mapstructure:"keywords"`
}

type ExtensionsConfig struct {
	SynthesizePlaceholders bool `mapstructure:"synthesize_placeholders"`
}

type PipelineConfig struct {
	Workers       int           `mapstructure:"workers"`
	EntityTimeout time.Duration `mapstructure:"entity_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Markup     MarkupConfig     `mapstructure:"markup"`
	References ReferencesConfig `mapstructure:"references"`
	Extensions ExtensionsConfig `mapstructure:"extensions"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Log        LogConfig        `mapstructure:"log"`
}

// cacheBase returns the base cache directory for xmldocmd.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/xmldocmd as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "xmldocmd")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "xmldocmd")
	}
	return filepath.Join(os.TempDir(), "xmldocmd")
}

// DBPath returns the path to the DuckDB database file.
func DBPath() string {
	return filepath.Join(cacheBase(), "db.db")
}

// CASDir returns the path to the content-addressable page store.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// GraphCacheDir returns the directory holding cached transformed graphs.
func GraphCacheDir() string {
	return filepath.Join(cacheBase(), "graphs")
}

// LogPath returns the path to the log file used by the MCP server, whose
// stdio is reserved for the protocol.
func LogPath() string {
	return filepath.Join(cacheBase(), "mcp.log")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "xmldocmd"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "xmldocmd"))
	}

	viper.SetDefault("markup.default_language", "csharp")
	viper.SetDefault("markup.link_label", "link")
	viper.SetDefault("references.external_base_url", "https://learn.microsoft.com/dotnet/api/")
	viper.SetDefault("references.external_prefixes", []string{"System", "Microsoft"})
	viper.SetDefault("references.keywords", map[string]string{})
	viper.SetDefault("extensions.synthesize_placeholders", true)
	viper.SetDefault("pipeline.workers", 0)
	viper.SetDefault("pipeline.entity_timeout", "5s")
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("XMLDOCMD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// stringToListHookFunc splits comma separated strings, as they arrive from
// environment variables, into trimmed lists.
func stringToListHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		var list []string
		for _, s := range strings.Split(data.(string), ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		return list, nil
	}
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}
	return decode(viper.AllSettings())
}

func decode(settings map[string]interface{}) (*Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToListHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.EntityTimeout < 0 {
		return fmt.Errorf("pipeline.entity_timeout must not be negative, got %s", c.Pipeline.EntityTimeout)
	}
	for k := range c.References.Keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("references.keywords contains an empty keyword")
		}
	}
	return nil
}
