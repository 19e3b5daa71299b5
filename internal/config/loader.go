package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix  = "SQLPOLL"
	configName = "sqlpoll"
	configType = "yaml"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("instance", "default")
	v.SetDefault("statement", "")
	v.SetDefault("schedule", "")
	v.SetDefault("lowercase_column_names", true)
	v.SetDefault("page_size", 0)

	v.SetDefault("connection.driver", "")
	v.SetDefault("connection.dsn", "")
	v.SetDefault("connection.max_open_conns", 4)
	v.SetDefault("connection.ping_timeout", "5s")
	v.SetDefault("connection.validate_connection", false)

	v.SetDefault("state.path", "")
	v.SetDefault("state.record_last_run", true)
	v.SetDefault("state.clean_run", false)
	v.SetDefault("state.history", true)

	v.SetDefault("output.path", "-")
	v.SetDefault("output.queue_size", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration at path. With an empty path, sqlpoll.yaml in
// the working directory is used if present; otherwise only defaults and
// environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Message: "read config", Err: err}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigError{Message: "decode config", Err: err}
	}

	if used := v.ConfigFileUsed(); used != "" {
		cfg.dir = filepath.Dir(used)

		// viper lowercases keys; parameter names are case-sensitive
		// placeholders, so take them from the file as written.
		params, err := readParameters(used)
		if err != nil {
			return nil, err
		}
		if params != nil {
			cfg.Parameters = params
		}
	}
	return cfg, nil
}

func readParameters(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Message: "read config", Err: err}
	}
	var doc struct {
		Parameters map[string]any `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Field: "parameters", Message: "decode", Err: err}
	}
	return doc.Parameters, nil
}

// ResolveStatement returns the statement text. If Statement names an existing
// file (absolute, relative to the working directory, or relative to the
// config file) its contents are used. The result is trimmed.
func (c *Config) ResolveStatement() (string, error) {
	raw := strings.TrimSpace(c.Statement)
	if raw == "" {
		return "", &ConfigError{Field: "statement", Message: "is required"}
	}
	if strings.ContainsAny(raw, "\n ") {
		return raw, nil
	}

	candidates := []string{raw}
	if c.dir != "" && !filepath.IsAbs(raw) {
		candidates = append(candidates, filepath.Join(c.dir, raw))
	}
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", &ConfigError{Field: "statement", Message: fmt.Sprintf("read %s", p), Err: err}
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", &ConfigError{Field: "statement", Message: fmt.Sprintf("%s is empty", p)}
		}
		return text, nil
	}
	return raw, nil
}

// Show writes the effective configuration as YAML.
func (c *Config) Show(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
