package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`

	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Insights
	InsightSampleRows int `mapstructure:"insight_sample_rows" yaml:"insight_sample_rows"`
	MaxInsights       int `mapstructure:"max_insights" yaml:"max_insights"`
	// Rough token budget for data embedded in AI prompts; 0 disables the cap.
	MaxPromptTokens int `mapstructure:"max_prompt_tokens" yaml:"max_prompt_tokens"`

	// Server and table view
	MaxFileBytes int64  `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`
	PageSize     int    `mapstructure:"page_size" yaml:"page_size"`
}

// DefaultPath returns ~/.datadash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datadash", "config.yaml"), nil
}

// Save writes the configuration to cfgFile, or to DefaultPath when empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv values reach Unmarshal.
	v.SetDefault("api_key", "")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.4)
	// A single attempt: failures fall back to local answers instead of retrying.
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("insight_sample_rows", 20)
	v.SetDefault("max_insights", 5)
	v.SetDefault("max_prompt_tokens", 2000)
	v.SetDefault("max_file_bytes", 10<<20)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("page_size", 10)
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	return load(cfgFile, true)
}

// LoadFile is Load without environment overrides. Use it before Save so that
// env values are not persisted.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, env bool) (*Global, error) {
	v := viper.New()
	if env {
		v.SetEnvPrefix("DATADASH")
		v.AutomaticEnv()
	}
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"api_key", "provider", "model", "max_tokens", "temperature",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"ollama_host", "insight_sample_rows", "max_insights", "max_prompt_tokens", "max_file_bytes", "server_addr", "page_size",
}

// Set assigns a single key from its string form.
func (c *Global) Set(key, val string) error {
	intVal := func(min int) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %q", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch p := strings.ToLower(strings.TrimSpace(val)); p {
		case "gemini", "google":
			c.Provider = "gemini"
		case "openrouter":
			c.Provider = "openrouter"
		case "ollama", "local":
			c.Provider = "ollama"
		default:
			return fmt.Errorf("invalid provider: %s (use gemini, openrouter or ollama)", val)
		}
	case "model":
		c.Model = val
	case "max_tokens":
		c.MaxTokens, err = intVal(1)
	case "temperature":
		f, perr := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %q", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = intVal(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = intVal(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = intVal(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = intVal(0)
	case "ollama_host":
		c.OllamaHost = strings.TrimRight(strings.TrimSpace(val), "/")
	case "insight_sample_rows":
		c.InsightSampleRows, err = intVal(1)
	case "max_insights":
		c.MaxInsights, err = intVal(1)
	case "max_prompt_tokens":
		c.MaxPromptTokens, err = intVal(0)
	case "max_file_bytes":
		var i int
		i, err = intVal(1)
		c.MaxFileBytes = int64(i)
	case "server_addr":
		c.ServerAddr = val
	case "page_size":
		c.PageSize, err = intVal(1)
	default:
		return fmt.Errorf("unknown key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return err
}
