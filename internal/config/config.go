package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCalculatorURL is the add-service screen of the pricing calculator.
const DefaultCalculatorURL = "https://calculator.aws/#/addService"

type Config struct {
	CalculatorURL string           `yaml:"calculator_url"`
	Browser       BrowserConfig    `yaml:"browser"`
	Automation    AutomationConfig `yaml:"automation"`
	Remote        RemoteConfig     `yaml:"remote"`
	Credential    CredentialConfig `yaml:"credential"`
	Server        ServerConfig     `yaml:"server"`
	Events        EventsConfig     `yaml:"events"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// BrowserConfig selects and tunes the driver used to reach the calculator.
type BrowserConfig struct {
	Driver          string  `yaml:"driver"` // chromedp, playwright
	Headless        bool    `yaml:"headless"`
	WindowWidth     int     `yaml:"window_width"`
	WindowHeight    int     `yaml:"window_height"`
	UserAgent       string  `yaml:"user_agent"`
	SlowMo          float64 `yaml:"slow_mo"`
	NavigateOnStart bool    `yaml:"navigate_on_start"`
	ActionTimeout   string  `yaml:"action_timeout"`
}

// AutomationConfig holds the settle delays and waits of the executor.
type AutomationConfig struct {
	SearchSettle    string `yaml:"search_settle"`
	ConfigureSettle string `yaml:"configure_settle"`
	FieldSettle     string `yaml:"field_settle"`
	FormTimeout     string `yaml:"form_timeout"`
}

// RemoteConfig configures the remote semantic-parsing tier.
type RemoteConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
}

// CredentialConfig selects where the remote tier's API key lives.
type CredentialConfig struct {
	Backend   string `yaml:"backend"` // file, redis, env, memory
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
	EnvVar    string `yaml:"env_var"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// EventsConfig enables mirroring run results onto NATS. Empty URL disables it.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

func NewConfig() *Config {
	return &Config{
		CalculatorURL: DefaultCalculatorURL,
		Browser: BrowserConfig{
			Driver:          "chromedp",
			Headless:        false,
			WindowWidth:     1280,
			WindowHeight:    720,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			SlowMo:          100,
			NavigateOnStart: true,
			ActionTimeout:   "15s",
		},
		Automation: AutomationConfig{
			SearchSettle:    "2s",
			ConfigureSettle: "2s",
			FieldSettle:     "1s",
			FormTimeout:     "5s",
		},
		Remote: RemoteConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			BaseURL:     "https://api.openai.com/v1",
			Timeout:     "60s",
			Temperature: 0.3,
		},
		Credential: CredentialConfig{
			Backend:  "file",
			RedisKey: "calc-assistant:api-key",
			EnvVar:   "OPENAI_API_KEY",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Events: EventsConfig{
			Subject: "calc.runs",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults and then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CALC_ASSISTANT_URL"); v != "" {
		c.CalculatorURL = v
	}
	if v := os.Getenv("CALC_ASSISTANT_DRIVER"); v != "" {
		c.Browser.Driver = v
	}
	if v := os.Getenv("CALC_ASSISTANT_HEADLESS"); v != "" {
		c.Browser.Headless = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CALC_ASSISTANT_PROVIDER"); v != "" {
		c.Remote.Provider = v
	}
	if v := os.Getenv("CALC_ASSISTANT_MODEL"); v != "" {
		c.Remote.Model = v
	}
	if v := os.Getenv("CALC_ASSISTANT_CREDENTIAL_BACKEND"); v != "" {
		c.Credential.Backend = v
	}
	if v := os.Getenv("CALC_ASSISTANT_REDIS_ADDR"); v != "" {
		c.Credential.RedisAddr = v
	}
	if v := os.Getenv("CALC_ASSISTANT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CALC_ASSISTANT_NATS_URL"); v != "" {
		c.Events.NATSURL = v
	}
	if v := os.Getenv("CALC_ASSISTANT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	// The gemini provider reads its key from GEMINI_API_KEY unless told otherwise.
	if c.Remote.Provider == "gemini" && c.Credential.EnvVar == "OPENAI_API_KEY" {
		c.Credential.EnvVar = "GEMINI_API_KEY"
	}
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case "chromedp", "playwright":
	default:
		return fmt.Errorf("unknown browser driver %q", c.Browser.Driver)
	}
	switch c.Remote.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown remote provider %q", c.Remote.Provider)
	}
	switch c.Credential.Backend {
	case "file", "redis", "env", "memory":
	default:
		return fmt.Errorf("unknown credential backend %q", c.Credential.Backend)
	}
	if c.Credential.Backend == "redis" && c.Credential.RedisAddr == "" {
		return fmt.Errorf("credential backend redis requires redis_addr")
	}
	return nil
}

func (a AutomationConfig) SearchSettleDelay() time.Duration {
	return parseDuration(a.SearchSettle, 2*time.Second)
}

func (a AutomationConfig) ConfigureSettleDelay() time.Duration {
	return parseDuration(a.ConfigureSettle, 2*time.Second)
}

func (a AutomationConfig) FieldSettleDelay() time.Duration {
	return parseDuration(a.FieldSettle, time.Second)
}

func (a AutomationConfig) FormWait() time.Duration {
	return parseDuration(a.FormTimeout, 5*time.Second)
}

func (b BrowserConfig) ActionWait() time.Duration {
	return parseDuration(b.ActionTimeout, 15*time.Second)
}

func (r RemoteConfig) RequestTimeout() time.Duration {
	return parseDuration(r.Timeout, 60*time.Second)
}

func (s ServerConfig) ShutdownWait() time.Duration {
	return parseDuration(s.ShutdownTimeout, 10*time.Second)
}

// parseDuration falls back to def for empty or malformed values. "0" and
// "0s" are honoured so tests can disable settle delays.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
