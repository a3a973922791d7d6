package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the model provider configuration
type LLMConfig struct {
	Provider string              `mapstructure:"provider"` // openai or any compatible endpoint
	APIKey   string              `mapstructure:"api_key"`
	BaseURL  string              `mapstructure:"base_url"`
	Models   map[string]LLMModel `mapstructure:"models"`
	Routing  LLMRoutingConfig    `mapstructure:"routing"`
	Timeout  time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name        string  `mapstructure:"name"`
	APIName     string  `mapstructure:"api_name"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LLMRoutingConfig defines which model serves each surface
type LLMRoutingConfig struct {
	Search   string `mapstructure:"search"`   // research run-loop
	Planner  string `mapstructure:"planner"`  // planner run-loop
	Layout   string `mapstructure:"layout"`   // HTML layout pass
	Guidance string `mapstructure:"guidance"` // one-shot guidance classification
	Fallback string `mapstructure:"fallback"`
}

// AgentConfig controls the run-loop behaviour
type AgentConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations"`
	MaxConcurrentTools int           `mapstructure:"max_concurrent_tools"`
	ToolTimeout        time.Duration `mapstructure:"tool_timeout"`
	TruncateResults    bool          `mapstructure:"truncate_results"`
	TruncateLimit      int           `mapstructure:"truncate_limit"`
	ClearImagesDir     bool          `mapstructure:"clear_images_dir"`
	LayoutEnabled      bool          `mapstructure:"layout_enabled"`
}

// ToolsConfig contains per-tool API settings
type ToolsConfig struct {
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	WebFetch  WebFetchConfig  `mapstructure:"web_fetch"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Routing   RoutingConfig   `mapstructure:"routing"`
}

// WebSearchConfig contains web search settings
type WebSearchConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// WebFetchConfig contains page fetching/extraction settings
type WebFetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// WeatherConfig contains OpenWeatherMap settings
type WeatherConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RoutingConfig contains OpenRouteService settings
type RoutingConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDir           string `mapstructure:"data_dir"`
	ImagesDir         string `mapstructure:"images_dir"`
	ScreenshotsDir    string `mapstructure:"screenshots_dir"`
	ConversationsFile string `mapstructure:"conversations_file"`
}

// LoadConfig loads config from file and environment. A missing config file
// is fine when no explicit path was given; defaults plus env cover it.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")

	v.SetDefault("server.address", ":10001")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.routing.search", "gpt-4o")
	v.SetDefault("llm.routing.planner", "gpt-4o")
	v.SetDefault("llm.routing.layout", "gpt-4o-mini")
	v.SetDefault("llm.routing.guidance", "gpt-4o-mini")
	v.SetDefault("llm.routing.fallback", "gpt-4o-mini")

	v.SetDefault("agent.max_iterations", 8)
	v.SetDefault("agent.max_concurrent_tools", 4)
	v.SetDefault("agent.tool_timeout", "20s")
	v.SetDefault("agent.truncate_results", false)
	v.SetDefault("agent.truncate_limit", 1500)
	v.SetDefault("agent.clear_images_dir", true)
	v.SetDefault("agent.layout_enabled", false)

	v.SetDefault("tools.web_search.provider", "brave")
	v.SetDefault("tools.web_search.max_results", 5)
	v.SetDefault("tools.web_search.timeout", "10s")
	v.SetDefault("tools.web_fetch.timeout", "15s")
	v.SetDefault("tools.web_fetch.max_chars", 4000)
	v.SetDefault("tools.weather.timeout", "10s")
	v.SetDefault("tools.routing.timeout", "15s")

	v.SetDefault("telemetry.enabled", true)

	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.images_dir", "./data/images")
	v.SetDefault("storage.screenshots_dir", "./data/screenshots")
	v.SetDefault("storage.conversations_file", "./data/conversations.json")
}

// overrideFromEnv picks up the conventional secret variables that
// predate the SCOUT_ prefix
func overrideFromEnv(cfg *Config) {
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.LLM.APIKey = k
	}
	if k := os.Getenv("BRAVE_SEARCH_KEY"); k != "" {
		cfg.Tools.WebSearch.APIKey = k
	}
	if k := os.Getenv("OPENWEATHERMAP_API_KEY"); k != "" {
		cfg.Tools.Weather.APIKey = k
	}
	if k := os.Getenv("ORS_API_KEY"); k != "" {
		cfg.Tools.Routing.APIKey = k
	}
}

func validateConfig(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (or set OPENAI_API_KEY)")
	}
	if cfg.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be > 0")
	}
	if cfg.Agent.MaxConcurrentTools <= 0 {
		return fmt.Errorf("agent.max_concurrent_tools must be > 0")
	}
	if cfg.Agent.TruncateResults && cfg.Agent.TruncateLimit <= 0 {
		return fmt.Errorf("agent.truncate_limit must be > 0 when truncation is enabled")
	}
	if cfg.Storage.ConversationsFile == "" {
		return fmt.Errorf("storage.conversations_file is required")
	}
	return nil
}
