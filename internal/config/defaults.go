package config

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig             `mapstructure:"logging" yaml:"logging"`
	Defaults  DefaultsConfig            `mapstructure:"defaults" yaml:"defaults"`
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultsConfig selects the provider and model used when a chat request
// does not name one.
type DefaultsConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// ProviderConfig configures one language-model backend.
type ProviderConfig struct {
	Type           string `mapstructure:"type" yaml:"type"` // openrouter, openai, mock
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the out-of-the-box configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8585,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Defaults: DefaultsConfig{
			Provider: "openrouter",
			Model:    "anthropic/claude-sonnet-4",
		},
		Providers: map[string]ProviderConfig{
			"openrouter": {
				Type:           "openrouter",
				Model:          "anthropic/claude-sonnet-4",
				APIKey:         "${OPENROUTER_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o",
				APIKey:         "${OPENAI_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
		},
	}
}
