package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds references to LLM clients. It supports config-driven
// instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	clients     map[string]LLMClient
	defaultName string
	logger      *slog.Logger
}

// ClientConfig describes one configured client.
type ClientConfig struct {
	Type    string // "openrouter", "openai", "mock"
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Enabled bool
}

// RegistryConfig is the full provider configuration.
type RegistryConfig struct {
	Default string
	Clients map[string]ClientConfig
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]LLMClient),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers an LLM client by name. Used directly by tests; normal
// operation goes through Reload.
func (r *Registry) Register(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	if r.defaultName == "" {
		r.defaultName = name
	}
	r.logger.Info("registered LLM client", "name", name)
}

// Reload replaces the registered clients from config. Unknown types are
// skipped with a warning so one bad entry doesn't take down the rest.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make(map[string]LLMClient, len(cfg.Clients))
	for name, cc := range cfg.Clients {
		if !cc.Enabled {
			continue
		}
		switch cc.Type {
		case OpenRouterName:
			clients[name] = NewOpenRouterClient(OpenRouterConfig{
				APIKey:       cc.APIKey,
				BaseURL:      cc.BaseURL,
				DefaultModel: cc.Model,
				Timeout:      cc.Timeout,
			})
		case OpenAIName:
			clients[name] = NewOpenAIClient(OpenAIConfig{
				APIKey:       cc.APIKey,
				BaseURL:      cc.BaseURL,
				DefaultModel: cc.Model,
				Timeout:      cc.Timeout,
			})
		case MockClientName:
			clients[name] = NewMockClient()
		default:
			r.logger.Warn("skipping unknown LLM client type", "name", name, "type", cc.Type)
		}
	}

	r.clients = clients
	r.defaultName = cfg.Default
	r.logger.Info("provider registry reloaded", "clients", len(clients), "default", cfg.Default)
}

// Get returns an LLM client by name.
func (r *Registry) Get(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// Default returns the configured default client.
func (r *Registry) Default() (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return nil, fmt.Errorf("no default LLM client configured")
	}
	client, ok := r.clients[r.defaultName]
	if !ok {
		return nil, fmt.Errorf("default LLM client %q not registered", r.defaultName)
	}
	return client, nil
}

// Names returns the registered client names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
