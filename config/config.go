package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server and model settings.
type Config struct {
	ServerAddr string    `yaml:"server_addr,omitempty"`
	FactsPath  string    `yaml:"facts_path,omitempty"`
	LLM        LLMConfig `yaml:"llm"`

	// SanitizeHTML runs module markup through the allow-list before it is returned.
	SanitizeHTML bool `yaml:"sanitize_html"`
	// RejectBlankPrompt fails blank prompts instead of forwarding them.
	RejectBlankPrompt bool `yaml:"reject_blank_prompt"`
	// MemoryMaxEntries caps each conversation transcript; 0 keeps everything.
	MemoryMaxEntries int `yaml:"memory_max_entries"`
	// MaxSessions caps live sessions, evicting the oldest; 0 keeps everything.
	MaxSessions int `yaml:"max_sessions"`
	// RequestTimeout bounds one generation; 0 leaves it to the model client.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// LLMConfig 模型配置。
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

const (
	DefaultAddr  = ":5173"
	DefaultModel = "gpt-4.1"
)

// Default mirrors the prototype: OpenAI gpt-4.1 on port 5173.
func Default() Config {
	return Config{
		ServerAddr:       DefaultAddr,
		SanitizeHTML:     true,
		MemoryMaxEntries: 20,
		MaxSessions:      1000,
		LLM: LLMConfig{
			Provider: "openai",
			Model:    DefaultModel,
		},
	}
}

// Load reads YAML config from disk on top of Default and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.ServerAddr = ":" + port
	}
	if model := os.Getenv("DASHBOARD_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "openai", "deepseek":
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "gemini":
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
}

// Validate reports settings that make the server unusable.
func (c Config) Validate() error {
	if c.LLM.Provider == "" {
		return errors.New("config must include llm.provider")
	}
	if c.MemoryMaxEntries < 0 {
		return errors.New("memory_max_entries must be >= 0")
	}
	if c.MaxSessions < 0 {
		return errors.New("max_sessions must be >= 0")
	}
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must be >= 0")
	}
	return nil
}
