// Package config provides configuration loading and management for SlideForge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slideforge/slideforge/schema"
)

// Config represents the complete SlideForge configuration
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Images  ImagesConfig  `yaml:"images"`
	Diagram DiagramConfig `yaml:"diagram"`
	Profile ProfileConfig `yaml:"profile"`
	Output  OutputConfig  `yaml:"output"`
	Relay   RelayConfig   `yaml:"relay"`
}

// LLMConfig configures the structuring model
type LLMConfig struct {
	// Model is the model used for plan generation and refinement
	Model string `yaml:"model"`
	// BaseURL is the provider API endpoint
	BaseURL string `yaml:"base_url"`
	// RelayURL routes requests through a relay instead of calling the
	// provider directly (empty = direct, requires APIKey)
	RelayURL string `yaml:"relay_url"`
	// APIKey authenticates direct requests; prefer the ANTHROPIC_API_KEY
	// environment variable over putting the key in a file
	APIKey string `yaml:"api_key"`
	// Temperature controls randomness (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
	// MaxAttempts bounds retries on transient failures
	MaxAttempts int `yaml:"max_attempts"`
	// Timeout is the maximum time to wait for one model response
	Timeout time.Duration `yaml:"timeout"`
	// Strict rejects plans that needed structural repair
	Strict bool `yaml:"strict"`
}

// ImagesConfig configures slide image generation
type ImagesConfig struct {
	// Enabled turns image augmentation on
	Enabled bool `yaml:"enabled"`
	// Model is the image generation model
	Model string `yaml:"model"`
	// APIKey authenticates direct requests (GEMINI_API_KEY env overrides)
	APIKey string `yaml:"api_key"`
	// RequestsPerSecond rate-limits generation calls
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// DiagramConfig configures Mermaid diagram rasterization
type DiagramConfig struct {
	// Enabled turns diagram rendering on; disabled decks use fallback text
	Enabled bool `yaml:"enabled"`
	// KrokiURL is the render service endpoint
	KrokiURL string `yaml:"kroki_url"`
}

// ProfileConfig selects the deck theme
type ProfileConfig struct {
	// Preset names a built-in theme (academic-blue, forest-green,
	// warm-earth, modern-minimal, ocean-breeze)
	Preset string `yaml:"preset"`
	// Path points to a custom profile YAML file and overrides Preset
	Path string `yaml:"path"`
}

// OutputConfig configures where artifacts land
type OutputConfig struct {
	// Dir receives exported PPTX files and session snapshots
	Dir string `yaml:"dir"`
}

// RelayConfig configures the relay server command
type RelayConfig struct {
	// Listen is the bind address for the relay server
	Listen string `yaml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "claude-sonnet-4-20250514",
			BaseURL:     "https://api.anthropic.com",
			Temperature: 0.3,
			MaxAttempts: 3,
			Timeout:     3 * time.Minute,
		},
		Images: ImagesConfig{
			Enabled:           true,
			Model:             "imagen-4.0-generate-001",
			RequestsPerSecond: 0.5,
		},
		Diagram: DiagramConfig{
			Enabled:  true,
			KrokiURL: "https://kroki.io",
		},
		Profile: ProfileConfig{
			Preset: "academic-blue",
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Relay: RelayConfig{
			Listen: ":8787",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1")
	}
	if c.Profile.Preset != "" && c.Profile.Path == "" {
		if _, ok := schema.PresetByName(c.Profile.Preset); !ok {
			return fmt.Errorf("profile.preset %q is not a known preset", c.Profile.Preset)
		}
	}
	return nil
}

// ResolveProfile returns the lecturer profile the config selects.
func (c *Config) ResolveProfile() (*schema.LecturerProfile, error) {
	if c.Profile.Path != "" {
		data, err := os.ReadFile(c.Profile.Path)
		if err != nil {
			return nil, fmt.Errorf("read profile file: %w", err)
		}
		profile := schema.DefaultProfile()
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse profile file: %w", err)
		}
		return &profile, nil
	}
	if c.Profile.Preset != "" {
		if p, ok := schema.PresetByName(c.Profile.Preset); ok {
			return &p, nil
		}
		return nil, fmt.Errorf("unknown profile preset %q", c.Profile.Preset)
	}
	p := schema.DefaultProfile()
	return &p, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// LLM
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.BaseURL != "" {
		c.LLM.BaseURL = other.LLM.BaseURL
	}
	if other.LLM.RelayURL != "" {
		c.LLM.RelayURL = other.LLM.RelayURL
	}
	if other.LLM.APIKey != "" {
		c.LLM.APIKey = other.LLM.APIKey
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.MaxAttempts != 0 {
		c.LLM.MaxAttempts = other.LLM.MaxAttempts
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}
	if other.LLM.Strict {
		c.LLM.Strict = true
	}

	// Images
	if other.Images.Model != "" {
		c.Images.Model = other.Images.Model
	}
	if other.Images.APIKey != "" {
		c.Images.APIKey = other.Images.APIKey
	}
	if other.Images.RequestsPerSecond != 0 {
		c.Images.RequestsPerSecond = other.Images.RequestsPerSecond
	}

	// Diagram
	if other.Diagram.KrokiURL != "" {
		c.Diagram.KrokiURL = other.Diagram.KrokiURL
	}

	// Profile
	if other.Profile.Preset != "" {
		c.Profile.Preset = other.Profile.Preset
	}
	if other.Profile.Path != "" {
		c.Profile.Path = other.Profile.Path
	}

	// Output
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}

	// Relay
	if other.Relay.Listen != "" {
		c.Relay.Listen = other.Relay.Listen
	}
}
