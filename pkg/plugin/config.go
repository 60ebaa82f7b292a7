package plugin

import (
	"errors"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// ManagerConfig describes which plugins the host loads and how they are isolated.
type ManagerConfig struct {
	PluginDir string                  `yaml:"pluginDir"`
	Defaults  IsolationPolicy         `yaml:"defaults"`
	Plugins   map[string]PluginConfig `yaml:"plugins"`
	// DisabledBuiltins lists built-in plugin ids that must not be loaded.
	DisabledBuiltins []string `yaml:"disabledBuiltins"`
}

// PluginConfig is the configuration block for a single plugin.
// Blocks without a path configure built-in plugins; blocks with a path
// describe shared objects loaded from disk when enabled.
type PluginConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Path     string           `yaml:"path"`
	Manifest string           `yaml:"manifest"`
	Config   map[string]any   `yaml:"config"`
	Policy   *IsolationPolicy `yaml:"policy"`
}

// IsolationPolicy governs which capabilities a plugin may require.
type IsolationPolicy struct {
	AllowedCapabilities []Capability `yaml:"allowedCapabilities"`
	DeniedCapabilities  []Capability `yaml:"deniedCapabilities"`
}

// Merge returns a new policy using values from other when not present.
func (p IsolationPolicy) Merge(other IsolationPolicy) IsolationPolicy {
	if len(p.AllowedCapabilities) == 0 {
		p.AllowedCapabilities = other.AllowedCapabilities
	}
	if len(p.DeniedCapabilities) == 0 {
		p.DeniedCapabilities = other.DeniedCapabilities
	}
	return p
}

// LoadManagerConfig reads a YAML file into a ManagerConfig.
func LoadManagerConfig(path string) (ManagerConfig, error) {
	var cfg ManagerConfig
	if path == "" {
		return cfg, errors.New("config path cannot be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read plugin config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal plugin config: %w", err)
	}
	if cfg.Plugins == nil {
		cfg.Plugins = map[string]PluginConfig{}
	}
	return cfg, nil
}

// Validate ensures the manager configuration is internally consistent.
func (c ManagerConfig) Validate() error {
	for id, plugin := range c.Plugins {
		if id == "" {
			return errors.New("plugin id cannot be empty")
		}
		if plugin.Enabled && plugin.Path == "" && plugin.Manifest != "" {
			return fmt.Errorf("plugin %s declares a manifest but no path", id)
		}
	}
	return nil
}

// ConfigFor returns a copy of the configuration block for id.
func (c ManagerConfig) ConfigFor(id string) map[string]any {
	block, ok := c.Plugins[id]
	if !ok || block.Config == nil {
		return map[string]any{}
	}
	return maps.Clone(block.Config)
}

// PolicyFor returns the effective isolation policy for id.
func (c ManagerConfig) PolicyFor(id string) IsolationPolicy {
	block, ok := c.Plugins[id]
	if !ok {
		return c.Defaults
	}
	return MergePolicies(c.Defaults, block.Policy)
}

// BuiltinEnabled reports whether a built-in plugin may be loaded.
func (c ManagerConfig) BuiltinEnabled(id string) bool {
	for _, disabled := range c.DisabledBuiltins {
		if disabled == id {
			return false
		}
	}
	return true
}
