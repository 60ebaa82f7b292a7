package plugin

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest describes a plugin's identity, version and dependencies.
// It is immutable once constructed; accessors return copies.
type Manifest struct {
	id           string
	displayName  string
	version      Version
	requiredCore Version
	author       string
	description  string
	mods         map[string]bool
	capabilities []Capability
}

// ManifestOption customises a manifest during construction.
type ManifestOption func(*Manifest)

// WithAuthor sets the author metadata.
func WithAuthor(author string) ManifestOption {
	return func(m *Manifest) { m.author = author }
}

// WithDescription sets the description metadata.
func WithDescription(description string) ManifestOption {
	return func(m *Manifest) { m.description = description }
}

// WithRequiredMod declares a mod the plugin cannot load without.
func WithRequiredMod(modID string) ManifestOption {
	return func(m *Manifest) { m.mods[modID] = true }
}

// WithOptionalMod declares a mod the plugin can use when present.
func WithOptionalMod(modID string) ManifestOption {
	return func(m *Manifest) {
		if _, ok := m.mods[modID]; !ok {
			m.mods[modID] = false
		}
	}
}

// WithRequiredCapability declares a capability the plugin expects the host to provide.
func WithRequiredCapability(name Capability) ManifestOption {
	return func(m *Manifest) {
		if !slices.Contains(m.capabilities, name) {
			m.capabilities = append(m.capabilities, name)
		}
	}
}

// NewManifest builds a manifest. An empty display name defaults to the id.
func NewManifest(id, displayName string, version, requiredCore Version, opts ...ManifestOption) (Manifest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Manifest{}, errors.New("manifest id cannot be empty")
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = id
	}
	m := Manifest{
		id:           id,
		displayName:  displayName,
		version:      version,
		requiredCore: requiredCore,
		mods:         map[string]bool{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	for modID := range m.mods {
		if strings.TrimSpace(modID) == "" {
			return Manifest{}, fmt.Errorf("manifest %s: dependency id cannot be empty", id)
		}
	}
	return m, nil
}

// MustManifest is like NewManifest but panics on error.
func MustManifest(id, displayName string, version, requiredCore Version, opts ...ManifestOption) Manifest {
	m, err := NewManifest(id, displayName, version, requiredCore, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Manifest) ID() string                   { return m.id }
func (m Manifest) DisplayName() string          { return m.displayName }
func (m Manifest) Version() Version             { return m.version }
func (m Manifest) RequiredCoreVersion() Version { return m.requiredCore }
func (m Manifest) Author() string               { return m.author }
func (m Manifest) Description() string          { return m.description }

// IsZero reports whether the manifest was never constructed.
func (m Manifest) IsZero() bool { return m.id == "" }

// ModDependencies returns a copy of the mod id to required-flag mapping.
func (m Manifest) ModDependencies() map[string]bool {
	return maps.Clone(m.mods)
}

// RequiredCapabilities returns a copy of the required capability names.
func (m Manifest) RequiredCapabilities() []Capability {
	return slices.Clone(m.capabilities)
}

func (m Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.id, m.version)
}

// ManifestFile is the declarative on-disk form of a manifest (YAML or TOML).
type ManifestFile struct {
	ID           string          `yaml:"id" toml:"id"`
	Name         string          `yaml:"name" toml:"name"`
	Version      string          `yaml:"version" toml:"version"`
	RequiredCore string          `yaml:"requiredCore" toml:"required_core"`
	Author       string          `yaml:"author" toml:"author"`
	Description  string          `yaml:"description" toml:"description"`
	Dependencies []ModDependency `yaml:"dependencies" toml:"dependencies"`
	Capabilities []Capability    `yaml:"capabilities" toml:"capabilities"`
}

// ModDependency is a single dependency entry in a manifest file.
type ModDependency struct {
	ID       string `yaml:"id" toml:"id"`
	Optional bool   `yaml:"optional" toml:"optional"`
}

// LoadManifestFile reads a manifest from a .yaml, .yml or .toml file.
func LoadManifestFile(path string) (ManifestFile, error) {
	var mf ManifestFile
	if path == "" {
		return mf, errors.New("manifest path cannot be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return mf, fmt.Errorf("read manifest: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &mf)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &mf)
	default:
		return mf, fmt.Errorf("unsupported manifest format %q", filepath.Ext(path))
	}
	if err != nil {
		return mf, fmt.Errorf("unmarshal manifest %s: %w", path, err)
	}
	return mf, nil
}

// Build validates the file and converts it into a Manifest.
func (f ManifestFile) Build() (Manifest, error) {
	version, err := ParseVersion(f.Version)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s version: %w", f.ID, err)
	}
	core, err := ParseVersion(f.RequiredCore)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s required core: %w", f.ID, err)
	}
	opts := []ManifestOption{WithAuthor(f.Author), WithDescription(f.Description)}
	for _, dep := range f.Dependencies {
		if dep.Optional {
			opts = append(opts, WithOptionalMod(dep.ID))
		} else {
			opts = append(opts, WithRequiredMod(dep.ID))
		}
	}
	for _, c := range f.Capabilities {
		opts = append(opts, WithRequiredCapability(c))
	}
	return NewManifest(f.ID, f.Name, version, core, opts...)
}
