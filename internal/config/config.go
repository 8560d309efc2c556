// Package config loads the aknnum YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/atlas-foundry/akn-numbering-go-sdk/numbering"
	"github.com/atlas-foundry/akn-numbering-go-sdk/xmlnav"
)

// DefaultPath is the file looked up when no --config flag is given.
const DefaultPath = "aknnum.yaml"

// Config holds all aknnum configuration.
type Config struct {
	// Editing context used when none is requested explicitly.
	DefaultContext string `yaml:"default_context"`

	// Editing context name to numbering mode (manual, automatic).
	Contexts map[string]string `yaml:"contexts"`

	Placeholders PlaceholderConfig `yaml:"placeholders"`
	Navigation   NavigationConfig  `yaml:"navigation"`
	Logging      LoggingConfig     `yaml:"logging"`
}

// PlaceholderConfig holds the texts stamped on imported fragments.
type PlaceholderConfig struct {
	Article string `yaml:"article"`
	Recital string `yaml:"recital"`
}

// NavigationConfig selects the number element and how it is searched for.
type NavigationConfig struct {
	Tag  string `yaml:"tag"`
	Axis string `yaml:"axis"` // descendant, child, descendant-or-self
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultContext: "council",
		Contexts: map[string]string{
			"council":    numbering.ModeManual.String(),
			"commission": numbering.ModeAutomatic.String(),
		},
		Placeholders: PlaceholderConfig{
			Article: numbering.DefaultArticlePlaceholder,
			Recital: numbering.DefaultRecitalPlaceholder,
		},
		Navigation: NavigationConfig{
			Tag:  numbering.DefaultNumTag,
			Axis: xmlnav.AxisDescendant.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Contexts in the file replace the defaults rather than merging with them.
		cfg.Contexts = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if cfg.Contexts == nil {
			cfg.Contexts = DefaultConfig().Contexts
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if ctx := os.Getenv("AKNNUM_CONTEXT"); ctx != "" {
		c.DefaultContext = ctx
	}
	if level := os.Getenv("AKNNUM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Contexts) == 0 {
		return fmt.Errorf("no editing contexts configured")
	}
	seen := make(map[string]string, len(c.Contexts))
	for _, name := range c.ContextNames() {
		key := contextKey(name)
		if key == "" {
			return fmt.Errorf("editing context name is empty")
		}
		// The registry folds case, so "council" and "Council" would collide.
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("editing contexts %q and %q differ only by case", prev, name)
		}
		seen[key] = name
		if _, err := numbering.ParseMode(c.Contexts[name]); err != nil {
			return fmt.Errorf("context %s: %w", name, err)
		}
	}
	if _, ok := c.lookupContext(c.DefaultContext); !ok {
		return fmt.Errorf("default context %q is not configured (have %v)", c.DefaultContext, c.ContextNames())
	}
	if c.Placeholders.Article == "" || c.Placeholders.Recital == "" {
		return fmt.Errorf("placeholders must not be empty")
	}
	if c.Navigation.Tag == "" {
		return fmt.Errorf("navigation tag must not be empty")
	}
	if _, err := xmlnav.ParseAxis(c.Navigation.Axis); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}
	return nil
}

// ContextNames returns the configured editing contexts in sorted order.
func (c *Config) ContextNames() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) lookupContext(name string) (string, bool) {
	want := contextKey(name)
	for k, v := range c.Contexts {
		if contextKey(k) == want {
			return v, true
		}
	}
	return "", false
}

// contextKey normalizes a context name the way numbering.Registry does.
func contextKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NumberingOptions converts the shared settings into numbering options. The
// mode is left unset; Registry fills it per context.
func (c *Config) NumberingOptions(logger *zap.Logger) (numbering.Options, error) {
	axis, err := xmlnav.ParseAxis(c.Navigation.Axis)
	if err != nil {
		return numbering.Options{}, err
	}
	return numbering.Options{
		ArticlePlaceholder: c.Placeholders.Article,
		RecitalPlaceholder: c.Placeholders.Recital,
		NumTag:             c.Navigation.Tag,
		Axis:               axis,
		Logger:             logger,
	}, nil
}

// Registry builds one processor per configured editing context.
func (c *Config) Registry(post numbering.PostProcessor, logger *zap.Logger) (*numbering.Registry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	base, err := c.NumberingOptions(logger)
	if err != nil {
		return nil, err
	}
	modes := make(map[string]numbering.Mode, len(c.Contexts))
	for name, m := range c.Contexts {
		mode, err := numbering.ParseMode(m)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", name, err)
		}
		modes[name] = mode
	}
	return numbering.NewRegistryFromModes(modes, base, post)
}
