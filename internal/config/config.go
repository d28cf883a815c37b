// Package config persists user preferences between runs: the last
// namespace selection, recent kubeconfig paths, and recent filter
// expressions, so repeated invocations don't need every flag re-typed.
// Grounded on khelper/pkg/config/config.go's YAML-at-home-dir layout,
// generalized to KuLo's recent-filters domain.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MaxRecentItems bounds every recent-* list; the oldest entry is dropped
// once a new one would exceed it.
const MaxRecentItems = 5

// Config is the persisted shape of ~/.kulo/config.yml.
type Config struct {
	LastNamespace           string   `yaml:"last_namespace,omitempty"`
	KubeConfig              string   `yaml:"kubeconfig,omitempty"`
	RecentKubeConfigs       []string `yaml:"recent_kubeconfigs,omitempty"`
	RecentNamespacePatterns []string `yaml:"recent_namespace_patterns,omitempty"`
	RecentIncludeFilters    []string `yaml:"recent_include_filters,omitempty"`
	RecentExcludeFilters    []string `yaml:"recent_exclude_filters,omitempty"`
	RecentLabelSelectors    []string `yaml:"recent_label_selectors,omitempty"`
}

// GetConfigPath returns ~/.kulo/config.yml.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kulo", "config.yml"), nil
}

// Load reads the persisted config, returning a zero-value Config (not an
// error) if no file exists yet.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save persists c to ~/.kulo/config.yml, creating the directory if needed.
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// SetNamespace records ns as the last-used namespace and saves.
func (c *Config) SetNamespace(ns string) error {
	c.LastNamespace = ns
	return c.Save()
}

// addToRecent moves item to the front of list, de-duplicating and
// trimming to MaxRecentItems.
func addToRecent(list []string, item string) []string {
	newList := make([]string, 0, MaxRecentItems)
	for _, existing := range list {
		if existing != item {
			newList = append(newList, existing)
		}
	}
	newList = append([]string{item}, newList...)
	if len(newList) > MaxRecentItems {
		newList = newList[:MaxRecentItems]
	}
	return newList
}

// SetKubeConfig records path as both the active and most-recent kubeconfig.
func (c *Config) SetKubeConfig(path string) error {
	c.KubeConfig = path
	c.RecentKubeConfigs = addToRecent(c.RecentKubeConfigs, path)
	return c.Save()
}

// AddRecentNamespacePattern records a namespace argument (exact name or
// regex pattern) used on a run.
func (c *Config) AddRecentNamespacePattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	c.RecentNamespacePatterns = addToRecent(c.RecentNamespacePatterns, pattern)
	return c.Save()
}

// AddRecentIncludeFilter records an --include value.
func (c *Config) AddRecentIncludeFilter(pattern string) error {
	if pattern == "" {
		return nil
	}
	c.RecentIncludeFilters = addToRecent(c.RecentIncludeFilters, pattern)
	return c.Save()
}

// AddRecentExcludeFilter records an --exclude value.
func (c *Config) AddRecentExcludeFilter(pattern string) error {
	if pattern == "" {
		return nil
	}
	c.RecentExcludeFilters = addToRecent(c.RecentExcludeFilters, pattern)
	return c.Save()
}

// AddRecentLabelSelector records a --label-selector value.
func (c *Config) AddRecentLabelSelector(selector string) error {
	if selector == "" {
		return nil
	}
	c.RecentLabelSelectors = addToRecent(c.RecentLabelSelectors, selector)
	return c.Save()
}
