package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bounds on the search settings. Queries never return more than MaxLimit
// results, and terms shorter than MinTermLength never reach the index.
const (
	MaxLimit      = 8
	MinTermLength = 2
)

// ProjectConfigNames are the project config file names, in lookup order.
var ProjectConfigNames = []string{".docsearch.yaml", ".docsearch.yml"}

// Config represents the complete docsearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Content ContentConfig `yaml:"content" json:"content"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// ContentConfig describes where the pages live.
type ContentConfig struct {
	// Root is the content root, relative to the project root unless absolute.
	Root string `yaml:"root" json:"root"`
	// PageFile is the file name every indexable page carries.
	PageFile string `yaml:"page_file" json:"page_file"`
	// Exclude lists pages, relative to Root, that are never indexed.
	// The site entry page is excluded by default.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// IndexConfig configures the persisted artifact and the rebuild loop.
type IndexConfig struct {
	// Artifact is the path of the persisted index. A .json extension selects
	// the JSON codec, anything else SQLite.
	Artifact string `yaml:"artifact" json:"artifact"`
	// WatchDebounce coalesces page changes before a rebuild in watch mode.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// SearchConfig configures matching and ranking.
type SearchConfig struct {
	// Tolerance is the maximum edit distance per query term (0-2).
	Tolerance int `yaml:"tolerance" json:"tolerance"`
	// Limit caps the number of results.
	Limit int `yaml:"limit" json:"limit"`
	// MinTermLength is the shortest query that touches the index.
	MinTermLength int `yaml:"min_term_length" json:"min_term_length"`
	// Boost holds per-field score multipliers.
	Boost BoostConfig `yaml:"boost" json:"boost"`
	// CacheSize bounds the query result cache (0 disables it).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// BoostConfig holds per-field score multipliers.
type BoostConfig struct {
	Title   float64 `yaml:"title" json:"title"`
	Content float64 `yaml:"content" json:"content"`
	Code    float64 `yaml:"code" json:"code"`
}

// ServerConfig configures the query endpoint.
type ServerConfig struct {
	Addr      string  `yaml:"addr" json:"addr"`
	Transport string  `yaml:"transport" json:"transport"`
	LogLevel  string  `yaml:"log_level" json:"log_level"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Content: ContentConfig{
			Root:     filepath.Join("src", "routes"),
			PageFile: "+page.md",
			Exclude:  []string{"+page.md"},
		},
		Index: IndexConfig{
			Artifact:      filepath.Join("static", "searchindex.db"),
			WatchDebounce: "300ms",
		},
		Search: SearchConfig{
			Tolerance:     1,
			Limit:         MaxLimit,
			MinTermLength: MinTermLength,
			Boost: BoostConfig{
				Title:   6,
				Content: 3,
				Code:    1,
			},
			CacheSize: 256,
		},
		Server: ServerConfig{
			Addr:      ":5173",
			Transport: "http",
			LogLevel:  "info",
			RateLimit: 20,
			RateBurst: 40,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsearch", "config.yaml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml")
}

// loadUserConfig applies the user/global configuration file if it exists.
func (c *Config) loadUserConfig() error {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil
	}

	if err := c.loadYAML(configPath); err != nil {
		return fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return nil
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/docsearch/config.yaml)
//  3. Project config (.docsearch.yaml in dir)
//  4. Environment variables (DOCSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile merges the first project config file found in dir.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range ProjectConfigNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes a YAML file over c. Keys present in the file replace the
// current values, zero values and empty lists included; absent keys keep
// them.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies DOCSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSEARCH_CONTENT_ROOT"); v != "" {
		c.Content.Root = v
	}
	if v := os.Getenv("DOCSEARCH_ARTIFACT"); v != "" {
		c.Index.Artifact = v
	}
	// Tolerance 0 is meaningful (exact matching), so it is accepted here.
	if v := os.Getenv("DOCSEARCH_TOLERANCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.Tolerance = n
		}
	}
	if v := os.Getenv("DOCSEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Limit = n
		}
	}
	if v := os.Getenv("DOCSEARCH_BOOST_TITLE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			c.Search.Boost.Title = f
		}
	}
	if v := os.Getenv("DOCSEARCH_BOOST_CONTENT"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			c.Search.Boost.Content = f
		}
	}
	if v := os.Getenv("DOCSEARCH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DOCSEARCH_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("DOCSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Content.Root == "" {
		return fmt.Errorf("content.root must not be empty")
	}
	if c.Content.PageFile == "" || strings.ContainsAny(c.Content.PageFile, `/\`) {
		return fmt.Errorf("content.page_file must be a bare file name, got %q", c.Content.PageFile)
	}
	if c.Index.Artifact == "" {
		return fmt.Errorf("index.artifact must not be empty")
	}
	if _, err := c.WatchDebounce(); err != nil {
		return fmt.Errorf("index.watch_debounce is not a duration: %w", err)
	}

	// bleve rejects fuzziness above 2
	if c.Search.Tolerance < 0 || c.Search.Tolerance > 2 {
		return fmt.Errorf("search.tolerance must be between 0 and 2, got %d", c.Search.Tolerance)
	}
	if c.Search.Limit < 1 || c.Search.Limit > MaxLimit {
		return fmt.Errorf("search.limit must be between 1 and %d, got %d", MaxLimit, c.Search.Limit)
	}
	if c.Search.MinTermLength < MinTermLength {
		return fmt.Errorf("search.min_term_length must be at least %d, got %d", MinTermLength, c.Search.MinTermLength)
	}
	if c.Search.Boost.Title <= 0 || c.Search.Boost.Content <= 0 || c.Search.Boost.Code <= 0 {
		return fmt.Errorf("search.boost values must be positive, got %+v", c.Search.Boost)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}

	validTransports := map[string]bool{"http": true, "stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'http' or 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must be non-negative")
	}

	return nil
}

// WatchDebounce returns the parsed watch debounce window.
func (c *Config) WatchDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Index.WatchDebounce)
}

// ContentRoot resolves the content root against the project root.
func (c *Config) ContentRoot(projectRoot string) string {
	return resolve(projectRoot, c.Content.Root)
}

// ArtifactPath resolves the artifact path against the project root.
func (c *Config) ArtifactPath(projectRoot string) string {
	return resolve(projectRoot, c.Index.Artifact)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// FindProjectRoot finds the project root directory by walking up from
// startDir until a .git directory or a project config file is found.
// Falls back to startDir when neither exists.
func FindProjectRoot(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	dir := absStart
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		for _, name := range ProjectConfigNames {
			if fileExists(filepath.Join(dir, name)) {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return absStart, nil
		}
		dir = parent
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
