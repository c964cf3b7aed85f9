// Package config loads, validates and saves the docsmcp configuration:
// global embedding, chunking and server settings plus the registry of
// knowledge bases.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete docsmcp configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	DataDir    string           `yaml:"data_dir" json:"data_dir"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`

	// Exclude holds gitignore-style patterns skipped in every base.
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// Bases is the registry of knowledge bases keyed by name.
	Bases map[string]*Base `yaml:"bases" json:"bases"`

	path string
}

// EmbeddingsConfig holds provider defaults for new bases and tuning for
// every embedding call.
type EmbeddingsConfig struct {
	Provider      string `yaml:"provider" json:"provider"`
	Model         string `yaml:"model,omitempty" json:"model,omitempty"`
	OllamaHost    string `yaml:"ollama_host,omitempty" json:"ollama_host,omitempty"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty" json:"openai_base_url,omitempty"`
	APIKey        string `yaml:"api_key,omitempty" json:"-"`

	BatchSize   int    `yaml:"batch_size" json:"batch_size"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	Timeout     string `yaml:"timeout" json:"timeout"` // Per request, e.g. "60s"
	MaxRetries  int    `yaml:"max_retries" json:"max_retries"`
	CacheSize   int    `yaml:"cache_size" json:"cache_size"` // Query embedding LRU entries, 0 disables
}

// ChunkingConfig mirrors chunk.Options.
type ChunkingConfig struct {
	MaxChunkSize    int  `yaml:"max_chunk_size" json:"max_chunk_size"`
	ChunkOverlap    int  `yaml:"chunk_overlap" json:"chunk_overlap"`
	RespectHeadings bool `yaml:"respect_headings" json:"respect_headings"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// Base is one registered knowledge base.
type Base struct {
	Name               string    `yaml:"name" json:"name"`
	DocsPath           string    `yaml:"docs_path" json:"docs_path"`
	Provider           string    `yaml:"provider" json:"provider"`
	Model              string    `yaml:"model" json:"model"`
	Endpoint           string    `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	APIKey             string    `yaml:"api_key,omitempty" json:"-"`
	EmbeddingDimension int       `yaml:"embedding_dimension" json:"embedding_dimension"`
	Description        string    `yaml:"description,omitempty" json:"description,omitempty"`
	Exclude            []string  `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	CreatedAt          time.Time `yaml:"created_at" json:"created_at"`
	LastUpdated        time.Time `yaml:"last_updated" json:"last_updated"`
}

// baseNamePattern limits base names to safe file names.
var baseNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		DataDir: DefaultDataDir(),
		Embeddings: EmbeddingsConfig{
			Provider:    string(embed.ProviderOllama),
			BatchSize:   embed.DefaultBatchSize,
			Concurrency: embed.DefaultConcurrency,
			Timeout:     embed.DefaultTimeout.String(),
			MaxRetries:  embed.DefaultMaxRetries,
			CacheSize:   1000,
		},
		Chunking: ChunkingConfig{
			MaxChunkSize:    chunk.DefaultMaxChunkSize,
			ChunkOverlap:    chunk.DefaultChunkOverlap,
			RespectHeadings: true,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Bases: map[string]*Base{},
	}
}

// DefaultDataDir returns the directory holding base databases and logs:
// $DOCSMCP_HOME, else ~/.docsmcp.
func DefaultDataDir() string {
	if v := os.Getenv("DOCSMCP_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsmcp")
	}
	return filepath.Join(home, ".docsmcp")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docsmcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docsmcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsmcp", "config.yaml")
}

// Loader reads configuration layers.
type Loader struct {
	// Path is the YAML file. Empty means GetUserConfigPath().
	Path string

	// EnvFile is a dotenv file consulted after the process environment.
	// Empty means ".env" in the working directory; a missing file is fine.
	EnvFile string
}

// Load loads configuration from path (empty for the default location).
func Load(path string) (*Config, error) {
	return Loader{Path: path}.Load()
}

// Load applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. The YAML file (missing is fine)
//  3. The dotenv file
//  4. Environment variables (DOCSMCP_*, OPENAI_API_KEY)
//
// and validates the result.
func (l Loader) Load() (*Config, error) {
	path := l.Path
	if path == "" {
		path = GetUserConfigPath()
	}

	cfg := NewConfig()
	cfg.path = path

	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	dotenv, err := readEnvFile(l.EnvFile)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path on top of the current values, so keys absent
// from the file keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return dmerrors.New(dmerrors.ErrCodeConfigPermission, "cannot read config file "+path, err)
		}
		return dmerrors.ConfigError("failed to read config file "+path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return dmerrors.ConfigError("failed to parse config file "+path, err).
			WithSuggestion("Fix the YAML syntax or restore one of the .bak files next to it")
	}
	if c.Bases == nil {
		c.Bases = map[string]*Base{}
	}
	for name, b := range c.Bases {
		if b == nil {
			delete(c.Bases, name)
			continue
		}
		if b.Name == "" {
			b.Name = name
		}
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		path = ".env"
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, dmerrors.ConfigError("failed to read env file "+path, err)
	}
	return vars, nil
}

// applyEnvOverrides applies DOCSMCP_* environment variable overrides.
func (c *Config) applyEnvOverrides(getenv func(string) string) {
	if v := getenv("DOCSMCP_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("DOCSMCP_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := getenv("DOCSMCP_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := getenv("DOCSMCP_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	// OLLAMA_HOST is honoured for parity with the ollama CLI
	if v := getenv("OLLAMA_HOST"); v != "" && getenv("DOCSMCP_OLLAMA_HOST") == "" {
		c.Embeddings.OllamaHost = v
	}
	if v := getenv("DOCSMCP_OPENAI_BASE_URL"); v != "" {
		c.Embeddings.OpenAIBaseURL = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := getenv("DOCSMCP_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := getenv("DOCSMCP_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.BatchSize = n
		}
	}
	if v := getenv("DOCSMCP_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Embeddings.CacheSize = n
		}
	}
	if v := getenv("DOCSMCP_TIMEOUT"); v != "" {
		c.Embeddings.Timeout = v
	}
	if v := getenv("DOCSMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := getenv("DOCSMCP_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return dmerrors.ConfigError("data_dir must not be empty", nil)
	}

	if c.Embeddings.Provider != "" {
		if _, err := embed.ParseProvider(c.Embeddings.Provider); err != nil {
			return err
		}
	}
	if c.Embeddings.BatchSize < 0 || c.Embeddings.BatchSize > embed.MaxBatchSize {
		return dmerrors.ConfigError(fmt.Sprintf("embeddings.batch_size must be between 1 and %d, got %d",
			embed.MaxBatchSize, c.Embeddings.BatchSize), nil)
	}
	if c.Embeddings.Concurrency < 0 {
		return dmerrors.ConfigError(fmt.Sprintf("embeddings.concurrency must be non-negative, got %d", c.Embeddings.Concurrency), nil)
	}
	if c.Embeddings.CacheSize < 0 {
		return dmerrors.ConfigError(fmt.Sprintf("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize), nil)
	}
	if _, err := parseDuration("embeddings.timeout", c.Embeddings.Timeout); err != nil {
		return err
	}

	if c.Chunking.MaxChunkSize <= 0 {
		return dmerrors.ConfigError(fmt.Sprintf("chunking.max_chunk_size must be positive, got %d", c.Chunking.MaxChunkSize), nil)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.MaxChunkSize {
		return dmerrors.ConfigError(fmt.Sprintf("chunking.chunk_overlap must be between 0 and max_chunk_size-1, got %d",
			c.Chunking.ChunkOverlap), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return dmerrors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	if _, err := parseDuration("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}

	for name, b := range c.Bases {
		if err := b.Validate(); err != nil {
			return err
		}
		if b.Name != name {
			return dmerrors.ConfigError(fmt.Sprintf("base %q is registered under key %q", b.Name, name), nil)
		}
	}
	return nil
}

// Validate checks a base record.
func (b *Base) Validate() error {
	if err := ValidateBaseName(b.Name); err != nil {
		return err
	}
	if b.DocsPath == "" {
		return dmerrors.ConfigError(fmt.Sprintf("base %q has no docs_path", b.Name), nil)
	}
	if _, err := embed.ParseProvider(b.Provider); err != nil {
		return err
	}
	if b.EmbeddingDimension < 0 {
		return dmerrors.ConfigError(fmt.Sprintf("base %q has negative embedding_dimension", b.Name), nil)
	}
	return nil
}

// ValidateBaseName checks that name can be used as a base and file name.
func ValidateBaseName(name string) error {
	if !baseNamePattern.MatchString(name) {
		return dmerrors.New(dmerrors.ErrCodeInvalidInput, fmt.Sprintf("invalid base name %q", name), nil).
			WithSuggestion("Use letters, digits, '.', '_' or '-', starting with a letter or digit")
	}
	return nil
}

func parseDuration(field, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, dmerrors.ConfigError(fmt.Sprintf("%s must be a duration like 500ms or 30s, got %q", field, v), err)
	}
	return d, nil
}

// Path returns the file the configuration was loaded from and saves to.
func (c *Config) Path() string {
	if c.path == "" {
		return GetUserConfigPath()
	}
	return c.path
}

// SetPath changes where Save writes.
func (c *Config) SetPath(path string) {
	c.path = path
}

// Save writes the configuration atomically: the previous file is backed
// up, the new content goes to a temporary file in the same directory and
// is renamed over the original.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}

	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to create config directory", err)
	}
	if _, err := BackupConfig(path); err != nil {
		return err
	}

	c.Version = CurrentVersion
	data, err := yaml.Marshal(c)
	if err != nil {
		return dmerrors.InternalError("failed to marshal config", err)
	}
	return writeFileAtomic(path, data, 0o600)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to write config", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to write config", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to sync config", err)
	}
	if err := tmp.Close(); err != nil {
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to write config", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to set config permissions", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to replace config", err)
	}
	return nil
}

// BaseNames returns the registered base names, sorted.
func (c *Config) BaseNames() []string {
	names := make([]string, 0, len(c.Bases))
	for name := range c.Bases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetBase returns the named base or a NotFound error.
func (c *Config) GetBase(name string) (*Base, error) {
	b, ok := c.Bases[name]
	if !ok {
		return nil, dmerrors.NotFound("base", name).
			WithSuggestion("Run 'docsmcp list' to see registered bases or 'docsmcp init' to create one")
	}
	return b, nil
}

// AddBase registers b. An existing base of the same name is an error
// unless replace is set.
func (c *Config) AddBase(b *Base, replace bool) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, exists := c.Bases[b.Name]; exists && !replace {
		return dmerrors.New(dmerrors.ErrCodeBaseExists, fmt.Sprintf("base %q already exists", b.Name), nil).
			WithSuggestion("Use 'docsmcp update " + b.Name + "' to refresh it or 'docsmcp init --force' to rebuild it")
	}
	if c.Bases == nil {
		c.Bases = map[string]*Base{}
	}
	c.Bases[b.Name] = b
	return nil
}

// RemoveBase deletes the named base from the registry.
func (c *Config) RemoveBase(name string) error {
	if _, err := c.GetBase(name); err != nil {
		return err
	}
	delete(c.Bases, name)
	return nil
}

// BasesDir is where base databases live.
func (c *Config) BasesDir() string {
	return filepath.Join(c.DataDir, "bases")
}

// DBPath returns the database file of the named base.
func (c *Config) DBPath(name string) string {
	return filepath.Join(c.BasesDir(), name+".db")
}

// LogDir is where log files are written.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ChunkOptions converts the chunking settings.
func (c *Config) ChunkOptions() chunk.Options {
	return chunk.Options{
		MaxChunkSize:    c.Chunking.MaxChunkSize,
		ChunkOverlap:    c.Chunking.ChunkOverlap,
		RespectHeadings: c.Chunking.RespectHeadings,
	}
}

// WatchDebounce returns the parsed debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EmbedConfig builds the provider configuration for a base. Settings
// recorded on the base win over the global defaults; the global API key
// is used when the base has none.
func (c *Config) EmbedConfig(b *Base) embed.Config {
	timeout, _ := time.ParseDuration(c.Embeddings.Timeout)
	cfg := embed.Config{
		Provider:    embed.ProviderType(b.Provider),
		Model:       b.Model,
		Endpoint:    b.Endpoint,
		APIKey:      b.APIKey,
		Dimensions:  b.EmbeddingDimension,
		BatchSize:   c.Embeddings.BatchSize,
		Concurrency: c.Embeddings.Concurrency,
		Timeout:     timeout,
		MaxRetries:  c.Embeddings.MaxRetries,
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = c.defaultEndpoint(cfg.Provider)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = c.Embeddings.APIKey
	}
	return cfg
}

// NewBase returns a base record filled from the global defaults, ready for
// the CLI to override with flags.
func (c *Config) NewBase(name, docsPath string) *Base {
	provider := c.Embeddings.Provider
	if provider == "" {
		provider = string(embed.ProviderOllama)
	}
	model := c.Embeddings.Model
	if model == "" {
		model = embed.DefaultModel(embed.ProviderType(provider))
	}
	return &Base{
		Name:     name,
		DocsPath: docsPath,
		Provider: provider,
		Model:    model,
	}
}

func (c *Config) defaultEndpoint(p embed.ProviderType) string {
	switch p {
	case embed.ProviderOllama:
		return c.Embeddings.OllamaHost
	case embed.ProviderOpenAI, embed.ProviderCompatible:
		return c.Embeddings.OpenAIBaseURL
	default:
		return ""
	}
}
