package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// defaultConfigPath is where a configuration is saved when none was found on load
const defaultConfigPath = "./config/config.yaml"

// legacyKeys are the flat keys written by the first versions of the tool.
// They are honored on load when the nested key is absent and dropped on save.
var legacyKeys = []string{
	"tmdb_api_key",
	"tvdb_api_key",
	"fanart_api_key",
	"movies_source",
	"shows_source",
	"preferred_source",
}

// Store loads and saves the configuration file.
// Missing keys are always merged from Default(), and unknown keys found in the
// file are kept when saving.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// NewStore creates a store for the given file. An empty path searches for
// config.yaml in "." and "./config".
func NewStore(path string) *Store {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	return &Store{v: v, path: path}
}

// Load reads the configuration file, merging missing keys from defaults.
// A missing file is not an error: defaults are returned.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.Warn().Str("path", s.path).Msg("Config file not found, using defaults")
	}

	return s.decode()
}

// Save writes cfg to the configuration file. Keys the current version does not
// know about are preserved from the existing file.
func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.targetPath()

	current, err := toMap(cfg)
	if err != nil {
		return err
	}

	existing := map[string]any{}
	data, err := os.ReadFile(target)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("existing config %s is not valid YAML: %w", target, err)
		}
		if existing == nil {
			existing = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("failed to read existing config: %w", err)
	}

	for _, key := range legacyKeys {
		delete(existing, key)
	}

	out, err := yaml.Marshal(mergeMaps(existing, current))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := writeFileAtomic(target, out); err != nil {
		return err
	}

	if s.path == "" {
		s.path = target
		s.v.SetConfigFile(target)
	}
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload saved config: %w", err)
	}

	logger.Info().Str("path", target).Msg("Configuration saved")
	return nil
}

// Watch calls onChange with the reloaded configuration whenever the file changes on disk.
func (s *Store) Watch(onChange func(*Config)) {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("Configuration file changed")

		s.mu.Lock()
		cfg, err := s.decode()
		s.mu.Unlock()
		if err != nil {
			logger.Error().Err(err).Msg("Failed to reload configuration")
			return
		}
		onChange(cfg)
	})
	s.v.WatchConfig()
}

// Path returns the file the store reads from and writes to
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetPath()
}

func (s *Store) targetPath() string {
	if s.path != "" {
		return s.path
	}
	if used := s.v.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigPath
}

func (s *Store) decode() (*Config, error) {
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyLegacyKeys(s.v, &cfg)

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	cfg.ResolvePaths()

	return &cfg, nil
}

// applyLegacyKeys maps the flat keys of older settings files onto the nested layout
func applyLegacyKeys(v *viper.Viper, cfg *Config) {
	legacy := func(key string) (string, bool) {
		if !v.InConfig(key) {
			return "", false
		}
		value := strings.TrimSpace(v.GetString(key))
		return value, value != ""
	}

	if value, ok := legacy("tmdb_api_key"); ok && cfg.Providers.TMDB.APIKey == "" {
		cfg.Providers.TMDB.APIKey = value
	}
	if value, ok := legacy("tvdb_api_key"); ok && cfg.Providers.TVDB.APIKey == "" {
		cfg.Providers.TVDB.APIKey = value
	}
	if value, ok := legacy("fanart_api_key"); ok && cfg.Providers.Fanart.APIKey == "" {
		cfg.Providers.Fanart.APIKey = value
	}
	if value, ok := legacy("movies_source"); ok && cfg.Discovery.MoviesRoot == "" {
		cfg.Discovery.MoviesRoot = value
	}
	if value, ok := legacy("shows_source"); ok && cfg.Discovery.ShowsRoot == "" {
		cfg.Discovery.ShowsRoot = value
	}
	if value, ok := legacy("preferred_source"); ok {
		if !v.InConfig("preferred_provider.movie") {
			cfg.PreferredProvider.Movie = value
		}
		if !v.InConfig("preferred_provider.show") {
			cfg.PreferredProvider.Show = value
		}
	}
}

// setDefaults registers every leaf of Default() so missing keys are merged on load
func setDefaults(v *viper.Viper) {
	defaults, err := toMap(Default())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build default configuration")
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for key, value := range m {
			if nested, ok := value.(map[string]any); ok {
				walk(prefix+key+".", nested)
				continue
			}
			v.SetDefault(prefix+key, value)
		}
	}
	walk("", defaults)
}

// toMap converts the config to its YAML map form
func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	result := map[string]any{}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode config map: %w", err)
	}
	return result, nil
}

// mergeMaps overlays src onto dst recursively and returns dst
func mergeMaps(dst, src map[string]any) map[string]any {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = mergeMaps(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
