package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "BackdropFetcher/2.0 (+https://github.com/Belphemur/BackdropFetcher)"

// BackdropLimitAll keeps every language-free backdrop
const BackdropLimitAll = "All"

// Discovery modes
const (
	DiscoveryModeLocal  = "local"
	DiscoveryModeRemote = "remote"
)

// Output layouts
const (
	LayoutByType = "by_type"
	LayoutFlat   = "flat"
)

// Schedule modes
const (
	ScheduleModeManual = "manual"
	ScheduleModeWeekly = "weekly"
)

type ProviderConfig struct {
	APIKey       string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url" yaml:"image_base_url,omitempty" json:"image_base_url,omitempty"`
}

type ProvidersConfig struct {
	TMDB   ProviderConfig `mapstructure:"tmdb" yaml:"tmdb" json:"tmdb"`
	TVDB   ProviderConfig `mapstructure:"tvdb" yaml:"tvdb" json:"tvdb"`
	Fanart ProviderConfig `mapstructure:"fanart" yaml:"fanart" json:"fanart"`
}

// PreferredProviderConfig selects the provider asked first for each media type
type PreferredProviderConfig struct {
	Movie string `mapstructure:"movie" yaml:"movie" json:"movie"`
	Show  string `mapstructure:"show" yaml:"show" json:"show"`
}

type DiscoveryConfig struct {
	Mode             string `mapstructure:"mode" yaml:"mode" json:"mode"`
	MoviesRoot       string `mapstructure:"movies_root" yaml:"movies_root" json:"movies_root"`
	ShowsRoot        string `mapstructure:"shows_root" yaml:"shows_root" json:"shows_root"`
	MoviesList       string `mapstructure:"movies_list" yaml:"movies_list" json:"movies_list"`
	ShowsList        string `mapstructure:"shows_list" yaml:"shows_list" json:"shows_list"`
	HTMLItemSelector string `mapstructure:"html_item_selector" yaml:"html_item_selector" json:"html_item_selector"`

	// Library roots after path rewrites, computed at load time
	ResolvedMoviesRoot string `mapstructure:"-" yaml:"-" json:"-"`
	ResolvedShowsRoot  string `mapstructure:"-" yaml:"-" json:"-"`
}

// PathRewrite maps a network-mount prefix onto a container-local mount
type PathRewrite struct {
	Prefix      string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Replacement string `mapstructure:"replacement" yaml:"replacement" json:"replacement"`
}

type OutputConfig struct {
	BackdropDir  string `mapstructure:"backdrop_dir" yaml:"backdrop_dir" json:"backdrop_dir"`
	Layout       string `mapstructure:"layout" yaml:"layout" json:"layout"`
	ManifestPath string `mapstructure:"manifest_path" yaml:"manifest_path" json:"manifest_path"`
	RunLog       string `mapstructure:"run_log" yaml:"run_log" json:"run_log"`
}

type ScheduleConfig struct {
	Mode     string `mapstructure:"mode" yaml:"mode" json:"mode"`
	Day      string `mapstructure:"day" yaml:"day" json:"day"`
	Time     string `mapstructure:"time" yaml:"time" json:"time"` // HH:MM, 24h clock
	Timezone string `mapstructure:"timezone" yaml:"timezone" json:"timezone"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port" yaml:"port" json:"port"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address" yaml:"address" json:"address"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db"`
}

type CacheConfig struct {
	Provider   string      `mapstructure:"provider" yaml:"provider" json:"provider"` // memory, redis or sqlite
	Size       int         `mapstructure:"size" yaml:"size" json:"size"`             // Maximum number of entries
	TTL        string      `mapstructure:"ttl" yaml:"ttl" json:"ttl"`                // Go duration string like "24h"
	Redis      RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
	SQLitePath string      `mapstructure:"sqlite_path" yaml:"sqlite_path" json:"sqlite_path"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment" json:"environment"`
}

type Config struct {
	Providers             ProvidersConfig         `mapstructure:"providers" yaml:"providers" json:"providers"`
	PreferredProvider     PreferredProviderConfig `mapstructure:"preferred_provider" yaml:"preferred_provider" json:"preferred_provider"`
	BackdropLimit         string                  `mapstructure:"backdrop_limit" yaml:"backdrop_limit" json:"backdrop_limit"`
	Discovery             DiscoveryConfig         `mapstructure:"discovery" yaml:"discovery" json:"discovery"`
	PathRewrites          []PathRewrite           `mapstructure:"path_rewrites" yaml:"path_rewrites" json:"path_rewrites"`
	Output                OutputConfig            `mapstructure:"output" yaml:"output" json:"output"`
	Schedule              ScheduleConfig          `mapstructure:"schedule" yaml:"schedule" json:"schedule"`
	ClientTimeout         string                  `mapstructure:"client_timeout" yaml:"client_timeout" json:"client_timeout"` // Go duration string like "30s"
	ProxyConnectionString string                  `mapstructure:"proxy_connection_string" yaml:"proxy_connection_string" json:"proxy_connection_string"`
	UserAgent             string                  `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	Server                ServerConfig            `mapstructure:"server" yaml:"server" json:"server"`
	Metrics               MetricsConfig           `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Cache                 CacheConfig             `mapstructure:"cache" yaml:"cache" json:"cache"`
	Sentry                SentryConfig            `mapstructure:"sentry" yaml:"sentry" json:"sentry"`
	LogLevel              string                  `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
}

// Default returns a configuration holding every default value
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			TMDB: ProviderConfig{
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p/original",
			},
			TVDB:   ProviderConfig{BaseURL: "https://api4.thetvdb.com/v4"},
			Fanart: ProviderConfig{BaseURL: "https://webservice.fanart.tv/v3"},
		},
		PreferredProvider: PreferredProviderConfig{
			Movie: string(models.ProviderTMDB),
			Show:  string(models.ProviderTMDB),
		},
		BackdropLimit: BackdropLimitAll,
		Discovery: DiscoveryConfig{
			Mode:             DiscoveryModeLocal,
			HTMLItemSelector: "[data-title]",
		},
		PathRewrites: []PathRewrite{
			{Prefix: `\\`, Replacement: "/mnt/"},
			{Prefix: "smb://", Replacement: "/mnt/"},
		},
		Output: OutputConfig{
			BackdropDir:  "/config/Backdrops",
			Layout:       LayoutByType,
			ManifestPath: "/config/titles.json",
			RunLog:       "/config/backdrops.log",
		},
		Schedule: ScheduleConfig{
			Mode:     ScheduleModeManual,
			Day:      "sunday",
			Time:     "03:00",
			Timezone: "Local",
		},
		ClientTimeout: "30s",
		UserAgent:     DefaultUserAgent,
		Server:        ServerConfig{Port: 8500, Address: "0.0.0.0"},
		Cache: CacheConfig{
			Provider:   "memory",
			Size:       2000,
			TTL:        "168h",
			SQLitePath: "/config/cache/identifiers.db",
		},
		LogLevel: "info",
	}
}

// ProviderFor returns the provider settings for p
func (c *Config) ProviderFor(p models.Provider) ProviderConfig {
	switch p {
	case models.ProviderTVDB:
		return c.Providers.TVDB
	case models.ProviderFanart:
		return c.Providers.Fanart
	default:
		return c.Providers.TMDB
	}
}

// PreferredFor returns the provider asked first for the media type.
// Unknown values fall back to the primary provider.
func (c *Config) PreferredFor(mediaType models.MediaType) models.Provider {
	raw := c.PreferredProvider.Movie
	if mediaType == models.MediaTypeShow {
		raw = c.PreferredProvider.Show
	}
	p, err := models.ParseProvider(raw)
	if err != nil {
		return models.PrimaryProvider
	}
	return p
}

// Timeout returns the per-request timeout, defaulting to 30s on invalid input
func (c *Config) Timeout() time.Duration {
	if c.ClientTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.ClientTimeout)
	if err != nil || d <= 0 {
		logger.Warn().Err(err).Str("timeout", c.ClientTimeout).Msg("Invalid timeout duration, using default 30s")
		return 30 * time.Second
	}
	return d
}

// CacheTTL returns the identifier cache TTL, defaulting to one week
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// Validate checks the values that cannot be defaulted at runtime
func (c *Config) Validate() error {
	for key, raw := range map[string]string{
		"preferred_provider.movie": c.PreferredProvider.Movie,
		"preferred_provider.show":  c.PreferredProvider.Show,
	} {
		if _, err := models.ParseProvider(raw); err != nil {
			return &apperrors.ErrConfiguration{Key: key, Reason: err.Error()}
		}
	}

	switch strings.ToLower(c.Discovery.Mode) {
	case DiscoveryModeLocal, DiscoveryModeRemote:
	default:
		return &apperrors.ErrConfiguration{Key: "discovery.mode", Reason: fmt.Sprintf("unknown mode %q", c.Discovery.Mode)}
	}

	switch c.Output.Layout {
	case LayoutByType, LayoutFlat:
	default:
		return &apperrors.ErrConfiguration{Key: "output.layout", Reason: fmt.Sprintf("unknown layout %q", c.Output.Layout)}
	}

	switch strings.ToLower(c.Schedule.Mode) {
	case ScheduleModeManual:
	case ScheduleModeWeekly:
		if _, err := ParseWeekday(c.Schedule.Day); err != nil {
			return &apperrors.ErrConfiguration{Key: "schedule.day", Reason: err.Error()}
		}
		if _, _, err := ParseClock(c.Schedule.Time); err != nil {
			return &apperrors.ErrConfiguration{Key: "schedule.time", Reason: err.Error()}
		}
		if _, err := c.Location(); err != nil {
			return &apperrors.ErrConfiguration{Key: "schedule.timezone", Reason: err.Error()}
		}
	default:
		return &apperrors.ErrConfiguration{Key: "schedule.mode", Reason: fmt.Sprintf("unknown mode %q", c.Schedule.Mode)}
	}

	return nil
}

// Clone returns a deep copy so callers can edit without racing a running pipeline
func (c *Config) Clone() *Config {
	clone := *c
	clone.PathRewrites = append([]PathRewrite(nil), c.PathRewrites...)
	return &clone
}
