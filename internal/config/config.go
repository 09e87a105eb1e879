package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Source is the directory tree to scan for media files.
	Source string `yaml:"source" mapstructure:"source"`
	// Destination holds the organized-library roots.
	Destination DestinationSettings `yaml:"destination" mapstructure:"destination"`
	// TMDB configures the external metadata lookup adapter.
	TMDB TMDBSettings `yaml:"tmdb" mapstructure:"tmdb"`
	// AI configures the Ollama-backed filename-parsing fallback.
	AI AISettings `yaml:"ai" mapstructure:"ai"`
	// Probe configures the media-probing binary invocation.
	Probe ProbeSettings `yaml:"probe" mapstructure:"probe"`
	// Match configures the match-quality acceptance policy.
	Match MatchSettings `yaml:"match" mapstructure:"match"`
	// Index configures where the central index lives.
	Index IndexSettings `yaml:"index" mapstructure:"index"`
	// Organize settings
	Organize OrganizeSettings `yaml:"organize" mapstructure:"organize"`
	// Safety settings
	Safety SafetySettings `yaml:"safety" mapstructure:"safety"`
	// Filters for file selection
	Filters FilterSettings `yaml:"filters" mapstructure:"filters"`
	// Performance settings
	Performance PerformanceSettings `yaml:"performance" mapstructure:"performance"`
}

// DestinationSettings contains the canonical-layout roots for each
// library kind.
type DestinationSettings struct {
	Movies string `yaml:"movies" mapstructure:"movies"`
	TV     string `yaml:"tv" mapstructure:"tv"`
}

// TMDBSettings configures the TMDB lookup adapter. Either APIKey or
// BearerToken must resolve to a non-empty value at runtime (env vars
// TMDB_API_KEY / TMDB_BEARER_TOKEN take precedence over these).
type TMDBSettings struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`
	RateLimitMS int    `yaml:"rate_limit_ms" mapstructure:"rate_limit_ms"`
}

// AISettings configures the Ollama client used when filename parsing
// alone can't separate title from noise tokens.
type AISettings struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	Model          string `yaml:"model" mapstructure:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ProbeSettings configures the ffprobe-compatible media inspection tool.
type ProbeSettings struct {
	BinaryPath     string `yaml:"binary_path" mapstructure:"binary_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// MatchSettings controls how permissive candidate/lookup matching is.
type MatchSettings struct {
	// AllowMedium accepts MatchMedium-quality results; otherwise only
	// MatchHigh and MatchExact are organized and everything else falls
	// through to unknown[].
	AllowMedium bool `yaml:"allow_medium" mapstructure:"allow_medium"`
}

// IndexSettings configures the central index location. ConfigDir
// defaults to the platform user-config directory plus "cinetidy" when
// empty.
type IndexSettings struct {
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// OrganizeSettings contains settings for file organization
type OrganizeSettings struct {
	CreateNFO           bool `yaml:"create_nfo" mapstructure:"create_nfo"`
	DownloadArtwork     bool `yaml:"download_artwork" mapstructure:"download_artwork"`
	NormalizeNames      bool `yaml:"normalize_names" mapstructure:"normalize_names"`
	PreserveQualityTags bool `yaml:"preserve_quality_tags" mapstructure:"preserve_quality_tags"`
}

// SafetySettings contains safety-related settings
type SafetySettings struct {
	DryRun     bool   `yaml:"dry_run" mapstructure:"dry_run"`
	SessionDir string `yaml:"session_dir" mapstructure:"session_dir"`
}

// FilterSettings contains file filtering settings
type FilterSettings struct {
	MinFileSize     string   `yaml:"min_file_size" mapstructure:"min_file_size"`
	VideoExtensions []string `yaml:"video_extensions" mapstructure:"video_extensions"`
}

// PerformanceSettings contains performance-related settings
type PerformanceSettings struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`
	APIRateLimit int `yaml:"api_rate_limit" mapstructure:"api_rate_limit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		userConfigDir = filepath.Join(homeDir, ".config")
	}
	configDir := filepath.Join(userConfigDir, "cinetidy")

	return &Config{
		Destination: DestinationSettings{
			Movies: filepath.Join(homeDir, "media", "movies"),
			TV:     filepath.Join(homeDir, "media", "tv"),
		},
		TMDB: TMDBSettings{
			RateLimitMS: 50,
		},
		AI: AISettings{
			BaseURL:        "http://localhost:11434",
			Model:          "qwen2.5:7b",
			TimeoutSeconds: 180,
		},
		Probe: ProbeSettings{
			BinaryPath:     "ffprobe",
			TimeoutSeconds: 30,
		},
		Match: MatchSettings{
			AllowMedium: false,
		},
		Index: IndexSettings{
			ConfigDir: configDir,
		},
		Organize: OrganizeSettings{
			CreateNFO:           true,
			DownloadArtwork:     true,
			NormalizeNames:      true,
			PreserveQualityTags: true,
		},
		Safety: SafetySettings{
			DryRun:     false,
			SessionDir: filepath.Join(configDir, "sessions"),
		},
		Filters: FilterSettings{
			MinFileSize: "50MB",
			VideoExtensions: []string{
				".mkv", ".mp4", ".avi", ".m4v", ".ts", ".webm",
				".mov", ".wmv", ".m2ts",
			},
		},
		Performance: PerformanceSettings{
			Workers:      4,
			APIRateLimit: 40,
		},
	}
}

// envBindings maps the spec's own mandated environment variables
// directly onto config keys, so they take effect regardless of whether
// a config file sets an env prefix-derived name for the same setting.
var envBindings = map[string]string{
	"TMDB_API_KEY":      "tmdb.api_key",
	"TMDB_BEARER_TOKEN": "tmdb.bearer_token",
	"OLLAMA_BASE_URL":   "ai.base_url",
	"OLLAMA_MODEL":      "ai.model",
}

// Load loads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Set config file path
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Search for config in standard locations
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".config", "cinetidy"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read environment variables
	v.SetEnvPrefix("CINETIDY")
	v.AutomaticEnv()
	for env, key := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Check if it's a file not found error (config is optional)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found in search paths, that's okay
		} else if os.IsNotExist(err) {
			// Specific config file not found, that's okay too
		} else {
			// Other errors (permission denied, parse errors) should be returned
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaultsForZeroValues(&cfg)
	return &cfg, nil
}

// applyDefaultsForZeroValues backfills fields viper leaves at their zero
// value, since slice defaults in particular don't survive Unmarshal
// reliably across all viper versions.
func applyDefaultsForZeroValues(cfg *Config) {
	defaults := DefaultConfig()

	if len(cfg.Filters.VideoExtensions) == 0 {
		cfg.Filters.VideoExtensions = defaults.Filters.VideoExtensions
	}
	if cfg.Filters.MinFileSize == "" {
		cfg.Filters.MinFileSize = defaults.Filters.MinFileSize
	}
	if cfg.Safety.SessionDir == "" {
		cfg.Safety.SessionDir = defaults.Safety.SessionDir
	}
	if cfg.Index.ConfigDir == "" {
		cfg.Index.ConfigDir = defaults.Index.ConfigDir
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaults.AI.BaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaults.AI.Model
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = defaults.AI.TimeoutSeconds
	}
	if cfg.Probe.BinaryPath == "" {
		cfg.Probe.BinaryPath = defaults.Probe.BinaryPath
	}
	if cfg.Probe.TimeoutSeconds == 0 {
		cfg.Probe.TimeoutSeconds = defaults.Probe.TimeoutSeconds
	}
	if cfg.TMDB.RateLimitMS == 0 {
		cfg.TMDB.RateLimitMS = defaults.TMDB.RateLimitMS
	}
	if cfg.Performance.Workers == 0 {
		cfg.Performance.Workers = defaults.Performance.Workers
	}
	if cfg.Performance.APIRateLimit == 0 {
		cfg.Performance.APIRateLimit = defaults.Performance.APIRateLimit
	}
}

// setDefaults sets default values for viper
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("organize.create_nfo", defaults.Organize.CreateNFO)
	v.SetDefault("organize.download_artwork", defaults.Organize.DownloadArtwork)
	v.SetDefault("organize.normalize_names", defaults.Organize.NormalizeNames)
	v.SetDefault("organize.preserve_quality_tags", defaults.Organize.PreserveQualityTags)

	v.SetDefault("safety.dry_run", defaults.Safety.DryRun)
	v.SetDefault("safety.session_dir", defaults.Safety.SessionDir)

	v.SetDefault("filters.min_file_size", defaults.Filters.MinFileSize)
	v.SetDefault("filters.video_extensions", defaults.Filters.VideoExtensions)

	v.SetDefault("performance.workers", defaults.Performance.Workers)
	v.SetDefault("performance.api_rate_limit", defaults.Performance.APIRateLimit)

	v.SetDefault("tmdb.rate_limit_ms", defaults.TMDB.RateLimitMS)

	v.SetDefault("ai.base_url", defaults.AI.BaseURL)
	v.SetDefault("ai.model", defaults.AI.Model)
	v.SetDefault("ai.timeout_seconds", defaults.AI.TimeoutSeconds)

	v.SetDefault("probe.binary_path", defaults.Probe.BinaryPath)
	v.SetDefault("probe.timeout_seconds", defaults.Probe.TimeoutSeconds)

	v.SetDefault("match.allow_medium", defaults.Match.AllowMedium)

	v.SetDefault("index.config_dir", defaults.Index.ConfigDir)
}

// ParseSize converts a size string (e.g., "10MB", "1GB") to bytes
func ParseSize(sizeStr string) (int64, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Regular expression to parse size with optional unit
	re := regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KMGT]?B)?$`)
	matches := re.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(sizeStr)))

	if matches == nil {
		return 0, fmt.Errorf("invalid size format: %s", sizeStr)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %s", matches[1])
	}

	unit := matches[2]
	var multiplier int64 = 1

	switch unit {
	case "KB":
		multiplier = 1024
	case "MB":
		multiplier = 1024 * 1024
	case "GB":
		multiplier = 1024 * 1024 * 1024
	case "TB":
		multiplier = 1024 * 1024 * 1024 * 1024
	case "B", "":
		multiplier = 1
	}

	return int64(value * float64(multiplier)), nil
}
