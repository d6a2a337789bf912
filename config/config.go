package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultFuzzyThreshold    = 0.85
	DefaultMissingReportPath = "_missing_tracks.csv"
	DefaultExportsFolder     = "./exports"
)

// ErrConfigurationMissing is returned when a required value is unset
var ErrConfigurationMissing = errors.New("missing required configuration values")

// Config holds all configuration values
type Config struct {
	Jellyfin    JellyfinConfig
	Spotify     SpotifyConfig
	Import      ImportConfig
	MusicBrainz MusicBrainzConfig
}

// JellyfinConfig holds Jellyfin server configuration
type JellyfinConfig struct {
	URL                string
	APIKey             string
	UserID             string
	InsecureSkipVerify bool
}

// SpotifyConfig holds Spotify API credentials, only needed for the spotify source
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// ImportConfig holds matching and reporting settings
type ImportConfig struct {
	FuzzyThreshold    float64
	MissingReportPath string
	Verbose           bool
}

// MusicBrainzConfig controls lookups for unmatched tracks
type MusicBrainzConfig struct {
	Enabled bool
}

// Load loads configuration following the specified order:
// 1. Start with defaults
// 2. Load from OS environment variables (only if they exist)
// 3. Load from .env file for keys the environment leaves unset
func Load() (*Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides loads configuration and applies CLI flag overrides last
func LoadWithOverrides(overrides map[string]string) (*Config, error) {
	config := &Config{}

	config.initializeDefaults()
	config.loadFromOSEnv()
	config.loadFromEnvFile()
	config.applyOverrides(overrides)

	// Validate required configuration after all sources have been loaded
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// initializeDefaults sets up the initial configuration with default values
func (c *Config) initializeDefaults() {
	c.Jellyfin = JellyfinConfig{}
	c.Spotify = SpotifyConfig{}
	c.Import = ImportConfig{
		FuzzyThreshold:    DefaultFuzzyThreshold,
		MissingReportPath: DefaultMissingReportPath,
	}
	c.MusicBrainz = MusicBrainzConfig{}
}

// keys lists every recognised variable
var keys = []string{
	"JELLYFIN_URL",
	"JELLYFIN_API_KEY",
	"JELLYFIN_USER_ID",
	"JELLYFIN_INSECURE_SKIP_VERIFY",
	"SPOTIFY_CLIENT_ID",
	"SPOTIFY_CLIENT_SECRET",
	"FUZZY_THRESHOLD",
	"MISSING_REPORT_PATH",
	"VERBOSE",
	"MUSICBRAINZ_LOOKUP",
}

// loadFromOSEnv loads configuration from OS environment variables (only if they exist)
func (c *Config) loadFromOSEnv() {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			c.set(key, value)
		}
	}
}

// loadFromEnvFile loads configuration from .env file (only if it exists and values exist)
func (c *Config) loadFromEnvFile() {
	values, err := godotenv.Read()
	if err != nil {
		// .env file doesn't exist, skip this step
		return
	}

	// OS environment takes precedence, as with godotenv.Load
	for _, key := range keys {
		if value := values[key]; value != "" && os.Getenv(key) == "" {
			c.set(key, value)
		}
	}
}

// applyOverrides applies CLI flag overrides to the configuration (only if they exist)
func (c *Config) applyOverrides(overrides map[string]string) {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		c.set(key, value)
	}
}

// set assigns one key. Unparseable numbers and booleans leave the current value.
func (c *Config) set(key, value string) {
	switch key {
	case "JELLYFIN_URL":
		c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(value), "/")
	case "JELLYFIN_API_KEY":
		c.Jellyfin.APIKey = value
	case "JELLYFIN_USER_ID":
		c.Jellyfin.UserID = value
	case "JELLYFIN_INSECURE_SKIP_VERIFY":
		if b, err := strconv.ParseBool(value); err == nil {
			c.Jellyfin.InsecureSkipVerify = b
		}
	case "SPOTIFY_CLIENT_ID":
		c.Spotify.ClientID = value
	case "SPOTIFY_CLIENT_SECRET":
		c.Spotify.ClientSecret = value
	case "FUZZY_THRESHOLD":
		if threshold, err := parseThreshold(value); err == nil {
			c.Import.FuzzyThreshold = threshold
		}
	case "MISSING_REPORT_PATH":
		c.Import.MissingReportPath = value
	case "VERBOSE":
		if b, err := strconv.ParseBool(value); err == nil {
			c.Import.Verbose = b
		}
	case "MUSICBRAINZ_LOOKUP":
		if b, err := strconv.ParseBool(value); err == nil {
			c.MusicBrainz.Enabled = b
		}
	}
}

// parseThreshold parses a similarity threshold in (0, 1]
func parseThreshold(value string) (float64, error) {
	threshold, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fuzzy threshold '%s': %w", value, err)
	}
	if threshold <= 0 || threshold > 1 {
		return 0, fmt.Errorf("fuzzy threshold %v out of range (0, 1]", threshold)
	}
	return threshold, nil
}

// validate checks that all required configuration values are present
func (c *Config) validate() error {
	var missingFields []string

	if c.Jellyfin.URL == "" {
		missingFields = append(missingFields, "JELLYFIN_URL")
	}
	if c.Jellyfin.APIKey == "" {
		missingFields = append(missingFields, "JELLYFIN_API_KEY")
	}
	if c.Jellyfin.UserID == "" {
		missingFields = append(missingFields, "JELLYFIN_USER_ID")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("%w:\n%s\n\nSet these values via environment variables or a .env file", ErrConfigurationMissing, strings.Join(missingFields, "\n"))
	}

	return nil
}

// ValidateSpotify checks the credentials needed by the spotify source
func (c *Config) ValidateSpotify() error {
	var missingFields []string

	if c.Spotify.ClientID == "" {
		missingFields = append(missingFields, "SPOTIFY_CLIENT_ID")
	}
	if c.Spotify.ClientSecret == "" {
		missingFields = append(missingFields, "SPOTIFY_CLIENT_SECRET")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("%w:\n%s", ErrConfigurationMissing, strings.Join(missingFields, "\n"))
	}

	return nil
}
