package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Valid search_type values
const (
	SearchTypeFirstPage        = "first_page"
	SearchTypeIncrementingPage = "incrementing_page"
	SearchTypeAll              = "all"
)

// Valid search_source values
const (
	SourceMissing     = "missing"
	SourceCutoffUnmet = "cutoff_unmet"
	SourceAll         = "all"
)

// ArrConfig holds the connection settings for one media manager (Lidarr or Readarr)
type ArrConfig struct {
	HostURL     string
	APIKey      string
	DownloadDir string
	DisableSync bool
}

// Enabled reports whether this media manager is configured
func (a ArrConfig) Enabled() bool {
	return a.HostURL != ""
}

// SlskdConfig holds the connection and transfer settings for the slskd daemon
type SlskdConfig struct {
	HostURL        string
	APIKey         string
	URLBase        string
	DownloadDir    string
	StalledTimeout int // seconds of accumulated download polling before giving up
	DeleteSearches bool
}

// SearchSettings holds everything the search session and orchestrator need
type SearchSettings struct {
	Timeout                int // milliseconds, passed to slskd
	MaximumPeerQueue       int
	MinimumPeerUploadSpeed int
	WaitTimeout            int // seconds to wait for search completion, 0 waits forever
	AllowedFiletypes       []string
	IgnoredUsers           []string
	TitleBlacklist         []string
	SearchType             string
	Sources                []string
	MinimumMatchRatio      float64
	PageSize               int
	RemoveWantedOnFailure  bool
	EnableDenylist         bool
	MaxSearchFailures      int
	AlbumPrependArtist     bool
	TrackPrependArtist     bool
	SearchForTracks        bool
	SearchAllTracks        bool
}

// ReleaseSettings holds the release-edition selection policy
type ReleaseSettings struct {
	UseMostCommonTrackNum bool
	AllowMultiDisc        bool
	AcceptedCountries     []string
	SkipRegionCheck       bool
	AcceptedFormats       []string
}

// DaemonConfig holds the optional long-running mode settings
type DaemonConfig struct {
	Enabled    bool
	Schedule   string
	ServerPort string
}

// Config holds all application configuration
type Config struct {
	Lidarr  ArrConfig
	Readarr ArrConfig
	Slskd   SlskdConfig
	Search  SearchSettings
	Release ReleaseSettings
	Daemon  DaemonConfig

	LogLevel string

	// Paths under the var directory
	LockFile    string // $VAR_DIR/.gosoularr.lock
	FailureFile string // $VAR_DIR/failure_list.txt
	StateFile   string // $VAR_DIR/gosoularr.db
}

const (
	defaultAcceptedCountries = "Europe,Japan,United Kingdom,United States,[Worldwide],Australia,Canada"
	defaultAcceptedFormats   = "CD,Digital Media,Vinyl"
)

// Load reads config.ini from configDir and builds the configuration.
// Section and key names match the original ini layout so existing
// config files keep working.
func Load(configDir, varDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("ini")
	v.AddConfigPath(configDir)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file in %s: %w", configDir, err)
	}

	config := &Config{
		Lidarr: ArrConfig{
			HostURL:     v.GetString("lidarr.host_url"),
			APIKey:      v.GetString("lidarr.api_key"),
			DownloadDir: v.GetString("lidarr.download_dir"),
			DisableSync: v.GetBool("lidarr.disable_sync"),
		},
		Readarr: ArrConfig{
			HostURL:     v.GetString("readarr.host_url"),
			APIKey:      v.GetString("readarr.api_key"),
			DownloadDir: v.GetString("readarr.download_dir"),
			DisableSync: v.GetBool("readarr.disable_sync"),
		},
		Slskd: SlskdConfig{
			HostURL:        v.GetString("slskd.host_url"),
			APIKey:         v.GetString("slskd.api_key"),
			URLBase:        v.GetString("slskd.url_base"),
			DownloadDir:    v.GetString("slskd.download_dir"),
			StalledTimeout: v.GetInt("slskd.stalled_timeout"),
			DeleteSearches: v.GetBool("slskd.delete_searches"),
		},
		Search: SearchSettings{
			Timeout:                v.GetInt("search settings.search_timeout"),
			MaximumPeerQueue:       v.GetInt("search settings.maximum_peer_queue"),
			MinimumPeerUploadSpeed: v.GetInt("search settings.minimum_peer_upload_speed"),
			WaitTimeout:            v.GetInt("search settings.search_wait_timeout"),
			AllowedFiletypes:       splitList(v.GetString("search settings.allowed_filetypes")),
			IgnoredUsers:           splitList(v.GetString("search settings.ignored_users")),
			TitleBlacklist:         splitList(v.GetString("search settings.title_blacklist")),
			SearchType:             strings.ToLower(strings.TrimSpace(v.GetString("search settings.search_type"))),
			MinimumMatchRatio:      v.GetFloat64("search settings.minimum_filename_match_ratio"),
			PageSize:               v.GetInt("search settings.number_of_albums_to_grab"),
			RemoveWantedOnFailure:  v.GetBool("search settings.remove_wanted_on_failure"),
			EnableDenylist:         v.GetBool("search settings.enable_search_denylist"),
			MaxSearchFailures:      v.GetInt("search settings.max_search_failures"),
			AlbumPrependArtist:     v.GetBool("search settings.album_prepend_artist"),
			TrackPrependArtist:     v.GetBool("search settings.track_prepend_artist"),
			SearchForTracks:        v.GetBool("search settings.search_for_tracks"),
			SearchAllTracks:        v.GetBool("search settings.search_all_tracks"),
		},
		Release: ReleaseSettings{
			UseMostCommonTrackNum: v.GetBool("release settings.use_most_common_tracknum"),
			AllowMultiDisc:        v.GetBool("release settings.allow_multi_disc"),
			AcceptedCountries:     splitList(v.GetString("release settings.accepted_countries")),
			SkipRegionCheck:       v.GetBool("release settings.skip_region_check"),
			AcceptedFormats:       splitList(v.GetString("release settings.accepted_formats")),
		},
		Daemon: DaemonConfig{
			Enabled:    v.GetBool("daemon.enabled"),
			Schedule:   v.GetString("daemon.schedule"),
			ServerPort: v.GetString("daemon.server_port"),
		},
		LogLevel: v.GetString("logging.level"),

		LockFile:    filepath.Join(varDir, ".gosoularr.lock"),
		FailureFile: filepath.Join(varDir, "failure_list.txt"),
		StateFile:   filepath.Join(varDir, "gosoularr.db"),
	}

	sources, err := parseSources(v.GetString("search settings.search_source"))
	if err != nil {
		return nil, err
	}
	config.Search.Sources = sources

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("slskd.url_base", "/")
	v.SetDefault("slskd.stalled_timeout", 3600)
	v.SetDefault("slskd.delete_searches", true)

	v.SetDefault("search settings.search_timeout", 5000)
	v.SetDefault("search settings.maximum_peer_queue", 50)
	v.SetDefault("search settings.minimum_peer_upload_speed", 0)
	v.SetDefault("search settings.search_wait_timeout", 0)
	v.SetDefault("search settings.allowed_filetypes", "flac,mp3")
	v.SetDefault("search settings.search_type", SearchTypeFirstPage)
	v.SetDefault("search settings.search_source", SourceMissing)
	v.SetDefault("search settings.minimum_filename_match_ratio", 0.5)
	v.SetDefault("search settings.number_of_albums_to_grab", 10)
	v.SetDefault("search settings.remove_wanted_on_failure", true)
	v.SetDefault("search settings.enable_search_denylist", false)
	v.SetDefault("search settings.max_search_failures", 3)
	v.SetDefault("search settings.album_prepend_artist", false)
	v.SetDefault("search settings.track_prepend_artist", true)
	v.SetDefault("search settings.search_for_tracks", true)
	v.SetDefault("search settings.search_all_tracks", false)

	v.SetDefault("release settings.use_most_common_tracknum", true)
	v.SetDefault("release settings.allow_multi_disc", true)
	v.SetDefault("release settings.accepted_countries", defaultAcceptedCountries)
	v.SetDefault("release settings.skip_region_check", false)
	v.SetDefault("release settings.accepted_formats", defaultAcceptedFormats)

	v.SetDefault("daemon.enabled", false)
	v.SetDefault("daemon.schedule", "@every 1h")
	v.SetDefault("daemon.server_port", "8080")

	v.SetDefault("logging.level", "info")
}

func (c *Config) validate() error {
	if c.Slskd.HostURL == "" {
		return fmt.Errorf("[Slskd] host_url is required")
	}
	if c.Slskd.APIKey == "" {
		return fmt.Errorf("[Slskd] api_key is required")
	}
	if c.Slskd.DownloadDir == "" {
		return fmt.Errorf("[Slskd] download_dir is required")
	}
	if !c.Lidarr.Enabled() && !c.Readarr.Enabled() {
		return fmt.Errorf("at least one of [Lidarr] or [Readarr] must be configured")
	}
	for _, arr := range []struct {
		name string
		cfg  ArrConfig
	}{{"Lidarr", c.Lidarr}, {"Readarr", c.Readarr}} {
		if arr.cfg.Enabled() && arr.cfg.APIKey == "" {
			return fmt.Errorf("[%s] api_key is required", arr.name)
		}
	}

	switch c.Search.SearchType {
	case SearchTypeFirstPage, SearchTypeIncrementingPage, SearchTypeAll:
	default:
		return fmt.Errorf("[Search Settings] search_type = %q is not valid", c.Search.SearchType)
	}

	return nil
}

func parseSources(raw string) ([]string, error) {
	source := strings.ToLower(strings.TrimSpace(raw))
	switch source {
	case SourceAll:
		return []string{SourceMissing, SourceCutoffUnmet}, nil
	case SourceMissing, SourceCutoffUnmet:
		return []string{source}, nil
	default:
		return nil, fmt.Errorf("[Search Settings] search_source = %q is not valid", source)
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
