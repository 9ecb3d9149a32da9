package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tidbyt.dev/gtfsgraph/model"
)

const (
	IdentityByID   = "id"
	IdentityByName = "name"

	DefaultDataRoot         = "mta/"
	DefaultOutput           = "out.gexf"
	DefaultDownloadTimeout  = 60 * time.Second
	DefaultDownloadMaxSize  = 800 << 20 // 800 MB
	DefaultDownloadCacheTTL = 12 * time.Hour
)

// Rule for normalizing a station key (stop id or stop name) before
// the merge table is consulted.
type NormalizeConfig struct {
	// If set, only the text before the first occurrence of
	// Separator is kept, e.g. " - " to drop a platform name.
	Separator string `yaml:"separator"`

	// Number of trailing characters to drop, e.g. 1 for feeds
	// encoding direction as a stop_id suffix ("101N", "101S"). When
	// unset it depends on the identity mode, see Config.StripSuffix.
	StripSuffix *int `yaml:"strip_suffix" validate:"omitempty,gte=0"`
}

type DownloadConfig struct {
	// JSON file caching downloaded feeds. In memory if blank.
	CachePath string            `yaml:"cache_path"`
	CacheTTL  time.Duration     `yaml:"cache_ttl" validate:"gte=0"`
	Timeout   time.Duration     `yaml:"timeout" validate:"gte=0"`
	MaxSize   int               `yaml:"max_size" validate:"gte=0"`
	Headers   map[string]string `yaml:"headers"`
}

type ExportConfig struct {
	// Directory holding gtfsgraph.db. Export disabled if blank.
	SQLiteDir string `yaml:"sqlite_dir"`

	// Postgres connection string. Export disabled if blank.
	Postgres string `yaml:"postgres" validate:"omitempty,startswith=postgres"`
}

type Config struct {
	// Directory, zip archive or http(s) URL of a zip archive.
	DataRoot string `yaml:"data_root" validate:"required"`

	// Path of the GEXF document written.
	Output string `yaml:"output" validate:"required"`

	RouteTypes []model.RouteType `yaml:"route_types" validate:"dive,gte=0,lte=12"`

	// How stations are identified: by stop_id or by stop_name.
	Identity string `yaml:"identity" validate:"oneof=id name"`

	Normalize NormalizeConfig `yaml:"normalize"`

	// Maps normalized keys to a canonical station identity, for
	// merging stations.
	StationMap map[string]string `yaml:"station_map"`

	// Canonical identities to exclude, including their edges.
	Discard []string `yaml:"discard"`

	Download DownloadConfig `yaml:"download"`
	Export   ExportConfig   `yaml:"export"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// The configuration used when no file is given: subway routes of an
// MTA feed extracted to mta/, stations identified by stop_id with the
// direction suffix stripped.
//
// Nothing is downloaded, cached on disk or exported unless
// configured.
func Default() Config {
	return Config{
		DataRoot:   DefaultDataRoot,
		Output:     DefaultOutput,
		RouteTypes: []model.RouteType{model.RouteTypeSubway},
		Identity:   IdentityByID,
		StationMap: map[string]string{},
		Discard:    []string{},
		Download: DownloadConfig{
			CacheTTL: DefaultDownloadCacheTTL,
			Timeout:  DefaultDownloadTimeout,
			MaxSize:  DefaultDownloadMaxSize,
		},
		LogLevel: "info",
	}
}

// Decodes YAML on top of Default() and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// The set of route types to convert.
func (c Config) RouteTypeSet() map[model.RouteType]bool {
	types := map[model.RouteType]bool{}
	for _, t := range c.RouteTypes {
		types[t] = true
	}
	return types
}

// Number of trailing characters dropped from station keys. Unless
// configured, stop ids lose their direction suffix and stop names are
// kept whole.
func (c Config) StripSuffix() int {
	if c.Normalize.StripSuffix != nil {
		return *c.Normalize.StripSuffix
	}
	if c.Identity == IdentityByName {
		return 0
	}
	return 1
}

func (c Config) DiscardSet() map[string]bool {
	discard := map[string]bool{}
	for _, d := range c.Discard {
		discard[d] = true
	}
	return discard
}
