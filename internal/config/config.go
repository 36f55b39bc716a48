package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Clean  CleanConfig  `yaml:"clean" mapstructure:"clean"`
	Geo    GeoConfig    `yaml:"geo" mapstructure:"geo"`
	Assets AssetsConfig `yaml:"assets" mapstructure:"assets"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CleanConfig configures the dataset cleaner.
type CleanConfig struct {
	// BatchPIDs is the number of property identities processed per chunk.
	// Chunking bounds peak memory only; it has no effect on correctness.
	BatchPIDs      int    `yaml:"batch_pids" mapstructure:"batch_pids"`
	ExclusionsPath string `yaml:"exclusions_path" mapstructure:"exclusions_path"`
}

// GeoConfig configures geospatial enrichment and reference data loading.
type GeoConfig struct {
	SubwayCSVPath    string  `yaml:"subway_csv_path" mapstructure:"subway_csv_path"`
	DistrictsShpPath string  `yaml:"districts_shp_path" mapstructure:"districts_shp_path"`
	OSMCSVPath       string  `yaml:"osm_csv_path" mapstructure:"osm_csv_path"`
	CenterLat        float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng        float64 `yaml:"center_lng" mapstructure:"center_lng"`
}

// AssetsConfig configures the photo asset mirror.
type AssetsConfig struct {
	RemoteBaseURL string  `yaml:"remote_base_url" mapstructure:"remote_base_url"`
	MirrorFTPURL  string  `yaml:"mirror_ftp_url" mapstructure:"mirror_ftp_url"`
	LocalDir      string  `yaml:"local_dir" mapstructure:"local_dir"`
	StatePath     string  `yaml:"state_path" mapstructure:"state_path"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ExportConfig configures clean-table exports.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("clean.batch_pids", 2000)
	v.SetDefault("clean.exclusions_path", "urls_to_exclude.yaml")
	v.SetDefault("geo.center_lat", 55.75578)
	v.SetDefault("geo.center_lng", 37.61786)
	v.SetDefault("geo.subway_csv_path", "geodata/subway_stations.csv")
	v.SetDefault("geo.districts_shp_path", "geodata/districts.shp")
	v.SetDefault("geo.osm_csv_path", "geodata/osm_features.csv")
	v.SetDefault("assets.local_dir", "assets")
	v.SetDefault("assets.state_path", "assets/state.json")
	v.SetDefault("assets.max_concurrent", 4)
	v.SetDefault("assets.rate_per_second", 5)
	v.SetDefault("assets.max_attempts", 5)
	v.SetDefault("export.output_dir", "csv/prepared_data")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
