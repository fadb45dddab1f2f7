package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultGeodatabaseName is the geodatabase file created when none is configured.
const DefaultGeodatabaseName = "Shellfish_Fishery_Footprint.gdb"

// DefaultDatasets are the fishery categories, one feature dataset each.
var DefaultDatasets = []string{"GreenSeaUrchin", "RedSeaUrchin", "SeaCucumber"}

// Config holds the full application configuration.
type Config struct {
	Geodatabase      GeodatabaseConfig `yaml:"geodatabase" mapstructure:"geodatabase"`
	RootSource       string            `yaml:"root_source" mapstructure:"root_source"`
	SpatialReference string            `yaml:"spatial_reference" mapstructure:"spatial_reference"`
	Datasets         []DatasetConfig   `yaml:"datasets" mapstructure:"datasets"`
	Log              LogConfig         `yaml:"log" mapstructure:"log"`
}

// GeodatabaseConfig locates the geodatabase to create.
type GeodatabaseConfig struct {
	Folder string `yaml:"folder" mapstructure:"folder"`
	Name   string `yaml:"name" mapstructure:"name"`
}

// DatasetConfig pairs a feature dataset with the folder its shapefiles come from.
type DatasetConfig struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Source string `yaml:"source" mapstructure:"source"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, the config file and
// the environment. An empty path searches for config.yaml in the working
// directory.
func Load(path string) (*Config, error) {
	// Missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("FOOTPRINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geodatabase.folder", "")
	v.SetDefault("geodatabase.name", DefaultGeodatabaseName)
	v.SetDefault("root_source", "")
	v.SetDefault("spatial_reference", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	defaults := make([]map[string]any, 0, len(DefaultDatasets))
	for _, name := range DefaultDatasets {
		defaults = append(defaults, map[string]any{"name": name, "source": ""})
	}
	v.SetDefault("datasets", defaults)

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that everything a populate run needs is present.
func (c *Config) Validate() error {
	if c.Geodatabase.Folder == "" {
		return eris.New("config: geodatabase.folder is required")
	}
	if c.Geodatabase.Name == "" {
		return eris.New("config: geodatabase.name is required")
	}
	switch strings.ToLower(filepath.Ext(c.Geodatabase.Name)) {
	case ".gdb", ".gpkg":
	default:
		return eris.Errorf("config: geodatabase.name %q must end in .gdb or .gpkg", c.Geodatabase.Name)
	}
	if len(c.Datasets) > 0 && c.SpatialReference == "" {
		return eris.New("config: spatial_reference is required when datasets are configured")
	}
	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			return eris.Errorf("config: datasets[%d]: name is required", i)
		}
		if ds.Source == "" {
			return eris.Errorf("config: dataset %s: source is required", ds.Name)
		}
		key := strings.ToLower(ds.Name)
		if seen[key] {
			return eris.Errorf("config: dataset %s listed twice", ds.Name)
		}
		seen[key] = true
	}
	return nil
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
