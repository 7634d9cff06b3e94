// Package config loads mashclust settings from mashclust.toml, MASHCLUST_*
// environment variables and a .env file, in that order of precedence
// (environment wins over file).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file searched for, without extension.
	FileName = "mashclust"
	// EnvPrefix prefixes environment overrides, e.g. MASHCLUST_CLUSTER_IDENTITY.
	EnvPrefix = "MASHCLUST"
	// APIKeyEnv is read for the NCBI datasets API key.
	APIKeyEnv = "NCBI_API_KEY"

	currentVersion = 1
)

// Config is the complete mashclust configuration.
type Config struct {
	Version  int            `toml:"version" mapstructure:"version" validate:"eq=1"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
	Cluster  ClusterConfig  `toml:"cluster" mapstructure:"cluster"`
	Mash     MashConfig     `toml:"mash" mapstructure:"mash"`
	Download DownloadConfig `toml:"download" mapstructure:"download"`
	Visual   VisualConfig   `toml:"visualize" mapstructure:"visualize"`
	Finalize FinalizeConfig `toml:"finalize" mapstructure:"finalize"`
}

type LoggingConfig struct {
	Level  string `toml:"level" mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// ClusterConfig drives the clustering core.
type ClusterConfig struct {
	DistanceFile       string   `toml:"distance_file" mapstructure:"distance_file"`
	OutputDir          string   `toml:"output_dir" mapstructure:"output_dir" validate:"required"`
	Identity           float64  `toml:"identity" mapstructure:"identity" validate:"gt=0,lte=1"`
	NumRepresentatives int      `toml:"num_representatives" mapstructure:"num_representatives" validate:"gte=1"`
	Seed               uint64   `toml:"seed" mapstructure:"seed"`
	References         []string `toml:"references" mapstructure:"references"`
	ProtectReferences  bool     `toml:"protect_references" mapstructure:"protect_references"`
	RecordFormat       string   `toml:"record_format" mapstructure:"record_format" validate:"oneof=json yaml"`
}

// MashConfig drives mash sketch and mash dist.
type MashConfig struct {
	Binary     string `toml:"binary" mapstructure:"binary" validate:"required"`
	GenomeDir  string `toml:"genome_dir" mapstructure:"genome_dir"`
	Prefix     string `toml:"prefix" mapstructure:"prefix"`
	NoFilter   bool   `toml:"no_filter" mapstructure:"no_filter"`
	KmerSize   int    `toml:"kmer_size" mapstructure:"kmer_size" validate:"gte=1,lte=32"`
	SketchSize int    `toml:"sketch_size" mapstructure:"sketch_size" validate:"gte=1"`
	Threads    int    `toml:"threads" mapstructure:"threads" validate:"gte=1"`
}

// DownloadConfig drives batched acquisition.
type DownloadConfig struct {
	AccessionFile  string        `toml:"accession_file" mapstructure:"accession_file"`
	OutputDir      string        `toml:"output_dir" mapstructure:"output_dir" validate:"required"`
	DatasetsBinary string        `toml:"datasets_binary" mapstructure:"datasets_binary" validate:"required"`
	BatchSize      int           `toml:"batch_size" mapstructure:"batch_size" validate:"gte=1"`
	Delay          time.Duration `toml:"delay" mapstructure:"delay" validate:"gte=0"`
	MaxRetries     int           `toml:"max_retries" mapstructure:"max_retries" validate:"gte=1"`
	MinSuccessRate float64       `toml:"min_success_rate" mapstructure:"min_success_rate" validate:"gte=0,lte=1"`
	BaseWait       time.Duration `toml:"base_wait" mapstructure:"base_wait" validate:"gte=0"`
	LinearPenalty  time.Duration `toml:"linear_penalty" mapstructure:"linear_penalty" validate:"gte=0"`
	MinBatches     int           `toml:"min_batches" mapstructure:"min_batches" validate:"gte=0"`
	StartFromBatch int           `toml:"start_from_batch" mapstructure:"start_from_batch" validate:"gte=1"`
	KeepZip        bool          `toml:"keep_zip" mapstructure:"keep_zip"`
	APIKey         string        `toml:"-" mapstructure:"api_key"`
}

type VisualConfig struct {
	QuicktreeBinary string `toml:"quicktree_binary" mapstructure:"quicktree_binary"`
}

// FinalizeConfig drives per-accession dataset building.
type FinalizeConfig struct {
	OutputDir      string `toml:"output_dir" mapstructure:"output_dir" validate:"required"`
	DatasetsBinary string `toml:"datasets_binary" mapstructure:"datasets_binary" validate:"required"`
	PythonBinary   string `toml:"python_binary" mapstructure:"python_binary" validate:"required"`
	ManagerScript  string `toml:"manager_script" mapstructure:"manager_script" validate:"required"`
	GenomesSubdir  string `toml:"genomes_subdir" mapstructure:"genomes_subdir" validate:"required"`
	Workers        int    `toml:"workers" mapstructure:"workers" validate:"gte=1,lte=64"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Cluster: ClusterConfig{
			OutputDir:          "mash_output",
			Identity:           0.9997,
			NumRepresentatives: 5,
			Seed:               42,
			ProtectReferences:  true,
			RecordFormat:       "json",
		},
		Mash: MashConfig{
			Binary:     "mash",
			GenomeDir:  "genomes",
			KmerSize:   31,
			SketchSize: 100000,
			Threads:    1,
		},
		Download: DownloadConfig{
			OutputDir:      ".",
			DatasetsBinary: "datasets",
			BatchSize:      100,
			Delay:          95 * time.Second,
			MaxRetries:     5,
			MinSuccessRate: 0.95,
			BaseWait:       60 * time.Second,
			LinearPenalty:  10 * time.Second,
			MinBatches:     10,
			StartFromBatch: 1,
		},
		Visual: VisualConfig{QuicktreeBinary: "quicktree"},
		Finalize: FinalizeConfig{
			OutputDir:      "ksnp_input",
			DatasetsBinary: "datasets",
			PythonBinary:   "python3",
			ManagerScript:  "dataset-manager.py",
			GenomesSubdir:  "uncompressed",
			Workers:        4,
		},
	}
}

// setDefaults mirrors DefaultConfig into viper so env overrides of unset
// keys are honoured by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("cluster.distance_file", d.Cluster.DistanceFile)
	v.SetDefault("cluster.output_dir", d.Cluster.OutputDir)
	v.SetDefault("cluster.identity", d.Cluster.Identity)
	v.SetDefault("cluster.num_representatives", d.Cluster.NumRepresentatives)
	v.SetDefault("cluster.seed", d.Cluster.Seed)
	v.SetDefault("cluster.references", []string{})
	v.SetDefault("cluster.protect_references", d.Cluster.ProtectReferences)
	v.SetDefault("cluster.record_format", d.Cluster.RecordFormat)

	v.SetDefault("mash.binary", d.Mash.Binary)
	v.SetDefault("mash.genome_dir", d.Mash.GenomeDir)
	v.SetDefault("mash.prefix", d.Mash.Prefix)
	v.SetDefault("mash.no_filter", d.Mash.NoFilter)
	v.SetDefault("mash.kmer_size", d.Mash.KmerSize)
	v.SetDefault("mash.sketch_size", d.Mash.SketchSize)
	v.SetDefault("mash.threads", d.Mash.Threads)

	v.SetDefault("download.accession_file", d.Download.AccessionFile)
	v.SetDefault("download.output_dir", d.Download.OutputDir)
	v.SetDefault("download.datasets_binary", d.Download.DatasetsBinary)
	v.SetDefault("download.batch_size", d.Download.BatchSize)
	v.SetDefault("download.delay", d.Download.Delay)
	v.SetDefault("download.max_retries", d.Download.MaxRetries)
	v.SetDefault("download.min_success_rate", d.Download.MinSuccessRate)
	v.SetDefault("download.base_wait", d.Download.BaseWait)
	v.SetDefault("download.linear_penalty", d.Download.LinearPenalty)
	v.SetDefault("download.min_batches", d.Download.MinBatches)
	v.SetDefault("download.start_from_batch", d.Download.StartFromBatch)
	v.SetDefault("download.keep_zip", false)
	v.SetDefault("download.api_key", "")

	v.SetDefault("visualize.quicktree_binary", d.Visual.QuicktreeBinary)

	v.SetDefault("finalize.output_dir", d.Finalize.OutputDir)
	v.SetDefault("finalize.datasets_binary", d.Finalize.DatasetsBinary)
	v.SetDefault("finalize.python_binary", d.Finalize.PythonBinary)
	v.SetDefault("finalize.manager_script", d.Finalize.ManagerScript)
	v.SetDefault("finalize.genomes_subdir", d.Finalize.GenomesSubdir)
	v.SetDefault("finalize.workers", d.Finalize.Workers)
}

// Load reads configuration. An explicit path must exist; otherwise
// mashclust.toml is searched in dir and $HOME/.config/mashclust, and its
// absence yields defaults. A .env file in dir is loaded first if present.
func Load(explicitPath, dir string) (*Config, *viper.Viper, error) {
	if dir == "" {
		dir = "."
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, &ConfigError{Field: ".env", Message: err.Error()}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("download.api_key", EnvPrefix+"_DOWNLOAD_API_KEY", APIKeyEnv)

	v.SetConfigType("toml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(dir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	return &cfg, v, nil
}

var validate = validator.New()

// Validate checks field constraints and returns the first violation as a
// ConfigError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed %q constraint (value %v)", fe.ActualTag(), fe.Value()),
		}
	}
	return &ConfigError{Field: "config", Message: err.Error()}
}

// Save writes the configuration as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
