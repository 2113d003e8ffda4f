// Package config provides configuration loading and validation for revertfang.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidMaxVersions = errors.New("max_num_versions must be positive")
	ErrInvalidWindow      = errors.New("motif window must be positive")
	ErrInvalidCandidates  = errors.New("unknown candidate mode")
	ErrInvalidFormat      = errors.New("unknown output format")
	ErrInvalidBins        = errors.New("histogram bins must be positive")
	ErrInvalidYRange      = errors.New("histogram y range must satisfy 0 < y_min < y_max")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
)

const (
	configName   = "revertfang"
	configType   = "yaml"
	envPrefix    = "REVERTFANG"
	envFileName  = ".env"
	logFormatTxt = "text"
	logFormatJSN = "json"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPlot = "plot"
)

// Candidate modes, mirrored from the revert package to keep config free of domain imports.
var candidateModes = []string{"auto", "flagged", "recurring", "all"}

// Config holds all configuration for a revertfang run.
type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AnalysisConfig controls revert detection and motif matching.
type AnalysisConfig struct {
	Candidates     string        `mapstructure:"candidates"`
	Window         time.Duration `mapstructure:"window"`
	MaxNumVersions int           `mapstructure:"max_num_versions"`
}

// OutputConfig controls how results are written.
type OutputConfig struct {
	Format string  `mapstructure:"format"`
	Title  string  `mapstructure:"title"`
	Bins   int     `mapstructure:"bins"`
	YMin   float64 `mapstructure:"y_min"`
	YMax   float64 `mapstructure:"y_max"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
	MetricsFile  string `mapstructure:"metrics_file"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// SlogLevel parses Logging.Level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level

	err := lvl.UnmarshalText([]byte(c.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	return lvl, nil
}

// JSON reports whether logs should be JSON formatted.
func (c LoggingConfig) JSON() bool {
	return c.Format == logFormatJSN
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	_, statErr := os.Stat(envFileName)
	if statErr != nil {
		return nil //nolint:nilerr // a missing .env is the common case.
	}

	err := godotenv.Load(envFileName)
	if err != nil {
		return fmt.Errorf("load %s: %w", envFileName, err)
	}

	return nil
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches ./revertfang.yaml, ./config and /etc/revertfang;
// a missing file is not an error. The result is not validated: callers apply
// their overrides first and then call Validate.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType(configType)
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/revertfang")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("analysis.max_num_versions", DefaultMaxNumVersions)
	viperCfg.SetDefault("analysis.window", DefaultWindow)
	viperCfg.SetDefault("analysis.candidates", DefaultCandidates)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.title", DefaultTitle)
	viperCfg.SetDefault("output.bins", DefaultBins)
	viperCfg.SetDefault("output.y_min", DefaultYMin)
	viperCfg.SetDefault("output.y_max", DefaultYMax)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", logFormatTxt)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.metrics_file", "")
}

// Validate checks a configuration after flags and files have been applied.
func Validate(config *Config) error {
	if config.Analysis.MaxNumVersions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxVersions, config.Analysis.MaxNumVersions)
	}

	if config.Analysis.Window <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, config.Analysis.Window)
	}

	if !slices.Contains(candidateModes, config.Analysis.Candidates) {
		return fmt.Errorf("%w: %q", ErrInvalidCandidates, config.Analysis.Candidates)
	}

	if !slices.Contains([]string{FormatText, FormatJSON, FormatYAML, FormatPlot}, config.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	if config.Output.Bins <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBins, config.Output.Bins)
	}

	if config.Output.YMin <= 0 || config.Output.YMin >= config.Output.YMax {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidYRange, config.Output.YMin, config.Output.YMax)
	}

	_, lvlErr := config.Logging.SlogLevel()
	if lvlErr != nil {
		return lvlErr
	}

	if config.Logging.Format != logFormatTxt && config.Logging.Format != logFormatJSN {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return nil
}
