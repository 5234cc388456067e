// Package config loads ethoimager settings from an optional YAML file and
// ETHOIMAGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers   = errors.New("annotation workers must be positive")
	ErrInvalidFPS       = errors.New("video fps must be positive")
	ErrInvalidPort      = errors.New("invalid server port")
	ErrInvalidPointSize = errors.New("label point size must be positive")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Default configuration values.
const (
	defaultWorkers   = 4
	defaultPointSize = 50
	defaultFPS       = 10
	defaultPort      = 8080
	defaultHost      = "127.0.0.1"
	maxPort          = 65535

	envPrefix = "ETHOIMAGER"
)

type Config struct {
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Annotate  AnnotateConfig  `mapstructure:"annotate"`
	Video     VideoConfig     `mapstructure:"video"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type SnapshotsConfig struct {
	DirName string `mapstructure:"dir_name"`
}

type AnnotateConfig struct {
	// Always forces annotation of every extracted frame.
	Always     bool          `mapstructure:"always"`
	Workers    int           `mapstructure:"workers"`
	Command    string        `mapstructure:"command"`
	PointSize  int           `mapstructure:"point_size"`
	Font       string        `mapstructure:"font"`
	Background string        `mapstructure:"background"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// Timezone of the burned-in label, "Local" by default.
	Timezone string `mapstructure:"timezone"`
}

type VideoConfig struct {
	Command string        `mapstructure:"command"`
	Codec   string        `mapstructure:"codec"`
	FPS     int           `mapstructure:"fps"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ArchiveRoot is the only directory tree the API reads archives from.
	ArchiveRoot string `mapstructure:"archive_root"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Location resolves the label timezone.
func (a AnnotateConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || strings.EqualFold(a.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid label timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// LoadConfig reads configPath, or ethoimager.yaml from the working directory
// and the user config directory when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("ethoimager")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			viperCfg.AddConfigPath(filepath.Join(dir, "ethoimager"))
		}
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

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("snapshots.dir_name", "IMG_SNAPSHOTS")

	viperCfg.SetDefault("annotate.always", false)
	viperCfg.SetDefault("annotate.workers", defaultWorkers)
	viperCfg.SetDefault("annotate.command", "convert")
	viperCfg.SetDefault("annotate.point_size", defaultPointSize)
	viperCfg.SetDefault("annotate.font", "FreeMono")
	viperCfg.SetDefault("annotate.background", "Khaki")
	viperCfg.SetDefault("annotate.timeout", "1m")
	viperCfg.SetDefault("annotate.timezone", "Local")

	viperCfg.SetDefault("video.command", "ffmpeg")
	viperCfg.SetDefault("video.codec", "libx264")
	viperCfg.SetDefault("video.fps", defaultFPS)
	viperCfg.SetDefault("video.timeout", "30m")

	viperCfg.SetDefault("server.host", defaultHost)
	viperCfg.SetDefault("server.port", defaultPort)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "0s")
	viperCfg.SetDefault("server.archive_root", ".")

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")
}

func validateConfig(config *Config) error {
	if config.Annotate.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Annotate.Workers)
	}

	if config.Annotate.PointSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPointSize, config.Annotate.PointSize)
	}

	if config.Video.FPS <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFPS, config.Video.FPS)
	}

	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if _, err := parseLevel(config.Logging.Level); err != nil {
		return err
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if _, err := config.Annotate.Location(); err != nil {
		return err
	}

	return nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
	return l, nil
}
