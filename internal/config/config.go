// Package config loads kagebunshin settings from config.yaml, .env and KAGEBUNSHIN_ variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ayusman/kagebunshin/internal/detector"
	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/recorder"
	"github.com/ayusman/kagebunshin/internal/smoke"
	"github.com/ayusman/kagebunshin/internal/timeline"
)

// EnvPrefix prefixes every environment override, e.g. KAGEBUNSHIN_SERVER_ADDR.
const EnvPrefix = "KAGEBUNSHIN"

// Config is the full application configuration.
type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Detector DetectorConfig `mapstructure:"detector"`
	Gesture  GestureConfig  `mapstructure:"gesture"`
	Smoke    SmokeConfig    `mapstructure:"smoke"`
	Render   RenderConfig   `mapstructure:"render"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Train    TrainConfig    `mapstructure:"train"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Hooks    HooksConfig    `mapstructure:"hooks"`
	Tray     TrayConfig     `mapstructure:"tray"`
	Log      LogConfig      `mapstructure:"log"`
}

type CameraConfig struct {
	DeviceID int `mapstructure:"device_id"`
	Width    int `mapstructure:"width"`
	Height   int `mapstructure:"height"`
	FPS      int `mapstructure:"fps"`
	// File plays a recorded video instead of the device.
	File string `mapstructure:"file"`
}

type DetectorConfig struct {
	MaxHands          int     `mapstructure:"max_hands"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
	MinTrackingConf   float64 `mapstructure:"min_tracking_confidence"`
	ModelComplexity   int     `mapstructure:"model_complexity"`
	SegmentationModel int     `mapstructure:"segmentation_model"`
	ScriptPath        string  `mapstructure:"script_path"`
	// Mock replaces MediaPipe with a detector that never sees hands.
	Mock bool `mapstructure:"mock"`
}

type GestureConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	// ModelPath loads a JSON model file instead of the active model in the store.
	ModelPath string `mapstructure:"model_path"`
}

type SmokeConfig struct {
	AssetsDir  string        `mapstructure:"assets_dir"`
	Folders    []string      `mapstructure:"folders"`
	FrameCount int           `mapstructure:"frame_count"`
	Duration   time.Duration `mapstructure:"duration"`
	Seed       int64         `mapstructure:"seed"`
}

type RenderConfig struct {
	Window     bool   `mapstructure:"window"`
	WindowName string `mapstructure:"window_name"`
	Skeleton   bool   `mapstructure:"skeleton"`
	Watermark  string `mapstructure:"watermark"`
	// FormationFile overrides the built-in clone formation.
	FormationFile string `mapstructure:"formation_file"`
	JPEGQuality   int    `mapstructure:"jpeg_quality"`
}

type RecorderConfig struct {
	Countdown time.Duration `mapstructure:"countdown"`
	Duration  time.Duration `mapstructure:"duration"`
}

type TrainConfig struct {
	Epochs       int     `mapstructure:"epochs"`
	BatchSize    int     `mapstructure:"batch_size"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Seed         int64   `mapstructure:"seed"`
	// Hidden layer widths; empty trains logistic regression.
	Hidden []int `mapstructure:"hidden"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	// StaticDir serves the trainer web UI when set.
	StaticDir string `mapstructure:"static_dir"`
	// ConfidenceRate limits confidence events pushed to websocket clients per second.
	ConfidenceRate float64 `mapstructure:"confidence_rate"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type HooksConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	NoColors   bool   `mapstructure:"no_colors"`
}

// DefaultDataDir returns ~/.kagebunshin, or .kagebunshin when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kagebunshin"
	}
	return filepath.Join(home, ".kagebunshin")
}

func setDefaults(v *viper.Viper) {
	dataDir := DefaultDataDir()
	v.SetDefault("data_dir", dataDir)

	v.SetDefault("camera.device_id", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.file", "")

	det := detector.DefaultConfig()
	v.SetDefault("detector.max_hands", det.MaxHands)
	v.SetDefault("detector.min_confidence", det.MinConfidence)
	v.SetDefault("detector.min_tracking_confidence", det.MinTrackingConf)
	v.SetDefault("detector.model_complexity", det.ModelComplexity)
	v.SetDefault("detector.segmentation_model", det.SegmentationModel)
	v.SetDefault("detector.script_path", "")
	v.SetDefault("detector.mock", false)

	v.SetDefault("gesture.threshold", gesture.DefaultThreshold)
	v.SetDefault("gesture.model_path", "")

	v.SetDefault("smoke.assets_dir", "assets")
	v.SetDefault("smoke.folders", smoke.DefaultFolders)
	v.SetDefault("smoke.frame_count", smoke.DefaultFrameCount)
	v.SetDefault("smoke.duration", smoke.DefaultDuration)
	v.SetDefault("smoke.seed", 0)

	v.SetDefault("render.window", true)
	v.SetDefault("render.window_name", "Kage Bunshin no Jutsu")
	v.SetDefault("render.skeleton", true)
	v.SetDefault("render.watermark", "")
	v.SetDefault("render.formation_file", "")
	v.SetDefault("render.jpeg_quality", 80)

	v.SetDefault("recorder.countdown", recorder.DefaultCountdown)
	v.SetDefault("recorder.duration", recorder.DefaultDuration)

	train := gesture.DefaultTrainOptions()
	v.SetDefault("train.epochs", train.Epochs)
	v.SetDefault("train.batch_size", train.BatchSize)
	v.SetDefault("train.learning_rate", train.LearningRate)
	v.SetDefault("train.seed", train.Seed)
	v.SetDefault("train.hidden", []int{})

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.confidence_rate", 10.0)

	v.SetDefault("store.path", filepath.Join(dataDir, "kagebunshin.db"))

	v.SetDefault("hooks.dir", filepath.Join(dataDir, "hooks"))
	v.SetDefault("hooks.timeout", 5*time.Second)

	v.SetDefault("tray.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.no_colors", false)
}

// New returns a viper instance with defaults, env bindings and the config search path.
// configFile, when non-empty, is the only file read.
func New(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	}
	return v
}

// LoadEnv loads .env from the working directory into the environment. A
// missing file is not an error.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads .env (when present), the config file and the environment into a Config.
func Load(configFile string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	return FromViper(New(configFile), configFile != "")
}

// FromViper reads and decodes v. A missing config file is only an error when required.
func FromViper(v *viper.Viper, required bool) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	var errs []error
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d must be positive", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera fps %d must be positive", c.Camera.FPS))
	}
	if c.Gesture.Threshold <= 0 || c.Gesture.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("gesture threshold %v must be in (0, 1)", c.Gesture.Threshold))
	}
	if len(c.Smoke.Folders) == 0 {
		errs = append(errs, errors.New("smoke folders must not be empty"))
	}
	if c.Smoke.FrameCount <= 0 {
		errs = append(errs, fmt.Errorf("smoke frame count %d must be positive", c.Smoke.FrameCount))
	}
	if c.Smoke.Duration <= 0 {
		errs = append(errs, fmt.Errorf("smoke duration %v must be positive", c.Smoke.Duration))
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality %d must be in [1, 100]", c.Render.JPEGQuality))
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required when the server is enabled"))
	}
	return errors.Join(errs...)
}

// DetectorSettings converts to the detector package configuration.
func (c *Config) DetectorSettings() detector.Config {
	return detector.Config{
		MaxHands:          c.Detector.MaxHands,
		MinConfidence:     c.Detector.MinConfidence,
		MinTrackingConf:   c.Detector.MinTrackingConf,
		ModelComplexity:   c.Detector.ModelComplexity,
		SegmentationModel: c.Detector.SegmentationModel,
		ScriptPath:        c.Detector.ScriptPath,
	}
}

// SmokeSettings converts to the smoke package configuration.
func (c *Config) SmokeSettings() smoke.Config {
	return smoke.Config{
		AssetsDir:  c.Smoke.AssetsDir,
		Folders:    c.Smoke.Folders,
		FrameCount: c.Smoke.FrameCount,
		Duration:   c.Smoke.Duration,
	}
}

// TrainSettings converts to trainer options.
func (c *Config) TrainSettings() gesture.TrainOptions {
	opts := gesture.DefaultTrainOptions()
	opts.Epochs = c.Train.Epochs
	opts.BatchSize = c.Train.BatchSize
	opts.LearningRate = c.Train.LearningRate
	opts.Seed = c.Train.Seed
	opts.Hidden = c.Train.Hidden
	return opts
}

// RecorderSettings converts to recorder options.
func (c *Config) RecorderSettings() recorder.Options {
	return recorder.Options{
		Countdown: c.Recorder.Countdown,
		Duration:  c.Recorder.Duration,
	}
}

// Formation returns the configured clone formation.
func (c *Config) Formation() ([]timeline.ActorConfig, error) {
	if c.Render.FormationFile == "" {
		return timeline.DefaultFormation(), nil
	}
	f, err := timeline.LoadFormation(c.Render.FormationFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load formation: %w", err)
	}
	return f, nil
}
