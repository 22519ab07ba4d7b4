package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	WorkDir      string `yaml:"work_dir" validate:"required"`
	VideoDir     string `yaml:"video_dir"`
	TemplatePath string `yaml:"template"`
	ReportDir    string `yaml:"report_dir"`

	DisplayWidth    int           `yaml:"display_width" validate:"gt=0"`
	DisplayHeight   int           `yaml:"display_height" validate:"gt=0"`
	SkipStep        time.Duration `yaml:"skip_step" validate:"gt=0"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gt=0"`

	LabelFont          string  `yaml:"label_font"`
	LabelFontSize      float64 `yaml:"label_font_size" validate:"gt=0"`
	LabelPadding       int     `yaml:"label_padding" validate:"gte=0"`
	ArrowWidth         float64 `yaml:"arrow_width" validate:"gt=0"`
	ArrowColor         string  `yaml:"arrow_color" validate:"hexcolor"`
	LabelBackground    string  `yaml:"label_background" validate:"hexcolor"`
	LabelForeground    string  `yaml:"label_foreground" validate:"hexcolor"`
	LabelSeparator     string  `yaml:"label_separator"`
	DefaultDescription string  `yaml:"default_description" validate:"required"`
	UnknownVideo       string  `yaml:"unknown_video" validate:"required"`

	MinFreeBytes uint64 `yaml:"min_free_bytes"`

	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	FFmpeg  string `yaml:"ffmpeg" validate:"required"`
	FFprobe string `yaml:"ffprobe" validate:"required"`
}

func Default() *Config {
	return &Config{
		WorkDir:            "output",
		VideoDir:           "input/video",
		TemplatePath:       "template.yaml",
		ReportDir:          "output",
		DisplayWidth:       1280,
		DisplayHeight:      720,
		SkipStep:           500 * time.Millisecond,
		RefreshInterval:    time.Second,
		LabelFontSize:      24,
		LabelPadding:       10,
		ArrowWidth:         3,
		ArrowColor:         "#ff0000",
		LabelBackground:    "#ff0000",
		LabelForeground:    "#ffffff",
		LabelSeparator:     "; ",
		DefaultDescription: "Marked with pointer",
		UnknownVideo:       "Unknown Video",
		MinFreeBytes:       16 << 20,
		LogLevel:           "info",
		LogFormat:          "text",
		FFmpeg:             "ffmpeg",
		FFprobe:            "ffprobe",
	}
}

// Load reads path over the defaults, then applies FRAME2REPORT_* variables
// from the environment and an optional .env file. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config read error: %v", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config parse error in %s: %v", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"FRAME2REPORT_WORK_DIR":   &c.WorkDir,
		"FRAME2REPORT_VIDEO_DIR":  &c.VideoDir,
		"FRAME2REPORT_TEMPLATE":   &c.TemplatePath,
		"FRAME2REPORT_REPORT_DIR": &c.ReportDir,
		"FRAME2REPORT_LABEL_FONT": &c.LabelFont,
		"FRAME2REPORT_LOG_LEVEL":  &c.LogLevel,
		"FRAME2REPORT_LOG_FORMAT": &c.LogFormat,
		"FRAME2REPORT_FFMPEG":     &c.FFmpeg,
		"FRAME2REPORT_FFPROBE":    &c.FFprobe,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("FRAME2REPORT_MIN_FREE_BYTES"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FRAME2REPORT_MIN_FREE_BYTES: %v", err)
		}
		c.MinFreeBytes = n
	}
	if v, ok := os.LookupEnv("FRAME2REPORT_SKIP_STEP"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FRAME2REPORT_SKIP_STEP: %v", err)
		}
		c.SkipStep = d
	}
	return nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	return nil
}

// NewLogger builds the application logger. Logs go to w so the console stays
// readable; pass a file or io.Discard.
func NewLogger(c *Config, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
