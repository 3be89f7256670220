package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/currency-api/internal/model"
	"github.com/Brownie44l1/currency-api/internal/vision"
)

// Config captures everything needed to run the recognizer.
type Config struct {
	Server  Server  `yaml:"server"`
	Model   Model   `yaml:"model"`
	Filter  Filter  `yaml:"filter"`
	Capture Capture `yaml:"capture"`
	Speech  Speech  `yaml:"speech"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Port        string `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	MaxPixels   int    `yaml:"max_pixels"`
	CORSOrigin  string `yaml:"cors_origin"`
}

type Model struct {
	Backend       string  `yaml:"backend"`
	Path          string  `yaml:"path"`
	Labels        string  `yaml:"labels"`
	Metadata      string  `yaml:"metadata"`
	SharedLibrary string  `yaml:"shared_library"`
	InputName     string  `yaml:"input_name"`
	OutputName    string  `yaml:"output_name"`
	Threads       int     `yaml:"threads"`
	ImageSize     int     `yaml:"image_size"`
	Layout        string  `yaml:"layout"`
	Threshold     float32 `yaml:"threshold"`
}

type Filter struct {
	Enabled   bool `yaml:"enabled"`
	Size      int  `yaml:"size"`
	Magnitude int  `yaml:"magnitude"`
	MinEdges  int  `yaml:"min_edges"`
}

type Capture struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

type Speech struct {
	Enabled bool              `yaml:"enabled"`
	Command string            `yaml:"command"`
	Voice   string            `yaml:"voice"`
	Rate    int               `yaml:"rate"`
	Pitch   int               `yaml:"pitch"`
	Repeat  int               `yaml:"repeat"`
	Pause   time.Duration     `yaml:"pause"`
	Names   map[string]string `yaml:"names"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// Default mirrors the bundled float TFLite currency model.
func Default() *Config {
	return &Config{
		Server: Server{Port: "8080", MaxUploadMB: 10, MaxPixels: vision.DefaultMaxPixels, CORSOrigin: "*"},
		Model: Model{
			Path:      "models/model_currency_float.tflite",
			Labels:    "models/labels.txt",
			Threads:   2,
			Threshold: model.DefaultThreshold,
		},
		Filter: Filter{
			Enabled:   true,
			Size:      vision.DefaultEdgeSize,
			Magnitude: vision.DefaultEdgeMagnitude,
			MinEdges:  vision.DefaultMinEdges,
		},
		Capture: Capture{Cooldown: time.Second},
		Speech: Speech{
			Command: "espeak-ng",
			Voice:   "en-us",
			Rate:    150,
			Pitch:   55,
			Repeat:  2,
			Pause:   1500 * time.Millisecond,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Port      string
	Backend   string
	ModelPath string
	Labels    string
	Threshold *float32
	Speak     bool
	LogLevel  string
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	return LoadFrom(path, Default())
}

// LoadFrom is Load with caller supplied defaults; cfg is modified in place.
func LoadFrom(path string, cfg *Config) (*Config, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, &model.OpError{Op: "config.load", Kind: model.KindNotFound, Path: path, Err: err}
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, &model.OpError{Op: "config.load", Kind: model.KindInvalidInput, Path: path, Err: err}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, &model.OpError{Op: "config.validate", Kind: model.KindInvalidInput, Path: path, Err: err}
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("CURRENCY_BACKEND"); ok && v != "" {
		c.Model.Backend = v
	}
	if v, ok := lookup("CURRENCY_MODEL"); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := lookup("CURRENCY_LABELS"); ok && v != "" {
		c.Model.Labels = v
	}
	if v, ok := lookup("ONNXRUNTIME_LIB"); ok && v != "" {
		c.Model.SharedLibrary = v
	}
	if v, ok := lookup("CURRENCY_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("CURRENCY_THRESHOLD: %w", err)
		}
		c.Model.Threshold = float32(f)
	}
	if v, ok := lookup("CURRENCY_SPEECH"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CURRENCY_SPEECH: %w", err)
		}
		c.Speech.Enabled = b
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// ApplyOverrides updates c using any non-zero override. Threshold is a
// pointer so an explicit zero still applies.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Port != "" {
		c.Server.Port = o.Port
	}
	if o.Backend != "" {
		c.Model.Backend = o.Backend
	}
	if o.ModelPath != "" {
		c.Model.Path = o.ModelPath
	}
	if o.Labels != "" {
		c.Model.Labels = o.Labels
	}
	if o.Threshold != nil {
		c.Model.Threshold = *o.Threshold
	}
	if o.Speak {
		c.Speech.Enabled = true
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Model.Path == "" {
		return errors.New("model.path must be set")
	}
	if c.Model.Labels == "" {
		return errors.New("model.labels must be set")
	}
	if _, err := c.EngineConfig().ResolveBackend(); err != nil {
		return fmt.Errorf("model.backend: %w", err)
	}
	if c.Model.ImageSize < 0 {
		return fmt.Errorf("model.image_size must be >= 0, got %d", c.Model.ImageSize)
	}
	if _, err := vision.ParseLayout(c.Model.Layout); err != nil {
		return fmt.Errorf("model.layout: %w", err)
	}
	if c.Model.Threshold < 0 || c.Model.Threshold >= 1 {
		return fmt.Errorf("model.threshold must be in [0,1), got %v", c.Model.Threshold)
	}
	if c.Filter.Enabled {
		if c.Filter.Size < 3 {
			return fmt.Errorf("filter.size must be >= 3, got %d", c.Filter.Size)
		}
		if c.Filter.Magnitude <= 0 || c.Filter.MinEdges < 0 {
			return errors.New("filter.magnitude must be > 0 and filter.min_edges >= 0")
		}
	}
	if c.Capture.Cooldown < 0 {
		return errors.New("capture.cooldown must not be negative")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.MaxPixels <= 0 {
		return fmt.Errorf("server.max_pixels must be > 0, got %d", c.Server.MaxPixels)
	}
	if c.Speech.Enabled && c.Speech.Command == "" {
		return errors.New("speech.command must be set when speech is enabled")
	}
	return nil
}

func (c *Config) EngineConfig() model.EngineConfig {
	return model.EngineConfig{
		Backend:       c.Model.Backend,
		ModelPath:     c.Model.Path,
		MetadataPath:  c.Model.Metadata,
		SharedLibrary: c.Model.SharedLibrary,
		InputName:     c.Model.InputName,
		OutputName:    c.Model.OutputName,
		Threads:       c.Model.Threads,
	}
}

func (c *Config) EdgeFilter() vision.EdgeFilter {
	return vision.EdgeFilter{Size: c.Filter.Size, Magnitude: c.Filter.Magnitude, MinEdges: c.Filter.MinEdges}
}

func (c *Config) Preprocessor() vision.Preprocessor {
	layout, _ := vision.ParseLayout(c.Model.Layout)
	return vision.Preprocessor{Size: c.Model.ImageSize, Layout: layout}
}
