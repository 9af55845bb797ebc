package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"content-aware-fill/internal/raster"
	"content-aware-fill/pkg/inpaint"

	"github.com/BurntSushi/toml"
)

// Config holds all configurable paths and fill settings.
type Config struct {
	// Paths
	ImageDir     string `json:"image_dir" toml:"image_dir"`
	MaskDir      string `json:"mask_dir" toml:"mask_dir"`
	OutputDir    string `json:"output_dir" toml:"output_dir"`
	OutputFormat string `json:"output_format" toml:"output_format"`

	// Fill settings
	PatchRadius   int    `json:"patch_radius" toml:"patch_radius"`
	Iterations    int    `json:"iterations" toml:"iterations"`
	Seed          uint64 `json:"seed" toml:"seed"`
	MaskChannel   string `json:"mask_channel" toml:"mask_channel"`
	MaskThreshold *int   `json:"mask_threshold,omitempty" toml:"mask_threshold,omitempty"`
	DilateMask    int    `json:"dilate_mask" toml:"dilate_mask"`
	NoBlend       bool   `json:"no_blend" toml:"no_blend"`
	TopK          int    `json:"top_k" toml:"top_k"`
	Space         string `json:"space" toml:"space"`

	// Output settings
	JPEGQuality int `json:"jpeg_quality" toml:"jpeg_quality"`
	ThumbSize   int `json:"thumb_size" toml:"thumb_size"`
	Workers     int `json:"workers" toml:"workers"`
}

// Load reads a config file and returns Config. Files ending in .toml are
// parsed as TOML, everything else as JSON.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// WriteTOML writes cfg as TOML, creating parent directories.
func WriteTOML(path string, cfg Config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, buffer.Bytes(), 0644)
}

// Flags holds CLI flag values that override config file settings.
// Zero values (and Threshold < 0) mean "not set".
type Flags struct {
	ImageDir   string
	MaskDir    string
	OutputDir  string
	Format     string
	Radius     int
	Iterations int
	Seed       uint64
	Channel    string
	Threshold  int
	Dilate     int
	NoBlend    bool
	TopK       int
	Space      string
	Quality    int
	Thumb      int
	Workers    int
}

// Resolve applies flag overrides, then fills in defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.ImageDir != "" {
		c.ImageDir = flags.ImageDir
	}
	if flags.MaskDir != "" {
		c.MaskDir = flags.MaskDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.OutputFormat = flags.Format
	}
	if flags.Radius > 0 {
		c.PatchRadius = flags.Radius
	}
	if flags.Iterations > 0 {
		c.Iterations = flags.Iterations
	}
	if flags.Seed > 0 {
		c.Seed = flags.Seed
	}
	if flags.Channel != "" {
		c.MaskChannel = flags.Channel
	}
	if flags.Threshold >= 0 {
		t := flags.Threshold
		c.MaskThreshold = &t
	}
	if flags.Dilate > 0 {
		c.DilateMask = flags.Dilate
	}
	if flags.NoBlend {
		c.NoBlend = true
	}
	if flags.TopK > 0 {
		c.TopK = flags.TopK
	}
	if flags.Space != "" {
		c.Space = flags.Space
	}
	if flags.Quality > 0 {
		c.JPEGQuality = flags.Quality
	}
	if flags.Thumb > 0 {
		c.ThumbSize = flags.Thumb
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	// Defaults
	def := inpaint.DefaultOptions()
	if c.PatchRadius <= 0 {
		c.PatchRadius = def.PatchRadius
	}
	if c.Iterations <= 0 {
		c.Iterations = def.Iterations
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	if c.MaskChannel == "" {
		c.MaskChannel = "r"
	}
	if c.MaskThreshold == nil {
		t := int(def.MaskThreshold)
		c.MaskThreshold = &t
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.Space == "" {
		c.Space = string(def.Space)
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "png"
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = 90
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Options converts the resolved settings into inpaint options.
func (c *Config) Options() (inpaint.Options, error) {
	o := inpaint.DefaultOptions()
	o.PatchRadius = c.PatchRadius
	o.Iterations = c.Iterations
	o.Seed = c.Seed
	o.DilateMask = c.DilateMask
	o.Blend = !c.NoBlend
	o.TopK = c.TopK

	ch, err := ParseChannel(c.MaskChannel)
	if err != nil {
		return inpaint.Options{}, err
	}
	o.MaskChannel = ch

	if c.MaskThreshold != nil {
		t := *c.MaskThreshold
		if t < 0 || t > 255 {
			return inpaint.Options{}, fmt.Errorf("config: mask threshold %d outside 0-255", t)
		}
		o.MaskThreshold = uint8(t)
	}

	space, err := raster.ParseSpace(c.Space)
	if err != nil {
		return inpaint.Options{}, fmt.Errorf("config: %w", err)
	}
	o.Space = space

	if err := o.Validate(); err != nil {
		return inpaint.Options{}, fmt.Errorf("config: %w", err)
	}
	return o, nil
}

// ParseChannel maps r/g/b/a (or red/green/blue/alpha, or 0-3) to a channel index.
func ParseChannel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "", "r", "red", "0":
		return 0, nil
	case "g", "green", "1":
		return 1, nil
	case "b", "blue", "2":
		return 2, nil
	case "a", "alpha", "3":
		return 3, nil
	}
	return 0, fmt.Errorf("config: unknown mask channel %q", s)
}
