// Package render ties the pipeline together: it loads a job configuration,
// parses the module, renders audio and video off the same timeline, and
// packages the result. It also carries the job queue and the render cache the
// batch tooling uses.
package render

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is one render job's parameters, loadable from YAML. The JSON tags
// exist for the queue, which stores jobs as JSON files.
type Config struct {
	ModulePath string `yaml:"module" json:"module"`

	AudioFolders []string `yaml:"audio_folders" json:"audio_folders"`
	VideoFolders []string `yaml:"video_folders" json:"video_folders"`
	ImageFolders []string `yaml:"image_folders" json:"image_folders"`
	PluginFolder string   `yaml:"plugin_folder" json:"plugin_folder"`

	RowSeconds float64 `yaml:"row_seconds" json:"row_seconds"`
	MaxSeconds float64 `yaml:"max_seconds" json:"max_seconds"` // 0 = unbounded

	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	FPS    int `yaml:"fps" json:"fps"`

	OutputDir    string   `yaml:"output_dir" json:"output_dir"`
	AudioBitrate string   `yaml:"audio_bitrate" json:"audio_bitrate"`
	AudioPlugins []string `yaml:"audio_plugins" json:"audio_plugins"`
	VideoPlugins []string `yaml:"video_plugins" json:"video_plugins"`
	Seed         int64    `yaml:"seed" json:"seed"`
}

// LoadConfig reads a YAML config file and fills in defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.ApplyDefaults()
	return c, nil
}

// ApplyDefaults fills zero fields with the pipeline defaults.
func (c *Config) ApplyDefaults() {
	if c.RowSeconds <= 0 {
		c.RowSeconds = 0.25
	}
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.FPS <= 0 {
		c.FPS = 24
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.AudioBitrate == "" {
		c.AudioBitrate = "192k"
	}
}

// Validate reports config errors a job cannot recover from.
func (c *Config) Validate() error {
	if c.ModulePath == "" {
		return fmt.Errorf("config: module path is required")
	}
	if c.RowSeconds <= 0 {
		return fmt.Errorf("config: row_seconds must be positive, got %v", c.RowSeconds)
	}
	if c.MaxSeconds < 0 {
		return fmt.Errorf("config: max_seconds must not be negative, got %v", c.MaxSeconds)
	}
	return nil
}
