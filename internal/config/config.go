package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/planbiir/gpxmerge/internal/logging"
	"github.com/planbiir/gpxmerge/internal/merge"
)

// EnvPrefix prefixes environment overrides, e.g. GPXMERGE_TITLE.
const EnvPrefix = "GPXMERGE"

// Config is the on-disk configuration of the command line tools.
type Config struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	ActivityType string   `yaml:"activity_type"`
	MergedName   string   `yaml:"merged_name"`
	OutputDir    string   `yaml:"output_dir"`
	LogLevel     string   `yaml:"log_level"`
	Mode         string   `yaml:"mode"`
	Files        []string `yaml:"files"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := merge.DefaultConfig()
	return Config{
		Title:      d.Title,
		MergedName: d.MergedName,
		OutputDir:  "output",
		LogLevel:   "info",
		Mode:       string(d.Mode),
	}
}

// Load reads path (if not empty), applies GPXMERGE_* environment overrides
// and fills in defaults for anything left unset.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for key, dst := range map[string]*string{
		"title":         &cfg.Title,
		"description":   &cfg.Description,
		"activity_type": &cfg.ActivityType,
		"merged_name":   &cfg.MergedName,
		"output_dir":    &cfg.OutputDir,
		"log_level":     &cfg.LogLevel,
		"mode":          &cfg.Mode,
	} {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	if s := v.GetString("files"); s != "" {
		cfg.Files = SplitList(s)
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.MergedName == "" {
		c.MergedName = d.MergedName
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if _, err := merge.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if strings.ContainsAny(c.MergedName, `/\`) {
		return fmt.Errorf("invalid config: merged_name %q must be a file name", c.MergedName)
	}
	return nil
}

// Processing converts the configuration into processor settings.
func (c Config) Processing() (merge.Config, error) {
	mode, err := merge.ParseMode(c.Mode)
	if err != nil {
		return merge.Config{}, err
	}
	return merge.Config{
		Mode:         mode,
		Files:        c.Files,
		Title:        c.Title,
		Description:  c.Description,
		ActivityType: c.ActivityType,
		MergedName:   c.MergedName,
	}, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
