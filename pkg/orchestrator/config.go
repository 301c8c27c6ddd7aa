package orchestrator

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the deployment-level settings a registry applies to every
// render. The zero value is usable: compact output, no base path, no
// static asset scanning.
type Config struct {
	// BaseURL is prepended when resolving relative local URLs against the
	// hash cache.
	BaseURL string `yaml:"base_url"`

	// Pretty switches default output to indented human-readable markup.
	// Request options can still override per render.
	Pretty bool `yaml:"pretty"`

	// Indent is the per-level indent string used when pretty-printing.
	Indent string `yaml:"indent"`

	// StaticDir, when set, is scanned at startup to build the content-hash
	// cache for local asset URLs.
	StaticDir string `yaml:"static_dir"`

	// StaticPrefix is the URL prefix the files under StaticDir are served
	// from. Defaults to "/static".
	StaticPrefix string `yaml:"static_prefix"`

	// URLAttributes lists extra "tag.attr" pairs to treat as URL-valued
	// beyond the HTML specification's own set.
	URLAttributes []string `yaml:"url_attributes"`
}

// LoadConfig reads a YAML configuration file. Environment variables
// override the file's values afterwards; a .env file in the working
// directory is folded into the environment first when present.
func LoadConfig(path string) (Config, error) {
	// Missing .env is the common case outside development.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("orchestrator: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("orchestrator: parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MODELVIEW_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("MODELVIEW_PRETTY"); v != "" {
		if pretty, err := strconv.ParseBool(v); err == nil {
			c.Pretty = pretty
		}
	}
	if v := os.Getenv("MODELVIEW_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("MODELVIEW_STATIC_PREFIX"); v != "" {
		c.StaticPrefix = v
	}
}
