package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete client configuration, loadable from environment
// variables (MENUX_ prefix) or YAML config files. Command-specific flags stay
// with each binary; the loader skips flag parsing.
type Config struct {
	BaseURL       string        `default:"" usage:"Platform API base URL (MENUX_BASE_URL)"`
	PublicBaseURL string        `default:"" usage:"Guest menu site base URL, used for QR targets"`
	Slug          string        `usage:"Restaurant slug this client operates on"`
	StateDir      string        `default:"" usage:"Directory for session and credential files"`
	PollInterval  time.Duration `default:"5s" usage:"Order refresh cadence"`
	HTTPTimeout   time.Duration `default:"0s" usage:"Per-request HTTP timeout, 0 leaves polling untimed"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then fills in derived defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MENUX",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/menux/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("API base URL is required: set MENUX_BASE_URL")
	}
	if cfg.Slug == "" {
		return nil, errors.New("restaurant slug is required: set MENUX_SLUG")
	}

	return &cfg, nil
}

// applyDefaults derives the public site from the API host and places state
// under the user's config directory when not set explicitly.
func (c *Config) applyDefaults() error {
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = c.BaseURL
	}
	if c.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return errors.Wrap(err, "resolve config dir")
		}
		c.StateDir = filepath.Join(dir, "menux")
	}
	return nil
}

// SessionFile is the path of the per-device order session registry.
func (c *Config) SessionFile() string {
	return filepath.Join(c.StateDir, "sessions.json")
}

// CredentialFile is the path of the stored staff token.
func (c *Config) CredentialFile() string {
	return filepath.Join(c.StateDir, "credentials.json")
}
