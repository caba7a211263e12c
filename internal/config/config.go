// Package config loads and persists the provvakt configuration document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "PROVVAKT_CONFIG"

// Defaults applied when the document omits the optional keys.
const (
	DefaultPollInterval         = 20 * time.Minute
	DefaultRenewalCheckInterval = 5 * time.Minute
	DefaultListenAddr           = "127.0.0.1:8080"
	DefaultDBPath               = "provvakt.db"
)

// Config holds the application configuration backed by a TOML document.
// The cookie table is written back after every successful session renewal,
// so a restart resumes from the last known-good credential set.
type Config struct {
	SwedishSSN           string
	UserAgent            string
	DBPath               string
	ListenAddr           string
	PollInterval         time.Duration
	RenewalCheckInterval time.Duration
	Cookies              model.CredentialSet
	Locations            map[model.ExamType][]int

	mu   sync.Mutex
	path string
}

// document is the raw on-disk shape. Durations are stored as Go duration
// strings ("20m", "1h30m") and parsed on load.
type document struct {
	SwedishSSN           string            `toml:"swedish_ssn"`
	UserAgent            string            `toml:"user_agent,omitempty"`
	DBPath               string            `toml:"db_path,omitempty"`
	ListenAddr           string            `toml:"listen_addr,omitempty"`
	PollInterval         string            `toml:"poll_interval,omitempty"`
	RenewalCheckInterval string            `toml:"renewal_check_interval,omitempty"`
	Cookies              map[string]string `toml:"cookies"`
	Locations            map[string][]int  `toml:"locations"`
}

// DefaultPath returns the config file location: $PROVVAKT_CONFIG when set,
// otherwise ~/.provvakt/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".provvakt", "config.toml"), nil
}

// Load reads and validates the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if doc.SwedishSSN == "" {
		return nil, fmt.Errorf("config %s: swedish_ssn is required", path)
	}

	cfg := &Config{
		SwedishSSN:           doc.SwedishSSN,
		UserAgent:            doc.UserAgent,
		DBPath:               doc.DBPath,
		ListenAddr:           doc.ListenAddr,
		PollInterval:         DefaultPollInterval,
		RenewalCheckInterval: DefaultRenewalCheckInterval,
		Cookies:              model.CredentialSet(doc.Cookies).Clone(),
		Locations:            make(map[model.ExamType][]int, len(doc.Locations)),
		path:                 path,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	if doc.PollInterval != "" {
		d, err := time.ParseDuration(doc.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("config %s: poll_interval has invalid duration %q: %w", path, doc.PollInterval, err)
		}
		cfg.PollInterval = d
	}
	if doc.RenewalCheckInterval != "" {
		d, err := time.ParseDuration(doc.RenewalCheckInterval)
		if err != nil {
			return nil, fmt.Errorf("config %s: renewal_check_interval has invalid duration %q: %w", path, doc.RenewalCheckInterval, err)
		}
		cfg.RenewalCheckInterval = d
	}

	for name, ids := range doc.Locations {
		et := model.ExamType(name)
		if !et.Valid() {
			return nil, fmt.Errorf("config %s: unknown exam type %q in [locations]", path, name)
		}
		cfg.Locations[et] = ids
	}

	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// SaveCookies replaces the stored cookie table with the given set and writes
// the full document back to disk. Called by the session manager after each
// successful renewal.
func (c *Config) SaveCookies(cookies model.CredentialSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Cookies = cookies.Clone()
	return c.write()
}

// write serializes the document and replaces the file on disk. Caller must
// hold c.mu.
func (c *Config) write() error {
	locations := make(map[string][]int, len(c.Locations))
	for et, ids := range c.Locations {
		locations[string(et)] = ids
	}

	doc := document{
		SwedishSSN:           c.SwedishSSN,
		UserAgent:            c.UserAgent,
		DBPath:               c.DBPath,
		ListenAddr:           c.ListenAddr,
		PollInterval:         c.PollInterval.String(),
		RenewalCheckInterval: c.RenewalCheckInterval.String(),
		Cookies:              c.Cookies,
		Locations:            locations,
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", c.path, err)
	}
	return nil
}
