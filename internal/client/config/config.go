package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the vaultctl CLI.
type Config struct {
	ServerEndpointAddr string
	KeystorePath       string
	// JournalPath is the sqlite file of local receipts; empty disables it.
	JournalPath    string
	RequestTimeout time.Duration
	// WaitPollInterval is how often `withdraw --wait` re-checks the lock.
	WaitPollInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.KeystorePath = defaultPath("keystore.json")
	c.JournalPath = defaultPath("journal.db")
	c.RequestTimeout = 15 * time.Second
	c.WaitPollInterval = 5 * time.Second
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".alarmlock", name)
}

// LoadConfig builds a Config from defaults, then the optional config file,
// then the global flags in args. It returns the arguments left after the
// global flags, starting with the subcommand.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fv, rest, err := parseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if fv.configFile != "" {
		if err := parseFile(cfg, fv.configFile); err != nil {
			return nil, nil, err
		}
	}
	fv.apply(cfg)
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func (c *Config) validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.WaitPollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.WaitPollInterval)
	}
	return nil
}
