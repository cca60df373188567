package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/timex"
	"github.com/tidwall/jsonc"
)

// FileConfig is the on-disk form of Config. Comments and trailing commas
// are allowed.
type FileConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	KeystorePath       *string         `json:"keystore_path"`
	JournalPath        *string         `json:"journal_path"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	WaitPollInterval   *timex.Duration `json:"wait_poll_interval"`
}

func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.KeystorePath != nil {
		cfg.KeystorePath = *fc.KeystorePath
	}
	if fc.JournalPath != nil {
		cfg.JournalPath = *fc.JournalPath
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeout.Duration)
	}
	if fc.WaitPollInterval != nil {
		cfg.WaitPollInterval = time.Duration(fc.WaitPollInterval.Duration)
	}
	return nil
}
