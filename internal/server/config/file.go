package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/alarmlock/internal/flagx"
	"github.com/dmitrijs2005/alarmlock/internal/timex"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for decoding config files. Durations use
// timex.Duration so both "1m" and integer nanoseconds are accepted. Pointer
// fields distinguish "absent" from a zero value, so a partial file only
// overrides what it names.
type FileConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	ChallengeValidityDuration   *timex.Duration `json:"challenge_validity_duration" yaml:"challenge_validity_duration"`
	ProgramID                   *string         `json:"program_id" yaml:"program_id"`
	RecordDeposit               *uint64         `json:"record_deposit" yaml:"record_deposit"`
	AirdropEnabled              *bool           `json:"airdrop_enabled" yaml:"airdrop_enabled"`
	AirdropLimit                *uint64         `json:"airdrop_limit" yaml:"airdrop_limit"`
	KafkaBrokers                []string        `json:"kafka_brokers" yaml:"kafka_brokers"`
	KafkaTopic                  *string         `json:"kafka_topic" yaml:"kafka_topic"`
	S3RootUser                  *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel                    *string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads configuration values from the file named by the -c or
// -config flag. Files ending in .yaml or .yml are decoded as YAML, anything
// else as JSON with comments and trailing commas allowed. Without the flag nothing is loaded. An unreadable or
// malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFile(os.Args[1:])

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ChallengeValidityDuration != nil {
		config.ChallengeValidityDuration = c.ChallengeValidityDuration.Duration
	}
	setString(&config.ProgramID, c.ProgramID)
	if c.RecordDeposit != nil {
		config.RecordDeposit = *c.RecordDeposit
	}
	if c.AirdropEnabled != nil {
		config.AirdropEnabled = *c.AirdropEnabled
	}
	if c.AirdropLimit != nil {
		config.AirdropLimit = *c.AirdropLimit
	}
	if c.KafkaBrokers != nil {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
