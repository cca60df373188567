package config

import (
	"io"
	"time"

	"github.com/spf13/pflag"
)

// flagValues are the global flags that precede the subcommand.
type flagValues struct {
	fs *pflag.FlagSet

	configFile       string
	server           string
	keystore         string
	journal          string
	timeout          time.Duration
	waitPollInterval time.Duration
}

// parseFlags reads the global flags and returns the remaining arguments.
//
//	-a, --server     address and port of the backend gRPC endpoint
//	-k, --keystore   path of the keystore file
//	-j, --journal    path of the local receipt journal, "" to disable
//	-t, --timeout    per-request timeout
//	    --poll       lock poll interval for withdraw --wait
//	-c, --config     config file
func parseFlags(args []string) (*flagValues, []string, error) {
	fv := &flagValues{fs: pflag.NewFlagSet("vaultctl", pflag.ContinueOnError)}
	fs := fv.fs
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&fv.configFile, "config", "c", "", "config file")
	fs.StringVarP(&fv.server, "server", "a", "", "address and port to access server")
	fs.StringVarP(&fv.keystore, "keystore", "k", "", "keystore file")
	fs.StringVarP(&fv.journal, "journal", "j", "", "local receipt journal")
	fs.DurationVarP(&fv.timeout, "timeout", "t", 0, "per-request timeout")
	fs.DurationVar(&fv.waitPollInterval, "poll", 0, "lock poll interval for withdraw --wait")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fv, fs.Args(), nil
}

// apply copies the flags that were set explicitly into cfg.
func (fv *flagValues) apply(cfg *Config) {
	if fv.fs.Changed("server") {
		cfg.ServerEndpointAddr = fv.server
	}
	if fv.fs.Changed("keystore") {
		cfg.KeystorePath = fv.keystore
	}
	if fv.fs.Changed("journal") {
		cfg.JournalPath = fv.journal
	}
	if fv.fs.Changed("timeout") {
		cfg.RequestTimeout = fv.timeout
	}
	if fv.fs.Changed("poll") {
		cfg.WaitPollInterval = fv.waitPollInterval
	}
}
