package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-n int      login challenge validity, seconds
//	-i string   program id (hex)
//	-f uint     record deposit, base units
//	-x          enable airdrop (use -x=false to disable)
//	-m uint     airdrop limit per call, base units
//	-k string   Kafka brokers, comma separated
//	-q string   Kafka topic
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-w", "-d", "-s", "-t", "-n", "-i", "-f", "-x", "-m",
		"-k", "-q", "-u", "-p", "-b", "-g", "-e", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	challengeValidityDuration := fs.Int("n", int(config.ChallengeValidityDuration.Seconds()), "challenge_validity_duration (in seconds)")

	fs.StringVar(&config.ProgramID, "i", config.ProgramID, "program id")
	fs.Uint64Var(&config.RecordDeposit, "f", config.RecordDeposit, "record deposit")
	fs.BoolVar(&config.AirdropEnabled, "x", config.AirdropEnabled, "enable airdrop")
	fs.Uint64Var(&config.AirdropLimit, "m", config.AirdropLimit, "airdrop limit")

	kafkaBrokers := fs.String("k", strings.Join(config.KafkaBrokers, ","), "Kafka brokers")
	fs.StringVar(&config.KafkaTopic, "q", config.KafkaTopic, "Kafka topic")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.ChallengeValidityDuration = time.Duration(*challengeValidityDuration) * time.Second
	if brokers := flagx.SplitList(*kafkaBrokers); len(brokers) > 0 {
		config.KafkaBrokers = brokers
	}
}
