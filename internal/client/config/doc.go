// Package config loads runtime configuration for the vaultctl CLI.
//
// Sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file named by -c or --config. Comments are allowed.
//  3. Global flags given before the subcommand.
//
// Example file:
//
//	{
//	  // local development server
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "keystore_path": "/home/me/.alarmlock/keystore.json",
//	  "journal_path": "/home/me/.alarmlock/journal.db",
//	  "request_timeout": "15s",
//	}
package config
