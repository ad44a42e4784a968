// Package config defines configuration for the maestro CLI.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones: a YAML file, MAESTRO_* environment variables, and
// command-line flags.
package config
