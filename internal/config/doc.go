// ABOUTME: Package documentation for the config package
// ABOUTME: YAML configuration with env expansion and duration parsing

// Package config loads the server configuration from a YAML file.
// Environment variables in ${VAR} form are expanded before parsing, and
// ticket lifetimes are given as duration strings ("8h", "10s"). Validation
// runs at load time so the server fails fast on a bad config.
package config
