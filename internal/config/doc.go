// Package config loads the MoveGPT runtime configuration from a JSON, YAML or
// TOML file, a .env file and a handful of environment variables, then fills
// in defaults and resolves relative paths against the file's directory.
package config
