// Package config loads, normalizes, and validates Watcher configuration.
//
// Configuration is read from ~/.config/watcher/config.toml (or ./watcher.toml
// in the working directory), overlaid with environment variables, and then
// normalized so every path is absolute. Defaults cover every value, so a
// missing file is not an error.
package config
