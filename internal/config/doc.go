// Package config loads, normalizes, and validates spool configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TELEGRAM_TOKEN and the hosting-platform PORT and URL variables. The Config
// type centralizes every knob the daemon and CLI need, so data/staging
// directories, the Telegram credentials, and tool binaries are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
