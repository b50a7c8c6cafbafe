// Package config loads and validates the TOML configuration shared by the
// daemon and the CLI.
//
// Load resolves the config file, applies defaults, normalizes paths, and
// validates the result. Validation is exhaustive: every violation found is
// reported together so a broken config can be fixed in one edit instead of
// one error at a time.
package config
