// Package steamwatch provides embedded assets for the steamwatch daemon.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML], which the daemon copies to the data directory on
// first run.
package steamwatch

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. It is regenerated from config.ExampleConfig by cmd/genconfig.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
