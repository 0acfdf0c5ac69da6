// Package config loads the trellis configuration file.
//
// Configuration lives at ~/.config/trellis/config.yaml. Every field has a
// built-in default, so the file is optional; a partial file overrides only
// the keys it names.
package config
