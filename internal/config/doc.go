// Package config provides configuration structures and utilities for portdog.
// It defines the main configuration options for scanning, port specification
// parsing, and the optional per-target YAML configuration file.
package config
