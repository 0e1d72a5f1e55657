// Package config loads controller endpoint and credential settings from the
// environment and an optional JSON file.
package config
