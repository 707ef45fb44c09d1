// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from a project-local vaultpack.cue, falling back to
// ~/.config/vaultpack/config.cue (or the XDG equivalent on Linux, ~/Library/Application
// Support/vaultpack/config.cue on macOS, %APPDATA%\vaultpack\config.cue on Windows).
// The package provides type-safe configuration access for content source locations,
// output settings, embedded artifacts, duplicate and coverage policies, resource
// filtering, and watch mode.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to
// ensure type safety and provide clear error messages for invalid configurations.
package config
