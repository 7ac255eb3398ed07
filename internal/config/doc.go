// Package config loads the loom configuration.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A YAML or TOML file
//  3. .env files
//  4. LOOM_* environment variables
//
// The merged map is decoded into a Config and validated. Apply pushes the
// option changes between two configs into a live manager, and Reloader
// does that whenever the file changes on disk.
//
// Environment variables map to two-level paths: LOOM_STORE_PATH sets
// store.path and LOOM_LOG_MAX_SIZE sets log.maxSize. Extension options
// can only be set from the file.
package config
