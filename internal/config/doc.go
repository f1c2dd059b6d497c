// Package config loads vitrine's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/vitrine/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/blank, use defaults
//  5. VITRINE_API_URL and VITRINE_LOG_LEVEL override the file
//
// The command loads an optional .env file before calling Load, so the
// environment overrides can live next to the project.
//
// # Default Values
//
//   - api_url: http://127.0.0.1:8000
//   - page_size: 50 (clamped to 1..500)
//   - request_timeout: 5s
//   - rate_limit: 10 requests/second, rate_burst: 5 (rate_limit = 0 disables pacing)
//   - refresh_interval: unset (no background re-sync)
//   - log_file: ~/.local/state/vitrine/vitrine.log
//   - log_level: info
//
// # TOML Format
//
//	api_url = "https://catalog.internal:8000"
//	page_size = 25
//	request_timeout = "3s"
//	rate_limit = 5
//	refresh_interval = "30s"
//	log_level = "debug"
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files, TOML
// syntax errors (prefixed "parse config"), bad durations and values that fail
// Validate. A missing file is NOT an error.
package config
