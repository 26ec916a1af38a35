// Package config loads and validates application configuration from
// environment variables (POSGATE_ prefix) with an optional posgate.yml
// file. The legacy ADMIN_TOKEN and LICENSE_DB variables from the original
// deployment are still honored.
package config
