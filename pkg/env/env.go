// Package env reads raw environment variables for the handful of knobs that
// sit outside the envconfig-loaded config, like LOG_FORMAT.
package env

import "os"

// Get returns the variable's value, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
