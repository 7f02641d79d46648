// Package env reads platform-provided variables that sit outside the
// CHECKOUT_ config namespace, such as PORT, DYNO and HOSTNAME.
package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among keys, else fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}
