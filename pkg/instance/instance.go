// Package instance names the running process in logs.
package instance

import "github.com/angelmondragon/checkout-reconciler/pkg/env"

// GetID returns the platform dyno or host name, or "local".
func GetID() string {
	return env.First("local", "DYNO", "HOSTNAME")
}
