// Package enums holds the string-backed value sets stored in the orders,
// payments and outbox_events tables.
package enums

import (
	"fmt"
	"slices"
)

type stringEnum interface{ ~string }

func parseEnum[T stringEnum](kind, raw string, valid []T) (T, error) {
	if v := T(raw); slices.Contains(valid, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
