package tracker

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
)

// New selects the backend named in cfg. kv is required for the redis backend
// and payments for the store backend.
func New(cfg config.TrackerConfig, kv KeyValueStore, payments PaymentFinder) (Tracker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.TrackerBackendMemory:
		return NewMemory(cfg.TTL), nil
	case config.TrackerBackendRedis:
		if kv == nil {
			return nil, fmt.Errorf("redis tracker requires a redis client")
		}
		return NewRedis(kv, cfg.TTL), nil
	case "", config.TrackerBackendStore:
		if payments == nil {
			return nil, fmt.Errorf("store tracker requires a payment store")
		}
		return NewStore(payments), nil
	}
	return nil, fmt.Errorf("unsupported tracker backend %q", cfg.Backend)
}
