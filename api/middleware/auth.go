package middleware

import (
	"net/http"

	"github.com/angelmondragon/checkout-reconciler/api/responses"
	"github.com/angelmondragon/checkout-reconciler/pkg/auth"
	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
)

// Auth admits requests carrying a valid buyer token and stores the buyer id
// on the context. Failures answer 401 before the handler runs.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buyer, err := auth.Verify(cfg, r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithUserID(r.Context(), buyer)
			if logg != nil {
				ctx = logg.WithUserID(ctx, buyer)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
