// Package verify authenticates inbound webhook deliveries per provider.
package verify

import (
	"context"
	"net/http"

	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	"github.com/angelmondragon/checkout-reconciler/pkg/config"
)

// Outcome describes how a delivery was authenticated.
type Outcome string

const (
	OutcomeVerified   Outcome = "verified"
	OutcomeTrusted    Outcome = "trusted"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeBypassed   Outcome = "test_bypass"
	OutcomeUnsigned   Outcome = "unsigned"
	OutcomeUnresolved Outcome = "unresolved"
)

// Warn reports whether the delivery was accepted without real authentication.
func (o Outcome) Warn() bool {
	return o == OutcomeBypassed || o == OutcomeUnsigned || o == OutcomeUnresolved
}

// Verifier checks a delivery in two phases: the raw request before parsing,
// and the normalized event after it.
type Verifier interface {
	VerifyPayload(ctx context.Context, headers http.Header, body []byte) (Outcome, error)
	VerifyEvent(ctx context.Context, event normalize.Event) (Outcome, error)
}

// Policy decides what happens when a secret or signature is missing.
type Policy struct {
	Strict        bool
	Production    bool
	AllowUnsigned bool
	// TestSignature bypasses verification outside production.
	TestSignature string
}

// PolicyFromConfig derives the policy from application settings.
func PolicyFromConfig(app config.AppConfig, hooks config.WebhookConfig) Policy {
	return Policy{
		Strict:        hooks.Strict,
		Production:    app.IsProd(),
		AllowUnsigned: hooks.AllowUnsigned,
		TestSignature: hooks.TestSignature,
	}
}
