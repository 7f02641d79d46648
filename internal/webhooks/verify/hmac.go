package verify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/http"
	"strings"

	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

var (
	// CardGatewayHeaders are the accepted signature headers, first non-empty wins.
	CardGatewayHeaders = []string{"X-Signature", "X-Webhook-Signature", "X-Hub-Signature-256", "Signature"}
	// AggregatorHeader carries the aggregator's HMAC-SHA512 digest.
	AggregatorHeader = "X-Aggregator-Signature"
)

// HMAC verifies a hex digest of the raw request body. The body is never
// re-serialized before hashing.
type HMAC struct {
	secret  []byte
	headers []string
	prefix  string
	newHash func() hash.Hash
	policy  Policy
}

// NewCardGateway verifies HMAC-SHA256 signatures with an optional sha256= prefix.
func NewCardGateway(secret string, policy Policy) *HMAC {
	return &HMAC{
		secret:  []byte(secret),
		headers: CardGatewayHeaders,
		prefix:  "sha256=",
		newHash: sha256.New,
		policy:  policy,
	}
}

// NewAggregator verifies HMAC-SHA512 signatures.
func NewAggregator(secret string, policy Policy) *HMAC {
	return &HMAC{
		secret:  []byte(secret),
		headers: []string{AggregatorHeader},
		newHash: sha512.New,
		policy:  policy,
	}
}

// VerifyPayload implements Verifier.
func (v *HMAC) VerifyPayload(_ context.Context, headers http.Header, body []byte) (Outcome, error) {
	signature := v.signature(headers)

	if len(v.secret) == 0 {
		if v.policy.Production && !v.policy.AllowUnsigned {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured")
		}
		return OutcomeUnsigned, nil
	}

	if signature == "" {
		if v.policy.Strict && v.policy.Production {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "missing webhook signature")
		}
		return OutcomeUnsigned, nil
	}

	if !v.policy.Production && v.policy.TestSignature != "" && signature == v.policy.TestSignature {
		return OutcomeBypassed, nil
	}

	if !v.matches(signature, body) {
		return "", pkgerrors.New(pkgerrors.CodeAuthenticity, "webhook signature mismatch")
	}
	return OutcomeVerified, nil
}

// VerifyEvent implements Verifier. HMAC providers are fully checked on the raw payload.
func (v *HMAC) VerifyEvent(context.Context, normalize.Event) (Outcome, error) {
	return OutcomeSkipped, nil
}

// Sign returns the hex digest for body, as the provider would send it.
func (v *HMAC) Sign(body []byte) string {
	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *HMAC) signature(headers http.Header) string {
	for _, name := range v.headers {
		if value := strings.TrimSpace(headers.Get(name)); value != "" {
			return value
		}
	}
	return ""
}

func (v *HMAC) matches(signature string, body []byte) bool {
	if v.prefix != "" && len(signature) >= len(v.prefix) && strings.EqualFold(signature[:len(v.prefix)], v.prefix) {
		signature = signature[len(v.prefix):]
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}
