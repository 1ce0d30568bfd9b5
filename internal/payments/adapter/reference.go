package adapter

import "strings"

// refRules is the ordered table of candidate field paths per provider used to
// extract the stable external reference from a decoded payload. The first
// path that resolves to a non-empty string wins. Order matters: the most
// durable identifier for the rail comes first (e.g. the payment intent
// survives across checkout-session and intent events for the same payment,
// while the envelope id differs per delivery).
var refRules = map[string][]string{
	ProviderCardGateway: {
		"data.object.payment_intent",
		"data.object.id",
		"id",
	},
	ProviderManualCrypto: {
		"txid",
		"payment_id",
		"order_id",
	},
}

// StableReference resolves the dedupe reference for a decoded payload.
// Returns "" when no rule matches, which callers must treat as unroutable
// rather than inventing a key.
func StableReference(provider string, payload map[string]any) string {
	for _, path := range refRules[provider] {
		if v := lookupPath(payload, path); v != "" {
			return v
		}
	}
	return ""
}

func lookupPath(payload map[string]any, path string) string {
	cur := any(payload)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[part]
	}
	s, _ := cur.(string)
	return s
}
