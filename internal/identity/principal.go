// Package identity models the opaque caller principal attached to every
// store call.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
)

// Principal is an opaque caller identity. Two principals are the same caller
// only when their raw bytes are identical.
type Principal struct {
	raw string
}

// Anonymous is the principal used when a request carries no identity.
var Anonymous = Principal{raw: "anonymous"}

// New wraps raw identity bytes into a Principal.
func New(raw string) Principal {
	return Principal{raw: raw}
}

// Equal reports byte-exact equality.
func (p Principal) Equal(other Principal) bool {
	return p.raw == other.raw
}

// IsZero reports whether p was never set.
func (p Principal) IsZero() bool {
	return p.raw == ""
}

// String returns the textual form of the principal.
func (p Principal) String() string {
	return p.raw
}

// MarshalJSON encodes the principal as a JSON string.
func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.raw)
}

// UnmarshalJSON decodes a principal from a JSON string.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("identity: decode principal: %w", err)
	}
	p.raw = s
	return nil
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p as the caller.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the caller principal, or Anonymous if none was set.
func FromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || p.IsZero() {
		return Anonymous
	}
	return p
}
