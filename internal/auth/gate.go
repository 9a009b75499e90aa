// Package auth isolates the shared-password gate guarding recipe mutations
// behind an interface, so a real credential system can replace it without
// touching handlers. The secret and submitted attempts are never logged or
// persisted.
package auth

import "crypto/subtle"

// Gate decides whether a submitted password authorizes a mutating call.
type Gate interface {
	Allow(password string) bool
}

// StaticGate compares the submitted password against a single configured
// secret in constant time.
type StaticGate struct {
	secret []byte
}

func NewStaticGate(secret string) *StaticGate {
	return &StaticGate{secret: []byte(secret)}
}

func (g *StaticGate) Allow(password string) bool {
	return subtle.ConstantTimeCompare(g.secret, []byte(password)) == 1
}

// OpenGate allows everything. Used when no password is configured.
type OpenGate struct{}

func (OpenGate) Allow(string) bool { return true }

// FromSecret returns a StaticGate for a non-empty secret, otherwise an
// OpenGate for local single-user deployments.
func FromSecret(secret string) Gate {
	if secret == "" {
		return OpenGate{}
	}
	return NewStaticGate(secret)
}
