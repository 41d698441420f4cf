package content

import (
	"fmt"
	"strings"
)

// IdentityKind distinguishes device-local progress from account progress.
type IdentityKind int

const (
	// IdentityAnonymous scopes progress to one device prior to sign-in.
	IdentityAnonymous IdentityKind = iota
	// IdentityAuthenticated scopes progress to a user account.
	IdentityAuthenticated
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityAnonymous:
		return "anon"
	case IdentityAuthenticated:
		return "user"
	default:
		return fmt.Sprintf("IdentityKind(%d)", int(k))
	}
}

// Identity is the subject all progress is keyed by.
type Identity struct {
	Kind IdentityKind
	Key  string // device key or user id
}

// Anonymous returns the identity of a device.
func Anonymous(deviceKey string) Identity {
	return Identity{Kind: IdentityAnonymous, Key: NormalizeID(deviceKey)}
}

// Authenticated returns the identity of a signed-in user.
func Authenticated(userID string) Identity {
	return Identity{Kind: IdentityAuthenticated, Key: NormalizeID(userID)}
}

// IsAnonymous reports whether the identity is device-scoped.
func (i Identity) IsAnonymous() bool {
	return i.Kind == IdentityAnonymous
}

// IsZero reports whether the identity carries no key.
func (i Identity) IsZero() bool {
	return i.Key == ""
}

// String renders the identity as "anon:<key>" or "user:<id>". The result is
// used as the subject id of stored records.
func (i Identity) String() string {
	return i.Kind.String() + ":" + i.Key
}

// ParseIdentity is the inverse of Identity.String.
func ParseIdentity(s string) (Identity, error) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || NormalizeID(key) == "" {
		return Identity{}, fmt.Errorf("parse identity %q: want anon:<key> or user:<id>", s)
	}
	switch kind {
	case "anon":
		return Anonymous(key), nil
	case "user":
		return Authenticated(key), nil
	default:
		return Identity{}, fmt.Errorf("parse identity %q: unknown kind %q", s, kind)
	}
}
