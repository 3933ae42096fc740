package gateway

import (
	"strings"
)

// PublicRoutes is the ordered allowlist of raw path prefixes exempt from
// authentication. Prefixes are checked in listed order and the first match
// wins. Order is part of the contract, not an accident: keep more specific
// prefixes first when they overlap.
type PublicRoutes struct {
	prefixes []string
}

func NewPublicRoutes(prefixes ...string) *PublicRoutes {
	return &PublicRoutes{prefixes: prefixes}
}

// ParsePublicRoutes builds the allowlist from a comma-separated value,
// the way it arrives from the environment. Empty entries are dropped.
func ParsePublicRoutes(csv string) *PublicRoutes {
	var prefixes []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		prefixes = append(prefixes, p)
	}
	return NewPublicRoutes(prefixes...)
}

// Match reports whether the raw request path starts with any listed prefix
func (p *PublicRoutes) Match(path string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
