package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	principalKey   = "auth_principal"
	agentKeyHeader = "X-Agent-Key"
)

// Middleware resolves request credentials and loads principals.
type Middleware struct {
	resolver  *Resolver
	keyPrefix string
}

// NewMiddleware constructs middleware. keyPrefix identifies agent keys sent
// as bearer values.
func NewMiddleware(resolver *Resolver, keyPrefix string) *Middleware {
	return &Middleware{resolver: resolver, keyPrefix: keyPrefix}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	principal, err := m.resolver.Resolve(c.UserContext(), m.Credentials(c))
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Credentials extracts caller credentials from headers.
func (m *Middleware) Credentials(c *fiber.Ctx) Credentials {
	var creds Credentials
	if key := strings.TrimSpace(c.Get(agentKeyHeader)); key != "" {
		creds.AgentKey = key
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		value := strings.TrimSpace(parts[1])
		if LooksLikeAgentKey(value, m.keyPrefix) {
			if creds.AgentKey == "" {
				creds.AgentKey = value
			}
		} else {
			creds.BearerToken = value
		}
	}
	return creds
}

// TokenCredentials classifies a single opaque token, as sent on the realtime
// handshake.
func (m *Middleware) TokenCredentials(token string) Credentials {
	token = strings.TrimSpace(token)
	if LooksLikeAgentKey(token, m.keyPrefix) {
		return Credentials{AgentKey: token}
	}
	return Credentials{BearerToken: token}
}

// Resolver exposes the underlying resolver.
func (m *Middleware) Resolver() *Resolver {
	return m.resolver
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
