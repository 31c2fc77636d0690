// Package auth validates inbound sync requests as either a trusted
// scheduler call (shared-secret header) or an authenticated admin user.
package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// Header names recognized on trigger requests.
const (
	WebhookSecretHeader = "x-webhook-secret"
	AuthorizationHeader = "Authorization"
)

// Bearer tokens shorter than this are rejected without a network call.
// Identity-provider JWTs are always longer; anything shorter is a probe.
const minTokenLength = 100

// Known placeholder tokens seen from test tooling; rejected immediately.
var placeholderTokens = map[string]bool{
	"fake": true,
	"test": true,
}

// Authorization methods recorded in the sync log.
const (
	MethodWebhook = "webhook_secret"
	MethodUser    = "admin_user"
)

// Credentials are the authentication inputs extracted from a request.
type Credentials struct {
	WebhookSecret string
	BearerToken   string
}

// CredentialsFromRequest pulls the recognized headers off an HTTP request.
func CredentialsFromRequest(r *http.Request) Credentials {
	c := Credentials{
		WebhookSecret: r.Header.Get(WebhookSecretHeader),
	}
	const prefix = "Bearer "
	if h := r.Header.Get(AuthorizationHeader); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		c.BearerToken = h[len(prefix):]
	}
	return c
}

// Decision is the gate's verdict. Reason is for server-side logging; callers
// see only a generic rejection.
type Decision struct {
	Authorized bool
	Method     string
	Reason     string
	UserID     string
}

// TokenVerifier resolves a bearer token to a user id via the identity
// provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// RoleChecker reports whether a user has the admin role. Satisfied by
// store.Store.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Gate performs pure validation: no side effects beyond the verifier and
// role-checker lookups.
type Gate struct {
	secret   string
	verifier TokenVerifier
	roles    RoleChecker
	logger   *slog.Logger
}

// NewGate creates a gate. An empty secret disables the webhook path.
func NewGate(secret string, verifier TokenVerifier, roles RoleChecker, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{secret: secret, verifier: verifier, roles: roles, logger: logger}
}

// Check validates credentials. A present webhook secret is terminal: it
// either matches or the request is rejected — there is no fall-through to
// the user-auth path.
func (g *Gate) Check(ctx context.Context, creds Credentials) Decision {
	if creds.WebhookSecret != "" {
		if g.secret != "" && subtle.ConstantTimeCompare([]byte(creds.WebhookSecret), []byte(g.secret)) == 1 {
			return Decision{Authorized: true, Method: MethodWebhook}
		}
		g.logger.Warn("sync auth rejected", "reason", "webhook secret mismatch")
		return Decision{Reason: "invalid webhook secret"}
	}

	if creds.BearerToken != "" {
		return g.checkBearer(ctx, creds.BearerToken)
	}

	return Decision{Reason: "missing authentication"}
}

func (g *Gate) checkBearer(ctx context.Context, token string) Decision {
	if len(token) < minTokenLength || placeholderTokens[token] {
		return Decision{Reason: "invalid token"}
	}
	if g.verifier == nil {
		return Decision{Reason: "user auth not configured"}
	}

	userID, err := g.verifier.Verify(ctx, token)
	if err != nil {
		g.logger.Warn("sync auth rejected", "reason", "token verification failed", "error", err)
		return Decision{Reason: "invalid token"}
	}

	isAdmin, err := g.roles.IsAdmin(ctx, userID)
	if err != nil {
		g.logger.Warn("sync auth rejected", "reason", "role check failed", "user_id", userID, "error", err)
		return Decision{Reason: "role-check failed"}
	}
	if !isAdmin {
		return Decision{Reason: "not admin", UserID: userID}
	}

	return Decision{Authorized: true, Method: MethodUser, UserID: userID}
}
