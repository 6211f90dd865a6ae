package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ebulter/quote-service/internal/adapters/http/dto"
	"github.com/ebulter/quote-service/internal/domain"
	"github.com/ebulter/quote-service/internal/platform/logging"
)

const (
	// HeaderAuthorization carries the bearer token.
	HeaderAuthorization = "Authorization"

	// ContextKeyClaims is the gin context key for the decoded claims.
	ContextKeyClaims = "auth_claims"

	bearerPrefix = "Bearer "
)

// Groups that gate access to user-scoped operations.
const (
	GroupUser  = "USER"
	GroupAdmin = "ADMIN"
)

// ctxKeyClaims is the context.Context key for decoded claims.
const ctxKeyClaims contextKey = "auth_claims"

// Claims holds the identity fields read from a bearer token.
//
// Tokens are decoded WITHOUT signature verification: the service runs
// behind a gateway that has already verified them, so the claims here
// are trusted transport, not proof of identity. Never expose this
// service without that gateway in front.
type Claims struct {
	// Username identifies the user for all per-user state.
	Username string

	// Groups are the user's authorization groups.
	Groups []string

	// Subject and Email are carried for audit logging only.
	Subject string
	Email   string
}

// InGroup reports whether the claims carry the given group.
func (c *Claims) InGroup(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}

	return false
}

// CanModify reports whether the claims allow state-changing quote
// operations (likes, reorder, history).
func (c *Claims) CanModify() bool {
	return c.InGroup(GroupUser) || c.InGroup(GroupAdmin)
}

// ParseClaims decodes a bearer token's claims without verifying its
// signature. Returns domain.ErrUnauthorized for anything that does not
// decode as a JWT.
func ParseClaims(authHeader string) (*Claims, error) {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return nil, domain.ErrUnauthorized
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if raw == "" {
		return nil, domain.ErrUnauthorized
	}

	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	claims := &Claims{
		Username: claimString(mapClaims, "username"),
		Groups:   claimGroups(mapClaims),
		Subject:  claimString(mapClaims, "sub"),
		Email:    claimString(mapClaims, "email"),
	}

	if claims.Username == "" {
		claims.Username = claimString(mapClaims, "cognito:username")
	}

	if claims.Username == "" {
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// claimGroups reads the groups claim, preferring the Cognito groups
// list and falling back to a comma-separated custom roles claim.
func claimGroups(claims jwt.MapClaims) []string {
	if raw, ok := claims["cognito:groups"]; ok {
		if list, ok := raw.([]any); ok {
			groups := make([]string, 0, len(list))

			for _, item := range list {
				if s, ok := item.(string); ok && s != "" {
					groups = append(groups, s)
				}
			}

			return groups
		}
	}

	if roles := claimString(claims, "custom:roles"); roles != "" {
		parts := strings.Split(roles, ",")
		groups := make([]string, 0, len(parts))

		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				groups = append(groups, trimmed)
			}
		}

		return groups
	}

	return nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if raw, ok := claims[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}

	return ""
}

// OptionalAuth decodes claims when a bearer token is present and stores
// them in the request context. Requests without a usable token proceed
// anonymously.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseClaims(c.GetHeader(HeaderAuthorization))
		if err == nil {
			storeClaims(c, claims)
		}

		c.Next()
	}
}

// RequireGroup returns middleware that rejects requests whose token is
// missing, undecodable, or lacks every one of the given groups. Denials
// and grants are audit logged with the token's subject.
func RequireGroup(groups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logging.FromContext(c.Request.Context())

		claims, err := ParseClaims(c.GetHeader(HeaderAuthorization))
		if err != nil {
			logger.Warn("request rejected, no usable credentials",
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
			)
			dto.RenderError(c, domain.ErrUnauthorized)

			return
		}

		allowed := false

		for _, g := range groups {
			if claims.InGroup(g) {
				allowed = true
				break
			}
		}

		if !allowed {
			logger.Warn("request rejected, insufficient group membership",
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("sub", claims.Subject),
				slog.Any("groups", claims.Groups),
			)
			dto.RenderError(c, domain.ErrForbidden)

			return
		}

		logger.Debug("request authorized",
			slog.String("sub", claims.Subject),
			slog.String("username", claims.Username),
		)

		storeClaims(c, claims)
		c.Next()
	}
}

// storeClaims places the claims in both the gin context and the request
// context so handlers and downstream code can reach them.
func storeClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextKeyClaims, claims)
	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ctxKeyClaims, claims),
	)
}

// GetClaims extracts the decoded claims from the gin context.
// Returns nil for anonymous requests.
func GetClaims(c *gin.Context) *Claims {
	if raw, exists := c.Get(ContextKeyClaims); exists {
		if claims, ok := raw.(*Claims); ok {
			return claims
		}
	}

	return nil
}

// ClaimsFromContext extracts the decoded claims from a context.Context.
// Returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(ctxKeyClaims).(*Claims); ok {
		return claims
	}

	return nil
}
