package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Value patterns that identify secrets regardless of the field name.
// The service handles Cognito-issued JWTs on every authenticated request,
// so raw token material is the main thing that must never reach a log line.
var (
	// Three dot-separated base64url segments, the JWT wire shape.
	jwtPattern = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)

	bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)

	basicAuthPattern = regexp.MustCompile(`(?i)^basic\s+.+$`)
)

// DefaultRedactOptions returns the masq options applied to every logger.
// Covers the credentials this service actually touches: bearer tokens from
// the Authorization header, the Cognito token triple, and API keys for
// outbound feed calls. Callers can append their own options via
// NewReplaceAttr.
func DefaultRedactOptions() []masq.Option {
	return []masq.Option{
		// Token material from the auth flow
		masq.WithFieldName("authorization"),
		masq.WithFieldName("auth"),
		masq.WithFieldName("bearer"),
		masq.WithFieldName("token"),
		masq.WithFieldName("idToken"),
		masq.WithFieldName("id_token"),
		masq.WithFieldName("accessToken"),
		masq.WithFieldName("access_token"),
		masq.WithFieldName("refreshToken"),
		masq.WithFieldName("refresh_token"),

		// Outbound client credentials
		masq.WithFieldName("apiKey"),
		masq.WithFieldName("apikey"),
		masq.WithFieldName("api_key"),

		// Generic secret-shaped fields
		masq.WithFieldName("password"),
		masq.WithFieldName("secret"),
		masq.WithFieldName("credential"),
		masq.WithFieldName("credentials"),
		masq.WithFieldName("cookie"),
		masq.WithFieldName("session"),
		masq.WithFieldName("privateKey"),
		masq.WithFieldName("private_key"),
		masq.WithFieldName("secretKey"),
		masq.WithFieldName("secret_key"),

		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),

		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(basicAuthPattern),
	}
}

// NewReplaceAttr builds a ReplaceAttr function for slog.HandlerOptions that
// masks secrets before they are written. Extra masq options extend the
// defaults:
//
//	opts := &slog.HandlerOptions{
//	    ReplaceAttr: logging.NewReplaceAttr(masq.WithFieldName("feedKey")),
//	}
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	allOpts := append(DefaultRedactOptions(), opts...)

	return masq.New(allOpts...)
}
