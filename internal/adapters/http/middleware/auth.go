package middleware

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

const (
	// ContextKeyClaims is the gin context key for the caller identity.
	ContextKeyClaims = "claims"

	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
	defaultScopesHeader  = "X-User-Scopes"
)

// Claims is the caller identity forwarded by the gateway, which has already
// validated the token.
type Claims struct {
	Subject string
	Roles   []string
	Scopes  []string
}

// HasRole checks if the caller has the role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasScope checks if the caller was granted the scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ExtractClaims reads the identity headers named in cfg, falling back to the
// X-User-* defaults. Roles are comma-separated, scopes space-separated (OAuth2).
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader, scopesHeader := defaultSubjectHeader, defaultRolesHeader, defaultScopesHeader

	if cfg != nil {
		subjectHeader = cmp.Or(cfg.SubjectHeader, subjectHeader)
		rolesHeader = cmp.Or(cfg.RolesHeader, rolesHeader)
		scopesHeader = cmp.Or(cfg.ScopesHeader, scopesHeader)
	}

	return &Claims{
		Subject: strings.TrimSpace(c.GetHeader(subjectHeader)),
		Roles:   parseCommaSeparated(c.GetHeader(rolesHeader)),
		Scopes:  strings.Fields(c.GetHeader(scopesHeader)),
	}
}

// GetClaims retrieves claims stored by GatewayIdentity, or nil.
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get(ContextKeyClaims); ok {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}

	return nil
}

// GatewayIdentity requires the gateway's identity headers when cfg.Enabled.
// A missing subject is 401; a missing InjectScope, when configured, is 403.
// With auth disabled it is a pass-through.
func GatewayIdentity(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		claims := ExtractClaims(c, cfg)
		if claims.Subject == "" {
			dto.RespondWithCode(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		if cfg.InjectScope != "" && !claims.HasScope(cfg.InjectScope) {
			dto.RespondWithCode(c, dto.ErrorCodeForbidden, "insufficient permissions: scope "+cfg.InjectScope+" required")
			return
		}

		c.Set(ContextKeyClaims, claims)

		ctx := logging.WithContext(c.Request.Context(),
			logging.FromContext(c.Request.Context()).With("subject", claims.Subject))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// parseCommaSeparated splits a comma-separated string into trimmed values.
func parseCommaSeparated(s string) []string {
	var result []string

	for p := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
