package httpapi

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// Principal is the caller resolved from a verified access token.
type Principal struct {
	UserID string
	Role   string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// HasRole is the one place role checks happen.
func HasRole(ctx context.Context, role string) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.Role == role
}

// Guard rejects requests without a valid access cookie. Missing, malformed
// and expired tokens all get the same 401.
func Guard(codec *auth.Codec) gin.HandlerFunc {
	return guard(codec, false)
}

// GuardAllowExpired also accepts an access token whose only fault is its
// age. The signature must still check out.
func GuardAllowExpired(codec *auth.Codec) gin.HandlerFunc {
	return guard(codec, true)
}

func guard(codec *auth.Codec, allowExpired bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(common.AccessTokenCookieName)

		claims, err := codec.Verify(token, auth.PurposeAccess)
		if err != nil && !(allowExpired && errors.Is(err, common.ErrTokenExpired)) {
			abortWith(c, errUnauthenticated)
			return
		}

		p := Principal{UserID: claims.UserID, Role: claims.Role}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireRole answers 403 unless the guarded caller has role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasRole(c.Request.Context(), role) {
			abortWith(c, errForbidden)
			return
		}
		c.Next()
	}
}
