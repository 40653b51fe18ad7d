package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey = "claims"
	CallerKey = "caller"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier.
// The caller's ledger address is read from addressClaim ("sub" when empty)
// and a token without it is rejected.
func AuthMiddleware(ver Verifier, addressClaim string) gin.HandlerFunc {
	if addressClaim == "" {
		addressClaim = "sub"
	}
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header", "code": "unauthenticated"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header", "code": "unauthenticated"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthenticated", "details": err.Error()})
			return
		}

		// Extract claims
		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims", "code": "unauthenticated"})
			return
		}
		addr, _ := claims[addressClaim].(string)
		if addr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no " + addressClaim + " claim", "code": "unauthenticated"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(CallerKey, addr)
		c.Next()
	}
}

// CallerAddress returns the authenticated caller, or "" when the request
// did not pass through AuthMiddleware.
func CallerAddress(c *gin.Context) string {
	return c.GetString(CallerKey)
}

// ChainVerifier tries each verifier in order and accepts the first success.
type ChainVerifier []Verifier

func (cv ChainVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	var errs []error
	for _, v := range cv {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}
