package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts a fixed set of raw tokens.
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "alice":
		return &fakeToken{data: map[string]interface{}{"sub": "kc-1234", "wallet": "0xalice"}}, nil
	case "nosub":
		return &fakeToken{data: map[string]interface{}{"preferred_username": "ghost"}}, nil
	case "numeric":
		return &fakeToken{data: map[string]interface{}{"sub": 42}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func TestAuthMiddleware(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		claim      string
		wantStatus int
		wantCaller string
	}{
		{name: "no header", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic YWxpY2U6cHc=", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "default sub claim", header: "Bearer alice", wantStatus: http.StatusOK, wantCaller: "kc-1234"},
		{name: "custom claim", header: "Bearer alice", claim: "wallet", wantStatus: http.StatusOK, wantCaller: "0xalice"},
		{name: "missing claim", header: "Bearer nosub", wantStatus: http.StatusUnauthorized},
		{name: "non-string claim", header: "Bearer numeric", wantStatus: http.StatusUnauthorized},
		{name: "custom claim absent", header: "Bearer alice", claim: "eth_address", wantStatus: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := gin.New()
			var caller string
			g.POST("/tx", AuthMiddleware(&fakeVerifier{}, tc.claim), func(c *gin.Context) {
				caller = CallerAddress(c)
				_, ok := c.Get(ClaimsKey)
				require.True(t, ok)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/tx", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rw := httptest.NewRecorder()
			g.ServeHTTP(rw, req)

			require.Equal(t, tc.wantStatus, rw.Code)
			require.Equal(t, tc.wantCaller, caller)
			if tc.wantStatus == http.StatusUnauthorized {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
				require.Equal(t, "unauthenticated", body["code"])
			}
		})
	}
}

func TestCallerAddressWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Empty(t, CallerAddress(c))
}

type rejectVerifier struct{}

func (rejectVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	return nil, fmt.Errorf("rejected")
}

func TestChainVerifier(t *testing.T) {
	ctx := context.Background()
	chain := ChainVerifier{rejectVerifier{}, &fakeVerifier{}}
	_, err := chain.Verify(ctx, "alice")
	require.NoError(t, err)

	_, err = chain.Verify(ctx, "forged")
	require.ErrorContains(t, err, "rejected")
	require.ErrorContains(t, err, "invalid token")

	_, err = ChainVerifier{}.Verify(ctx, "alice")
	require.Error(t, err)
}
