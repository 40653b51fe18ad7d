package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wikichain/wikichain/handlers"
	"github.com/wikichain/wikichain/internal/audit"
	"github.com/wikichain/wikichain/internal/contentstore"
	"github.com/wikichain/wikichain/internal/ledger"
	"github.com/wikichain/wikichain/internal/ledger/client"
	"github.com/wikichain/wikichain/internal/ledger/handler"
	"github.com/wikichain/wikichain/internal/ledger/repository"
	"github.com/wikichain/wikichain/internal/tokens"
	"github.com/wikichain/wikichain/pkg/middleware"
)

const secret = "client-test-secret-32-bytes-xxxxxxxxx"

func newServer(t *testing.T, store contentstore.Store) (*httptest.Server, *ledger.Ledger, *tokens.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l, err := ledger.Open(context.Background(), ledger.Options{Threshold: 3, GenesisOwner: "0xowner"}, repository.NewMemoryJournal())
	require.NoError(t, err)
	iss, err := tokens.NewIssuer(secret)
	require.NoError(t, err)
	g := gin.New()
	handler.NewHandler(l, nil, nil, middleware.AuthMiddleware(iss, "")).Register(g)
	handlers.RegisterContentRoutes(g, store)
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return srv, l, iss
}

func TestClientReadsAndPurge(t *testing.T) {
	ctx := context.Background()
	srv, l, iss := newServer(t, contentstore.NewMemoryStore())
	_, err := l.Publish(ctx, "0xalice", "A", "c1")
	require.NoError(t, err)
	_, err = l.Publish(ctx, "0xalice", "B", "c2")
	require.NoError(t, err)

	c := client.New(srv.URL+"/", func() (string, error) {
		return iss.GenerateAccessToken("poe", "auditor", time.Minute)
	})

	ids, err := c.ListAllContentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)

	v, err := c.Query(ctx, "A", ledger.LatestVersion)
	require.NoError(t, err)
	assert.Equal(t, "c1", v.ContentID)

	purged, err := c.Purge(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, purged)

	n, err := c.ArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.Query(ctx, "A", ledger.LatestVersion)
	require.ErrorIs(t, err, ledger.ErrArticleNotFound)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestClientWithoutTokenIsUnauthorized(t *testing.T) {
	srv, _, _ := newServer(t, contentstore.NewMemoryStore())
	_, err := client.New(srv.URL, nil).Purge(context.Background(), []string{"x"})
	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.Status)
}

func TestClientDrivesRemoteAudit(t *testing.T) {
	ctx := context.Background()
	srv, l, iss := newServer(t, contentstore.NewMemoryStore())
	store := contentstore.NewMemoryStore()
	keep, _ := store.Put(ctx, []byte("kept"))
	_, err := l.Publish(ctx, "0xalice", "Kept", keep)
	require.NoError(t, err)
	_, err = l.Publish(ctx, "0xalice", "Lost", contentstore.ContentID([]byte("never stored")))
	require.NoError(t, err)

	c := client.New(srv.URL, func() (string, error) { return iss.GenerateAccessToken("poe", "auditor", time.Minute) })
	r, err := audit.NewAuditor(c, audit.StoreChecker{Store: store}, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lost"}, r.Purged)
	assert.Equal(t, 1, l.ArticleCount())
}

func TestClientRemoteAvailabilityCheck(t *testing.T) {
	ctx := context.Background()
	store := contentstore.NewMemoryStore()
	srv, l, iss := newServer(t, store)
	keep, _ := store.Put(ctx, []byte("kept"))
	_, err := l.Publish(ctx, "0xalice", "Kept", keep)
	require.NoError(t, err)
	_, err = l.Publish(ctx, "0xalice", "Lost", "gone")
	require.NoError(t, err)

	c := client.New(srv.URL, func() (string, error) { return iss.GenerateAccessToken("poe", "auditor", time.Minute) })
	missing, err := c.CheckAvailability(ctx, []string{keep, "gone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, missing)

	// both halves of the audit over HTTP
	r, err := audit.NewAuditor(c, c, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lost"}, r.Purged)
}
