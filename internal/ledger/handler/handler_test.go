package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wikichain/wikichain/internal/audit"
	"github.com/wikichain/wikichain/internal/idempotency"
	"github.com/wikichain/wikichain/internal/ledger"
	"github.com/wikichain/wikichain/internal/ledger/repository"
	"github.com/wikichain/wikichain/internal/tokens"
	"github.com/wikichain/wikichain/pkg/middleware"
)

const testSecret = "handler-test-secret-32-bytes-xxxxxxxx"

type harness struct {
	t       *testing.T
	g       *gin.Engine
	ledger  *ledger.Ledger
	issuer  *tokens.Issuer
	reports *audit.MemoryReportStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l, err := ledger.Open(context.Background(), ledger.Options{Threshold: 3, GenesisOwner: "0xowner"}, repository.NewMemoryJournal())
	require.NoError(t, err)
	iss, err := tokens.NewIssuer(testSecret)
	require.NoError(t, err)
	reports := audit.NewMemoryReportStore()

	g := gin.New()
	NewHandler(l, idempotency.NewMemoryStore(time.Minute), reports, middleware.AuthMiddleware(iss, "")).Register(g)
	return &harness{t: t, g: g, ledger: l, issuer: iss, reports: reports}
}

func (h *harness) do(method, path, caller string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		tok, err := h.issuer.GenerateAccessToken(caller, caller, time.Minute)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterAndGetAccount(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/accounts", "0xalice", gin.H{"username": "Alice"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.EqualValues(t, 1, decode(t, w)["seq"])

	w = h.do(http.MethodPost, "/api/v1/accounts", "0xalice", gin.H{"username": "Alice"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "already_registered", decode(t, w)["code"])

	w = h.do(http.MethodGet, "/api/v1/accounts/0xalice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	acc := decode(t, w)
	require.Equal(t, "Alice", acc["username"])
	require.EqualValues(t, 0, acc["performanceScore"])

	w = h.do(http.MethodGet, "/api/v1/accounts/0xnobody", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_registered", decode(t, w)["code"])

	w = h.do(http.MethodGet, "/api/v1/accounts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []interface{}{"0xalice"}, decode(t, w)["users"])
}

func TestTransactionsRequireAuthentication(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/api/v1/articles", "", gin.H{"title": "T", "contentId": "cid"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Zero(t, h.ledger.ArticleCount())
}

func TestArticleLifecycle(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "T1", "contentId": "cid1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "T1", "contentId": "cid1"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "document_exists", decode(t, w)["code"])

	w = h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "", "contentId": "cid1"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/articles/update", "0xbob", gin.H{"title": "T1", "contentId": "cid2"})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/v1/articles/query?title=T1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	require.Equal(t, "cid2", view["contentId"])
	require.EqualValues(t, 2, view["versionNumber"])
	require.Equal(t, "0xalice", view["author"])

	w = h.do(http.MethodGet, "/api/v1/articles/query?title=T1&version=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "cid1", decode(t, w)["contentId"])

	w = h.do(http.MethodGet, "/api/v1/articles/query?title=T1&version=0", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/api/v1/articles/query?title=T1&version=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/articles/vote", "0xbob", gin.H{"title": "T1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodPost, "/api/v1/articles/vote", "0xbob", gin.H{"title": "T1"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "already_voted", decode(t, w)["code"])

	w = h.do(http.MethodGet, "/api/v1/articles/document?title=T1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []interface{}{"0xbob"}, decode(t, w)["voters"])

	w = h.do(http.MethodGet, "/api/v1/articles/count", "", nil)
	require.EqualValues(t, 1, decode(t, w)["count"])

	w = h.do(http.MethodGet, "/api/v1/articles/cids", "", nil)
	require.Equal(t, []interface{}{"cid1"}, decode(t, w)["contentIds"])

	w = h.do(http.MethodGet, "/api/v1/articles/by-cid/cid2", "", nil)
	require.Equal(t, []interface{}{"T1"}, decode(t, w)["titles"])
}

func TestConsortiumAndVerification(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/v1/articles", "0xv1", gin.H{"title": "A", "contentId": "c"}).Code)
	for _, v := range []string{"0xv1", "0xv2", "0xv3"} {
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/articles/vote", v, gin.H{"title": "A"}).Code)
	}

	w := h.do(http.MethodPost, "/api/v1/consortium/designate", "0xv4", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", decode(t, w)["code"])

	w = h.do(http.MethodPost, "/api/v1/consortium/designate", "0xowner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []interface{}{"0xv1", "0xv2", "0xv3"}, decode(t, w)["designated"])

	w = h.do(http.MethodGet, "/api/v1/consortium", "", nil)
	c := decode(t, w)
	require.EqualValues(t, 3, c["threshold"])
	require.Equal(t, "0xowner", c["genesisOwner"])

	require.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/v1/articles/verify", "0xv4", gin.H{"title": "A"}).Code)
	for _, v := range []string{"0xv1", "0xv2", "0xv3"} {
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/articles/verify", v, gin.H{"title": "A"}).Code)
	}
	w = h.do(http.MethodGet, "/api/v1/articles/query?title=A", "", nil)
	require.Equal(t, true, decode(t, w)["isVerified"])
}

func TestPurge(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "A", "contentId": "c1"}).Code)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "B", "contentId": "c2"}).Code)

	w := h.do(http.MethodPost, "/api/v1/audit/purge", "poe", gin.H{"contentIds": []string{"c2"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []interface{}{"B"}, decode(t, w)["purged"])

	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/articles/query?title=B", "", nil).Code)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/v1/audit/purge", "poe", gin.H{"contentIds": "c1"}).Code)
}

func TestIdempotentRetryReturnsOriginalReceipt(t *testing.T) {
	h := newHarness(t)
	w1 := h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "T", "contentId": "c"}, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusCreated, w1.Code)
	w2 := h.do(http.MethodPost, "/api/v1/articles", "0xalice", gin.H{"title": "T", "contentId": "c"}, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusCreated, w2.Code)
	require.Equal(t, "true", w2.Header().Get("Idempotent-Replay"))
	require.Equal(t, decode(t, w1)["txId"], decode(t, w2)["txId"])
	require.EqualValues(t, 1, h.ledger.Seq())

	// keys are scoped per caller, so bob's request is really submitted
	w3 := h.do(http.MethodPost, "/api/v1/articles", "0xbob", gin.H{"title": "T", "contentId": "c"}, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusConflict, w3.Code)

	// a rejected submission releases its key
	w4 := h.do(http.MethodPost, "/api/v1/articles", "0xbob", gin.H{"title": "U", "contentId": "c"}, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusCreated, w4.Code)
}

func TestAuditReports(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/audit/reports/latest", "", nil).Code)

	r := &audit.Report{RunID: "run-1", StartedAt: time.Now().UTC(), Missing: []string{"c"}, Purged: []string{"A"}}
	require.NoError(t, h.reports.Save(context.Background(), r))

	w := h.do(http.MethodGet, "/api/v1/audit/reports/latest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "run-1", decode(t, w)["runId"])

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/audit/reports/run-1", "", nil).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/audit/reports/nope", "", nil).Code)
}

// flakyCompleteStore fails the first failures calls to Complete.
type flakyCompleteStore struct {
	idempotency.Store
	failures int
	calls    int
}

func (s *flakyCompleteStore) Complete(ctx context.Context, key string, r ledger.Receipt) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("redis: connection pool timeout")
	}
	return s.Store.Complete(ctx, key, r)
}

func TestIdempotencyKeyRecordedAfterTransientFailure(t *testing.T) {
	completeBackoff = time.Millisecond
	t.Cleanup(func() { completeBackoff = 50 * time.Millisecond })

	h := newHarness(t)
	store := &flakyCompleteStore{Store: idempotency.NewMemoryStore(time.Minute), failures: 2}
	g := gin.New()
	NewHandler(h.ledger, store, nil, middleware.AuthMiddleware(h.issuer, "")).Register(g)
	h.g = g

	body := gin.H{"title": "T", "contentId": "c"}
	w1 := h.do(http.MethodPost, "/api/v1/articles", "0xalice", body, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusCreated, w1.Code)
	require.Equal(t, 3, store.calls)

	w2 := h.do(http.MethodPost, "/api/v1/articles", "0xalice", body, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusCreated, w2.Code, w2.Body.String())
	require.Equal(t, "true", w2.Header().Get("Idempotent-Replay"))
	require.Equal(t, decode(t, w1)["txId"], decode(t, w2)["txId"])
}
