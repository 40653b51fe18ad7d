package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wikichain/wikichain/internal/contentstore"
)

func TestContentRoutes_StoreRetrieve(t *testing.T) {
	g := gin.New()
	RegisterContentRoutes(g, contentstore.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(`{"content":"Content of the new article"}`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var sr map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sr))
	cid := sr["cid"]
	require.Equal(t, contentstore.ContentID([]byte("Content of the new article")), cid)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/retrieve/"+cid, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Content of the new article", w.Body.String())

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/retrieve/unknown", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentRoutes_CheckAvailability(t *testing.T) {
	g := gin.New()
	store := contentstore.NewMemoryStore()
	RegisterContentRoutes(g, store)
	cid, err := store.Put(t.Context(), []byte("present"))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkAvailability", strings.NewReader(`{"cids":["`+cid+`","gone"]}`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, []string{"gone"}, out["missingCids"])

	for _, body := range []string{`{"cids":"abc"}`, `{}`, `not json`} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodPost, "/checkAvailability", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		g.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}
