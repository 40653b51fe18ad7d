// Package client talks to a remote ledger server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wikichain/wikichain/internal/ledger"
)

// TokenSource returns a bearer token for the next request.
type TokenSource func() (string, error)

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

// New creates a client for the ledger at baseURL. token may be nil for
// read-only use.
func New(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

var codes = map[string]*ledger.Error{}

func init() {
	for _, e := range []*ledger.Error{
		ledger.ErrInvalidInput, ledger.ErrAlreadyRegistered, ledger.ErrDocumentExists,
		ledger.ErrAlreadyVoted, ledger.ErrArticleNotFound, ledger.ErrNotRegistered, ledger.ErrForbidden,
	} {
		codes[e.Code] = e
	}
}

// StatusError is a non-2xx response that does not carry a ledger error code.
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger server returned %d: %s", e.Status, e.Msg)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.token != nil {
		tok, err := c.token()
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if le, ok := codes[e.Code]; ok {
			return fmt.Errorf("%s %s: %w", method, path, le)
		}
		return &StatusError{Status: resp.StatusCode, Msg: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListAllContentIDs(ctx context.Context) ([]string, error) {
	var out struct {
		ContentIDs []string `json:"contentIds"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/articles/cids", nil, &out); err != nil {
		return nil, err
	}
	return out.ContentIDs, nil
}

// Purge submits a purge transaction and returns the removed titles.
func (c *Client) Purge(ctx context.Context, contentIDs []string) ([]string, error) {
	var r ledger.Receipt
	if err := c.do(ctx, http.MethodPost, "/api/v1/audit/purge", map[string][]string{"contentIds": contentIDs}, &r); err != nil {
		return nil, err
	}
	return r.Purged, nil
}

func (c *Client) Query(ctx context.Context, title string, version int) (ledger.ArticleView, error) {
	q := url.Values{"title": {title}, "version": {strconv.Itoa(version)}}
	var v ledger.ArticleView
	err := c.do(ctx, http.MethodGet, "/api/v1/articles/query?"+q.Encode(), nil, &v)
	return v, err
}

func (c *Client) ArticleCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/articles/count", nil, &out)
	return out.Count, err
}

// CheckAvailability asks the server's content endpoint which cids are missing.
func (c *Client) CheckAvailability(ctx context.Context, cids []string) ([]string, error) {
	var out struct {
		MissingCids []string `json:"missingCids"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkAvailability", map[string][]string{"cids": cids}, &out); err != nil {
		return nil, err
	}
	return out.MissingCids, nil
}
