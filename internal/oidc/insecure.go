package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wikichain/wikichain/pkg/middleware"
)

var errTokenExpired = errors.New("token expired")

// claimsToken carries the raw payload of an unverified JWT.
type claimsToken struct {
	payload []byte
}

func (t claimsToken) Claims(v interface{}) error {
	return json.Unmarshal(t.payload, v)
}

// InsecureVerifier decodes JWT payloads WITHOUT checking signatures, so any
// caller can claim any ledger address. Enabled only by ALLOW_INSECURE_TOKEN
// for integration runs. An exp claim, when present, is still honoured.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var std struct {
		Exp *float64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &std); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if std.Exp != nil && v.now().After(time.Unix(int64(*std.Exp), 0)) {
		return nil, errTokenExpired
	}
	return claimsToken{payload: payload}, nil
}
