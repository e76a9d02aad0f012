package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

// TokenParser converts a token endpoint response into a token blob.
type TokenParser func(res *transport.Response) (types.TokenBlob, error)

// ParseFormToken parses an application/x-www-form-urlencoded body
// (access_token=...&refresh_token=...) keeping the order of the fields.
func ParseFormToken(res *transport.Response) (types.TokenBlob, error) {
	return parseForm(res.Body)
}

// ParseJSONToken parses a JSON object body.
func ParseJSONToken(res *transport.Response) (types.TokenBlob, error) {
	var b types.TokenBlob
	if err := json.Unmarshal(res.Body, &b); err != nil {
		return types.TokenBlob{}, fmt.Errorf("decode token json: %w", err)
	}
	return b, nil
}

// ParseAutoToken elige JSON o form según Content-Type y, si no hay, según el body.
func ParseAutoToken(res *transport.Response) (types.TokenBlob, error) {
	if isJSON(res) {
		return ParseJSONToken(res)
	}
	return ParseFormToken(res)
}

func isJSON(res *transport.Response) bool {
	if res.Header != nil {
		ct := strings.ToLower(res.Header.Get("Content-Type"))
		if strings.Contains(ct, "json") {
			return true
		}
		if strings.Contains(ct, "x-www-form-urlencoded") {
			return false
		}
	}
	trimmed := bytes.TrimSpace(res.Body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func parseForm(body []byte) (types.TokenBlob, error) {
	b := types.NewTokenBlob()
	for _, pair := range strings.Split(strings.TrimSpace(string(body)), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return types.TokenBlob{}, fmt.Errorf("decode token form key: %w", err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return types.TokenBlob{}, fmt.Errorf("decode token form %q: %w", key, err)
		}
		b.Set(key, val)
	}
	return b, nil
}

// withExpiry agrega expires_at (unix segundos) cuando la respuesta trae expires_in.
func withExpiry(b types.TokenBlob, now time.Time) types.TokenBlob {
	n, ok := b.Int64("expires_in")
	if !ok || n <= 0 {
		return b
	}
	b.Set("expires_at", now.Unix()+n)
	return b
}
