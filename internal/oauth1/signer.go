// Package oauth1 implements OAuth 1.0a HMAC-SHA1 request signing.
//
// Only what the xAuth style providers need is covered: signing a request
// (body parameters + protocol parameters) and rendering the Authorization
// header. Token acquisition is up to the caller.
package oauth1

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	Version         = "1.0"
	SignatureMethod = "HMAC-SHA1"
)

// Signer signs requests with a consumer key pair and an optional token.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string

	// Nonce and Now are overridable for deterministic signatures.
	Nonce func() string
	Now   func() time.Time
}

// NewSigner creates a Signer with no token.
func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Nonce:          NewNonce,
		Now:            time.Now,
	}
}

// WithToken returns a copy of the signer bound to an access token.
func (s *Signer) WithToken(token, tokenSecret string) *Signer {
	c := *s
	c.Token = token
	c.TokenSecret = tokenSecret
	return &c
}

// Param is a single protocol parameter, kept in emission order.
type Param struct {
	Key   string
	Value string
}

// ProtocolParams returns the oauth_* parameters for a request, including
// oauth_signature, in the order they are rendered in the header.
func (s *Signer) ProtocolParams(method, rawURL string, body url.Values) []Param {
	nonce := s.Nonce
	if nonce == nil {
		nonce = NewNonce
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}

	params := []Param{
		{"oauth_version", Version},
		{"oauth_nonce", nonce()},
		{"oauth_timestamp", strconv.FormatInt(now().Unix(), 10)},
		{"oauth_consumer_key", s.ConsumerKey},
		{"oauth_signature_method", SignatureMethod},
	}
	if s.Token != "" {
		params = append(params, Param{"oauth_token", s.Token})
	}

	all := url.Values{}
	for k, vs := range body {
		all[k] = append([]string(nil), vs...)
	}
	for _, p := range params {
		all.Add(p.Key, p.Value)
	}

	base := BaseString(method, rawURL, Normalize(all))
	sig := Sign(base, s.ConsumerSecret, s.TokenSecret)
	return append(params, Param{"oauth_signature", sig})
}

// AuthorizationHeader signs the request and renders the header value.
func (s *Signer) AuthorizationHeader(method, rawURL string, body url.Values) string {
	return Header(s.ProtocolParams(method, rawURL, body))
}

// Encode percent-encodes per RFC 3986: only ALPHA, DIGIT and "-._~" are
// left as is, space becomes %20.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexUpper[c>>4])
		b.WriteByte(hexUpper[c&0x0F])
	}
	return b.String()
}

const hexUpper = "0123456789ABCDEF"

func unreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// Normalize builds the normalized parameter string: keys and values
// encoded, sorted by encoded key (byte order), duplicate keys sorted by
// encoded value, joined as k=v&k=v.
func Normalize(params url.Values) string {
	if len(params) == 0 {
		return ""
	}
	encoded := make(map[string][]string, len(params))
	for k, vs := range params {
		ek := Encode(k)
		for _, v := range vs {
			encoded[ek] = append(encoded[ek], Encode(v))
		}
	}
	keys := make([]string, 0, len(encoded))
	for k := range encoded {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		vs := encoded[k]
		sort.Strings(vs)
		for _, v := range vs {
			pairs = append(pairs, k+"="+v)
		}
	}
	return strings.Join(pairs, "&")
}

// BaseString returns METHOD&enc(url)&enc(normalized).
func BaseString(method, rawURL, normalized string) string {
	return Encode(strings.ToUpper(method)) + "&" + Encode(rawURL) + "&" + Encode(normalized)
}

// Sign computes base64(HMAC-SHA1(base, enc(consumerSecret)&enc(tokenSecret))).
func Sign(base, consumerSecret, tokenSecret string) string {
	key := Encode(consumerSecret) + "&" + Encode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Header renders `OAuth k1="v1",k2="v2"` with encoded keys and values.
func Header(params []Param) string {
	var b strings.Builder
	b.WriteString("OAuth")
	for i, p := range params {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(Encode(p.Key))
		b.WriteString(`="`)
		b.WriteString(Encode(p.Value))
		b.WriteByte('"')
	}
	return b.String()
}

// NewNonce hashes the current time in nanoseconds together with 16 random bytes.
func NewNonce() string {
	buf := make([]byte, 8+16)
	binary.BigEndian.PutUint64(buf, uint64(time.Now().UnixNano()))
	_, _ = rand.Read(buf[8:])
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:16])
}
