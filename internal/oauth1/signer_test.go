package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner() *Signer {
	s := NewSigner("dpf43f3p2l4k3l03", "kd94hf93k423kf44").WithToken("nnch734d00sl2jdk", "pfkkdhi9sl3r4s00")
	s.Nonce = func() string { return "kllo9940pd9333jh" }
	s.Now = func() time.Time { return time.Unix(1191242096, 0) }
	return s
}

func paramMap(ps []Param) map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value
	}
	return m
}

func TestEncode(t *testing.T) {
	cases := map[string]string{
		"abcABC123-._~": "abcABC123-._~",
		"a b":           "a%20b",
		"a+b":           "a%2Bb",
		"=&%":           "%3D%26%25",
		"ñ":             "%C3%B1",
		"/path?x":       "%2Fpath%3Fx",
	}
	for in, want := range cases {
		assert.Equal(t, want, Encode(in), "Encode(%q)", in)
	}
}

func TestNormalize_SortsByKeyThenValue(t *testing.T) {
	params := url.Values{
		"b":   {"2"},
		"a":   {"z", "y"},
		"c d": {"x y"},
		"a2":  {"1"},
	}
	assert.Equal(t, "a=y&a=z&a2=1&b=2&c%20d=x%20y", Normalize(params))
	assert.Equal(t, "", Normalize(nil))
}

func TestNormalize_IndependentOfInsertionOrder(t *testing.T) {
	one := url.Values{}
	one.Add("x_auth_mode", "client_auth")
	one.Add("x_auth_username", "ada@example.com")
	one.Add("dup", "b")
	one.Add("dup", "a")

	two := url.Values{}
	two.Add("dup", "a")
	two.Add("x_auth_username", "ada@example.com")
	two.Add("dup", "b")
	two.Add("x_auth_mode", "client_auth")

	assert.Equal(t, Normalize(one), Normalize(two))
}

func TestSign_MatchesHandComputedHMAC(t *testing.T) {
	base := "POST&https%3A%2F%2Fexample.com%2Ftoken&a%3D1"
	mac := hmac.New(sha1.New, []byte("cs%20secret&ts"))
	mac.Write([]byte(base))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, Sign(base, "cs secret", "ts"))
}

func TestProtocolParams_ReferenceVector(t *testing.T) {
	// OAuth Core 1.0, appendix A.5.
	s := fixedSigner()
	body := url.Values{"file": {"vacation.jpg"}, "size": {"original"}}

	wantBase := "GET&http%3A%2F%2Fphotos.example.net%2Fphotos&file%3Dvacation.jpg%26oauth_consumer_key%3Ddpf43f3p2l4k3l03%26oauth_nonce%3Dkllo9940pd9333jh%26oauth_signature_method%3DHMAC-SHA1%26oauth_timestamp%3D1191242096%26oauth_token%3Dnnch734d00sl2jdk%26oauth_version%3D1.0%26size%3Doriginal"
	all := url.Values{
		"file":                   {"vacation.jpg"},
		"size":                   {"original"},
		"oauth_consumer_key":     {"dpf43f3p2l4k3l03"},
		"oauth_nonce":            {"kllo9940pd9333jh"},
		"oauth_signature_method": {"HMAC-SHA1"},
		"oauth_timestamp":        {"1191242096"},
		"oauth_token":            {"nnch734d00sl2jdk"},
		"oauth_version":          {"1.0"},
	}
	require.Equal(t, wantBase, BaseString("GET", "http://photos.example.net/photos", Normalize(all)))

	params := paramMap(s.ProtocolParams("GET", "http://photos.example.net/photos", body))
	assert.Equal(t, "tR3+Ty81lMeYAr/Fid0kMTYa/WM=", params["oauth_signature"])
}

func TestProtocolParams_StableWithFixedNonceAndClock(t *testing.T) {
	s := fixedSigner()
	body := url.Values{"x_auth_username": {"ada"}, "x_auth_password": {"p@ss word"}}

	a := s.AuthorizationHeader("POST", "https://www.instapaper.com/api/1/oauth/access_token", body)
	b := s.AuthorizationHeader("POST", "https://www.instapaper.com/api/1/oauth/access_token", body)
	assert.Equal(t, a, b)

	s2 := fixedSigner()
	s2.Nonce = func() string { return "other" }
	c := s2.AuthorizationHeader("POST", "https://www.instapaper.com/api/1/oauth/access_token", body)
	assert.NotEqual(t, a, c)
}

func TestProtocolParams_NoTokenOmitsOAuthToken(t *testing.T) {
	s := NewSigner("ck", "cs")
	params := paramMap(s.ProtocolParams("POST", "https://example.com", nil))
	_, ok := params["oauth_token"]
	assert.False(t, ok)
	assert.Equal(t, "1.0", params["oauth_version"])
	assert.Equal(t, "HMAC-SHA1", params["oauth_signature_method"])
	assert.NotEmpty(t, params["oauth_nonce"])
	assert.NotEmpty(t, params["oauth_signature"])
}

func TestHeader_Format(t *testing.T) {
	h := Header([]Param{{"oauth_version", "1.0"}, {"oauth_signature", "a+b/c="}})
	assert.Equal(t, `OAuth oauth_version="1.0",oauth_signature="a%2Bb%2Fc%3D"`, h)
}

func TestHeader_OrderFollowsEmission(t *testing.T) {
	h := fixedSigner().AuthorizationHeader("POST", "https://example.com/x", nil)
	require.True(t, strings.HasPrefix(h, `OAuth oauth_version="1.0",oauth_nonce="kllo9940pd9333jh",oauth_timestamp="1191242096",`))
	assert.True(t, strings.Contains(h, `,oauth_token="nnch734d00sl2jdk",oauth_signature="`))
}

func TestNewNonce_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewNonce()
		require.Len(t, n, 32)
		require.False(t, seen[n], "duplicate nonce")
		seen[n] = true
	}
}
