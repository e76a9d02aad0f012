package helpers

import (
	"net/http"
	"strings"
	"time"
)

// ParseSameSite traduce "lax" | "strict" | "none" (default lax).
func ParseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// CookieOptions agrupa los atributos de la cookie de sesión.
type CookieOptions struct {
	Name     string
	Domain   string
	SameSite string
	Secure   bool
	TTL      time.Duration
}

// BuildCookie arma una cookie HttpOnly con los atributos de opts.
func BuildCookie(opts CookieOptions, value string) *http.Cookie {
	ck := &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: ParseSameSite(opts.SameSite),
	}
	if strings.TrimSpace(opts.Domain) != "" {
		ck.Domain = opts.Domain
	}
	if opts.TTL > 0 {
		ck.Expires = time.Now().Add(opts.TTL).UTC()
		ck.MaxAge = int(opts.TTL.Seconds())
	}
	return ck
}
