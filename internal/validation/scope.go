// Package validation contiene reglas de formato compartidas.
package validation

import (
	"regexp"
	"strings"
)

// Scope token (RFC 6749 §3.3):
//
//	scope-token = 1*( %x21 / %x23-5B / %x5D-7E )
//
// Es decir: ASCII visible sin espacio, comillas dobles ni backslash.
// Se limita a 256 chars. URLs como scope (Google) son válidas.
//
// Examples valid: email, user:email, user-read-email, https://www.googleapis.com/auth/drive
// Examples invalid: "", "bad space", `a"b`, `a\b`, "ñ"
var scopeTokenRe = regexp.MustCompile(`^[\x21\x23-\x5B\x5D-\x7E]{1,256}$`)

// ValidScopeToken indica si s es un scope-token válido.
func ValidScopeToken(s string) bool {
	return scopeTokenRe.MatchString(s)
}

// ValidScopeFor es ValidScopeToken y además s no contiene sep, el separador
// con el que el provider une los scopes (" " o ",").
func ValidScopeFor(s, sep string) bool {
	if !ValidScopeToken(s) {
		return false
	}
	return sep == "" || !strings.Contains(s, sep)
}
