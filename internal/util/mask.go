// Package util reúne helpers chicos sin dependencias de dominio.
package util

import "strings"

// MaskEmail oculta un email para logs: "ada.lovelace@example.com" -> "a…@e….com".
// Valores sin "@" (ej: username de xAuth) conservan solo primer y último char.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	user, dom, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	labels := strings.Split(dom, ".")
	if len(labels[0]) > 1 {
		labels[0] = labels[0][:1] + "…"
	}
	return user[:1] + "…@" + strings.Join(labels, ".")
}
