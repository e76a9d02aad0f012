// Package builtin wires the bundled provider drivers into a registry.
package builtin

import (
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/providers/facebook"
	"github.com/dropDatabas3/oauthlink/internal/providers/github"
	"github.com/dropDatabas3/oauthlink/internal/providers/google"
	"github.com/dropDatabas3/oauthlink/internal/providers/instapaper"
	"github.com/dropDatabas3/oauthlink/internal/providers/spotify"
)

// Register adds every bundled driver factory to r.
func Register(r *providers.Registry) {
	r.RegisterFactory(spotify.Name, spotify.New)
	r.RegisterFactory(instapaper.Name, instapaper.New)
	r.RegisterFactory(github.Name, github.New)
	r.RegisterFactory(facebook.Name, facebook.New)
	r.RegisterFactory(google.Name, google.New)
}

// NewRegistry returns a registry with the bundled drivers.
func NewRegistry() *providers.Registry {
	r := providers.NewRegistry()
	Register(r)
	return r
}
