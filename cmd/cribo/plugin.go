//go:build linux || darwin || freebsd

package main

import (
	"fmt"
	"plugin"

	"github.com/cribo-go/cribo/pkg/api"
)

// loadParserPlugin opens a Go plugin (.so) built with `go build
// -buildmode=plugin` and looks up a `NewParser func() api.Parser` symbol.
// This is how a real Python AST parser — which the bundler deliberately
// does not implement — is wired into the binary without this repository
// ever importing a parsing library itself: the plugin boundary IS the
// external-collaborator boundary, with both sides sharing a process and a
// Go ABI instead of a wire protocol.
func loadParserPlugin(path string) (api.Parser, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading parser plugin %q: %w", path, err)
	}
	sym, err := p.Lookup("NewParser")
	if err != nil {
		return nil, fmt.Errorf("parser plugin %q: %w", path, err)
	}
	factory, ok := sym.(func() api.Parser)
	if !ok {
		return nil, fmt.Errorf("parser plugin %q: NewParser has the wrong signature (want func() api.Parser)", path)
	}
	return factory(), nil
}

// loadRendererPlugin mirrors loadParserPlugin for the optional external
// code generator, looking up `NewRenderer func() api.Renderer`.
func loadRendererPlugin(path string) (api.Renderer, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading renderer plugin %q: %w", path, err)
	}
	sym, err := p.Lookup("NewRenderer")
	if err != nil {
		return nil, fmt.Errorf("renderer plugin %q: %w", path, err)
	}
	factory, ok := sym.(func() api.Renderer)
	if !ok {
		return nil, fmt.Errorf("renderer plugin %q: NewRenderer has the wrong signature (want func() api.Renderer)", path)
	}
	return factory(), nil
}

const pluginsSupported = true
