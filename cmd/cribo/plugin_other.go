//go:build !(linux || darwin || freebsd)

package main

import (
	"fmt"

	"github.com/cribo-go/cribo/pkg/api"
)

// The stdlib plugin package only supports linux, darwin, and freebsd.
// Everywhere else, --parser-plugin / --renderer-plugin fail with a clear
// message instead of failing to compile.

func loadParserPlugin(path string) (api.Parser, error) {
	return nil, fmt.Errorf("Go plugins are not supported on this platform; --parser-plugin %q cannot be loaded", path)
}

func loadRendererPlugin(path string) (api.Renderer, error) {
	return nil, fmt.Errorf("Go plugins are not supported on this platform; --renderer-plugin %q cannot be loaded", path)
}

const pluginsSupported = false
