// Package api is cribo's stable public entry point: a thin,
// dependency-free façade that cmd/cribo (and any other Go program
// embedding the bundler) calls instead of reaching into internal/driver
// directly. Nothing in this package does any work itself; it re-exports
// the driver's inputs and outputs under names that aren't tied to the
// internal package layout, so that layout can change without breaking
// callers.
package api

import (
	"github.com/cribo-go/cribo/internal/compiler"
	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/driver"
	"github.com/cribo-go/cribo/internal/fs"
	"github.com/cribo-go/cribo/internal/logger"
	"github.com/cribo-go/cribo/internal/modgraph"
	"github.com/cribo-go/cribo/internal/pyast"
)

// BundleOptions configures one bundle run: search roots, classification
// overrides, and the target-version stdlib table.
type BundleOptions = config.BundleOptions

// PythonVersion selects the stdlib table to classify against; a run
// targets exactly one version.
type PythonVersion = config.PythonVersion

const (
	Py38  = config.Py38
	Py39  = config.Py39
	Py310 = config.Py310
	Py311 = config.Py311
	Py312 = config.Py312
	Py313 = config.Py313
)

// DefaultOptions returns the same zero-value-safe defaults
// internal/config.Default does (target 3.12, unused-import reporting on).
func DefaultOptions() BundleOptions { return config.Default() }

// LoadOptionsFile decodes a YAML project file, overlaying it onto
// DefaultOptions.
func LoadOptionsFile(path string) (BundleOptions, error) { return config.LoadOptionsFile(path) }

// Parser is the external Python AST parser: the bundler calls it but
// does not implement it. cmd/cribo documents how a real implementation
// (e.g. one built on tree-sitter-python, or a Go plugin wrapping one) is
// wired in at the binary's composition root.
type Parser = driver.Parser

// Renderer is the external code generator, needed only for statements
// the import transformer had to rebuild wholesale (an f-string
// touched by a rewrite). Optional: a nil Renderer degrades to leaving such
// statements as an ordinary, unrewritten copy with a logged warning.
type Renderer = driver.Renderer

// FS abstracts the filesystem so tests and editor-integration callers can
// substitute an in-memory tree (internal/fs.MockFS) for the real one.
type FS = fs.FS

// ExecutionStep, InsertStatement, CopyStatement, InsertRenderedCode, and
// BundleProgram are the tagged execution-step variants and their
// containing program, produced once per bundle and handed to the caller's
// own code generator; no textual output is produced here.
type (
	ExecutionStep      = compiler.ExecutionStep
	InsertStatement    = compiler.InsertStatement
	CopyStatement      = compiler.CopyStatement
	InsertRenderedCode = compiler.InsertRenderedCode
	BundleProgram      = compiler.BundleProgram
)

// CircularDependencyAnalysis is the cycle diagnostic report: every
// detected module cycle, classified, with resolvable (function-level)
// cycles kept apart from the ones that abort the bundle.
type CircularDependencyAnalysis = modgraph.CircularDependencyAnalysis

// UnusedImportDiagnostic reports an import dropped from the bundle
// because nothing in its module read it, carrying its source location.
type UnusedImportDiagnostic = driver.UnusedImportDiagnostic

// Msg, MsgKind, and MsgLocation are the structured diagnostic channel:
// warnings never abort the run and are surfaced alongside the result
// rather than through Go's error return.
type (
	Msg         = logger.Msg
	MsgKind     = logger.MsgKind
	MsgLocation = logger.MsgLocation
)

// Module is the root of one parsed source file, as the external parser
// (Parser above) must hand it to Bundle.
type Module = pyast.Module

// Result is everything one Bundle call produces.
type Result = driver.Result

// Options configures one Bundle call: the bundle options, the filesystem
// to read from, the external parser (required) and code generator
// (optional), and an optional one-shot PYTHONPATH-equivalent override.
type Options struct {
	Bundle             BundleOptions
	FS                 FS
	Parser             Parser
	Renderer           Renderer
	PythonPathOverride string
}

// Bundle resolves, discovers, builds, shakes, classifies, and compiles
// one bundle end to end: discovery, graph construction, classification,
// bundle assembly. Fatal errors
// (unresolved relative import, an unresolvable circular dependency, a
// missing entry module, ...) are returned as a typed error implementing
// internal/exitcode.Coder; non-fatal diagnostics are returned on
// Result.Diagnostics instead.
func Bundle(opts Options) (*Result, error) {
	return driver.Run(driver.Options{
		Bundle:             opts.Bundle,
		FS:                 opts.FS,
		Parser:             opts.Parser,
		Renderer:           opts.Renderer,
		PythonPathOverride: opts.PythonPathOverride,
	})
}
