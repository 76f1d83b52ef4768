// Package config holds the bundler's run options, loaded from a YAML
// project file, CLI flags, or both (flags win).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PythonVersion selects which stdlib module list to classify against. A
// run targets exactly one version.
type PythonVersion string

const (
	Py38  PythonVersion = "3.8"
	Py39  PythonVersion = "3.9"
	Py310 PythonVersion = "3.10"
	Py311 PythonVersion = "3.11"
	Py312 PythonVersion = "3.12"
	Py313 PythonVersion = "3.13"
)

// BundleOptions is the full set of inputs to a bundle run.
type BundleOptions struct {
	// EntryPath is the Python script the bundle is rooted at.
	EntryPath string `yaml:"entry"`

	// SourceRoots are extra first-party search roots, checked after the
	// entry directory and PYTHONPATH-equivalent but before site-packages.
	SourceRoots []string `yaml:"src_roots"`

	// PythonPathDirs stands in for the PYTHONPATH-equivalent environment
	// variable. When nil, the driver reads the real PYTHONPATH, after
	// setting it through a scoped EnvGuard if driver.Options'
	// PythonPathOverride is given.
	PythonPathDirs []string `yaml:"-"`

	// SitePackagesDirs are virtual-env site-packages directories used only
	// for ThirdParty classification, never for first-party resolution.
	SitePackagesDirs []string `yaml:"site_packages"`

	// KnownFirstParty / KnownThirdParty override filesystem-based
	// classification; both are consulted before the stdlib table and any
	// file probing.
	KnownFirstParty []string `yaml:"known_first_party"`
	KnownThirdParty []string `yaml:"known_third_party"`

	TargetVersion PythonVersion `yaml:"target_version"`

	// EmitUnusedImportReport toggles the unused-import diagnostic list.
	EmitUnusedImportReport bool `yaml:"report_unused_imports"`
}

func Default() BundleOptions {
	return BundleOptions{
		TargetVersion:           Py312,
		EmitUnusedImportReport:  true,
	}
}

// LoadOptionsFile decodes a YAML project file and overlays it onto the
// defaults. A missing file is not an error; CLI flags are expected to
// supply EntryPath in that case.
func LoadOptionsFile(path string) (BundleOptions, error) {
	opts := Default()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return opts, nil
}
