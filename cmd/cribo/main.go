// Command cribo is the thin CLI surface around pkg/api: it owns flag
// parsing, config-file loading, diagnostic rendering, and the process
// exit code, and nothing else. Every actual bundling decision — resolution,
// graph-building, classification, tree-shaking, renaming, compilation —
// lives in the internal packages pkg/api re-exports; this file never
// imports them directly.
//
// The bundling core treats the Python parser and the code generator as
// external collaborators, so this binary cannot ship either without
// blurring that boundary; it loads them as Go plugins instead, see
// plugin.go.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cribo-go/cribo/internal/config"
	"github.com/cribo-go/cribo/internal/exitcode"
	"github.com/cribo-go/cribo/internal/fs"
	"github.com/cribo-go/cribo/internal/logger"
	"github.com/cribo-go/cribo/pkg/api"
)

var (
	configPath       string
	srcRoots         []string
	sitePackages     []string
	knownFirstParty  []string
	knownThirdParty  []string
	targetVersion    string
	pythonPathDirs   []string
	reportUnused     bool
	parserPluginPath string
	rendererPath     string
	noColor          bool
)

var rootCmd = &cobra.Command{
	Use:     "cribo <entry.py>",
	Short:   "Fuse a Python entry script and its first-party modules into one self-contained source file",
	Long:    "cribo reads a Python entry script plus all its first-party dependencies\nand emits a BundleProgram describing a single self-contained program with\nthe same behavior as the original package layout. Third-party and\nstandard-library imports are left as ordinary import statements.",
	Args:    cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:    runBundle,
}

func init() {
	rootCmd.SilenceErrors = true
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML project config file")
	flags.StringArrayVar(&srcRoots, "src-root", nil, "extra first-party search root (repeatable)")
	flags.StringArrayVar(&sitePackages, "site-packages", nil, "virtual-env site-packages directory used only for third-party classification (repeatable)")
	flags.StringArrayVar(&knownFirstParty, "known-first-party", nil, "dotted module name to always classify as first-party (repeatable)")
	flags.StringArrayVar(&knownThirdParty, "known-third-party", nil, "dotted module name to always classify as third-party (repeatable)")
	flags.StringVar(&targetVersion, "target-version", "", "stdlib table to classify against, e.g. 3.12 (default from config, else 3.12)")
	flags.StringArrayVar(&pythonPathDirs, "pythonpath", nil, "directory to prepend to the PYTHONPATH-equivalent search path (repeatable)")
	flags.BoolVar(&reportUnused, "report-unused-imports", true, "emit the unused-import diagnostic list")
	flags.StringVar(&parserPluginPath, "parser-plugin", "", "path to a Go plugin (.so) exporting NewParser() api.Parser — required, no parser ships built in")
	flags.StringVar(&rendererPath, "renderer-plugin", "", "path to a Go plugin (.so) exporting NewRenderer() api.Renderer — optional")
	flags.BoolVar(&noColor, "no-color", false, "disable colored diagnostic output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printFatal(err)
		os.Exit(exitcode.Get(err))
	}
}

func runBundle(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}
	if !pluginsSupported && parserPluginPath == "" {
		return exitcode.Set(fmt.Errorf("this platform cannot load Go plugins; --parser-plugin has no way to be satisfied here"), 1)
	}
	if parserPluginPath == "" {
		return exitcode.Set(fmt.Errorf("no parser configured: pass --parser-plugin pointing at a Go plugin exporting NewParser() api.Parser; the bundler treats the Python parser as an external collaborator and ships none of its own"), 1)
	}

	opts, err := config.LoadOptionsFile(configPath)
	if err != nil {
		return exitcode.Set(err, 1)
	}
	opts.EntryPath = args[0]
	if len(srcRoots) > 0 {
		opts.SourceRoots = append(opts.SourceRoots, srcRoots...)
	}
	if len(sitePackages) > 0 {
		opts.SitePackagesDirs = append(opts.SitePackagesDirs, sitePackages...)
	}
	if len(knownFirstParty) > 0 {
		opts.KnownFirstParty = append(opts.KnownFirstParty, knownFirstParty...)
	}
	if len(knownThirdParty) > 0 {
		opts.KnownThirdParty = append(opts.KnownThirdParty, knownThirdParty...)
	}
	if targetVersion != "" {
		opts.TargetVersion = config.PythonVersion(targetVersion)
	}
	if len(pythonPathDirs) > 0 {
		opts.PythonPathDirs = append(pythonPathDirs, opts.PythonPathDirs...)
	}
	if cmd.Flags().Changed("report-unused-imports") {
		opts.EmitUnusedImportReport = reportUnused
	}

	parser, err := loadParserPlugin(parserPluginPath)
	if err != nil {
		return exitcode.Set(err, 1)
	}
	var renderer api.Renderer
	if rendererPath != "" {
		renderer, err = loadRendererPlugin(rendererPath)
		if err != nil {
			return exitcode.Set(err, 1)
		}
	}

	result, err := api.Bundle(api.Options{
		Bundle:   opts,
		FS:       fs.Real{},
		Parser:   parser,
		Renderer: renderer,
	})
	if err != nil {
		return err
	}

	printDiagnostics(result.Diagnostics)
	printCircular(result.Circular)
	printUnused(result.UnusedImports)

	bold := color.New(color.Bold)
	bold.Fprintf(cmd.OutOrStdout(), "%d execution steps produced\n", len(result.Program.Steps))
	fmt.Fprintln(cmd.OutOrStdout(), "cribo does not render program text itself; "+
		"pass --renderer-plugin to turn these steps into a source file.")
	return nil
}

func printDiagnostics(msgs []logger.Msg) {
	for _, m := range msgs {
		c := color.New(color.FgYellow)
		if m.Kind == logger.Error {
			c = color.New(color.FgRed, color.Bold)
		}
		c.Fprintln(os.Stderr, m.String())
		for _, note := range m.Notes {
			fmt.Fprintln(os.Stderr, "  "+note.Text)
		}
	}
}

func printCircular(analysis api.CircularDependencyAnalysis) {
	if analysis.TotalCyclesDetected == 0 {
		return
	}
	dim := color.New(color.FgHiBlack)
	dim.Fprintf(os.Stderr, "%d dependency cycle(s) detected, largest %d modules\n",
		analysis.TotalCyclesDetected, analysis.LargestCycleSize)
	for _, group := range analysis.Groups() {
		c := color.New(color.FgYellow)
		if !group.Resolvable {
			c = color.New(color.FgRed, color.Bold)
		}
		c.Fprintln(os.Stderr, "circular dependency: "+group.Describe())
	}
}

func printUnused(diags []api.UnusedImportDiagnostic) {
	dim := color.New(color.FgHiBlack)
	for _, d := range diags {
		dim.Fprintf(os.Stderr, "%s: unused import %q\n", d.Module, d.Name)
	}
}

func printFatal(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "cribo: %v\n", err)
}
