package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bindle-sh/bindle/pkg/pipeline"
)

// bundleOpts holds the command-line flags for the bundle command.
type bundleOpts struct {
	root       string
	configPath string
	outDir     string
	shared     string
	mode       string
	sourceMap  string
	mapRoot    string
	extensions []string
	aliases    []string
	noCache    bool
	refresh    bool
}

// bundleCommand creates the bundle command.
//
// Entries come from arguments or from bindle.toml; arguments win. Every
// bundle root produces one output script under --out-dir, plus the
// shared bundle when --shared is set.
func (c *CLI) bundleCommand() *cobra.Command {
	opts := bundleOpts{outDir: "dist", root: "."}

	cmd := &cobra.Command{
		Use:   "bundle [entries...]",
		Short: "Resolve and pack module bundles",
		Long: `Resolve the dependency graph from the given entry modules and pack
each bundle root into a single executable script.

Examples:
  bindle bundle ./src/main.js
  bindle bundle ./src/app.js ./src/admin.js --shared shared.js
  bindle bundle --config bindle.toml --source-map inline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBundle(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", opts.root, "project root directory")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default: <root>/bindle.toml)")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", opts.outDir, "output directory")
	cmd.Flags().StringVar(&opts.shared, "shared", "", "shared bundle output name (enables partitioning)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "bare specifier resolution: node or direct")
	cmd.Flags().StringVar(&opts.sourceMap, "source-map", "", "source map emission: off, inline, or external")
	cmd.Flags().StringVar(&opts.mapRoot, "map-root", "", "source map root label")
	cmd.Flags().StringSliceVar(&opts.extensions, "ext", nil, "extra resolvable extensions")
	cmd.Flags().StringSliceVar(&opts.aliases, "alias", nil, "specifier alias, spec=identity")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached artifacts")

	return cmd
}

func (c *CLI) runBundle(cmd *cobra.Command, args []string, opts bundleOpts) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.configPath, opts.root)
	if err != nil {
		return err
	}
	popts, outDir, err := mergeBundleOptions(cfg, opts, args)
	if err != nil {
		return err
	}
	popts.Logger = c.Logger

	runner, err := c.newRunner(opts.noCache, "")
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	sp := newSpinnerWithContext(ctx, "Bundling modules...")
	sp.Start()
	res, err := runner.Execute(ctx, popts)
	sp.Stop()
	if err != nil {
		return err
	}

	written, err := writeArtifacts(res, outDir, popts.SourceMap)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Bundled %d modules into %d bundles", res.Stats.NodeCount, res.Stats.Bundles))

	printSuccess("Bundling complete")
	printKeyValue("Build", res.BuildID[:8])
	printKeyValue("Graph", res.GraphHash[:12])
	for _, path := range written {
		printFile(path)
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.BundleHits == res.Stats.Bundles)
	printNewline()
	printNextStep("Inspect the graph", "bindle graph "+strings.Join(popts.Entries, " "))
	return nil
}

// mergeBundleOptions layers command arguments and flags over the config
// file. Flags and arguments take precedence; the config fills the rest.
func mergeBundleOptions(cfg *Config, opts bundleOpts, args []string) (pipeline.Options, string, error) {
	popts := cfg.Options
	if popts.Root == "" {
		popts.Root = opts.root
	}
	if len(args) > 0 {
		popts.Entries = args
	}
	if opts.shared != "" {
		popts.SharedBundle = opts.shared
	}
	if opts.mode != "" {
		popts.Mode = opts.mode
	}
	if opts.sourceMap != "" {
		popts.SourceMap = opts.sourceMap
	}
	if opts.mapRoot != "" {
		popts.MapRoot = opts.mapRoot
	}
	if len(opts.extensions) > 0 {
		popts.Extensions = append(popts.Extensions, opts.extensions...)
	}
	popts.Refresh = popts.Refresh || opts.refresh

	if len(opts.aliases) > 0 {
		if popts.Aliases == nil {
			popts.Aliases = make(map[string]string, len(opts.aliases))
		}
		for _, a := range opts.aliases {
			spec, target, ok := strings.Cut(a, "=")
			if !ok {
				return pipeline.Options{}, "", fmt.Errorf("invalid alias %q (want spec=identity)", a)
			}
			popts.Aliases[spec] = target
		}
	}

	outDir := cfg.OutDir
	if opts.outDir != "" {
		outDir = opts.outDir
	}
	return popts, outDir, nil
}

// writeArtifacts persists every packed bundle under outDir, preserving
// the root identity's relative path. Returns the written paths sorted.
func writeArtifacts(res *pipeline.Result, outDir, mapMode string) ([]string, error) {
	names := make([]string, 0, len(res.Artifacts))
	for name := range res.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		art := res.Artifacts[name]
		path := filepath.Join(outDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, art.Code, 0644); err != nil {
			return nil, err
		}
		written = append(written, path)

		if mapMode == pipeline.MapExternal && art.SourceMap != nil {
			mapPath := path + ".map"
			if err := os.WriteFile(mapPath, art.SourceMap, 0644); err != nil {
				return nil, err
			}
			written = append(written, mapPath)
		}
	}
	return written, nil
}
