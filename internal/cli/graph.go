package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	bio "github.com/bindle-sh/bindle/pkg/io"
	"github.com/bindle-sh/bindle/pkg/viz"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	root       string
	configPath string
	format     string
	output     string
	detailed   bool
	specifiers bool
}

// graphCommand creates the graph inspection command. It crawls the
// dependency graph without folding it, then exports it as DOT, SVG,
// or a JSON snapshot.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{root: ".", format: "dot"}

	cmd := &cobra.Command{
		Use:   "graph [entries...]",
		Short: "Inspect the module dependency graph",
		Long: `Crawl the dependency graph from the given entry modules and export
it for inspection, without bundling.

Examples:
  bindle graph ./src/main.js
  bindle graph ./src/main.js --format svg --output graph.svg
  bindle graph ./src/main.js --format json --specifiers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", opts.root, "project root directory")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default: <root>/bindle.toml)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg, or json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include module kind and dependant counts in labels")
	cmd.Flags().BoolVar(&opts.specifiers, "specifiers", false, "label edges with import specifiers")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, args []string, opts graphOpts) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.configPath, opts.root)
	if err != nil {
		return err
	}
	popts := cfg.Options
	if popts.Root == "" {
		popts.Root = opts.root
	}
	if len(args) > 0 {
		popts.Entries = args
	}
	popts.Logger = c.Logger

	runner, err := c.newRunner(true, "")
	if err != nil {
		return err
	}
	defer runner.Close()

	g, err := runner.Graph(ctx, popts)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		if opts.output != "" {
			if err := bio.ExportJSON(g, opts.output); err != nil {
				return err
			}
		} else if err := bio.WriteJSON(g, os.Stdout); err != nil {
			return err
		}
	case "dot":
		dot := viz.ToDOT(g, viz.Options{Detailed: opts.detailed, Specifiers: opts.specifiers})
		if err := writeOutput(opts.output, []byte(dot)); err != nil {
			return err
		}
	case "svg":
		dot := viz.ToDOT(g, viz.Options{Detailed: opts.detailed, Specifiers: opts.specifiers})
		svg, err := viz.RenderSVG(dot)
		if err != nil {
			return err
		}
		if err := writeOutput(opts.output, svg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want dot, svg, or json)", opts.format)
	}

	if opts.output != "" {
		printSuccess("Graph exported")
		printFile(opts.output)
		printStats(g.NodeCount(), g.EdgeCount(), false)
	}
	return nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
