package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rtio "github.com/matzehuels/railtopo/pkg/io"
	"github.com/matzehuels/railtopo/pkg/pipeline"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	format   string // dot or svg
	detailed bool   // label edges with ports
}

// renderCommand creates the render command for drawing a port graph.
// Format and detail default to the [convert] section of the config.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <graph.json>",
		Short: "Draw a port graph as a node-link diagram",
		Example: `  railtopo render station.graph.json
  railtopo render station.graph.json -f dot --detailed -o station.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				opts.format = c.Config.Convert.Format
			}
			if !cmd.Flags().Changed("detailed") {
				opts.detailed = c.Config.Convert.Detailed
			}
			if err := pipeline.ValidateFormat(opts.format); err != nil {
				return err
			}
			if opts.output == "" {
				opts.output = derivePath(args[0], "."+opts.format)
			}
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <input>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", pipeline.FormatSVG, "output format: svg, dot")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label edges with port names")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()
	p := newProgress(loggerFromContext(ctx))

	g, err := rtio.ImportGraph(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	data, cached, err := runner.Render(ctx, g, pipeline.RenderOptions{Format: opts.format, Detailed: opts.detailed})
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	p.done("Rendered " + opts.format)

	printSuccess("Rendered %d segments", len(g.Segments))
	printCacheStatus(cached)
	printFile(opts.output)
	return nil
}
