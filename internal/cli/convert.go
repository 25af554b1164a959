package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	rtio "github.com/matzehuels/railtopo/pkg/io"
	"github.com/matzehuels/railtopo/pkg/pipeline"
	"github.com/matzehuels/railtopo/pkg/railml"
)

// importOpts holds the flags of the import command.
type importOpts struct {
	output     string // graph JSON
	geometry   string // GeoJSON layout
	provenance string // provenance JSON
}

// importCommand creates the import command (document -> graph).
func (c *CLI) importCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import <document.json>",
		Short: "Convert an infrastructure document into a port graph",
		Long: `Convert an infrastructure document into a port graph.

Besides the graph, import writes a schematic GeoJSON layout with one line per
segment and a provenance table. Pass both to "railtopo export" to rebuild the
document with its original identifiers.`,
		Example: `  railtopo import station.json
  railtopo import station.json -o station.graph.json --geometry station.geojson`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if opts.output == "" {
				opts.output = derivePath(input, ".graph.json")
			}
			if opts.geometry == "" {
				opts.geometry = derivePath(input, ".geojson")
			}
			if opts.provenance == "" {
				opts.provenance = derivePath(input, ".provenance.json")
			}
			return c.runImport(cmd, input, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "graph output file (default <input>.graph.json)")
	cmd.Flags().StringVar(&opts.geometry, "geometry", "", "geometry output file (default <input>.geojson)")
	cmd.Flags().StringVar(&opts.provenance, "provenance", "", "provenance output file (default <input>.provenance.json)")

	return cmd
}

func (c *CLI) runImport(cmd *cobra.Command, input string, opts importOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	doc, err := rtio.ImportDocument(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Converting "+filepath.Base(input)+"...")
	spinner.Start()
	res, err := runner.Import(ctx, doc)
	if err != nil {
		spinner.StopWithError("Conversion failed")
		return err
	}
	spinner.Stop()

	if err := rtio.ExportGraph(res.Graph, opts.output); err != nil {
		return err
	}
	if err := rtio.ExportGeometry(res.Geometry, opts.geometry); err != nil {
		return err
	}
	if err := rtio.ExportProvenance(res.Provenance, opts.provenance); err != nil {
		return err
	}
	logger.Debug("wrote outputs", "graph", opts.output, "geometry", opts.geometry, "provenance", opts.provenance)

	printSuccess("Imported %s", filepath.Base(input))
	printStats(res.Stats, res.CacheHit)
	printFile(opts.output)
	printFile(opts.geometry)
	printFile(opts.provenance)
	printNewline()
	printNextStep("Draw the graph", "railtopo render "+opts.output)
	return nil
}

// exportOpts holds the flags of the export command.
type exportOpts struct {
	output     string
	geometry   string
	provenance string
}

// exportCommand creates the export command (graph + geometry -> document).
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export <graph.json>",
		Short: "Rebuild an infrastructure document from a port graph",
		Long: `Rebuild an infrastructure document from a port graph and its geometry.

Without a provenance table every identifier is synthesized. With one, segments
whose geometry is unchanged keep the identifiers and attributes they were
imported with.`,
		Example: `  railtopo export station.graph.json --geometry station.geojson --provenance station.provenance.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				opts.output = derivePath(args[0], ".railml.json")
			}
			return c.runExport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "document output file (default <input>.railml.json)")
	cmd.Flags().StringVar(&opts.geometry, "geometry", "", "GeoJSON geometry, one line per segment")
	cmd.Flags().StringVar(&opts.provenance, "provenance", "", "provenance table written by import")
	_ = cmd.MarkFlagRequired("geometry")

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, input string, opts exportOpts) error {
	ctx := cmd.Context()

	in := pipeline.ExportInput{}
	var err error
	if in.Graph, err = rtio.ImportGraph(input); err != nil {
		return err
	}
	if in.Geometry, err = rtio.ImportGeometry(opts.geometry); err != nil {
		return err
	}
	if opts.provenance != "" {
		if in.Provenance, err = rtio.ImportProvenance(opts.provenance); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Export(ctx, in)
	if err != nil {
		return err
	}
	if err := rtio.ExportDocument(res.Document, opts.output); err != nil {
		return err
	}

	printSuccess("Exported %d tracks", res.Stats.Tracks)
	printStats(res.Stats, res.CacheHit)
	printFile(opts.output)
	return nil
}

// roundTripCommand creates the roundtrip command, which imports a document,
// exports it again and compares element counts.
func (c *CLI) roundTripCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip <document.json>",
		Short: "Import and re-export a document and compare element counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := rtio.ImportDocument(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			res, err := runner.RoundTrip(ctx, doc)
			if err != nil {
				return err
			}
			printRoundTrip(res)
			if !res.Matches() {
				return fmt.Errorf("round trip changed %s", filepath.Base(args[0]))
			}
			printSuccess("Round trip preserved %s", filepath.Base(args[0]))
			return nil
		},
	}
}

func printRoundTrip(res *pipeline.RoundTripResult) {
	printKeyValue("tracks", fmt.Sprintf("%d → %d", res.Import.Stats.Tracks, res.Export.Stats.Tracks))
	printKeyValue("segments", fmt.Sprintf("%d", res.Import.Stats.Segments))
	printKeyValue("nodes", fmt.Sprintf("%d", res.Import.Stats.Nodes))
	for _, cat := range railml.Categories() {
		before, after := res.Before[cat], res.After[cat]
		if before == 0 && after == 0 {
			continue
		}
		line := fmt.Sprintf("%d → %d", before, after)
		if before != after {
			line = StyleWarning.Render(line)
		}
		printKeyValue(cat.String(), line)
	}
}

// derivePath replaces the extension of input with suffix.
func derivePath(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix
}
