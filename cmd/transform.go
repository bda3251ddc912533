package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/cas"
	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/jcdickinson/xmldocmd/internal/db"
	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/library"
	"github.com/jcdickinson/xmldocmd/internal/pipeline"
	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform <graph.json[.zst]>",
	Short: "Rewrite every documentation field of a graph dump to Markdown",
	Long: `Relocates extension methods onto the types they extend, resolves
cross-references and rewrites all documentation text to CommonMark.

The transformed dump is written to --output ("-" for stdout). With --store the
result is also rendered to pages and published to the local library used by
get, search and the MCP server.`,
	Example: `  xmldocmd transform contoso.json -o contoso.md.json
  xmldocmd transform contoso.json.zst --store --name contoso`,
	Args: cobra.ExactArgs(1),
	Run:  runTransform,
}

var (
	transformOutput         string
	transformStore          bool
	transformName           string
	transformNoPlaceholders bool
	transformWorkers        int
)

func init() {
	transformCmd.Flags().StringVarP(&transformOutput, "output", "o", "", `write the transformed dump here ("-" for stdout, ".zst" to compress)`)
	transformCmd.Flags().BoolVar(&transformStore, "store", false, "publish pages to the local library")
	transformCmd.Flags().StringVar(&transformName, "name", "", "source name in the library (default: input file name)")
	transformCmd.Flags().BoolVar(&transformNoPlaceholders, "no-placeholders", false, "leave extension methods of unknown types on their declaring class")
	transformCmd.Flags().IntVar(&transformWorkers, "workers", 0, "parallel rewrite workers (default from config)")
}

func runTransform(cmd *cobra.Command, args []string) {
	input := args[0]
	g, err := docs.LoadGraph(input)
	if err != nil {
		slog.Error("failed to load graph", "path", input, "error", err)
		os.Exit(1)
	}

	opts := pipelineOptions(cfg)
	if transformNoPlaceholders {
		opts.Relocate.SynthesizePlaceholders = false
	}
	if transformWorkers > 0 {
		opts.Workers = transformWorkers
	}

	ctx, cancel := signalContext()
	defer cancel()
	report, err := pipeline.Run(ctx, g, opts)
	if err != nil {
		slog.Error("transform interrupted", "error", err)
		os.Exit(1)
	}
	for _, f := range report.Failures {
		slog.Warn("entity left untransformed", "entity", f.UID, "error", f.Err)
	}
	slog.Info("transformed graph",
		"entities", report.Entities,
		"rewritten", report.Rewritten,
		"relocated", len(report.Relocation.Moved),
		"placeholders", len(report.Relocation.Placeholders),
		"unresolved", len(report.Unresolved),
		"failures", len(report.Failures))

	switch {
	case transformOutput == "-" || (transformOutput == "" && !transformStore):
		data, err := docs.Encode(g)
		if err != nil {
			slog.Error("failed to encode graph", "error", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		fmt.Println()
	case transformOutput != "":
		if err := docs.SaveGraph(g, transformOutput); err != nil {
			slog.Error("failed to write graph", "path", transformOutput, "error", err)
			os.Exit(1)
		}
	}

	if transformStore {
		name := transformName
		if name == "" {
			name = sourceName(input)
		}
		if err := publish(name, g); err != nil {
			slog.Error("failed to publish", "source", name, "error", err)
			os.Exit(1)
		}
	}

	if len(report.Failures) > 0 {
		os.Exit(1)
	}
}

// publish caches the transformed graph and stores its pages in the library.
func publish(name string, g *docs.Graph) error {
	graphPath := docs.CachePath(name)
	if docs.HasCachedGraph(name) {
		slog.Info("replacing published source", "source", name)
	}
	if err := docs.SaveGraph(g, graphPath); err != nil {
		return fmt.Errorf("caching graph: %w", err)
	}

	database, err := db.New(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	res, err := library.New(database, cas.Default()).Publish(name, g, graphPath)
	if err != nil {
		return err
	}
	slog.Info("published", "source", name, "pages", res.Pages, "entities", res.Entities, "refs", res.Refs)
	return nil
}

// sourceName derives a library name from an input path:
// "dumps/Contoso.Core.json.zst" becomes "Contoso.Core".
func sourceName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".zst")
	name = strings.TrimSuffix(name, ".json")
	return name
}
