package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/logging"
	"github.com/jcdickinson/xmldocmd/internal/markdown"
	"github.com/jcdickinson/xmldocmd/internal/pipeline"
	"github.com/spf13/cobra"
)

// Version is reported by the MCP server.
var Version = "0.1.0"

var (
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "xmldocmd",
	Short: "Convert .NET XML documentation to Markdown and serve it over MCP",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load()
		if err != nil {
			logging.Setup(os.Stderr, logLevel)
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		level := logLevel
		if level == "" {
			level = cfg.Log.Level
		}
		logging.Setup(os.Stderr, level)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(unresolvedCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(clearCacheCmd)
}

// pipelineOptions maps the loaded configuration onto a pipeline run.
func pipelineOptions(c *config.Config) pipeline.Options {
	return pipeline.Options{
		Relocate: docs.RelocateOptions{
			SynthesizePlaceholders: c.Extensions.SynthesizePlaceholders,
		},
		Resolver: docs.ResolverOptions{
			ExternalBaseURL:  c.References.ExternalBaseURL,
			ExternalPrefixes: c.References.ExternalPrefixes,
			Keywords:         c.References.Keywords,
		},
		Markup: markdown.Options{
			DefaultLanguage: c.Markup.DefaultLanguage,
			LinkLabel:       c.Markup.LinkLabel,
		},
		Workers:       c.Pipeline.Workers,
		EntityTimeout: c.Pipeline.EntityTimeout,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
