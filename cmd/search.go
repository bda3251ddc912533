package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find published types and members by name or documentation id",
	Args:  cobra.ExactArgs(1),
	Run:   runSearch,
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved [source]",
	Short: "List references that could not be resolved when sources were published",
	Args:  cobra.MaximumNArgs(1),
	Run:   runUnresolved,
}

var (
	searchLimit     int
	searchJSON      bool
	unresolvedLimit int
	unresolvedJSON  bool
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	unresolvedCmd.Flags().IntVarP(&unresolvedLimit, "limit", "n", 100, "maximum number of results")
	unresolvedCmd.Flags().BoolVar(&unresolvedJSON, "json", false, "print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) {
	lib, closeLib, err := openLibrary()
	if err != nil {
		slog.Error("failed to open library", "error", err)
		os.Exit(1)
	}
	defer closeLib()

	results, err := lib.Search(args[0], searchLimit)
	if err != nil {
		slog.Error("search failed", "error", err)
		os.Exit(1)
	}

	if searchJSON {
		out, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(out))
		return
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for _, r := range results {
		fmt.Printf("%-10s %-40s %s\n", r.Kind, r.Display, r.URI)
	}
}

func runUnresolved(cmd *cobra.Command, args []string) {
	var source string
	if len(args) == 1 {
		source = args[0]
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		slog.Error("failed to open library", "error", err)
		os.Exit(1)
	}
	defer closeLib()

	refs, err := lib.Unresolved(source, unresolvedLimit)
	if err != nil {
		slog.Error("listing unresolved references failed", "error", err)
		os.Exit(1)
	}

	if unresolvedJSON {
		out, _ := json.MarshalIndent(refs, "", "  ")
		fmt.Println(string(out))
		return
	}
	for _, r := range refs {
		where := "see also"
		if r.Inline {
			where = "inline"
		}
		fmt.Printf("%s: %s (%s, %s)\n", r.Entity, r.Raw, r.Kind, where)
	}
}
