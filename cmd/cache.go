package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/spf13/cobra"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete the published library: database, page store and cached graphs",
	Long: `Deletes everything "transform --store" published. Graph dumps passed to
transform are never touched. Use --pages-only to keep the database and cached
graphs; "get" then fails until the sources are published again.`,
	Run: runClearCache,
}

var clearPagesOnly bool

func init() {
	clearCacheCmd.Flags().BoolVar(&clearPagesOnly, "pages-only", false, "only delete rendered pages")
}

type cacheEntry struct {
	label string
	path  string
}

func cacheEntries(pagesOnly bool) []cacheEntry {
	if pagesOnly {
		return []cacheEntry{{"pages", config.CASDir()}}
	}
	return []cacheEntry{
		{"database", config.DBPath()},
		{"database log", config.DBPath() + ".wal"},
		{"pages", config.CASDir()},
		{"graphs", config.GraphCacheDir()},
	}
}

func runClearCache(cmd *cobra.Command, args []string) {
	removed := 0
	for _, e := range cacheEntries(clearPagesOnly) {
		if _, err := os.Stat(e.path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(e.path); err != nil {
			slog.Error("failed to clear cache", "path", e.path, "error", err)
			os.Exit(1)
		}
		fmt.Printf("removed %s (%s)\n", e.label, e.path)
		removed++
	}
	if removed == 0 {
		fmt.Println("nothing to clear")
	}
}
