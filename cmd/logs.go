package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/jcdickinson/xmldocmd/internal/logging"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the MCP server log file",
	Example: `  xmldocmd logs -n 200
  xmldocmd logs -f --level warn`,
	Run: runLogs,
}

var (
	logsFollow bool
	logsLines  int
	logsLevel  string
)

const followInterval = 250 * time.Millisecond

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "only show records at or above this level")
}

func runLogs(cmd *cobra.Command, args []string) {
	f, err := os.Open(config.LogPath())
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Println("no log file found (the MCP server may not have run yet)")
		return
	}
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer f.Close()

	keep := levelFilter(logsLevel)
	lines, err := lastLines(f, logsLines, keep)
	if err != nil {
		log.Fatalf("reading log file: %v", err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	if !logsFollow {
		return
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := follow(ctx, f, os.Stdout, keep); err != nil {
		log.Fatalf("following log file: %v", err)
	}
}

// levelFilter keeps records at or above level. Lines that are not logfmt
// records, such as panics, are always kept.
func levelFilter(level string) func(string) bool {
	if level == "" {
		return func(string) bool { return true }
	}
	threshold := logging.ParseLevel(level)
	return func(line string) bool {
		l, ok := logging.RecordLevel(line)
		return !ok || l >= threshold
	}
}

// lastLines reads r to the end and returns the last n kept lines, or all of
// them when n <= 0.
func lastLines(r io.Reader, n int, keep func(string) bool) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var out []string
	for sc.Scan() {
		line := sc.Text()
		if !keep(line) {
			continue
		}
		out = append(out, line)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
	}
	return out, sc.Err()
}

// follow copies kept lines appended to r until ctx is done. A trailing
// partial line is held back until its newline arrives.
func follow(ctx context.Context, r io.Reader, w io.Writer, keep func(string) bool) error {
	br := bufio.NewReader(r)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	var partial strings.Builder
	for {
		chunk, err := br.ReadString('\n')
		partial.WriteString(chunk)
		if err == nil {
			line := strings.TrimSuffix(partial.String(), "\n")
			partial.Reset()
			if keep(line) {
				fmt.Fprintln(w, line)
			}
			continue
		}
		if err != io.EOF {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
