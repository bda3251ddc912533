package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/markdown"
	"github.com/jcdickinson/xmldocmd/internal/pipeline"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <graph.json[.zst]>",
	Short: "Transform a graph in memory and report markup leaks, dangling links and unresolved references",
	Args:  cobra.ExactArgs(1),
	Run:   runCheck,
}

var (
	checkJSON   bool
	checkStrict bool
)

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the report as JSON")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "exit non-zero on unresolved references as well as on errors")
}

type pageIssue struct {
	UID           string   `json:"uid"`
	RawHTML       []string `json:"raw_html,omitempty"`
	DanglingLinks []string `json:"dangling_links,omitempty"`
}

type unresolvedRef struct {
	Entity string `json:"entity"`
	Raw    string `json:"raw"`
	Kind   string `json:"kind"`
}

type checkResult struct {
	Entities     int             `json:"entities"`
	Pages        int             `json:"pages"`
	CodeBlocks   int             `json:"code_blocks"`
	Relocated    int             `json:"relocated"`
	Placeholders int             `json:"placeholders"`
	Failures     []string        `json:"failures,omitempty"`
	Issues       []pageIssue     `json:"issues,omitempty"`
	Unresolved   []unresolvedRef `json:"unresolved,omitempty"`
}

// failed reports whether the result should fail the check.
func (r *checkResult) failed(strict bool) bool {
	return len(r.Failures) > 0 || len(r.Issues) > 0 || (strict && len(r.Unresolved) > 0)
}

func runCheck(cmd *cobra.Command, args []string) {
	g, err := docs.LoadGraph(args[0])
	if err != nil {
		slog.Error("failed to load graph", "path", args[0], "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()
	report, err := pipeline.Run(ctx, g, pipelineOptions(cfg))
	if err != nil {
		slog.Error("check interrupted", "error", err)
		os.Exit(1)
	}

	res, err := checkGraph(g, report)
	if err != nil {
		slog.Error("failed to render pages", "error", err)
		os.Exit(1)
	}

	if checkJSON {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
	} else {
		printCheck(res)
	}
	if res.failed(checkStrict) {
		os.Exit(1)
	}
}

// checkGraph renders every page of a transformed graph and validates it.
// Internal links must land on a page of the graph.
func checkGraph(g *docs.Graph, report *pipeline.Report) (*checkResult, error) {
	res := &checkResult{
		Entities:     report.Entities,
		Relocated:    len(report.Relocation.Moved),
		Placeholders: len(report.Relocation.Placeholders),
	}
	for _, f := range report.Failures {
		res.Failures = append(res.Failures, f.Error())
	}
	for _, u := range report.Unresolved {
		res.Unresolved = append(res.Unresolved, unresolvedRef{Entity: u.Entity, Raw: u.Ref.Raw, Kind: u.Ref.Kind.String()})
	}

	links := docs.LinkMap(report.Index)
	for _, id := range g.Reachable() {
		if n := g.Node(id); n.Kind != docs.KindType && n.Kind != docs.KindMember {
			continue
		}
		page, err := docs.BuildPage(g, id)
		if err != nil {
			return nil, err
		}
		res.Pages++

		rep := markdown.Validate(page.Content)
		res.CodeBlocks += rep.CodeBlocks
		issue := pageIssue{UID: page.UID, RawHTML: rep.RawHTML}
		for _, dest := range rep.Links {
			if strings.HasPrefix(dest, "#") {
				if _, ok := links[dest]; !ok {
					issue.DanglingLinks = append(issue.DanglingLinks, dest)
				}
			}
		}
		if len(issue.RawHTML) > 0 || len(issue.DanglingLinks) > 0 {
			res.Issues = append(res.Issues, issue)
		}
	}
	return res, nil
}

func printCheck(res *checkResult) {
	fmt.Printf("%d entities, %d pages, %d code blocks\n", res.Entities, res.Pages, res.CodeBlocks)
	fmt.Printf("%d extension members relocated, %d placeholder types\n", res.Relocated, res.Placeholders)
	for _, f := range res.Failures {
		fmt.Printf("  FAILED  %s\n", f)
	}
	for _, issue := range res.Issues {
		for _, h := range issue.RawHTML {
			fmt.Printf("  HTML    %s: %q\n", issue.UID, h)
		}
		for _, l := range issue.DanglingLinks {
			fmt.Printf("  LINK    %s: %s\n", issue.UID, l)
		}
	}
	for _, u := range res.Unresolved {
		fmt.Printf("  UNRES   %s: %s (%s)\n", u.Entity, u.Raw, u.Kind)
	}
	if len(res.Failures)+len(res.Issues)+len(res.Unresolved) == 0 {
		fmt.Println("ok")
	}
}
