package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"contoso.json":                    "contoso",
		"dumps/Contoso.Core.json.zst":     "Contoso.Core",
		"/abs/path/Fabrikam.Widgets.json": "Fabrikam.Widgets",
		"plain":                           "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, sourceName(in), in)
	}
}

func TestPipelineOptions(t *testing.T) {
	t.Parallel()

	c := &config.Config{
		Markup:     config.MarkupConfig{DefaultLanguage: "fsharp", LinkLabel: "here"},
		References: config.ReferencesConfig{ExternalBaseURL: "https://docs.test/", ExternalPrefixes: []string{"System"}, Keywords: map[string]string{"null": "https://docs.test/null"}},
		Extensions: config.ExtensionsConfig{SynthesizePlaceholders: true},
		Pipeline:   config.PipelineConfig{Workers: 3, EntityTimeout: 2 * time.Second},
	}
	opts := pipelineOptions(c)
	assert.True(t, opts.Relocate.SynthesizePlaceholders)
	assert.Equal(t, "https://docs.test/", opts.Resolver.ExternalBaseURL)
	assert.Equal(t, []string{"System"}, opts.Resolver.ExternalPrefixes)
	assert.Equal(t, "https://docs.test/null", opts.Resolver.Keywords["null"])
	assert.Equal(t, "fsharp", opts.Markup.DefaultLanguage)
	assert.Equal(t, "here", opts.Markup.LinkLabel)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 2*time.Second, opts.EntityTimeout)
}

func checkFixture(t *testing.T) (*docs.Graph, docs.ID, *pipeline.Report) {
	t.Helper()
	g := docs.NewGraph()
	asm := g.AddAssembly("Contoso")
	ns, err := g.AddNamespace(asm, "Contoso")
	require.NoError(t, err)
	widget, err := g.AddType(ns, "Widget", "", docs.TypeInfo{Kind: docs.TypeClass})
	require.NoError(t, err)
	g.Node(widget).Docs.Summary = `Uses <see cref="T:Contoso.Widget"/> and <see cref="T:Contoso.Gadget"/>.`
	g.Node(widget).Docs.Examples = "<code>var w = new Widget();</code>"
	spin, err := g.AddMember(widget, "Spin", "M:Contoso.Widget.Spin", docs.MemberInfo{})
	require.NoError(t, err)
	g.Node(spin).Docs.Summary = "Spins <b>fast</b>."

	report, err := pipeline.Run(context.Background(), g, pipeline.Options{})
	require.NoError(t, err)
	return g, widget, report
}

func TestCheckGraph(t *testing.T) {
	t.Parallel()
	g, _, report := checkFixture(t)

	res, err := checkGraph(g, report)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Entities)
	assert.Equal(t, 2, res.Pages)
	// Widget's example appears once on its own page.
	assert.Equal(t, 1, res.CodeBlocks)
	assert.Empty(t, res.Issues)
	assert.Empty(t, res.Failures)
	assert.Equal(t, []unresolvedRef{{Entity: "T:Contoso.Widget", Raw: "T:Contoso.Gadget", Kind: "symbol"}}, res.Unresolved)

	assert.False(t, res.failed(false))
	assert.True(t, res.failed(true))
}

func TestCheckGraph_Issues(t *testing.T) {
	t.Parallel()
	g, widget, report := checkFixture(t)
	g.Node(widget).Docs.Remarks = "<div>raw</div>\n\nSee [elsewhere](#t-contoso-nowhere) and [here](#t-contoso-widget)."

	res, err := checkGraph(g, report)
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	issue := res.Issues[0]
	assert.Equal(t, "T:Contoso.Widget", issue.UID)
	assert.NotEmpty(t, issue.RawHTML)
	assert.Equal(t, []string{"#t-contoso-nowhere"}, issue.DanglingLinks)
	assert.True(t, res.failed(false))
}

const sampleLog = `time=2026-01-02T03:04:05Z level=info msg="mcp server starting" version=dev
time=2026-01-02T03:04:06Z level=debug msg="loading graph"
time=2026-01-02T03:04:07Z level=warn msg="failed to unmarshal fragment names" uid=T:Ns.Foo
panic: runtime error
time=2026-01-02T03:04:08Z level=error msg="get doc failed"
`

func TestLastLines(t *testing.T) {
	t.Parallel()

	lines, err := lastLines(strings.NewReader(sampleLog), 2, levelFilter(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"panic: runtime error", `time=2026-01-02T03:04:08Z level=error msg="get doc failed"`}, lines)

	lines, err = lastLines(strings.NewReader(sampleLog), 0, levelFilter("warn"))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "level=warn")
	assert.Equal(t, "panic: runtime error", lines[1])
	assert.Contains(t, lines[2], "level=error")
}

func TestFollow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*followInterval)
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader("level=debug msg=a\nlevel=error msg=b\nlevel=error msg=partial")
	require.NoError(t, follow(ctx, in, &out, levelFilter("info")))
	assert.Equal(t, "level=error msg=b\n", out.String())
}

func TestCacheEntries(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	all := cacheEntries(false)
	require.Len(t, all, 4)
	assert.Equal(t, config.DBPath(), all[0].path)
	assert.Equal(t, config.DBPath()+".wal", all[1].path)

	pages := cacheEntries(true)
	require.Len(t, pages, 1)
	assert.Equal(t, config.CASDir(), pages[0].path)
}
