package markdown

import (
	"strings"
	"testing"
)

func TestRewriteLinks_InlineLinks(t *testing.T) {
	t.Parallel()
	src := "See [`Foo`](#t-ns-foo) for details."
	got := RewriteLinks(src, map[string]string{"#t-ns-foo": "xmldoc://T:Ns.Foo"})
	want := "See [`Foo`](xmldoc://T:Ns.Foo) for details."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteLinks_RewrittenField(t *testing.T) {
	t.Parallel()
	// Member anchors point at the page of the type that declares them.
	src := Rewrite(`Call <see cref="M:Ns.Foo.Bar"/> on <see cref="T:Ns.Foo">a foo</see>, not <see cref="T:Ns.Missing"/>.`,
		Options{Linker: testLinker()})
	got := RewriteLinks(src, map[string]string{
		"#t-ns-foo":     "xmldoc://T:Ns.Foo",
		"#m-ns-foo-bar": "xmldoc://T:Ns.Foo",
	})
	want := "Call [`Foo.Bar`](xmldoc://T:Ns.Foo) on [a foo](xmldoc://T:Ns.Foo), not `Missing`."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteLinks_ReferenceStyleLinks(t *testing.T) {
	t.Parallel()
	src := "See [Foo][ref] for details.\n\n[ref]: #t-ns-foo"
	got := RewriteLinks(src, map[string]string{"#t-ns-foo": "xmldoc://T:Ns.Foo"})
	if !strings.Contains(got, "[ref]: xmldoc://T:Ns.Foo") {
		t.Errorf("reference link not rewritten: %q", got)
	}
}

func TestRewriteLinks_EmptyMap(t *testing.T) {
	t.Parallel()
	src := "Hello [world](url)."
	got := RewriteLinks(src, nil)
	if got != src {
		t.Errorf("expected unchanged, got %q", got)
	}
	got = RewriteLinks(src, map[string]string{})
	if got != src {
		t.Errorf("expected unchanged for empty map, got %q", got)
	}
}

func TestRewriteLinks_NoMatchingLinks(t *testing.T) {
	t.Parallel()
	src := "Check [this](keep-me) out."
	got := RewriteLinks(src, map[string]string{"#other": "xmldoc://T:Other"})
	if got != src {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestRewriteLinks_MultipleLinks(t *testing.T) {
	t.Parallel()
	src := "[A](#t-a) and [B](#t-b) together."
	got := RewriteLinks(src, map[string]string{
		"#t-a": "xmldoc://T:A",
		"#t-b": "xmldoc://T:B",
	})
	if !strings.Contains(got, "(xmldoc://T:A)") {
		t.Error("link A not rewritten")
	}
	if !strings.Contains(got, "(xmldoc://T:B)") {
		t.Error("link B not rewritten")
	}
}

func TestAddFrontMatter(t *testing.T) {
	t.Parallel()

	t.Run("basic", func(t *testing.T) {
		got := AddFrontMatter("# Doc", map[string]string{"methods": "xmldoc://T:Ns.Foo#methods"})
		if !strings.HasPrefix(got, "---\n") {
			t.Error("missing opening ---")
		}
		if !strings.Contains(got, "methods: xmldoc://T:Ns.Foo#methods") {
			t.Error("missing fragment entry")
		}
		if !strings.HasSuffix(got, "# Doc") {
			t.Error("original content missing")
		}
	})

	t.Run("sorted_keys", func(t *testing.T) {
		got := AddFrontMatter("body", map[string]string{
			"z-frag": "xmldoc://z",
			"a-frag": "xmldoc://a",
		})
		aIdx := strings.Index(got, "a-frag")
		zIdx := strings.Index(got, "z-frag")
		if aIdx > zIdx {
			t.Error("keys not sorted alphabetically")
		}
	})

	t.Run("empty_map", func(t *testing.T) {
		got := AddFrontMatter("body", nil)
		if got != "body" {
			t.Errorf("expected unchanged for empty map, got %q", got)
		}
	})
}
