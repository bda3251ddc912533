package markdown

import (
	"fmt"
	"sort"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"golang.org/x/net/html"
)

// DefaultLanguage tags code blocks that do not name a language.
const DefaultLanguage = "csharp"

// DefaultLinkLabel labels literal URL references that carry no text.
const DefaultLinkLabel = "link"

// Options control Rewrite.
type Options struct {
	DefaultLanguage string
	LinkLabel       string
	// Linker resolves cross-reference tags. When nil, symbol references
	// render as inline code of their display name and keywords are not
	// linked.
	Linker Linker
}

func (o Options) withDefaults() Options {
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = DefaultLanguage
	}
	if o.LinkLabel == "" {
		o.LinkLabel = DefaultLinkLabel
	}
	return o
}

var placeholderStripper = strings.NewReplacer(string(slotOpen), "", string(slotClose), "")

// Rewrite converts one XML documentation field into CommonMark. Code is kept
// verbatim in fences and backtick spans, structural tags become Markdown,
// cross-references go through opts.Linker and any markup left over is
// entity-escaped. Blank input yields "".
//
// Rewrite is idempotent for input without noescape blocks: applying it to
// its own output changes nothing.
func Rewrite(src string, opts Options) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	opts = opts.withDefaults()
	src = placeholderStripper.Replace(src)

	r := &renderer{opts: opts}
	var b strings.Builder
	last := 0
	for _, reg := range scanRegions(src) {
		b.WriteString(src[last:reg.start])
		b.WriteString(r.protect(reg))
		last = reg.end
	}
	b.WriteString(src[last:])

	out := r.children(parseTags(b.String()))
	out = escapeAngles(escapeFenceOpeners(normalize(out)))
	return strings.TrimSpace(r.slots.expand(out))
}

// protect moves a region into a slot and returns its placeholder. Blocks are
// set apart from surrounding text by blank lines.
func (r *renderer) protect(reg region) string {
	lang := strings.TrimSpace(reg.lang)
	if lang == "" {
		lang = r.opts.DefaultLanguage
	}
	switch reg.kind {
	case regionFence:
		code := codeText(reg.body, false)
		if reg.listIndent != "" {
			// Keeps its place inside the list item.
			return r.slots.putBlock(indentLines(codeBlock(lang, code), reg.listIndent, false), code)
		}
		return block(r.slots.putBlock(codeBlock(lang, code), code))
	case regionCode:
		code := codeText(reg.body, true)
		return block(r.slots.putBlock(codeBlock(lang, code), code))
	case regionNoEscape:
		body := trimBlankLines(stripCDATA(strings.ReplaceAll(reg.body, "\r\n", "\n")))
		if body == "" {
			return "\n\n"
		}
		return block(r.slots.putBlock(body, body))
	case regionInlineCode:
		code := inlineCode(html.UnescapeString(stripCDATA(reg.body)))
		if code == "" {
			return ""
		}
		return r.slots.put(code)
	default:
		return r.slots.put(reg.body)
	}
}

func block(s string) string {
	return "\n\n" + s + "\n\n"
}

// RewriteLinks rewrites markdown link destinations using the provided link map.
// It parses the markdown to AST to find all link destinations, then performs
// targeted string replacements to preserve original formatting.
func RewriteLinks(src string, linkMap map[string]string) string {
	if len(linkMap) == 0 {
		return src
	}

	doc := gm.Parse([]byte(src), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))

	// Collect unique destinations that need replacement
	seen := make(map[string]bool)
	type replacement struct {
		oldDest string
		newDest string
	}
	var replacements []replacement

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if link, ok := node.(*ast.Link); ok {
			dest := string(link.Destination)
			if newDest, ok := linkMap[dest]; ok && !seen[dest] {
				seen[dest] = true
				replacements = append(replacements, replacement{dest, newDest})
			}
		}
		return ast.GoToNext
	})

	if len(replacements) == 0 {
		return src
	}

	result := src

	// Inline links: [text](destination), one pass per replacement
	for _, r := range replacements {
		result = strings.ReplaceAll(result, "]("+r.oldDest+")", "]("+r.newDest+")")
	}

	// Reference-style definitions: [ref]: destination, single pass over lines
	refMap := make(map[string]string, len(replacements))
	for _, r := range replacements {
		refMap["]: "+r.oldDest] = "]: " + r.newDest
	}
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for oldSuffix, newSuffix := range refMap {
			if strings.HasSuffix(trimmed, oldSuffix) {
				lines[i] = strings.Replace(line, oldSuffix, newSuffix, 1)
				break
			}
		}
	}
	result = strings.Join(lines, "\n")

	return result
}

// AddFrontMatter prepends a YAML front-matter block listing fragment URIs.
func AddFrontMatter(src string, fragments map[string]string) string {
	if len(fragments) == 0 {
		return src
	}

	keys := make([]string, 0, len(fragments))
	for k := range fragments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("---\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%s: %s\n", k, fragments[k]))
	}
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String()
}
