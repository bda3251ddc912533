package markdown

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

type regionKind int

const (
	regionFence      regionKind = iota // ``` fenced block
	regionCode                         // <code> element
	regionNoEscape                     // noescape fence or element
	regionInline                       // backtick span, kept verbatim
	regionInlineCode                   // <c> element
)

// region is a protected span of the source, as a half-open range [start, end).
type region struct {
	start, end int
	kind       regionKind
	lang       string
	body       string
	// listIndent is set for a fence indented under a list item.
	listIndent string
}

const noEscapeLanguage = "noescape"

// scanRegions locates every protected region in src, in order. Regions never
// overlap: scanning resumes after the end of each region found.
func scanRegions(src string) []region {
	var regions []region
	i := 0
	for i < len(src) {
		if i == 0 || src[i-1] == '\n' {
			if r, ok := scanFence(src, i); ok {
				regions = append(regions, r)
				i = r.end
				continue
			}
		}
		switch src[i] {
		case '`':
			if escaped(src, i) {
				i++
				continue
			}
			if r, ok := scanInlineSpan(src, i); ok {
				regions = append(regions, r)
				i = r.end
				continue
			}
			i += runLength(src, i, '`')
			continue
		case '<':
			if r, ok := scanCodeElement(src, i); ok {
				regions = append(regions, r)
				i = r.end
				continue
			}
			// Skip over other tags so backticks in attribute values such
			// as cref="T:List`1" cannot open a span.
			if i+1 < len(src) && isTagStart(src[i+1]) {
				if end := startTagEnd(src, i); end > 0 {
					i = end
					continue
				}
			}
		}
		i++
	}
	return regions
}

// scanFence matches a fenced block whose opening marker starts the line at i.
// An unclosed fence runs to the end of the input.
func scanFence(src string, i int) (region, bool) {
	j := i
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	n := runLength(src, j, '`')
	if n < 3 {
		return region{}, false
	}
	eol := lineEnd(src, j)
	info := strings.TrimSpace(src[j+n : eol])
	if strings.Contains(info, "`") {
		return region{}, false
	}
	lang, _, _ := strings.Cut(info, " ")

	r := region{start: i, end: len(src), kind: regionFence, lang: lang}
	if strings.EqualFold(lang, noEscapeLanguage) {
		r.kind = regionNoEscape
	} else if indent := src[i:j]; indent != "" && continuesListItem(src, i, len(indent)) {
		r.listIndent = indent
	}
	if eol == len(src) {
		return r, true
	}

	bodyStart := eol + 1
	for ls := bodyStart; ls < len(src); {
		le := lineEnd(src, ls)
		line := strings.TrimLeft(src[ls:le], " \t")
		if m := runLength(line, 0, '`'); m >= n && strings.TrimSpace(line[m:]) == "" {
			r.end = le
			r.body = strings.TrimSuffix(src[bodyStart:ls], "\n")
			return r, true
		}
		ls = le + 1
	}
	r.body = src[bodyStart:]
	return r, true
}

var listMarkerRe = regexp.MustCompile(`^(?:[-*+]|[0-9]+[.)])[ \t]`)

// continuesListItem reports whether the line starting at i, indented by
// width columns, belongs to a list item: the nearest non-blank line above it
// with less indentation opens the item.
func continuesListItem(src string, i, width int) bool {
	for end := i - 1; end >= 0; {
		start := strings.LastIndexByte(src[:end], '\n') + 1
		line := src[start:end]
		end = start - 1
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(line)-len(trimmed) >= width {
			continue
		}
		return listMarkerRe.MatchString(trimmed)
	}
	return false
}

// escaped reports whether the byte at i follows an odd number of
// backslashes.
func escaped(s string, i int) bool {
	n := 0
	for i-n-1 >= 0 && s[i-n-1] == '\\' {
		n++
	}
	return n%2 == 1
}

// scanInlineSpan matches a backtick code span opened at i: a run of n
// backticks closed by the next run of exactly n backticks.
func scanInlineSpan(src string, i int) (region, bool) {
	n := runLength(src, i, '`')
	for j := i + n; j < len(src); {
		k := strings.IndexByte(src[j:], '`')
		if k < 0 {
			break
		}
		j += k
		m := runLength(src, j, '`')
		if m == n {
			return region{start: i, end: j + m, kind: regionInline, body: src[i : j+m]}, true
		}
		j += m
	}
	return region{}, false
}

// scanCodeElement matches <code ...>...</code> or <c>...</c> at i, ignoring
// case. Unclosed elements are not regions.
func scanCodeElement(src string, i int) (region, bool) {
	var kind regionKind
	var name string
	switch {
	case hasTagPrefix(src[i:], "code"):
		kind, name = regionCode, "code"
	case hasTagPrefix(src[i:], "c"):
		kind, name = regionInlineCode, "c"
	default:
		return region{}, false
	}

	tagEnd := startTagEnd(src, i)
	if tagEnd < 0 {
		return region{}, false
	}
	attrs, selfClosing := tagAttributes(src[i:tagEnd])

	r := region{start: i, end: tagEnd, kind: kind}
	if kind == regionCode {
		r.lang = attrs["language"]
		if r.lang == "" {
			r.lang = attrs["lang"]
		}
		if strings.EqualFold(strings.TrimSpace(r.lang), noEscapeLanguage) {
			r.kind = regionNoEscape
		}
	}
	if selfClosing {
		return r, true
	}

	closeStart := indexFold(src[tagEnd:], "</"+name)
	for closeStart >= 0 {
		at := tagEnd + closeStart
		after := at + 2 + len(name)
		if after < len(src) && (src[after] == '>' || isSpace(src[after])) {
			closeEnd := strings.IndexByte(src[after:], '>')
			if closeEnd < 0 {
				return region{}, false
			}
			r.body = src[tagEnd:at]
			r.end = after + closeEnd + 1
			return r, true
		}
		next := indexFold(src[after:], "</"+name)
		if next < 0 {
			break
		}
		closeStart = after - tagEnd + next
	}
	return region{}, false
}

// hasTagPrefix reports whether s starts with "<name" followed by the end of
// the tag name.
func hasTagPrefix(s, name string) bool {
	if len(s) < len(name)+2 || s[0] != '<' || !strings.EqualFold(s[1:1+len(name)], name) {
		return false
	}
	c := s[1+len(name)]
	return c == '>' || c == '/' || isSpace(c)
}

// startTagEnd returns the offset just past the '>' closing the tag at i,
// honoring quoted attribute values, or -1.
func startTagEnd(src string, i int) int {
	var quote byte
	for j := i + 1; j < len(src); j++ {
		c := src[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j + 1
		case c == '<':
			return -1
		}
	}
	return -1
}

// tagAttributes parses a single start tag with the HTML tokenizer.
func tagAttributes(tag string) (map[string]string, bool) {
	z := html.NewTokenizer(strings.NewReader(tag))
	tt := z.Next()
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return nil, false
	}
	return readAttrs(z), tt == html.SelfClosingTagToken
}

func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		if len(key) > 0 {
			attrs[string(key)] = string(val)
		}
		if !more {
			return attrs
		}
	}
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

func lineEnd(s string, i int) int {
	if k := strings.IndexByte(s[i:], '\n'); k >= 0 {
		return i + k
	}
	return len(s)
}

// indexFold is strings.Index with ASCII case folding of sub.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func isTagStart(c byte) bool {
	return c == '/' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
