package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// element is a node of the tolerant tag tree. Text nodes have an empty name
// and keep their raw source. Elements that never see a matching end tag stay
// unclosed and render as their raw start tag followed by their children.
type element struct {
	name        string
	attrs       map[string]string
	raw         string
	endRaw      string
	text        string
	children    []*element
	closed      bool
	selfClosing bool
}

// knownTags are the elements with structural meaning; everything else is
// treated as literal text.
var knownTags = map[string]bool{
	"para": true, "p": true,
	"b": true, "strong": true, "i": true, "em": true,
	"br":  true,
	"see": true, "seealso": true, "a": true,
	"paramref": true, "typeparamref": true,
	"list": true, "listheader": true, "item": true, "term": true, "description": true,
}

// parseTags builds the tag tree for s. Tag names are matched without regard
// to case. It never fails: malformed markup degrades to text nodes.
func parseTags(s string) *element {
	root := &element{name: "#root", closed: true}
	stack := []*element{root}
	appendChild := func(e *element) {
		top := stack[len(stack)-1]
		top.children = append(top.children, e)
	}
	appendText := func(raw string) {
		top := stack[len(stack)-1]
		if n := len(top.children); n > 0 && top.children[n-1].name == "" {
			top.children[n-1].text += raw
			return
		}
		top.children = append(top.children, &element{text: raw})
	}

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			nameBytes, hasAttr := z.TagName()
			name := string(nameBytes)
			if !knownTags[name] {
				appendText(raw)
				continue
			}
			e := &element{name: name, raw: raw, attrs: map[string]string{}}
			if hasAttr {
				e.attrs = readAttrs(z)
			}
			if tt == html.SelfClosingTagToken || name == "br" {
				e.closed, e.selfClosing = true, true
				appendChild(e)
				continue
			}
			appendChild(e)
			stack = append(stack, e)

		case html.EndTagToken:
			nameBytes, _ := z.TagName()
			name := string(nameBytes)
			if name == "br" {
				appendChild(&element{name: "br", raw: raw, closed: true, selfClosing: true})
				continue
			}
			open := -1
			if knownTags[name] {
				for i := len(stack) - 1; i > 0; i-- {
					if stack[i].name == name {
						open = i
						break
					}
				}
			}
			if open < 0 {
				appendText(raw)
				continue
			}
			stack[open].closed = true
			stack[open].endRaw = raw
			stack = stack[:open]

		default:
			appendText(raw)
		}
	}
	return root
}

// attr returns a trimmed attribute value.
func (e *element) attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return strings.TrimSpace(v), ok
}

// child returns the first child element with the given name.
func (e *element) child(name string) *element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}
