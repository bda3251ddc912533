package markdown

import (
	"regexp"
	"strings"
)

// RefKind identifies the grammar of an inline cross-reference tag.
type RefKind int

const (
	RefSymbol  RefKind = iota // <see cref="..."/>
	RefHref                   // <see href="..."/>
	RefKeyword                // <see langword="..."/>
)

// Link is the outcome of resolving a cross-reference payload. An empty URL
// means the reference could not be resolved.
type Link struct {
	URL string
	// Text is the display text used when the tag carries no label.
	Text string
}

// Linker resolves cross-reference payloads while a field is rewritten.
type Linker interface {
	ResolveLink(kind RefKind, payload string) Link
}

var arityRe = regexp.MustCompile("`+[0-9]+")

// CleanName strips generic arity markers and parameter lists from a
// documentation id or name: "M:Ns.List`1.Add(`0)" → "M:Ns.List.Add".
func CleanName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return arityRe.ReplaceAllString(s, "")
}

// DisplayName derives a short human-readable name from a documentation id.
// Types and namespaces keep their last segment, members keep the declaring
// type as well, and constructors are shown as their type.
func DisplayName(uid string) string {
	kind := byte('T')
	s := strings.TrimSpace(uid)
	if len(s) > 2 && s[1] == ':' {
		kind, s = s[0], s[2:]
	}
	s = CleanName(s)
	if s == "" {
		return strings.TrimSpace(uid)
	}
	parts := strings.Split(s, ".")
	switch kind {
	case 'M', 'P', 'F', 'E':
		if len(parts) < 2 {
			return s
		}
		owner, member := parts[len(parts)-2], parts[len(parts)-1]
		if member == "#ctor" || member == "#cctor" {
			return owner
		}
		return owner + "." + member
	default:
		return parts[len(parts)-1]
	}
}
