package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// Placeholders stand in for protected content while the rest of the text is
// converted. They use private-use runes that never survive into output.
const (
	slotOpen  = '\uE000'
	slotClose = '\uE001'
)

var slotRe = regexp.MustCompile("\uE000([0-9]+)\uE001")

// slots stores protected content behind placeholders.
type slots struct {
	values []string
	// blocks maps the placeholder of each block to the text a table cell
	// shows in its place.
	blocks map[string]string
}

func (s *slots) put(v string) string {
	s.values = append(s.values, v)
	return string(slotOpen) + strconv.Itoa(len(s.values)-1) + string(slotClose)
}

func (s *slots) putBlock(v, inline string) string {
	p := s.put(v)
	if s.blocks == nil {
		s.blocks = make(map[string]string)
	}
	s.blocks[p] = inline
	return p
}

// expand replaces placeholders with their content, recursively, since a
// slot may itself hold placeholders (a link label containing code). Backtick
// spans that would touch are kept apart by a space, otherwise `a``b` reads
// as a single span.
func (s *slots) expand(text string) string {
	locs := slotRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		last = loc[1]
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n >= len(s.values) {
			continue
		}
		v := s.expand(s.values[n])
		if strings.HasPrefix(v, "`") && strings.HasSuffix(b.String(), "`") {
			b.WriteByte(' ')
		}
		b.WriteString(v)
		if strings.HasSuffix(v, "`") && strings.HasPrefix(text[last:], "`") {
			b.WriteByte(' ')
		}
	}
	b.WriteString(text[last:])
	return b.String()
}

// renderer converts a tag tree into Markdown with placeholders.
type renderer struct {
	opts  Options
	slots slots
}

func (r *renderer) children(e *element) string {
	var b strings.Builder
	for _, c := range e.children {
		b.WriteString(r.node(c))
	}
	return b.String()
}

func (r *renderer) node(e *element) string {
	if e.name == "" {
		return e.text
	}
	if !e.closed {
		return e.raw + r.children(e)
	}
	switch e.name {
	case "para", "p":
		content := strings.TrimSpace(r.children(e))
		if content == "" {
			return "\n\n"
		}
		return "\n\n" + content + "\n\n"
	case "b", "strong":
		return emphasis("**", r.children(e))
	case "i", "em":
		return emphasis("*", r.children(e))
	case "br":
		return "  \n"
	case "see", "seealso":
		return r.reference(e)
	case "a":
		href, ok := e.attr("href")
		if !ok || href == "" {
			return r.literal(e)
		}
		return r.link(flatten(r.children(e)), href)
	case "paramref", "typeparamref":
		name, ok := e.attr("name")
		if !ok || name == "" {
			return r.literal(e)
		}
		return r.slots.put(inlineCode(name))
	case "list":
		return r.list(e)
	default:
		// listheader, item, term and description outside of a list.
		return r.children(e)
	}
}

// literal renders an element that has no supported meaning as plain text.
func (r *renderer) literal(e *element) string {
	return e.raw + r.children(e) + e.endRaw
}

// emphasis wraps content in marker, moving edge whitespace outside the
// markers so the emphasis stays valid CommonMark.
func emphasis(marker, content string) string {
	core := strings.TrimSpace(content)
	if core == "" {
		return content + marker + marker
	}
	lead := content[:strings.Index(content, core)]
	trail := content[len(lead)+len(core):]
	return lead + marker + core + marker + trail
}

// reference renders see/seealso tags through the Linker.
func (r *renderer) reference(e *element) string {
	label := flatten(r.children(e))

	if cref, ok := e.attr("cref"); ok && cref != "" {
		link := r.resolve(RefSymbol, cref)
		text := label
		if text == "" {
			text = r.slots.put(inlineCode(link.Text))
		}
		if link.URL == "" {
			if label != "" {
				return r.slots.put(inlineCode(r.slots.expand(label)))
			}
			return text
		}
		return "[" + text + "](" + r.slots.put(encodeURL(link.URL)) + ")"
	}

	if href, ok := e.attr("href"); ok && href != "" {
		return r.link(label, href)
	}

	if word, ok := e.attr("langword"); ok && word != "" {
		link := r.resolve(RefKeyword, word)
		code := r.slots.put(inlineCode(word))
		if link.URL == "" {
			return code
		}
		return "[" + code + "](" + r.slots.put(encodeURL(link.URL)) + ")"
	}

	return r.literal(e)
}

// link renders a literal URL reference; it always produces a link.
func (r *renderer) link(label, href string) string {
	if r.opts.Linker != nil {
		r.opts.Linker.ResolveLink(RefHref, href)
	}
	if label == "" {
		label = r.opts.LinkLabel
	}
	return "[" + label + "](" + r.slots.put(encodeURL(href)) + ")"
}

func (r *renderer) resolve(kind RefKind, payload string) Link {
	if r.opts.Linker != nil {
		return r.opts.Linker.ResolveLink(kind, payload)
	}
	if kind == RefSymbol {
		return Link{Text: DisplayName(payload)}
	}
	return Link{Text: payload}
}

var urlEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func encodeURL(u string) string {
	return urlEscaper.Replace(strings.TrimSpace(u))
}

var lineBreakRe = regexp.MustCompile(`[ \t]*\r?\n[ \t\r\n]*`)

// flatten joins multi-line content onto one line, for list items, table cells
// and link labels.
func flatten(s string) string {
	return strings.TrimSpace(lineBreakRe.ReplaceAllString(s, " "))
}

// list renders <list type="bullet|number|table">.
func (r *renderer) list(e *element) string {
	typ, _ := e.attr("type")
	typ = strings.ToLower(typ)

	var header *element
	var items []*element
	for _, c := range e.children {
		switch c.name {
		case "listheader":
			if header == nil {
				header = c
			}
		case "item":
			items = append(items, c)
		}
	}

	var lines []string
	switch typ {
	case "table":
		lines = r.table(header, items)
	case "number":
		n := 0
		for _, item := range items {
			if text := r.itemText(item); !isBlank(text) {
				n++
				marker := strconv.Itoa(n) + ". "
				lines = append(lines, marker+r.itemBody(text, len(marker)))
			}
		}
	default:
		for _, item := range items {
			if text := r.itemText(item); !isBlank(text) {
				lines = append(lines, "- "+r.itemBody(text, 2))
			}
		}
	}
	if len(lines) == 0 {
		return "\n\n"
	}
	return "\n\n" + strings.Join(lines, "\n") + "\n\n"
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// itemText is the description if present, else the term.
func (r *renderer) itemText(item *element) string {
	term, desc := r.itemParts(item)
	if !isBlank(desc) {
		return desc
	}
	return term
}

// itemParts returns the rendered term and description of an item. An item
// with neither sub-element uses its own content as the description.
func (r *renderer) itemParts(item *element) (term, desc string) {
	t, d := item.child("term"), item.child("description")
	if t == nil && d == nil {
		return "", r.children(item)
	}
	if t != nil {
		term = r.children(t)
	}
	if d != nil {
		desc = r.children(d)
	}
	return term, desc
}

// itemBody lays out item content after a list marker width columns wide.
// Inline content is joined onto one line. Blocks start on their own lines,
// indented under the marker; only a leading block shares the marker line.
// With width 0 the content is a plain paragraph.
func (r *renderer) itemBody(s string, width int) string {
	indent := strings.Repeat(" ", width)
	var b strings.Builder
	last := 0
	for _, loc := range slotRe.FindAllStringIndex(s, -1) {
		p := s[loc[0]:loc[1]]
		if _, ok := r.slots.blocks[p]; !ok {
			continue
		}
		r.writeInline(&b, s[last:loc[0]], indent)
		v := r.slots.expand(p)
		if b.Len() == 0 && width > 0 {
			b.WriteString(r.slots.put(indentLines(v, indent, true)))
		} else {
			b.WriteString("\n\n" + r.slots.put(indentLines(v, indent, false)))
		}
		last = loc[1]
	}
	r.writeInline(&b, s[last:], indent)
	return b.String()
}

// writeInline appends flattened text, as an indented paragraph of its own
// when it follows a block.
func (r *renderer) writeInline(b *strings.Builder, s, indent string) {
	text := flatten(s)
	if text == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
		if indent != "" {
			// A slot, so the indentation survives whitespace normalization.
			b.WriteString(r.slots.put(indent))
		}
	}
	b.WriteString(text)
}

func (r *renderer) table(header *element, items []*element) []string {
	var lines []string
	if header == nil {
		for _, item := range items {
			term, desc := r.itemParts(item)
			term = flatten(term)
			switch {
			case term != "" && !isBlank(desc):
				lines = append(lines, "**"+term+"** "+r.itemBody(desc, 0))
			case term != "":
				lines = append(lines, "**"+term+"**")
			case !isBlank(desc):
				lines = append(lines, r.itemBody(desc, 0))
			}
		}
		// Each entry is its own paragraph.
		return []string{strings.Join(lines, "\n\n")}
	}

	term, desc := r.itemParts(header)
	term, desc = r.cell(term), r.cell(desc)
	if term == "" {
		term = "Term"
	}
	if desc == "" {
		desc = "Description"
	}
	lines = append(lines, "| "+term+" | "+desc+" |", "| --- | --- |")
	for _, item := range items {
		term, desc := r.itemParts(item)
		term, desc = r.cell(term), r.cell(desc)
		if term == "" && desc == "" {
			continue
		}
		lines = append(lines, "| "+term+" | "+desc+" |")
	}
	return lines
}

var cellEscaper = strings.NewReplacer(`\|`, `\|`, "|", `\|`)

// cell renders content as one table cell. Pipes are escaped in protected
// content as well, and blocks shrink to inline code.
func (r *renderer) cell(s string) string {
	s = slotRe.ReplaceAllStringFunc(flatten(s), func(p string) string {
		v, ok := r.slots.blocks[p]
		if ok {
			v = inlineCode(v)
		} else {
			v = r.slots.expand(p)
		}
		return r.slots.put(cellEscaper.Replace(v))
	})
	return cellEscaper.Replace(s)
}
