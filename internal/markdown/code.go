package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// codeText cleans a code body: a CDATA wrapper, common indentation and
// surrounding blank lines are removed. XML entities are decoded only for
// <code> elements, whose content comes from XML; fenced blocks are already
// literal.
func codeText(body string, decode bool) string {
	body = stripCDATA(strings.ReplaceAll(body, "\r\n", "\n"))
	if decode {
		body = html.UnescapeString(body)
	}
	return trimBlankLines(dedent(body))
}

// codeBlock renders cleaned code as a fenced block. Runs of exactly three
// backticks are escaped.
func codeBlock(lang, code string) string {
	body := escapeFenceRuns(code)
	fence := "```"
	if n := longestLineStartRun(body); n >= len(fence) {
		fence = strings.Repeat("`", n+1)
	}
	if body == "" {
		return fence + lang + "\n" + fence
	}
	return fence + lang + "\n" + body + "\n" + fence
}

// indentLines prefixes every non-blank line of s with indent, except the
// first one when skipFirst is set.
func indentLines(s, indent string, skipFirst bool) string {
	if indent == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" || (i == 0 && skipFirst) {
			continue
		}
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// inlineCode renders s as a backtick span, widening the delimiter when s
// itself contains backticks. Empty input renders as nothing.
func inlineCode(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	if longest == 0 {
		return "`" + s + "`"
	}
	delim := strings.Repeat("`", longest+1)
	return delim + " " + s + " " + delim
}

// stripCDATA removes a CDATA wrapper around (or inside) a code body.
func stripCDATA(s string) string {
	open := strings.Index(s, cdataOpen)
	if open < 0 {
		return s
	}
	end := strings.LastIndex(s, cdataClose)
	if end < open+len(cdataOpen) {
		return s[:open] + s[open+len(cdataOpen):]
	}
	return s[:open] + s[open+len(cdataOpen):end] + s[end+len(cdataClose):]
}

// dedent removes the leading whitespace shared by all non-blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		prefix = commonPrefix(prefix, indent)
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimRight(line[len(prefix):], "\r")
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// escapeFenceRuns escapes every run of exactly three backticks so the run
// cannot close the enclosing fence.
func escapeFenceRuns(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '`' {
			b.WriteByte(s[i])
			i++
			continue
		}
		n := runLength(s, i, '`')
		if n == 3 {
			b.WriteString("\\`\\`\\`")
		} else {
			b.WriteString(s[i : i+n])
		}
		i += n
	}
	return b.String()
}

// longestLineStartRun returns the longest backtick run opening a line of s.
func longestLineStartRun(s string) int {
	longest := 0
	for _, line := range strings.Split(s, "\n") {
		longest = max(longest, runLength(strings.TrimLeft(line, " \t"), 0, '`'))
	}
	return longest
}
