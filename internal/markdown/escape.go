package markdown

import "strings"

var angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// escapeAngles entity-escapes every angle bracket. It runs after protected
// content has been moved into slots, so only literal text is affected.
func escapeAngles(s string) string {
	return angleEscaper.Replace(s)
}

// escapeFenceOpeners backslash-escapes a run of three or more backticks
// that starts a line of literal text, so that it cannot open a fence when
// the output is rewritten again.
func escapeFenceOpeners(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if n := runLength(line, 0, '`'); n >= 3 {
			lines[i] = strings.Repeat("\\`", n) + line[n:]
		}
	}
	return strings.Join(lines, "\n")
}

// normalize tidies whitespace in unprotected text: lines lose leading
// whitespace and trailing whitespace, except that a line ending in two or
// more spaces followed by more text keeps exactly two (a hard break). Runs of
// blank lines collapse to one and the result is trimmed.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")

	out := make([]string, 0, len(lines))
	blank := true
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		if strings.HasSuffix(line, "  ") && hasTextAfter(lines, i) {
			trimmed += "  "
		}
		out = append(out, trimmed)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// hasTextAfter reports whether the line after i is non-blank.
func hasTextAfter(lines []string, i int) bool {
	return i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != ""
}
