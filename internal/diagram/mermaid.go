package diagram

import "strings"

// makeID derives a Mermaid-safe node identifier from a symbol or path
// name. A prefix keeps the ID namespaces of different node families
// (directories, files, symbols) from colliding.
func makeID(prefix, name string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(name) + 1)
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// escapeLabel makes a name safe inside a quoted Mermaid label.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// escapeText makes a name safe as bare Mermaid node text, where
// brackets and braces would open shape syntax.
func escapeText(s string) string {
	replacer := strings.NewReplacer(
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		`"`, "'",
	)
	return replacer.Replace(s)
}
