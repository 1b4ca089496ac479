package diagram

import (
	"path"
	"sort"
	"strings"
)

// defaultTopFiles bounds the file leaves per language branch when the
// caller does not set a limit.
const defaultTopFiles = 5

// Mindmap renders a root node, one branch per language, and the
// languages' densest files as leaves.
type Mindmap struct{}

func (Mindmap) Kind() Kind { return KindMindmap }

func (Mindmap) ValidateInputs(in *Inputs) error {
	if in.Store == nil || in.Store.Len() == 0 {
		return &InvalidInputError{Kind: KindMindmap, Field: "store", Reason: "no symbol records"}
	}
	return nil
}

func (Mindmap) Body(doc *Document, in *Inputs) error {
	title := in.Title
	if title == "" {
		title = "Codebase"
	}
	doc.Appendf("  root((%s))", mindText(title))

	top := in.TopFiles
	if top <= 0 {
		top = defaultTopFiles
	}

	perLang := make(map[string]map[string]int)
	for _, t := range in.Store.All() {
		lang := t.Language
		if lang == "" {
			lang = "unknown"
		}
		counts := perLang[lang]
		if counts == nil {
			counts = make(map[string]int)
			perLang[lang] = counts
		}
		counts[t.FilePath]++
	}

	langs := make([]string, 0, len(perLang))
	for l := range perLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		doc.Appendf("    (%s)", mindText(lang))

		counts := perLang[lang]
		type fileCount struct {
			path string
			n    int
		}
		files := make([]fileCount, 0, len(counts))
		for p, n := range counts {
			files = append(files, fileCount{path: p, n: n})
		}
		sort.Slice(files, func(i, j int) bool {
			if files[i].n != files[j].n {
				return files[i].n > files[j].n
			}
			return files[i].path < files[j].path
		})
		if len(files) > top {
			files = files[:top]
		}
		for _, fc := range files {
			doc.Appendf("      %s", mindText(path.Base(fc.path)))
		}
	}
	return nil
}

// mindText strips the bracket runes that would open shape syntax in a
// mindmap node.
func mindText(s string) string {
	replacer := strings.NewReplacer(
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
		"\n", " ",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
