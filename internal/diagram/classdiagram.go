package diagram

import (
	"sort"
	"strings"

	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// ClassDiagram renders type symbols with their members and methods,
// plus the extracted structural edges using each rule's arrow token.
// Call edges are left to the sequence and code-flow kinds.
type ClassDiagram struct{}

func (ClassDiagram) Kind() Kind { return KindClassDiagram }

func (ClassDiagram) ValidateInputs(in *Inputs) error {
	if in.Store != nil {
		for _, t := range in.Store.All() {
			if t.IsType() {
				return nil
			}
		}
	}
	if len(classEdges(in.Relationships)) > 0 {
		return nil
	}
	return &InvalidInputError{Kind: KindClassDiagram, Field: "store", Reason: "no type symbols or structural relationships"}
}

func (ClassDiagram) Body(doc *Document, in *Inputs) error {
	declared := make(map[string]struct{})

	for _, t := range typeTags(in.Store) {
		declared[t.Name] = struct{}{}
		id := classID(t.Name)
		members, methods := classMembers(in.Store, t.Name)
		note := kindAnnotation(t.Kind)
		if note == "" && len(members) == 0 && len(methods) == 0 {
			doc.Appendf("  class %s", id)
			continue
		}
		doc.Appendf("  class %s {", id)
		if note != "" {
			doc.Appendf("    %s", note)
		}
		for _, m := range members {
			doc.Appendf("    +%s", escapeText(m))
		}
		for _, m := range methods {
			doc.Appendf("    +%s()", escapeText(m))
		}
		doc.Append("  }")
	}

	edges := classEdges(in.Relationships)

	// Endpoints without a tagged type still render, as external
	// reference stubs.
	for _, r := range edges {
		for _, name := range []string{r.Source, r.Target} {
			if _, ok := declared[name]; ok {
				continue
			}
			declared[name] = struct{}{}
			doc.Appendf("  class %s", classID(name))
		}
	}

	if len(edges) > 0 {
		doc.Append("")
	}
	for _, r := range edges {
		arrow := r.ArrowToken
		if arrow == "" {
			arrow = "-->"
		}
		if r.Label != "" {
			doc.Appendf("  %s %s %s : %s", classID(r.Source), arrow, classID(r.Target), escapeText(r.Label))
		} else {
			doc.Appendf("  %s %s %s", classID(r.Source), arrow, classID(r.Target))
		}
	}
	return nil
}

// classEdges filters out call edges, keeping the declaration-shaped
// kinds the class grammar is meant for.
func classEdges(rels []extract.Relationship) []extract.Relationship {
	var out []extract.Relationship
	for _, r := range rels {
		if r.Kind == langconf.KindCall {
			continue
		}
		out = append(out, r)
	}
	return out
}

// typeTags returns one tag per distinct type name, ordered by name.
func typeTags(store *tags.Store) []tags.Tag {
	if store == nil {
		return nil
	}
	all := store.All()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		if all[i].FilePath != all[j].FilePath {
			return all[i].FilePath < all[j].FilePath
		}
		return all[i].StartLine < all[j].StartLine
	})
	seen := make(map[string]struct{})
	var out []tags.Tag
	for _, t := range all {
		if !t.IsType() {
			continue
		}
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t)
	}
	return out
}

// classMembers collects the member and method names scoped to a type,
// in declaration order. Partial declarations across files merge.
func classMembers(store *tags.Store, typeName string) (members, methods []string) {
	if store == nil {
		return nil, nil
	}
	var scoped []tags.Tag
	for _, t := range store.All() {
		if t.Scope == typeName {
			scoped = append(scoped, t)
		}
	}
	sort.Slice(scoped, func(i, j int) bool {
		if scoped[i].FilePath != scoped[j].FilePath {
			return scoped[i].FilePath < scoped[j].FilePath
		}
		if scoped[i].StartLine != scoped[j].StartLine {
			return scoped[i].StartLine < scoped[j].StartLine
		}
		return scoped[i].Name < scoped[j].Name
	})
	seen := make(map[string]struct{})
	for _, t := range scoped {
		if _, dup := seen[t.Name]; dup {
			continue
		}
		switch t.Kind {
		case tags.KindMethod, tags.KindFunction:
			seen[t.Name] = struct{}{}
			methods = append(methods, t.Name)
		case tags.KindMember, tags.KindField, tags.KindVariable:
			seen[t.Name] = struct{}{}
			members = append(members, t.Name)
		}
	}
	return members, methods
}

// kindAnnotation returns the stereotype line for annotated type kinds.
func kindAnnotation(kind tags.Kind) string {
	switch kind {
	case tags.KindInterface:
		return "<<interface>>"
	case tags.KindEnum:
		return "<<enumeration>>"
	}
	return ""
}

// classID sanitizes a symbol name into a class identifier the grammar
// accepts; the display form is not preserved.
func classID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
