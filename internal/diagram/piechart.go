package diagram

import "sort"

// PieChart renders one slice per language, weighted by symbol count.
type PieChart struct{}

func (PieChart) Kind() Kind { return KindPieChart }

func (PieChart) ValidateInputs(in *Inputs) error {
	st := in.stats()
	if st.Empty() || len(st.ByLanguage) == 0 {
		return &InvalidInputError{Kind: KindPieChart, Field: "meta", Reason: "no symbol statistics recorded"}
	}
	return nil
}

func (PieChart) Body(doc *Document, in *Inputs) error {
	if in.Title != "" {
		doc.Appendf("  title %s", escapeLabel(in.Title))
	}
	st := in.stats()
	langs := make([]string, 0, len(st.ByLanguage))
	for l := range st.ByLanguage {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		doc.Appendf("  \"%s\" : %d", escapeLabel(l), st.ByLanguage[l])
	}
	return nil
}
