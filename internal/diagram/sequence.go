package diagram

// Sequence renders the call graph as ordered sequence steps, starting
// from the detected entry points. Its footer narrates the entry points
// instead of raw statistics.
type Sequence struct{}

func (Sequence) Kind() Kind { return KindSequence }

func (Sequence) ValidateInputs(in *Inputs) error {
	if in.Calls == nil || in.Calls.Len() == 0 {
		return &InvalidInputError{Kind: KindSequence, Field: "calls", Reason: "no call or dependency edges recorded"}
	}
	return nil
}

func (Sequence) Body(doc *Document, in *Inputs) error {
	for _, name := range in.Calls.Nodes() {
		doc.Appendf("  participant %s as %s", participantID(name), escapeText(name))
	}
	doc.Append("")

	// A cyclic graph has no uncalled symbol, so every node becomes a
	// candidate root; the emitted set keeps the steps deduplicated.
	roots := in.Calls.EntryPoints()
	if len(roots) == 0 {
		roots = in.Calls.Nodes()
	}

	emitted := make(map[[2]string]struct{})
	onPath := make(map[string]struct{})
	done := make(map[string]struct{})

	var walk func(name string)
	walk = func(name string) {
		onPath[name] = struct{}{}
		for _, callee := range in.Calls.Callees(name) {
			pair := [2]string{name, callee}
			if _, dup := emitted[pair]; !dup {
				emitted[pair] = struct{}{}
				doc.Appendf("  %s->>%s: %s()", participantID(name), participantID(callee), escapeText(callee))
			}
			// A callee already on the current path gets its edge
			// but no descent, so mutual recursion terminates.
			if _, cyc := onPath[callee]; cyc {
				continue
			}
			if _, fin := done[callee]; fin {
				continue
			}
			walk(callee)
		}
		delete(onPath, name)
		done[name] = struct{}{}
	}
	for _, r := range roots {
		if _, fin := done[r]; !fin {
			walk(r)
		}
	}
	return nil
}

func (Sequence) Footer(doc *Document, in *Inputs) {
	doc.Append("")
	entries := in.Calls.EntryPoints()
	if len(entries) == 0 {
		doc.Append("%% Entry points: none (every symbol has callers)")
		return
	}
	doc.Append("%% Entry points:")
	for _, e := range entries {
		doc.Appendf("%%%%   %s (callees: %d)", e, len(in.Calls.Callees(e)))
	}
}

func participantID(name string) string {
	return makeID("p", name)
}
