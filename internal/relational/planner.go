package relational

// indexCandidate names one usable index match against the WHERE clause,
// together with the operator it would serve and the literal to probe with.
type indexCandidate struct {
	index *Index
	op    string
	lit   Literal
}

// findIndexCandidates walks a (possibly AND-combined) predicate tree
// looking for `col OP literal` terms backed by an index on t. Only AND-ed
// top-level terms are considered usable (an OR at the top forces a full
// scan, since either side could admit rows the other excludes).
func findIndexCandidates(t *Table, e Expr) []indexCandidate {
	var out []indexCandidate
	var walk func(e Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *BinaryExpr:
			if n.Op == "AND" {
				walk(n.Left)
				walk(n.Right)
				return
			}
			ref, lit, ok := refLiteralPair(n.Left, n.Right)
			if !ok {
				return
			}
			name := ref.Column
			if ref.JSONPath != "" {
				name = ref.Column
			}
			for _, ix := range t.Indexes {
				if t.Columns[ix.ColIndex].Name != name {
					continue
				}
				if ix.Kind == IndexJSONPath && ix.Path != ref.JSONPath {
					continue
				}
				if ix.Kind != IndexBTree && n.Op != "=" {
					continue
				}
				out = append(out, indexCandidate{index: ix, op: n.Op, lit: *lit})
			}
		}
	}
	walk(e)
	return out
}

func refLiteralPair(a, b Expr) (*ColRef, *Literal, bool) {
	if ref, ok := a.(*ColRef); ok {
		if lit, ok := b.(*Literal); ok {
			return ref, lit, true
		}
	}
	if ref, ok := b.(*ColRef); ok {
		if lit, ok := a.(*Literal); ok {
			return ref, lit, true
		}
	}
	return nil, nil, false
}

// pickBestIndex returns the most selective candidate (lowest estimated
// cardinality), or nil if none are usable.
func pickBestIndex(cands []indexCandidate) *indexCandidate {
	var best *indexCandidate
	bestCard := -1
	for i := range cands {
		c := cands[i]
		card := c.index.Cardinality()
		if best == nil || card < bestCard {
			best = &c
			bestCard = card
		}
	}
	return best
}
