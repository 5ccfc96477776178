package pack

// Replacement is one byte-range edit against a module's original content.
// Exactly one of Literal, Deferred or Inline carries the edit value:
//   - Literal: the string is emitted verbatim.
//   - Deferred: called at write time with the module being emitted; the
//     returned string is emitted. Used when the value depends on which
//     bundle is being written (url rewrites).
//   - Inline: the module's patched content is emitted in place.
//
// A replacement with Start == End is a point insertion.
type Replacement struct {
	Start    int
	End      int
	Literal  string
	Deferred func(emitter *Module) string
	Inline   *Module
}

// replace inserts the replacement keeping the store ordered and strictly
// non-overlapping (for successive entries, prev.End <= next.Start). It
// returns the insertion position, or -1 when the interval overlaps an
// existing edit; the edit is silently dropped in that case.
func (m *Module) replace(r *Replacement) int {
	if r.Start > r.End || r.End > len(m.Content)+1 {
		// an end of len+1 is accepted so the transient hidden-region
		// sentinel fits; nothing may reach further
		return -1
	}
	n := len(m.replacements)
	if n == 0 || m.replacements[n-1].End <= r.Start {
		m.replacements = append(m.replacements, r)
		return n
	}
	// back-scan for the first prior entry that starts at or before the new
	// interval
	i := n
	for i > 0 && m.replacements[i-1].Start > r.Start {
		i--
	}
	if i > 0 && m.replacements[i-1].End > r.Start {
		return -1
	}
	if i < n && r.End > m.replacements[i].Start {
		return -1
	}
	m.replacements = append(m.replacements, nil)
	copy(m.replacements[i+1:], m.replacements[i:])
	m.replacements[i] = r
	return i
}

// Replace schedules a literal string edit over [start, end).
func (m *Module) Replace(start int, end int, data string) int {
	return m.replace(&Replacement{Start: start, End: end, Literal: data})
}

// ReplaceDeferred schedules an edit whose value is computed at write time.
func (m *Module) ReplaceDeferred(start int, end int, data func(emitter *Module) string) int {
	return m.replace(&Replacement{Start: start, End: end, Deferred: data})
}

// ReplaceModule schedules an edit that inlines another module's patched
// content over [start, end).
func (m *Module) ReplaceModule(start int, end int, data *Module) int {
	return m.replace(&Replacement{Start: start, End: end, Inline: data})
}

// Insert schedules a zero-width literal insertion at the given index.
func (m *Module) Insert(index int, data string) int {
	return m.Replace(index, index, data)
}

// InsertModule schedules a zero-width module insertion at the given index.
func (m *Module) InsertModule(index int, data *Module) int {
	return m.ReplaceModule(index, index, data)
}

// Remove schedules a deletion of [start, end).
func (m *Module) Remove(start int, end int) int {
	return m.Replace(start, end, "")
}

// beginHiddenRegion opens a hidden region at the given index. Nested
// regions share the outermost entry: only the 0 -> 1 transition pushes the
// deletion, with a past-end sentinel covering the rest of the file until
// the region is closed.
func (m *Module) beginHiddenRegion(index int) {
	m.hiddenDepth++
	if m.hiddenDepth == 1 {
		r := &Replacement{Start: index, End: len(m.Content) + 1}
		if m.replace(r) >= 0 {
			m.hiddenRegion = r
		}
	}
}

// endHiddenRegion closes the hidden region at the given index.
func (m *Module) endHiddenRegion(index int) {
	if m.hiddenDepth == 0 {
		return
	}
	m.hiddenDepth--
	if m.hiddenDepth == 0 && m.hiddenRegion != nil {
		if index < m.hiddenRegion.Start {
			index = m.hiddenRegion.Start
		}
		m.hiddenRegion.End = index
		m.hiddenRegion = nil
	}
}

// closeHiddenRegions force-closes any hidden region still open at the end
// of the content, so no sentinel survives into emission.
func (m *Module) closeHiddenRegions() {
	if m.hiddenDepth > 0 {
		m.hiddenDepth = 1
		m.endHiddenRegion(len(m.Content))
	}
}
