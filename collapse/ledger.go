// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"sort"

	"github.com/kortschak/splice/align"
)

// Gap is a genomic gap that needs Len bases inserted at Pos.
type Gap struct {
	Pos int
	Len int
}

// CorrectionData is externally provided genome correction information.
type CorrectionData struct {
	// Confirmed are regions where the genome sequence is
	// known to be correct.
	Confirmed []align.Range

	// Replacements are single base substitutions
	// keyed by genomic position.
	Replacements map[int]byte

	// Indels are known insertion and deletion corrections.
	Indels []align.Indel
}

// Ledger records genome corrections found while filling genomic
// gaps, together with externally supplied corrections.
type Ledger struct {
	gaps         map[int]int
	indels       map[align.Indel]struct{}
	confirmed    []align.Range
	replacements map[int]byte
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		gaps:         make(map[int]int),
		indels:       make(map[align.Indel]struct{}),
		replacements: make(map[int]byte),
	}
}

// AddGap records a gap of n bases at pos. If a gap is already
// recorded at pos the longer gap is retained.
func (l *Ledger) AddGap(pos, n int) {
	if n <= 0 {
		return
	}
	if n > l.gaps[pos] {
		l.gaps[pos] = n
	}
}

// AddIndel records an indel correction.
func (l *Ledger) AddIndel(d align.Indel) {
	l.indels[d] = struct{}{}
}

// Confirm marks r as confirmed genome sequence.
func (l *Ledger) Confirm(r align.Range) {
	if r.Empty() {
		return
	}
	i := sort.Search(len(l.confirmed), func(i int) bool {
		return l.confirmed[i].End >= r.Start
	})
	j := i
	for ; j < len(l.confirmed) && l.confirmed[j].Start <= r.End; j++ {
		r.Start = min(r.Start, l.confirmed[j].Start)
		r.End = max(r.End, l.confirmed[j].End)
	}
	l.confirmed = append(l.confirmed[:i], append([]align.Range{r}, l.confirmed[j:]...)...)
}

// IsConfirmed returns whether pos is within a confirmed region.
func (l *Ledger) IsConfirmed(pos int) bool {
	i := sort.Search(len(l.confirmed), func(i int) bool {
		return l.confirmed[i].End > pos
	})
	return i < len(l.confirmed) && l.confirmed[i].Contains(pos)
}

// Replace records a single base replacement at pos. An existing
// replacement at pos is retained.
func (l *Ledger) Replace(pos int, base byte) bool {
	if _, ok := l.replacements[pos]; ok {
		return false
	}
	l.replacements[pos] = base
	return true
}

// AddCorrectionData merges d into the ledger.
func (l *Ledger) AddCorrectionData(d CorrectionData) {
	for _, r := range d.Confirmed {
		l.Confirm(r)
	}
	for pos, base := range d.Replacements {
		l.Replace(pos, base)
	}
	for _, in := range d.Indels {
		l.AddIndel(in)
	}
}

// Merge merges the corrections held by o into l.
func (l *Ledger) Merge(o *Ledger) {
	for pos, n := range o.gaps {
		l.AddGap(pos, n)
	}
	for d := range o.indels {
		l.AddIndel(d)
	}
	for _, r := range o.confirmed {
		l.Confirm(r)
	}
	for pos, base := range o.replacements {
		l.Replace(pos, base)
	}
}

// Gaps returns the recorded gaps in position order.
func (l *Ledger) Gaps() []Gap {
	gaps := make([]Gap, 0, len(l.gaps))
	for pos, n := range l.gaps {
		gaps = append(gaps, Gap{Pos: pos, Len: n})
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Pos < gaps[j].Pos })
	return gaps
}

// Indels returns the recorded indels in position order.
func (l *Ledger) Indels() []align.Indel {
	indels := make([]align.Indel, 0, len(l.indels))
	for d := range l.indels {
		indels = append(indels, d)
	}
	sort.Slice(indels, func(i, j int) bool {
		a, b := indels[i], indels[j]
		if a.Loc != b.Loc {
			return a.Loc < b.Loc
		}
		if a.Insertion != b.Insertion {
			return a.Insertion
		}
		if a.Len != b.Len {
			return a.Len < b.Len
		}
		return a.Seq < b.Seq
	})
	return indels
}

// Confirmed returns the confirmed regions in position order.
func (l *Ledger) Confirmed() []align.Range {
	return append([]align.Range(nil), l.confirmed...)
}

// Replacements returns a copy of the recorded base replacements.
func (l *Ledger) Replacements() map[int]byte {
	r := make(map[int]byte, len(l.replacements))
	for pos, base := range l.replacements {
		r[pos] = base
	}
	return r
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
