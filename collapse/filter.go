// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"github.com/biogo/biogo/seq"
	"github.com/biogo/store/interval"

	"github.com/kortschak/splice/align"
)

// filter applies the per-class filters to a, modifying it in place. It
// returns false if a should be dropped.
func (c *Collapser) filter(a *align.Alignment) bool {
	spliced := len(a.Introns) != 0
	switch a.Class {
	case align.ShortRead, align.EST:
		if !spliced && a.Weight < c.cfg.MinSingleExonWeight {
			return false
		}
		if !c.RemoveNotSupportedIntronsFromTranscript(a, true) {
			return false
		}
	case align.MRNA:
		if !c.RemoveNotSupportedIntronsFromTranscript(a, true) {
			return false
		}
	case align.Protein:
		if !c.RemoveNotSupportedIntronsFromProt(a) {
			return false
		}
		if !c.ClipProteinToStartStop(a) {
			return false
		}
	}
	if a.Transcript != "" && a.SelfSpecies() {
		if !c.CleanSelfTranscript(a) {
			return false
		}
	}
	if c.cfg.ClipThreshold > 0 && c.coverage != nil {
		before := a.Range
		if !ClipNotSupportedFlanks(a, c.coverage, c.cfg.ClipThreshold) {
			return false
		}
		if a.Range != before {
			c.stats.Clipped++
			a.ID.Altered = true
		}
	}
	return !(spliced && a.IntronDependent() && len(a.Introns) == 0)
}

// supported returns whether any of the introns has enough support to
// retain an alignment of the given class. Alignments without introns
// and alignments of classes without intron thresholds are supported.
func (c *Collapser) supported(class align.Class, introns []IntronSig) bool {
	if len(introns) == 0 || (class != align.ShortRead && class != align.EST) {
		return true
	}
	min := c.cfg.minWeight(class)
	for _, sig := range introns {
		s := c.introns.support(sig.Intron())
		if s.KeepAnyway || s.Weight >= min {
			return true
		}
		if class == align.EST && s.ESTCount >= c.cfg.MinESTCount {
			return true
		}
	}
	return false
}

// intronInterval is an interval.IntInterval adaptor for intron support.
type intronInterval struct {
	id uintptr
	*IntronSupport
}

func (i intronInterval) ID() uintptr { return i.id }
func (i intronInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Sig.Range.Start, End: i.Sig.Range.End}
}
func (i intronInterval) Overlap(b interval.IntRange) bool {
	return i.Sig.Range.Start < b.End && b.Start < i.Sig.Range.End
}

// buildOppositeIndex builds per-strand interval trees of the
// oriented introns with transcript support.
func (c *Collapser) buildOppositeIndex() {
	c.opposite = map[seq.Strand]*interval.IntTree{
		seq.Plus:  {},
		seq.Minus: {},
	}
	var id uintptr
	c.introns.do(func(s *IntronSupport) {
		if !s.Sig.Oriented || s.Weight <= 0 {
			return
		}
		t, ok := c.opposite[s.Sig.Strand]
		if !ok {
			return
		}
		t.Insert(intronInterval{id: id, IntronSupport: s}, true)
		id++
	})
	for _, t := range c.opposite {
		t.AdjustRanges()
	}
}

// contradicted returns whether an oriented intron on the opposite
// strand overlapping in has more weight than w.
func (c *Collapser) contradicted(in align.Intron, w float64) bool {
	if !in.Oriented || c.opposite == nil {
		return false
	}
	var other seq.Strand
	switch in.Strand {
	case seq.Plus:
		other = seq.Minus
	case seq.Minus:
		other = seq.Plus
	default:
		return false
	}
	t := c.opposite[other]
	q := intronInterval{IntronSupport: &IntronSupport{Sig: SigOf(in)}}
	for _, o := range t.Get(q) {
		if o.(intronInterval).Weight > w {
			return true
		}
	}
	return false
}

// RemoveNotSupportedIntronsFromTranscript removes the introns of a that
// are contradicted by better supported introns. If bothStrands is true,
// an oriented intron is contradicted by an overlapping intron on the
// opposite strand with greater weight. Introns marked to be kept are
// never removed. It returns false if a should be dropped.
func (c *Collapser) RemoveNotSupportedIntronsFromTranscript(a *align.Alignment, bothStrands bool) bool {
	if !bothStrands {
		return true
	}
	return c.removeIntrons(a, func(_ int, in align.Intron) bool {
		s := c.introns.support(in)
		if s.KeepAnyway {
			return false
		}
		return c.contradicted(in, s.Weight)
	})
}

// RemoveNotSupportedIntronsFromProt removes the introns of the protein
// alignment a that are not present in any transcript alignment. It
// returns false if a should be dropped.
func (c *Collapser) RemoveNotSupportedIntronsFromProt(a *align.Alignment) bool {
	return c.removeIntrons(a, func(_ int, in align.Intron) bool {
		s := c.introns.support(in)
		return !s.KeepAnyway && s.TranscriptCount() == 0
	})
}

// ClipProteinToStartStop clips the protein alignment a to its coding
// range. It returns false if a should be dropped.
func (c *Collapser) ClipProteinToStartStop(a *align.Alignment) bool {
	if a.CDS.Empty() {
		return true
	}
	before := a.Range
	if !a.ClipTo(a.CDS) {
		return false
	}
	if a.Range != before {
		a.ID.Altered = true
	}
	return true
}

// removeIntrons removes the introns of a for which drop returns true.
// The alignment is split at each removed intron and the piece with the
// most aligned bases is retained, the leftmost on ties. It returns false
// if a should be dropped.
func (c *Collapser) removeIntrons(a *align.Alignment, drop func(i int, in align.Intron) bool) bool {
	var cuts []int
	for i, in := range a.Introns {
		if drop(i, in) {
			cuts = append(cuts, i)
		}
	}
	if len(cuts) == 0 {
		return true
	}
	c.stats.IntronsRemoved += len(cuts)

	var (
		best    align.Range
		bestLen = -1
	)
	consider := func(r align.Range) {
		n := alignedIn(a, r)
		if n > bestLen {
			best, bestLen = r, n
		}
	}
	start := a.Range.Start
	for _, i := range cuts {
		consider(align.Range{Start: start, End: a.Introns[i].Range.Start})
		start = a.Introns[i].Range.End
	}
	consider(align.Range{Start: start, End: a.Range.End})

	if !a.ClipTo(best) {
		return false
	}
	a.ID.Altered = true
	return !(a.IntronDependent() && len(a.Introns) == 0)
}

// alignedIn returns the number of exon bases of a within r.
func alignedIn(a *align.Alignment, r align.Range) int {
	var n int
	for _, e := range a.Exons() {
		n += e.Intersect(r).Len()
	}
	return n
}

// CleanSelfTranscript removes the introns of a that are flanked by
// exon edges with more mismatches to the contig than allowed, and trims
// the outer edges of a in the same way. It returns false if a should be
// dropped.
func (c *Collapser) CleanSelfTranscript(a *align.Alignment) bool {
	if c.window == nil || a.Transcript == "" || c.cfg.EdgeWindow <= 0 {
		return true
	}
	exons := a.Exons()
	ok := c.removeIntrons(a, func(i int, _ align.Intron) bool {
		donor, _ := c.edgeMismatches(a, exons[i], true)
		acceptor, _ := c.edgeMismatches(a, exons[i+1], false)
		return donor > c.cfg.EdgeMismatches || acceptor > c.cfg.EdgeMismatches
	})
	if !ok {
		return false
	}
	if !c.CleanExonEdge(0, a, false) {
		return false
	}
	return c.CleanExonEdge(len(a.Introns), a, true)
}

// CleanExonEdge trims the left or right edge of exon ie of a past the
// innermost mismatch within the edge window when the edge has more
// mismatches than allowed. It returns false if a should be dropped.
func (c *Collapser) CleanExonEdge(ie int, a *align.Alignment, right bool) bool {
	exons := a.Exons()
	if ie < 0 || len(exons) <= ie {
		return true
	}
	n, innermost := c.edgeMismatches(a, exons[ie], right)
	if n <= c.cfg.EdgeMismatches {
		return true
	}
	r := align.Range{Start: innermost + 1, End: a.Range.End}
	if right {
		r = align.Range{Start: a.Range.Start, End: innermost}
	}
	if !a.ClipTo(r) {
		return false
	}
	a.ID.Altered = true
	c.stats.Clipped++
	return true
}

// edgeMismatches returns the number of mismatches between the transcript
// and the contig within the edge window of the exon e, and the position
// of the mismatch furthest from the edge.
func (c *Collapser) edgeMismatches(a *align.Alignment, e align.Range, right bool) (n, innermost int) {
	innermost = -1
	w := min(c.cfg.EdgeWindow, e.Len())
	for k := 0; k < w; k++ {
		pos := e.Start + k
		if right {
			pos = e.End - 1 - k
		}
		g, err := c.window.At(pos)
		if err != nil {
			break
		}
		t, ok := a.TranscriptAt(pos)
		if !ok {
			break
		}
		if upper(t) != g {
			n++
			innermost = pos
		}
	}
	return n, innermost
}

func upper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
