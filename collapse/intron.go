// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"github.com/biogo/biogo/seq"
	"github.com/biogo/store/llrb"

	"github.com/kortschak/splice/align"
)

// IntronSupport is the aggregated evidence for an intron.
type IntronSupport struct {
	Sig IntronSig

	// Weight is the sum of the weights of transcript
	// alignments containing the intron.
	Weight float64

	// Identity is the highest identity of an alignment
	// containing the intron.
	Identity float64

	ESTCount     int
	SRCount      int
	MRNACount    int
	ProteinCount int

	// KeepAnyway marks introns retained regardless of support.
	KeepAnyway bool

	// SelfSpecies is set when a same-species transcript
	// contains the intron.
	SelfSpecies bool
}

// Compare satisfies the llrb.Comparable interface.
func (s *IntronSupport) Compare(c llrb.Comparable) int {
	return s.Sig.Compare(c.(*IntronSupport).Sig)
}

// TranscriptCount returns the number of non-protein
// alignments containing the intron.
func (s *IntronSupport) TranscriptCount() int {
	return s.ESTCount + s.SRCount + s.MRNACount
}

// intronTable is the set of introns seen during ingestion,
// ordered by signature.
type intronTable struct {
	t llrb.Tree
}

// lookup returns the support record for sig, creating it if needed.
func (t *intronTable) lookup(sig IntronSig) *IntronSupport {
	q := &IntronSupport{Sig: sig}
	if s := t.t.Get(q); s != nil {
		return s.(*IntronSupport)
	}
	t.t.Insert(q)
	return q
}

// add folds the alignment a into the support of the intron in.
func (t *intronTable) add(in align.Intron, a *align.Alignment) {
	s := t.lookup(SigOf(in))
	if a.Has(align.KeepIntrons) {
		s.KeepAnyway = true
	}

	delta := 1
	if a.IsTombstone() {
		delta = -1
	}
	switch a.Class {
	case align.Protein:
		s.ProteinCount = nonNeg(s.ProteinCount + delta)
		return
	case align.EST:
		s.ESTCount = nonNeg(s.ESTCount + delta)
	case align.ShortRead:
		s.SRCount = nonNeg(s.SRCount + delta)
	default:
		s.MRNACount = nonNeg(s.MRNACount + delta)
	}
	s.Weight += a.Weight
	if a.IsTombstone() {
		return
	}
	if a.Identity > s.Identity {
		s.Identity = a.Identity
	}
	if a.SelfSpecies() {
		s.SelfSpecies = true
	}
}

func nonNeg(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// span calls fn for each intron with the range r that is either
// unoriented or oriented on strand, in signature order.
func (t *intronTable) span(r align.Range, strand seq.Strand, fn func(*IntronSupport)) {
	do := func(c llrb.Comparable) (done bool) {
		s := c.(*IntronSupport)
		if s.Sig.Range == r {
			fn(s)
		}
		return false
	}
	bounds := func(oriented bool, strand seq.Strand) (from, to *IntronSupport) {
		from = &IntronSupport{Sig: IntronSig{Range: r, Strand: strand, Oriented: oriented}}
		to = &IntronSupport{Sig: IntronSig{Range: align.Range{Start: r.Start, End: r.End + 1}, Strand: strand, Oriented: oriented}}
		return from, to
	}
	from, to := bounds(false, seq.None)
	t.t.DoRange(do, from, to)
	if strand != seq.None {
		from, to = bounds(true, strand)
		t.t.DoRange(do, from, to)
	}
}

// support returns the aggregate support for in from all compatible
// signatures: the same range, either unoriented or on the same strand,
// with any splice sites.
func (t *intronTable) support(in align.Intron) IntronSupport {
	agg := IntronSupport{Sig: SigOf(in)}
	strand := seq.None
	if in.Oriented {
		strand = in.Strand
	}
	t.span(in.Range, strand, func(s *IntronSupport) {
		agg.Weight += s.Weight
		agg.ESTCount += s.ESTCount
		agg.SRCount += s.SRCount
		agg.MRNACount += s.MRNACount
		agg.ProteinCount += s.ProteinCount
		agg.KeepAnyway = agg.KeepAnyway || s.KeepAnyway
		agg.SelfSpecies = agg.SelfSpecies || s.SelfSpecies
		if s.Identity > agg.Identity {
			agg.Identity = s.Identity
		}
	})
	return agg
}

// do calls fn for each intron in signature order.
func (t *intronTable) do(fn func(*IntronSupport)) {
	t.t.Do(func(c llrb.Comparable) (done bool) {
		fn(c.(*IntronSupport))
		return false
	})
}

func (t *intronTable) len() int { return t.t.Len() }
