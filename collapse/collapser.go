// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collapse implements collapsing and filtering of spliced alignments
// of a genomic contig in preparation for gene model construction.
//
// Alignments with the same intron structure and classification share an
// equivalence key and are held together in a group, with identical members
// merged by summing their weights. The introns of every alignment are
// accumulated into a support table that drives the per-class filtering of
// short read, EST, mRNA and protein alignments. Alignments carrying
// record-specific detail such as indels or unaligned tails are filtered
// individually and may be used to fill genomic gaps, with the corrections
// recorded in a Ledger.
//
// A Collapser is used in two phases: all alignments are added and then the
// filtered alignments are retrieved. It is not safe for concurrent use;
// parallel work should shard alignments by contig region and merge the
// resulting ledgers.
package collapse

import (
	"errors"
	"sort"

	"github.com/biogo/biogo/seq"
	"github.com/biogo/store/interval"

	"github.com/kortschak/splice/align"
)

var (
	ErrSealed        = errors.New("collapse: alignment added after filtering")
	ErrWrongContig   = errors.New("collapse: alignment on another contig")
	ErrOutsideRegion = errors.New("collapse: alignment outside collapser region")
	ErrLowIdentity   = errors.New("collapse: single exon alignment below identity threshold")
)

// Stats holds counts of the alignments handled by a Collapser.
type Stats struct {
	Ingested      int
	Rejected      int
	Tombstones    int
	PassedThrough int
	Individual    int

	Groups    int
	Collapsed int

	// GroupWeight is the total weight held by
	// groups after collapsing.
	GroupWeight float64

	// RangeTargetConflicts is the number of collapsed alignments
	// sharing a key and range with an alignment of another target.
	RangeTargetConflicts int

	Dropped        [4]int // Indexed by align.Class.
	IntronsRemoved int
	Clipped        int
	GapsFilled     int
	Retained       int
}

// Collapser collapses and filters the alignments of a contig.
type Collapser struct {
	cfg    Config
	contig string
	region align.Range
	window *Window

	groups     groupStore
	introns    intronTable
	individual []align.Alignment
	other      []align.Alignment

	ledger   *Ledger
	coverage *Coverage
	opposite map[seq.Strand]*interval.IntTree

	collapsed bool
	filtered  bool
	survivors []align.Alignment

	stats Stats
}

// New returns a Collapser for alignments within region of the named
// contig. If region is empty alignments are accepted at any position.
// If acc is nil or region is empty, operations that depend on the
// genomic sequence are skipped.
func New(contig string, region align.Range, acc ContigAccessor, cfg Config) *Collapser {
	c := &Collapser{
		cfg:    cfg,
		contig: contig,
		region: region,
		ledger: NewLedger(),
	}
	if acc != nil && !region.Empty() {
		c.window = NewWindow(acc, contig, region)
	}
	return c
}

// Config returns the configuration of c.
func (c *Collapser) Config() Config { return c.cfg }

// Window returns the sequence window of c. It is nil if c has no
// sequence.
func (c *Collapser) Window() *Window { return c.window }

// Ledger returns the correction ledger of c.
func (c *Collapser) Ledger() *Ledger { return c.ledger }

// Stats returns the alignment counts of c.
func (c *Collapser) Stats() Stats {
	s := c.stats
	s.Groups = c.groups.len()
	return s
}

// AddCorrectionData merges externally provided corrections into the
// ledger. Base replacements are applied to the sequence window.
func (c *Collapser) AddCorrectionData(d CorrectionData) {
	c.ledger.AddCorrectionData(d)
	if c.window == nil {
		return
	}
	for pos, base := range c.ledger.Replacements() {
		c.window.Replace(pos, base)
	}
}

// ForceKeepIntron marks in to be retained regardless of its support.
func (c *Collapser) ForceKeepIntron(in align.Intron) {
	c.introns.lookup(SigOf(in)).KeepAnyway = true
}

// AddAlignment adds a to the collapser. Malformed alignments and
// alignments that fail the identity threshold are rejected with an error;
// rejection of an alignment does not affect the collapser. A negative
// weight alignment removes weight from the introns and from the identical
// alignments it matches.
func (c *Collapser) AddAlignment(a align.Alignment) error {
	if c.filtered {
		return ErrSealed
	}
	a = a.Clone()
	err := c.check(&a)
	if err != nil {
		c.stats.Rejected++
		return err
	}
	a.Contig = c.contig
	c.stats.Ingested++

	mode := c.cfg.mode(a.Class)
	if mode == PassThrough || a.Has(align.Curated) {
		c.other = append(c.other, a)
		c.stats.PassedThrough++
		return nil
	}

	if a.IsTombstone() {
		c.stats.Tombstones++
	} else if mode == Filter && a.IntronDependent() && len(a.Introns) == 0 && a.Identity < c.cfg.MinIdentity {
		c.stats.Ingested--
		c.stats.Rejected++
		return ErrLowIdentity
	}

	c.fillSplices(&a)
	for _, in := range a.Introns {
		c.introns.add(in, &a)
	}

	if a.Class == align.Protein || hasDetail(&a) {
		if !a.IsTombstone() {
			c.individual = append(c.individual, a)
			c.stats.Individual++
		}
		return nil
	}
	c.groups.add(&a)
	return nil
}

func (c *Collapser) check(a *align.Alignment) error {
	if a.Contig != "" && a.Contig != c.contig {
		return ErrWrongContig
	}
	err := a.Normalize()
	if err != nil {
		return err
	}
	if !c.region.Empty() && a.Range.Intersect(c.region) != a.Range {
		return ErrOutsideRegion
	}
	return nil
}

// hasDetail returns whether a carries information that is
// not retained by an alignment group.
func hasDetail(a *align.Alignment) bool {
	return len(a.Indels) != 0 ||
		a.Unaligned.LeftLen != 0 || a.Unaligned.RightLen != 0 ||
		a.Transcript != "" ||
		!a.CDS.Empty() ||
		a.Has(align.CrossSpecies) ||
		a.Has(align.KeepIntrons)
}

// fillSplices sets missing intron splice sites from the contig sequence.
func (c *Collapser) fillSplices(a *align.Alignment) {
	if c.window == nil {
		return
	}
	for i, in := range a.Introns {
		if in.Sig != "" {
			continue
		}
		sig, err := c.window.splice(in)
		if err != nil {
			return
		}
		a.Introns[i].Sig = sig
	}
}

// CollapseIdentical merges identical alignments within each group.
// It is called by FilterAlignments and is idempotent.
func (c *Collapser) CollapseIdentical() {
	if c.collapsed {
		return
	}
	for _, g := range c.groups.groups {
		removed, conflicts := g.collapse()
		c.stats.Collapsed += removed
		c.stats.RangeTargetConflicts += conflicts
		c.stats.GroupWeight += g.weight()
	}
	c.collapsed = true
}

// FilterAlignments collapses identical alignments and applies the
// per-class filters. Alignments can not be added after FilterAlignments
// has been called.
func (c *Collapser) FilterAlignments() error {
	if c.filtered {
		return nil
	}
	if c.window != nil {
		err := c.window.load()
		if err != nil {
			return err
		}
	}
	c.CollapseIdentical()
	err := c.buildCoverage()
	if err != nil {
		return err
	}
	c.buildOppositeIndex()

	for _, g := range c.groups.sorted() {
		class := g.key.Class()
		mode := c.cfg.mode(class)
		supported := mode != Filter || c.supported(class, g.key.Introns)
		for i := range g.entries {
			a := g.alignment(&g.entries[i])
			a.Contig = c.contig
			if !supported || (mode == Filter && !c.filter(&a)) {
				c.stats.Dropped[class]++
				continue
			}
			c.survivors = append(c.survivors, a)
		}
	}

	for _, a := range c.individual {
		a = a.Clone()

		// Corrections are only kept for alignments that are retained.
		var (
			fills  *Ledger
			filled int
		)
		if c.cfg.Fill != 0 && a.SelfSpecies() && a.Class != align.ShortRead {
			fills = NewLedger()
			a, filled = c.fillGaps(a, c.cfg.Fill, fills)
		}
		if c.cfg.mode(a.Class) == Filter {
			var sigs []IntronSig
			if a.IntronDependent() {
				sigs = KeyOf(&a).Introns
			}
			if !c.supported(a.Class, sigs) || !c.filter(&a) {
				c.stats.Dropped[a.Class]++
				continue
			}
		}
		if fills != nil {
			c.ledger.Merge(fills)
			c.stats.GapsFilled += filled
		}
		c.survivors = append(c.survivors, a)
	}

	c.stats.Retained = len(c.survivors)
	c.filtered = true
	return nil
}

// buildCoverage accumulates the weight of all collapsed and individual
// alignments, and marks confirmed regions.
func (c *Collapser) buildCoverage() error {
	r := c.region
	if r.Empty() {
		r = c.extent()
	}
	cov, err := NewCoverage(r)
	if err != nil {
		return err
	}
	for _, g := range c.groups.groups {
		for i := range g.entries {
			a := g.alignment(&g.entries[i])
			err = cov.AddAlignment(&a)
			if err != nil {
				return err
			}
		}
	}
	for i := range c.individual {
		err = cov.AddAlignment(&c.individual[i])
		if err != nil {
			return err
		}
	}
	for _, r := range c.ledger.Confirmed() {
		err = cov.Confirm(r)
		if err != nil {
			return err
		}
	}
	c.coverage = cov
	return nil
}

// extent returns the range spanned by all collapsible alignments.
func (c *Collapser) extent() align.Range {
	var r align.Range
	first := true
	extend := func(x align.Range) {
		if first {
			r = x
			first = false
			return
		}
		r.Start = min(r.Start, x.Start)
		r.End = max(r.End, x.End)
	}
	for _, g := range c.groups.groups {
		for _, e := range g.entries {
			extend(e.rng)
		}
	}
	for _, a := range c.individual {
		extend(a.Range)
	}
	return r
}

// Coverage returns the alignment coverage used for flank clipping.
// It is nil until FilterAlignments has been called.
func (c *Collapser) Coverage() *Coverage { return c.coverage }

// GetCollapsedAlignments returns the filtered alignments as a ClusterSet,
// filtering the alignments if that has not already been done.
func (c *Collapser) GetCollapsedAlignments() (*ClusterSet, error) {
	err := c.FilterAlignments()
	if err != nil {
		return nil, err
	}
	cls := NewClusterSet()
	for _, a := range c.survivors {
		cls.CheckAndInsert(a)
	}
	return cls, nil
}

// GetOnlyOtherAlignments returns the alignments that were passed
// through without collapsing or filtering.
func (c *Collapser) GetOnlyOtherAlignments() []align.Alignment {
	return c.other
}

// Introns returns the intron support table in signature order.
func (c *Collapser) Introns() []IntronSupport {
	introns := make([]IntronSupport, 0, c.introns.len())
	c.introns.do(func(s *IntronSupport) {
		introns = append(introns, *s)
	})
	return introns
}

// Support returns the aggregated support for in over signatures with
// the same range that are unoriented or on the strand of in.
func (c *Collapser) Support(in align.Intron) IntronSupport {
	return c.introns.support(in)
}

// RetainedIntrons returns the signatures of the introns of the filtered
// alignments in signature order. It is empty until FilterAlignments has
// been called.
func (c *Collapser) RetainedIntrons() []IntronSig {
	seen := make(map[IntronSig]bool)
	var sigs []IntronSig
	for _, a := range c.survivors {
		for _, in := range a.Introns {
			s := SigOf(in)
			if seen[s] {
				continue
			}
			seen[s] = true
			sigs = append(sigs, s)
		}
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].Compare(sigs[j]) < 0 })
	return sigs
}
