// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align provides the spliced alignment record consumed by the
// collapse engine, and readers that build records from SAM/BAM and
// splign tabular output.
package align

import (
	"errors"
	"fmt"
	"sort"

	"github.com/biogo/biogo/seq"
)

var (
	ErrEmptyRange         = errors.New("align: empty alignment range")
	ErrIntronOutOfRange   = errors.New("align: intron outside alignment range")
	ErrOverlappingIntrons = errors.New("align: overlapping introns")
)

// Range is a half-open zero-based genomic interval.
type Range struct {
	Start, End int
}

func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r Range) Empty() bool { return r.End <= r.Start }

// Overlaps returns whether r and b share at least one position.
func (r Range) Overlaps(b Range) bool { return r.Start < b.End && b.Start < r.End }

// Contains returns whether pos is within r.
func (r Range) Contains(pos int) bool { return r.Start <= pos && pos < r.End }

// Intersect returns the intersection of r and b. The result is empty
// if r and b do not overlap.
func (r Range) Intersect(b Range) Range {
	x := Range{Start: max(r.Start, b.Start), End: min(r.End, b.End)}
	if x.Empty() {
		return Range{}
	}
	return x
}

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Intron is a splice junction of an alignment. Range is the intron
// interior, from the first base after the donor exon to the first base
// of the acceptor exon.
type Intron struct {
	Range    Range
	Strand   seq.Strand
	Oriented bool

	// Sig holds the 2-character donor and acceptor splice sites
	// concatenated in the orientation of the intron, for example
	// "GTAG". Unoriented introns are read on the plus strand.
	Sig string
}

// Indel is a difference between the target and the contig. An insertion
// is target sequence absent from the contig, placed before Loc. A deletion
// is contig sequence [Loc, Loc+Len) absent from the target.
type Indel struct {
	Loc       int
	Len       int
	Insertion bool
	Seq       string `json:",omitempty"`
}

// ID is an alignment identifier. Altered is set when an alignment has
// been structurally modified by a filter.
type ID struct {
	Value   uint64
	Altered bool
}

// IDFromSigned returns the ID for a signed identifier where a negative
// value marks an altered alignment.
func IDFromSigned(id int64) ID {
	if id < 0 {
		return ID{Value: uint64(-id), Altered: true}
	}
	return ID{Value: uint64(id)}
}

// Signed returns the signed representation of id.
func (id ID) Signed() int64 {
	if id.Altered {
		return -int64(id.Value)
	}
	return int64(id.Value)
}

// Less returns whether id sorts before o.
func (id ID) Less(o ID) bool {
	if id.Value != o.Value {
		return id.Value < o.Value
	}
	return !id.Altered && o.Altered
}

// Class is the kind of evidence an alignment represents.
type Class uint8

const (
	MRNA Class = iota
	EST
	ShortRead
	Protein
)

var classNames = [...]string{
	MRNA:      "mrna",
	EST:       "est",
	ShortRead: "sr",
	Protein:   "protein",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", c)
}

// ParseClass returns the Class named by s.
func ParseClass(s string) (Class, error) {
	for c, n := range classNames {
		if n == s {
			return Class(c), nil
		}
	}
	return 0, fmt.Errorf("align: unknown class: %q", s)
}

// Flags are classification flags of an alignment.
type Flags uint8

const (
	PolyA Flags = 1 << iota
	Cap
	UnknownOrientation
	CrossSpecies
	Curated
	KeepIntrons
)

// Unaligned holds target sequence that is not aligned at each end.
// The lengths are authoritative; the sequences are empty if unknown.
type Unaligned struct {
	Left, Right       string `json:",omitempty"`
	LeftLen, RightLen int    `json:",omitempty"`
}

// Alignment is a spliced alignment of a target sequence to a contig.
type Alignment struct {
	Contig  string `json:",omitempty"`
	Range   Range
	Strand  seq.Strand
	Introns []Intron
	Indels  []Indel `json:",omitempty"`

	// Weight is the multiplicity of the alignment. A negative
	// weight marks a deletion of previously added evidence.
	Weight float64

	ID     ID
	Target string
	Class  Class
	Flags  Flags

	Identity float64

	// CDS is the coding range implied by a protein alignment,
	// from start codon to stop codon. It is empty if unknown.
	CDS Range `json:",omitempty"`

	Unaligned Unaligned `json:",omitempty"`

	// Transcript holds the target bases aligned to each exon base,
	// in genomic order. It is empty if unknown.
	Transcript string `json:",omitempty"`

	// Shift is the number of bases inserted into the alignment's
	// footprint by genomic gap filling.
	Shift int `json:",omitempty"`
}

// Has returns whether all of f are set on a.
func (a *Alignment) Has(f Flags) bool { return a.Flags&f == f }

// IsTombstone returns whether a marks deleted evidence.
func (a *Alignment) IsTombstone() bool { return a.Weight < 0 }

// SelfSpecies returns whether a is a transcript alignment from the
// contig's own species.
func (a *Alignment) SelfSpecies() bool {
	return a.Class != Protein && !a.Has(CrossSpecies)
}

// IntronDependent returns whether a spliced a is only valid while it
// retains at least one intron.
func (a *Alignment) IntronDependent() bool {
	return a.Class == ShortRead || a.Class == EST
}

// Exons returns the exon ranges of a.
func (a *Alignment) Exons() []Range {
	exons := make([]Range, 0, len(a.Introns)+1)
	start := a.Range.Start
	for _, in := range a.Introns {
		exons = append(exons, Range{Start: start, End: in.Range.Start})
		start = in.Range.End
	}
	return append(exons, Range{Start: start, End: a.Range.End})
}

// AlignedLen returns the number of genomic bases covered by exons.
func (a *Alignment) AlignedLen() int {
	n := a.Range.Len()
	for _, in := range a.Introns {
		n -= in.Range.Len()
	}
	return n
}

// Clone returns a deep copy of a.
func (a Alignment) Clone() Alignment {
	a.Introns = append([]Intron(nil), a.Introns...)
	a.Indels = append([]Indel(nil), a.Indels...)
	return a
}

// Normalize sorts the introns and indels of a and checks that a describes
// a well formed alignment. A Transcript that does not match the exon
// length is discarded and the CDS is limited to the alignment range.
func (a *Alignment) Normalize() error {
	if a.Range.Empty() {
		return ErrEmptyRange
	}
	sort.Slice(a.Introns, func(i, j int) bool {
		return a.Introns[i].Range.Start < a.Introns[j].Range.Start
	})
	last := a.Range.Start
	for _, in := range a.Introns {
		if in.Range.Empty() || in.Range.Start <= a.Range.Start || a.Range.End <= in.Range.End {
			return ErrIntronOutOfRange
		}
		if in.Range.Start <= last {
			return ErrOverlappingIntrons
		}
		last = in.Range.End
	}
	sort.Slice(a.Indels, func(i, j int) bool {
		return a.Indels[i].Loc < a.Indels[j].Loc
	})
	if a.Transcript != "" && len(a.Transcript) != a.AlignedLen() {
		a.Transcript = ""
	}
	if !a.CDS.Empty() {
		a.CDS = a.CDS.Intersect(a.Range)
	}
	return nil
}

// TranscriptAt returns the target base aligned to the genomic position pos.
func (a *Alignment) TranscriptAt(pos int) (byte, bool) {
	off, ok := a.transcriptOffset(pos)
	if !ok || a.Transcript == "" {
		return 0, false
	}
	return a.Transcript[off], true
}

// transcriptOffset returns the offset into the exon bases of the
// genomic position pos.
func (a *Alignment) transcriptOffset(pos int) (int, bool) {
	var off int
	for _, e := range a.Exons() {
		if e.Contains(pos) {
			return off + pos - e.Start, true
		}
		off += e.Len()
	}
	return 0, false
}

// ClipTo limits a to the exon bases within r. Introns that are not
// flanked by retained exon bases are removed along with indels, tails,
// transcript and CDS outside the new range. ClipTo returns false if no
// exon base of a lies within r, leaving a unaltered.
func (a *Alignment) ClipTo(r Range) bool {
	start, end := -1, -1
	for _, e := range a.Exons() {
		x := e.Intersect(r)
		if x.Empty() {
			continue
		}
		if start < 0 {
			start = x.Start
		}
		end = x.End
	}
	if start < 0 {
		return false
	}
	if start == a.Range.Start && end == a.Range.End {
		return true
	}

	if a.Transcript != "" {
		from, _ := a.transcriptOffset(start)
		to, _ := a.transcriptOffset(end - 1)
		a.Transcript = a.Transcript[from : to+1]
	}

	introns := a.Introns[:0]
	for _, in := range a.Introns {
		if start < in.Range.Start && in.Range.End < end {
			introns = append(introns, in)
		}
	}
	a.Introns = introns

	indels := a.Indels[:0]
	for _, d := range a.Indels {
		switch {
		case d.Insertion && start <= d.Loc && d.Loc <= end:
		case !d.Insertion && start <= d.Loc && d.Loc+d.Len <= end:
		default:
			continue
		}
		indels = append(indels, d)
	}
	a.Indels = indels

	if start != a.Range.Start {
		a.Unaligned.Left = ""
		a.Unaligned.LeftLen = 0
	}
	if end != a.Range.End {
		a.Unaligned.Right = ""
		a.Unaligned.RightLen = 0
	}
	a.Range = Range{Start: start, End: end}
	if !a.CDS.Empty() {
		a.CDS = a.CDS.Intersect(a.Range)
	}
	return true
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
