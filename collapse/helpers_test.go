// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"fmt"
	"sort"

	"github.com/biogo/biogo/seq"

	"github.com/kortschak/splice/align"
)

// contigs is a ContigAccessor backed by in-memory sequences.
type contigs map[string]string

func (c contigs) Sequence(name string, start, end int) ([]byte, error) {
	s, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("no contig %q", name)
	}
	if end > len(s) {
		end = len(s)
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("invalid range [%d,%d) for %q", start, end, name)
	}
	return []byte(s[start:end]), nil
}

// spliced returns an alignment of target with the given exons. Introns
// are oriented unless strand is seq.None.
func spliced(class align.Class, strand seq.Strand, w float64, id uint64, target string, exons ...align.Range) align.Alignment {
	a := align.Alignment{
		Range:    align.Range{Start: exons[0].Start, End: exons[len(exons)-1].End},
		Strand:   strand,
		Weight:   w,
		ID:       align.ID{Value: id},
		Target:   target,
		Class:    class,
		Identity: 1,
	}
	if strand == seq.None {
		a.Flags |= align.UnknownOrientation
	}
	for i := 1; i < len(exons); i++ {
		a.Introns = append(a.Introns, align.Intron{
			Range:    align.Range{Start: exons[i-1].End, End: exons[i].Start},
			Strand:   strand,
			Oriented: strand != seq.None,
		})
	}
	return a
}

func rng(start, end int) align.Range { return align.Range{Start: start, End: end} }

// sortAlignments sorts alignments by target, range and id.
func sortAlignments(alns []align.Alignment) {
	sort.Slice(alns, func(i, j int) bool {
		a, b := alns[i], alns[j]
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Range != b.Range {
			if a.Range.Start != b.Range.Start {
				return a.Range.Start < b.Range.Start
			}
			return a.Range.End < b.Range.End
		}
		return a.ID.Less(b.ID)
	})
}
