// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"github.com/kortschak/splice/align"
)

// FillGapsInAlignmentAndAddToGenomicGaps returns a copy of a with the
// genomic gaps it spans filled at the positions selected by fill. A gap
// is filled where an unaligned tail of a abuts an ambiguous base of the
// contig, or where an insertion of a is adjacent to one. Each fill is
// recorded in the ledger; filled tails become insertions of a and add
// to its Shift. Gaps within confirmed regions are not filled. Filling
// an alignment more than once records the same corrections.
func (c *Collapser) FillGapsInAlignmentAndAddToGenomicGaps(a align.Alignment, fill FillPosition) align.Alignment {
	a, n := c.fillGaps(a, fill, c.ledger)
	c.stats.GapsFilled += n
	return a
}

// fillGaps fills the gaps spanned by a, recording the corrections in l.
// It returns the filled alignment and the number of fills.
func (c *Collapser) fillGaps(a align.Alignment, fill FillPosition, l *Ledger) (align.Alignment, int) {
	if c.window == nil || fill == 0 {
		return a, 0
	}
	a = a.Clone()
	var n int

	if fill&FillLeft != 0 && a.Unaligned.LeftLen > 0 {
		pos := a.Range.Start
		if c.fillable(pos-1, pos) {
			d := align.Indel{Loc: pos, Len: a.Unaligned.LeftLen, Insertion: true, Seq: a.Unaligned.Left}
			recordFill(l, d)
			n++
			a.Indels = append([]align.Indel{d}, a.Indels...)
			a.Shift += d.Len
			a.Unaligned.Left = ""
			a.Unaligned.LeftLen = 0
		}
	}

	if fill&FillRight != 0 && a.Unaligned.RightLen > 0 {
		pos := a.Range.End
		if c.fillable(pos, pos) {
			d := align.Indel{Loc: pos, Len: a.Unaligned.RightLen, Insertion: true, Seq: a.Unaligned.Right}
			recordFill(l, d)
			n++
			a.Indels = append(a.Indels, d)
			a.Shift += d.Len
			a.Unaligned.Right = ""
			a.Unaligned.RightLen = 0
		}
	}

	if fill&FillMiddle != 0 {
		for _, d := range a.Indels {
			if !d.Insertion || d.Loc <= a.Range.Start || a.Range.End <= d.Loc {
				continue
			}
			if c.fillable(d.Loc-1, d.Loc) || c.fillable(d.Loc, d.Loc) {
				recordFill(l, d)
				n++
			}
		}
	}

	return a, n
}

// fillable returns whether pos is an ambiguous base outside a confirmed
// region, with the insertion point at loc also outside a confirmed region.
func (c *Collapser) fillable(pos, loc int) bool {
	if c.ledger.IsConfirmed(pos) || c.ledger.IsConfirmed(loc) {
		return false
	}
	return c.window.Range().Contains(pos) && c.window.IsGap(pos)
}

func recordFill(l *Ledger, d align.Indel) {
	l.AddGap(d.Loc, d.Len)
	l.AddIndel(d)
}
