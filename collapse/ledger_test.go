// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/kortschak/splice/align"
)

func TestLedgerGaps(t *testing.T) {
	l := NewLedger()
	l.AddGap(100, 3)
	l.AddGap(50, 2)
	l.AddGap(100, 5)
	l.AddGap(100, 4)
	l.AddGap(70, 0)
	expect.EQ(t, l.Gaps(), []Gap{{Pos: 50, Len: 2}, {Pos: 100, Len: 5}})
}

func TestLedgerConfirm(t *testing.T) {
	l := NewLedger()
	l.Confirm(rng(10, 20))
	l.Confirm(rng(40, 50))
	l.Confirm(rng(60, 70))
	l.Confirm(rng(15, 42))
	l.Confirm(rng(0, 0))
	l.Confirm(rng(70, 75))
	expect.EQ(t, l.Confirmed(), []align.Range{rng(10, 50), rng(60, 75)})

	for _, test := range []struct {
		pos  int
		want bool
	}{
		{pos: 9, want: false},
		{pos: 10, want: true},
		{pos: 49, want: true},
		{pos: 50, want: false},
		{pos: 74, want: true},
		{pos: 75, want: false},
	} {
		expect.EQ(t, l.IsConfirmed(test.pos), test.want, "position %d", test.pos)
	}
}

func TestLedgerReplace(t *testing.T) {
	l := NewLedger()
	expect.True(t, l.Replace(10, 'A'))
	expect.False(t, l.Replace(10, 'C'))
	l.AddCorrectionData(CorrectionData{Replacements: map[int]byte{10: 'G', 11: 'T'}})
	expect.EQ(t, l.Replacements(), map[int]byte{10: 'A', 11: 'T'})
}

func TestLedgerMergeCommutes(t *testing.T) {
	build := func(gaps []Gap, indels []align.Indel) *Ledger {
		l := NewLedger()
		for _, g := range gaps {
			l.AddGap(g.Pos, g.Len)
		}
		for _, d := range indels {
			l.AddIndel(d)
		}
		return l
	}
	a := build(
		[]Gap{{Pos: 10, Len: 2}, {Pos: 30, Len: 6}},
		[]align.Indel{{Loc: 10, Len: 2, Insertion: true}, {Loc: 40, Len: 1}},
	)
	b := build(
		[]Gap{{Pos: 10, Len: 4}, {Pos: 20, Len: 1}},
		[]align.Indel{{Loc: 10, Len: 2, Insertion: true}, {Loc: 5, Len: 3, Insertion: true, Seq: "ACG"}},
	)

	ab := NewLedger()
	ab.Merge(a)
	ab.Merge(b)
	ba := NewLedger()
	ba.Merge(b)
	ba.Merge(a)

	expect.EQ(t, ab.Gaps(), ba.Gaps())
	expect.EQ(t, ab.Indels(), ba.Indels())
	expect.EQ(t, ab.Gaps(), []Gap{{Pos: 10, Len: 4}, {Pos: 20, Len: 1}, {Pos: 30, Len: 6}})
	expect.EQ(t, ab.Indels(), []align.Indel{
		{Loc: 5, Len: 3, Insertion: true, Seq: "ACG"},
		{Loc: 10, Len: 2, Insertion: true},
		{Loc: 40, Len: 1},
	})
}
