// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"math"
	"testing"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
)

func TestRange(t *testing.T) {
	r := Range{Start: 10, End: 20}
	expect.EQ(t, r.Len(), 10)
	expect.False(t, r.Empty())
	expect.True(t, r.Contains(10))
	expect.False(t, r.Contains(20))
	expect.True(t, r.Overlaps(Range{Start: 19, End: 30}))
	expect.False(t, r.Overlaps(Range{Start: 20, End: 30}))
	expect.EQ(t, r.Intersect(Range{Start: 15, End: 30}), Range{Start: 15, End: 20})
	expect.EQ(t, r.Intersect(Range{Start: 25, End: 30}), Range{})
	expect.EQ(t, Range{Start: 5, End: 2}.Len(), 0)
	expect.EQ(t, r.String(), "[10,20)")
}

func TestID(t *testing.T) {
	for _, id := range []int64{1, 42, -42, math.MaxInt64, -math.MaxInt64} {
		got := IDFromSigned(id)
		expect.EQ(t, got.Altered, id < 0)
		expect.EQ(t, got.Signed(), id)
	}
	expect.True(t, ID{Value: 1}.Less(ID{Value: 2}))
	expect.True(t, ID{Value: 2}.Less(ID{Value: 2, Altered: true}))
	expect.False(t, ID{Value: 2, Altered: true}.Less(ID{Value: 2}))
}

func TestParseClass(t *testing.T) {
	for _, c := range []Class{MRNA, EST, ShortRead, Protein} {
		got, err := ParseClass(c.String())
		assert.NoError(t, err)
		expect.EQ(t, got, c)
	}
	_, err := ParseClass("dna")
	expect.HasSubstr(t, err.Error(), "unknown class")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		a    Alignment
		want error
	}{
		{
			name: "empty",
			a:    Alignment{Range: Range{Start: 10, End: 10}},
			want: ErrEmptyRange,
		},
		{
			name: "intron at edge",
			a: Alignment{
				Range:   Range{Start: 10, End: 100},
				Introns: []Intron{{Range: Range{Start: 10, End: 20}}},
			},
			want: ErrIntronOutOfRange,
		},
		{
			name: "abutting introns",
			a: Alignment{
				Range: Range{Start: 10, End: 100},
				Introns: []Intron{
					{Range: Range{Start: 30, End: 40}},
					{Range: Range{Start: 20, End: 30}},
				},
			},
			want: ErrOverlappingIntrons,
		},
		{
			name: "unordered",
			a: Alignment{
				Range: Range{Start: 10, End: 100},
				Introns: []Intron{
					{Range: Range{Start: 50, End: 60}},
					{Range: Range{Start: 20, End: 30}},
				},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			expect.EQ(t, test.a.Normalize(), test.want)
		})
	}

	a := tests[3].a
	expect.EQ(t, a.Exons(), []Range{{10, 20}, {30, 50}, {60, 100}})
	expect.EQ(t, a.AlignedLen(), 70)
}

func TestNormalizeDropsMismatchedTranscript(t *testing.T) {
	a := Alignment{
		Range:      Range{Start: 0, End: 10},
		Transcript: "ACGT",
		CDS:        Range{Start: 5, End: 50},
	}
	assert.NoError(t, a.Normalize())
	expect.EQ(t, a.Transcript, "")
	expect.EQ(t, a.CDS, Range{Start: 5, End: 10})
}

func TestClipTo(t *testing.T) {
	base := Alignment{
		Range:  Range{Start: 0, End: 30},
		Strand: seq.Plus,
		Introns: []Intron{
			{Range: Range{Start: 10, End: 15}, Strand: seq.Plus, Oriented: true},
			{Range: Range{Start: 20, End: 25}, Strand: seq.Plus, Oriented: true},
		},
		Indels: []Indel{
			{Loc: 2, Len: 1, Insertion: true, Seq: "A"},
			{Loc: 27, Len: 1},
		},
		Unaligned:  Unaligned{Left: "GG", LeftLen: 2, Right: "TT", RightLen: 2},
		Transcript: "AAAAAAAAAACCCCCGGGGG",
	}

	a := base.Clone()
	ok := a.ClipTo(Range{Start: 12, End: 22})
	expect.True(t, ok)
	expect.EQ(t, a.Range, Range{Start: 15, End: 20})
	expect.EQ(t, len(a.Introns), 0)
	expect.EQ(t, len(a.Indels), 0)
	expect.EQ(t, a.Transcript, "CCCCC")
	expect.EQ(t, a.Unaligned, Unaligned{})

	a = base.Clone()
	ok = a.ClipTo(Range{Start: 0, End: 22})
	expect.True(t, ok)
	expect.EQ(t, a.Range, Range{Start: 0, End: 20})
	expect.That(t, a.Introns, h.ElementsAre(base.Introns[0]))
	expect.That(t, a.Indels, h.ElementsAre(base.Indels[0]))
	expect.EQ(t, a.Unaligned, Unaligned{Left: "GG", LeftLen: 2})
	expect.EQ(t, a.Transcript, "AAAAAAAAAACCCCC")

	a = base.Clone()
	expect.False(t, a.ClipTo(Range{Start: 11, End: 14}))
	expect.EQ(t, a.Range, base.Range)

	b, ok := base.TranscriptAt(16)
	expect.True(t, ok)
	expect.EQ(t, b, byte('C'))
	_, ok = base.TranscriptAt(12)
	expect.False(t, ok)
}

func TestClone(t *testing.T) {
	a := Alignment{Introns: []Intron{{Range: Range{Start: 1, End: 2}}}}
	b := a.Clone()
	b.Introns[0].Sig = "GTAG"
	expect.EQ(t, a.Introns[0].Sig, "")
}
