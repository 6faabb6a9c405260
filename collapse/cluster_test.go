// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"bytes"
	"testing"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"gonum.org/v1/gonum/graph/encoding/dot"

	"github.com/kortschak/splice/align"
)

func clusterSet(alns ...align.Alignment) *ClusterSet {
	s := NewClusterSet()
	for _, a := range alns {
		s.CheckAndInsert(a)
	}
	return s
}

func TestClustersStrands(t *testing.T) {
	s := clusterSet(
		spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 200)),
		spliced(align.MRNA, seq.Minus, 1, 2, "b", rng(150, 250)),
		spliced(align.MRNA, seq.Plus, 1, 3, "c", rng(190, 300)),
		spliced(align.MRNA, seq.Plus, 1, 4, "d", rng(400, 500)),
	)
	expect.EQ(t, s.Len(), 4)

	cls := s.Clusters()
	assert.EQ(t, len(cls), 3)

	expect.EQ(t, cls[0].Range, rng(100, 300))
	expect.EQ(t, cls[0].Strand, seq.Plus)
	assert.EQ(t, len(cls[0].Alignments), 2)
	expect.EQ(t, cls[0].Alignments[0].Target, "a")
	expect.EQ(t, cls[0].Alignments[1].Target, "c")

	expect.EQ(t, cls[1].Range, rng(150, 250))
	expect.EQ(t, cls[1].Strand, seq.Minus)
	assert.EQ(t, len(cls[1].Alignments), 1)
	expect.EQ(t, cls[1].Alignments[0].Target, "b")

	expect.EQ(t, cls[2].Range, rng(400, 500))
	expect.EQ(t, cls[2].Strand, seq.Plus)
	assert.EQ(t, len(cls[2].Alignments), 1)
	expect.EQ(t, cls[2].Alignments[0].Target, "d")

	for _, c := range cls {
		for _, a := range c.Alignments {
			expect.EQ(t, clusterStrand(&a), c.Strand)
		}
	}
}

func TestClustersTransitive(t *testing.T) {
	s := clusterSet(
		spliced(align.EST, seq.Minus, 1, 1, "a", rng(0, 10)),
		spliced(align.EST, seq.Minus, 1, 2, "b", rng(20, 30)),
		spliced(align.EST, seq.Minus, 1, 3, "c", rng(5, 25)),
		// Unknown orientation is never joined to an oriented strand.
		spliced(align.EST, seq.None, 1, 4, "d", rng(0, 30)),
		// Abutting is not overlapping.
		spliced(align.EST, seq.Minus, 1, 5, "e", rng(30, 40)),
	)
	cls := s.Clusters()
	assert.EQ(t, len(cls), 3)

	// Clusters with the same range are ordered by strand.
	expect.EQ(t, cls[0].Range, rng(0, 30))
	expect.EQ(t, cls[0].Strand, seq.Minus)
	assert.EQ(t, len(cls[0].Alignments), 3)
	for i, want := range []string{"a", "b", "c"} {
		expect.EQ(t, cls[0].Alignments[i].Target, want)
	}

	expect.EQ(t, cls[1].Range, rng(0, 30))
	expect.EQ(t, cls[1].Strand, seq.None)
	assert.EQ(t, len(cls[1].Alignments), 1)
	expect.EQ(t, cls[1].Alignments[0].Target, "d")

	expect.EQ(t, cls[2].Range, rng(30, 40))
	expect.EQ(t, cls[2].Alignments[0].Target, "e")
}

func TestClustersEmpty(t *testing.T) {
	expect.EQ(t, len(NewClusterSet().Clusters()), 0)
}

func TestOverlapGraph(t *testing.T) {
	s := clusterSet(
		spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 200)),
		spliced(align.MRNA, seq.Minus, 1, 2, "b", rng(150, 250)),
		spliced(align.MRNA, seq.Plus, 1, 3, "c", rng(190, 300)),
		spliced(align.MRNA, seq.Plus, 1, 4, "d", rng(400, 500)),
	)
	g := s.OverlapGraph()
	expect.EQ(t, g.Nodes().Len(), 4)
	expect.EQ(t, g.Edges().Len(), 1)
	expect.True(t, g.HasEdgeBetween(0, 2))
	expect.False(t, g.HasEdgeBetween(0, 1))
	expect.False(t, g.HasEdgeBetween(1, 2))
	expect.EQ(t, g.Node(2).(alnNode).Alignment().Target, "c")

	b, err := dot.Marshal(g, "chr1", "", "\t")
	assert.NoError(t, err)
	expect.True(t, bytes.Contains(b, []byte("a:1:0")))
	expect.True(t, bytes.Contains(b, []byte("c:3:2")))
}

func TestCollapserClusters(t *testing.T) {
	c := New("chr1", align.Range{}, nil, DefaultConfig())
	for _, a := range []align.Alignment{
		spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 200), rng(300, 400)),
		spliced(align.MRNA, seq.Minus, 1, 2, "b", rng(150, 350)),
		spliced(align.MRNA, seq.Plus, 1, 3, "c", rng(350, 500)),
	} {
		assert.NoError(t, c.AddAlignment(a))
	}
	cls, err := c.GetCollapsedAlignments()
	assert.NoError(t, err)
	got := cls.Clusters()
	assert.EQ(t, len(got), 2)
	expect.EQ(t, got[0].Range, rng(100, 500))
	expect.EQ(t, got[0].Strand, seq.Plus)
	expect.EQ(t, len(got[0].Alignments), 2)
	expect.EQ(t, got[1].Strand, seq.Minus)
}
