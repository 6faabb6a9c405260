// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"fmt"
	"sort"

	"github.com/biogo/biogo/seq"
	"github.com/biogo/store/interval"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kortschak/splice/align"
)

// Cluster is a set of alignments on the same strand connected by
// overlapping footprints.
type Cluster struct {
	Range      align.Range
	Strand     seq.Strand
	Alignments []align.Alignment
}

// ClusterSet holds the alignments retained by a Collapser.
type ClusterSet struct {
	alignments []align.Alignment
	seen       map[alignmentKey]bool
}

type alignmentKey struct {
	key    string
	rng    align.Range
	id     align.ID
	target string
}

// NewClusterSet returns an empty ClusterSet.
func NewClusterSet() *ClusterSet {
	return &ClusterSet{}
}

// CheckAndInsert inserts a into the set. When built with the debug tag,
// insertion of an alignment already in the set panics.
func (s *ClusterSet) CheckAndInsert(a align.Alignment) {
	if debug {
		k := alignmentKey{
			key:    string(KeyOf(&a).Bytes()),
			rng:    a.Range,
			id:     a.ID,
			target: a.Target,
		}
		if s.seen[k] {
			panic(fmt.Sprintf("collapse: duplicate alignment %s %v %d", a.Target, a.Range, a.ID.Signed()))
		}
		if s.seen == nil {
			s.seen = make(map[alignmentKey]bool)
		}
		s.seen[k] = true
	}
	s.Insert(a)
}

// Insert inserts a into the set without checking for duplicates.
func (s *ClusterSet) Insert(a align.Alignment) {
	s.alignments = append(s.alignments, a)
}

// Len returns the number of alignments in the set.
func (s *ClusterSet) Len() int { return len(s.alignments) }

// Alignments returns the alignments in the set in insertion order.
func (s *ClusterSet) Alignments() []align.Alignment { return s.alignments }

// clusterStrand returns the strand used to partition a into clusters.
func clusterStrand(a *align.Alignment) seq.Strand {
	if a.Has(align.UnknownOrientation) {
		return seq.None
	}
	return a.Strand
}

// alignmentInterval is an interval.IntInterval adaptor for alignments.
type alignmentInterval struct {
	uid uintptr
	*align.Alignment
}

func (i alignmentInterval) ID() uintptr { return i.uid }
func (i alignmentInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Alignment.Range.Start, End: i.Alignment.Range.End}
}
func (i alignmentInterval) Overlap(b interval.IntRange) bool {
	return i.Alignment.Range.Start < b.End && b.Start < i.Alignment.Range.End
}

// OverlapGraph returns a graph with a node for each alignment in the set
// and edges between alignments on the same strand with overlapping
// footprints. Node IDs are the insertion index of the alignment.
func (s *ClusterSet) OverlapGraph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	var tree interval.IntTree
	for i := range s.alignments {
		a := &s.alignments[i]
		g.AddNode(alnNode{id: int64(i), a: a})
		err := tree.Insert(alignmentInterval{uid: uintptr(i), Alignment: a}, true)
		if err != nil {
			panic(err)
		}
	}
	tree.AdjustRanges()
	for i := range s.alignments {
		a := &s.alignments[i]
		for _, o := range tree.Get(alignmentInterval{Alignment: a}) {
			j := int64(o.ID())
			if j <= int64(i) || clusterStrand(a) != clusterStrand(o.(alignmentInterval).Alignment) {
				continue
			}
			g.SetEdge(simple.Edge{F: g.Node(int64(i)), T: g.Node(j)})
		}
	}
	return g
}

// Clusters returns the connected components of the overlap graph of the
// set, ordered by position. Alignments within a cluster are in insertion
// order.
func (s *ClusterSet) Clusters() []Cluster {
	cc := topo.ConnectedComponents(s.OverlapGraph())
	clusters := make([]Cluster, 0, len(cc))
	for _, c := range cc {
		sort.Slice(c, func(i, j int) bool { return c[i].ID() < c[j].ID() })
		var cl Cluster
		for k, n := range c {
			a := n.(alnNode).a
			if k == 0 {
				cl.Range = a.Range
				cl.Strand = clusterStrand(a)
			} else {
				cl.Range.Start = min(cl.Range.Start, a.Range.Start)
				cl.Range.End = max(cl.Range.End, a.Range.End)
			}
			cl.Alignments = append(cl.Alignments, *a)
		}
		clusters = append(clusters, cl)
	}
	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.Range != b.Range {
			if a.Range.Start != b.Range.Start {
				return a.Range.Start < b.Range.Start
			}
			return a.Range.End < b.Range.End
		}
		return a.Strand < b.Strand
	})
	return clusters
}

// alnNode is an alignment node of an overlap graph.
type alnNode struct {
	id int64
	a  *align.Alignment
}

func (n alnNode) ID() int64 { return n.id }

// DOTID returns the DOT identifier of the node.
func (n alnNode) DOTID() string {
	return fmt.Sprintf("%s:%d:%d", n.a.Target, n.a.ID.Signed(), n.id)
}

// Alignment returns the alignment held by n.
func (n alnNode) Alignment() align.Alignment { return *n.a }

var _ graph.Node = alnNode{}
