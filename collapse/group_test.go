// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"math/rand"
	"testing"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/testutil/expect"

	"github.com/kortschak/splice/align"
)

func TestGroupPool(t *testing.T) {
	var g group
	for i, target := range []string{"alpha", "", "gamma"} {
		a := spliced(align.MRNA, seq.Plus, 1, uint64(i), target, rng(0, 10), rng(20, 30))
		g.add(&a)
	}
	expect.EQ(t, string(g.targetOf(&g.entries[0])), "alpha")
	expect.EQ(t, string(g.targetOf(&g.entries[1])), "")
	expect.EQ(t, string(g.targetOf(&g.entries[2])), "gamma")
}

func TestGroupCollapse(t *testing.T) {
	var g group
	add := func(target string, id uint64, w float64, r align.Range) {
		a := align.Alignment{Range: r, Weight: w, ID: align.ID{Value: id}, Target: target}
		g.add(&a)
	}
	add("a", 5, 1, rng(0, 100))
	add("a", 2, 2, rng(0, 100))
	add("a", 9, 0.5, rng(0, 100))
	add("b", 3, 1, rng(0, 100))
	add("a", 1, 4, rng(0, 120))
	add("c", 4, 2, rng(10, 90))
	add("c", 6, -2, rng(10, 90))

	before := g.weight()
	removed, conflicts := g.collapse()
	expect.EQ(t, removed, 4)
	expect.EQ(t, conflicts, 1)
	expect.EQ(t, len(g.entries), 3)

	// Weight is conserved apart from the tombstoned weight.
	expect.EQ(t, g.weight(), before-2)

	expect.EQ(t, g.entries[0].rng, rng(0, 100))
	expect.EQ(t, string(g.targetOf(&g.entries[0])), "a")
	expect.EQ(t, g.entries[0].id, align.ID{Value: 2})
	expect.EQ(t, g.entries[0].weight, 3.5)

	expect.EQ(t, string(g.targetOf(&g.entries[1])), "b")
	expect.EQ(t, g.entries[1].weight, 1.0)

	expect.EQ(t, g.entries[2].rng, rng(0, 120))
	expect.EQ(t, g.entries[2].weight, 4.0)
}

func TestGroupCollapsePermutation(t *testing.T) {
	type input struct {
		target string
		id     uint64
		w      float64
		r      align.Range
	}
	inputs := []input{
		{"a", 1, 0.25, rng(0, 50)},
		{"a", 2, 0.5, rng(0, 50)},
		{"a", 3, 1, rng(0, 50)},
		{"b", 4, 2, rng(0, 50)},
		{"b", 5, 4, rng(10, 50)},
		{"c", 6, 8, rng(10, 50)},
		{"c", 7, 0.125, rng(10, 50)},
		{"c", 8, -0.125, rng(10, 50)},
	}
	collapsed := func(perm []int) []entry {
		var g group
		for _, i := range perm {
			in := inputs[i]
			a := align.Alignment{Range: in.r, Weight: in.w, ID: align.ID{Value: in.id}, Target: in.target}
			g.add(&a)
		}
		g.collapse()
		// Target offsets depend on insertion order.
		for i := range g.entries {
			g.entries[i].target = 0
		}
		return g.entries
	}

	rnd := rand.New(rand.NewSource(1))
	want := collapsed(rnd.Perm(len(inputs)))
	for i := 0; i < 20; i++ {
		expect.EQ(t, collapsed(rnd.Perm(len(inputs))), want)
	}
}

func TestGroupStoreSorted(t *testing.T) {
	var s groupStore
	two := spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(0, 10), rng(20, 30), rng(40, 50))
	one := spliced(align.MRNA, seq.Plus, 1, 2, "b", rng(0, 10), rng(20, 30))
	again := spliced(align.MRNA, seq.Plus, 1, 3, "c", rng(5, 10), rng(20, 35))
	s.add(&two)
	s.add(&one)
	s.add(&again)
	expect.EQ(t, s.len(), 2)
	groups := s.sorted()
	expect.EQ(t, len(groups[0].entries), 2)
	expect.EQ(t, len(groups[1].entries), 1)

	// Identity is not retained by groups.
	want := two
	want.Identity = 0
	expect.EQ(t, groups[1].alignment(&groups[1].entries[0]), want)
}
