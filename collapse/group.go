// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"bytes"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kortschak/splice/align"
)

type entryState uint8

const (
	live entryState = iota
	tombstone
)

// entry is a single alignment of a group. For tombstones,
// weight holds the magnitude of the deleted weight.
type entry struct {
	rng    align.Range
	id     align.ID
	weight float64
	state  entryState

	// target is the offset of the NUL terminated
	// target accession in the group pool.
	target int
}

// group holds the alignments sharing an equivalence key.
type group struct {
	key     Key
	entries []entry
	pool    []byte

	// splices holds the first splice sites
	// seen for each intron of the key.
	splices []string
}

func (g *group) add(a *align.Alignment) {
	if g.splices == nil {
		g.splices = make([]string, len(g.key.Introns))
	}
	for i := range g.splices {
		if g.splices[i] == "" && i < len(a.Introns) {
			g.splices[i] = a.Introns[i].Sig
		}
	}
	e := entry{
		rng:    a.Range,
		id:     a.ID,
		weight: a.Weight,
		target: len(g.pool),
	}
	if a.IsTombstone() {
		e.state = tombstone
		e.weight = -a.Weight
	}
	g.pool = append(g.pool, a.Target...)
	g.pool = append(g.pool, 0)
	g.entries = append(g.entries, e)
}

// targetOf returns the target accession of e.
func (g *group) targetOf(e *entry) []byte {
	b := g.pool[e.target:]
	return b[:bytes.IndexByte(b, 0)]
}

// less orders entries by range, target, id, state and weight.
func (g *group) less(a, b *entry) bool {
	if a.rng != b.rng {
		if a.rng.Start != b.rng.Start {
			return a.rng.Start < b.rng.Start
		}
		return a.rng.End < b.rng.End
	}
	if c := bytes.Compare(g.targetOf(a), g.targetOf(b)); c != 0 {
		return c < 0
	}
	if a.id != b.id {
		return a.id.Less(b.id)
	}
	if a.state != b.state {
		return a.state < b.state
	}
	return a.weight < b.weight
}

// identical returns whether a and b are the same alignment.
func (g *group) identical(a, b *entry) bool {
	return a.rng == b.rng && bytes.Equal(g.targetOf(a), g.targetOf(b))
}

// collapse merges entries with the same range and target, summing their
// weights into the entry with the lowest id and removing the weight of
// tombstones. Merged alignments without remaining weight are removed.
// It returns the number of entries removed and the number of surviving
// entries that share a range with a surviving entry for another target.
func (g *group) collapse() (removed, conflicts int) {
	sort.Slice(g.entries, func(i, j int) bool {
		return g.less(&g.entries[i], &g.entries[j])
	})
	n := len(g.entries)
	kept := g.entries[:0]
	for i := 0; i < n; {
		var (
			sum   float64
			best  entry
			found bool
		)
		j := i
		for ; j < n && g.identical(&g.entries[i], &g.entries[j]); j++ {
			e := g.entries[j]
			if e.state == tombstone {
				sum -= e.weight
				continue
			}
			sum += e.weight
			if !found || e.id.Less(best.id) {
				best = e
				found = true
			}
		}
		i = j
		if !found || sum <= 0 {
			continue
		}
		best.weight = sum
		if len(kept) != 0 && kept[len(kept)-1].rng == best.rng {
			conflicts++
		}
		kept = append(kept, best)
	}
	g.entries = kept
	return n - len(kept), conflicts
}

// weight returns the total weight of the live entries of g.
func (g *group) weight() float64 {
	w := make([]float64, 0, len(g.entries))
	for _, e := range g.entries {
		if e.state == live {
			w = append(w, e.weight)
		}
	}
	return floats.Sum(w)
}

// alignment returns the alignment represented by e.
func (g *group) alignment(e *entry) align.Alignment {
	a := align.Alignment{
		Range:  e.rng,
		Strand: g.key.strand(),
		Weight: e.weight,
		ID:     e.id,
		Target: string(g.targetOf(e)),
		Class:  g.key.Class(),
		Flags:  g.key.flags(),
	}
	if len(g.key.Introns) != 0 {
		a.Introns = make([]align.Intron, len(g.key.Introns))
		for i, s := range g.key.Introns {
			a.Introns[i] = s.Intron()
			a.Introns[i].Sig = g.splices[i]
		}
	}
	return a
}

// groupStore holds the alignment groups keyed by equivalence key.
type groupStore struct {
	groups map[string]*group
}

func (s *groupStore) add(a *align.Alignment) {
	k := KeyOf(a)
	kb := string(k.Bytes())
	g, ok := s.groups[kb]
	if !ok {
		if s.groups == nil {
			s.groups = make(map[string]*group)
		}
		g = &group{key: k}
		s.groups[kb] = g
	}
	g.add(a)
}

// sorted returns the groups in key order.
func (s *groupStore) sorted() []*group {
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].key.Compare(groups[j].key) < 0
	})
	return groups
}

func (s *groupStore) len() int { return len(s.groups) }
