// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"github.com/biogo/store/step"

	"github.com/kortschak/splice/align"
)

// depth is a step vector element holding alignment coverage.
type depth struct {
	weight    float64
	confirmed bool
}

func (d depth) Equal(e step.Equaler) bool {
	return d == e.(depth)
}

// Coverage is a per-base accumulation of alignment weight.
type Coverage struct {
	v *step.Vector
}

// NewCoverage returns an empty Coverage spanning r. The
// Coverage is extended when weight is added outside r.
func NewCoverage(r align.Range) (*Coverage, error) {
	if r.Empty() {
		r.End = r.Start + 1
	}
	v, err := step.New(r.Start, r.End, depth{})
	if err != nil {
		return nil, err
	}
	v.Relaxed = true
	return &Coverage{v: v}, nil
}

// Add adds w to the coverage of each position in r.
func (c *Coverage) Add(r align.Range, w float64) error {
	if r.Empty() {
		return nil
	}
	return c.v.ApplyRange(r.Start, r.End, func(e step.Equaler) step.Equaler {
		d := e.(depth)
		d.weight += w
		return d
	})
}

// AddAlignment adds the weight of a to the coverage of its exons.
func (c *Coverage) AddAlignment(a *align.Alignment) error {
	for _, e := range a.Exons() {
		err := c.Add(e, a.Weight)
		if err != nil {
			return err
		}
	}
	return nil
}

// Confirm marks the positions in r as supported at any threshold.
func (c *Coverage) Confirm(r align.Range) error {
	if r.Empty() {
		return nil
	}
	return c.v.ApplyRange(r.Start, r.End, func(e step.Equaler) step.Equaler {
		d := e.(depth)
		d.confirmed = true
		return d
	})
}

// At returns the coverage at pos.
func (c *Coverage) At(pos int) float64 {
	e, err := c.v.At(pos)
	if err != nil {
		return 0
	}
	return e.(depth).weight
}

// Supported returns whether pos is confirmed or has coverage
// of at least threshold.
func (c *Coverage) Supported(pos int, threshold float64) bool {
	e, err := c.v.At(pos)
	if err != nil {
		return false
	}
	d := e.(depth)
	return d.confirmed || d.weight >= threshold
}

// ClipNotSupportedFlanks trims the flanks of a to the outermost exon
// positions with coverage of at least threshold. It returns false if no
// position of a is supported, leaving a unaltered.
func ClipNotSupportedFlanks(a *align.Alignment, cov *Coverage, threshold float64) bool {
	exons := a.Exons()

	left := -1
	for i := 0; i < len(exons) && left < 0; i++ {
		for p := exons[i].Start; p < exons[i].End; p++ {
			if cov.Supported(p, threshold) {
				left = p
				break
			}
		}
	}
	if left < 0 {
		return false
	}

	right := -1
	for i := len(exons) - 1; i >= 0 && right < 0; i-- {
		for p := exons[i].End - 1; p >= exons[i].Start; p-- {
			if cov.Supported(p, threshold) {
				right = p
				break
			}
		}
	}

	return a.ClipTo(align.Range{Start: left, End: right + 1})
}
