// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import "github.com/kortschak/splice/align"

// Mode specifies how alignments of a class are handled.
type Mode uint8

const (
	// Filter collapses identical alignments and removes
	// unsupported alignments and introns.
	Filter Mode = iota
	// CollapseOnly collapses identical alignments without filtering.
	CollapseOnly
	// PassThrough returns alignments unaltered.
	PassThrough
)

// FillPosition is a set of positions where genomic gaps are filled.
type FillPosition uint8

const (
	FillLeft FillPosition = 1 << iota
	FillRight
	FillMiddle
)

// Config holds the collapsing and filtering parameters of a Collapser.
type Config struct {
	SR, EST, MRNA, Protein Mode

	// MinSRWeight and MinESTWeight are the aggregated weights
	// an intron needs to support a short read or EST alignment.
	MinSRWeight  float64
	MinESTWeight float64

	// MinESTCount is the number of EST alignments spanning an
	// intron that alone support an EST alignment.
	MinESTCount int

	// MinIdentity is the identity required of single exon
	// short read and EST alignments.
	MinIdentity float64

	// MinSingleExonWeight is the collapsed weight required of
	// single exon short read and EST alignments.
	MinSingleExonWeight float64

	// ClipThreshold is the per-base coverage required to retain
	// alignment flanks. Zero disables clipping.
	ClipThreshold float64

	// Fill specifies where genomic gaps are filled from
	// self-species transcripts. Zero disables gap filling.
	Fill FillPosition

	// EdgeWindow is the number of bases inspected at exon edges
	// of self-species transcripts, and EdgeMismatches is the
	// number of mismatches tolerated within the window.
	EdgeWindow     int
	EdgeMismatches int

	// NoFiltering passes all alignments through unaltered.
	NoFiltering bool
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		SR:                  Filter,
		EST:                 Filter,
		MRNA:                Filter,
		Protein:             Filter,
		MinSRWeight:         3,
		MinESTWeight:        2,
		MinESTCount:         3,
		MinIdentity:         0.98,
		MinSingleExonWeight: 1,
		ClipThreshold:       0,
		Fill:                FillLeft | FillRight | FillMiddle,
		EdgeWindow:          10,
		EdgeMismatches:      1,
	}
}

func (c *Config) mode(class align.Class) Mode {
	if c.NoFiltering {
		return PassThrough
	}
	switch class {
	case align.ShortRead:
		return c.SR
	case align.EST:
		return c.EST
	case align.MRNA:
		return c.MRNA
	case align.Protein:
		return c.Protein
	}
	return PassThrough
}

// minWeight returns the intron weight threshold for class.
func (c *Config) minWeight(class align.Class) float64 {
	if class == align.EST {
		return c.MinESTWeight
	}
	return c.MinSRWeight
}
