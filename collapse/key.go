// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"bytes"
	"encoding/binary"

	"github.com/biogo/biogo/seq"

	"github.com/kortschak/splice/align"
)

// IntronSig is the identity of a splice junction.
type IntronSig struct {
	Range    align.Range
	Strand   seq.Strand
	Oriented bool
	Splice   string
}

// SigOf returns the signature of in. The strand of unoriented
// introns is not part of the signature.
func SigOf(in align.Intron) IntronSig {
	s := IntronSig{Range: in.Range, Strand: in.Strand, Oriented: in.Oriented, Splice: in.Sig}
	if !s.Oriented {
		s.Strand = seq.None
	}
	return s
}

// Intron returns the intron described by s.
func (s IntronSig) Intron() align.Intron {
	return align.Intron{Range: s.Range, Strand: s.Strand, Oriented: s.Oriented, Sig: s.Splice}
}

// Compare returns the ordering of s and o. Unoriented introns sort before
// oriented introns, oriented introns are ordered by strand and then
// position. The splice sites break remaining ties.
func (s IntronSig) Compare(o IntronSig) int {
	switch {
	case !s.Oriented && o.Oriented:
		return -1
	case s.Oriented && !o.Oriented:
		return 1
	}
	if s.Oriented {
		switch {
		case s.Strand < o.Strand:
			return -1
		case s.Strand > o.Strand:
			return 1
		}
	}
	switch {
	case s.Range.Start < o.Range.Start:
		return -1
	case s.Range.Start > o.Range.Start:
		return 1
	}
	switch {
	case s.Range.End < o.Range.End:
		return -1
	case s.Range.End > o.Range.End:
		return 1
	}
	switch {
	case s.Splice < o.Splice:
		return -1
	case s.Splice > o.Splice:
		return 1
	}
	return 0
}

// KeyFlags is the classification part of an equivalence key.
type KeyFlags uint8

const (
	KeyEST KeyFlags = 1 << iota
	KeySR
	KeyPolyA
	KeyCap
	KeyPlus
	KeyMinus
	KeyUnknown
)

// Key is the equivalence key of an alignment. Alignments with equal keys
// have the same spliced structure. Splice sites are not part of a key.
type Key struct {
	Flags   KeyFlags
	Introns []IntronSig
}

// KeyOf returns the equivalence key of a.
func KeyOf(a *align.Alignment) Key {
	var k Key
	switch a.Class {
	case align.EST:
		k.Flags |= KeyEST
	case align.ShortRead:
		k.Flags |= KeySR
	}
	if a.Has(align.PolyA) {
		k.Flags |= KeyPolyA
	}
	if a.Has(align.Cap) {
		k.Flags |= KeyCap
	}
	switch {
	case a.Has(align.UnknownOrientation):
		k.Flags |= KeyUnknown
	case a.Strand == seq.Plus:
		k.Flags |= KeyPlus
	case a.Strand == seq.Minus:
		k.Flags |= KeyMinus
	}
	if len(a.Introns) != 0 {
		k.Introns = make([]IntronSig, len(a.Introns))
		for i, in := range a.Introns {
			k.Introns[i] = SigOf(in)
			k.Introns[i].Splice = ""
		}
	}
	return k
}

// Compare returns the ordering of k and o: by flags, then by number of
// introns and then by the introns in order.
func (k Key) Compare(o Key) int {
	switch {
	case k.Flags < o.Flags:
		return -1
	case k.Flags > o.Flags:
		return 1
	}
	switch {
	case len(k.Introns) < len(o.Introns):
		return -1
	case len(k.Introns) > len(o.Introns):
		return 1
	}
	for i, in := range k.Introns {
		if c := in.Compare(o.Introns[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Class returns the alignment class of alignments with the key.
func (k Key) Class() align.Class {
	switch {
	case k.Flags&KeyEST != 0:
		return align.EST
	case k.Flags&KeySR != 0:
		return align.ShortRead
	}
	return align.MRNA
}

func (k Key) strand() seq.Strand {
	switch {
	case k.Flags&KeyPlus != 0:
		return seq.Plus
	case k.Flags&KeyMinus != 0:
		return seq.Minus
	}
	return seq.None
}

func (k Key) flags() align.Flags {
	var f align.Flags
	if k.Flags&KeyPolyA != 0 {
		f |= align.PolyA
	}
	if k.Flags&KeyCap != 0 {
		f |= align.Cap
	}
	if k.Flags&KeyUnknown != 0 {
		f |= align.UnknownOrientation
	}
	return f
}

var order = binary.BigEndian

// Bytes returns a canonical encoding of k. Keys are equal if and only
// if their encodings are equal.
func (k Key) Bytes() []byte {
	var (
		buf bytes.Buffer
		b   [8]byte
	)
	buf.WriteByte(byte(k.Flags))
	order.PutUint32(b[:4], uint32(len(k.Introns)))
	buf.Write(b[:4])
	for _, in := range k.Introns {
		order.PutUint64(b[:], uint64(in.Range.Start))
		buf.Write(b[:])
		order.PutUint64(b[:], uint64(in.Range.End))
		buf.Write(b[:])
		buf.WriteByte(byte(in.Strand))
		if in.Oriented {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}
