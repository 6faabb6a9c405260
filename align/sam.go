// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"errors"
	"fmt"

	"github.com/biogo/biogo/seq"
	"github.com/biogo/hts/sam"
)

var ErrUnmapped = errors.New("align: unmapped record")

var (
	nhTag = sam.NewTag("NH")
	nmTag = sam.NewTag("NM")
	xsTag = sam.NewTag("XS")
)

// FromSAM returns the spliced alignment described by r. Skipped reference
// CIGAR operations become introns and the XS tag, when present, gives
// the transcription strand. The weight is 1/NH and the identity is
// derived from NM when those tags are present.
//
// Insertions, deletions and soft clipped ends are retained for transcript
// classes. For short reads they are folded into the aligned exons.
func FromSAM(r *sam.Record, class Class) (Alignment, error) {
	if r.Flags&sam.Unmapped != 0 || r.Pos < 0 {
		return Alignment{}, ErrUnmapped
	}

	a := Alignment{
		Range:  Range{Start: r.Start(), End: r.End()},
		Strand: seq.Strand(r.Strand()),
		Weight: 1,
		Target: r.Name,
		Class:  class,
		Flags:  UnknownOrientation,
	}
	detail := class != ShortRead

	var (
		qseq    []byte
		aligned int
		qpos    int
	)
	if detail && r.Seq.Length != 0 {
		qseq = r.Seq.Expand()
	}
	pos := r.Pos
	for i, co := range r.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			aligned += n
			pos += n
			qpos += n
		case sam.CigarSkipped:
			a.Introns = append(a.Introns, Intron{Range: Range{Start: pos, End: pos + n}})
			pos += n
		case sam.CigarDeletion:
			if detail {
				a.Indels = append(a.Indels, Indel{Loc: pos, Len: n})
			}
			aligned += n
			pos += n
		case sam.CigarInsertion:
			if detail {
				d := Indel{Loc: pos, Len: n, Insertion: true}
				if qpos+n <= len(qseq) {
					d.Seq = string(qseq[qpos : qpos+n])
				}
				a.Indels = append(a.Indels, d)
			}
			qpos += n
		case sam.CigarSoftClipped:
			if detail {
				var s string
				if qpos+n <= len(qseq) {
					s = string(qseq[qpos : qpos+n])
				}
				if i == 0 {
					a.Unaligned.Left, a.Unaligned.LeftLen = s, n
				} else {
					a.Unaligned.Right, a.Unaligned.RightLen = s, n
				}
			}
			qpos += n
		case sam.CigarHardClipped, sam.CigarPadded:
		default:
			return Alignment{}, fmt.Errorf("align: unsupported cigar operation %v in %s", co, r.Name)
		}
	}

	if aux, ok := r.Tag(xsTag[:]); ok {
		switch v := aux.Value().(type) {
		case byte:
			a.setOrientation(v)
		case string:
			if len(v) == 1 {
				a.setOrientation(v[0])
			}
		}
	}
	for i := range a.Introns {
		a.Introns[i].Strand = a.Strand
		a.Introns[i].Oriented = !a.Has(UnknownOrientation)
	}

	if aux, ok := r.Tag(nhTag[:]); ok {
		if nh, ok := auxInt(aux); ok && nh > 0 {
			a.Weight = 1 / float64(nh)
		}
	}
	a.Identity = 1
	if aux, ok := r.Tag(nmTag[:]); ok && aligned > 0 {
		if nm, ok := auxInt(aux); ok {
			a.Identity = 1 - float64(nm)/float64(aligned)
			if a.Identity < 0 {
				a.Identity = 0
			}
		}
	}

	return a, a.Normalize()
}

func (a *Alignment) setOrientation(s byte) {
	switch s {
	case '+':
		a.Strand = seq.Plus
	case '-':
		a.Strand = seq.Minus
	default:
		return
	}
	a.Flags &^= UnknownOrientation
}

func auxInt(aux sam.Aux) (int, bool) {
	switch v := aux.Value().(type) {
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case int16:
		return int(v), true
	case uint16:
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	}
	return 0, false
}
