// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/biogo/seq"
	"gonum.org/v1/gonum/stat"
)

// ParseSplign returns the alignments described by the compartments in the
// splign tabular output read from r. Each compartment becomes one alignment
// of the given class. Splice sites are taken from the segment type column
// and unaligned query segments become tails or insertions.
func ParseSplign(r io.Reader, class Class) ([]Alignment, error) {
	// column indices for splign tabular output.
	const (
		Compartment = iota
		QueryAccVer
		SubjectAccVer
		Identity
		Length
		QueryStart
		QueryEnd
		SubjectStart
		SubjectEnd
		Type
		numFields
	)

	var (
		alns []Alignment
		cur  *compartment
	)
	flush := func() {
		if cur == nil {
			return
		}
		a, ok := cur.alignment(class)
		if ok {
			a.ID = ID{Value: uint64(len(alns) + 1)}
			alns = append(alns, a)
		}
		cur = nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 || bytes.HasPrefix(line, []byte("#")) {
			continue
		}
		f := bytes.Split(line, []byte("\t"))
		if len(f) < numFields {
			return alns, fmt.Errorf("unexpected number of fields: %q", f)
		}
		for i := range f {
			f[i] = bytes.TrimSpace(f[i])
		}

		id := string(f[Compartment])
		query := string(f[QueryAccVer])
		subject := string(f[SubjectAccVer])
		if cur == nil || cur.id != id || cur.query != query || cur.subject != subject {
			flush()
			strand := seq.Plus
			if strings.HasPrefix(id, "-") {
				strand = seq.Minus
			}
			cur = &compartment{id: id, query: query, subject: subject, strand: strand}
		}

		var (
			s   segment
			err error
		)
		s.typ = string(f[Type])
		s.length, err = strconv.Atoi(string(f[Length]))
		if err != nil {
			return alns, fmt.Errorf("error in line: %s: %w", line, err)
		}
		if isGap(s.typ) {
			cur.segs = append(cur.segs, s)
			continue
		}
		s.identity, err = strconv.ParseFloat(string(f[Identity]), 64)
		if err != nil {
			return alns, fmt.Errorf("error in line: %s: %w", line, err)
		}
		start, err := strconv.Atoi(string(f[SubjectStart]))
		if err != nil {
			return alns, fmt.Errorf("error in line: %s: %w", line, err)
		}
		end, err := strconv.Atoi(string(f[SubjectEnd]))
		if err != nil {
			return alns, fmt.Errorf("error in line: %s: %w", line, err)
		}
		if end < start {
			start, end = end, start
		}
		start-- // Use zero-based indexing internally.
		s.exon = Range{Start: start, End: end}
		s.acceptor, s.donor = spliceSites(s.typ)
		cur.segs = append(cur.segs, s)
	}
	if err := sc.Err(); err != nil {
		return alns, err
	}
	flush()
	return alns, nil
}

type compartment struct {
	id      string
	query   string
	subject string
	strand  seq.Strand
	segs    []segment
}

type segment struct {
	typ      string
	identity float64
	length   int

	exon     Range
	acceptor string
	donor    string
}

func isGap(typ string) bool {
	return strings.Contains(strings.ToLower(typ), "gap")
}

// spliceSites returns the splice sites flanking an exon
// segment type such as "AG<exon>GT".
func spliceSites(typ string) (acceptor, donor string) {
	i := strings.Index(typ, "<exon>")
	if i < 0 {
		return "", ""
	}
	return typ[:i], typ[i+len("<exon>"):]
}

// alignment returns the alignment of the compartment. Segments are in
// query order, so minus strand compartments are reversed into genomic
// order while unaligned tails are placed.
func (c *compartment) alignment(class Class) (Alignment, bool) {
	a := Alignment{
		Contig: c.subject,
		Strand: c.strand,
		Weight: 1,
		Target: c.query,
		Class:  class,
	}

	var (
		idents  []float64
		lengths []float64
		prev    *segment
		pending int
	)
	first := true
	for i := range c.segs {
		s := &c.segs[i]
		if isGap(s.typ) {
			if first {
				if c.strand == seq.Plus {
					a.Unaligned.LeftLen = s.length
				} else {
					a.Unaligned.RightLen = s.length
				}
			} else {
				pending += s.length
			}
			continue
		}
		idents = append(idents, s.identity)
		lengths = append(lengths, float64(s.exon.Len()))

		if first {
			a.Range = s.exon
			first = false
			prev = s
			continue
		}

		var (
			in  Intron
			loc int
		)
		if c.strand == seq.Plus {
			in.Range = Range{Start: prev.exon.End, End: s.exon.Start}
			loc = prev.exon.End
			a.Range.End = s.exon.End
		} else {
			in.Range = Range{Start: s.exon.End, End: prev.exon.Start}
			loc = s.exon.End
			a.Range.Start = s.exon.Start
		}
		if pending > 0 {
			a.Indels = append(a.Indels, Indel{Loc: loc, Len: pending, Insertion: true})
		}
		if !in.Range.Empty() {
			in.Strand = c.strand
			in.Oriented = true
			if pending == 0 && len(prev.donor) == 2 && len(s.acceptor) == 2 {
				in.Sig = prev.donor + s.acceptor
			}
			a.Introns = append(a.Introns, in)
		}
		pending = 0
		prev = s
	}
	if first {
		return Alignment{}, false
	}
	if pending > 0 {
		if c.strand == seq.Plus {
			a.Unaligned.RightLen = pending
		} else {
			a.Unaligned.LeftLen = pending
		}
	}
	a.Identity = stat.Mean(idents, lengths)
	if a.Identity > 1 {
		// Identity reported as a percentage.
		a.Identity /= 100
	}
	if a.Normalize() != nil {
		return Alignment{}, false
	}
	return a, true
}
