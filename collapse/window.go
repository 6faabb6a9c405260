// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"errors"
	"fmt"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/biogo/seq/linear"

	"github.com/kortschak/splice/align"
)

var ErrOutOfWindow = errors.New("collapse: position outside sequence window")

// ContigAccessor provides genomic sequence. Sequence returns the bases
// of the half-open range [start, end) of the named contig.
type ContigAccessor interface {
	Sequence(contig string, start, end int) ([]byte, error)
}

// Window is a view of a range of a contig. The sequence is retrieved
// from the ContigAccessor on first use.
type Window struct {
	contig string
	rng    align.Range
	acc    ContigAccessor

	seq     *linear.Seq
	err     error
	pending map[int]byte
}

// NewWindow returns a Window over r of the named contig.
func NewWindow(acc ContigAccessor, contig string, r align.Range) *Window {
	return &Window{contig: contig, rng: r, acc: acc}
}

func (w *Window) load() error {
	if w.seq != nil || w.err != nil {
		return w.err
	}
	b, err := w.acc.Sequence(w.contig, w.rng.Start, w.rng.End)
	if err != nil {
		w.err = fmt.Errorf("collapse: failed to load %s%v: %w", w.contig, w.rng, err)
		return w.err
	}
	if len(b) < w.rng.Len() {
		// Truncated contig.
		w.rng.End = w.rng.Start + len(b)
	}
	b = append([]byte(nil), b[:w.rng.Len()]...)
	w.seq = linear.NewSeq(w.contig, alphabet.BytesToLetters(b), alphabet.DNAredundant)
	w.seq.Offset = w.rng.Start
	w.Upper()
	for pos, base := range w.pending {
		if w.rng.Contains(pos) {
			w.seq.Seq[pos-w.seq.Offset] = alphabet.Letter(base)
		}
	}
	w.pending = nil
	return nil
}

// Range returns the range of the contig covered by w. The range is
// shortened if the contig ends before the requested end. If the sequence
// can not be loaded, the requested range is returned and the load error
// is reported by At, Substr and Replace.
func (w *Window) Range() align.Range {
	_ = w.load()
	return w.rng
}

// At returns the base at pos.
func (w *Window) At(pos int) (byte, error) {
	err := w.load()
	if err != nil {
		return 0, err
	}
	if !w.rng.Contains(pos) {
		return 0, ErrOutOfWindow
	}
	return byte(w.seq.Seq[pos-w.seq.Offset]), nil
}

// Substr returns the bases in [from, to).
func (w *Window) Substr(from, to int) (string, error) {
	err := w.load()
	if err != nil {
		return "", err
	}
	if from > to || from < w.rng.Start || w.rng.End < to {
		return "", ErrOutOfWindow
	}
	b := make([]byte, to-from)
	for i, l := range w.seq.Seq[from-w.seq.Offset : to-w.seq.Offset] {
		b[i] = byte(l)
	}
	return string(b), nil
}

// IsGap returns whether pos holds an ambiguous base.
func (w *Window) IsGap(pos int) bool {
	b, err := w.At(pos)
	if err != nil {
		return false
	}
	return b == 'N' || !alphabet.DNAredundant.IsValid(alphabet.Letter(b))
}

// Upper converts the window sequence to upper case in place.
func (w *Window) Upper() {
	if w.load() != nil {
		return
	}
	for i, l := range w.seq.Seq {
		if 'a' <= l && l <= 'z' {
			w.seq.Seq[i] = l - 'a' + 'A'
		}
	}
}

// Replace sets the base at pos. Replacements made before the sequence
// is loaded are applied when it is loaded.
func (w *Window) Replace(pos int, base byte) error {
	if 'a' <= base && base <= 'z' {
		base = base - 'a' + 'A'
	}
	if w.seq == nil && w.err == nil {
		if !w.rng.Contains(pos) {
			return ErrOutOfWindow
		}
		if w.pending == nil {
			w.pending = make(map[int]byte)
		}
		w.pending[pos] = base
		return nil
	}
	if w.err != nil {
		return w.err
	}
	if !w.rng.Contains(pos) {
		return ErrOutOfWindow
	}
	w.seq.Seq[pos-w.seq.Offset] = alphabet.Letter(base)
	return nil
}

// splice returns the donor and acceptor sites of an intron
// in the orientation of the intron.
func (w *Window) splice(in align.Intron) (string, error) {
	if in.Range.Len() < 4 {
		return "", nil
	}
	left, err := w.Substr(in.Range.Start, in.Range.Start+2)
	if err != nil {
		return "", err
	}
	right, err := w.Substr(in.Range.End-2, in.Range.End)
	if err != nil {
		return "", err
	}
	if in.Oriented && in.Strand == seq.Minus {
		return revComp(right) + revComp(left), nil
	}
	return left + right, nil
}

func revComp(s string) string {
	b := make([]byte, len(s))
	for i := range s {
		c, ok := alphabet.DNAredundant.Complement(alphabet.Letter(s[i]))
		if !ok {
			c = 'N'
		}
		b[len(s)-1-i] = byte(c)
	}
	return string(b)
}
