// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/fai"
	"github.com/biogo/hts/sam"
	"github.com/klauspost/compress/gzip"

	"github.com/kortschak/splice/align"
	"github.com/kortschak/splice/collapse"
)

// reference is an indexed FASTA contig accessor.
type reference struct {
	f   *os.File
	idx fai.Index
	fa  *fai.File
}

// openReference opens the FASTA file at path using its fai index if one
// exists, or indexing the file otherwise.
func openReference(path string) (*reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	idx, err := readIndex(path + ".fai")
	if os.IsNotExist(err) {
		idx, err = fai.NewIndex(f)
		if err == nil {
			_, err = f.Seek(0, io.SeekStart)
		}
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to index %s: %w", path, err)
	}
	return &reference{f: f, idx: idx, fa: fai.NewFile(f, idx)}, nil
}

func readIndex(path string) (fai.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fai.ReadFrom(f)
}

// Sequence satisfies the collapse.ContigAccessor interface.
func (r *reference) Sequence(contig string, start, end int) ([]byte, error) {
	rec, ok := r.idx[contig]
	if !ok {
		return nil, fmt.Errorf("no contig %q", contig)
	}
	if end > rec.Length {
		end = rec.Length
	}
	s, err := r.fa.SeqRange(contig, start, end)
	if err != nil {
		return nil, err
	}
	return ioutil.ReadAll(s)
}

// contigs returns the contigs of the reference in file order.
func (r *reference) contigs() []fai.Record {
	recs := make([]fai.Record, 0, len(r.idx))
	for _, rec := range r.idx {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })
	return recs
}

func (r *reference) Close() error { return r.f.Close() }

// input is the collected alignments and corrections, grouped by contig.
type input struct {
	alignments  map[string][]align.Alignment
	corrections map[string]collapse.CorrectionData
	keep        map[string][]align.Intron

	// skipped is the number of records that could
	// not be converted to an alignment.
	skipped int
	nextID  uint64
}

func newInput() *input {
	return &input{
		alignments:  make(map[string][]align.Alignment),
		corrections: make(map[string]collapse.CorrectionData),
		keep:        make(map[string][]align.Intron),
	}
}

func (in *input) add(a align.Alignment) {
	in.nextID++
	a.ID = align.ID{Value: in.nextID}
	in.alignments[a.Contig] = append(in.alignments[a.Contig], a)
}

// open opens the file at path, decompressing it if it has a .gz suffix.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) != ".gz" {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return readCloser{Reader: gz, close: func() error {
		gz.Close()
		return f.Close()
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

type samReader interface {
	Read() (*sam.Record, error)
}

// readSAM adds the mapped records in the SAM or BAM file at path.
func (in *input) readSAM(path string, class align.Class) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r samReader
	if strings.HasSuffix(path, ".bam") {
		br, err := bam.NewReader(f, 1)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer br.Close()
		r = br
	} else {
		r, err = sam.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if rec.Ref == nil {
			continue
		}
		a, err := align.FromSAM(rec, class)
		if err != nil {
			if err != align.ErrUnmapped {
				in.skipped++
			}
			continue
		}
		a.Contig = rec.Ref.Name()
		in.add(a)
	}
}

// readSplign adds the compartments in the splign tabular file at path.
func (in *input) readSplign(path string, class align.Class) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	alns, err := align.ParseSplign(f, class)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, a := range alns {
		in.add(a)
	}
	return nil
}

// readGFF calls fn for each feature in the GFF file at path.
func readGFF(path string, fn func(*gff.Feature)) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := featio.NewScanner(gff.NewReader(f))
	for sc.Next() {
		fn(sc.Feat().(*gff.Feature))
	}
	if err := sc.Error(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// readConfirmed adds the features in the GFF file at path as
// confirmed genome regions.
func (in *input) readConfirmed(path string) error {
	return readGFF(path, func(f *gff.Feature) {
		d := in.corrections[f.SeqName]
		d.Confirmed = append(d.Confirmed, align.Range{Start: f.FeatStart, End: f.FeatEnd})
		in.corrections[f.SeqName] = d
	})
}

// readKeep adds the features in the GFF file at path as introns to
// retain regardless of support. Introns without a strand are unoriented.
func (in *input) readKeep(path string) error {
	return readGFF(path, func(f *gff.Feature) {
		in.keep[f.SeqName] = append(in.keep[f.SeqName], align.Intron{
			Range:    align.Range{Start: f.FeatStart, End: f.FeatEnd},
			Strand:   f.FeatStrand,
			Oriented: f.FeatStrand != seq.None,
		})
	})
}
