// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
	"gonum.org/v1/gonum/graph/encoding/dot"

	"github.com/kortschak/splice/align"
	"github.com/kortschak/splice/collapse"
)

// writeAlignment writes a as a match feature followed by a match_part
// feature for each exon.
func writeAlignment(w *gff.Writer, a align.Alignment, cluster string) error {
	strand := a.Strand
	if a.Has(align.UnknownOrientation) {
		strand = seq.None
	}
	weight := a.Weight
	attrs := gff.Attributes{
		{Tag: "Target", Value: strconv.Quote(a.Target)},
		{Tag: "ID", Value: strconv.FormatInt(a.ID.Signed(), 10)},
		{Tag: "Class", Value: a.Class.String()},
		{Tag: "Weight", Value: strconv.FormatFloat(a.Weight, 'g', -1, 64)},
	}
	if cluster != "" {
		attrs = append(attrs, gff.Attribute{Tag: "Cluster", Value: cluster})
	}
	if a.Shift != 0 {
		attrs = append(attrs, gff.Attribute{Tag: "Shift", Value: strconv.Itoa(a.Shift)})
	}
	_, err := w.Write(&gff.Feature{
		SeqName:        a.Contig,
		Source:         "collapse",
		Feature:        "match",
		FeatStart:      a.Range.Start,
		FeatEnd:        a.Range.End,
		FeatScore:      &weight,
		FeatStrand:     strand,
		FeatFrame:      gff.NoFrame,
		FeatAttributes: attrs,
	})
	if err != nil {
		return err
	}
	for _, e := range a.Exons() {
		_, err = w.Write(&gff.Feature{
			SeqName:    a.Contig,
			Source:     "collapse",
			Feature:    "match_part",
			FeatStart:  e.Start,
			FeatEnd:    e.End,
			FeatStrand: strand,
			FeatFrame:  gff.NoFrame,
			FeatAttributes: gff.Attributes{
				{Tag: "Target", Value: strconv.Quote(a.Target)},
				{Tag: "ID", Value: strconv.FormatInt(a.ID.Signed(), 10)},
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// writeClusters writes the clusters of a contig to w.
func writeClusters(w *gff.Writer, contig string, clusters []collapse.Cluster, other []align.Alignment) error {
	for i, c := range clusters {
		name := fmt.Sprintf("%s.%d", contig, i+1)
		for _, a := range c.Alignments {
			err := writeAlignment(w, a, name)
			if err != nil {
				return err
			}
		}
	}
	for _, a := range other {
		err := writeAlignment(w, a, "")
		if err != nil {
			return err
		}
	}
	return nil
}

// dotOut writes the overlap graph of cls to a DOT file in dir.
func dotOut(dir, contig string, cls *collapse.ClusterSet) error {
	b, err := dot.Marshal(cls.OverlapGraph(), contig, "", "\t")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(filepath.Join(dir, contig+".dot"), b, 0o664)
}
