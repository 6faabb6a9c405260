// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// collapse is a spliced alignment collapsing and filtering tool. It reads
// spliced alignments of transcripts and proteins to a genome from SAM, BAM
// and splign tabular files, collapses identical alignments, removes poorly
// supported alignments and introns and fills genomic gaps implied by the
// alignments. Retained alignments are written to stdout in GFF, with
// overlapping alignments on the same strand grouped into clusters.
//
// Genome corrections found while filling gaps are written to a kv database
// if the -ledger flag is given. The database can be inspected with the
// audit-ledger command.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/dustin/go-humanize"
	"modernc.org/kv"

	"github.com/kortschak/splice/align"
	"github.com/kortschak/splice/collapse"
	"github.com/kortschak/splice/internal/store"
)

func main() {
	var sams, splign sliceValue
	ref := flag.String("ref", "", "specify reference genome FASTA file (required)")
	flag.Var(&sams, "sam", "specify SAM or BAM alignment files (may be present more than once)")
	samClass := flag.String("class", "sr", "specify alignment class of SAM and BAM records (sr, est or mrna)")
	flag.Var(&splign, "splign", "specify splign tabular alignment files (may be present more than once)")
	splignClass := flag.String("splign-class", "mrna", "specify alignment class of splign compartments (est, mrna or protein)")
	confirmed := flag.String("confirmed", "", "specify GFF file of confirmed genome regions")
	keep := flag.String("keep", "", "specify GFF file of introns to keep regardless of support")
	ledger := flag.String("ledger", "", "specify kv database path for genome corrections")
	dotDir := flag.String("dot", "", "specify directory for DOT overlap graph output")

	cfg := collapse.DefaultConfig()
	flag.Float64Var(&cfg.MinSRWeight, "min-sr", cfg.MinSRWeight, "specify intron weight required to retain short read alignments")
	flag.Float64Var(&cfg.MinESTWeight, "min-est", cfg.MinESTWeight, "specify intron weight required to retain EST alignments")
	flag.IntVar(&cfg.MinESTCount, "min-est-count", cfg.MinESTCount, "specify EST count that alone retains an EST intron")
	flag.Float64Var(&cfg.MinIdentity, "min-identity", cfg.MinIdentity, "specify identity required of single exon short read and EST alignments")
	flag.Float64Var(&cfg.MinSingleExonWeight, "min-single", cfg.MinSingleExonWeight, "specify weight required of single exon short read and EST alignments")
	flag.Float64Var(&cfg.ClipThreshold, "clip", cfg.ClipThreshold, "specify coverage required to retain alignment flanks (0 is no clipping)")
	fill := flag.String("fill", "lrm", "specify gap fill positions as a combination of l(eft), r(ight) and m(iddle)")
	flag.IntVar(&cfg.EdgeWindow, "edge", cfg.EdgeWindow, "specify exon edge window for self-species transcripts")
	flag.IntVar(&cfg.EdgeMismatches, "edge-mismatches", cfg.EdgeMismatches, "specify mismatches tolerated in exon edge windows")
	var collapseOnly, passThrough sliceValue
	flag.Var(&collapseOnly, "collapse-only", "specify classes to collapse without filtering (may be present more than once)")
	flag.Var(&passThrough, "pass", "specify classes to pass through unaltered (may be present more than once)")
	flag.BoolVar(&cfg.NoFiltering, "nofilter", false, "specify no collapsing or filtering")
	threads := flag.Int("cores", 0, "specify the maximum number of contigs processed concurrently (<=0 is use all cores)")
	verbose := flag.Bool("verbose", false, "specify verbose logging")
	flag.Parse()

	if *ref == "" || len(sams)+len(splign) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	var err error
	cfg.Fill, err = parseFill(*fill)
	if err != nil {
		log.Fatal(err)
	}
	err = setModes(&cfg, collapseOnly, collapse.CollapseOnly)
	if err != nil {
		log.Fatal(err)
	}
	err = setModes(&cfg, passThrough, collapse.PassThrough)
	if err != nil {
		log.Fatal(err)
	}
	class, err := align.ParseClass(*samClass)
	if err != nil {
		log.Fatal(err)
	}
	if class == align.Protein {
		log.Fatal("SAM input cannot be protein alignments")
	}
	sclass, err := align.ParseClass(*splignClass)
	if err != nil {
		log.Fatal(err)
	}

	log.Println(os.Args)

	genome, err := openReference(*ref)
	if err != nil {
		log.Fatal(err)
	}
	defer genome.Close()

	in := newInput()
	for _, path := range uniq(sams) {
		log.Printf("reading %s", path)
		err = in.readSAM(path, class)
		if err != nil {
			log.Fatal(err)
		}
	}
	for _, path := range uniq(splign) {
		log.Printf("reading %s", path)
		err = in.readSplign(path, sclass)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *confirmed != "" {
		err = in.readConfirmed(*confirmed)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *keep != "" {
		err = in.readKeep(*keep)
		if err != nil {
			log.Fatal(err)
		}
	}
	log.Printf("read %s alignments (%s skipped)", humanize.Comma(int64(in.nextID)), humanize.Comma(int64(in.skipped)))

	var db *kv.DB
	if *ledger != "" {
		db, err = kv.Create(*ledger, &kv.Options{Compare: store.ByPosition})
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
	}

	if *threads <= 0 {
		*threads = runtime.NumCPU()
	}
	contigs := genome.contigs()
	results := make([]result, len(contigs))
	var wg sync.WaitGroup
	limit := make(chan struct{}, *threads)
	for i, rec := range contigs {
		alns := in.alignments[rec.Name]
		if len(alns) == 0 {
			continue
		}
		wg.Add(1)
		limit <- struct{}{}
		go func(i int, name string, length int, alns []align.Alignment) {
			defer func() {
				<-limit
				wg.Done()
			}()
			results[i] = run(genome, name, length, alns, in, cfg)
		}(i, rec.Name, rec.Length, alns)
	}
	wg.Wait()

	w := gff.NewWriter(os.Stdout, 60, true)
	var total collapse.Stats
	for _, r := range results {
		if r.contig == "" {
			continue
		}
		if r.err != nil {
			log.Fatalf("failed to collapse %s: %v", r.contig, r.err)
		}
		if *verbose {
			logStats(r.contig, r.stats)
		}
		total = addStats(total, r.stats)

		err = writeClusters(w, r.contig, r.clusters.Clusters(), r.other)
		if err != nil {
			log.Fatalf("failed to write clusters: %v", err)
		}
		if *dotDir != "" {
			err = dotOut(*dotDir, r.contig, r.clusters)
			if err != nil {
				log.Fatalf("failed to write overlap graph: %v", err)
			}
		}
		if db != nil {
			err = store.WriteLedger(db, r.contig, r.ledger)
			if err != nil {
				log.Fatal(err)
			}
		}
	}
	for name := range in.alignments {
		if _, ok := genome.idx[name]; !ok {
			log.Printf("no contig %q in reference: %s alignments ignored", name, humanize.Comma(int64(len(in.alignments[name]))))
		}
	}
	logStats("all contigs", total)
}

// result is the outcome of collapsing the alignments of a contig.
type result struct {
	contig   string
	clusters *collapse.ClusterSet
	other    []align.Alignment
	ledger   *collapse.Ledger
	stats    collapse.Stats
	err      error
}

// run collapses and filters the alignments of a contig.
func run(acc collapse.ContigAccessor, contig string, length int, alns []align.Alignment, in *input, cfg collapse.Config) result {
	c := collapse.New(contig, align.Range{Start: 0, End: length}, acc, cfg)
	if d, ok := in.corrections[contig]; ok {
		c.AddCorrectionData(d)
	}
	for _, intron := range in.keep[contig] {
		c.ForceKeepIntron(intron)
	}
	for _, a := range alns {
		// Rejected alignments are counted in the stats.
		_ = c.AddAlignment(a)
	}
	cls, err := c.GetCollapsedAlignments()
	if err != nil {
		return result{contig: contig, err: err}
	}
	return result{
		contig:   contig,
		clusters: cls,
		other:    c.GetOnlyOtherAlignments(),
		ledger:   c.Ledger(),
		stats:    c.Stats(),
	}
}

func logStats(name string, s collapse.Stats) {
	log.Printf("%s: ingested %s rejected %s tombstones %s passed %s collapsed %s retained %s",
		name,
		humanize.Comma(int64(s.Ingested)),
		humanize.Comma(int64(s.Rejected)),
		humanize.Comma(int64(s.Tombstones)),
		humanize.Comma(int64(s.PassedThrough)),
		humanize.Comma(int64(s.Collapsed)),
		humanize.Comma(int64(s.Retained)),
	)
	log.Printf("%s: %s groups holding weight %s", name, humanize.Comma(int64(s.Groups)), humanize.Ftoa(s.GroupWeight))
	for c, n := range s.Dropped {
		if n != 0 {
			log.Printf("%s: dropped %s %s alignments", name, humanize.Comma(int64(n)), align.Class(c))
		}
	}
	log.Printf("%s: introns removed %s clipped %s gaps filled %s range/target conflicts %s",
		name,
		humanize.Comma(int64(s.IntronsRemoved)),
		humanize.Comma(int64(s.Clipped)),
		humanize.Comma(int64(s.GapsFilled)),
		humanize.Comma(int64(s.RangeTargetConflicts)),
	)
}

func addStats(a, b collapse.Stats) collapse.Stats {
	a.Ingested += b.Ingested
	a.Rejected += b.Rejected
	a.Tombstones += b.Tombstones
	a.PassedThrough += b.PassedThrough
	a.Individual += b.Individual
	a.Groups += b.Groups
	a.Collapsed += b.Collapsed
	a.GroupWeight += b.GroupWeight
	a.RangeTargetConflicts += b.RangeTargetConflicts
	for i, n := range b.Dropped {
		a.Dropped[i] += n
	}
	a.IntronsRemoved += b.IntronsRemoved
	a.Clipped += b.Clipped
	a.GapsFilled += b.GapsFilled
	a.Retained += b.Retained
	return a
}

// parseFill returns the fill positions described by s.
func parseFill(s string) (collapse.FillPosition, error) {
	var fill collapse.FillPosition
	for _, c := range s {
		switch c {
		case 'l':
			fill |= collapse.FillLeft
		case 'r':
			fill |= collapse.FillRight
		case 'm':
			fill |= collapse.FillMiddle
		default:
			return 0, fmt.Errorf("invalid fill position: %q", c)
		}
	}
	return fill, nil
}

// setModes sets the mode of each named class in cfg.
func setModes(cfg *collapse.Config, classes []string, mode collapse.Mode) error {
	for _, name := range classes {
		for _, n := range strings.Split(name, ",") {
			class, err := align.ParseClass(n)
			if err != nil {
				return err
			}
			switch class {
			case align.ShortRead:
				cfg.SR = mode
			case align.EST:
				cfg.EST = mode
			case align.MRNA:
				cfg.MRNA = mode
			case align.Protein:
				cfg.Protein = mode
			default:
				panic("unreachable")
			}
		}
	}
	return nil
}

// sliceValue is a multi-value flag value.
type sliceValue []string

// Set adds the string to the sliceValue.
func (s *sliceValue) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// String satisfies the flag.Value interface.
func (s *sliceValue) String() string {
	return fmt.Sprintf("%q", []string(*s))
}

// uniq returns s sorted with repeated elements removed.
func uniq(s []string) []string {
	if len(s) == 0 {
		return s
	}
	sort.Strings(s)
	i := 0
	for _, v := range s {
		if v != s[i] {
			i++
			s[i] = v
		}
	}
	return s[:i+1]
}
