// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"strings"
	"testing"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const splignOutput = `# splign
+1	NM_0001.1	chr1	-	5	1	5	-	-	<L-Gap>	-
+1	NM_0001.1	chr1	1	100	6	105	1001	1100	<exon>GT	M100
+1	NM_0001.1	chr1	0.9	100	106	205	2001	2100	AG<exon>GT	M100
+1	NM_0001.1	chr1	1	50	206	255	3001	3050	AG<exon>	M50
-2	NM_0002.1	chr1	1	100	1	100	9100	9001	<exon>GC	M100
-2	NM_0002.1	chr1	-	4	101	104	-	-	<M-Gap>	-
-2	NM_0002.1	chr1	1	100	105	204	8100	8001	AG<exon>	M100
`

func TestParseSplign(t *testing.T) {
	alns, err := ParseSplign(strings.NewReader(splignOutput), MRNA)
	assert.NoError(t, err)
	assert.EQ(t, len(alns), 2)

	a := alns[0]
	expect.EQ(t, a.Contig, "chr1")
	expect.EQ(t, a.Target, "NM_0001.1")
	expect.EQ(t, a.ID, ID{Value: 1})
	expect.EQ(t, a.Strand, seq.Plus)
	expect.EQ(t, a.Range, Range{Start: 1000, End: 3050})
	expect.EQ(t, a.Unaligned.LeftLen, 5)
	expect.EQ(t, a.Introns, []Intron{
		{Range: Range{Start: 1100, End: 2000}, Strand: seq.Plus, Oriented: true, Sig: "GTAG"},
		{Range: Range{Start: 2100, End: 3000}, Strand: seq.Plus, Oriented: true, Sig: "GTAG"},
	})
	expect.EQ(t, a.Identity, 0.96)

	b := alns[1]
	expect.EQ(t, b.Strand, seq.Minus)
	expect.EQ(t, b.Range, Range{Start: 8000, End: 9100})
	expect.EQ(t, b.Indels, []Indel{{Loc: 8100, Len: 4, Insertion: true}})
	expect.EQ(t, b.Introns, []Intron{
		{Range: Range{Start: 8100, End: 9000}, Strand: seq.Minus, Oriented: true},
	})
}

func TestParseSplignBadLine(t *testing.T) {
	_, err := ParseSplign(strings.NewReader("+1\tq\ts\tx\n"), MRNA)
	expect.HasSubstr(t, err.Error(), "unexpected number of fields")
}
