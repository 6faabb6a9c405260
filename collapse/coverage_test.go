// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collapse

import (
	"testing"

	"github.com/biogo/biogo/seq"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"

	"github.com/kortschak/splice/align"
)

func TestCoverage(t *testing.T) {
	cov, err := NewCoverage(rng(0, 100))
	assert.NoError(t, err)
	assert.NoError(t, cov.Add(rng(10, 20), 1))
	assert.NoError(t, cov.Add(rng(15, 30), 0.5))
	assert.NoError(t, cov.Add(rng(150, 160), 2))
	assert.NoError(t, cov.Confirm(rng(50, 55)))

	expect.EQ(t, cov.At(9), 0.0)
	expect.EQ(t, cov.At(10), 1.0)
	expect.EQ(t, cov.At(15), 1.5)
	expect.EQ(t, cov.At(25), 0.5)
	expect.EQ(t, cov.At(155), 2.0)

	expect.True(t, cov.Supported(52, 10))
	expect.False(t, cov.Supported(25, 1))
	expect.True(t, cov.Supported(19, 1.5))
	expect.False(t, cov.Supported(-5, 0.1))
}

var clipTests = []struct {
	name      string
	aln       align.Alignment
	coverage  []align.Range
	threshold float64
	wantOK    bool
	want      align.Range
	introns   int
}{
	{
		name:      "single exon",
		aln:       spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 200)),
		coverage:  []align.Range{rng(120, 180)},
		threshold: 2,
		wantOK:    true,
		want:      rng(120, 180),
	},
	{
		name:      "all supported",
		aln:       spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 200)),
		coverage:  []align.Range{rng(0, 300)},
		threshold: 2,
		wantOK:    true,
		want:      rng(100, 200),
	},
	{
		name:      "unsupported",
		aln:       spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 200)),
		coverage:  []align.Range{rng(200, 300)},
		threshold: 2,
		wantOK:    false,
		want:      rng(100, 200),
	},
	{
		name:      "first exon unsupported",
		aln:       spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 150), rng(200, 250), rng(300, 350)),
		coverage:  []align.Range{rng(210, 340)},
		threshold: 2,
		wantOK:    true,
		want:      rng(210, 340),
		introns:   1,
	},
	{
		name:      "coverage in intron",
		aln:       spliced(align.MRNA, seq.Plus, 1, 1, "a", rng(100, 150), rng(200, 250)),
		coverage:  []align.Range{rng(160, 190)},
		threshold: 2,
		wantOK:    false,
		want:      rng(100, 250),
		introns:   1,
	},
}

func TestClipNotSupportedFlanks(t *testing.T) {
	for _, test := range clipTests {
		cov, err := NewCoverage(rng(0, 400))
		assert.NoError(t, err)
		assert.NoError(t, cov.Add(rng(0, 400), 1))
		for _, r := range test.coverage {
			assert.NoError(t, cov.Add(r, test.threshold-1))
		}
		a := test.aln.Clone()
		ok := ClipNotSupportedFlanks(&a, cov, test.threshold)
		expect.EQ(t, ok, test.wantOK, "test %q", test.name)
		expect.EQ(t, a.Range, test.want, "test %q", test.name)
		expect.EQ(t, len(a.Introns), test.introns, "test %q", test.name)
	}
}
