// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The audit-ledger command allows the genome correction ledger written by
// the collapse command's -ledger flag to be queried. Output from
// audit-ledger is a JSON stream on stdout, one correction per line, in
// contig and position order.
//
// Each correction corresponds to the following Go struct. Kind is one of
// "gap", "insertion", "deletion", "confirmed" or "replacement". For gaps
// and indels Len is the length of the correction, for confirmed regions it
// is the length of the region and for replacements Seq holds the new base.
// Count is the number of times the correction was written to the ledger.
//  struct {
//  	Contig string
//  	Pos    int64
//  	Kind   string
//  	Len    int64
//  	Seq    string
//  	Count  int64
//  }
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"modernc.org/kv"

	"github.com/kortschak/splice/internal/store"
)

func main() {
	path := flag.String("db", "", "specify ledger db file to audit")
	contig := flag.String("contig", "", "specify contig to audit (default all)")
	kind := flag.String("kind", "", "specify correction kind to audit (default all)")
	flag.Parse()
	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts := &kv.Options{Compare: store.ByPosition}
	db, err := kv.Open(*path, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	var it *kv.Enumerator
	if *contig == "" {
		it, err = db.SeekFirst()
	} else {
		it, _, err = db.Seek(store.MarshalLedgerKey(store.LedgerKey{Contig: *contig, Pos: -1 << 63}))
	}
	if err != nil {
		if err == io.EOF {
			return
		}
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal(err)
		}
		key := store.UnmarshalLedgerKey(k)
		if *contig != "" && key.Contig != *contig {
			break
		}
		if *kind != "" && key.Kind.String() != *kind {
			continue
		}
		err = enc.Encode(correction{
			LedgerKey: key,
			Count:     int64(store.UnmarshalInt(v)),
		})
		if err != nil {
			log.Fatal(err)
		}
	}
}

type correction struct {
	store.LedgerKey
	Count int64
}
