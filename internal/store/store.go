// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store provides the key encoding and ordering used to persist
// genome correction ledgers in a kv database.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"modernc.org/kv"

	"github.com/kortschak/splice/align"
	"github.com/kortschak/splice/collapse"
)

// Kind is the kind of a ledger correction.
type Kind int8

const (
	Gap Kind = iota
	Insertion
	Deletion
	Confirmed
	Replacement
)

var kindNames = [...]string{
	Gap:         "gap",
	Insertion:   "insertion",
	Deletion:    "deletion",
	Confirmed:   "confirmed",
	Replacement: "replacement",
}

func (k Kind) String() string {
	if 0 <= k && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalJSON implements the json.Marshaler interface.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// LedgerKey is the key of a persisted ledger correction. For gaps and
// indels Len is the correction length, for confirmed regions it is the
// length of the region and for replacements Seq holds the new base.
type LedgerKey struct {
	Contig string
	Pos    int64
	Kind   Kind
	Len    int64
	Seq    string `json:",omitempty"`
}

// ByPosition is a kv compare function, ordering by contig, position,
// correction kind and correction length.
func ByPosition(x, y []byte) int {
	if bytes.Equal(x, y) {
		return 0
	}

	kx := UnmarshalLedgerKey(x)
	ky := UnmarshalLedgerKey(y)

	switch {
	case kx.Contig < ky.Contig:
		return -1
	case kx.Contig > ky.Contig:
		return 1
	}
	switch {
	case kx.Pos < ky.Pos:
		return -1
	case kx.Pos > ky.Pos:
		return 1
	}
	switch {
	case kx.Kind < ky.Kind:
		return -1
	case kx.Kind > ky.Kind:
		return 1
	}

	// Longer corrections first.
	switch {
	case kx.Len > ky.Len:
		return -1
	case kx.Len < ky.Len:
		return 1
	}

	// Ensure key uniqueness.
	switch {
	case kx.Seq < ky.Seq:
		return -1
	case kx.Seq > ky.Seq:
		return 1
	}

	panic("unreachable")
}

// MarshalInt returns a slice encoding n as an int64.
func MarshalInt(n int) []byte {
	var buf [8]byte
	order.PutUint64(buf[:], uint64(n))
	return buf[:]
}

// UnmarshalInt returns the int encoded in data by MarshalInt.
func UnmarshalInt(data []byte) int {
	return int(int64(order.Uint64(data)))
}

var order = binary.BigEndian

func MarshalLedgerKey(k LedgerKey) []byte {
	var (
		buf bytes.Buffer
		b   [8]byte
	)
	order.PutUint64(b[:], uint64(len(k.Contig)))
	buf.Write(b[:])
	buf.WriteString(k.Contig)
	order.PutUint64(b[:], uint64(k.Pos))
	buf.Write(b[:])
	buf.WriteByte(byte(k.Kind))
	order.PutUint64(b[:], uint64(k.Len))
	buf.Write(b[:])
	order.PutUint64(b[:], uint64(len(k.Seq)))
	buf.Write(b[:])
	buf.WriteString(k.Seq)
	return buf.Bytes()
}

func UnmarshalLedgerKey(data []byte) LedgerKey {
	var k LedgerKey
	n64 := binary.Size(uint64(0))
	n := order.Uint64(data[:n64])
	data = data[n64:]
	k.Contig = string(data[:n])
	data = data[n:]
	k.Pos = int64(order.Uint64(data[:n64]))
	data = data[n64:]
	k.Kind = Kind(data[0])
	data = data[1:]
	k.Len = int64(order.Uint64(data[:n64]))
	data = data[n64:]
	n = order.Uint64(data[:n64])
	data = data[n64:]
	k.Seq = string(data[:n])
	return k
}

// LedgerKeys returns the keys for the corrections held by l for the
// named contig.
func LedgerKeys(contig string, l *collapse.Ledger) []LedgerKey {
	var keys []LedgerKey
	for _, g := range l.Gaps() {
		keys = append(keys, LedgerKey{Contig: contig, Pos: int64(g.Pos), Kind: Gap, Len: int64(g.Len)})
	}
	for _, d := range l.Indels() {
		keys = append(keys, indelKey(contig, d))
	}
	for _, r := range l.Confirmed() {
		keys = append(keys, LedgerKey{Contig: contig, Pos: int64(r.Start), Kind: Confirmed, Len: int64(r.Len())})
	}
	for pos, base := range l.Replacements() {
		keys = append(keys, LedgerKey{Contig: contig, Pos: int64(pos), Kind: Replacement, Len: 1, Seq: string(base)})
	}
	return keys
}

func indelKey(contig string, d align.Indel) LedgerKey {
	k := LedgerKey{Contig: contig, Pos: int64(d.Loc), Kind: Deletion, Len: int64(d.Len), Seq: d.Seq}
	if d.Insertion {
		k.Kind = Insertion
	}
	return k
}

// WriteLedger writes the corrections held by l for the named contig
// to db in a single transaction. The value of each key is the number
// of times the correction has been written.
func WriteLedger(db *kv.DB, contig string, l *collapse.Ledger) (err error) {
	err = db.BeginTransaction()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			db.Rollback()
			return
		}
		err = db.Commit()
	}()
	for _, k := range LedgerKeys(contig, l) {
		key := MarshalLedgerKey(k)
		_, _, err = db.Put(nil, key, func(_, old []byte) ([]byte, bool, error) {
			var n int
			if old != nil {
				n = UnmarshalInt(old)
			}
			return MarshalInt(n + 1), true, nil
		})
		if err != nil {
			return fmt.Errorf("failed to write %s correction at %s:%d: %w", k.Kind, k.Contig, k.Pos, err)
		}
	}
	return nil
}
