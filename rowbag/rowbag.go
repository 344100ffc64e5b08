// Package rowbag implements the row-bag / PathBag abstraction (spec §4.7):
// a minimal store of full skip-ledger rows that can answer rowHash(rn) for
// every full row and every row a full row's skip-pointers reference
// directly, without storing any hash redundantly.
package rowbag

import (
	"sort"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// Row is a full skip-ledger row: its own input hash plus the hashes of
// every row its skip-pointers reference, in level order.
type Row struct {
	RowNo      skiprow.RowNo
	InputHash  sl.Hash
	PrevHashes []sl.Hash // len == skiprow.SkipCount(RowNo)
}

// Hash computes this row's own row-hash from its stored input hash and
// previous-row hashes.
func (r Row) Hash() sl.Hash {
	parts := make([]sl.Hash, 1+len(r.PrevHashes))
	parts[0] = r.InputHash
	copy(parts[1:], r.PrevHashes)
	return sl.SumHashes(parts...)
}

// Bag is a PathBag: a set of full rows, indexed so that rowHash(rn) is
// answerable in O(1) for any rn in the bag's coverage, whether rn is a full
// row or only referenced directly by one.
type Bag struct {
	full   map[skiprow.RowNo]Row
	hashes map[skiprow.RowNo]sl.Hash
}

// NewBag builds a Bag from a set of full rows. It fails with
// sl.ErrHashConflict if two rows disagree about the hash of any row number
// both of them touch (either as a full row or as a skip-pointer reference).
func NewBag(rows []Row) (*Bag, error) {
	b := &Bag{
		full:   make(map[skiprow.RowNo]Row, len(rows)),
		hashes: make(map[skiprow.RowNo]sl.Hash, len(rows)*2),
	}
	for _, r := range rows {
		if want := skiprow.SkipCount(r.RowNo); len(r.PrevHashes) != want {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "rowbag: row %d has %d prev-hashes, want %d", r.RowNo, len(r.PrevHashes), want)
		}
		b.full[r.RowNo] = r
		if err := b.put(r.RowNo, r.Hash()); err != nil {
			return nil, err
		}
		for level, ph := range r.PrevHashes {
			target := skiprow.ReferencedRow(r.RowNo, level)
			if target == 0 {
				continue
			}
			if err := b.put(target, ph); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (b *Bag) put(rn skiprow.RowNo, h sl.Hash) error {
	if existing, ok := b.hashes[rn]; ok {
		if existing != h {
			return sl.Errorf(sl.ErrHashConflict, "rowbag: conflicting hash for row %d", rn)
		}
		return nil
	}
	b.hashes[rn] = h
	return nil
}

// RowHash returns the hash of row rn and true, or false if rn is outside
// the bag's coverage.
func (b *Bag) RowHash(rn skiprow.RowNo) (sl.Hash, bool) {
	if rn == 0 {
		return sl.Sentinel, true
	}
	h, ok := b.hashes[rn]
	return h, ok
}

// InputHash returns the input hash of row rn, if rn is a full row in the
// bag.
func (b *Bag) InputHash(rn skiprow.RowNo) (sl.Hash, bool) {
	r, ok := b.full[rn]
	if !ok {
		return sl.Hash{}, false
	}
	return r.InputHash, true
}

// FullRow returns the full row rn, if present.
func (b *Bag) FullRow(rn skiprow.RowNo) (Row, bool) {
	r, ok := b.full[rn]
	return r, ok
}

// FullRowNumbers returns the ascending list of row numbers this bag stores
// in full (as opposed to referenced-only).
func (b *Bag) FullRowNumbers() []skiprow.RowNo {
	out := make([]skiprow.RowNo, 0, len(b.full))
	for rn := range b.full {
		out = append(out, rn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Coverage returns every row number (including 0) this bag can answer
// RowHash for.
func (b *Bag) Coverage() map[skiprow.RowNo]bool {
	out := make(map[skiprow.RowNo]bool, len(b.hashes)+1)
	out[0] = true
	for rn := range b.hashes {
		out[rn] = true
	}
	return out
}

// Merge combines bags that have been independently validated, returning a
// new Bag that is the union of their full rows. Fails with
// sl.ErrHashConflict if the bags disagree on any row's hash.
func Merge(bags ...*Bag) (*Bag, error) {
	var rows []Row
	for _, b := range bags {
		for _, rn := range b.FullRowNumbers() {
			r, _ := b.FullRow(rn)
			rows = append(rows, r)
		}
	}
	return NewBag(rows)
}
