// Package frontier implements the minimal per-level state (spec §4.3) that
// lets a caller replay or extend a skip-ledger forward from a stream of
// input-hashes alone, without reading back through the backing store.
//
// Frontier.levels is a high-water-mark vector: its length only ever grows
// (by at most one slot per appended row, since a row's skip-pointer count
// exceeds every prior row's by at most 1), and level i always holds
// rowHash of the most recently appended row whose own skip-pointer count
// is > i. That invariant is exactly what makes level i available, without
// re-reading the ledger, as the prevHash(i) input the next row needs.
package frontier

import (
	"io"
	"math/bits"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// Frontier is the per-level state of a skip-ledger at a given row number.
// The zero value, Sentinel, represents rn == 0.
type Frontier struct {
	rn     skiprow.RowNo
	levels []sl.Hash
}

// Sentinel is the frontier at rn = 0: stateless, hash is the all-zero hash.
var Sentinel = Frontier{rn: 0}

// RowNo returns the row number this frontier is positioned at.
func (f Frontier) RowNo() skiprow.RowNo { return f.rn }

// RowHash returns rowHash(rn), the hash of the row this frontier is
// positioned at, or the all-zero hash at rn == 0.
func (f Frontier) RowHash() sl.Hash {
	if f.rn == 0 {
		return sl.Sentinel
	}
	return f.levels[0]
}

// LevelHash returns the hash tracked at the given level. Panics if level is
// out of range for the current high-water mark.
func (f Frontier) LevelHash(level int) sl.Hash {
	sl.Assert(level >= 0 && level < len(f.levels), "Frontier.LevelHash: level %d out of range", level)
	return f.levels[level]
}

// FirstRow builds the frontier at rn = 1 from the row's input hash.
func FirstRow(inputHash sl.Hash) Frontier {
	return NextFrontier(Sentinel, inputHash)
}

// NextFrontier computes the frontier one row past prev, given the new
// row's input hash.
func NextFrontier(prev Frontier, inputHash sl.Hash) Frontier {
	rn := prev.rn + 1
	sc := skiprow.SkipCount(rn)

	levels := append([]sl.Hash(nil), prev.levels...)
	for len(levels) < sc {
		levels = append(levels, sl.Sentinel)
	}

	parts := make([]sl.Hash, 1+sc)
	parts[0] = inputHash
	copy(parts[1:], levels[:sc])
	rowHash := sl.SumHashes(parts...)

	for level := 0; level < sc; level++ {
		levels[level] = rowHash
	}
	return Frontier{rn: rn, levels: levels}
}

// PrevHashesFor returns the skiprow.SkipCount(prev.rn+1) previous-row
// hashes that NextFrontier(prev, ...) would consume to build the row at
// prev.rn+1, without computing the new frontier itself. A ledger engine
// uses this to assemble the persisted record (inputHash ‖ prevHashes) for
// the row it is about to append, immediately before calling NextFrontier
// to advance past it.
func PrevHashesFor(prev Frontier) []sl.Hash {
	rn := prev.rn + 1
	sc := skiprow.SkipCount(rn)
	levels := append([]sl.Hash(nil), prev.levels...)
	for len(levels) < sc {
		levels = append(levels, sl.Sentinel)
	}
	return append([]sl.Hash(nil), levels[:sc]...)
}

// LoadFrontier materializes the frontier at rn directly from storage,
// without replaying every row from 1. Level i holds rowHash of the most
// recent row <= rn divisible by 2^i (the most recent row whose own
// skip-pointer count exceeds i); the number of levels needed is the bit
// length of rn, since the deepest level ever exposed by any row <= rn is
// exposed by the largest power of two <= rn.
func LoadFrontier(rn skiprow.RowNo, rowHash func(skiprow.RowNo) sl.Hash) Frontier {
	if rn == 0 {
		return Sentinel
	}
	n := bits.Len64(rn)
	levels := make([]sl.Hash, n)
	for level := 0; level < n; level++ {
		step := skiprow.RowNo(1) << uint(level)
		target := (rn / step) * step
		if target == 0 {
			levels[level] = sl.Sentinel
		} else {
			levels[level] = rowHash(target)
		}
	}
	return Frontier{rn: rn, levels: levels}
}

// Write serializes the frontier as 8-byte rn followed by len(levels)*32
// hash bytes (spec §4.3 "Serial form").
func (f Frontier) Write(w io.Writer) error {
	if err := sl.WriteUint64(w, f.rn); err != nil {
		return err
	}
	for _, h := range f.levels {
		if err := sl.WriteHash(w, h); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes a frontier from its serial form. rn == 0 decodes to
// Sentinel.
func Read(r io.Reader) (Frontier, error) {
	rn, err := sl.ReadUint64(r)
	if err != nil {
		return Frontier{}, err
	}
	if rn == 0 {
		return Sentinel, nil
	}
	n := bits.Len64(rn)
	levels := make([]sl.Hash, n)
	for level := 0; level < n; level++ {
		h, err := sl.ReadHash(r)
		if err != nil {
			return Frontier{}, sl.Errorf(sl.ErrBadSourcePack, "frontier: reading level %d of rn %d", level, rn)
		}
		levels[level] = h
	}
	return Frontier{rn: rn, levels: levels}, nil
}
