// Package path implements verified sequences of linked skip-ledger rows
// (spec §4.6): Path, the intersection algebra between paths, and MultiPath,
// the island-free union of paths used by nuggets.
package path

import (
	"io"
	"sort"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/rowbag"
	"github.com/crums-io/skipledger.go/skiprow"
)

// Path is a non-empty, strictly-ascending, hash-linked sequence of full
// rows: consecutive rows are joined by an exact skip-pointer.
type Path struct {
	bag  *rowbag.Bag
	nums []skiprow.RowNo // ascending, == bag.FullRowNumbers()
}

// New builds a Path from a set of full rows. Rows must be strictly
// ascending in RowNo and each consecutive pair linked by an exact
// skip-pointer (row i+1's skip-pointers must include one at row i).
// Fails with sl.ErrNotLinked otherwise, or sl.ErrBadSourcePack if rows is
// empty.
func New(rows []rowbag.Row) (*Path, error) {
	if len(rows) == 0 {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "path: empty row set")
	}
	sorted := append([]rowbag.Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RowNo < sorted[j].RowNo })

	for i := 1; i < len(sorted); i++ {
		lo, hi := sorted[i-1].RowNo, sorted[i].RowNo
		if lo == hi {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "path: duplicate row %d", lo)
		}
		if !skiprow.IsLinked(lo, hi) {
			return nil, sl.Errorf(sl.ErrNotLinked, "path: row %d is not linked from row %d", lo, hi)
		}
	}
	bag, err := rowbag.NewBag(sorted)
	if err != nil {
		return nil, err
	}
	nums := make([]skiprow.RowNo, len(sorted))
	for i, r := range sorted {
		nums[i] = r.RowNo
	}
	return &Path{bag: bag, nums: nums}, nil
}

// Lo is the lowest row number in the path.
func (p *Path) Lo() skiprow.RowNo { return p.nums[0] }

// Hi is the highest row number in the path.
func (p *Path) Hi() skiprow.RowNo { return p.nums[len(p.nums)-1] }

// RowNumbers returns the path's full row numbers, ascending.
func (p *Path) RowNumbers() []skiprow.RowNo {
	return append([]skiprow.RowNo(nil), p.nums...)
}

// Bag exposes the path's underlying row bag (PathBag, spec §4.7).
func (p *Path) Bag() *rowbag.Bag { return p.bag }

// RowHash returns the hash of row rn, if rn is in the path's coverage.
func (p *Path) RowHash(rn skiprow.RowNo) (sl.Hash, bool) { return p.bag.RowHash(rn) }

// InputHash returns the input hash of row rn, if rn is a full row of the
// path.
func (p *Path) InputHash(rn skiprow.RowNo) (sl.Hash, bool) { return p.bag.InputHash(rn) }

// HasFullRow reports whether rn is one of the path's own stored rows (as
// opposed to merely covered via a skip-pointer reference).
func (p *Path) HasFullRow(rn skiprow.RowNo) bool {
	_, ok := p.bag.FullRow(rn)
	return ok
}

// IntersectKind classifies how two paths relate at a shared row number.
type IntersectKind int

const (
	// Direct: both paths store the row in full.
	Direct IntersectKind = iota
	// ByLineage: one path's full row skip-references the other's full row.
	ByLineage
	// ByReference: the row is only covered (referenced), not a full row, in
	// at least one of the two paths.
	ByReference
)

// Intersection describes one shared row number between two paths.
type Intersection struct {
	RowNo skiprow.RowNo
	Kind  IntersectKind
}

// Intersector iterates, in ascending row-number order, every row number
// covered by both p and other, classifying each. Returns sl.ErrHashConflict
// on the first row where the two paths disagree about its hash.
func (p *Path) Intersector(other *Path) ([]Intersection, error) {
	covA, covB := p.bag.Coverage(), other.bag.Coverage()
	var shared []skiprow.RowNo
	for rn := range covA {
		if rn == 0 {
			continue
		}
		if covB[rn] {
			shared = append(shared, rn)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })

	out := make([]Intersection, 0, len(shared))
	for _, rn := range shared {
		ha, _ := p.bag.RowHash(rn)
		hb, _ := other.bag.RowHash(rn)
		if ha != hb {
			return nil, sl.Errorf(sl.ErrHashConflict, "path: conflicting hash at row %d", rn)
		}
		_, fullA := p.bag.FullRow(rn)
		_, fullB := other.bag.FullRow(rn)
		var kind IntersectKind
		switch {
		case fullA && fullB:
			kind = Direct
		case fullA || fullB:
			kind = ByLineage
		default:
			kind = ByReference
		}
		out = append(out, Intersection{RowNo: rn, Kind: kind})
	}
	return out, nil
}

// HighestCommonNo returns the largest row number covered by both paths, or
// 0 if they share nothing (including the trivial sentinel).
func (p *Path) HighestCommonNo(other *Path) skiprow.RowNo {
	covB := other.bag.Coverage()
	var best skiprow.RowNo
	for rn := range p.bag.Coverage() {
		if rn != 0 && covB[rn] && rn > best {
			best = rn
		}
	}
	return best
}

// Write serializes the path as row-count followed by each full row's
// (rn:u64, inputHash:32, prevHashes:32*skipCount(rn)) -- the ".spath" file
// format of spec §6.
func (p *Path) Write(w io.Writer) error {
	if err := sl.WriteUint32(w, uint32(len(p.nums))); err != nil {
		return err
	}
	for _, rn := range p.nums {
		r, _ := p.bag.FullRow(rn)
		if err := sl.WriteUint64(w, r.RowNo); err != nil {
			return err
		}
		if err := sl.WriteHash(w, r.InputHash); err != nil {
			return err
		}
		for _, h := range r.PrevHashes {
			if err := sl.WriteHash(w, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read decodes a path from its ".spath" serial form.
func Read(r io.Reader) (*Path, error) {
	count, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	rows := make([]rowbag.Row, count)
	for i := range rows {
		rn, err := sl.ReadUint64(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "path: reading row %d header", i)
		}
		ih, err := sl.ReadHash(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "path: reading row %d input hash", i)
		}
		sc := skiprow.SkipCount(rn)
		prev := make([]sl.Hash, sc)
		for level := 0; level < sc; level++ {
			h, err := sl.ReadHash(r)
			if err != nil {
				return nil, sl.Errorf(sl.ErrBadSourcePack, "path: reading row %d prev-hash %d", i, level)
			}
			prev[level] = h
		}
		rows[i] = rowbag.Row{RowNo: rn, InputHash: ih, PrevHashes: prev}
	}
	return New(rows)
}
