package path

import (
	"io"
	"sort"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/rowbag"
	"github.com/crums-io/skipledger.go/skiprow"
)

// MultiPath is the island-free union of one or more Paths over the same
// logical ledger (spec §4.6). Every row number any of its paths depends on
// is reachable, by skip-pointer intersection, from every other -- there is
// one connected spine, not several disjoint islands.
type MultiPath struct {
	paths []*Path
	bag   *rowbag.Bag
	hi    skiprow.RowNo
}

// Paths returns the constituent paths, ordered by descending Hi (spec
// §4.6 "build(): paths ordered by descending hi").
func (m *MultiPath) Paths() []*Path { return append([]*Path(nil), m.paths...) }

// Hi is the highest row number covered by any constituent path.
func (m *MultiPath) Hi() skiprow.RowNo { return m.hi }

// RowHash returns the hash of row rn, if covered.
func (m *MultiPath) RowHash(rn skiprow.RowNo) (sl.Hash, bool) { return m.bag.RowHash(rn) }

// InputHash returns the input hash of row rn, if rn is a full row of some
// constituent path.
func (m *MultiPath) InputHash(rn skiprow.RowNo) (sl.Hash, bool) { return m.bag.InputHash(rn) }

// HasAnchor reports whether the multi-path includes a path whose Lo() == 1
// (the state-anchor, spec §4.6 "build()").
func (m *MultiPath) HasAnchor() bool {
	for _, p := range m.paths {
		if p.Lo() == 1 {
			return true
		}
	}
	return false
}

// Bag exposes the merged row bag backing the multi-path.
func (m *MultiPath) Bag() *rowbag.Bag { return m.bag }

// Builder incrementally assembles a MultiPath, rejecting paths that do not
// connect to the accumulating spine.
type Builder struct {
	paths []*Path
	bag   *rowbag.Bag
	hi    skiprow.RowNo
}

// NewBuilder seeds a builder with one path. A builder always accepts its
// seed unconditionally.
func NewBuilder(seed *Path) (*Builder, error) {
	b := &Builder{paths: []*Path{seed}, bag: seed.bag, hi: seed.Hi()}
	return b, nil
}

// InputHashHint returns the input hash the builder's accumulated spine
// records for rn, if rn is a full row of some accepted path. Used by
// callers (e.g. Nugget.AddSourceRow) that need to validate against the
// spine before the final MultiPath is built.
func (b *Builder) InputHashHint(rn skiprow.RowNo) (sl.Hash, bool) { return b.bag.InputHash(rn) }

// RowHashHint returns the row hash the builder's accumulated spine records
// for rn, if rn is within its coverage.
func (b *Builder) RowHashHint(rn skiprow.RowNo) (sl.Hash, bool) { return b.bag.RowHash(rn) }

// AddPath accepts p if it connects -- by a shared, hash-agreeing row
// number other than the trivial sentinel -- to the paths already accepted.
// Returns the highest such shared row number. Fails with
// sl.ErrIslandRejected if p is disconnected from the accumulated spine, or
// sl.ErrHashConflict if a shared row disagrees on its hash.
func (b *Builder) AddPath(p *Path) (skiprow.RowNo, error) {
	existingCov := b.bag.Coverage()
	pCov := p.bag.Coverage()

	var common skiprow.RowNo
	for rn := range pCov {
		if rn == 0 || !existingCov[rn] {
			continue
		}
		ha, _ := b.bag.RowHash(rn)
		hb, _ := p.bag.RowHash(rn)
		if ha != hb {
			return 0, sl.Errorf(sl.ErrHashConflict, "multipath: conflicting hash at row %d", rn)
		}
		if rn > common {
			common = rn
		}
	}
	if common == 0 {
		return 0, sl.Errorf(sl.ErrIslandRejected, "multipath: path [%d,%d] does not intersect the accumulated spine", p.Lo(), p.Hi())
	}

	merged, err := rowbag.Merge(b.bag, p.bag)
	if err != nil {
		return 0, err
	}
	b.bag = merged
	b.paths = append(b.paths, p)
	if p.Hi() > b.hi {
		b.hi = p.Hi()
	}
	return common, nil
}

// Build finalizes the MultiPath, ordering its paths by descending Hi.
// partial, when true, waives the requirement that the result include a
// path whose Lo() == 1; otherwise a missing state-anchor fails with
// sl.ErrBadSourcePack.
func (b *Builder) Build(partial bool) (*MultiPath, error) {
	ordered := append([]*Path(nil), b.paths...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Hi() > ordered[j].Hi() })

	m := &MultiPath{paths: ordered, bag: b.bag, hi: b.hi}
	if !partial && !m.HasAnchor() {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "multipath: missing state-anchor path (lo=1) and not declared partial")
	}
	return m, nil
}

// Write serializes the multi-path as its constituent paths, count-prefixed,
// each in ".spath" form (spec §6 "multiPathSerial").
func (m *MultiPath) Write(w io.Writer) error {
	if err := sl.WriteUint32(w, uint32(len(m.paths))); err != nil {
		return err
	}
	for _, p := range m.paths {
		if err := p.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadMultiPath decodes a multi-path written by Write, re-validating
// connectivity the same way Builder.AddPath does. It does not require a
// state-anchor path to be present (equivalent to Build(true)); callers
// that need the anchor invariant should check HasAnchor() themselves.
func ReadMultiPath(r io.Reader) (*MultiPath, error) {
	count, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "multipath: empty path list")
	}
	seed, err := Read(r)
	if err != nil {
		return nil, err
	}
	b, err := NewBuilder(seed)
	if err != nil {
		return nil, err
	}
	for i := uint32(1); i < count; i++ {
		p, err := Read(r)
		if err != nil {
			return nil, err
		}
		if _, err := b.AddPath(p); err != nil {
			return nil, err
		}
	}
	return b.Build(true)
}
