package nugget

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/notary"
	"github.com/crums-io/skipledger.go/path"
	"github.com/crums-io/skipledger.go/row"
	"github.com/crums-io/skipledger.go/skiprow"
	"github.com/crums-io/skipledger.go/srcpack"
)

// Nugget is the per-ledger proof package of spec §4.9: (LedgerId,
// MultiPath, optional SourcePack, NotaryPacks, ForeignRefs).
type Nugget struct {
	Id          LedgerId
	mpb         *path.Builder
	mp          *path.MultiPath
	rows        []*row.SourceRow // ascending by row number, built into a SourcePack lazily
	rowNo       map[uint64]bool
	notaryPacks map[uint64]*notary.NotaryPack // keyed by timechain id
	refs        []Reference
	scheme      row.SaltScheme
	schemeSet   bool
}

// New seeds a nugget with the ledger's state path, as its identity's
// anchor (spec §4.9 "new(id, seedPath)").
func New(id LedgerId, seedPath *path.Path) (*Nugget, error) {
	b, err := path.NewBuilder(seedPath)
	if err != nil {
		return nil, err
	}
	return &Nugget{
		Id:          id,
		mpb:         b,
		rowNo:       make(map[uint64]bool),
		notaryPacks: make(map[uint64]*notary.NotaryPack),
	}, nil
}

// SetSaltScheme fixes the salt scheme every subsequent addSourceRow must
// match. May only be called once, before any source row is added (spec
// §4.9 "setSaltScheme(scheme) -- once, before addSourceRow").
func (n *Nugget) SetSaltScheme(scheme row.SaltScheme) error {
	if n.schemeSet {
		return sl.Errorf(sl.ErrSchemaMismatch, "nugget: salt scheme already set")
	}
	if len(n.rows) > 0 {
		return sl.Errorf(sl.ErrSchemaMismatch, "nugget: salt scheme must be set before any source row is added")
	}
	n.scheme = scheme
	n.schemeSet = true
	return nil
}

// AddPath merges p into the nugget's MultiPath, returning the highest
// connecting row number. Fails with sl.ErrIslandRejected if p does not
// connect to the accumulated spine.
func (n *Nugget) AddPath(p *path.Path) (skiprow.RowNo, error) {
	if n.mp != nil {
		return 0, sl.Errorf(sl.ErrUnsupported, "nugget: cannot add a path after Build")
	}
	return n.mpb.AddPath(p)
}

// AddSourceRow validates row.Hash() against the multi-path's recorded
// input-hash for that row number, then inserts it. Returns true on
// insertion, false if row.RowNo() is already present (spec §4.9
// "addSourceRow").
func (n *Nugget) AddSourceRow(r *row.SourceRow) (bool, error) {
	if !n.schemeSet {
		return false, sl.Errorf(sl.ErrSchemaMismatch, "nugget: salt scheme not set")
	}
	if !r.MatchesScheme(n.scheme) {
		return false, sl.Errorf(sl.ErrSchemaMismatch, "nugget: row %d does not match the declared salt scheme", r.RowNo())
	}
	expect, ok := n.mpb.InputHashHint(skiprow.RowNo(r.RowNo()))
	if !ok {
		return false, sl.Errorf(sl.ErrBadRowNumber, "nugget: row %d is not a full row of the multi-path", r.RowNo())
	}
	if r.Hash() != expect {
		return false, sl.Errorf(sl.ErrHashConflict, "nugget: row %d hash disagrees with multi-path input-hash", r.RowNo())
	}
	if n.rowNo[r.RowNo()] {
		return false, nil
	}
	n.rows = append(n.rows, r)
	n.rowNo[r.RowNo()] = true
	return true, nil
}

// AddNotarizedRow attaches a notarized row under timechain tcId, validating
// its hash against the multi-path and deduping by row number (spec §4.9
// "addNotarizedRow").
func (n *Nugget) AddNotarizedRow(tcId uint64, crum notary.Crum, nr notary.NotarizedRow) (bool, error) {
	expect, ok := n.mpb.RowHashHint(nr.RowNo)
	if !ok {
		return false, sl.Errorf(sl.ErrBadRowNumber, "nugget: row %d not covered by multi-path", nr.RowNo)
	}
	if crum.RowHash != expect {
		return false, sl.Errorf(sl.ErrHashConflict, "nugget: crum rowHash disagrees with multi-path for row %d", nr.RowNo)
	}
	nr.Crum = crum
	pack, ok := n.notaryPacks[tcId]
	if !ok {
		pack = &notary.NotaryPack{TimechainId: tcId}
		n.notaryPacks[tcId] = pack
	}
	return pack.AddRow(nr), nil
}

// AddForeignRef attaches a cross-ledger reference. Only local validation is
// performed (the local row's existence in the multi-path); truth of the
// foreign side is checked at Bindle.Build (spec §4.9 "addForeignRef").
func (n *Nugget) AddForeignRef(ref Reference) (bool, error) {
	if _, ok := n.mpb.RowHashHint(ref.LocalNo); !ok {
		return false, sl.Errorf(sl.ErrBadRowNumber, "nugget: local row %d not covered by multi-path", ref.LocalNo)
	}
	for _, existing := range n.refs {
		if existing == ref {
			return false, nil
		}
	}
	n.refs = append(n.refs, ref)
	return true, nil
}

// Build freezes the nugget's MultiPath. partial is forwarded to
// path.Builder.Build (waives the state-anchor requirement).
func (n *Nugget) Build(partial bool) (*path.MultiPath, error) {
	mp, err := n.mpb.Build(partial)
	if err != nil {
		return nil, err
	}
	n.mp = mp
	return mp, nil
}

// MultiPath returns the nugget's built multi-path, if Build has run.
func (n *Nugget) MultiPath() *path.MultiPath { return n.mp }

// SourcePack materializes the nugget's accumulated source rows into a
// SourcePack, or nil if none were added.
func (n *Nugget) SourcePack() (*srcpack.SourcePack, error) {
	if len(n.rows) == 0 {
		return nil, nil
	}
	return srcpack.New(n.scheme, n.rows)
}

// NotaryPacks returns the nugget's notary packs, keyed by timechain id, in
// no particular order.
func (n *Nugget) NotaryPacks() []*notary.NotaryPack {
	out := make([]*notary.NotaryPack, 0, len(n.notaryPacks))
	for _, p := range n.notaryPacks {
		out = append(out, p)
	}
	return out
}

// References returns the nugget's declared foreign references.
func (n *Nugget) References() []Reference {
	return append([]Reference(nil), n.refs...)
}

// Write serializes the nugget per spec §6: (ledgerId, multiPathSerial,
// optionalSourcePack, notaryPackCount+notaryPacks, refPackCount+refPacks).
func (n *Nugget) Write(w io.Writer) error {
	if n.mp == nil {
		return sl.Errorf(sl.ErrUnsupported, "nugget: Write requires Build to have run")
	}
	if err := sl.WriteUint32(w, n.Id.Id); err != nil {
		return err
	}
	if err := sl.WriteByte(w, byte(n.Id.Type)); err != nil {
		return err
	}
	if err := sl.WriteBytes32(w, []byte(n.Id.Alias)); err != nil {
		return err
	}
	if err := n.mp.Write(w); err != nil {
		return err
	}
	pack, err := n.SourcePack()
	if err != nil {
		return err
	}
	if pack == nil {
		if err := sl.WriteByte(w, 0); err != nil {
			return err
		}
	} else {
		if err := sl.WriteByte(w, 1); err != nil {
			return err
		}
		if err := pack.Write(w); err != nil {
			return err
		}
	}
	packs := n.NotaryPacks()
	if err := sl.WriteUint32(w, uint32(len(packs))); err != nil {
		return err
	}
	for _, p := range packs {
		if err := p.Write(w); err != nil {
			return err
		}
	}
	if err := sl.WriteUint32(w, uint32(len(n.refs))); err != nil {
		return err
	}
	for _, ref := range n.refs {
		if err := ref.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes a nugget written by Write.
func Read(r io.Reader) (*Nugget, error) {
	id32, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	typByte, err := sl.ReadByte(r)
	if err != nil {
		return nil, err
	}
	aliasBytes, err := sl.ReadBytes32(r)
	if err != nil {
		return nil, err
	}
	mp, err := path.ReadMultiPath(r)
	if err != nil {
		return nil, err
	}
	hasPack, err := sl.ReadByte(r)
	if err != nil {
		return nil, err
	}
	var pack *srcpack.SourcePack
	if hasPack == 1 {
		pack, err = srcpack.Read(r)
		if err != nil {
			return nil, err
		}
	}
	npCount, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	notaryPacks := make(map[uint64]*notary.NotaryPack, npCount)
	for i := uint32(0); i < npCount; i++ {
		p, err := notary.ReadNotaryPack(r)
		if err != nil {
			return nil, err
		}
		notaryPacks[p.TimechainId] = p
	}
	refCount, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	refs := make([]Reference, refCount)
	for i := range refs {
		ref, err := ReadReference(r)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}

	n := &Nugget{
		Id:          LedgerId{Id: id32, Type: LedgerType(typByte), Alias: string(aliasBytes)},
		mp:          mp,
		rowNo:       make(map[uint64]bool),
		notaryPacks: notaryPacks,
		refs:        refs,
	}
	if pack != nil {
		n.scheme = pack.Scheme
		n.schemeSet = true
		n.rows = pack.Rows
		for _, row := range pack.Rows {
			n.rowNo[row.RowNo()] = true
		}
	}
	return n, nil
}
