// Package bindle implements the multi-ledger package (spec §4.9 "Bindle",
// "C11"): a set of nuggets keyed by LedgerId, with declared timechains and
// cross-ledger reference validation, serialized to the ".bndl" format.
package bindle

import (
	"io"
	"sort"

	"github.com/google/uuid"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/notary"
	"github.com/crums-io/skipledger.go/nugget"
	"github.com/crums-io/skipledger.go/path"
)

// magic + version of the ".bndl" wire format (spec §6).
var bindleMagic = [4]byte{'B', 'N', 'D', 'L'}

const bindleVersion uint16 = 1

// Bindle is a mapping LedgerId -> Nugget, plus the declared block-proofs
// for any Timechain-typed ledgers (spec §3 "Bindle").
type Bindle struct {
	nuggets    map[uint32]*nugget.Nugget
	blockProof map[uint32]*notary.BlockProof
	byAlias    map[string]uint32 // (type,alias) -> id
	nextId     uint32
}

// New returns an empty bindle.
func New() *Bindle {
	return &Bindle{
		nuggets:    make(map[uint32]*nugget.Nugget),
		blockProof: make(map[uint32]*notary.BlockProof),
		byAlias:    make(map[string]uint32),
		nextId:     1,
	}
}

func (bd *Bindle) reserveId(typ nugget.LedgerType, alias string) (nugget.LedgerId, error) {
	if alias == "" {
		alias = uuid.NewString()
	}
	id := nugget.LedgerId{Id: bd.nextId, Type: typ, Alias: alias}
	if _, exists := bd.byAlias[id.AliasKey()]; exists {
		return nugget.LedgerId{}, sl.Errorf(sl.ErrSchemaMismatch, "bindle: alias %q already declared for type %s", alias, typ)
	}
	bd.nextId++
	bd.byAlias[id.AliasKey()] = id.Id
	return id, nil
}

// DeclareLog creates a LOG-type nugget seeded with statePath, returning its
// LedgerId (spec §4.9 "declareLog(alias, statePath, uri, description) ->
// LedgerId"). uri/description are accepted for interface fidelity with the
// spec's signature but are not interpreted by the core (out of scope per
// spec §1's "explicitly out of scope" CLI/reporting concerns).
func (bd *Bindle) DeclareLog(alias string, statePath *path.Path, uri, description string) (nugget.LedgerId, error) {
	id, err := bd.reserveId(nugget.Log, alias)
	if err != nil {
		return nugget.LedgerId{}, err
	}
	n, err := nugget.New(id, statePath)
	if err != nil {
		return nugget.LedgerId{}, err
	}
	bd.nuggets[id.Id] = n
	return id, nil
}

// DeclareTimechain creates a TIMECHAIN-type nugget carrying blockProof,
// returning its LedgerId (spec §4.9 "declareTimechain").
func (bd *Bindle) DeclareTimechain(alias string, blockProof *notary.BlockProof, uri, description string) (nugget.LedgerId, error) {
	id, err := bd.reserveId(nugget.Timechain, alias)
	if err != nil {
		return nugget.LedgerId{}, err
	}
	n, err := nugget.New(id, blockProof.Path)
	if err != nil {
		return nugget.LedgerId{}, err
	}
	bd.nuggets[id.Id] = n
	bd.blockProof[id.Id] = blockProof
	return id, nil
}

// Nugget returns the nugget declared under id, if any.
func (bd *Bindle) Nugget(id uint32) (*nugget.Nugget, bool) {
	n, ok := bd.nuggets[id]
	return n, ok
}

// BlockProof returns the block-proof attached to a declared timechain.
func (bd *Bindle) BlockProof(id uint32) (*notary.BlockProof, bool) {
	bp, ok := bd.blockProof[id]
	return bp, ok
}

// AddReference adds a cross-ledger reference from one declared ledger to
// another. Accepts only if both ledgers are declared and from has the
// local row; duplicates return false (spec §4.9 "addReference").
func (bd *Bindle) AddReference(from, to uint32, ref nugget.Reference) (bool, error) {
	fromNugget, ok := bd.nuggets[from]
	if !ok {
		return false, sl.Errorf(sl.ErrBadRowNumber, "bindle: ledger %d not declared", from)
	}
	if _, ok := bd.nuggets[to]; !ok {
		return false, sl.Errorf(sl.ErrBadRowNumber, "bindle: ledger %d not declared", to)
	}
	ref.ForeignId = to
	return fromNugget.AddForeignRef(ref)
}

// Build validates every cross-reference in every nugget resolves to a row
// present in its foreign ledger's multi-path (a Reference carries no hash,
// so no hash comparison is made for references), and every notarized
// row's crumtrail hashes to its multi-path's recorded row-hash and lands
// in its declared timechain's block-proof at the block its UTC implies
// (spec §3 "Bindle" invariants). It does not mutate the bindle; it is safe
// to call repeatedly, e.g. after adding more references (spec §5
// "Long-running builds ... are re-entrant").
func (bd *Bindle) Build() error {
	for _, n := range bd.nuggets {
		mp := n.MultiPath()
		if mp == nil {
			return sl.Errorf(sl.ErrUnsupported, "bindle: nugget %d has not been Build()'t", n.Id.Id)
		}
		for _, ref := range n.References() {
			foreign, ok := bd.nuggets[ref.ForeignId]
			if !ok {
				return sl.Errorf(sl.ErrHashConflict, "bindle: reference from ledger %d to undeclared ledger %d", n.Id.Id, ref.ForeignId)
			}
			foreignMp := foreign.MultiPath()
			if foreignMp == nil {
				return sl.Errorf(sl.ErrUnsupported, "bindle: foreign nugget %d has not been Build()'t", ref.ForeignId)
			}
			if _, ok := foreignMp.RowHash(ref.ForeignNo); !ok {
				return sl.Errorf(sl.ErrHashConflict, "bindle: reference's foreign row %d not present in ledger %d", ref.ForeignNo, ref.ForeignId)
			}
		}
		for _, pack := range n.NotaryPacks() {
			tcId := uint32(pack.TimechainId)
			bp, ok := bd.blockProof[tcId]
			if !ok || uint64(tcId) != pack.TimechainId {
				return sl.Errorf(sl.ErrHashConflict, "bindle: ledger %d notarized against undeclared timechain %d", n.Id.Id, pack.TimechainId)
			}
			for _, nr := range pack.Rows {
				rowHash, ok := mp.RowHash(nr.RowNo)
				if !ok || rowHash != nr.Crum.RowHash {
					return sl.Errorf(sl.ErrHashConflict, "bindle: ledger %d row %d crumtrail disagrees with multi-path row-hash", n.Id.Id, nr.RowNo)
				}
				if err := bp.VerifyRow(nr, nr.Crum); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Write serializes the bindle per spec §6: magic + version + id table +
// each nugget concatenated in id order.
func (bd *Bindle) Write(w io.Writer) error {
	if _, err := w.Write(bindleMagic[:]); err != nil {
		return err
	}
	if err := sl.WriteUint16(w, bindleVersion); err != nil {
		return err
	}
	ids := make([]uint32, 0, len(bd.nuggets))
	for id := range bd.nuggets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := sl.WriteUint32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := sl.WriteUint32(w, id); err != nil {
			return err
		}
		_, hasBP := bd.blockProof[id]
		if err := sl.WriteByte(w, boolByte(hasBP)); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := bd.nuggets[id].Write(w); err != nil {
			return err
		}
		if bp, ok := bd.blockProof[id]; ok {
			if err := bp.Write(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read decodes a bindle written by Write.
func Read(r io.Reader) (*Bindle, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != bindleMagic {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "bindle: bad magic %q", magic)
	}
	version, err := sl.ReadUint16(r)
	if err != nil {
		return nil, err
	}
	if version != bindleVersion {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "bindle: unsupported version %d", version)
	}
	count, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, count)
	hasBP := make([]bool, count)
	for i := range ids {
		id, err := sl.ReadUint32(r)
		if err != nil {
			return nil, err
		}
		flag, err := sl.ReadByte(r)
		if err != nil {
			return nil, err
		}
		ids[i] = id
		hasBP[i] = flag == 1
	}

	bd := New()
	bd.nuggets = make(map[uint32]*nugget.Nugget, count)
	bd.blockProof = make(map[uint32]*notary.BlockProof)
	var maxId uint32
	for i, id := range ids {
		n, err := nugget.Read(r)
		if err != nil {
			return nil, err
		}
		bd.nuggets[id] = n
		bd.byAlias[n.Id.AliasKey()] = id
		if id > maxId {
			maxId = id
		}
		if hasBP[i] {
			bp, err := notary.ReadBlockProof(r)
			if err != nil {
				return nil, err
			}
			bd.blockProof[id] = bp
		}
	}
	bd.nextId = maxId + 1
	return bd, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
