package notary

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/path"
	"github.com/crums-io/skipledger.go/skiprow"
)

// ChainParams fixes a timechain's time-to-block mapping (spec §4.8): a
// fixed-duration bin starting at InceptionUtc.
type ChainParams struct {
	BinDuration  int64 // milliseconds per block
	InceptionUtc int64 // UTC millis of block 1's bin start
}

// BlockNo derives the block number containing utcMillis.
func (cp ChainParams) BlockNo(utcMillis int64) skiprow.RowNo {
	return skiprow.RowNo((utcMillis-cp.InceptionUtc)/cp.BinDuration) + 1
}

// BlockProof is a timechain's own skip-ledger -- a path over block
// root-hashes -- together with the time-binning parameters needed to map a
// UTC timestamp to a block number (spec §4.8 "a skip-ledger over block
// root-hashes, plus ChainParams").
type BlockProof struct {
	Params ChainParams
	Path   *path.Path
}

// NewBlockProof pairs a block-hash path with its chain parameters.
func NewBlockProof(params ChainParams, p *path.Path) *BlockProof {
	return &BlockProof{Params: params, Path: p}
}

// VerifyRow checks that notarizedRow's CargoProof, run against crum,
// produces a root matching the block-proof's recorded input-hash for the
// block crum's UTC falls in (spec §4.8 "look up the block's input-hash in
// the block-proof's path; it must equal cargoProof.rootHash"). Returns
// sl.ErrHashConflict if the block is outside the path's range or the roots
// disagree.
func (bp *BlockProof) VerifyRow(nr NotarizedRow, crum Crum) error {
	blockNo := bp.Params.BlockNo(crum.UtcMillis)
	if blockNo < bp.Path.Lo() || blockNo > bp.Path.Hi() {
		return sl.Errorf(sl.ErrHashConflict, "notary: block %d for utc %d outside block-proof range [%d,%d]", blockNo, crum.UtcMillis, bp.Path.Lo(), bp.Path.Hi())
	}
	blockInputHash, ok := bp.Path.InputHash(blockNo)
	if !ok {
		return sl.Errorf(sl.ErrHashConflict, "notary: block-proof path does not contain block %d", blockNo)
	}
	root := nr.Proof.RootHash(crum.LeafHash())
	if blockInputHash != root {
		return sl.Errorf(sl.ErrHashConflict, "notary: block %d input-hash disagrees with crumtrail root for row %d", blockNo, nr.RowNo)
	}
	return nil
}

// Write serializes the block-proof as its ChainParams followed by its
// block-hash path in ".spath" form.
func (bp *BlockProof) Write(w io.Writer) error {
	if err := sl.WriteUint64(w, uint64(bp.Params.BinDuration)); err != nil {
		return err
	}
	if err := sl.WriteUint64(w, uint64(bp.Params.InceptionUtc)); err != nil {
		return err
	}
	return bp.Path.Write(w)
}

// ReadBlockProof decodes a block-proof written by Write.
func ReadBlockProof(r io.Reader) (*BlockProof, error) {
	binDuration, err := sl.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	inception, err := sl.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	p, err := path.Read(r)
	if err != nil {
		return nil, err
	}
	params := ChainParams{BinDuration: int64(binDuration), InceptionUtc: int64(inception)}
	return &BlockProof{Params: params, Path: p}, nil
}
