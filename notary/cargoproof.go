package notary

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
)

// CargoProof is a Merkle inclusion proof of a Crum's leaf hash at index Idx
// in a tree of LeafCount leaves (spec §4.8). Combine follows the
// "duplicate-the-odd-node" convention: at each level, an unpaired node is
// combined with itself rather than promoted unchanged, so that RootHash is
// uniquely determined by (leafHash, idx, leafCount) regardless of tree
// shape, matching the crumtrail structure referenced by the spec (a fixed,
// per-block Merkle tree over a block's cargo of crums).
type CargoProof struct {
	Idx       uint64
	LeafCount uint64
	// Siblings holds one hash per tree level, bottom to top, each the
	// sibling of the node on the path from the leaf to the root.
	Siblings []sl.Hash
}

// NewCargoProof builds a proof for leaf at idx out of the full ordered set
// of leaf hashes (test/build-time helper; a real timechain service would
// derive crumtrails block-side instead of recomputing whole trees).
func NewCargoProof(leaves []sl.Hash, idx uint64) *CargoProof {
	n := uint64(len(leaves))
	level := append([]sl.Hash(nil), leaves...)
	var siblings []sl.Hash
	i := idx
	for len(level) > 1 {
		if i%2 == 0 {
			if int(i+1) < len(level) {
				siblings = append(siblings, level[i+1])
			} else {
				siblings = append(siblings, level[i])
			}
		} else {
			siblings = append(siblings, level[i-1])
		}
		level = nextMerkleLevel(level)
		i /= 2
	}
	return &CargoProof{Idx: idx, LeafCount: n, Siblings: siblings}
}

func nextMerkleLevel(level []sl.Hash) []sl.Hash {
	next := make([]sl.Hash, (len(level)+1)/2)
	for i := range next {
		left := level[2*i]
		var right sl.Hash
		if 2*i+1 < len(level) {
			right = level[2*i+1]
		} else {
			right = left
		}
		next[i] = sl.SumHashes(left, right)
	}
	return next
}

// RootHash recomputes the Merkle root implied by leaf combined with the
// proof's sibling chain.
func (p *CargoProof) RootHash(leaf sl.Hash) sl.Hash {
	h := leaf
	i := p.Idx
	for _, sib := range p.Siblings {
		if i%2 == 0 {
			h = sl.SumHashes(h, sib)
		} else {
			h = sl.SumHashes(sib, h)
		}
		i /= 2
	}
	return h
}

// Verify reports whether crum's leaf hash, combined through this proof,
// reproduces root.
func (p *CargoProof) Verify(crum Crum, root sl.Hash) bool {
	return p.RootHash(crum.LeafHash()) == root
}

func (p *CargoProof) Write(w io.Writer) error {
	if err := sl.WriteUint64(w, p.Idx); err != nil {
		return err
	}
	if err := sl.WriteUint64(w, p.LeafCount); err != nil {
		return err
	}
	if err := sl.WriteUint32(w, uint32(len(p.Siblings))); err != nil {
		return err
	}
	for _, h := range p.Siblings {
		if err := sl.WriteHash(w, h); err != nil {
			return err
		}
	}
	return nil
}

func ReadCargoProof(r io.Reader) (*CargoProof, error) {
	idx, err := sl.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	leafCount, err := sl.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	n, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	siblings := make([]sl.Hash, n)
	for i := range siblings {
		h, err := sl.ReadHash(r)
		if err != nil {
			return nil, err
		}
		siblings[i] = h
	}
	return &CargoProof{Idx: idx, LeafCount: leafCount, Siblings: siblings}, nil
}
