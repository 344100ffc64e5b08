// Package notary implements the notarization binding (spec §4.8, "C9"):
// Crum/CargoProof (a Merkle inclusion proof that a row-hash was recorded at
// a given UTC time), NotarizedRow/NotaryPack (attaching such a proof to a
// ledger row), and BlockProof (the timechain's own skip-ledger of block
// root-hashes, used to verify a crumtrail's root actually landed in the
// chain).
package notary

import (
	"encoding/binary"
	"io"

	sl "github.com/crums-io/skipledger.go"
)

// Crum is the (rowHash, utcMillis) pair a timechain block commits to.
type Crum struct {
	RowHash   sl.Hash
	UtcMillis int64
}

// SerialForm is the exact byte layout CargoProof's leaf hash is taken over:
// rowHash ‖ utcMillis (big-endian), per spec §4.8.
func (c Crum) SerialForm() []byte {
	buf := make([]byte, sl.HashSize+8)
	copy(buf, c.RowHash.Bytes())
	binary.BigEndian.PutUint64(buf[sl.HashSize:], uint64(c.UtcMillis))
	return buf
}

// LeafHash is the Merkle leaf this crum is committed under.
func (c Crum) LeafHash() sl.Hash {
	return sl.Sum(c.SerialForm())
}

func (c Crum) Write(w io.Writer) error {
	if err := sl.WriteHash(w, c.RowHash); err != nil {
		return err
	}
	return sl.WriteUint64(w, uint64(c.UtcMillis))
}

func ReadCrum(r io.Reader) (Crum, error) {
	h, err := sl.ReadHash(r)
	if err != nil {
		return Crum{}, err
	}
	u, err := sl.ReadUint64(r)
	if err != nil {
		return Crum{}, err
	}
	return Crum{RowHash: h, UtcMillis: int64(u)}, nil
}
