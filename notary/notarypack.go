package notary

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// NotarizedRow binds a ledger row number to its Crum and CargoProof (spec
// §4.8). The Crum is retained (not just checked and discarded) so that a
// Bindle, including one reloaded from its serialized form, can still
// re-derive the block number and re-verify the crumtrail's root against
// its declared timechain's BlockProof (spec §3 "Bindle" invariants).
type NotarizedRow struct {
	RowNo skiprow.RowNo
	Crum  Crum
	Proof *CargoProof
}

// NotaryPack is a set of notarized rows all attested by the same
// timechain.
type NotaryPack struct {
	TimechainId uint64
	Rows        []NotarizedRow
}

// HashMatches reports whether this notarized row's proof, combined with its
// crum, produces a root equal to root -- the check performed when attaching
// a notarized row to a Nugget and again at Bindle verification (spec
// §4.8/§4.9).
func (n NotarizedRow) HashMatches(crum Crum, root sl.Hash) bool {
	return n.Proof.Verify(crum, root)
}

func (n NotarizedRow) Write(w io.Writer) error {
	if err := sl.WriteUint64(w, uint64(n.RowNo)); err != nil {
		return err
	}
	if err := n.Crum.Write(w); err != nil {
		return err
	}
	return n.Proof.Write(w)
}

func ReadNotarizedRow(r io.Reader) (NotarizedRow, error) {
	rn, err := sl.ReadUint64(r)
	if err != nil {
		return NotarizedRow{}, err
	}
	crum, err := ReadCrum(r)
	if err != nil {
		return NotarizedRow{}, err
	}
	proof, err := ReadCargoProof(r)
	if err != nil {
		return NotarizedRow{}, err
	}
	return NotarizedRow{RowNo: skiprow.RowNo(rn), Crum: crum, Proof: proof}, nil
}

func (p *NotaryPack) Write(w io.Writer) error {
	if err := sl.WriteUint64(w, p.TimechainId); err != nil {
		return err
	}
	if err := sl.WriteUint32(w, uint32(len(p.Rows))); err != nil {
		return err
	}
	for _, row := range p.Rows {
		if err := row.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func ReadNotaryPack(r io.Reader) (*NotaryPack, error) {
	tcId, err := sl.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	n, err := sl.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	rows := make([]NotarizedRow, n)
	for i := range rows {
		row, err := ReadNotarizedRow(r)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return &NotaryPack{TimechainId: tcId, Rows: rows}, nil
}

// AddRow appends notarizedRow, deduping by row number (spec §4.9
// "addNotarizedRow ... dedups"). Returns false if rn was already present.
func (p *NotaryPack) AddRow(nr NotarizedRow) bool {
	for _, existing := range p.Rows {
		if existing.RowNo == nr.RowNo {
			return false
		}
	}
	p.Rows = append(p.Rows, nr)
	return true
}
