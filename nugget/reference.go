package nugget

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// Reference binds a local row number to a foreign ledger's row number (spec
// §4.9 "addForeignRef", §8 scenario 6). Truth of the foreign side is
// checked only at Bindle.Build; a Nugget alone validates only that its own
// local row exists and has the right shape.
type Reference struct {
	LocalNo   skiprow.RowNo
	ForeignId uint32
	ForeignNo skiprow.RowNo
}

func (ref Reference) Write(w io.Writer) error {
	if err := sl.WriteUint64(w, uint64(ref.LocalNo)); err != nil {
		return err
	}
	if err := sl.WriteUint32(w, ref.ForeignId); err != nil {
		return err
	}
	return sl.WriteUint64(w, uint64(ref.ForeignNo))
}

func ReadReference(r io.Reader) (Reference, error) {
	localNo, err := sl.ReadUint64(r)
	if err != nil {
		return Reference{}, err
	}
	foreignId, err := sl.ReadUint32(r)
	if err != nil {
		return Reference{}, err
	}
	foreignNo, err := sl.ReadUint64(r)
	if err != nil {
		return Reference{}, err
	}
	return Reference{LocalNo: skiprow.RowNo(localNo), ForeignId: foreignId, ForeignNo: skiprow.RowNo(foreignNo)}, nil
}
