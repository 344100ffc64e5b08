// Package nugget implements the per-ledger proof package (spec §4.9, "C10"):
// a MultiPath, an optional SourcePack, notary packs, and cross-ledger
// references, all keyed under one LedgerId.
package nugget

import "fmt"

// LedgerType distinguishes the two kinds of ledger a Bindle can declare
// (spec §4.9 "Bindle: declareLog ... declareTimechain").
type LedgerType uint8

const (
	Log LedgerType = iota + 1
	Timechain
)

func (t LedgerType) String() string {
	switch t {
	case Log:
		return "LOG"
	case Timechain:
		return "TIMECHAIN"
	default:
		return fmt.Sprintf("LedgerType(%d)", t)
	}
}

// LedgerId identifies one ledger within a Bindle: a small integer id, plus a
// (type, alias) pair that must also be unique within the bindle (spec §4.9
// "Bindle: LedgerIds are unique by integer id and also unique by (type,
// alias) pair").
type LedgerId struct {
	Id    uint32
	Type  LedgerType
	Alias string
}

// AliasKey is the (type, alias) uniqueness key used by Bindle.
func (id LedgerId) AliasKey() string {
	return fmt.Sprintf("%d:%s", id.Type, id.Alias)
}
