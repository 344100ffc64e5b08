package row

import (
	"encoding/binary"
	"sync"

	sl "github.com/crums-io/skipledger.go"
)

// TableSalt derives per-row and per-cell salts from a single secret seed
// (spec §4.4): rowSalt(rn) = SHA-256(seed ‖ be(rn)); cellSalt(rowSalt, col)
// = SHA-256(rowSalt ‖ be(col)). These two derivations are the only salt
// derivations the core ever performs.
type TableSalt struct {
	seed [32]byte
}

// NewTableSalt copies seed (which must be exactly 32 bytes) into a new
// TableSalt.
func NewTableSalt(seed []byte) (*TableSalt, error) {
	if len(seed) != 32 {
		return nil, sl.Errorf(sl.ErrUnsupported, "tablesalt: seed must be 32 bytes, got %d", len(seed))
	}
	t := &TableSalt{}
	copy(t.seed[:], seed)
	return t, nil
}

// RowSalt derives the salt for row rn.
func (t *TableSalt) RowSalt(rn uint64) sl.Hash {
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], rn)
	return sl.Sum(t.seed[:], be[:])
}

// CellSalt derives the cell-salt for column col given its row's salt.
func (t *TableSalt) CellSalt(rowSalt sl.Hash, col int) sl.Hash {
	return DeriveCellSalt(rowSalt, col)
}

// DeriveCellSalt computes cellSalt(rowSalt, col) = SHA-256(rowSalt ‖
// be(col)), the one formula RowSaltedReveal cells use directly without
// needing a live TableSalt handle.
func DeriveCellSalt(rowSalt sl.Hash, col int) sl.Hash {
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], uint64(col))
	return sl.Sum(rowSalt[:], be[:])
}

// zero overwrites the seed with zeros. Called once, by Release.
func (t *TableSalt) zero() {
	for i := range t.seed {
		t.seed[i] = 0
	}
}

// Handle is a scoped, single-owner acquisition of a TableSalt (spec §5
// "Shared resource policy"): the seed is held only for the handle's
// lifetime and is zeroed the moment it is released. Only one live handle
// per TableSalt may exist at a time.
type Handle struct {
	mu      *sync.Mutex
	salt    *TableSalt
	release func()
}

// Acquire returns a live Handle over salt. It does not wait if another
// handle already holds it: it fails fast with sl.ErrConcurrentModification
// while the salt is checked out.
func (t *TableSalt) Acquire() (*Handle, error) {
	if !tableSaltLocks.tryLock(t) {
		return nil, sl.Errorf(sl.ErrConcurrentModification, "tablesalt: already checked out by another owner")
	}
	return &Handle{salt: t, release: func() { tableSaltLocks.unlock(t) }}, nil
}

// RowSalt derives the salt for row rn through this handle.
func (h *Handle) RowSalt(rn uint64) sl.Hash { return h.salt.RowSalt(rn) }

// CellSalt derives the cell-salt for column col given a row salt.
func (h *Handle) CellSalt(rowSalt sl.Hash, col int) sl.Hash { return h.salt.CellSalt(rowSalt, col) }

// Release zeroes the underlying seed and frees the handle for reacquisition.
// Calling Release more than once is a no-op.
func (h *Handle) Release() {
	if h.salt == nil {
		return
	}
	h.salt.zero()
	h.release()
	h.salt = nil
}

// checkoutRegistry tracks which *TableSalt values currently have a live
// handle, enforcing the single-owner invariant across goroutines.
type checkoutRegistry struct {
	mu  sync.Mutex
	out map[*TableSalt]bool
}

var tableSaltLocks = &checkoutRegistry{out: make(map[*TableSalt]bool)}

func (r *checkoutRegistry) tryLock(t *TableSalt) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out[t] {
		return false
	}
	r.out[t] = true
	return true
}

func (r *checkoutRegistry) unlock(t *TableSalt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.out, t)
}
