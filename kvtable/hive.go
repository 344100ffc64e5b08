package kvtable

import (
	"encoding/binary"
	"sync"

	"github.com/iotaledger/hive.go/core/kvstore"
	"github.com/iotaledger/hive.go/core/kvstore/badger"
	"github.com/iotaledger/hive.go/core/kvstore/mapdb"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// sizeKey is the reserved key under which the table's current row count is
// tracked, grounded on the teacher's HiveKVStoreAdaptor prefix-key
// convention (hiveadaptor.go), which reserves fixed key prefixes distinct
// from the trie-node keys it stores.
var sizeKey = []byte{0xff, 'l', 'e', 'n'}

func rowKey(rn skiprow.RowNo) []byte {
	k := make([]byte, 1+8)
	k[0] = 'r'
	binary.BigEndian.PutUint64(k[1:], uint64(rn))
	return k
}

// Hive is a kvstore.KVStore-backed SkipTable. It is storage-agnostic over
// any of hive.go's KVStore implementations -- mapdb (in-memory) or badger
// (on-disk) -- since both satisfy the same interface (grounded on
// hiveadaptor.go's Get/Has/Set/Delete/Iterate and examples/trie_bench/main.go's
// construction of each backend).
type Hive struct {
	mu    sync.Mutex
	store kvstore.KVStore
	size  skiprow.RowNo
}

// NewHiveMap returns a Hive table backed by an in-memory mapdb.KVStore.
func NewHiveMap() *Hive {
	return newHive(mapdb.NewMapDB())
}

// NewHiveBadger returns a Hive table backed by an on-disk badger database
// rooted at dbDir.
func NewHiveBadger(dbDir string) (*Hive, error) {
	db, err := badger.CreateDB(dbDir)
	if err != nil {
		return nil, sl.Errorf(sl.ErrIoFailure, "kvtable: opening badger db at %s: %v", dbDir, err)
	}
	return newHive(badger.New(db)), nil
}

func newHive(store kvstore.KVStore) *Hive {
	h := &Hive{store: store}
	if raw, err := store.Get(sizeKey); err == nil && len(raw) == 8 {
		h.size = skiprow.RowNo(binary.BigEndian.Uint64(raw))
	}
	return h
}

func (h *Hive) Size() (skiprow.RowNo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size, nil
}

func (h *Hive) ReadRow(rn skiprow.RowNo) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rn < 1 || rn > h.size {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "kvtable.Hive: rn %d out of range [1,%d]", rn, h.size)
	}
	v, err := h.store.Get(rowKey(rn))
	if err != nil {
		return nil, sl.Errorf(sl.ErrIoFailure, "kvtable.Hive: reading row %d: %v", rn, err)
	}
	return append([]byte(nil), v...), nil
}

func (h *Hive) AddRows(data []byte, expectedIndex skiprow.RowNo) (skiprow.RowNo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if expectedIndex != h.size {
		return 0, sl.Errorf(sl.ErrConcurrentModification, "kvtable.Hive: expected index %d, table is at %d", expectedIndex, h.size)
	}
	off := 0
	rn := h.size + 1
	for off < len(data) {
		width := (1 + skiprow.SkipCount(rn)) * sl.HashSize
		if off+width > len(data) {
			return 0, sl.Errorf(sl.ErrBadSourcePack, "kvtable.Hive: malformed row batch at row %d", rn)
		}
		rec := data[off : off+width]
		if err := h.store.Set(rowKey(rn), rec); err != nil {
			return 0, sl.Errorf(sl.ErrIoFailure, "kvtable.Hive: writing row %d: %v", rn, err)
		}
		off += width
		rn++
	}
	h.size = rn - 1
	if err := h.putSize(); err != nil {
		return 0, err
	}
	return h.size, nil
}

func (h *Hive) TrimSize(newSize skiprow.RowNo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if newSize > h.size {
		return sl.Errorf(sl.ErrBadRowNumber, "kvtable.Hive: TrimSize %d exceeds size %d", newSize, h.size)
	}
	for rn := newSize + 1; rn <= h.size; rn++ {
		if err := h.store.Delete(rowKey(rn)); err != nil {
			return sl.Errorf(sl.ErrIoFailure, "kvtable.Hive: deleting row %d: %v", rn, err)
		}
	}
	h.size = newSize
	return h.putSize()
}

func (h *Hive) putSize() error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(h.size))
	if err := h.store.Set(sizeKey, buf); err != nil {
		return sl.Errorf(sl.ErrIoFailure, "kvtable.Hive: persisting size: %v", err)
	}
	return nil
}
