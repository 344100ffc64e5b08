// Package kvtable provides concrete ledger.SkipTable implementations: an
// in-memory slice-backed store, two hive.go/core/kvstore-backed stores
// (mapdb and badger), and a go.etcd.io/bbolt-backed store. None of these
// add ledger semantics of their own -- they only implement SkipTable's
// four operations against a real backing store.
package kvtable

import (
	"sync"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// Memory is a slice-backed SkipTable, grounded on the teacher's
// trie_go.inMemoryKVStore: a plain map/slice with no persistence, used by
// the tests.
type Memory struct {
	mu   sync.RWMutex
	rows [][]byte // rows[0] unused (sentinel placeholder), rows[rn] holds row rn
}

// NewMemory returns an empty in-memory table.
func NewMemory() *Memory {
	return &Memory{rows: make([][]byte, 1)}
}

func (m *Memory) Size() (skiprow.RowNo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return skiprow.RowNo(len(m.rows) - 1), nil
}

func (m *Memory) ReadRow(rn skiprow.RowNo) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rn < 1 || int(rn) >= len(m.rows) {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "kvtable.Memory: rn %d out of range [1,%d]", rn, len(m.rows)-1)
	}
	return append([]byte(nil), m.rows[rn]...), nil
}

func (m *Memory) AddRows(data []byte, expectedIndex skiprow.RowNo) (skiprow.RowNo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := skiprow.RowNo(len(m.rows) - 1)
	if expectedIndex != cur {
		return 0, sl.Errorf(sl.ErrConcurrentModification, "kvtable.Memory: expected index %d, table is at %d", expectedIndex, cur)
	}
	off := 0
	rn := cur + 1
	for off < len(data) {
		width := (1 + skiprow.SkipCount(rn)) * sl.HashSize
		if off+width > len(data) {
			return 0, sl.Errorf(sl.ErrBadSourcePack, "kvtable.Memory: malformed row batch at row %d", rn)
		}
		m.rows = append(m.rows, append([]byte(nil), data[off:off+width]...))
		off += width
		rn++
	}
	return skiprow.RowNo(len(m.rows) - 1), nil
}

func (m *Memory) TrimSize(newSize skiprow.RowNo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(newSize)+1 > len(m.rows) {
		return sl.Errorf(sl.ErrBadRowNumber, "kvtable.Memory: TrimSize %d exceeds size %d", newSize, len(m.rows)-1)
	}
	m.rows = m.rows[:newSize+1]
	return nil
}
