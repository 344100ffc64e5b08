package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// memTable is a minimal in-memory SkipTable used only by this package's own
// tests -- the real adapters live in kvtable.
type memTable struct {
	mu   sync.Mutex
	rows [][]byte // index 0 unused; rows[rn] is row rn's record
}

func (m *memTable) Size() (skiprow.RowNo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return skiprow.RowNo(len(m.rows) - 1), nil
}

func (m *memTable) ReadRow(rn skiprow.RowNo) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rn < 1 || int(rn) >= len(m.rows) {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "memTable: rn %d out of range", rn)
	}
	return m.rows[rn], nil
}

func (m *memTable) AddRows(data []byte, expectedIndex skiprow.RowNo) (skiprow.RowNo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := skiprow.RowNo(len(m.rows) - 1)
	if expectedIndex != cur {
		return 0, sl.Errorf(sl.ErrConcurrentModification, "memTable: expected %d, at %d", expectedIndex, cur)
	}
	off := 0
	rn := cur + 1
	for off < len(data) {
		width := (1 + skiprow.SkipCount(rn)) * sl.HashSize
		m.rows = append(m.rows, append([]byte(nil), data[off:off+width]...))
		off += width
		rn++
	}
	return skiprow.RowNo(len(m.rows) - 1), nil
}

func (m *memTable) TrimSize(newSize skiprow.RowNo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = m.rows[:newSize+1]
	return nil
}

func newMemTable() *memTable { return &memTable{rows: make([][]byte, 1)} }

func TestAppendAndRowHash(t *testing.T) {
	l, err := New(newMemTable())
	require.NoError(t, err)

	h1 := sl.Sum([]byte("row1"))
	h2 := sl.Sum([]byte("row2"))
	h3 := sl.Sum([]byte("row3"))
	h4 := sl.Sum([]byte("row4"))

	size, err := l.AppendRows([]sl.Hash{h1, h2, h3, h4})
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(4), size)

	rh1, err := l.RowHash(1)
	require.NoError(t, err)
	require.Equal(t, sl.SumHashes(h1, sl.Sentinel), rh1)

	rh2, err := l.RowHash(2)
	require.NoError(t, err)
	require.Equal(t, sl.SumHashes(h2, rh1, sl.Sentinel), rh2)

	rh4, err := l.RowHash(4)
	require.NoError(t, err)
	rh0 := sl.Sentinel
	rh3, err := l.RowHash(3)
	require.NoError(t, err)
	require.Equal(t, sl.SumHashes(h3, rh2), rh3)
	require.Equal(t, sl.SumHashes(h4, rh3, rh2, rh0), rh4)
}

func TestAppendIncrementallyMatchesBatch(t *testing.T) {
	hashes := make([]sl.Hash, 10)
	for i := range hashes {
		hashes[i] = sl.Sum([]byte{byte(i)})
	}

	batch, err := New(newMemTable())
	require.NoError(t, err)
	_, err = batch.AppendRows(hashes)
	require.NoError(t, err)

	incr, err := New(newMemTable())
	require.NoError(t, err)
	for _, h := range hashes {
		_, err := incr.AppendRows([]sl.Hash{h})
		require.NoError(t, err)
	}

	for rn := skiprow.RowNo(1); rn <= 10; rn++ {
		a, err := batch.RowHash(rn)
		require.NoError(t, err)
		b, err := incr.RowHash(rn)
		require.NoError(t, err)
		require.Equal(t, a, b, "rn=%d", rn)
	}
}

func TestStatePathAndGetPath(t *testing.T) {
	l, err := New(newMemTable())
	require.NoError(t, err)
	hashes := make([]sl.Hash, 16)
	for i := range hashes {
		hashes[i] = sl.Sum([]byte{byte(i + 1)})
	}
	_, err = l.AppendRows(hashes)
	require.NoError(t, err)

	sp, err := l.StatePath()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(1), sp.Lo())
	require.Equal(t, skiprow.RowNo(16), sp.Hi())

	// The state path holds rows 1, 2, 4, 8 and 16 in full; it answers those
	// rows and the rows they point to directly, not every row up to 16.
	for rn := range sp.Bag().Coverage() {
		if rn == 0 {
			continue
		}
		expect, err := l.RowHash(rn)
		require.NoError(t, err)
		got, ok := sp.RowHash(rn)
		require.True(t, ok)
		require.Equal(t, expect, got)
	}

	p, err := l.GetPath(3, 11)
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(3), p.Lo())
	require.Equal(t, skiprow.RowNo(11), p.Hi())
}

func TestTrimSize(t *testing.T) {
	l, err := New(newMemTable())
	require.NoError(t, err)
	hashes := []sl.Hash{sl.Sum([]byte("a")), sl.Sum([]byte("b")), sl.Sum([]byte("c"))}
	_, err = l.AppendRows(hashes)
	require.NoError(t, err)

	require.NoError(t, l.TrimSize(1))
	size, err := l.Size()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(1), size)
}

func TestTxTableCommit(t *testing.T) {
	under := newMemTable()
	tx := NewTxTable(under)
	h1 := sl.Sum([]byte("x"))
	newSize, err := tx.AddRows(encodeRowRecord(h1, []sl.Hash{sl.Sentinel}), 0)
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(1), newSize)

	underSize, err := under.Size()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(0), underSize, "pending rows must not be visible in the underlying table yet")

	committed, err := tx.Commit()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(1), committed)

	underSize, err = under.Size()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(1), underSize)
}

func TestTxTableRollback(t *testing.T) {
	under := newMemTable()
	tx := NewTxTable(under)
	h1 := sl.Sum([]byte("x"))
	_, err := tx.AddRows(encodeRowRecord(h1, []sl.Hash{sl.Sentinel}), 0)
	require.NoError(t, err)

	tx.Rollback()
	size, err := tx.Size()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(0), size)
}
