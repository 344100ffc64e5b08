package ledger

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/iotaledger/hive.go/core/logger"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/frontier"
	"github.com/crums-io/skipledger.go/path"
	"github.com/crums-io/skipledger.go/rowbag"
	"github.com/crums-io/skipledger.go/skiprow"
)

const defaultCacheSize = 4096

// Option configures a SkipLedger (functional-option style, matching the
// teacher's trie256p.Options).
type Option func(*SkipLedger)

// WithCache sets the row-hash LRU cache size (0 disables caching).
func WithCache(size int) Option {
	return func(l *SkipLedger) { l.cacheSize = size }
}

// WithLogger attaches a hive.go logger; appends and fork-relevant events
// are logged at debug/warn level. Absent a logger, SkipLedger is silent.
func WithLogger(log *logger.Logger) Option {
	return func(l *SkipLedger) { l.log = log }
}

// SkipLedger is the engine of record (spec §4.2): it computes row hashes
// over an abstract SkipTable, using an incrementally-carried HashFrontier
// so that appends never re-read more than the table's current frontier.
type SkipLedger struct {
	mu        sync.Mutex
	table     SkipTable
	cacheSize int
	cache     *lru.Cache[skiprow.RowNo, sl.Hash]
	log       *logger.Logger
}

// New wraps table as a SkipLedger.
func New(table SkipTable, opts ...Option) (*SkipLedger, error) {
	l := &SkipLedger{table: table, cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(l)
	}
	if l.cacheSize > 0 {
		c, err := lru.New[skiprow.RowNo, sl.Hash](l.cacheSize)
		if err != nil {
			return nil, sl.Errorf(sl.ErrUnsupported, "ledger: building row-hash cache: %v", err)
		}
		l.cache = c
	}
	return l, nil
}

// Size returns the number of committed rows.
func (l *SkipLedger) Size() (skiprow.RowNo, error) {
	return l.table.Size()
}

// RowHash returns rowHash(rn): the sentinel for rn == 0. Panics if rn
// exceeds the ledger's current size (spec §4.2 "Panics if rn > size()").
func (l *SkipLedger) RowHash(rn skiprow.RowNo) (sl.Hash, error) {
	if rn == 0 {
		return sl.Sentinel, nil
	}
	size, err := l.table.Size()
	if err != nil {
		return sl.Hash{}, err
	}
	sl.Assert(rn <= size, "SkipLedger.RowHash: rn %d exceeds size %d", rn, size)

	if l.cache != nil {
		if h, ok := l.cache.Get(rn); ok {
			return h, nil
		}
	}
	inputHash, prev, err := l.readRecord(rn)
	if err != nil {
		return sl.Hash{}, err
	}
	parts := make([]sl.Hash, 1+len(prev))
	parts[0] = inputHash
	copy(parts[1:], prev)
	h := sl.SumHashes(parts...)
	if l.cache != nil {
		l.cache.Add(rn, h)
	}
	return h, nil
}

func (l *SkipLedger) readRecord(rn skiprow.RowNo) (sl.Hash, []sl.Hash, error) {
	data, err := l.table.ReadRow(rn)
	if err != nil {
		return sl.Hash{}, nil, err
	}
	return decodeRowRecord(rn, data)
}

// GetRow returns row rn's input hash and prev-hashes.
func (l *SkipLedger) GetRow(rn skiprow.RowNo) (rowbag.Row, error) {
	if rn < 1 {
		return rowbag.Row{}, sl.Errorf(sl.ErrBadRowNumber, "ledger: GetRow rn must be >= 1, got %d", rn)
	}
	inputHash, prev, err := l.readRecord(rn)
	if err != nil {
		return rowbag.Row{}, err
	}
	return rowbag.Row{RowNo: rn, InputHash: inputHash, PrevHashes: prev}, nil
}

// AppendRows appends one row per inputHash, returning the new size. Each
// new row's prevHashes are derived from a HashFrontier carried forward
// across the batch, so only the starting frontier costs an O(log n) read;
// every subsequent row in the batch is O(1). Fails with
// sl.ErrConcurrentModification if another writer raced this one.
func (l *SkipLedger) AppendRows(inputHashes []sl.Hash) (skiprow.RowNo, error) {
	if len(inputHashes) == 0 {
		return l.table.Size()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	size, err := l.table.Size()
	if err != nil {
		return 0, err
	}
	fr := frontier.LoadFrontier(size, func(rn skiprow.RowNo) sl.Hash {
		h, _ := l.RowHash(rn)
		return h
	})

	newHashes := make(map[skiprow.RowNo]sl.Hash, len(inputHashes))
	var data []byte
	for _, ih := range inputHashes {
		prev := frontier.PrevHashesFor(fr)
		rn := fr.RowNo() + 1
		data = append(data, encodeRowRecord(ih, prev)...)
		fr = frontier.NextFrontier(fr, ih)
		newHashes[rn] = fr.RowHash()
	}

	newSize, err := l.table.AddRows(data, size)
	if err != nil {
		return 0, err
	}
	if l.cache != nil {
		for rn, h := range newHashes {
			l.cache.Add(rn, h)
		}
	}
	if l.log != nil {
		l.log.Debugf("ledger: appended %d rows, size %d -> %d", len(inputHashes), size, newSize)
	}
	return newSize, nil
}

// GetPath produces a path stitching the given targets (spec §4.2).
func (l *SkipLedger) GetPath(targets ...skiprow.RowNo) (*path.Path, error) {
	if len(targets) == 0 {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "ledger: GetPath requires at least one target")
	}
	nums := skiprow.Stitch(targets)
	rows := make([]rowbag.Row, len(nums))
	for i, rn := range nums {
		r, err := l.GetRow(rn)
		if err != nil {
			return nil, err
		}
		rows[i] = r
	}
	return path.New(rows)
}

// StatePath is a shortcut for GetPath(1, size()).
func (l *SkipLedger) StatePath() (*path.Path, error) {
	size, err := l.table.Size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "ledger: StatePath on an empty ledger")
	}
	return l.GetPath(1, size)
}

// TrimSize truncates the ledger to newSize, discarding every row beyond
// it. For fix-mode use only; also drops every affected cache entry.
func (l *SkipLedger) TrimSize(newSize skiprow.RowNo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	size, err := l.table.Size()
	if err != nil {
		return err
	}
	if newSize > size {
		return sl.Errorf(sl.ErrBadRowNumber, "ledger: TrimSize %d exceeds current size %d", newSize, size)
	}
	if err := l.table.TrimSize(newSize); err != nil {
		return err
	}
	if l.cache != nil {
		for rn := newSize + 1; rn <= size; rn++ {
			l.cache.Remove(rn)
		}
	}
	if l.log != nil {
		l.log.Warnf("ledger: trimmed size %d -> %d", size, newSize)
	}
	return nil
}
