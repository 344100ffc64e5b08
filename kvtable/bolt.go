package kvtable

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

var rowsBucket = []byte("rows")

func boltRowKey(rn skiprow.RowNo) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(rn))
	return k
}

// Bolt is a go.etcd.io/bbolt-backed SkipTable: a second concrete storage
// adapter exercising the same SkipTable contract against a real embedded
// B-tree file, independent of hive.go's stores (SPEC_FULL.md §2.1).
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database file at path holding
// a single ledger's rows.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, sl.Errorf(sl.ErrIoFailure, "kvtable: opening bolt db at %s: %v", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rowsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, sl.Errorf(sl.ErrIoFailure, "kvtable: initializing bolt bucket: %v", err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Size() (skiprow.RowNo, error) {
	var size skiprow.RowNo
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(rowsBucket).Cursor()
		k, _ := c.Last()
		if k == nil {
			size = 0
			return nil
		}
		size = skiprow.RowNo(binary.BigEndian.Uint64(k))
		return nil
	})
	return size, err
}

func (b *Bolt) ReadRow(rn skiprow.RowNo) ([]byte, error) {
	var rec []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rowsBucket).Get(boltRowKey(rn))
		if v == nil {
			return sl.Errorf(sl.ErrBadRowNumber, "kvtable.Bolt: row %d not found", rn)
		}
		rec = append([]byte(nil), v...)
		return nil
	})
	return rec, err
}

func (b *Bolt) AddRows(data []byte, expectedIndex skiprow.RowNo) (skiprow.RowNo, error) {
	var newSize skiprow.RowNo
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rowsBucket)
		cur, err := b.sizeLocked(bucket)
		if err != nil {
			return err
		}
		if expectedIndex != cur {
			return sl.Errorf(sl.ErrConcurrentModification, "kvtable.Bolt: expected index %d, table is at %d", expectedIndex, cur)
		}
		off := 0
		rn := cur + 1
		for off < len(data) {
			width := (1 + skiprow.SkipCount(rn)) * sl.HashSize
			if off+width > len(data) {
				return sl.Errorf(sl.ErrBadSourcePack, "kvtable.Bolt: malformed row batch at row %d", rn)
			}
			if err := bucket.Put(boltRowKey(rn), data[off:off+width]); err != nil {
				return err
			}
			off += width
			rn++
		}
		newSize = rn - 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newSize, nil
}

func (b *Bolt) sizeLocked(bucket *bolt.Bucket) (skiprow.RowNo, error) {
	c := bucket.Cursor()
	k, _ := c.Last()
	if k == nil {
		return 0, nil
	}
	return skiprow.RowNo(binary.BigEndian.Uint64(k)), nil
}

func (b *Bolt) TrimSize(newSize skiprow.RowNo) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rowsBucket)
		cur, err := b.sizeLocked(bucket)
		if err != nil {
			return err
		}
		if newSize > cur {
			return sl.Errorf(sl.ErrBadRowNumber, "kvtable.Bolt: TrimSize %d exceeds size %d", newSize, cur)
		}
		for rn := newSize + 1; rn <= cur; rn++ {
			if err := bucket.Delete(boltRowKey(rn)); err != nil {
				return err
			}
		}
		return nil
	})
}
