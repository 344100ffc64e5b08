// Package skiprow implements the pure, storage-free arithmetic of skip-ledger
// row geometry: how many skip-pointers a row has, which rows they reference,
// and how to stitch a minimal hash-linked path between any two rows.
package skiprow

import (
	"math/bits"
	"sort"

	sl "github.com/crums-io/skipledger.go"
)

// RowNo is a 1-based row number. Row 0 is the implicit sentinel predecessor.
type RowNo = uint64

// SkipCount returns the number of skip-pointers row rn carries: 1 plus the
// number of trailing zero bits of rn. Panics if rn < 1.
func SkipCount(rn RowNo) int {
	sl.Assert(rn >= 1, "SkipCount: rn must be >= 1, got %d", rn)
	return 1 + bits.TrailingZeros64(rn)
}

// ReferencedRow returns the row number that row rn's pointer at the given
// level refers to: rn - 2^level. level must be in [0, SkipCount(rn)).
func ReferencedRow(rn RowNo, level int) RowNo {
	sl.Assert(rn >= 1, "ReferencedRow: rn must be >= 1, got %d", rn)
	sl.Assert(level >= 0 && level < SkipCount(rn), "ReferencedRow: level %d out of range for rn %d", level, rn)
	return rn - (RowNo(1) << uint(level))
}

// highestStep returns the largest legal step (a power of two s.t. rn-step is
// a valid skip-pointer target of rn, i.e. step = 2^level for some level <
// SkipCount(rn)) whose target is >= floor. It is the tie-break rule of spec
// §4.1: "always take the path with the largest legal step at each stage".
func highestStep(rn RowNo, floor RowNo) (step RowNo, ok bool) {
	sc := SkipCount(rn)
	for level := sc - 1; level >= 0; level-- {
		s := RowNo(1) << uint(level)
		if rn < s {
			continue
		}
		if rn-s >= floor {
			return s, true
		}
	}
	return 0, false
}

// SkipPathNumbers returns the row numbers of the shortest hash-linked path
// from hi down to lo, in strictly descending order starting at hi and
// ending at lo. Requires 0 <= lo <= hi; when lo == hi the result is a
// single-element slice. When lo == 0 the path terminates at the sentinel's
// implicit predecessor and the returned slice's last element is the
// smallest row reachable that is >= lo... in practice lo is always a real
// row number the path must land on exactly, which is always achievable
// because a row can always step down by 1 (level 0 always exists).
func SkipPathNumbers(lo, hi RowNo) []RowNo {
	sl.Assert(lo <= hi, "SkipPathNumbers: lo %d > hi %d", lo, hi)
	if lo == hi {
		return []RowNo{hi}
	}
	path := []RowNo{hi}
	cur := hi
	for cur > lo {
		step, ok := highestStep(cur, lo)
		sl.Assert(ok, "SkipPathNumbers: no legal step from %d toward floor %d", cur, lo)
		cur -= step
		path = append(path, cur)
	}
	return path
}

// Stitch returns the sorted, deduplicated union of skip-paths connecting
// every consecutive pair in a monotonically increasing list of target row
// numbers, plus the path from the lowest target down to 1 is NOT implied --
// callers that need the state-anchor must include 1 explicitly among
// targets. Stitch itself only bridges the given targets to each other.
func Stitch(targets []RowNo) []RowNo {
	if len(targets) == 0 {
		return nil
	}
	sorted := append([]RowNo(nil), targets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	seen := make(map[RowNo]bool)
	var out []RowNo
	add := func(rn RowNo) {
		if !seen[rn] {
			seen[rn] = true
			out = append(out, rn)
		}
	}
	add(sorted[0])
	for i := 1; i < len(sorted); i++ {
		lo, hi := sorted[i-1], sorted[i]
		if lo == hi {
			continue
		}
		for _, rn := range SkipPathNumbers(lo, hi) {
			add(rn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Coverage returns the set of row numbers whose hash is referenced,
// directly or transitively through skip-pointers, by the union of rns --
// including the rows in rns themselves. Row 0 (the sentinel) is never
// included even if referenced.
func Coverage(rns []RowNo) map[RowNo]bool {
	seen := make(map[RowNo]bool)
	var visit func(rn RowNo)
	visit = func(rn RowNo) {
		if rn == 0 || seen[rn] {
			return
		}
		seen[rn] = true
		for level := 0; level < SkipCount(rn); level++ {
			visit(ReferencedRow(rn, level))
		}
	}
	for _, rn := range rns {
		visit(rn)
	}
	return seen
}

// IsLinked reports whether hi's skip-pointers include a pointer directly at
// lo, i.e. there exists a level in [0, SkipCount(hi)) with
// ReferencedRow(hi, level) == lo.
func IsLinked(lo, hi RowNo) bool {
	if hi == 0 {
		return lo == 0
	}
	for level := 0; level < SkipCount(hi); level++ {
		if ReferencedRow(hi, level) == lo {
			return true
		}
	}
	return false
}

// LinkLevel returns the level at which hi's skip-pointer refers to lo, and
// true if such a level exists.
func LinkLevel(lo, hi RowNo) (int, bool) {
	if hi == 0 {
		return 0, false
	}
	for level := 0; level < SkipCount(hi); level++ {
		if ReferencedRow(hi, level) == lo {
			return level, true
		}
	}
	return 0, false
}
