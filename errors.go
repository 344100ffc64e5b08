package skipledger

import "golang.org/x/xerrors"

// Error taxonomy (spec §7). These are sentinel errors callers match with
// errors.Is; call sites wrap them with xerrors.Errorf to attach row numbers
// or byte offsets without losing the sentinel identity.
var (
	ErrBadRowNumber         = xerrors.New("skipledger: bad row number")
	ErrNotLinked            = xerrors.New("skipledger: rows not linked by a skip-pointer")
	ErrHashConflict         = xerrors.New("skipledger: hash conflict")
	ErrSchemaMismatch       = xerrors.New("skipledger: schema mismatch")
	ErrIslandRejected       = xerrors.New("skipledger: path is an island")
	ErrBadSourcePack        = xerrors.New("skipledger: malformed source pack")
	ErrIoFailure            = xerrors.New("skipledger: i/o failure")
	ErrOffsetConflict       = xerrors.New("skipledger: offset conflict")
	ErrRowHashConflict      = xerrors.New("skipledger: row hash conflict")
	ErrConcurrentModification = xerrors.New("skipledger: concurrent modification")
	ErrUnsupported          = xerrors.New("skipledger: unsupported operation")
)

// Errorf wraps a sentinel error with additional context while preserving its
// identity for errors.Is. Example: Errorf(ErrBadRowNumber, "rn=%d size=%d", rn, size).
func Errorf(sentinel error, format string, args ...interface{}) error {
	return xerrors.Errorf(format+": %w", append(args, sentinel)...)
}
