// Package microchain implements the microchain synchronizer (spec §4.10,
// "C12"): reconciling an external SourceLedger against the skip-ledger
// committed from it, tracking whether the two are complete, pending,
// trimmed, or forked.
package microchain

import (
	"github.com/iotaledger/hive.go/core/logger"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/ledger"
	"github.com/crums-io/skipledger.go/row"
	"github.com/crums-io/skipledger.go/skiprow"
)

// SourceLedger is the external collaborator a Microchain reconciles against
// (spec §6 "Inputs the core consumes"): the log/table of record whose rows
// are committed into the skip-ledger one input-hash at a time.
type SourceLedger interface {
	Size() (uint64, error)
	GetSourceRow(rn uint64) (*row.SourceRow, error)
	SaltScheme() row.SaltScheme
}

// Status is the microchain's reconciliation state (spec §4.10).
type Status int

const (
	Complete Status = iota
	Pending
	Trimmed
	Forked
)

func (s Status) String() string {
	switch s {
	case Complete:
		return "COMPLETE"
	case Pending:
		return "PENDING"
	case Trimmed:
		return "TRIMMED"
	case Forked:
		return "FORKED"
	default:
		return "UNKNOWN"
	}
}

const defaultLookbackBudget = 10

// Option configures a Microchain (functional-option style, matching
// ledger.Option).
type Option func(*Microchain)

// WithLogger attaches optional diagnostic logging (state transitions, fork
// detection, rollback).
func WithLogger(log *logger.Logger) Option {
	return func(m *Microchain) { m.log = log }
}

// WithLookbackBudget overrides the default fork-detection lookback of 10
// rows (spec §4.10 "default 10").
func WithLookbackBudget(n int) Option {
	return func(m *Microchain) { m.lookbackBudget = n }
}

// WithFixMode enables Rollback, which otherwise fails (spec §5 "Rollback
// ... requires fix-mode").
func WithFixMode(enabled bool) Option {
	return func(m *Microchain) { m.fixMode = enabled }
}

// Microchain reconciles a (SourceLedger, SkipLedger) pair.
type Microchain struct {
	source SourceLedger
	chain  *ledger.SkipLedger

	lookbackBudget int
	fixMode        bool
	log            *logger.Logger

	status          Status
	lastValidCommit skiprow.RowNo // the highest row confirmed hash-consistent
	checkpoint      skiprow.RowNo // highest row verified by the last UpdateStatus
}

// New builds a Microchain over source and chain, running an initial
// UpdateStatus.
func New(source SourceLedger, chain *ledger.SkipLedger, opts ...Option) (*Microchain, error) {
	m := &Microchain{source: source, chain: chain, lookbackBudget: defaultLookbackBudget}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.UpdateStatus(); err != nil {
		return nil, err
	}
	return m, nil
}

// Status returns the microchain's current reconciliation state.
func (m *Microchain) Status() Status { return m.status }

// LastValidCommit returns the highest row number confirmed hash-consistent
// between source and chain.
func (m *Microchain) LastValidCommit() skiprow.RowNo { return m.lastValidCommit }

// UpdateStatus recomputes the microchain's status (spec §4.10 table):
// COMPLETE when committed == sourceSize and all compared prefixes match;
// PENDING when committed < sourceSize and the shared prefix matches;
// TRIMMED when committed > sourceSize and the prefix matches up to
// sourceSize; FORKED when some row rn <= min(committed, sourceSize) has
// source.row(rn).hash() != chain.row(rn).inputHash(). Only a window of
// lookbackBudget rows behind the last confirmed checkpoint is re-verified
// on each call, not the full history, per spec.md §4.10's "lookback
// budget" (the full range is always scanned on the very first call).
func (m *Microchain) UpdateStatus() error {
	sourceSize, err := m.source.Size()
	if err != nil {
		return err
	}
	committed, err := m.chain.Size()
	if err != nil {
		return err
	}
	shared := committed
	if sourceSize < shared {
		shared = sourceSize
	}

	start := skiprow.RowNo(1)
	if m.checkpoint > skiprow.RowNo(m.lookbackBudget) {
		start = m.checkpoint - skiprow.RowNo(m.lookbackBudget) + 1
	}
	if start > shared+1 {
		start = shared + 1
	}

	for rn := start; rn <= shared; rn++ {
		srcRow, err := m.source.GetSourceRow(rn)
		if err != nil {
			return err
		}
		chainRow, err := m.chain.GetRow(rn)
		if err != nil {
			return err
		}
		if srcRow.Hash() != chainRow.InputHash {
			m.status = Forked
			m.lastValidCommit = rn - 1
			if m.log != nil {
				m.log.Warnf("microchain: fork detected at row %d", rn)
			}
			return nil
		}
	}

	m.checkpoint = shared
	m.lastValidCommit = shared
	switch {
	case committed == sourceSize:
		m.status = Complete
	case committed < sourceSize:
		m.status = Pending
	default:
		m.status = Trimmed
	}
	if m.log != nil {
		m.log.Debugf("microchain: status %s, committed %d, source %d", m.status, committed, sourceSize)
	}
	return nil
}

// Update appends up to maxRows source rows to the chain, starting at the
// chain's current size + 1. Requires the microchain not be in FORKED state
// (spec §4.10 "requires non-error state"). Re-runs UpdateStatus before
// returning.
func (m *Microchain) Update(maxRows int) error {
	if m.status == Forked {
		return sl.Errorf(sl.ErrHashConflict, "microchain: cannot update while forked at row %d", m.lastValidCommit+1)
	}
	if maxRows == 0 {
		return nil
	}
	sourceSize, err := m.source.Size()
	if err != nil {
		return err
	}
	committed, err := m.chain.Size()
	if err != nil {
		return err
	}
	available := sourceSize - committed
	n := skiprow.RowNo(maxRows)
	if n > available {
		n = available
	}
	if n == 0 {
		return m.UpdateStatus()
	}

	hashes := make([]sl.Hash, n)
	for i := skiprow.RowNo(0); i < n; i++ {
		rn := committed + 1 + i
		srcRow, err := m.source.GetSourceRow(rn)
		if err != nil {
			return err
		}
		hashes[i] = srcRow.Hash()
	}
	if _, err := m.chain.AppendRows(hashes); err != nil {
		return err
	}
	if m.log != nil {
		m.log.Debugf("microchain: appended %d rows from source", n)
	}
	return m.UpdateStatus()
}

// Rollback trims the chain back to LastValidCommit, discarding any rows
// committed past the fork point. Requires fix-mode (spec §5 "the only
// recovery path that mutates committed state, and requires fix-mode").
func (m *Microchain) Rollback() error {
	if !m.fixMode {
		return sl.Errorf(sl.ErrUnsupported, "microchain: Rollback requires fix-mode")
	}
	if err := m.chain.TrimSize(m.lastValidCommit); err != nil {
		return err
	}
	m.checkpoint = m.lastValidCommit
	if m.log != nil {
		m.log.Warnf("microchain: rolled back to row %d", m.lastValidCommit)
	}
	return m.UpdateStatus()
}
