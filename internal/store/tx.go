package store

import (
	"sync"

	"go.etcd.io/bbolt"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// TxHandle wraps a held write transaction so callers can interleave
// AddNodeTx/AddEdgeTx calls across multiple method invocations before a
// single Commit, which bbolt's single-writer model supports directly:
// writes inside the transaction are invisible to readers until commit.
type TxHandle struct {
	mu   sync.Mutex
	tx   *bbolt.Tx
	done bool
}

// Begin opens a write transaction and returns a handle to it. The
// transaction holds bbolt's single writer lock until Commit or Rollback is
// called — callers must not block indefinitely between Begin and the
// matching Commit/Rollback.
func (s *Store) Begin() (*TxHandle, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, cgerrors.NewTransactionError("begin", err)
	}
	return &TxHandle{tx: tx}, nil
}

// AddNodeTx stages n's insert within the transaction; it is not visible to
// readers until Commit.
func (s *Store) AddNodeTx(h *TxHandle, n types.CodeNode) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return cgerrors.NewTransactionError("add_node_tx", errTxClosed)
	}
	if err := s.addNodeTx(h.tx, n); err != nil {
		return cgerrors.NewTransactionError("add_node_tx", err)
	}
	return nil
}

// AddEdgeTx stages e's insert within the transaction, returning its
// assigned EdgeId.
func (s *Store) AddEdgeTx(h *TxHandle, e types.EdgeRelationship) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return 0, cgerrors.NewTransactionError("add_edge_tx", errTxClosed)
	}
	id, err := s.addEdgeTx(h.tx, e)
	if err != nil {
		return 0, cgerrors.NewTransactionError("add_edge_tx", err)
	}
	return id, nil
}

// Commit makes every staged write durable and visible to readers.
// Committing twice, or committing a handle that was already rolled back,
// fails.
func (s *Store) Commit(h *TxHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return cgerrors.NewTransactionError("commit", errTxClosed)
	}
	h.done = true
	if err := h.tx.Commit(); err != nil {
		return cgerrors.NewTransactionError("commit", err)
	}
	return nil
}

// Rollback discards every staged write. Rolling back an unknown or
// already-closed handle fails, per spec.
func (s *Store) Rollback(h *TxHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return cgerrors.NewTransactionError("rollback", errTxClosed)
	}
	h.done = true
	if err := h.tx.Rollback(); err != nil {
		return cgerrors.NewTransactionError("rollback", err)
	}
	return nil
}

var errTxClosed = txClosedError{}

type txClosedError struct{}

func (txClosedError) Error() string { return "transaction handle already committed or rolled back" }
