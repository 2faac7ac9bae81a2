// Package store implements the persistent graph store on go.etcd.io/bbolt.
// Four top-level buckets hold the data model's column families: nodes,
// edges, indices (secondary lookups), and metadata (schema bookkeeping).
// There is no pack example that exercises bbolt directly, so the bucket
// layout and transaction shape follow bbolt's own documented API rather
// than a teacher file — see DESIGN.md.
package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/metrics"
	"github.com/standardbeagle/codegraph/internal/types"
)

var (
	bucketNodes    = []byte("nodes")
	bucketEdges    = []byte("edges")
	bucketIndices  = []byte("indices")
	bucketMetadata = []byte("metadata")
)

// bulkBatchSize is the sub-batch size bulk_insert chunks into; 512-1024 per
// the spec, held at the low end to bound a single transaction's WAL growth.
const bulkBatchSize = 512

// Store wraps a bbolt.DB opened at a single on-disk file with the four
// buckets created up front.
type Store struct {
	db      *bbolt.DB
	metrics *metrics.Registry
}

// Open creates or opens the store at path, creating the four top-level
// buckets if they do not already exist.
func Open(path string, reg *metrics.Registry) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, cgerrors.NewIoError("open", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketNodes, bucketEdges, bucketIndices, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, cgerrors.NewSchemaError("buckets", "nodes,edges,indices,metadata", "", err)
	}
	return &Store{db: db, metrics: reg}, nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nameIndexKey(name string, id types.NodeId) []byte {
	return append([]byte("name:"+normalizeName(name)+":"), id[:]...)
}

func fromIndexKey(from types.NodeId, edgeID uint64) []byte {
	key := append([]byte("from:"), from[:]...)
	key = append(key, ':')
	var eb [8]byte
	binary.BigEndian.PutUint64(eb[:], edgeID)
	return append(key, eb[:]...)
}

func toIndexKey(to types.NodeId, edgeID uint64) []byte {
	key := append([]byte("to:"), to[:]...)
	key = append(key, ':')
	var eb [8]byte
	binary.BigEndian.PutUint64(eb[:], edgeID)
	return append(key, eb[:]...)
}

func normalizeName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// storedEdge is the JSON wire shape persisted under edges;
// EdgeRelationship carries an unexported-field NodeRef that must be
// flattened to ToID/ToSymbol/Resolved before marshaling. Nodes are stored
// as CodeNode JSON directly.
type storedEdge struct {
	From     types.NodeId      `json:"from"`
	ToID     types.NodeId      `json:"to_id,omitempty"`
	ToSymbol string            `json:"to_symbol,omitempty"`
	Resolved bool              `json:"resolved"`
	Kind     types.EdgeKind    `json:"kind"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func toStoredEdge(e types.EdgeRelationship) storedEdge {
	se := storedEdge{From: e.From, Kind: e.Kind, Metadata: e.Metadata, Resolved: e.To.Resolved()}
	if e.To.Resolved() {
		se.ToID = e.To.NodeID()
	} else {
		se.ToSymbol = e.To.Symbol()
	}
	return se
}

func (se storedEdge) toEdge() types.EdgeRelationship {
	e := types.EdgeRelationship{From: se.From, Kind: se.Kind, Metadata: se.Metadata}
	if se.Resolved {
		e.To = types.ResolvedRef(se.ToID)
		e.ToID = se.ToID
	} else {
		e.To = types.SymbolicRef(se.ToSymbol)
		e.ToSymbol = se.ToSymbol
	}
	return e
}

// AddNode inserts or overwrites n under its NodeId and refreshes its name
// index entry.
func (s *Store) AddNode(n types.CodeNode) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.addNodeTx(tx, n)
	})
}

func (s *Store) addNodeTx(tx *bbolt.Tx, n types.CodeNode) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketNodes).Put(n.ID[:], payload); err != nil {
		return err
	}
	if err := tx.Bucket(bucketIndices).Put(nameIndexKey(n.Name, n.ID), nil); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.StoreWrites.Inc()
	}
	return nil
}

// RemoveNode deletes n's record and its name-index entry. The caller is
// responsible for also removing or tombstoning edges that reference it.
func (s *Store) RemoveNode(id types.NodeId) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketNodes).Get(id[:])
		if raw == nil {
			return nil
		}
		var n types.CodeNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		if err := tx.Bucket(bucketIndices).Delete(nameIndexKey(n.Name, id)); err != nil {
			return err
		}
		return tx.Bucket(bucketNodes).Delete(id[:])
	})
}

// GetNode fetches a node by id. ok is false if no such node exists.
func (s *Store) GetNode(id types.NodeId) (n types.CodeNode, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketNodes).Get(id[:])
		if raw == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(raw, &n)
	})
	if s.metrics != nil && err == nil {
		s.metrics.StoreReads.Inc()
	}
	return n, ok, err
}

// FindNodesByName returns every node whose name matches exactly via a
// prefix scan over the case-normalized name index.
func (s *Store) FindNodesByName(name string) ([]types.CodeNode, error) {
	prefix := []byte("name:" + normalizeName(name) + ":")
	var ids []types.NodeId
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketIndices).Cursor()
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			var id types.NodeId
			copy(id[:], k[len(prefix):])
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]types.CodeNode, 0, len(ids))
	for _, id := range ids {
		n, ok, err := s.GetNode(id)
		if err != nil {
			return nil, err
		}
		if ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// AddEdge assigns e the next sequential EdgeId in the edges bucket and
// stores it plus its from-index entry.
func (s *Store) AddEdge(e types.EdgeRelationship) (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		id, err = s.addEdgeTx(tx, e)
		return err
	})
	return id, err
}

func (s *Store) addEdgeTx(tx *bbolt.Tx, e types.EdgeRelationship) (uint64, error) {
	bucket := tx.Bucket(bucketEdges)
	id, err := bucket.NextSequence()
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(toStoredEdge(e))
	if err != nil {
		return 0, err
	}
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], id)
	if err := bucket.Put(key[:], payload); err != nil {
		return 0, err
	}
	if err := tx.Bucket(bucketIndices).Put(fromIndexKey(e.From, id), nil); err != nil {
		return 0, err
	}
	if e.To.Resolved() {
		if err := tx.Bucket(bucketIndices).Put(toIndexKey(e.To.NodeID(), id), nil); err != nil {
			return 0, err
		}
	}
	if s.metrics != nil {
		s.metrics.StoreWrites.Inc()
	}
	return id, nil
}

// GetEdgesFrom returns every edge whose From field is id, via a prefix scan
// on the from-index.
func (s *Store) GetEdgesFrom(id types.NodeId) ([]types.EdgeRelationship, error) {
	prefix := append([]byte("from:"), id[:]...)
	prefix = append(prefix, ':')
	var edgeIDs [][8]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketIndices).Cursor()
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			var eb [8]byte
			copy(eb[:], k[len(prefix):])
			edgeIDs = append(edgeIDs, eb)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	edges := make([]types.EdgeRelationship, 0, len(edgeIDs))
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEdges)
		for _, eb := range edgeIDs {
			raw := bucket.Get(eb[:])
			if raw == nil {
				continue
			}
			var se storedEdge
			if err := json.Unmarshal(raw, &se); err != nil {
				return err
			}
			edges = append(edges, se.toEdge())
		}
		return nil
	})
	if s.metrics != nil && err == nil {
		s.metrics.StoreReads.Inc()
	}
	return edges, err
}

// GetEdgesTo returns every resolved edge whose To field points at id, via a
// prefix scan on the to-index. Edges with an unresolved (symbolic-only)
// target are never indexed here since they carry no NodeId to scan by.
func (s *Store) GetEdgesTo(id types.NodeId) ([]types.EdgeRelationship, error) {
	prefix := append([]byte("to:"), id[:]...)
	prefix = append(prefix, ':')
	var edgeIDs [][8]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketIndices).Cursor()
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			var eb [8]byte
			copy(eb[:], k[len(prefix):])
			edgeIDs = append(edgeIDs, eb)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	edges := make([]types.EdgeRelationship, 0, len(edgeIDs))
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEdges)
		for _, eb := range edgeIDs {
			raw := bucket.Get(eb[:])
			if raw == nil {
				continue
			}
			var se storedEdge
			if err := json.Unmarshal(raw, &se); err != nil {
				return err
			}
			edges = append(edges, se.toEdge())
		}
		return nil
	})
	if s.metrics != nil && err == nil {
		s.metrics.StoreReads.Inc()
	}
	return edges, err
}

// ForEachNode walks every stored node, used by the retriever's fuzzy
// lexical pass which needs to score a query against every name rather
// than look one up by exact prefix. fn's error, if any, stops the walk
// and is returned to the caller.
func (s *Store) ForEachNode(fn func(types.CodeNode) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketNodes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var n types.CodeNode
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if err := fn(n); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutMetadata stores an arbitrary JSON-serializable value under key in the
// metadata bucket (schema version, migrations applied, embedding model id,
// vector index descriptor).
func (s *Store) PutMetadata(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).Put([]byte(key), payload)
	})
}

// GetMetadata reads the value stored under key into out. ok is false if no
// such key exists.
func (s *Store) GetMetadata(key string, out any) (ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMetadata).Get([]byte(key))
		if raw == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(raw, out)
	})
	return ok, err
}

// BatchStats reports the outcome of a chunked bulk insert.
type BatchStats struct {
	Total    int
	Batches  int
	Duration time.Duration
}

// BulkInsertNodes chunks nodes into fixed-size sub-batches, each its own
// bbolt transaction, bounding write-amplification and WAL growth on large
// ingests.
func (s *Store) BulkInsertNodes(nodes []types.CodeNode) (BatchStats, error) {
	start := time.Now()
	stats := BatchStats{Total: len(nodes)}
	for i := 0; i < len(nodes); i += bulkBatchSize {
		end := i + bulkBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		chunk := nodes[i:end]
		err := s.db.Update(func(tx *bbolt.Tx) error {
			for _, n := range chunk {
				if err := s.addNodeTx(tx, n); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return stats, cgerrors.NewTransactionError("bulk_insert_nodes", err)
		}
		stats.Batches++
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// BulkInsertEdges is BulkInsertNodes' counterpart for edges.
func (s *Store) BulkInsertEdges(edges []types.EdgeRelationship) (BatchStats, error) {
	start := time.Now()
	stats := BatchStats{Total: len(edges)}
	for i := 0; i < len(edges); i += bulkBatchSize {
		end := i + bulkBatchSize
		if end > len(edges) {
			end = len(edges)
		}
		chunk := edges[i:end]
		err := s.db.Update(func(tx *bbolt.Tx) error {
			for _, e := range chunk {
				if _, err := s.addEdgeTx(tx, e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return stats, cgerrors.NewTransactionError("bulk_insert_edges", err)
		}
		stats.Batches++
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// FlushBatchWrites fsyncs the database file via DB.Sync. bbolt already
// fsyncs on every committed Update transaction; this does not commit a
// TxHandle that is still open.
func (s *Store) FlushBatchWrites() error {
	return s.db.Sync()
}

