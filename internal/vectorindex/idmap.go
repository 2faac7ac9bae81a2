package vectorindex

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// IDMap is the bidirectional mapping spec §6 calls id_map.bin: every
// EmbeddingHandle an index assigns maps to exactly one NodeId and back,
// satisfying the store/index bijection the spec requires. It owns no
// index logic itself; internal/engine puts a mapping for each handle an
// Index.Add call returns.
type IDMap struct {
	mu       sync.RWMutex
	toNode   map[types.EmbeddingHandle]types.NodeId
	toHandle map[types.NodeId]types.EmbeddingHandle
}

// NewIDMap returns an empty bidirectional map.
func NewIDMap() *IDMap {
	return &IDMap{
		toNode:   make(map[types.EmbeddingHandle]types.NodeId),
		toHandle: make(map[types.NodeId]types.EmbeddingHandle),
	}
}

// Put records that handle now identifies id, replacing any prior mapping
// either side held.
func (m *IDMap) Put(handle types.EmbeddingHandle, id types.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.toHandle[id]; ok {
		delete(m.toNode, old)
	}
	m.toNode[handle] = id
	m.toHandle[id] = handle
}

// Remove drops handle's mapping in both directions.
func (m *IDMap) Remove(handle types.EmbeddingHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.toNode[handle]
	if !ok {
		return
	}
	delete(m.toNode, handle)
	delete(m.toHandle, id)
}

// NodeID resolves handle to its NodeId.
func (m *IDMap) NodeID(handle types.EmbeddingHandle) (types.NodeId, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.toNode[handle]
	return id, ok
}

// Handle resolves id to its EmbeddingHandle.
func (m *IDMap) Handle(id types.NodeId) (types.EmbeddingHandle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.toHandle[id]
	return h, ok
}

// Len reports the number of mapped handles.
func (m *IDMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.toNode)
}

type idMapEntry struct {
	Handle int64
	Node   types.NodeId
}

// PersistIDMap writes the map to dir/id_map.bin as a plain gob stream.
// Unlike index.bin it carries no checksum; LoadIDMap rejects a file that
// fails to decode.
func PersistIDMap(dir string, m *IDMap) error {
	m.mu.RLock()
	entries := make([]idMapEntry, 0, len(m.toNode))
	for h, id := range m.toNode {
		entries = append(entries, idMapEntry{Handle: int64(h), Node: id})
	}
	m.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return err
	}
	path := filepath.Join(dir, "id_map.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return cgerrors.NewIoError("write", path, err)
	}
	return nil
}

// LoadIDMap reads dir/id_map.bin, rejecting it outright if it cannot be
// decoded rather than returning a partially populated map.
func LoadIDMap(dir string) (*IDMap, error) {
	path := filepath.Join(dir, "id_map.bin")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cgerrors.NewIoError("read", path, err)
	}
	var entries []idMapEntry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entries); err != nil {
		return nil, cgerrors.NewSchemaError("id_map.bin", "valid gob id map", "corrupt", err)
	}
	m := NewIDMap()
	for _, e := range entries {
		m.Put(types.EmbeddingHandle(e.Handle), e.Node)
	}
	return m, nil
}
