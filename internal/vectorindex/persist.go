package vectorindex

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Meta is the sidecar written alongside an index's binary artifact,
// matching spec §6's vectors/{index_name}/meta.json contents.
type Meta struct {
	Type       Type      `json:"type"`
	Dim        int       `json:"dim"`
	Metric     string    `json:"metric"`
	Params     Params    `json:"params"`
	Trained    bool      `json:"trained"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Checksum   string    `json:"checksum"`
	ByteLength int       `json:"byte_length"`
}

// flatSnapshot is the gob-serializable shape of a Flat index's internal
// state, the only index type with one. A plain struct tag-free gob encoding is
// used rather than a schema-evolving format since index artifacts are
// rebuilt wholesale on a schema change (spec §6: "partial files ... are
// rejected at load", not migrated).
type flatSnapshot struct {
	Dim     int
	Next    int64
	Handles []int64
	Vectors [][]float32
}

// Persist writes idx's binary artifact to dir/index.bin and an atomic
// meta.json (temp file + rename, so a crash mid-write leaves the previous
// meta.json intact rather than a half-written one).
func Persist(dir string, idxType Type, idx Index, params Params) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cgerrors.NewIoError("mkdir", dir, err)
	}

	flat, ok := idx.(*Flat)
	if !ok {
		// Only Flat has a serialized form; every other index type, HNSW
		// included, is rejected here and nothing is written for it.
		return cgerrors.NewVectorError(string(idxType), errUnsupportedPersist{typ: idxType})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshotFlat(flat)); err != nil {
		return err
	}

	binPath := filepath.Join(dir, "index.bin")
	if err := os.WriteFile(binPath, buf.Bytes(), 0o644); err != nil {
		return cgerrors.NewIoError("write", binPath, err)
	}

	sum := sha256.Sum256(buf.Bytes())
	meta := Meta{
		Type:       idxType,
		Dim:        idx.Dim(),
		Metric:     "inner_product",
		Params:     params,
		Trained:    idx.Trained(),
		UpdatedAt:  time.Now(),
		Checksum:   hex.EncodeToString(sum[:]),
		ByteLength: buf.Len(),
	}
	return writeMetaAtomic(dir, meta)
}

func writeMetaAtomic(dir string, meta Meta) error {
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := filepath.Join(dir, "meta.json.tmp")
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return cgerrors.NewIoError("write", tmpPath, err)
	}
	finalPath := filepath.Join(dir, "meta.json")
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return cgerrors.NewIoError("rename", finalPath, err)
	}
	return nil
}

// Load reads dir's meta.json and index.bin, verifying the checksum and
// byte length before reconstructing a Flat index. Only Flat round-trips
// through Persist/Load; Persist rejects every other index type, and no
// code rebuilds an HNSW graph from stored vectors.
func Load(dir string) (*Flat, Meta, error) {
	metaPath := filepath.Join(dir, "meta.json")
	rawMeta, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, Meta{}, cgerrors.NewIoError("read", metaPath, err)
	}
	var meta Meta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, Meta{}, cgerrors.NewSchemaError("meta.json", "valid json", "corrupt", err)
	}

	binPath := filepath.Join(dir, "index.bin")
	raw, err := os.ReadFile(binPath)
	if err != nil {
		return nil, Meta{}, cgerrors.NewIoError("read", binPath, err)
	}
	if len(raw) != meta.ByteLength {
		return nil, Meta{}, cgerrors.NewSchemaError("index.bin length", itoa(meta.ByteLength), itoa(len(raw)), nil)
	}
	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != meta.Checksum {
		return nil, Meta{}, cgerrors.NewSchemaError("index.bin checksum", meta.Checksum, hex.EncodeToString(sum[:]), nil)
	}

	var snap flatSnapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, Meta{}, cgerrors.NewSchemaError("index.bin", "valid gob snapshot", "corrupt", err)
	}

	idx := NewFlat(snap.Dim)
	idx.next = 0
	for i, h := range snap.Handles {
		handle := types.EmbeddingHandle(h)
		idx.vectors[handle] = snap.Vectors[i]
		if handle >= idx.next {
			idx.next = handle + 1
		}
	}
	return idx, meta, nil
}

func snapshotFlat(f *Flat) flatSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap := flatSnapshot{Dim: f.dim, Next: int64(f.next)}
	for h, v := range f.vectors {
		snap.Handles = append(snap.Handles, int64(h))
		snap.Vectors = append(snap.Vectors, v)
	}
	return snap
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

type errUnsupportedPersist struct {
	typ Type
}

func (e errUnsupportedPersist) Error() string {
	return "persistence for this index type is not supported"
}
