package nodeid

import (
	"github.com/standardbeagle/codegraph/internal/types"
)

// EncodeFileID encodes a FileID to a base-63 display string.
func EncodeFileID(id types.FileID) string {
	return Encode(uint64(id))
}

// DecodeFileID decodes a base-63 string to a FileID.
func DecodeFileID(encoded string) (types.FileID, error) {
	value, err := Decode(encoded)
	if err != nil {
		return 0, err
	}
	if value > uint64(^types.FileID(0)) {
		return 0, ErrOverflow
	}
	return types.FileID(value), nil
}

// EdgeID is the store's incrementing, big-endian-encoded edge key (spec
// §4.5: "key = incrementing EdgeId (u64 big-endian)").
type EdgeID uint64

// EncodeEdgeID encodes an EdgeID to a base-63 display string, used only for
// human-facing output (logs, debug tools) — the store itself keys edges by
// the raw big-endian bytes, not this encoding.
func EncodeEdgeID(id EdgeID) string {
	return Encode(uint64(id))
}

// DecodeEdgeID decodes a base-63 display string back to an EdgeID.
func DecodeEdgeID(encoded string) (EdgeID, error) {
	value, err := Decode(encoded)
	if err != nil {
		return 0, err
	}
	return EdgeID(value), nil
}

// EncodeNodeID renders a types.NodeId as its canonical display string. This
// is a thin wrapper (NodeId already has String()) kept here so callers that
// only import nodeid for display encoding don't also need the types import.
func EncodeNodeID(id types.NodeId) string {
	return id.String()
}
