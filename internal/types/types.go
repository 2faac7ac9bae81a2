// Package types holds the data model shared by every CodeGraph component:
// the node/edge graph produced by extraction, the embeddings attached to
// nodes, and the small set of identifier types that tie the graph store,
// the vector index, and the caches together without any component holding
// a back-reference to another.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileID identifies a file within a single ingest run. It is not persisted
// across runs the way NodeId is; the orchestrator hands it to the extractors
// with each file. The tree cache and semantic cache are keyed by path, not
// by FileID.
type FileID uint32

// NodeId is a 128-bit opaque identifier, globally unique and stable across
// runs once assigned. It is generated at node creation and never reassigned;
// a reparse that cannot match a node by name+kind+enclosing-path issues a
// fresh NodeId and tombstones the old one (see reconcile in internal/parsing).
type NodeId [16]byte

// NewNodeId generates a fresh random NodeId (UUIDv4, 122 bits of entropy).
func NewNodeId() NodeId {
	return NodeId(uuid.New())
}

// IsZero reports whether id is the zero value, used as a "no id assigned"
// sentinel in partially-built nodes during extraction.
func (id NodeId) IsZero() bool {
	return id == NodeId{}
}

func (id NodeId) String() string {
	return uuid.UUID(id).String()
}

// NodeKind enumerates the declaration kinds the extractor recognizes.
type NodeKind uint8

const (
	NodeKindFunction NodeKind = iota
	NodeKindMethod
	NodeKindStruct
	NodeKindClass
	NodeKindInterface
	NodeKindEnum
	NodeKindTrait
	NodeKindModule
	NodeKindVariable
	NodeKindImport
	NodeKindType
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindFunction:
		return "function"
	case NodeKindMethod:
		return "method"
	case NodeKindStruct:
		return "struct"
	case NodeKindClass:
		return "class"
	case NodeKindInterface:
		return "interface"
	case NodeKindEnum:
		return "enum"
	case NodeKindTrait:
		return "trait"
	case NodeKindModule:
		return "module"
	case NodeKindVariable:
		return "variable"
	case NodeKindImport:
		return "import"
	case NodeKindType:
		return "type"
	default:
		return "unknown"
	}
}

// Language identifies the source language a node/edge was extracted from.
type Language string

const (
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguagePython     Language = "python"
	LanguageTypeScript Language = "typescript"
	LanguageJavaScript Language = "javascript"
	LanguageOther      Language = "other"
)

// Location pins a node or edge span to a source position. Line/Column are
// 1-based; EndLine/EndColumn are optional (zero means "not recorded").
type Location struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
}

// Validate enforces the §3 invariants: file is nonempty, and if EndLine is
// set it is not before Line.
func (l Location) Validate() error {
	if l.File == "" {
		return fmt.Errorf("types: location.file is required")
	}
	if l.EndLine != 0 && l.EndLine < l.Line {
		return fmt.Errorf("types: location.end_line %d precedes line %d", l.EndLine, l.Line)
	}
	return nil
}

// Span is a byte range into the source the node/edge was extracted from.
// Parse trees borrow the source bytes for the duration of a reparse; a Span
// copied into a CodeNode is an owned value, not a view into the tree.
type Span struct {
	StartByte uint
	EndByte   uint
}

// EmbeddingHandle is the vector index's internal i64 handle for a node's
// embedding. It is set once the embedding pipeline (C6) and vector index
// (C7) have processed the node; the vector index owns the ANN-internal
// representation, the store owns this handle as a pointer to it.
type EmbeddingHandle int64

// NoEmbeddingHandle is the sentinel for "no vector indexed yet".
const NoEmbeddingHandle EmbeddingHandle = -1

// CodeNode is the unit of the extracted graph: a function, type, import,
// module, or other declaration, with enough metadata to re-identify it
// across reparses and to drive retrieval.
type CodeNode struct {
	ID           NodeId            `json:"id"`
	Name         string            `json:"name"`
	Kind         NodeKind          `json:"kind"`
	Language     Language          `json:"language"`
	Location     Location          `json:"location"`
	Content      string            `json:"content,omitempty"`
	Span         *Span             `json:"-"`
	Complexity   *float64          `json:"complexity,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	EmbeddingRef EmbeddingHandle   `json:"embedding_ref"`

	// EnclosingPath is the qualified path of the declaration's lexical
	// parent (package/module/class chain), used by the differential driver
	// to decide whether a reparsed declaration is "the same" node (see
	// spec §3 lifecycle: id preserved iff name+kind+enclosing-path match).
	EnclosingPath string `json:"enclosing_path,omitempty"`

	// Tombstoned marks a node logically deleted but retained until the
	// linker no longer references it from an edge (spec glossary: Tombstone).
	Tombstoned bool `json:"tombstoned,omitempty"`
}

// Validate enforces the CodeNode invariants from spec §3.
func (n *CodeNode) Validate() error {
	if n.ID.IsZero() {
		return fmt.Errorf("types: code node has no id")
	}
	return n.Location.Validate()
}

// IdentityKey returns the tuple used to decide whether a reparsed
// declaration reuses this node's NodeId (name + kind + enclosing path).
func (n *CodeNode) IdentityKey() string {
	return fmt.Sprintf("%s\x1f%s\x1f%s", n.EnclosingPath, n.Kind, n.Name)
}

// EdgeKind enumerates the relationship kinds the extractor and linker emit.
type EdgeKind uint8

const (
	EdgeKindCalls EdgeKind = iota
	EdgeKindImports
	EdgeKindUses
	EdgeKindExtends
	EdgeKindImplements
	EdgeKindReferences
	EdgeKindContains
	EdgeKindDefines
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeKindCalls:
		return "calls"
	case EdgeKindImports:
		return "imports"
	case EdgeKindUses:
		return "uses"
	case EdgeKindExtends:
		return "extends"
	case EdgeKindImplements:
		return "implements"
	case EdgeKindReferences:
		return "references"
	case EdgeKindContains:
		return "contains"
	case EdgeKindDefines:
		return "defines"
	default:
		return "unknown"
	}
}

// NodeRef is either a resolved NodeId or an unresolved symbolic name pending
// linker resolution. It intentionally avoids an interface: a flat struct
// with a discriminant keeps edges cheap to store and scan, matching the
// rest of this package's data types.
type NodeRef struct {
	resolved bool
	id       NodeId
	symbol   string
}

// ResolvedRef builds a NodeRef that already points at a concrete node.
func ResolvedRef(id NodeId) NodeRef {
	return NodeRef{resolved: true, id: id}
}

// SymbolicRef builds a NodeRef pending resolution against the qualified or
// short name table the orchestrator's linker builds per batch.
func SymbolicRef(name string) NodeRef {
	return NodeRef{resolved: false, symbol: name}
}

// Resolved reports whether the reference has been linked to a NodeId.
func (r NodeRef) Resolved() bool { return r.resolved }

// NodeID returns the resolved id. Callers must check Resolved first.
func (r NodeRef) NodeID() NodeId { return r.id }

// Symbol returns the pending symbolic name. A ref built by ResolvedRef
// carries no name, so Symbol returns "" for it.
func (r NodeRef) Symbol() string { return r.symbol }

// EdgeRelationship connects a node to another node or a pending symbolic
// name. After cross-file resolution every edge either has to: Resolved or
// is explicitly marked unresolved via Metadata["reason"].
type EdgeRelationship struct {
	From     NodeId            `json:"from"`
	To       NodeRef           `json:"-"`
	ToID     NodeId            `json:"to_id,omitempty"`
	ToSymbol string            `json:"to_symbol,omitempty"`
	Kind     EdgeKind          `json:"kind"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Span     *Span             `json:"-"`
}

// Unresolved marks an edge's target as permanently unresolved with a
// human-readable reason (spec §9: ambiguous short names resolve to
// unresolved rather than guessing).
func (e *EdgeRelationship) Unresolved(reason string) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata["reason"] = reason
}

// IsUnresolved reports whether the edge carries an unresolved-reason tag.
func (e *EdgeRelationship) IsUnresolved() bool {
	if e.To.Resolved() {
		return false
	}
	_, tagged := e.Metadata["reason"]
	return tagged
}

// Embedding is the vector representation stored for a node by a specific
// embedding model. dim is fixed per model_id within a database (spec §3).
type Embedding struct {
	Owner     NodeId    `json:"owner"`
	ModelID   string    `json:"model_id"`
	Dim       int       `json:"dim"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces |vector| == dim.
func (e *Embedding) Validate() error {
	if len(e.Vector) != e.Dim {
		return fmt.Errorf("types: embedding vector length %d does not match dim %d", len(e.Vector), e.Dim)
	}
	return nil
}
