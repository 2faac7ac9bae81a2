// Package parsing implements the differential driver (C3): per-file state
// tracking across ingest runs, edit-aware incremental reparsing, and
// changed-range classification that decides how much of a file's cached
// extraction result needs to be redone.
package parsing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codegraph/internal/cgerrors"
	"github.com/standardbeagle/codegraph/internal/extract"
	"github.com/standardbeagle/codegraph/internal/semcache"
	"github.com/standardbeagle/codegraph/internal/types"
)

// FileState is the state-machine position a file occupies after Process
// returns: Unseen on first encounter, Unchanged when content hash matches
// the cached entry, Changed otherwise.
type FileState uint8

const (
	StateUnseen FileState = iota
	StateUnchanged
	StateChanged
)

func (s FileState) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateUnchanged:
		return "unchanged"
	case StateChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// ChangeKind classifies one changed byte range between a file's prior and
// current tree.
type ChangeKind uint8

const (
	ChangeAddition ChangeKind = iota
	ChangeModification
	ChangeDeletion
	ChangeDependency
	ChangeCosmetic
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAddition:
		return "addition"
	case ChangeModification:
		return "modification"
	case ChangeDeletion:
		return "deletion"
	case ChangeDependency:
		return "dependency"
	case ChangeCosmetic:
		return "cosmetic"
	default:
		return "unknown"
	}
}

// ChangedRange is one classified span from Tree.ChangedRanges.
type ChangedRange struct {
	Kind     ChangeKind
	StartRow uint
	EndRow   uint
}

// ChangeSummary is what Process reports about a file beyond its extraction
// result: which state transition it made and, for a Changed file, what each
// touched range was classified as.
type ChangeSummary struct {
	State  FileState
	Ranges []ChangedRange
}

// CosmeticOnly reports whether every changed range was Cosmetic — the one
// case where the caller (the orchestrator, §4.4) must not write anything to
// the graph store even though the file's content byte-for-byte differs.
func (s ChangeSummary) CosmeticOnly() bool {
	if s.State != StateChanged || len(s.Ranges) == 0 {
		return s.State != StateChanged
	}
	for _, r := range s.Ranges {
		if r.Kind != ChangeCosmetic {
			return false
		}
	}
	return true
}

// Driver holds one TreeCacheEntry per file and runs the Unseen → Parsed →
// {Unchanged | Changed} state machine described in spec §4.3, grounded on
// the teacher's TreeSitterParser tree-reuse shape (parser.go) but
// generalized to hold a single prior tree per file instead of a shared
// parser/query cache.
type Driver struct {
	parsers    *ParserSet
	extractors *extract.Registry
	cache      *treeCache
}

// NewDriver builds a Driver that extracts with extractors.
func NewDriver(extractors *extract.Registry) *Driver {
	return &Driver{
		parsers:    NewParserSet(),
		extractors: extractors,
		cache:      newTreeCache(),
	}
}

// Forget evicts path's tree-cache entry. The caller is responsible for
// calling this when a file disappears from the workspace between ingest
// runs, so a stale tree doesn't linger for a path that no longer exists.
func (d *Driver) Forget(path string) {
	d.cache.delete(path)
}

// Process runs one file through the state machine, returning its
// (possibly merged) extraction result and a summary of what changed.
func (d *Driver) Process(fileID types.FileID, path string, lang types.Language, content []byte) (*extract.Result, ChangeSummary, error) {
	hash := contentHash(content)

	prev, known := d.cache.get(path)
	if !known {
		return d.fullParse(fileID, path, lang, content, hash, StateUnseen)
	}
	if prev.ContentHash == hash {
		return prev.Result, ChangeSummary{State: StateUnchanged}, nil
	}

	result, summary, err := d.incremental(fileID, path, lang, prev, content, hash)
	if err != nil {
		// Incremental reparse failed outright (not the parser returning a
		// broken tree, but an actual error): fall back to a full reparse
		// per spec §4.3's failure semantics.
		res, fallbackSummary, ferr := d.fullParse(fileID, path, lang, content, hash, StateChanged)
		if ferr != nil {
			// Full reparse also failed: report the file failed and keep
			// the prior cache entry untouched.
			return prev.Result, ChangeSummary{State: StateChanged}, cgerrors.NewParseError(path, 0, 0, ferr)
		}
		return res, fallbackSummary, nil
	}
	return result, summary, nil
}

func (d *Driver) fullParse(fileID types.FileID, path string, lang types.Language, content []byte, hash string, state FileState) (*extract.Result, ChangeSummary, error) {
	tree, err := d.parsers.Parse(lang, content, nil)
	if err != nil {
		return nil, ChangeSummary{}, cgerrors.NewParseError(path, 0, 0, err)
	}
	ex := d.extractors.Get(lang)
	if ex == nil {
		tree.Close()
		return nil, ChangeSummary{}, fmt.Errorf("parsing: no extractor registered for language %q", lang)
	}
	result, err := ex.Extract(fileID, path, content, tree)
	if err != nil {
		tree.Close()
		return nil, ChangeSummary{}, cgerrors.NewParseError(path, 0, 0, err)
	}
	assignMissingIDs(result)
	d.cache.put(&TreeCacheEntry{
		Path:        path,
		Language:    lang,
		Tree:        tree,
		Content:     content,
		ContentHash: hash,
		Result:      result,
		UpdatedAt:   time.Now(),
	})
	return result, ChangeSummary{State: state}, nil
}

func (d *Driver) incremental(fileID types.FileID, path string, lang types.Language, prev *TreeCacheEntry, content []byte, hash string) (*extract.Result, ChangeSummary, error) {
	edit := computeEdit(prev.Content, content)
	prev.Tree.Edit(&edit)

	newTree, err := d.parsers.Parse(lang, content, prev.Tree)
	if err != nil {
		return nil, ChangeSummary{}, err
	}

	ranges := prev.Tree.ChangedRanges(newTree)
	classified := make([]ChangedRange, 0, len(ranges))
	allCosmetic := true
	for _, r := range ranges {
		kind := classifyRange(lang, prev.Content, content, r)
		classified = append(classified, ChangedRange{Kind: kind, StartRow: r.StartPoint.Row, EndRow: r.EndPoint.Row})
		if kind != ChangeCosmetic {
			allCosmetic = false
		}
	}

	summary := ChangeSummary{State: StateChanged, Ranges: classified}

	if allCosmetic {
		// A Cosmetic-only diff must not touch the store, but the tree
		// cache still advances so the next diff is against current state.
		d.cache.put(&TreeCacheEntry{
			Path:        path,
			Language:    lang,
			Tree:        newTree,
			Content:     content,
			ContentHash: hash,
			Result:      prev.Result,
			UpdatedAt:   time.Now(),
		})
		return prev.Result, summary, nil
	}

	ex := d.extractors.Get(lang)
	if ex == nil {
		newTree.Close()
		return nil, ChangeSummary{}, fmt.Errorf("parsing: no extractor registered for language %q", lang)
	}
	fresh, err := ex.Extract(fileID, path, content, newTree)
	if err != nil {
		newTree.Close()
		return nil, ChangeSummary{}, err
	}

	merged := reconcile(prev.Result, fresh)
	d.cache.put(&TreeCacheEntry{
		Path:        path,
		Language:    lang,
		Tree:        newTree,
		Content:     content,
		ContentHash: hash,
		Result:      merged,
		UpdatedAt:   time.Now(),
	})
	return merged, summary, nil
}

// reconcile applies the spec §3/§4.3 identity-preservation rule: a node in
// the new extraction reuses its prior NodeId (and embedding handle) when
// its identity key (enclosing path + kind + name) matches a node from the
// previous result. Prior nodes with no surviving match are carried forward
// tombstoned rather than dropped, so edges still pointing at them resolve
// until the linker cleans them up.
func reconcile(prev, next *extract.Result) *extract.Result {
	if prev == nil {
		assignMissingIDs(next)
		return next
	}

	prevByKey := make(map[string]types.CodeNode, len(prev.Nodes))
	for _, n := range prev.Nodes {
		if !n.Tombstoned {
			prevByKey[n.IdentityKey()] = n
		}
	}

	seen := make(map[string]bool, len(next.Nodes))
	merged := make([]types.CodeNode, 0, len(next.Nodes)+len(prev.Nodes))
	for _, n := range next.Nodes {
		key := n.IdentityKey()
		if old, ok := prevByKey[key]; ok {
			n.ID = old.ID
			n.EmbeddingRef = old.EmbeddingRef
		} else if n.ID.IsZero() {
			n.ID = types.NewNodeId()
		}
		seen[key] = true
		merged = append(merged, n)
	}
	for _, n := range prev.Nodes {
		if n.Tombstoned || seen[n.IdentityKey()] {
			continue
		}
		tomb := n
		tomb.Tombstoned = true
		merged = append(merged, tomb)
	}

	return &extract.Result{Nodes: merged, Edges: next.Edges}
}

func assignMissingIDs(result *extract.Result) {
	for i := range result.Nodes {
		if result.Nodes[i].ID.IsZero() {
			result.Nodes[i].ID = types.NewNodeId()
		}
	}
}

// dependencyPrefixes names the import/use-style declaration line per
// language that, when touched, makes a changed range Dependency rather
// than Addition/Modification/Deletion.
var dependencyPrefixes = map[types.Language][]string{
	types.LanguageGo:         {"import"},
	types.LanguageRust:       {"use"},
	types.LanguagePython:     {"import", "from"},
	types.LanguageTypeScript: {"import", "export"},
	types.LanguageJavaScript: {"import", "export"},
}

func classifyRange(lang types.Language, oldContent, newContent []byte, r sitter.Range) ChangeKind {
	oldSlice := sliceRows(oldContent, r.StartPoint.Row, r.EndPoint.Row)
	newSlice := sliceRows(newContent, r.StartPoint.Row, r.EndPoint.Row)

	if semcache.SemanticHash(lang, oldSlice) == semcache.SemanticHash(lang, newSlice) {
		return ChangeCosmetic
	}

	oldDecl := semcache.DeclarationLines(lang, oldSlice)
	newDecl := semcache.DeclarationLines(lang, newSlice)

	if hasDependencyLine(lang, oldDecl) || hasDependencyLine(lang, newDecl) {
		return ChangeDependency
	}

	added := setDiff(newDecl, oldDecl)
	removed := setDiff(oldDecl, newDecl)
	switch {
	case len(added) > 0 && len(removed) == 0:
		return ChangeAddition
	case len(removed) > 0 && len(added) == 0:
		return ChangeDeletion
	default:
		return ChangeModification
	}
}

func hasDependencyLine(lang types.Language, lines []string) bool {
	prefixes := dependencyPrefixes[lang]
	for _, line := range lines {
		for _, p := range prefixes {
			if line == p || len(line) > len(p) && line[:len(p)+1] == p+" " {
				return true
			}
		}
	}
	return false
}

func setDiff(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if !inB[s] {
			out = append(out, s)
		}
	}
	return out
}

func sliceRows(content []byte, startRow, endRow uint) []byte {
	lines := bytes.Split(content, []byte("\n"))
	if int(startRow) >= len(lines) {
		return nil
	}
	end := int(endRow) + 1
	if end > len(lines) {
		end = len(lines)
	}
	if end <= int(startRow) {
		end = int(startRow) + 1
	}
	return bytes.Join(lines[startRow:end], []byte("\n"))
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// computeEdit builds the single InputEdit tree-sitter needs to reuse
// unaffected subtrees: the common byte prefix and suffix between old and
// new content bound the edited middle region.
func computeEdit(oldContent, newContent []byte) sitter.InputEdit {
	prefix := commonPrefixLen(oldContent, newContent)

	oldTail := oldContent[prefix:]
	newTail := newContent[prefix:]
	suffix := commonSuffixLen(oldTail, newTail)

	oldEnd := len(oldContent) - suffix
	newEnd := len(newContent) - suffix
	if oldEnd < prefix {
		oldEnd = prefix
	}
	if newEnd < prefix {
		newEnd = prefix
	}

	return sitter.InputEdit{
		StartByte:      uint(prefix),
		OldEndByte:     uint(oldEnd),
		NewEndByte:     uint(newEnd),
		StartPosition:  pointAt(oldContent, prefix),
		OldEndPosition: pointAt(oldContent, oldEnd),
		NewEndPosition: pointAt(newContent, newEnd),
	}
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func pointAt(content []byte, offset int) sitter.Point {
	row, col := 0, 0
	for i := 0; i < offset && i < len(content); i++ {
		if content[i] == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return sitter.Point{Row: uint(row), Column: uint(col)}
}
