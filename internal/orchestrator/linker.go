package orchestrator

import (
	"strings"

	"github.com/standardbeagle/codegraph/internal/types"
)

// Link resolves every unresolved NodeRef in edges against a global symbol
// table built from nodes' qualified names (EnclosingPath + "." + Name) and,
// as a fallback, bare names. Per spec §9's resolved Open Question, an
// ambiguous short name is left unresolved with metadata["reason"]=
// "ambiguous" rather than guessing the first match (contrary to the
// teacher's linker_engine.go, which does pick the first candidate).
func Link(nodes []types.CodeNode, edges []types.EdgeRelationship) {
	byQualified := make(map[string]types.NodeId, len(nodes))
	byShort := make(map[string][]types.NodeId, len(nodes))

	for _, n := range nodes {
		if n.Tombstoned {
			continue
		}
		qualified := qualifiedName(n)
		byQualified[qualified] = n.ID
		byShort[n.Name] = append(byShort[n.Name], n.ID)
	}

	for i := range edges {
		e := &edges[i]
		if e.To.Resolved() {
			continue
		}
		symbol := e.To.Symbol()
		if id, ok := byQualified[symbol]; ok {
			e.To = types.ResolvedRef(id)
			e.ToID = id
			continue
		}
		short := lastSegment(symbol)
		candidates := byShort[short]
		switch len(candidates) {
		case 0:
			e.Unresolved("not_found")
		case 1:
			e.To = types.ResolvedRef(candidates[0])
			e.ToID = candidates[0]
		default:
			e.Unresolved("ambiguous")
		}
		e.ToSymbol = symbol
	}
}

func qualifiedName(n types.CodeNode) string {
	if n.EnclosingPath == "" {
		return n.Name
	}
	return n.EnclosingPath + "." + n.Name
}

func lastSegment(symbol string) string {
	if idx := strings.LastIndexAny(symbol, ".::"); idx >= 0 {
		return symbol[idx+1:]
	}
	return symbol
}
