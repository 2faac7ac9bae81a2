package vectorindex

import "github.com/standardbeagle/codegraph/internal/cgerrors"

// New builds an index of the requested type. dim and params are fixed for
// the lifetime of the returned instance, per spec §4.7's "immutable
// thereafter per index instance" rule.
func New(idxType Type, dim int, params Params) (Index, error) {
	switch idxType {
	case TypeFlat:
		return NewFlat(dim), nil
	case TypeHNSW:
		return NewHNSW(dim, params), nil
	case TypeIVF:
		return NewIVF(dim, params), nil
	case TypeLSH:
		return NewLSH(dim, params), nil
	case TypePQ:
		return NewPQ(dim, params), nil
	default:
		return nil, cgerrors.NewValidationError("vector_index_type", string(idxType), "unknown index type")
	}
}
