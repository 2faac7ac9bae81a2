package cgerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds_Wrap(t *testing.T) {
	underlying := errors.New("boom")

	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"io", NewIoError("read", "a.go", underlying), KindIo},
		{"parse", NewParseError("a.go", 1, 2, underlying), KindParse},
		{"schema", NewSchemaError("version", "3", "2", underlying), KindSchema},
		{"transaction", NewTransactionError("commit", underlying), KindTransaction},
		{"vector", NewVectorError("main", underlying), KindVector},
		{"provider", NewProviderError("openai-compatible", 3, underlying), KindProvider},
		{"internal", NewInternalError("bijection", underlying), KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, underlying)
			assert.Contains(t, tc.err.Error(), "boom")
		})
	}
}

func TestValidationError_NoUnwrap(t *testing.T) {
	err := NewValidationError("dim", "0", "must be positive")
	assert.Equal(t, KindValidation, err.Kind())
	assert.Contains(t, err.Error(), "dim")
}

func TestCancelledError(t *testing.T) {
	err := NewCancelledError("ingest")
	assert.Equal(t, KindCancelled, err.Kind())
	assert.Equal(t, "ingest cancelled", err.Error())
}

func TestMultiError_FiltersNil(t *testing.T) {
	err := NewMultiError([]error{nil, errors.New("a"), nil, errors.New("b")})
	assert.Len(t, err.Errors, 2)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestMultiError_AllNil(t *testing.T) {
	assert.Nil(t, NewMultiError([]error{nil, nil}))
}

func TestMultiError_Single(t *testing.T) {
	err := NewMultiError([]error{errors.New("solo")})
	assert.Equal(t, "solo", err.Error())
}
