package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeAuthenticity, http.StatusBadRequest, false, false},
		{CodeUnauthorized, http.StatusUnauthorized, false, false},
		{CodeNotFound, http.StatusNotFound, true, true},
		{CodeConflict, http.StatusConflict, false, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false, true},
		{CodeIdempotency, http.StatusConflict, false, true},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusInternalServerError, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestErrorStringIncludesCause(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: payment order_1_abc not found", Newf(CodeNotFound, "payment %s not found", "order_1_abc").Error())

	wrapped := Wrapf(CodeDependency, stdErrors.New("conn reset"), "load payment %d", 7)
	assert.Equal(t, "DEPENDENCY_ERROR: load payment 7: conn reset", wrapped.Error())
	assert.Equal(t, "VALIDATION_ERROR: bad", Wrap(CodeValidation, nil, "bad").Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load payment")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeDependency, wrapped.Code())
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing reference")
	assert.Nil(t, err.Details())

	err.WithDetails(map[string]any{"provider": "aggregator"})
	assert.Equal(t, map[string]any{"provider": "aggregator"}, err.Details())

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails("x"))
}

func TestCodeOfThroughFmtWrap(t *testing.T) {
	outer := fmt.Errorf("reconcile: %w", New(CodeNotFound, "payment not found"))
	assert.Equal(t, CodeNotFound, CodeOf(outer))
	assert.True(t, IsCode(outer, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestAsReturnsTypedError(t *testing.T) {
	got := As(fmt.Errorf("verify: %w", New(CodeAuthenticity, "bad signature")))
	require.NotNil(t, got)
	assert.Equal(t, CodeAuthenticity, got.Code())
	assert.Nil(t, As(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeNotFound, "unknown api_ref")))
	assert.True(t, Retryable(stdErrors.New("untyped")))
	assert.False(t, Retryable(New(CodeAuthenticity, "bad signature")))
	assert.False(t, Retryable(nil))
}
