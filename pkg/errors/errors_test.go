package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesKindAndMessage(t *testing.T) {
	err := New(KindValidation, "content must not be blank")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "validation_error: content must not be blank", err.Error())
}

func TestWithAttachesDetails(t *testing.T) {
	err := New(KindCircularReference, "link would create a cycle").
		With("path", []string{"branch-a", "branch-b", "branch-a"})

	assert.Equal(t, KindCircularReference, err.Kind)
	assert.Contains(t, err.Details, "path")
}

func TestNormalizePassesEngineErrorsThrough(t *testing.T) {
	original := Newf(KindBranchNotFound, "branch not found: %s", "branch-x")
	normalized := Normalize(original)
	assert.Same(t, original, normalized)
}

func TestNormalizeWrapsForeignErrors(t *testing.T) {
	normalized := Normalize(stderrors.New("disk on fire"))
	assert.Equal(t, KindUnknown, normalized.Kind)
	assert.Equal(t, "disk on fire", normalized.Message)
}

func TestNormalizeUnwrapsWrappedEngineErrors(t *testing.T) {
	inner := New(KindEvaluation, "dimension coherence failed")
	wrapped := fmt.Errorf("pipeline: %w", inner)

	normalized := Normalize(wrapped)
	assert.Equal(t, KindEvaluation, normalized.Kind)
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestIsKind(t *testing.T) {
	err := New(KindThoughtNotFound, "thought not found: th-abc")
	assert.True(t, IsKind(err, KindThoughtNotFound))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(stderrors.New("plain"), KindThoughtNotFound))
}

func TestPayloadShape(t *testing.T) {
	err := New(KindContradiction, "thoughts conflict").
		With("thoughtIds", []string{"th-1", "th-2"})

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal([]byte(PayloadJSON(err)), &decoded))

	assert.Equal(t, "thoughts conflict", decoded["error"])
	assert.Equal(t, "failed", decoded["status"])
	assert.Equal(t, string(KindContradiction), decoded["kind"])
	assert.Contains(t, decoded["details"], "thoughtIds")
}

func TestPayloadJSONNormalizesForeignErrors(t *testing.T) {
	var decoded map[string]any
	assert.NoError(t, json.Unmarshal([]byte(PayloadJSON(stderrors.New("boom"))), &decoded))
	assert.Equal(t, "failed", decoded["status"])
	assert.Equal(t, string(KindUnknown), decoded["kind"])
}
