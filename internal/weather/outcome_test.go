package weather

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionErrorMatchesKindSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewError(KindNetworkFailure, "weatherapi", cause)

	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "weatherapi: network failure: dial tcp: connection refused", err.Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", NewError(KindNotFound, "nominatim", nil))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindPermissionDenied, KindOf(ErrPermissionDenied))
	assert.Equal(t, KindNetworkFailure, KindOf(errors.New("boom")))
}

func TestOutcome(t *testing.T) {
	ok := Success(42)
	require.True(t, ok.OK())
	v, err := ok.Unpack()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	failed := Failure[int](KindUnsupported, "", errors.New("no gps"))
	require.False(t, failed.OK())
	v, err = failed.Unpack()
	assert.Zero(t, v)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFailureFromKeepsClassification(t *testing.T) {
	orig := NewError(KindAllProvidersExhausted, "", errors.New("all down"))
	out := FailureFrom[Location](fmt.Errorf("wrap: %w", orig))
	require.False(t, out.OK())
	assert.Same(t, orig, out.Err)

	out = FailureFrom[Location](ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, out.Err.Kind)
}
