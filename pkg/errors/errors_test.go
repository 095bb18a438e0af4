package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatusMapsTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, ErrAuth.Code},
		{http.StatusForbidden, ErrForbidden.Code},
		{http.StatusNotFound, ErrNotFound.Code},
		{http.StatusInternalServerError, ErrServer.Code},
		{http.StatusBadRequest, ErrServer.Code},
	}
	for _, tc := range cases {
		err := FromStatus(tc.status, "boom")
		assert.Equal(t, tc.code, err.Code, "status %d", tc.status)
		assert.Equal(t, "boom", err.Message)
		assert.Equal(t, tc.status, err.Status)
	}
}

func TestFromStatusKeepsDefaultMessageWhenEmpty(t *testing.T) {
	err := FromStatus(http.StatusUnauthorized, "")
	assert.Equal(t, ErrAuth.Message, err.Message)
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrNotFound, "student not found")
	assert.Equal(t, "student not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorNormalises(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrAuth, "invalid credentials"))
	err := FromError(wrapped)
	require.NotNil(t, err)
	assert.Equal(t, ErrAuth.Code, err.Code)

	plain := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrServer.Code, plain.Code)

	assert.Nil(t, FromError(nil))
}

func TestIsComparesByCode(t *testing.T) {
	assert.True(t, Is(Clone(ErrTransport, "backend unreachable"), ErrTransport))
	assert.False(t, Is(Clone(ErrTransport, "x"), ErrAuth))
}
