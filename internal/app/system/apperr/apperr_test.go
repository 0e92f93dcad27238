package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := apperr.New(apperr.KindInvalidTransition, "report %s is resolved", "r1")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.NotErrorIs(t, err, apperr.ErrNotFound)

	wrapped := fmt.Errorf("assign: %w", err)
	require.ErrorIs(t, wrapped, apperr.ErrInvalidTransition)
	require.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(wrapped))
}

func TestStorage_ClassifiesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Storage("insert report", cause)
	require.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "insert report failed", apperr.Message(err))

	err = apperr.Storage("find report", fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	require.ErrorIs(t, err, apperr.ErrTimeout)

	nf := apperr.NotFound("worker")
	require.Same(t, nf, apperr.Storage("find worker", nf))
	require.NoError(t, apperr.Storage("noop", nil))
}

func TestKindOf_Unclassified(t *testing.T) {
	require.Equal(t, apperr.Kind(""), apperr.KindOf(errors.New("boom")))
	require.Equal(t, "internal error", apperr.Message(errors.New("boom")))
}

func TestHTTP(t *testing.T) {
	e := apperr.HTTP(fmt.Errorf("assign: %w", apperr.ErrForbiddenAssignment))
	require.Equal(t, "forbidden_assignment", e.Code)
	require.Equal(t, http.StatusForbidden, e.HTTPStatus())
	require.ErrorIs(t, e, apperr.ErrForbiddenAssignment)

	e = apperr.HTTP(fmt.Errorf("list: %w", context.DeadlineExceeded))
	require.Equal(t, "timeout", e.Code)
	require.Equal(t, http.StatusGatewayTimeout, e.HTTPStatus())

	e = apperr.HTTP(errors.New("mongo: secret detail"))
	require.Equal(t, "internal_error", e.Code)
	require.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	require.NotContains(t, e.Message, "secret")

	require.NotSame(t, apperr.HTTP(apperr.ErrNotFound), apperr.HTTP(apperr.ErrNotFound))
}
