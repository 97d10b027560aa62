package dbretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/projectamerika/mayflower/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), want: true},
		{name: "unexpected EOF", err: errors.New("unexpected EOF"), want: true},
		{name: "syntax error", err: errors.New("ERROR: syntax error at or near \"SELEC\""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestOperation(t *testing.T) {
	t.Parallel()

	t.Run("retries transient failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		result, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
			calls++
			if calls < 2 {
				return 0, errors.New("read: connection reset by peer")
			}

			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, result)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on permanent failures", func(t *testing.T) {
		t.Parallel()

		errSyntax := errors.New("syntax error")
		calls := 0

		err := dbretry.NoResult(t.Context(), func(context.Context) error {
			calls++
			return errSyntax
		})
		require.ErrorIs(t, err, errSyntax)
		assert.Equal(t, 1, calls)
	})
}
