package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

type customErr struct{}

func (customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: apperrors.IllegalState("task is in progress"), want: "illegal_state"},
		{name: "wrapped app error", err: fmt.Errorf("cancel: %w", apperrors.NotFound("gone")), want: "not_found"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
		{name: "unwraps to innermost", err: fmt.Errorf("outer: %w", customErr{}), want: "errors_customerr"},
		{name: "context", err: context.Canceled, want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
