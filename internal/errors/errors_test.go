package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "task t1 not found"},
			want: "task t1 not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "claim task",
				Cause:   errors.New("connection reset"),
			},
			want: "claim task: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause through Unwrap")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{"invalid argument", InvalidArgument("worker id is required"), ErrCodeInvalidArgument, "worker id is required"},
		{"invalid argument formatted", InvalidArgumentf("unknown outcome %q", "DONE"), ErrCodeInvalidArgument, `unknown outcome "DONE"`},
		{"illegal state", IllegalState("task is in progress"), ErrCodeIllegalState, "task is in progress"},
		{"illegal state formatted", IllegalStatef("task %s is gone", "t1"), ErrCodeIllegalState, "task t1 is gone"},
		{"not found", NotFound("missing"), ErrCodeNotFound, "missing"},
		{"not found formatted", NotFoundf("task %s not found", "t1"), ErrCodeNotFound, "task t1 not found"},
		{"duplicate key", DuplicateKey("exists"), ErrCodeDuplicateKey, "exists"},
		{"internal", Internal("boom"), ErrCodeInternal, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestInvalidField(t *testing.T) {
	err := InvalidField("job_type", "job type is required")
	if err.Code != ErrCodeInvalidArgument || err.Field != "job_type" {
		t.Errorf("InvalidField() = %+v", err)
	}
	if GetField(fmt.Errorf("submit: %w", err)) != "job_type" {
		t.Errorf("GetField should unwrap")
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "ignored"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"invalid argument", InvalidArgument("x"), IsInvalidArgument},
		{"illegal state", IllegalState("x"), IsIllegalState},
		{"not found", NotFound("x"), IsNotFound},
		{"duplicate key", DuplicateKey("x"), IsDuplicateKey},
		{"internal", Internal("x"), IsInternal},
		{"timeout", Wrap(errors.New("x"), ErrCodeTimeout, "x"), IsTimeout},
		{"canceled", Wrap(errors.New("x"), ErrCodeCanceled, "x"), IsCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.is(wrapped) {
				t.Errorf("predicate did not match wrapped error")
			}
			if tt.is(errors.New("plain")) {
				t.Errorf("predicate matched a plain error")
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(errors.New("plain")) != "" {
		t.Errorf("GetCode(plain) should be empty")
	}
	if GetCode(IllegalState("x")) != ErrCodeIllegalState {
		t.Errorf("GetCode(IllegalState) mismatch")
	}
}
