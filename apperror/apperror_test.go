package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    int
	}{
		{AuthError, http.StatusUnauthorized},
		{UnauthorizedError, http.StatusForbidden},
		{NotFoundError, http.StatusNotFound},
		{ValidationError, http.StatusBadRequest},
		{BadRequestError, http.StatusBadRequest},
		{ConflictError, http.StatusConflict},
		{DatabaseError, http.StatusInternalServerError},
		{ConfigError, http.StatusInternalServerError},
		{InternalError, http.StatusInternalServerError},
		{MigrationError, http.StatusInternalServerError},
		{UnknownError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := NewAppError(tt.errType, "msg", nil)
		if got := err.StatusCode(); got != tt.want {
			t.Errorf("StatusCode() for type %d = %d, want %d", tt.errType, got, tt.want)
		}
	}
}

func TestErrorAndUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewDatabaseError("failed to query", underlying)

	if err.Error() != "failed to query: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should reach the wrapped error")
	}

	bare := NewNotFoundError("task not found", nil)
	if bare.Error() != "task not found" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestToResponse_HidesUnderlyingError(t *testing.T) {
	err := NewDatabaseError("failed to query", errors.New("password=hunter2 dial error"))
	resp := err.ToResponse()
	if resp.Error != "failed to query" {
		t.Errorf("ToResponse().Error = %q, want only the user-facing message", resp.Error)
	}
}

func TestFromError(t *testing.T) {
	appErr := NewValidationError("bad input", nil)

	t.Run("direct", func(t *testing.T) {
		got, ok := FromError(appErr)
		if !ok || got != appErr {
			t.Errorf("FromError() = %v, %v", got, ok)
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", appErr)
		got, ok := FromError(wrapped)
		if !ok || got != appErr {
			t.Errorf("FromError(wrapped) = %v, %v", got, ok)
		}
	})

	t.Run("foreign error", func(t *testing.T) {
		if _, ok := FromError(errors.New("plain")); ok {
			t.Error("FromError() should not match a plain error")
		}
	})

	t.Run("nil", func(t *testing.T) {
		if _, ok := FromError(nil); ok {
			t.Error("FromError(nil) should report false")
		}
	})
}

func TestTypePredicates(t *testing.T) {
	if !IsNotFound(NewNotFoundError("x", nil)) || IsNotFound(NewAuthError("x", nil)) {
		t.Error("IsNotFound misclassifies")
	}
	if !IsAuthError(NewAuthError("x", nil)) || IsAuthError(NewConflictError("x", nil)) {
		t.Error("IsAuthError misclassifies")
	}
	if !IsValidationError(NewValidationError("x", nil)) || IsValidationError(nil) {
		t.Error("IsValidationError misclassifies")
	}
	if !IsConflictError(fmt.Errorf("store: %w", NewConflictError("x", nil))) {
		t.Error("IsConflictError should see through wrapping")
	}
}
