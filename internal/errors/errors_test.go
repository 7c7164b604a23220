package errors

import (
	"fmt"
	"testing"
)

func TestLaminaError_Error(t *testing.T) {
	err := &LaminaError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "slide not found",
	}

	expected := "NOT_FOUND: slide not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("slide_id is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "slide_id is required" {
		t.Errorf("Message = %q, want %q", err.Message, "slide_id is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("slide", "intro")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Message != "slide not found: intro" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["identifier"] != "intro" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "intro")
	}
	if err.Details["kind"] != "slide" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "slide")
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("record already exists")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewFormatLocked(t *testing.T) {
	err := NewFormatLocked("s1", "wide", "square", 3)

	if err.Code != ErrFormatLocked {
		t.Errorf("Code = %q, want %q", err.Code, ErrFormatLocked)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["records"] != 3 {
		t.Errorf("Details[records] = %v, want 3", err.Details["records"])
	}
	if err.Details["requested"] != "square" {
		t.Errorf("Details[requested] = %v, want square", err.Details["requested"])
	}
}

func TestNewRecordTooLarge(t *testing.T) {
	err := NewRecordTooLarge(200000, 250000)

	if err.Code != ErrRecordTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrRecordTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_points"] != 200000 {
		t.Errorf("Details[max_points] = %v, want 200000", err.Details["max_points"])
	}
	if err.Details["actual_points"] != 250000 {
		t.Errorf("Details[actual_points] = %v, want 250000", err.Details["actual_points"])
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/x.jsonl")

	if err.Code != ErrFileNotFound || err.Status != 404 {
		t.Errorf("got %s/%d, want FILE_NOT_FOUND/404", err.Code, err.Status)
	}
	if err.Details["path"] != "/tmp/x.jsonl" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "export cancelled")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("record", "r1"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("record", "r1"), ErrConflict) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-LaminaError", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-LaminaError")
		}
	})

	t.Run("wrapped LaminaError", func(t *testing.T) {
		wrapped := fmt.Errorf("save interaction record: %w", NewFormatLocked("s1", "wide", "square", 1))
		if !Is(wrapped, ErrFormatLocked) {
			t.Error("Is() = false, want true for wrapped LaminaError")
		}
		if Is(wrapped, ErrConflict) {
			t.Error("Is() = true, want false for wrong code on wrapped LaminaError")
		}
		lErr, ok := As(wrapped)
		if !ok || lErr.Status != 409 {
			t.Errorf("As() = %v, %v", lErr, ok)
		}
	})
}
