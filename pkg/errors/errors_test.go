package errors

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInvalidFormat, cause, "failed to decode")

	if err.Code != ErrCodeInvalidFormat {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidFormat)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestConversion(t *testing.T) {
	err := Conversion(ErrCodeUnmatchedConnection, "b", "a")

	if err.Code != ErrCodeUnmatchedConnection {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnmatchedConnection)
	}
	if !slices.Equal(err.Refs, []string{"b", "a"}) {
		t.Errorf("Refs = %v, want [b a]", err.Refs)
	}
	want := "UNMATCHED_CONNECTION: unmatched connection (b, a)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      Conversion(ErrCodeSwitchCourseUnknown, "sw1"),
			code:     ErrCodeSwitchCourseUnknown,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeSwitchCourseUnknown,
			expected: false,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("import: %w", Conversion(ErrCodeTrackContinuationMismatch, "a", "b")),
			code:     ErrCodeTrackContinuationMismatch,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCodeAndRefs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantRefs []string
	}{
		{
			name:     "conversion error",
			err:      Conversion(ErrCodeTrackEndpointMissing, "3", "B"),
			wantCode: ErrCodeTrackEndpointMissing,
			wantRefs: []string{"3", "B"},
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			wantCode: "",
		},
		{
			name:     "nil",
			err:      nil,
			wantCode: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %v, want %v", got, tt.wantCode)
			}
			if got := GetRefs(tt.err); !slices.Equal(got, tt.wantRefs) {
				t.Errorf("GetRefs() = %v, want %v", got, tt.wantRefs)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "conversion error",
			err:      Conversion(ErrCodeSwitchConnectionTooMany, "cr7"),
			expected: "switch connection too many (cr7)",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
