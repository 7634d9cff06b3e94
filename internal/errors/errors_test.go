package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	fix := FixAction{Type: RunCommand, Command: "mashclust download --start-from-batch 12"}

	err := New(SuccessRateBelowFloor, "success rate 0.80 below 0.95", cause, fix)

	if err.Code != SuccessRateBelowFloor {
		t.Errorf("Code = %v, want %v", err.Code, SuccessRateBelowFloor)
	}
	if err.Message != "success rate 0.80 below 0.95" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestMashclustError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      InputMissing,
			message:   "distance file not found",
			cause:     errors.New("no such file or directory"),
			wantParts: []string{"INPUT_MISSING", "distance file not found", "no such file"},
		},
		{
			name:      "without cause",
			code:      HeaderEmpty,
			message:   "distance header has no columns",
			wantParts: []string{"HEADER_EMPTY", "distance header has no columns"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want it to contain %q", got, part)
				}
			}
		})
	}
}

func TestMashclustError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("writing outputs: %w", New(ExportFailed, "write representatives", cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the underlying cause")
	}
	if !errors.Is(err, &MashclustError{Code: ExportFailed}) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, &MashclustError{Code: InputMissing}) {
		t.Error("errors.Is should not match a different code")
	}

	var me *MashclustError
	if !errors.As(err, &me) {
		t.Fatal("errors.As should find the MashclustError")
	}
	if me.Code != ExportFailed {
		t.Errorf("Code = %v, want %v", me.Code, ExportFailed)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	wrapped := fmt.Errorf("outer: %w", New(ToolUnavailable, "mash not found", nil))
	if got := CodeOf(wrapped); got != ToolUnavailable {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ToolUnavailable)
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(ToolUnavailable); len(fixes) == 0 {
		t.Error("expected fixes for TOOL_UNAVAILABLE")
	}
	if fixes := GetSuggestedFixes(HeaderEmpty); fixes != nil {
		t.Errorf("expected no fixes for HEADER_EMPTY, got %v", fixes)
	}
}
