package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InputMissing indicates a required input file does not exist
	InputMissing ErrorCode = "INPUT_MISSING"
	// HeaderEmpty indicates the distance file has no column ids
	HeaderEmpty ErrorCode = "HEADER_EMPTY"
	// InvalidConfig indicates configuration failed validation
	InvalidConfig ErrorCode = "INVALID_CONFIG"
	// ExportFailed indicates an output artifact could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// ToolUnavailable indicates an external binary or script is missing
	ToolUnavailable ErrorCode = "TOOL_UNAVAILABLE"
	// ToolFailed indicates an external tool exited with an error
	ToolFailed ErrorCode = "TOOL_FAILED"
	// SuccessRateBelowFloor indicates the acquisition circuit breaker tripped
	SuccessRateBelowFloor ErrorCode = "SUCCESS_RATE_BELOW_FLOOR"
	// NoValidAccessions indicates the accession list had nothing usable
	NoValidAccessions ErrorCode = "NO_VALID_ACCESSIONS"
	// NoGenomes indicates a stage produced or found zero genomes
	NoGenomes ErrorCode = "NO_GENOMES"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// MashclustError represents an error with code, message, and suggestions
type MashclustError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new MashclustError
func New(code ErrorCode, message string, cause error, suggestedFixes ...FixAction) *MashclustError {
	return &MashclustError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *MashclustError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MashclustError) Unwrap() error {
	return e.cause
}

// Is matches another MashclustError by code, so sentinel comparisons work
// with errors.Is.
func (e *MashclustError) Is(target error) bool {
	t, ok := target.(*MashclustError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *MashclustError) WithDetails(details interface{}) *MashclustError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if me, ok := err.(*MashclustError); ok {
			return me.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ToolUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "mash",
			Description: "Install mash, NCBI datasets and quicktree (e.g. via bioconda)",
			URL:         "https://mash.readthedocs.io",
		},
	},
	NoValidAccessions: {
		{
			Type:        OpenDocs,
			Description: "Accessions must look like GCF_000000000.1 or GCA_000000000.1, one per line",
		},
	},
	InvalidConfig: {
		{
			Type:        RunCommand,
			Command:     "mashclust config init",
			Description: "Write a fresh configuration file with defaults",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
