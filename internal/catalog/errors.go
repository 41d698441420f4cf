package catalog

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes. Loader codes mirror the CLI's E0xx range; validation codes
// use E2xx.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No catalog files found
	ErrCodeLoadFailed  = "E004" // CUE load or YAML parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDecode      = "E007" // Value has the wrong shape

	ErrCodeEmptyID         = "E201" // Node or routine without id
	ErrCodeDuplicateID     = "E202" // Same id declared twice
	ErrCodeSelfReference   = "E203" // Node requires itself
	ErrCodeUnknownParent   = "E204" // Hack names a level that does not exist
	ErrCodeParentNotLevel  = "E205" // Hack's parent is a hack
	ErrCodeUnknownStep     = "E206" // Routine step is not a known hack
	ErrCodeEmptyRoutine    = "E207" // Routine without steps
	ErrCodeRepeatedStep    = "E208" // Routine lists a hack twice
	ErrCodeDanglingRequire = "W201" // Prerequisite names no known node
)

// LoadError is one finding while loading or validating a catalog.
type LoadError struct {
	Code    string
	Message string
	ID      string    // node or routine id, if any
	Pos     token.Pos // CUE position if available
	File    string    // YAML file, if any
	Line    int       // YAML line, if known

	// Warning findings do not fail the load.
	Warning bool
}

func (e *LoadError) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Position renders the location of the finding, or "" when unknown.
func (e *LoadError) Position() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d", e.File, e.Line)
	default:
		return e.File
	}
}
