package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/querify/internal/compiler"
	"github.com/roach88/querify/internal/queryir"
)

// LoadMode controls how errors are handled during query loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading query definitions from a directory.
type LoadResult struct {
	Queries   []*compiler.Query
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during query loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries loads and compiles the CUE query definitions in a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
//
// A nil result means nothing could be compiled; the single error says why.
func LoadQueries(dir string, mode LoadMode) (*LoadResult, []error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("queries directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing queries directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadDir(dir)
	if err != nil {
		// LoadDir reports build failures as compile errors with a position
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}}
		}
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	queries, compileErrs := compiler.CompileQueries(value, mode == LoadModeFailFast)
	result.Queries = queries

	errs := make([]error, 0, len(compileErrs))
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err, "query"))
	}

	if len(result.Queries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoQueries, Message: "no queries found in definitions"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
// The message keeps the query path the compiler prefixed the error with.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field, err),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadInput    = "E008" // Filter input could not be read or decoded

	// Query definition errors
	ErrCodeNoQueries         = "E100" // No query definitions
	ErrCodeQuerySchema       = "E101" // Definition violates the #Query schema
	ErrCodeQueryShape        = "E102" // Not exactly one statement
	ErrCodeInvalidTarget     = "E103" // Unknown target name
	ErrCodeInvalidStatement  = "E104" // Statement or its filter rejected
	ErrCodeInvalidFilter     = "E105" // Command-line filter rejected by the builder
	ErrCodeRenderUnsupported = "E106" // Target cannot express the query
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string, err error) string {
	switch field {
	case "cue", "schema":
		return ErrCodeQuerySchema
	case "query":
		return ErrCodeQueryShape
	case "targets":
		return ErrCodeInvalidTarget
	case "select", "show_tag_keys", "show_columns":
		if queryir.CodeOf(err) == "" {
			return ErrCodeGeneric
		}
		return ErrCodeInvalidStatement
	default:
		return ErrCodeGeneric
	}
}

// codeForQueryError maps a query-building or rendering error to an error code.
func codeForQueryError(err error) string {
	switch queryir.CodeOf(err) {
	case "":
		return ErrCodeGeneric
	case queryir.ErrCodeUnsupported:
		return ErrCodeRenderUnsupported
	default:
		return ErrCodeInvalidFilter
	}
}
