package pipeline

import (
	"errors"
	"fmt"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
)

type ErrorKind string

const (
	ErrorAVConnection            ErrorKind = "ANTIVIRUS_CONNECTION_ERROR"
	ErrorAVFailure               ErrorKind = "ANTIVIRUS_FAILURE"
	ErrorSuspiciousFile          ErrorKind = "SUSPICIOUS_FILE"
	ErrorNestedZipForbidden      ErrorKind = "NESTED_ZIP_FORBIDDEN"
	ErrorZipTooLarge             ErrorKind = "ZIP_TOO_LARGE"
	ErrorFileTooLarge            ErrorKind = "FILE_TOO_LARGE"
	ErrorNoDataFound             ErrorKind = "NO_DATA_FOUND"
	ErrorXMLSyntax               ErrorKind = "XML_SYNTAX_ERROR"
	ErrorDangerousXML            ErrorKind = "DANGEROUS_XML_ERROR"
	ErrorSchemaVersionMissing    ErrorKind = "SCHEMA_VERSION_MISSING"
	ErrorNoValidFileToProcess    ErrorKind = "NO_VALID_FILE_TO_PROCESS"
	ErrorNoRowFound              ErrorKind = "NO_ROW_FOUND"
	ErrorDownloadTimeout         ErrorKind = "DOWNLOAD_TIMEOUT"
	ErrorDownloadProxy           ErrorKind = "DOWNLOAD_PROXY_ERROR"
	ErrorDownloadPermission      ErrorKind = "DOWNLOAD_PERMISSION_DENIED"
	ErrorDownloadNotFound        ErrorKind = "DOWNLOAD_NOT_FOUND"
	ErrorDownloadOther           ErrorKind = "DOWNLOAD_OTHER_ERROR"
	ErrorDownloadUnknownFiletype ErrorKind = "DOWNLOAD_UNKNOWN_FILETYPE"
)

// Error is the one error type every stage raises. Validation marks a
// content problem (the operator must resubmit) as opposed to an
// infrastructure one (the workflow engine may retry).
type Error struct {
	Kind       ErrorKind
	Message    string
	Validation bool

	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

func NewValidationError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Validation: true}
}

func NewInfrastructureError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), wrapped: err}
}

// KindOf maps any error to a persisted error kind. A missing catalogue
// row keeps its own code; anything else that is not a pipeline Error is
// treated as a suspicious file, the catch-all the UI understands.
func KindOf(err error) ErrorKind {
	var pipelineError *Error
	if errors.As(err, &pipelineError) {
		return pipelineError.Kind
	}

	if errors.Is(err, catalogue.ErrNoRowFound) {
		return ErrorNoRowFound
	}

	return ErrorSuspiciousFile
}

// IsValidation reports whether the error is a content problem rather than
// an infrastructure failure.
func IsValidation(err error) bool {
	var pipelineError *Error
	if errors.As(err, &pipelineError) {
		return pipelineError.Validation
	}

	return false
}
