package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeMessagingError     ErrorCode = "COMMON_011"
	ErrCodeCancelled          ErrorCode = "COMMON_012"
)

// Aliases used throughout the codebase
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeUnavailable    = ErrCodeServiceUnavailable
	CodeTimeout        = ErrCodeTimeout
	CodeValidation     = ErrCodeValidation
	CodeSerialization  = ErrCodeSerialization
	CodeDatabaseError  = ErrCodeDatabaseError
	CodeCacheError     = ErrCodeCacheError
	CodeMessagingError = ErrCodeMessagingError
	CodeCancelled      = ErrCodeCancelled
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	// Domain specific aliases
	CodeCaseNotFound      = ErrCodeCaseNotFound
	CodeSelfCitation      = ErrCodeSelfCitation
	CodeInvalidMetadata   = ErrCodeCaseInvalidMetadata
	CodeNoSnapshot        = ErrCodeNoSnapshot
	CodeInvalidOptions    = ErrCodeRankingOptionsInvalid
	CodeEventInvalid      = ErrCodeEventInvalid
	CodeSpoolUnavailable  = ErrCodeSpoolUnavailable
	CodeGraphLoadFailed   = ErrCodeGraphLoadFailed
	CodeScoreWriteFailed  = ErrCodeScoreWriteFailed
)

// Case / Graph Module Error Codes
const (
	ErrCodeCaseNotFound        ErrorCode = "CASE_001"
	ErrCodeCaseInvalidMetadata ErrorCode = "CASE_002"
	ErrCodeSelfCitation        ErrorCode = "CASE_003"
	ErrCodeEdgeEndpointMissing ErrorCode = "CASE_004"
)

// Ranking Module Error Codes
const (
	ErrCodeNoSnapshot            ErrorCode = "RANK_001"
	ErrCodeRankingOptionsInvalid ErrorCode = "RANK_002"
	ErrCodeRecomputeAborted      ErrorCode = "RANK_003"
)

// Ingestion Module Error Codes
const (
	ErrCodeEventInvalid     ErrorCode = "ING_001"
	ErrCodeSpoolUnavailable ErrorCode = "ING_002"
	ErrCodeFeedUnavailable  ErrorCode = "ING_003"
)

// Persistence Module Error Codes
const (
	ErrCodeGraphLoadFailed  ErrorCode = "PER_001"
	ErrCodeScoreWriteFailed ErrorCode = "PER_002"
	ErrCodeMigrationFailed  ErrorCode = "PER_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.  The engine has no
// HTTP surface of its own; the mapping feeds CLI exit-code classification and
// keeps parity with sibling services that expose these codes over REST.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeCancelled:          http.StatusRequestTimeout,

	ErrCodeCaseNotFound:        http.StatusNotFound,
	ErrCodeCaseInvalidMetadata: http.StatusUnprocessableEntity,
	ErrCodeSelfCitation:        http.StatusUnprocessableEntity,
	ErrCodeEdgeEndpointMissing: http.StatusNotFound,

	ErrCodeNoSnapshot:            http.StatusNotFound,
	ErrCodeRankingOptionsInvalid: http.StatusBadRequest,
	ErrCodeRecomputeAborted:      http.StatusServiceUnavailable,

	ErrCodeEventInvalid:     http.StatusUnprocessableEntity,
	ErrCodeSpoolUnavailable: http.StatusServiceUnavailable,
	ErrCodeFeedUnavailable:  http.StatusServiceUnavailable,

	ErrCodeGraphLoadFailed:  http.StatusInternalServerError,
	ErrCodeScoreWriteFailed: http.StatusInternalServerError,
	ErrCodeMigrationFailed:  http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessagingError:     "message broker error",
	ErrCodeCancelled:          "operation cancelled",

	ErrCodeCaseNotFound:        "case not found",
	ErrCodeCaseInvalidMetadata: "invalid case metadata",
	ErrCodeSelfCitation:        "case cannot cite itself",
	ErrCodeEdgeEndpointMissing: "citation endpoint not found",

	ErrCodeNoSnapshot:            "no score snapshot published",
	ErrCodeRankingOptionsInvalid: "invalid ranking options",
	ErrCodeRecomputeAborted:      "recomputation aborted",

	ErrCodeEventInvalid:     "invalid citation event",
	ErrCodeSpoolUnavailable: "spool directory unavailable",
	ErrCodeFeedUnavailable:  "citation feed unavailable",

	ErrCodeGraphLoadFailed:  "failed to load citation graph",
	ErrCodeScoreWriteFailed: "failed to persist scores",
	ErrCodeMigrationFailed:  "schema migration failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
