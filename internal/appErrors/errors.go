package appErrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error class across the API.
type ErrorCode string

// AppError is the application error carried from services to the transport
// layer. Details hold enough structured context (current usage, limit,
// offending field) that callers can render a precise message without
// re-querying state.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// Is lets predefined values match wrapped/detailed copies by code.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !stderrors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

// CapacityDetails is attached to every capacity denial.
type CapacityDetails struct {
	Scope string `json:"scope"` // "link" or "account"
	Limit int64  `json:"limit"`
	Used  int64  `json:"used"`
}

// FileSizeDetails is attached to per-file size denials.
type FileSizeDetails struct {
	Limit int64 `json:"limit"`
	Size  int64 `json:"size"`
}

// Predefined errors
var (
	ErrUnauthorized = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden    = New(CodeForbidden, "Access denied", http.StatusForbidden)
	ErrInvalidToken = New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)

	ErrValidationFailed = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)

	ErrAccountNotFound    = New(CodeAccountNotFound, "Account not found", http.StatusNotFound)
	ErrWorkspaceNotFound  = New(CodeWorkspaceNotFound, "Workspace not found", http.StatusNotFound)
	ErrFolderNotFound     = New(CodeFolderNotFound, "Folder not found", http.StatusNotFound)
	ErrLinkNotFound       = New(CodeLinkNotFound, "Collection link not found", http.StatusNotFound)
	ErrBatchNotFound      = New(CodeBatchNotFound, "Batch not found", http.StatusNotFound)
	ErrFileNotFound       = New(CodeFileNotFound, "File not found", http.StatusNotFound)
	ErrPermissionNotFound = New(CodePermissionNotFound, "Permission entry not found", http.StatusNotFound)

	ErrFolderExists       = New(CodeFolderExists, "Folder with this name already exists", http.StatusConflict)
	ErrLinkTopicTaken     = New(CodeLinkTopicTaken, "Link topic already taken for this slug", http.StatusConflict)
	ErrEmailAlreadyExists = New(CodeEmailAlreadyExists, "Email already exists", http.StatusConflict)
	ErrSlugTaken          = New(CodeSlugTaken, "Slug already taken", http.StatusConflict)
	ErrBatchStatusInvalid = New(CodeBatchStatusInvalid, "Batch status does not allow this operation", http.StatusConflict)
	ErrConflict           = New(CodeConflict, "Operation conflicts with current state", http.StatusConflict)

	ErrLinkInactive = New(CodeLinkInactive, "Collection link is inactive or expired", http.StatusGone)

	ErrInvalidRoleTransition = New(CodeInvalidRoleTransition, "Role transition not allowed", http.StatusConflict)
	ErrVerificationFailed    = New(CodeVerificationFailed, "Verification code invalid or expired", http.StatusForbidden)

	ErrTransientConflict = New(CodeTransientConflict, "Transient serialization conflict", http.StatusConflict)
	ErrInternal          = New(CodeInternalError, "Internal server error", http.StatusInternalServerError)
)

// FileTooLarge builds the single-file size denial.
func FileTooLarge(limit, size int64) *AppError {
	return New(CodeFileTooLarge, "File exceeds the maximum allowed size", http.StatusRequestEntityTooLarge).
		WithDetails(FileSizeDetails{Limit: limit, Size: size})
}

// LinkCapacityExceeded builds the link byte-ceiling denial.
func LinkCapacityExceeded(limit, used int64) *AppError {
	return New(CodeLinkCapacityExceeded, "Link storage capacity exceeded", http.StatusForbidden).
		WithDetails(CapacityDetails{Scope: "link", Limit: limit, Used: used})
}

// LinkFileLimitExceeded builds the link item-ceiling denial.
func LinkFileLimitExceeded(limit, used int64) *AppError {
	return New(CodeLinkFileLimitExceeded, "Link file count limit exceeded", http.StatusForbidden).
		WithDetails(CapacityDetails{Scope: "link", Limit: limit, Used: used})
}

// AccountCapacityExceeded builds the account byte-ceiling denial.
func AccountCapacityExceeded(limit, used int64) *AppError {
	return New(CodeAccountCapacityExceeded, "Account storage capacity exceeded", http.StatusForbidden).
		WithDetails(CapacityDetails{Scope: "account", Limit: limit, Used: used})
}

// DepthLimitExceeded builds the dedicated depth-limit error (distinct from
// generic validation failures on purpose).
func DepthLimitExceeded(depth int) *AppError {
	return New(CodeDepthLimitExceeded, "Folder nesting depth limit exceeded", http.StatusBadRequest).
		WithDetails(map[string]int{"max_depth": 20, "requested_depth": depth})
}

func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}

// Is is a wrapper over the standard errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a wrapper over the standard errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
