package appErrors

// Error codes grouped by domain.
const (
	// Authentication and authorization
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Validation
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeDepthLimitExceeded ErrorCode = "DEPTH_LIMIT_EXCEEDED"

	// Resources
	CodeAccountNotFound    ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeWorkspaceNotFound  ErrorCode = "WORKSPACE_NOT_FOUND"
	CodeFolderNotFound     ErrorCode = "FOLDER_NOT_FOUND"
	CodeLinkNotFound       ErrorCode = "LINK_NOT_FOUND"
	CodeBatchNotFound      ErrorCode = "BATCH_NOT_FOUND"
	CodeFileNotFound       ErrorCode = "FILE_NOT_FOUND"
	CodePermissionNotFound ErrorCode = "PERMISSION_NOT_FOUND"

	// Conflicts (terminal, never retried)
	CodeFolderExists       ErrorCode = "FOLDER_EXISTS"
	CodeLinkTopicTaken     ErrorCode = "LINK_TOPIC_TAKEN"
	CodeEmailAlreadyExists ErrorCode = "EMAIL_ALREADY_EXISTS"
	CodeSlugTaken          ErrorCode = "SLUG_TAKEN"
	CodeBatchStatusInvalid ErrorCode = "BATCH_STATUS_INVALID"
	CodeConflict           ErrorCode = "CONFLICT"

	// Capacity (terminal, never retried)
	CodeFileTooLarge            ErrorCode = "FILE_TOO_LARGE"
	CodeLinkCapacityExceeded    ErrorCode = "LINK_CAPACITY_EXCEEDED"
	CodeLinkFileLimitExceeded   ErrorCode = "LINK_FILE_LIMIT_EXCEEDED"
	CodeAccountCapacityExceeded ErrorCode = "ACCOUNT_CAPACITY_EXCEEDED"

	// Link state
	CodeLinkInactive ErrorCode = "LINK_INACTIVE"

	// Registry
	CodeInvalidRoleTransition ErrorCode = "INVALID_ROLE_TRANSITION"
	CodeVerificationFailed    ErrorCode = "VERIFICATION_FAILED"

	// System
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeTransientConflict ErrorCode = "TRANSIENT_CONFLICT"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
)
