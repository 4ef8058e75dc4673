package models

import "time"

// Request payloads bound by the handlers. Validation tags use the JSON
// field names for error reporting.

type CreateAccountRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Slug     string `json:"slug" validate:"required,min=3,max=40,alphanum"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Tier     string `json:"tier" validate:"omitempty,oneof=free pro business"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateFolderRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
	Name     string  `json:"name" validate:"required,min=1,max=255"`
}

type MoveFolderRequest struct {
	NewParentID string `json:"new_parent_id" validate:"required,uuid"`
}

type RenameFolderRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

type CreateLinkRequest struct {
	Topic       string        `json:"topic" validate:"required,min=1,max=80"`
	Title       string        `json:"title" validate:"required,min=1,max=200"`
	ParentID    *string       `json:"parent_id" validate:"omitempty,uuid"`
	FolderName  string        `json:"folder_name" validate:"omitempty,min=1,max=255"`
	UsageLimit  int64         `json:"usage_limit" validate:"omitempty,gt=0"`
	MaxFiles    int64         `json:"max_files" validate:"omitempty,gt=0"`
	MaxFileSize int64         `json:"max_file_size" validate:"omitempty,gt=0"`
	ExpiresAt   *time.Time    `json:"expires_at"`
	Visibility  string        `json:"visibility" validate:"omitempty,oneof=public dedicated"`
	Settings    *LinkSettings `json:"settings"`
}

type UpdateLinkRequest struct {
	Title     *string       `json:"title" validate:"omitempty,min=1,max=200"`
	IsActive  *bool         `json:"is_active"`
	ExpiresAt *time.Time    `json:"expires_at"`
	Settings  *LinkSettings `json:"settings"`
}

type OpenBatchRequest struct {
	UploaderName  string `json:"uploader_name" validate:"required,min=1,max=100"`
	UploaderEmail string `json:"uploader_email" validate:"required,email"`
	Message       string `json:"message" validate:"max=2000"`
}

type RequestVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ConfirmVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type PromoteUploaderRequest struct {
	Email string `json:"email" validate:"required,email"`
}
