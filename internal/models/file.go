package models

// File is one stored object. External uploads carry batch/link attribution;
// owner-created content carries neither (uploader_email empty marks owner
// authorship and is used for email-scoped filtering). FolderPath duplicates
// the owning folder's materialized path so subtree rewrites can touch files
// with a single prefix UPDATE.
type File struct {
	BaseModel
	WorkspaceID   string     `gorm:"type:uuid;not null;index" json:"workspace_id"`
	FolderID      string     `gorm:"type:uuid;not null;index" json:"folder_id"`
	FolderPath    string     `gorm:"not null;index" json:"folder_path"`
	BatchID       *string    `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	LinkID        *string    `gorm:"type:uuid;index" json:"link_id,omitempty"`
	Name          string     `gorm:"not null" json:"name"`
	Size          int64      `gorm:"not null" json:"size"`
	MimeType      string     `gorm:"not null" json:"mime_type"`
	StoragePath   string     `gorm:"not null" json:"storage_path"`
	UploaderEmail string     `gorm:"index" json:"uploader_email,omitempty"`
	Status        FileStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// IsOwnerContent reports whether the file was created by the account owner
// directly, outside any upload link.
func (f *File) IsOwnerContent() bool {
	return f.UploaderEmail == ""
}
