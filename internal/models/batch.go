package models

// Batch groups the files one external uploader submitted through a link in
// a single session. Aggregate counters are maintained in the same
// transaction as each file insert.
type Batch struct {
	BaseModel
	LinkID        string      `gorm:"type:uuid;not null;index" json:"link_id"`
	UploaderName  string      `gorm:"not null" json:"uploader_name"`
	UploaderEmail string      `gorm:"not null;index" json:"uploader_email"`
	Message       string      `json:"message,omitempty"`
	TotalFiles    int64       `gorm:"not null;default:0" json:"total_files"`
	TotalSize     int64       `gorm:"not null;default:0" json:"total_size"`
	Status        BatchStatus `gorm:"type:varchar(20);not null;default:'uploading'" json:"status"`
}
