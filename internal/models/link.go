package models

import (
	"time"

	"gorm.io/datatypes"
)

// CollectionLink carries the sharing attributes of a folder flagged as an
// upload root. The link is addressed publicly by (owner_slug, topic) and
// enforces its own byte/item ceilings independently of the account ceiling.
type CollectionLink struct {
	BaseModel
	WorkspaceID string         `gorm:"type:uuid;not null;index" json:"workspace_id"`
	FolderID    string         `gorm:"type:uuid;uniqueIndex;not null" json:"folder_id"`
	OwnerSlug   string         `gorm:"not null;uniqueIndex:idx_links_slug_topic" json:"owner_slug"`
	Topic       string         `gorm:"not null;uniqueIndex:idx_links_slug_topic" json:"topic"`
	Title       string         `gorm:"not null" json:"title"`
	UsageUsed   int64          `gorm:"not null;default:0" json:"usage_used"`
	UsageLimit  int64          `gorm:"not null" json:"usage_limit"`
	FileCount   int64          `gorm:"not null;default:0" json:"file_count"`
	MaxFiles    int64          `gorm:"not null" json:"max_files"`
	MaxFileSize int64          `gorm:"not null" json:"max_file_size"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Visibility  LinkVisibility `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	Settings    datatypes.JSON `json:"settings,omitempty"`
}

// LinkSettings is the shape of the Settings JSON blob.
type LinkSettings struct {
	NotifyOnUpload bool   `json:"notify_on_upload"`
	Message        string `json:"message,omitempty"`
}

// Expired reports whether the link's optional expiry has passed.
func (l *CollectionLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// AcceptsUploads reports whether the link can take new content at all;
// capacity is checked separately by the quota accountant.
func (l *CollectionLink) AcceptsUploads(now time.Time) bool {
	return l.IsActive && !l.Expired(now)
}

// Remaining returns the unreserved link capacity in bytes.
func (l *CollectionLink) Remaining() int64 {
	if l.UsageLimit < l.UsageUsed {
		return 0
	}
	return l.UsageLimit - l.UsageUsed
}
