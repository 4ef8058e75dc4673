package models

import "time"

// Permission binds one external identity (email) to one role on one link.
// Exactly one owner entry exists per link; it is created in the same
// transaction as the link and survives until the link is deleted.
type Permission struct {
	BaseModel
	LinkID         string         `gorm:"type:uuid;not null;uniqueIndex:idx_permissions_link_email" json:"link_id"`
	Email          string         `gorm:"not null;uniqueIndex:idx_permissions_link_email" json:"email"`
	Role           PermissionRole `gorm:"type:varchar(20);not null" json:"role"`
	IsVerified     bool           `gorm:"not null;default:false" json:"is_verified"`
	LastActivityAt time.Time      `gorm:"not null;default:now()" json:"last_activity_at"`
}

// MayManageContent reports whether the role may delete or reorganize other
// uploaders' content.
func (p *Permission) MayManageContent() bool {
	return p.Role == RoleOwner || p.Role == RoleEditor
}
