package models

// Account is the billing/ownership root. Usage counters are maintained only
// through conditional updates so 0 <= usage_used <= usage_limit holds at all
// times, also under concurrent uploads.
type Account struct {
	BaseModel
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"not null" json:"-"`
	Slug         string      `gorm:"uniqueIndex;not null" json:"slug"`
	Tier         AccountTier `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	UsageUsed    int64       `gorm:"not null;default:0" json:"usage_used"`
	UsageLimit   int64       `gorm:"not null" json:"usage_limit"`
	MaxFileSize  int64       `gorm:"not null" json:"max_file_size"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:AccountID" json:"workspace,omitempty"`
}

// Workspace is the single content container of an account (current
// generation: exactly one per account).
type Workspace struct {
	BaseModel
	AccountID string `gorm:"type:uuid;uniqueIndex;not null" json:"account_id"`
	Name      string `gorm:"not null" json:"name"`
}

// Remaining returns the unreserved account capacity in bytes.
func (a *Account) Remaining() int64 {
	if a.UsageLimit < a.UsageUsed {
		return 0
	}
	return a.UsageLimit - a.UsageUsed
}
