package repositories

import (
	"errors"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"

	"gorm.io/gorm"
)

// QuotaRepository owns the usage counters at link and account scope. Every
// method takes the caller's transaction handle: a capacity check and the
// write it guards are a single conditional UPDATE, so two concurrent
// ingestions can never both pass a check that together would exceed a
// ceiling. Denials come back as structured appErrors carrying limit+used.
type QuotaRepository interface {
	ConsumeLink(tx *gorm.DB, linkID string, bytes, files int64) error
	ReleaseLink(tx *gorm.DB, linkID string, bytes, files int64) error
	ApplyLinkDelta(tx *gorm.DB, linkID string, delta int64) error

	ConsumeAccount(tx *gorm.DB, accountID string, bytes int64) error
	ReleaseAccount(tx *gorm.DB, accountID string, bytes int64) error
	ApplyAccountDelta(tx *gorm.DB, accountID string, delta int64) error
}

type QuotaRepositoryImpl struct{}

func NewQuotaRepository() QuotaRepository {
	return &QuotaRepositoryImpl{}
}

// ConsumeLink atomically reserves bytes/files against the link ceilings.
func (r *QuotaRepositoryImpl) ConsumeLink(tx *gorm.DB, linkID string, bytes, files int64) error {
	res := tx.Model(&models.CollectionLink{}).
		Where("id = ? AND usage_used + ? <= usage_limit AND file_count + ? <= max_files", linkID, bytes, files).
		Updates(map[string]interface{}{
			"usage_used": gorm.Expr("usage_used + ?", bytes),
			"file_count": gorm.Expr("file_count + ?", files),
		})
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Denied: re-read inside the same transaction to report which ceiling
	// was hit and the exact usage at denial time.
	var link models.CollectionLink
	if err := tx.First(&link, "id = ?", linkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	if link.UsageUsed+bytes > link.UsageLimit {
		return appErrors.LinkCapacityExceeded(link.UsageLimit, link.UsageUsed)
	}
	return appErrors.LinkFileLimitExceeded(link.MaxFiles, link.FileCount)
}

// ReleaseLink returns bytes/files to the link, clamping at zero to stay
// defensive against counter drift.
func (r *QuotaRepositoryImpl) ReleaseLink(tx *gorm.DB, linkID string, bytes, files int64) error {
	res := tx.Model(&models.CollectionLink{}).
		Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"usage_used": gorm.Expr("GREATEST(usage_used - ?, 0)", bytes),
			"file_count": gorm.Expr("GREATEST(file_count - ?, 0)", files),
		})
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// ApplyLinkDelta adjusts usage for a file resize; positive deltas are
// ceiling-checked, negative deltas clamp at zero.
func (r *QuotaRepositoryImpl) ApplyLinkDelta(tx *gorm.DB, linkID string, delta int64) error {
	if delta < 0 {
		res := tx.Model(&models.CollectionLink{}).
			Where("id = ?", linkID).
			Update("usage_used", gorm.Expr("GREATEST(usage_used + ?, 0)", delta))
		if res.Error != nil {
			return classifyWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return nil
	}
	return r.ConsumeLink(tx, linkID, delta, 0)
}

// ConsumeAccount atomically reserves bytes against the account ceiling.
func (r *QuotaRepositoryImpl) ConsumeAccount(tx *gorm.DB, accountID string, bytes int64) error {
	res := tx.Model(&models.Account{}).
		Where("id = ? AND usage_used + ? <= usage_limit", accountID, bytes).
		Update("usage_used", gorm.Expr("usage_used + ?", bytes))
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var account models.Account
	if err := tx.First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return appErrors.AccountCapacityExceeded(account.UsageLimit, account.UsageUsed)
}

// ReleaseAccount returns bytes to the account, clamping at zero.
func (r *QuotaRepositoryImpl) ReleaseAccount(tx *gorm.DB, accountID string, bytes int64) error {
	res := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("usage_used", gorm.Expr("GREATEST(usage_used - ?, 0)", bytes))
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ApplyAccountDelta adjusts account usage for a file resize.
func (r *QuotaRepositoryImpl) ApplyAccountDelta(tx *gorm.DB, accountID string, delta int64) error {
	if delta < 0 {
		res := tx.Model(&models.Account{}).
			Where("id = ?", accountID).
			Update("usage_used", gorm.Expr("GREATEST(usage_used + ?, 0)", delta))
		if res.Error != nil {
			return classifyWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	}
	return r.ConsumeAccount(tx, accountID, delta)
}
