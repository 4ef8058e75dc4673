package repositories

import (
	"errors"
	"time"

	"dropnest_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionRepository is the access registry for collection links. Enroll
// is an idempotent upsert keyed on (link_id, email): a returning uploader
// refreshes their activity stamp instead of producing a duplicate row.
type PermissionRepository interface {
	Enroll(tx *gorm.DB, linkID, email string) error
	FindByLinkAndEmail(linkID, email string) (*models.Permission, error)
	ListByLink(linkID string) ([]models.Permission, error)
	Promote(linkID, email string) error
	MarkVerified(linkID, email string) error
	Touch(linkID, email string) error
}

type PermissionRepositoryImpl struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &PermissionRepositoryImpl{db: db}
}

// Enroll registers email as an uploader on the link, or refreshes the
// activity stamp if an entry already exists. Runs on the caller's
// transaction so ingestion enrolls atomically with the file insert.
func (r *PermissionRepositoryImpl) Enroll(tx *gorm.DB, linkID, email string) error {
	perm := models.Permission{
		LinkID:         linkID,
		Email:          email,
		Role:           models.RoleUploader,
		LastActivityAt: time.Now(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "link_id"}, {Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_activity_at": time.Now()}),
	}).Create(&perm).Error
	return classifyWriteError(err)
}

func (r *PermissionRepositoryImpl) FindByLinkAndEmail(linkID, email string) (*models.Permission, error) {
	var perm models.Permission
	err := r.db.Where("link_id = ? AND email = ?", linkID, email).First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func (r *PermissionRepositoryImpl) ListByLink(linkID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.Where("link_id = ?", linkID).
		Order("created_at ASC").
		Find(&perms).Error
	return perms, err
}

// Promote raises an uploader to editor. The role guard in the WHERE clause
// enforces that uploader -> editor is the only transition; promoting an
// owner, an editor, or a missing entry is rejected.
func (r *PermissionRepositoryImpl) Promote(linkID, email string) error {
	res := r.db.Model(&models.Permission{}).
		Where("link_id = ? AND email = ? AND role = ?", linkID, email, models.RoleUploader).
		Update("role", models.RoleEditor)
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := r.FindByLinkAndEmail(linkID, email); err != nil {
		return err
	}
	return ErrRoleTransition
}

func (r *PermissionRepositoryImpl) MarkVerified(linkID, email string) error {
	res := r.db.Model(&models.Permission{}).
		Where("link_id = ? AND email = ?", linkID, email).
		Updates(map[string]interface{}{"is_verified": true, "last_activity_at": time.Now()})
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

func (r *PermissionRepositoryImpl) Touch(linkID, email string) error {
	res := r.db.Model(&models.Permission{}).
		Where("link_id = ? AND email = ?", linkID, email).
		Update("last_activity_at", time.Now())
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPermissionNotFound
	}
	return nil
}
