package repositories

import (
	"errors"
	"time"

	"dropnest_backend/internal/models"

	"gorm.io/gorm"
)

// LinkRepository manages collection links together with the folder rows
// they are rooted on and the owner permission entry that anchors the access
// registry. Creation and deletion are multi-table and run in one transaction.
type LinkRepository interface {
	Create(link *models.CollectionLink, folder *models.Folder, ownerEmail string) error
	FindByID(id string) (*models.CollectionLink, error)
	FindBySlugAndTopic(slug, topic string) (*models.CollectionLink, error)
	ListByWorkspace(workspaceID string) ([]models.CollectionLink, error)
	UpdateSettings(linkID string, updates map[string]interface{}) (*models.CollectionLink, error)
	SetActive(linkID string, active bool) error
	Delete(linkID string) error
	DeactivateExpired(now time.Time) (int64, error)
}

type LinkRepositoryImpl struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &LinkRepositoryImpl{db: db}
}

// Create inserts the root folder, the link, and the owner permission as one
// unit. The folder is flagged as a link root so the hierarchy layer refuses
// to nest another link beneath it.
func (r *LinkRepositoryImpl) Create(link *models.CollectionLink, folder *models.Folder, ownerEmail string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		folder.IsLinkRoot = true
		if err := tx.Create(folder).Error; err != nil {
			if isUniqueViolation(err, "parent_name") {
				return ErrFolderExists
			}
			return classifyWriteError(err)
		}

		link.FolderID = folder.ID
		link.WorkspaceID = folder.WorkspaceID
		if err := tx.Create(link).Error; err != nil {
			if isUniqueViolation(err, "slug_topic") {
				return ErrLinkTopicTaken
			}
			return classifyWriteError(err)
		}

		owner := models.Permission{
			LinkID:         link.ID,
			Email:          ownerEmail,
			Role:           models.RoleOwner,
			IsVerified:     true,
			LastActivityAt: time.Now(),
		}
		if err := tx.Create(&owner).Error; err != nil {
			return classifyWriteError(err)
		}
		return nil
	})
}

func (r *LinkRepositoryImpl) FindByID(id string) (*models.CollectionLink, error) {
	var link models.CollectionLink
	err := r.db.First(&link, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepositoryImpl) FindBySlugAndTopic(slug, topic string) (*models.CollectionLink, error) {
	var link models.CollectionLink
	err := r.db.Where("owner_slug = ? AND topic = ?", slug, topic).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepositoryImpl) ListByWorkspace(workspaceID string) ([]models.CollectionLink, error) {
	var links []models.CollectionLink
	err := r.db.Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&links).Error
	return links, err
}

func (r *LinkRepositoryImpl) UpdateSettings(linkID string, updates map[string]interface{}) (*models.CollectionLink, error) {
	res := r.db.Model(&models.CollectionLink{}).
		Where("id = ?", linkID).
		Updates(updates)
	if res.Error != nil {
		return nil, classifyWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrLinkNotFound
	}
	return r.FindByID(linkID)
}

func (r *LinkRepositoryImpl) SetActive(linkID string, active bool) error {
	res := r.db.Model(&models.CollectionLink{}).
		Where("id = ?", linkID).
		Update("is_active", active)
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// Delete removes the link, its permission entries, and its batches, then
// detaches the content: files keep their rows (and bytes stay counted
// against the account) but lose their link/batch association, and the root
// folder becomes an ordinary folder.
func (r *LinkRepositoryImpl) Delete(linkID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var link models.CollectionLink
		err := tx.First(&link, "id = ?", linkID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}

		err = tx.Model(&models.File{}).
			Where("link_id = ?", link.ID).
			Updates(map[string]interface{}{"link_id": nil, "batch_id": nil}).Error
		if err != nil {
			return classifyWriteError(err)
		}

		if err := tx.Delete(&models.Permission{}, "link_id = ?", link.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Batch{}, "link_id = ?", link.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.CollectionLink{}, "id = ?", link.ID).Error; err != nil {
			return err
		}

		err = tx.Model(&models.Folder{}).
			Where("id = ?", link.FolderID).
			Update("is_link_root", false).Error
		return classifyWriteError(err)
	})
}

// DeactivateExpired flips is_active off for every link whose expiry has
// passed. Ran by the background worker; returns the number of links touched.
func (r *LinkRepositoryImpl) DeactivateExpired(now time.Time) (int64, error) {
	res := r.db.Model(&models.CollectionLink{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, classifyWriteError(res.Error)
	}
	return res.RowsAffected, nil
}
