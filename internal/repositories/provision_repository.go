package repositories

import (
	"time"

	"dropnest_backend/internal/models"

	"gorm.io/gorm"
)

// ProvisionResult is everything the signup flow materializes.
type ProvisionResult struct {
	Account   *models.Account
	Workspace *models.Workspace
	Folder    *models.Folder
	Link      *models.CollectionLink
}

// ProvisionRepository performs the all-or-nothing account setup: account,
// workspace, default link root folder, default collection link, and the
// owner permission entry in one transaction. Unique violations map to
// per-field sentinels so the handler can report which attribute collided.
type ProvisionRepository interface {
	ProvisionAccount(account *models.Account, workspaceName string, link *models.CollectionLink, folderName string) (*ProvisionResult, error)
}

type ProvisionRepositoryImpl struct {
	db *gorm.DB
}

func NewProvisionRepository(db *gorm.DB) ProvisionRepository {
	return &ProvisionRepositoryImpl{db: db}
}

func (r *ProvisionRepositoryImpl) ProvisionAccount(account *models.Account, workspaceName string, link *models.CollectionLink, folderName string) (*ProvisionResult, error) {
	var result *ProvisionResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if isUniqueViolation(err, "email") {
				return ErrEmailExists
			}
			if isUniqueViolation(err, "slug") {
				return ErrSlugTaken
			}
			return classifyWriteError(err)
		}

		workspace := models.Workspace{
			AccountID: account.ID,
			Name:      workspaceName,
		}
		if err := tx.Create(&workspace).Error; err != nil {
			return classifyWriteError(err)
		}

		folder := models.Folder{
			WorkspaceID: workspace.ID,
			Name:        folderName,
			Path:        models.ChildPath("", folderName),
			Depth:       1,
			IsLinkRoot:  true,
		}
		if err := tx.Create(&folder).Error; err != nil {
			return classifyWriteError(err)
		}

		link.WorkspaceID = workspace.ID
		link.FolderID = folder.ID
		link.OwnerSlug = account.Slug
		if err := tx.Create(link).Error; err != nil {
			if isUniqueViolation(err, "slug_topic") {
				return ErrLinkTopicTaken
			}
			return classifyWriteError(err)
		}

		owner := models.Permission{
			LinkID:         link.ID,
			Email:          account.Email,
			Role:           models.RoleOwner,
			IsVerified:     true,
			LastActivityAt: time.Now(),
		}
		if err := tx.Create(&owner).Error; err != nil {
			return classifyWriteError(err)
		}

		result = &ProvisionResult{
			Account:   account,
			Workspace: &workspace,
			Folder:    &folder,
			Link:      link,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}
