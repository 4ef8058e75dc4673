package repositories

import (
	"errors"

	"dropnest_backend/internal/models"

	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(account *models.Account) error
	FindByID(id string) (*models.Account, error)
	FindByEmail(email string) (*models.Account, error)
	FindBySlug(slug string) (*models.Account, error)
	FindWorkspaceByAccount(accountID string) (*models.Workspace, error)
	UsageSnapshot(accountID string) (used, limit int64, err error)
}

type AccountRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

func (r *AccountRepositoryImpl) Create(account *models.Account) error {
	err := r.db.Create(account).Error
	if err != nil {
		if isUniqueViolation(err, "email") {
			return ErrEmailExists
		}
		if isUniqueViolation(err, "slug") {
			return ErrSlugTaken
		}
		return classifyWriteError(err)
	}
	return nil
}

func (r *AccountRepositoryImpl) FindByID(id string) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepositoryImpl) FindByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepositoryImpl) FindBySlug(slug string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("slug = ?", slug).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepositoryImpl) FindWorkspaceByAccount(accountID string) (*models.Workspace, error) {
	var ws models.Workspace
	err := r.db.Where("account_id = ?", accountID).First(&ws).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// UsageSnapshot reads the current counters without any lock; it serves the
// dashboard, not admission decisions.
func (r *AccountRepositoryImpl) UsageSnapshot(accountID string) (int64, int64, error) {
	var account models.Account
	err := r.db.Select("usage_used", "usage_limit").First(&account, "id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrAccountNotFound
		}
		return 0, 0, err
	}
	return account.UsageUsed, account.UsageLimit, nil
}
