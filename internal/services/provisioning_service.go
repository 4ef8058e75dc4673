package services

import (
	"context"
	"time"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/auth"
	"dropnest_backend/internal/config"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"

	"github.com/sethvargo/go-retry"
)

// ProvisioningService is the signup orchestrator: one call materializes the
// account, its workspace, the default collection link with its root folder,
// and the owner permission entry, all-or-nothing. Transient serialization
// conflicts are retried a bounded number of times; nothing else is.
type ProvisioningService interface {
	ProvisionAccount(ctx context.Context, req *models.CreateAccountRequest) (*repositories.ProvisionResult, error)
	Login(req *models.LoginRequest) (string, *models.Account, error)
}

type provisioningService struct {
	provisionRepo repositories.ProvisionRepository
	accountRepo   repositories.AccountRepository
}

func NewProvisioningService(
	provisionRepo repositories.ProvisionRepository,
	accountRepo repositories.AccountRepository,
) ProvisioningService {
	return &provisioningService{
		provisionRepo: provisionRepo,
		accountRepo:   accountRepo,
	}
}

const (
	defaultTopic      = "inbox"
	defaultLinkTitle  = "Inbox"
	defaultFolderName = "Inbox"
	provisionRetries  = 3
)

func (s *provisioningService) ProvisionAccount(ctx context.Context, req *models.CreateAccountRequest) (*repositories.ProvisionResult, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.ValidationError(map[string]string{"password": err.Error()})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.InternalError(err)
	}

	cfg := config.GetConfig()
	tier := models.AccountTier(req.Tier)
	if !models.ValidTier(tier) {
		tier = models.TierFree
	}
	limits := cfg.TierFor(string(tier))
	linkDefaults := cfg.Quota.LinkDefaults

	var result *repositories.ProvisionResult
	backoff := retry.WithMaxRetries(provisionRetries, retry.NewExponential(100*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		account := &models.Account{
			Email:        req.Email,
			PasswordHash: hash,
			Slug:         req.Slug,
			Tier:         tier,
			UsageLimit:   limits.UsageLimit,
			MaxFileSize:  limits.MaxFileSize,
		}
		link := &models.CollectionLink{
			Topic:       defaultTopic,
			Title:       defaultLinkTitle,
			UsageLimit:  linkDefaults.UsageLimit,
			MaxFiles:    linkDefaults.MaxFiles,
			MaxFileSize: linkDefaults.MaxFileSize,
			IsActive:    true,
			Visibility:  models.LinkVisibilityPublic,
		}

		res, err := s.provisionRepo.ProvisionAccount(account, req.Name, link, defaultFolderName)
		if err != nil {
			if appErrors.Is(err, repositories.ErrTransient) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})

	if err != nil {
		switch {
		case appErrors.Is(err, repositories.ErrEmailExists):
			return nil, appErrors.ErrEmailAlreadyExists
		case appErrors.Is(err, repositories.ErrSlugTaken):
			return nil, appErrors.ErrSlugTaken
		case appErrors.Is(err, repositories.ErrTransient):
			return nil, appErrors.ErrTransientConflict
		}
		return nil, err
	}
	return result, nil
}

func (s *provisioningService) Login(req *models.LoginRequest) (string, *models.Account, error) {
	account, err := s.accountRepo.FindByEmail(req.Email)
	if err != nil {
		if appErrors.Is(err, repositories.ErrAccountNotFound) {
			return "", nil, appErrors.ErrUnauthorized
		}
		return "", nil, err
	}

	if !auth.CheckPasswordHash(req.Password, account.PasswordHash) {
		return "", nil, appErrors.ErrUnauthorized
	}

	token, err := auth.GenerateToken(account.ID, account.Email)
	if err != nil {
		return "", nil, appErrors.InternalError(err)
	}
	return token, account, nil
}
