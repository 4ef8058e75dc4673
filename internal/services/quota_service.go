package services

import (
	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"
)

// QuotaService is the admission preflight for uploads. It works on
// snapshots and carries no state of its own: the authoritative check runs
// again as a conditional UPDATE inside the ingestion transaction. The
// preflight exists so an obviously doomed upload is denied before its bytes
// are spooled to the blob store.
//
// Checks run in a fixed order and stop at the first failure: per-file size,
// link byte ceiling, link item ceiling, account byte ceiling.
type QuotaService interface {
	Preflight(link *models.CollectionLink, account *models.Account, size int64) error
	PreflightOwner(account *models.Account, size int64) error
}

type quotaService struct{}

func NewQuotaService() QuotaService {
	return &quotaService{}
}

func (s *quotaService) Preflight(link *models.CollectionLink, account *models.Account, size int64) error {
	maxFile := link.MaxFileSize
	if account.MaxFileSize < maxFile {
		maxFile = account.MaxFileSize
	}
	if size > maxFile {
		return appErrors.FileTooLarge(maxFile, size)
	}
	if link.UsageUsed+size > link.UsageLimit {
		return appErrors.LinkCapacityExceeded(link.UsageLimit, link.UsageUsed)
	}
	if link.FileCount+1 > link.MaxFiles {
		return appErrors.LinkFileLimitExceeded(link.MaxFiles, link.FileCount)
	}
	if account.UsageUsed+size > account.UsageLimit {
		return appErrors.AccountCapacityExceeded(account.UsageLimit, account.UsageUsed)
	}
	return nil
}

// PreflightOwner applies only the account-scope checks; owner content
// bypasses any link.
func (s *quotaService) PreflightOwner(account *models.Account, size int64) error {
	if size > account.MaxFileSize {
		return appErrors.FileTooLarge(account.MaxFileSize, size)
	}
	if account.UsageUsed+size > account.UsageLimit {
		return appErrors.AccountCapacityExceeded(account.UsageLimit, account.UsageUsed)
	}
	return nil
}
