package services

import (
	"errors"
	"testing"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func assertCode(t *testing.T, err error, code appErrors.ErrorCode) *appErrors.AppError {
	t.Helper()
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError with code %s, got %v", code, err)
	}
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func preflightLink() *models.CollectionLink {
	return &models.CollectionLink{
		UsageLimit:  500 << 20,
		MaxFiles:    100,
		MaxFileSize: 100 << 20,
	}
}

func preflightAccount() *models.Account {
	return &models.Account{
		UsageLimit:  1 << 30,
		MaxFileSize: 100 << 20,
	}
}

func TestPreflightFileSizeCheckedFirst(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	// The file is both over the per-file ceiling and over the link ceiling;
	// the per-file denial wins.
	link := preflightLink()
	link.UsageUsed = link.UsageLimit

	err := svc.Preflight(link, preflightAccount(), 200<<20)
	assertCode(t, err, appErrors.CodeFileTooLarge)
}

func TestPreflightEffectiveMaxFileIsSmallerCeiling(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	link := preflightLink()
	account := preflightAccount()
	account.MaxFileSize = 10 << 20

	err := svc.Preflight(link, account, 50<<20)
	appErr := assertCode(t, err, appErrors.CodeFileTooLarge)

	details := appErr.Details.(appErrors.FileSizeDetails)
	assert.Equal(t, int64(10<<20), details.Limit)
}

func TestPreflightLinkDenialBeforeAccount(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	// Both scopes would deny; the link scope reports first.
	link := preflightLink()
	link.UsageUsed = link.UsageLimit - 50<<20
	account := preflightAccount()
	account.UsageUsed = account.UsageLimit - 50<<20

	err := svc.Preflight(link, account, 60<<20)
	appErr := assertCode(t, err, appErrors.CodeLinkCapacityExceeded)

	details := appErr.Details.(appErrors.CapacityDetails)
	assert.Equal(t, "link", details.Scope)
	assert.Equal(t, link.UsageLimit, details.Limit)
	assert.Equal(t, link.UsageUsed, details.Used)
}

func TestPreflightLinkFileCount(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	link := preflightLink()
	link.FileCount = link.MaxFiles

	err := svc.Preflight(link, preflightAccount(), 1<<20)
	assertCode(t, err, appErrors.CodeLinkFileLimitExceeded)
}

func TestPreflightAccountDenial(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	link := preflightLink()
	account := preflightAccount()
	account.UsageUsed = account.UsageLimit - 10<<20

	err := svc.Preflight(link, account, 20<<20)
	appErr := assertCode(t, err, appErrors.CodeAccountCapacityExceeded)

	details := appErr.Details.(appErrors.CapacityDetails)
	assert.Equal(t, "account", details.Scope)
}

func TestPreflightAdmits(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	assert.NoError(t, svc.Preflight(preflightLink(), preflightAccount(), 50<<20))

	// Exactly filling the link is allowed.
	link := preflightLink()
	link.UsageUsed = link.UsageLimit - 50<<20
	assert.NoError(t, svc.Preflight(link, preflightAccount(), 50<<20))
}

func TestPreflightOwnerIgnoresLinkCeilings(t *testing.T) {
	t.Parallel()
	svc := NewQuotaService()

	account := preflightAccount()
	assert.NoError(t, svc.PreflightOwner(account, 50<<20))

	account.UsageUsed = account.UsageLimit
	err := svc.PreflightOwner(account, 1)
	assertCode(t, err, appErrors.CodeAccountCapacityExceeded)

	err = svc.PreflightOwner(preflightAccount(), 200<<20)
	assertCode(t, err, appErrors.CodeFileTooLarge)
}
