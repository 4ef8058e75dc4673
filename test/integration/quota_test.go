package integration_test

import (
	"errors"
	"sync"
	"testing"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"
	"dropnest_backend/test/helpers"

	"github.com/stretchr/testify/assert"
)

// The counter tests talk to the repository directly so the conditional
// UPDATE semantics are exercised against a real database, not a fake.

func assertDenial(t *testing.T, err error, code appErrors.ErrorCode) *appErrors.AppError {
	t.Helper()
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError with code %s, got %v", code, err)
	}
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func shrinkLink(t *testing.T, ts *helpers.TestServer, linkID string, usageLimit, maxFiles int64) {
	t.Helper()
	err := ts.DB.Model(&models.CollectionLink{}).
		Where("id = ?", linkID).
		Updates(map[string]interface{}{"usage_limit": usageLimit, "max_files": maxFiles}).Error
	assert.NoError(t, err)
}

func TestConsumeLinkConditionalUpdate(t *testing.T) {
	helpers.RequireDatabase(t)
	t.Parallel()
	ts := GetTestServer(t)

	owner := helpers.ProvisionOwner(t, ts)
	shrinkLink(t, ts, owner.Link.ID, 100, 2)
	quota := repositories.NewQuotaRepository()

	assert.NoError(t, quota.ConsumeLink(ts.DB, owner.Link.ID, 60, 1))

	err := quota.ConsumeLink(ts.DB, owner.Link.ID, 60, 1)
	appErr := assertDenial(t, err, appErrors.CodeLinkCapacityExceeded)
	details, ok := appErr.Details.(appErrors.CapacityDetails)
	assert.True(t, ok)
	assert.Equal(t, int64(100), details.Limit)
	assert.Equal(t, int64(60), details.Used)

	// Exact fill is admitted; a denial must not have consumed anything.
	assert.NoError(t, quota.ConsumeLink(ts.DB, owner.Link.ID, 40, 1))

	err = quota.ConsumeLink(ts.DB, owner.Link.ID, 0, 1)
	assertDenial(t, err, appErrors.CodeLinkFileLimitExceeded)
}

func TestConsumeAccountConditionalUpdate(t *testing.T) {
	helpers.RequireDatabase(t)
	t.Parallel()
	ts := GetTestServer(t)

	owner := helpers.ProvisionOwner(t, ts)
	err := ts.DB.Model(&models.Account{}).
		Where("id = ?", owner.Account.ID).
		Update("usage_limit", 50).Error
	assert.NoError(t, err)

	quota := repositories.NewQuotaRepository()
	assert.NoError(t, quota.ConsumeAccount(ts.DB, owner.Account.ID, 50))

	appErr := assertDenial(t, quota.ConsumeAccount(ts.DB, owner.Account.ID, 1), appErrors.CodeAccountCapacityExceeded)
	details, ok := appErr.Details.(appErrors.CapacityDetails)
	assert.True(t, ok)
	assert.Equal(t, "account", details.Scope)
	assert.Equal(t, int64(50), details.Used)
}

func TestConcurrentConsumeNeverOvershoots(t *testing.T) {
	helpers.RequireDatabase(t)
	t.Parallel()
	ts := GetTestServer(t)

	owner := helpers.ProvisionOwner(t, ts)
	shrinkLink(t, ts, owner.Link.ID, 100, 100)
	quota := repositories.NewQuotaRepository()

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = quota.ConsumeLink(ts.DB, owner.Link.ID, 30, 1)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range results {
		if err == nil {
			admitted++
		} else {
			assertDenial(t, err, appErrors.CodeLinkCapacityExceeded)
		}
	}
	assert.Equal(t, 3, admitted)

	var link models.CollectionLink
	assert.NoError(t, ts.DB.First(&link, "id = ?", owner.Link.ID).Error)
	assert.Equal(t, int64(90), link.UsageUsed)
	assert.Equal(t, int64(3), link.FileCount)
}

func TestReleaseClampsAtZero(t *testing.T) {
	helpers.RequireDatabase(t)
	t.Parallel()
	ts := GetTestServer(t)

	owner := helpers.ProvisionOwner(t, ts)
	quota := repositories.NewQuotaRepository()

	assert.NoError(t, quota.ConsumeLink(ts.DB, owner.Link.ID, 10, 1))
	assert.NoError(t, quota.ReleaseLink(ts.DB, owner.Link.ID, 9999, 50))

	var link models.CollectionLink
	assert.NoError(t, ts.DB.First(&link, "id = ?", owner.Link.ID).Error)
	assert.Equal(t, int64(0), link.UsageUsed)
	assert.Equal(t, int64(0), link.FileCount)

	assert.NoError(t, quota.ConsumeAccount(ts.DB, owner.Account.ID, 10))
	assert.NoError(t, quota.ReleaseAccount(ts.DB, owner.Account.ID, 9999))

	var account models.Account
	assert.NoError(t, ts.DB.First(&account, "id = ?", owner.Account.ID).Error)
	assert.Equal(t, int64(0), account.UsageUsed)
}

func TestApplyLinkDelta(t *testing.T) {
	helpers.RequireDatabase(t)
	t.Parallel()
	ts := GetTestServer(t)

	owner := helpers.ProvisionOwner(t, ts)
	shrinkLink(t, ts, owner.Link.ID, 100, 100)
	quota := repositories.NewQuotaRepository()

	assert.NoError(t, quota.ConsumeLink(ts.DB, owner.Link.ID, 50, 1))

	// A grow beyond the ceiling is a capacity denial; a shrink just lands.
	assertDenial(t, quota.ApplyLinkDelta(ts.DB, owner.Link.ID, 60), appErrors.CodeLinkCapacityExceeded)
	assert.NoError(t, quota.ApplyLinkDelta(ts.DB, owner.Link.ID, -20))

	var link models.CollectionLink
	assert.NoError(t, ts.DB.First(&link, "id = ?", owner.Link.ID).Error)
	assert.Equal(t, int64(30), link.UsageUsed)

	// Unknown rows surface as not-found, not as silent no-ops.
	err := quota.ApplyLinkDelta(ts.DB, "00000000-0000-0000-0000-000000000000", -5)
	assert.ErrorIs(t, err, repositories.ErrLinkNotFound)
}
