package services

import (
	"context"
	"sync"
	"testing"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/auth"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeProvisionRepo returns the queued errors in order, then succeeds.
type fakeProvisionRepo struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (r *fakeProvisionRepo) ProvisionAccount(account *models.Account, workspaceName string, link *models.CollectionLink, folderName string) (*repositories.ProvisionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	account.ID = uuid.NewString()
	workspace := &models.Workspace{AccountID: account.ID, Name: workspaceName}
	workspace.ID = uuid.NewString()
	folder := &models.Folder{WorkspaceID: workspace.ID, Name: folderName, Path: "/" + folderName, Depth: 1, IsLinkRoot: true}
	folder.ID = uuid.NewString()
	link.ID = uuid.NewString()
	link.WorkspaceID = workspace.ID
	link.FolderID = folder.ID
	link.OwnerSlug = account.Slug
	return &repositories.ProvisionResult{
		Account:   account,
		Workspace: workspace,
		Folder:    folder,
		Link:      link,
	}, nil
}

func (r *fakeProvisionRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func signupRequest() *models.CreateAccountRequest {
	return &models.CreateAccountRequest{
		Email:    "new@acme.test",
		Password: "correct-horse",
		Slug:     "acme",
		Name:     "Acme",
		Tier:     "free",
	}
}

func TestProvisionAccountCreatesDefaultLink(t *testing.T) {
	t.Parallel()

	repo := &fakeProvisionRepo{}
	svc := NewProvisioningService(repo, newFakeAccountRepo(&sync.Mutex{}))

	result, err := svc.ProvisionAccount(context.Background(), signupRequest())
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.callCount())

	assert.Equal(t, "inbox", result.Link.Topic)
	assert.Equal(t, "Inbox", result.Folder.Name)
	assert.True(t, result.Folder.IsLinkRoot)
	assert.Equal(t, "acme", result.Link.OwnerSlug)

	// Tier ceilings come from configuration.
	assert.Equal(t, int64(1<<30), result.Account.UsageLimit)
	assert.Equal(t, int64(100<<20), result.Account.MaxFileSize)
	assert.NotEqual(t, "correct-horse", result.Account.PasswordHash)
}

func TestProvisionAccountRetriesTransientOnly(t *testing.T) {
	t.Parallel()

	repo := &fakeProvisionRepo{errs: []error{repositories.ErrTransient, repositories.ErrTransient}}
	svc := NewProvisioningService(repo, newFakeAccountRepo(&sync.Mutex{}))

	result, err := svc.ProvisionAccount(context.Background(), signupRequest())
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 3, repo.callCount(), "two transient failures then success")
}

func TestProvisionAccountDoesNotRetryConflicts(t *testing.T) {
	t.Parallel()

	repo := &fakeProvisionRepo{errs: []error{repositories.ErrEmailExists}}
	svc := NewProvisioningService(repo, newFakeAccountRepo(&sync.Mutex{}))

	_, err := svc.ProvisionAccount(context.Background(), signupRequest())
	assertCode(t, err, appErrors.CodeEmailAlreadyExists)
	assert.Equal(t, 1, repo.callCount(), "terminal conflicts must not burn retries")

	repo = &fakeProvisionRepo{errs: []error{repositories.ErrSlugTaken}}
	svc = NewProvisioningService(repo, newFakeAccountRepo(&sync.Mutex{}))

	_, err = svc.ProvisionAccount(context.Background(), signupRequest())
	assertCode(t, err, appErrors.CodeSlugTaken)
	assert.Equal(t, 1, repo.callCount())
}

func TestProvisionAccountGivesUpOnPersistentTransients(t *testing.T) {
	t.Parallel()

	errs := make([]error, 10)
	for i := range errs {
		errs[i] = repositories.ErrTransient
	}
	repo := &fakeProvisionRepo{errs: errs}
	svc := NewProvisioningService(repo, newFakeAccountRepo(&sync.Mutex{}))

	_, err := svc.ProvisionAccount(context.Background(), signupRequest())
	assertCode(t, err, appErrors.CodeTransientConflict)
	assert.Greater(t, repo.callCount(), 1)
}

func TestProvisionAccountRejectsWeakPassword(t *testing.T) {
	t.Parallel()

	repo := &fakeProvisionRepo{}
	svc := NewProvisioningService(repo, newFakeAccountRepo(&sync.Mutex{}))

	req := signupRequest()
	req.Password = "short"
	_, err := svc.ProvisionAccount(context.Background(), req)
	assertCode(t, err, appErrors.CodeValidationFailed)
	assert.Equal(t, 0, repo.callCount())
}

func TestLogin(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccountRepo(&sync.Mutex{})
	hash, err := auth.HashPassword("correct-horse")
	assert.NoError(t, err)
	account := &models.Account{Email: "owner@acme.test", PasswordHash: hash, Slug: "acme"}
	accounts.add(account)

	svc := NewProvisioningService(&fakeProvisionRepo{}, accounts)

	token, got, err := svc.Login(&models.LoginRequest{Email: "owner@acme.test", Password: "correct-horse"})
	assert.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	claims, err := auth.ParseToken(token)
	assert.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)

	_, _, err = svc.Login(&models.LoginRequest{Email: "owner@acme.test", Password: "wrong"})
	assertCode(t, err, appErrors.CodeUnauthorized)

	_, _, err = svc.Login(&models.LoginRequest{Email: "nobody@acme.test", Password: "whatever"})
	assertCode(t, err, appErrors.CodeUnauthorized)
}
