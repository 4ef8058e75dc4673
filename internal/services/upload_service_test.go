package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

type uploadFixture struct {
	svc      UploadService
	link     *models.CollectionLink
	account  *models.Account
	folder   *models.Folder
	accounts *fakeAccountRepo
	links    *fakeLinkRepo
	batches  *fakeBatchRepo
	files    *fakeFileRepo
	folders  *fakeFolderRepo
	perms    *fakePermRepo
	store    *fakeStorage
	notifier *recordingNotifier
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()

	mu := &sync.Mutex{}
	accounts := newFakeAccountRepo(mu)
	account := &models.Account{
		Email:       "owner@acme.test",
		Slug:        "acme",
		Tier:        models.TierFree,
		UsageLimit:  1 << 30,
		MaxFileSize: 400 << 20,
	}
	ws := accounts.add(account)

	folders := newFakeFolderRepo(mu)
	folder := &models.Folder{
		WorkspaceID: ws.ID,
		Name:        "Inbox",
		Path:        "/Inbox",
		Depth:       1,
		IsLinkRoot:  true,
	}
	assert.NoError(t, folders.Create(folder))

	link := &models.CollectionLink{
		WorkspaceID: ws.ID,
		FolderID:    folder.ID,
		OwnerSlug:   account.Slug,
		Topic:       "inbox",
		Title:       "Inbox",
		UsageLimit:  500 << 20,
		MaxFiles:    100,
		MaxFileSize: 400 << 20,
		IsActive:    true,
		Visibility:  models.LinkVisibilityPublic,
	}
	link.ID = uuid.NewString()
	links := newFakeLinkRepo(mu)
	links.links[link.ID] = link

	batches := newFakeBatchRepo(mu)
	perms := newFakePermRepo(mu)
	files := newFakeFileRepo(mu, link, account, perms, batches)
	store := newFakeStorage()
	notifier := newRecordingNotifier()

	svc := NewUploadService(links, accounts, batches, files, folders, perms, NewQuotaService(), store, notifier)
	return &uploadFixture{
		svc:      svc,
		link:     link,
		account:  account,
		folder:   folder,
		accounts: accounts,
		links:    links,
		batches:  batches,
		files:    files,
		folders:  folders,
		perms:    perms,
		store:    store,
		notifier: notifier,
	}
}

func testUpload(name string, size int64) *FileUpload {
	return &FileUpload{
		Name:        name,
		Size:        size,
		ContentType: "application/octet-stream",
		Reader:      strings.NewReader("stub content"),
	}
}

func (fx *uploadFixture) openBatch(t *testing.T, email string) *models.Batch {
	t.Helper()
	batch, err := fx.svc.OpenBatch("acme", "inbox", &models.OpenBatchRequest{
		UploaderName:  "Jess",
		UploaderEmail: email,
	})
	assert.NoError(t, err)
	return batch
}

func TestIngestEnrollsUploaderOnce(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()

	batch := fx.openBatch(t, "jess@ext.test")

	_, err := fx.svc.IngestFile(ctx, "acme", "inbox", batch.ID, testUpload("a.pdf", 10<<20))
	assert.NoError(t, err)
	_, err = fx.svc.IngestFile(ctx, "acme", "inbox", batch.ID, testUpload("b.pdf", 20<<20))
	assert.NoError(t, err)

	// Repeat uploads keep a single registry entry.
	entries, err := fx.perms.ListByLink(fx.link.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, models.RoleUploader, entries[0].Role)
	assert.False(t, entries[0].IsVerified)

	assert.Equal(t, int64(30<<20), fx.link.UsageUsed)
	assert.Equal(t, int64(2), fx.link.FileCount)
	assert.Equal(t, int64(30<<20), fx.account.UsageUsed)
	assert.Equal(t, int64(2), batch.TotalFiles)
	assert.Equal(t, 2, fx.store.count())
}

func TestDedicatedLinkRequiresRegistryEntry(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	fx.link.Visibility = models.LinkVisibilityDedicated

	_, err := fx.svc.OpenBatch("acme", "inbox", &models.OpenBatchRequest{
		UploaderName:  "Stranger",
		UploaderEmail: "stranger@ext.test",
	})
	assertCode(t, err, appErrors.CodeForbidden)

	// Pre-enrolled uploaders get through.
	assert.NoError(t, fx.perms.Enroll(nil, fx.link.ID, "invited@ext.test"))
	_, err = fx.svc.OpenBatch("acme", "inbox", &models.OpenBatchRequest{
		UploaderName:  "Invited",
		UploaderEmail: "invited@ext.test",
	})
	assert.NoError(t, err)
}

func TestInactiveLinkRejectsUploads(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	fx.link.IsActive = false

	_, err := fx.svc.OpenBatch("acme", "inbox", &models.OpenBatchRequest{
		UploaderName:  "Jess",
		UploaderEmail: "jess@ext.test",
	})
	assertCode(t, err, appErrors.CodeLinkInactive)
}

func TestIngestPreflightDenialWritesNoBlob(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	batch := fx.openBatch(t, "jess@ext.test")

	fx.link.UsageUsed = fx.link.UsageLimit

	_, err := fx.svc.IngestFile(context.Background(), "acme", "inbox", batch.ID, testUpload("big.bin", 10<<20))
	assertCode(t, err, appErrors.CodeLinkCapacityExceeded)
	assert.Equal(t, 0, fx.store.count())
}

func TestIngestStoreDenialRemovesBlob(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	batch := fx.openBatch(t, "jess@ext.test")

	// Preflight admits on its snapshot; the transactional check denies.
	fx.files.failIngest = appErrors.LinkCapacityExceeded(fx.link.UsageLimit, fx.link.UsageLimit)

	_, err := fx.svc.IngestFile(context.Background(), "acme", "inbox", batch.ID, testUpload("late.bin", 10<<20))
	assertCode(t, err, appErrors.CodeLinkCapacityExceeded)
	assert.Equal(t, 0, fx.store.count(), "denied ingest must not leak its blob")
	assert.Equal(t, int64(0), fx.link.UsageUsed)
}

func TestIngestIntoClosedBatch(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	batch := fx.openBatch(t, "jess@ext.test")

	_, err := fx.svc.CompleteBatch("acme", "inbox", batch.ID)
	assert.NoError(t, err)

	_, err = fx.svc.IngestFile(context.Background(), "acme", "inbox", batch.ID, testUpload("late.pdf", 1<<20))
	assertCode(t, err, appErrors.CodeBatchStatusInvalid)
}

func TestConcurrentIngestAdmitsExactlyOne(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	batch := fx.openBatch(t, "jess@ext.test")

	// Two 300MB files against a 500MB link: the counters admit exactly one,
	// no matter how the goroutines interleave.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.IngestFile(context.Background(), "acme", "inbox", batch.ID, testUpload("big.bin", 300<<20))
		}(i)
	}
	wg.Wait()

	var admitted, denied int
	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			assertCode(t, err, appErrors.CodeLinkCapacityExceeded)
			denied++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, denied)
	assert.Equal(t, int64(300<<20), fx.link.UsageUsed)
	assert.Equal(t, int64(1), fx.link.FileCount)
	assert.Equal(t, 1, fx.store.count(), "the denied upload must not keep a blob")
}

func TestCompleteBatchNotifiesOwner(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	fx.link.Settings = datatypes.JSON(`{"notify_on_upload":true}`)
	batch := fx.openBatch(t, "jess@ext.test")

	done, err := fx.svc.CompleteBatch("acme", "inbox", batch.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, done.Status)
	assert.Equal(t, 1, fx.notifier.batchCompleted)

	// Completion is terminal.
	_, err = fx.svc.CompleteBatch("acme", "inbox", batch.ID)
	assertCode(t, err, appErrors.CodeBatchStatusInvalid)
}

func TestFailBatch(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	batch := fx.openBatch(t, "jess@ext.test")

	failed, err := fx.svc.FailBatch("acme", "inbox", batch.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BatchStatusFailed, failed.Status)
}

func TestBatchScopedToLink(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	_, err := fx.svc.CompleteBatch("acme", "inbox", uuid.NewString())
	assertCode(t, err, appErrors.CodeBatchNotFound)
}

func TestDeleteFileRemovesBlob(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()
	batch := fx.openBatch(t, "jess@ext.test")

	file, err := fx.svc.IngestFile(ctx, "acme", "inbox", batch.ID, testUpload("a.pdf", 10<<20))
	assert.NoError(t, err)
	assert.Equal(t, 1, fx.store.count())

	assert.NoError(t, fx.svc.DeleteFile(ctx, fx.link.WorkspaceID, fx.account.ID, file.ID))
	assert.Equal(t, 0, fx.store.count())
	assert.Equal(t, int64(0), fx.link.UsageUsed)
	assert.Equal(t, int64(0), fx.account.UsageUsed)
}

func TestDeleteFileWrongWorkspace(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()
	batch := fx.openBatch(t, "jess@ext.test")

	file, err := fx.svc.IngestFile(ctx, "acme", "inbox", batch.ID, testUpload("a.pdf", 10<<20))
	assert.NoError(t, err)

	err = fx.svc.DeleteFile(ctx, uuid.NewString(), fx.account.ID, file.ID)
	assertCode(t, err, appErrors.CodeFileNotFound)
	assert.Equal(t, 1, fx.store.count())
}

func TestStoreOwnerFileBypassesLinkCeilings(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()

	// Fill the link completely; owner content only answers to the account.
	fx.link.UsageUsed = fx.link.UsageLimit

	file, err := fx.svc.StoreOwnerFile(ctx, fx.account, fx.link.WorkspaceID, fx.folder.ID, testUpload("notes.txt", 5<<20))
	assert.NoError(t, err)
	assert.Nil(t, file.LinkID)
	assert.Equal(t, "/Inbox", file.FolderPath)

	_, err = fx.svc.StoreOwnerFile(ctx, fx.account, uuid.NewString(), fx.folder.ID, testUpload("notes.txt", 1))
	assertCode(t, err, appErrors.CodeFolderNotFound)
}

func TestFileDownloadURL(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()
	batch := fx.openBatch(t, "jess@ext.test")

	file, err := fx.svc.IngestFile(ctx, "acme", "inbox", batch.ID, testUpload("a.pdf", 1<<20))
	assert.NoError(t, err)

	url, err := fx.svc.FileDownloadURL(ctx, fx.link.WorkspaceID, file.ID)
	assert.NoError(t, err)
	assert.Equal(t, "/signed/"+file.StoragePath, url)
}
