package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/logger"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"
	"dropnest_backend/internal/storage"

	"github.com/google/uuid"
)

// UploadService drives the public ingestion flow: resolve a link by its
// public address, open a batch, admit files one by one, and close the batch.
// Admission is two-phase: a snapshot preflight before the blob store write,
// then the authoritative conditional-update check inside the database
// transaction. A denied transaction removes the already-written blob.
type UploadService interface {
	ResolveLink(slug, topic string) (*models.CollectionLink, *models.Account, error)
	OpenBatch(slug, topic string, req *models.OpenBatchRequest) (*models.Batch, error)
	IngestFile(ctx context.Context, slug, topic, batchID string, upload *FileUpload) (*models.File, error)
	CompleteBatch(slug, topic, batchID string) (*models.Batch, error)
	FailBatch(slug, topic, batchID string) (*models.Batch, error)
	DeleteFile(ctx context.Context, workspaceID, accountID, fileID string) error
	ResizeFile(workspaceID, accountID, fileID string, newSize int64) (*models.File, error)
	StoreOwnerFile(ctx context.Context, account *models.Account, workspaceID, folderID string, upload *FileUpload) (*models.File, error)
	FileDownloadURL(ctx context.Context, workspaceID, fileID string) (string, error)
}

// FileUpload is one incoming file stream with its declared metadata.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type uploadService struct {
	linkRepo    repositories.LinkRepository
	accountRepo repositories.AccountRepository
	batchRepo   repositories.BatchRepository
	fileRepo    repositories.FileRepository
	folderRepo  repositories.FolderRepository
	permRepo    repositories.PermissionRepository
	quota       QuotaService
	store       storage.Storage
	notifier    NotificationService
}

func NewUploadService(
	linkRepo repositories.LinkRepository,
	accountRepo repositories.AccountRepository,
	batchRepo repositories.BatchRepository,
	fileRepo repositories.FileRepository,
	folderRepo repositories.FolderRepository,
	permRepo repositories.PermissionRepository,
	quota QuotaService,
	store storage.Storage,
	notifier NotificationService,
) UploadService {
	return &uploadService{
		linkRepo:    linkRepo,
		accountRepo: accountRepo,
		batchRepo:   batchRepo,
		fileRepo:    fileRepo,
		folderRepo:  folderRepo,
		permRepo:    permRepo,
		quota:       quota,
		store:       store,
		notifier:    notifier,
	}
}

func (s *uploadService) ResolveLink(slug, topic string) (*models.CollectionLink, *models.Account, error) {
	link, err := s.linkRepo.FindBySlugAndTopic(slug, topic)
	if err != nil {
		if appErrors.Is(err, repositories.ErrLinkNotFound) {
			return nil, nil, appErrors.ErrLinkNotFound
		}
		return nil, nil, err
	}

	account, err := s.accountRepo.FindBySlug(slug)
	if err != nil {
		if appErrors.Is(err, repositories.ErrAccountNotFound) {
			return nil, nil, appErrors.ErrLinkNotFound
		}
		return nil, nil, err
	}
	return link, account, nil
}

func (s *uploadService) OpenBatch(slug, topic string, req *models.OpenBatchRequest) (*models.Batch, error) {
	link, _, err := s.ResolveLink(slug, topic)
	if err != nil {
		return nil, err
	}
	if !link.AcceptsUploads(time.Now()) {
		return nil, appErrors.ErrLinkInactive
	}
	if err := s.authorizeUploader(link, req.UploaderEmail); err != nil {
		return nil, err
	}

	batch := &models.Batch{
		LinkID:        link.ID,
		UploaderName:  req.UploaderName,
		UploaderEmail: req.UploaderEmail,
		Message:       req.Message,
		Status:        models.BatchStatusUploading,
	}
	if err := s.batchRepo.Create(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *uploadService) IngestFile(ctx context.Context, slug, topic, batchID string, upload *FileUpload) (*models.File, error) {
	link, account, err := s.ResolveLink(slug, topic)
	if err != nil {
		return nil, err
	}
	if !link.AcceptsUploads(time.Now()) {
		return nil, appErrors.ErrLinkInactive
	}

	batch, err := s.linkBatch(link, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.BatchStatusUploading {
		return nil, appErrors.ErrBatchStatusInvalid
	}
	if err := s.authorizeUploader(link, batch.UploaderEmail); err != nil {
		return nil, err
	}

	if err := s.quota.Preflight(link, account, upload.Size); err != nil {
		return nil, err
	}

	storagePath := blobPath(link.WorkspaceID, link.ID, upload.Name)
	if err := s.store.Save(ctx, storagePath, upload.Reader, upload.ContentType); err != nil {
		return nil, appErrors.InternalError(err)
	}

	folder, err := s.folderRepo.FindByID(link.FolderID)
	if err != nil {
		s.discardBlob(ctx, storagePath)
		return nil, err
	}

	file := &models.File{
		WorkspaceID:   link.WorkspaceID,
		FolderID:      folder.ID,
		FolderPath:    folder.Path,
		BatchID:       &batch.ID,
		LinkID:        &link.ID,
		Name:          upload.Name,
		Size:          upload.Size,
		MimeType:      upload.ContentType,
		StoragePath:   storagePath,
		UploaderEmail: batch.UploaderEmail,
		Status:        models.FileStatusReady,
	}

	if err := s.fileRepo.Ingest(file, batch, account.ID, batch.UploaderEmail); err != nil {
		s.discardBlob(ctx, storagePath)
		if appErrors.Is(err, repositories.ErrBatchStatusFrozen) {
			return nil, appErrors.ErrBatchStatusInvalid
		}
		if appErrors.Is(err, repositories.ErrTransient) {
			return nil, appErrors.ErrTransientConflict
		}
		return nil, err
	}
	return file, nil
}

func (s *uploadService) CompleteBatch(slug, topic, batchID string) (*models.Batch, error) {
	link, account, err := s.ResolveLink(slug, topic)
	if err != nil {
		return nil, err
	}
	batch, err := s.linkBatch(link, batchID)
	if err != nil {
		return nil, err
	}

	if err := s.batchRepo.SetStatus(batch.ID, models.BatchStatusUploading, models.BatchStatusProcessing); err != nil {
		return nil, mapBatchError(err)
	}
	if err := s.batchRepo.SetStatus(batch.ID, models.BatchStatusProcessing, models.BatchStatusCompleted); err != nil {
		return nil, mapBatchError(err)
	}

	batch, err = s.batchRepo.FindByID(batch.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyBatchCompleted(account, link, batch)
	}
	return batch, nil
}

func (s *uploadService) FailBatch(slug, topic, batchID string) (*models.Batch, error) {
	link, _, err := s.ResolveLink(slug, topic)
	if err != nil {
		return nil, err
	}
	batch, err := s.linkBatch(link, batchID)
	if err != nil {
		return nil, err
	}

	if err := s.batchRepo.SetStatus(batch.ID, batch.Status, models.BatchStatusFailed); err != nil {
		return nil, mapBatchError(err)
	}
	return s.batchRepo.FindByID(batch.ID)
}

func (s *uploadService) DeleteFile(ctx context.Context, workspaceID, accountID, fileID string) error {
	file, err := s.ownedFile(workspaceID, fileID)
	if err != nil {
		return err
	}

	deleted, err := s.fileRepo.Delete(file.ID, accountID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrFileNotFound) {
			return appErrors.ErrFileNotFound
		}
		return err
	}

	// Blob removal happens after commit; a failure here only leaks a blob,
	// never counters.
	s.discardBlob(ctx, deleted.StoragePath)
	return nil
}

func (s *uploadService) ResizeFile(workspaceID, accountID, fileID string, newSize int64) (*models.File, error) {
	if newSize < 0 {
		return nil, appErrors.ValidationError(map[string]string{"size": "size must not be negative"})
	}
	if _, err := s.ownedFile(workspaceID, fileID); err != nil {
		return nil, err
	}

	file, err := s.fileRepo.Resize(fileID, accountID, newSize)
	if err != nil {
		if appErrors.Is(err, repositories.ErrFileNotFound) {
			return nil, appErrors.ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

// StoreOwnerFile places content directly into a folder, bypassing any link.
// Only the account ceiling applies.
func (s *uploadService) StoreOwnerFile(ctx context.Context, account *models.Account, workspaceID, folderID string, upload *FileUpload) (*models.File, error) {
	folder, err := s.folderRepo.FindByID(folderID)
	if err != nil || folder.WorkspaceID != workspaceID {
		return nil, appErrors.ErrFolderNotFound
	}

	if err := s.quota.PreflightOwner(account, upload.Size); err != nil {
		return nil, err
	}

	storagePath := blobPath(workspaceID, "direct", upload.Name)
	if err := s.store.Save(ctx, storagePath, upload.Reader, upload.ContentType); err != nil {
		return nil, appErrors.InternalError(err)
	}

	file := &models.File{
		WorkspaceID: workspaceID,
		FolderID:    folder.ID,
		FolderPath:  folder.Path,
		Name:        upload.Name,
		Size:        upload.Size,
		MimeType:    upload.ContentType,
		StoragePath: storagePath,
		Status:      models.FileStatusReady,
	}

	if err := s.fileRepo.CreateOwnerFile(file, account.ID); err != nil {
		s.discardBlob(ctx, storagePath)
		if appErrors.Is(err, repositories.ErrTransient) {
			return nil, appErrors.ErrTransientConflict
		}
		return nil, err
	}
	return file, nil
}

func (s *uploadService) FileDownloadURL(ctx context.Context, workspaceID, fileID string) (string, error) {
	file, err := s.ownedFile(workspaceID, fileID)
	if err != nil {
		return "", err
	}
	url, err := s.store.GetSignedURL(ctx, file.StoragePath, 15*time.Minute)
	if err != nil {
		return "", appErrors.InternalError(err)
	}
	return url, nil
}

func (s *uploadService) ownedFile(workspaceID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrFileNotFound) {
			return nil, appErrors.ErrFileNotFound
		}
		return nil, err
	}
	if file.WorkspaceID != workspaceID {
		return nil, appErrors.ErrFileNotFound
	}
	return file, nil
}

func (s *uploadService) linkBatch(link *models.CollectionLink, batchID string) (*models.Batch, error) {
	batch, err := s.batchRepo.FindByID(batchID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrBatchNotFound) {
			return nil, appErrors.ErrBatchNotFound
		}
		return nil, err
	}
	if batch.LinkID != link.ID {
		return nil, appErrors.ErrBatchNotFound
	}
	return batch, nil
}

// authorizeUploader enforces link visibility: public links accept anyone,
// dedicated links require a pre-existing registry entry.
func (s *uploadService) authorizeUploader(link *models.CollectionLink, email string) error {
	if link.Visibility == models.LinkVisibilityPublic {
		return nil
	}
	_, err := s.permRepo.FindByLinkAndEmail(link.ID, email)
	if err != nil {
		if appErrors.Is(err, repositories.ErrPermissionNotFound) {
			return appErrors.ErrForbidden
		}
		return err
	}
	return nil
}

func (s *uploadService) discardBlob(ctx context.Context, path string) {
	if err := s.store.Delete(ctx, path); err != nil {
		logger.Warn("failed to remove blob", "path", path, "error", err)
	}
}

func mapBatchError(err error) error {
	switch {
	case appErrors.Is(err, repositories.ErrBatchNotFound):
		return appErrors.ErrBatchNotFound
	case appErrors.Is(err, repositories.ErrBatchStatusFrozen):
		return appErrors.ErrBatchStatusInvalid
	}
	return err
}

func blobPath(workspaceID, scope, name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s/%s/%s%s", workspaceID, scope, uuid.NewString(), ext)
}
