package repositories

import (
	"errors"

	"dropnest_backend/internal/models"

	"gorm.io/gorm"
)

// FileRepository persists file rows and carries the transactional ingestion
// path: quota consumption at both scopes, optional uploader enrollment, the
// file insert, and batch/folder aggregate maintenance commit or roll back as
// one unit.
type FileRepository interface {
	Ingest(file *models.File, batch *models.Batch, accountID, uploaderEmail string) error
	CreateOwnerFile(file *models.File, accountID string) error
	FindByID(id string) (*models.File, error)
	ListByFolder(folderID string) ([]models.File, error)
	ListByBatch(batchID string) ([]models.File, error)
	Delete(fileID, accountID string) (*models.File, error)
	Resize(fileID, accountID string, newSize int64) (*models.File, error)
}

type FileRepositoryImpl struct {
	db    *gorm.DB
	quota QuotaRepository
	perms PermissionRepository
}

func NewFileRepository(db *gorm.DB, quota QuotaRepository, perms PermissionRepository) FileRepository {
	return &FileRepositoryImpl{db: db, quota: quota, perms: perms}
}

// Ingest admits one uploaded file through a link. Link capacity is consumed
// before account capacity so a link-scope denial never dirties the account
// counter; a denial at either scope aborts the whole transaction and leaves
// every counter untouched.
func (r *FileRepositoryImpl) Ingest(file *models.File, batch *models.Batch, accountID, uploaderEmail string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.quota.ConsumeLink(tx, *file.LinkID, file.Size, 1); err != nil {
			return err
		}
		if err := r.quota.ConsumeAccount(tx, accountID, file.Size); err != nil {
			return err
		}

		if uploaderEmail != "" {
			if err := r.perms.Enroll(tx, *file.LinkID, uploaderEmail); err != nil {
				return err
			}
		}

		if err := tx.Create(file).Error; err != nil {
			return classifyWriteError(err)
		}

		// Batch totals only advance while the batch is still open.
		res := tx.Model(&models.Batch{}).
			Where("id = ? AND status = ?", batch.ID, models.BatchStatusUploading).
			Updates(map[string]interface{}{
				"total_files": gorm.Expr("total_files + 1"),
				"total_size":  gorm.Expr("total_size + ?", file.Size),
			})
		if res.Error != nil {
			return classifyWriteError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrBatchStatusFrozen
		}

		err := tx.Model(&models.Folder{}).
			Where("id = ?", file.FolderID).
			Updates(map[string]interface{}{
				"total_size": gorm.Expr("total_size + ?", file.Size),
				"file_count": gorm.Expr("file_count + 1"),
			}).Error
		return classifyWriteError(err)
	})
}

// CreateOwnerFile stores a file placed directly by the workspace owner.
// Only the account ceiling applies; no link is involved.
func (r *FileRepositoryImpl) CreateOwnerFile(file *models.File, accountID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.quota.ConsumeAccount(tx, accountID, file.Size); err != nil {
			return err
		}
		if err := tx.Create(file).Error; err != nil {
			return classifyWriteError(err)
		}
		err := tx.Model(&models.Folder{}).
			Where("id = ?", file.FolderID).
			Updates(map[string]interface{}{
				"total_size": gorm.Expr("total_size + ?", file.Size),
				"file_count": gorm.Expr("file_count + 1"),
			}).Error
		return classifyWriteError(err)
	})
}

func (r *FileRepositoryImpl) FindByID(id string) (*models.File, error) {
	var file models.File
	err := r.db.First(&file, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (r *FileRepositoryImpl) ListByFolder(folderID string) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("folder_id = ?", folderID).
		Order("name ASC").
		Find(&files).Error
	return files, err
}

func (r *FileRepositoryImpl) ListByBatch(batchID string) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}

// Delete removes the file row and releases its bytes at every scope it was
// counted against. Returns the deleted row so the caller can remove the blob
// after commit.
func (r *FileRepositoryImpl) Delete(fileID, accountID string) (*models.File, error) {
	var deleted *models.File

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var file models.File
		err := tx.First(&file, "id = ?", fileID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		if err := tx.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
			return classifyWriteError(err)
		}

		if file.LinkID != nil {
			if err := r.quota.ReleaseLink(tx, *file.LinkID, file.Size, 1); err != nil {
				return err
			}
		}
		if err := r.quota.ReleaseAccount(tx, accountID, file.Size); err != nil {
			return err
		}

		err = tx.Model(&models.Folder{}).
			Where("id = ?", file.FolderID).
			Updates(map[string]interface{}{
				"total_size": gorm.Expr("GREATEST(total_size - ?, 0)", file.Size),
				"file_count": gorm.Expr("GREATEST(file_count - 1, 0)"),
			}).Error
		if err != nil {
			return classifyWriteError(err)
		}

		deleted = &file
		return nil
	})

	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Resize replaces the stored size, applying the delta against every ceiling
// the file is counted under. A growth that would breach a ceiling is denied
// and nothing changes.
func (r *FileRepositoryImpl) Resize(fileID, accountID string, newSize int64) (*models.File, error) {
	var resized *models.File

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var file models.File
		err := tx.First(&file, "id = ?", fileID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		delta := newSize - file.Size
		if delta == 0 {
			resized = &file
			return nil
		}

		if file.LinkID != nil {
			if err := r.quota.ApplyLinkDelta(tx, *file.LinkID, delta); err != nil {
				return err
			}
		}
		if err := r.quota.ApplyAccountDelta(tx, accountID, delta); err != nil {
			return err
		}

		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).Update("size", newSize).Error; err != nil {
			return classifyWriteError(err)
		}

		err = tx.Model(&models.Folder{}).
			Where("id = ?", file.FolderID).
			Update("total_size", gorm.Expr("GREATEST(total_size + ?, 0)", delta)).Error
		if err != nil {
			return classifyWriteError(err)
		}

		file.Size = newSize
		resized = &file
		return nil
	})

	if err != nil {
		return nil, err
	}
	return resized, nil
}
