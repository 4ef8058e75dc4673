package repositories

import (
	"errors"
	"time"

	"dropnest_backend/internal/models"

	"gorm.io/gorm"
)

type BatchRepository interface {
	Create(batch *models.Batch) error
	FindByID(id string) (*models.Batch, error)
	ListByLink(linkID string) ([]models.Batch, error)
	SetStatus(batchID string, from, to models.BatchStatus) error
	FailStuck(olderThan time.Time) (int64, error)
}

type BatchRepositoryImpl struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &BatchRepositoryImpl{db: db}
}

func (r *BatchRepositoryImpl) Create(batch *models.Batch) error {
	return classifyWriteError(r.db.Create(batch).Error)
}

func (r *BatchRepositoryImpl) FindByID(id string) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.First(&batch, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (r *BatchRepositoryImpl) ListByLink(linkID string) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.db.Where("link_id = ?", linkID).
		Order("created_at DESC").
		Find(&batches).Error
	return batches, err
}

// SetStatus advances the batch lifecycle with a guarded UPDATE. The WHERE
// clause on the current status makes the transition monotone under
// concurrency: a batch that has already left `from` is not touched, and the
// caller gets ErrBatchStatusFrozen instead of a silent overwrite.
func (r *BatchRepositoryImpl) SetStatus(batchID string, from, to models.BatchStatus) error {
	if !from.CanTransition(to) {
		return ErrBatchStatusFrozen
	}

	res := r.db.Model(&models.Batch{}).
		Where("id = ? AND status = ?", batchID, from).
		Update("status", to)
	if res.Error != nil {
		return classifyWriteError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.Model(&models.Batch{}).Where("id = ?", batchID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrBatchNotFound
	}
	return ErrBatchStatusFrozen
}

// FailStuck moves batches that have sat in a non-terminal status past the
// deadline into failed. Ran by the background worker.
func (r *BatchRepositoryImpl) FailStuck(olderThan time.Time) (int64, error) {
	res := r.db.Model(&models.Batch{}).
		Where("status IN ? AND updated_at < ?",
			[]models.BatchStatus{models.BatchStatusUploading, models.BatchStatusProcessing}, olderThan).
		Update("status", models.BatchStatusFailed)
	if res.Error != nil {
		return 0, classifyWriteError(res.Error)
	}
	return res.RowsAffected, nil
}
