package repositories

import (
	"database/sql"
	"errors"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FolderRepository owns the materialized folder hierarchy. Move and rename
// rewrite the path prefix of the whole subtree (folders and files) in a
// single serializable transaction, so no reader can observe a half-rewritten
// tree.
type FolderRepository interface {
	Create(folder *models.Folder) error
	FindByID(id string) (*models.Folder, error)
	FindByPath(workspaceID, path string) (*models.Folder, error)
	ListChildren(workspaceID string, parentID *string) ([]models.Folder, error)
	Move(folderID, newParentID string) (*models.Folder, error)
	Rename(folderID, newName string) (*models.Folder, error)
	Delete(folderID string) error
	AnyLinkRoot(workspaceID string, paths []string) (bool, error)
}

type FolderRepositoryImpl struct {
	db    *gorm.DB
	quota QuotaRepository
}

func NewFolderRepository(db *gorm.DB, quota QuotaRepository) FolderRepository {
	return &FolderRepositoryImpl{db: db, quota: quota}
}

var serializableTx = &sql.TxOptions{Isolation: sql.LevelSerializable}

func (r *FolderRepositoryImpl) Create(folder *models.Folder) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Root folders carry a NULL parent_id, and the composite unique
		// index treats NULLs as distinct; their name collision check has
		// to run explicitly. The partial index idx_folders_root_name
		// backstops the race between two concurrent creates.
		if folder.ParentID == nil {
			if err := ensureNoRootSibling(tx, folder.WorkspaceID, folder.Name, ""); err != nil {
				return err
			}
		}
		if err := tx.Create(folder).Error; err != nil {
			if isUniqueViolation(err, "parent_name") || isUniqueViolation(err, "root_name") {
				return ErrFolderExists
			}
			return classifyWriteError(err)
		}
		return nil
	})
}

func (r *FolderRepositoryImpl) FindByID(id string) (*models.Folder, error) {
	var folder models.Folder
	err := r.db.First(&folder, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return &folder, nil
}

func (r *FolderRepositoryImpl) FindByPath(workspaceID, path string) (*models.Folder, error) {
	var folder models.Folder
	err := r.db.Where("workspace_id = ? AND path = ?", workspaceID, path).First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return &folder, nil
}

func (r *FolderRepositoryImpl) ListChildren(workspaceID string, parentID *string) ([]models.Folder, error) {
	var folders []models.Folder
	q := r.db.Where("workspace_id = ?", workspaceID).Order("name ASC")
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	err := q.Find(&folders).Error
	return folders, err
}

// Move reparents a folder and rewrites the materialized paths and depths of
// every descendant folder and file.
func (r *FolderRepositoryImpl) Move(folderID, newParentID string) (*models.Folder, error) {
	var moved *models.Folder

	err := r.db.Transaction(func(tx *gorm.DB) error {
		folder, err := lockFolder(tx, folderID)
		if err != nil {
			return err
		}
		parent, err := lockFolder(tx, newParentID)
		if err != nil {
			return err
		}
		if parent.WorkspaceID != folder.WorkspaceID {
			return ErrFolderNotFound
		}
		if models.IsSelfOrDescendantPath(parent.Path, folder.Path) {
			return ErrFolderCycle
		}

		if err := ensureNoSibling(tx, parent, folder.Name, folder.ID); err != nil {
			return err
		}

		// The deepest descendant must still fit under the depth ceiling
		// after the move.
		var maxDepth int
		err = tx.Model(&models.Folder{}).
			Where("workspace_id = ? AND (path = ? OR path LIKE ?)",
				folder.WorkspaceID, folder.Path, models.SubtreePattern(folder.Path)).
			Select("COALESCE(MAX(depth), 0)").Scan(&maxDepth).Error
		if err != nil {
			return err
		}
		delta := parent.Depth + 1 - folder.Depth
		if maxDepth+delta > models.MaxFolderDepth {
			return appErrors.DepthLimitExceeded(maxDepth + delta)
		}

		oldPath := folder.Path
		newPath := models.ChildPath(parent.Path, folder.Name)

		res := tx.Model(&models.Folder{}).
			Where("id = ?", folder.ID).
			Updates(map[string]interface{}{
				"parent_id": parent.ID,
				"path":      newPath,
				"depth":     folder.Depth + delta,
			})
		if res.Error != nil {
			return classifyWriteError(res.Error)
		}

		if err := rewriteSubtree(tx, folder.WorkspaceID, oldPath, newPath, delta); err != nil {
			return err
		}

		folder.ParentID = &parent.ID
		folder.Path = newPath
		folder.Depth += delta
		moved = folder
		return nil
	}, serializableTx)

	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Rename changes a folder's name and rewrites descendant paths; depths are
// untouched.
func (r *FolderRepositoryImpl) Rename(folderID, newName string) (*models.Folder, error) {
	var renamed *models.Folder

	err := r.db.Transaction(func(tx *gorm.DB) error {
		folder, err := lockFolder(tx, folderID)
		if err != nil {
			return err
		}

		var parentPath string
		if folder.ParentID != nil {
			parent, err := lockFolder(tx, *folder.ParentID)
			if err != nil {
				return err
			}
			parentPath = parent.Path
			if err := ensureNoSibling(tx, parent, newName, folder.ID); err != nil {
				return err
			}
		} else {
			if err := ensureNoRootSibling(tx, folder.WorkspaceID, newName, folder.ID); err != nil {
				return err
			}
		}

		oldPath := folder.Path
		newPath := models.ChildPath(parentPath, newName)

		res := tx.Model(&models.Folder{}).
			Where("id = ?", folder.ID).
			Updates(map[string]interface{}{"name": newName, "path": newPath})
		if res.Error != nil {
			return classifyWriteError(res.Error)
		}

		if err := rewriteSubtree(tx, folder.WorkspaceID, oldPath, newPath, 0); err != nil {
			return err
		}

		folder.Name = newName
		folder.Path = newPath
		renamed = folder
		return nil
	}, serializableTx)

	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// Delete hard-deletes the folder, its descendant folders and files, and any
// collection links rooted inside the subtree (with their permission
// entries). Account usage is released for every deleted file.
func (r *FolderRepositoryImpl) Delete(folderID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		folder, err := lockFolder(tx, folderID)
		if err != nil {
			return err
		}

		subtree := tx.Model(&models.Folder{}).
			Select("id").
			Where("workspace_id = ? AND (path = ? OR path LIKE ?)",
				folder.WorkspaceID, folder.Path, models.SubtreePattern(folder.Path))

		// Links rooted in the subtree disappear with their folders.
		var linkIDs []string
		err = tx.Model(&models.CollectionLink{}).
			Where("folder_id IN (?)", subtree).
			Pluck("id", &linkIDs).Error
		if err != nil {
			return err
		}
		if len(linkIDs) > 0 {
			if err := tx.Delete(&models.Permission{}, "link_id IN ?", linkIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Batch{}, "link_id IN ?", linkIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.CollectionLink{}, "id IN ?", linkIDs).Error; err != nil {
				return err
			}
		}

		var freedBytes int64
		err = tx.Model(&models.File{}).
			Where("workspace_id = ? AND (folder_path = ? OR folder_path LIKE ?)",
				folder.WorkspaceID, folder.Path, models.SubtreePattern(folder.Path)).
			Select("COALESCE(SUM(size), 0)").Scan(&freedBytes).Error
		if err != nil {
			return err
		}

		err = tx.Delete(&models.File{},
			"workspace_id = ? AND (folder_path = ? OR folder_path LIKE ?)",
			folder.WorkspaceID, folder.Path, models.SubtreePattern(folder.Path)).Error
		if err != nil {
			return err
		}

		err = tx.Delete(&models.Folder{},
			"workspace_id = ? AND (path = ? OR path LIKE ?)",
			folder.WorkspaceID, folder.Path, models.SubtreePattern(folder.Path)).Error
		if err != nil {
			return classifyWriteError(err)
		}

		if freedBytes > 0 {
			accountID, err := workspaceAccountID(tx, folder.WorkspaceID)
			if err != nil {
				return err
			}
			if err := r.quota.ReleaseAccount(tx, accountID, freedBytes); err != nil {
				return err
			}
		}
		return nil
	}, serializableTx)
}

// AnyLinkRoot reports whether any of the given paths belongs to a folder
// flagged as a link root. Used to reject nesting one link inside another.
func (r *FolderRepositoryImpl) AnyLinkRoot(workspaceID string, paths []string) (bool, error) {
	if len(paths) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.Model(&models.Folder{}).
		Where("workspace_id = ? AND is_link_root = ? AND path IN ?", workspaceID, true, paths).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// lockFolder loads a folder row FOR UPDATE so concurrent subtree mutations
// serialize on the ancestor rows they touch.
func lockFolder(tx *gorm.DB, id string) (*models.Folder, error) {
	var folder models.Folder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&folder, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, classifyWriteError(err)
	}
	return &folder, nil
}

func ensureNoSibling(tx *gorm.DB, parent *models.Folder, name, excludeID string) error {
	var count int64
	err := tx.Model(&models.Folder{}).
		Where("parent_id = ? AND name = ? AND id <> ?", parent.ID, name, excludeID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrFolderExists
	}
	return nil
}

func ensureNoRootSibling(tx *gorm.DB, workspaceID, name, excludeID string) error {
	q := tx.Model(&models.Folder{}).
		Where("workspace_id = ? AND parent_id IS NULL AND name = ?", workspaceID, name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrFolderExists
	}
	return nil
}

// rewriteSubtree substitutes the new path prefix on every descendant folder
// and every file row inside the subtree. substring() is 1-indexed: position
// len(oldPath)+1 is the first character after the old prefix.
func rewriteSubtree(tx *gorm.DB, workspaceID, oldPath, newPath string, depthDelta int) error {
	err := tx.Model(&models.Folder{}).
		Where("workspace_id = ? AND path LIKE ?", workspaceID, models.SubtreePattern(oldPath)).
		Updates(map[string]interface{}{
			"path":  gorm.Expr("? || substring(path from ?)", newPath, len(oldPath)+1),
			"depth": gorm.Expr("depth + ?", depthDelta),
		}).Error
	if err != nil {
		return classifyWriteError(err)
	}

	err = tx.Model(&models.File{}).
		Where("workspace_id = ? AND (folder_path = ? OR folder_path LIKE ?)",
			workspaceID, oldPath, models.SubtreePattern(oldPath)).
		Update("folder_path", gorm.Expr("? || substring(folder_path from ?)", newPath, len(oldPath)+1)).Error
	return classifyWriteError(err)
}

func workspaceAccountID(tx *gorm.DB, workspaceID string) (string, error) {
	var ws models.Workspace
	if err := tx.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrWorkspaceNotFound
		}
		return "", err
	}
	return ws.AccountID, nil
}
