package services

import (
	"strings"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"
)

// FolderService runs the hierarchy operations on behalf of the workspace
// owner. All lookups are workspace-scoped so one account can never address
// another account's folders.
type FolderService interface {
	CreateFolder(workspaceID string, req *models.CreateFolderRequest) (*models.Folder, error)
	GetFolder(workspaceID, folderID string) (*models.Folder, error)
	ResolvePath(workspaceID, path string) (*models.Folder, error)
	ListChildren(workspaceID string, parentID *string) ([]models.Folder, error)
	ListFiles(workspaceID, folderID string) ([]models.File, error)
	MoveFolder(workspaceID, folderID string, req *models.MoveFolderRequest) (*models.Folder, error)
	RenameFolder(workspaceID, folderID string, req *models.RenameFolderRequest) (*models.Folder, error)
	DeleteFolder(workspaceID, folderID string) error
}

type folderService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
}

func NewFolderService(folderRepo repositories.FolderRepository, fileRepo repositories.FileRepository) FolderService {
	return &folderService{folderRepo: folderRepo, fileRepo: fileRepo}
}

func (s *folderService) CreateFolder(workspaceID string, req *models.CreateFolderRequest) (*models.Folder, error) {
	name := strings.TrimSpace(req.Name)
	if err := models.ValidateFolderName(name); err != nil {
		return nil, appErrors.ValidationError(map[string]string{"name": err.Error()})
	}

	var parentPath string
	depth := 1
	if req.ParentID != nil {
		parent, err := s.ownedFolder(workspaceID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
		depth = parent.Depth + 1
	}

	if depth > models.MaxFolderDepth {
		return nil, appErrors.DepthLimitExceeded(depth)
	}

	folder := &models.Folder{
		WorkspaceID: workspaceID,
		ParentID:    req.ParentID,
		Name:        name,
		Path:        models.ChildPath(parentPath, name),
		Depth:       depth,
	}

	if err := s.folderRepo.Create(folder); err != nil {
		return nil, mapFolderError(err)
	}
	return folder, nil
}

func (s *folderService) GetFolder(workspaceID, folderID string) (*models.Folder, error) {
	return s.ownedFolder(workspaceID, folderID)
}

func (s *folderService) ResolvePath(workspaceID, path string) (*models.Folder, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	folder, err := s.folderRepo.FindByPath(workspaceID, path)
	if err != nil {
		return nil, mapFolderError(err)
	}
	return folder, nil
}

func (s *folderService) ListChildren(workspaceID string, parentID *string) ([]models.Folder, error) {
	if parentID != nil {
		if _, err := s.ownedFolder(workspaceID, *parentID); err != nil {
			return nil, err
		}
	}
	return s.folderRepo.ListChildren(workspaceID, parentID)
}

func (s *folderService) ListFiles(workspaceID, folderID string) ([]models.File, error) {
	if _, err := s.ownedFolder(workspaceID, folderID); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByFolder(folderID)
}

func (s *folderService) MoveFolder(workspaceID, folderID string, req *models.MoveFolderRequest) (*models.Folder, error) {
	if _, err := s.ownedFolder(workspaceID, folderID); err != nil {
		return nil, err
	}
	if _, err := s.ownedFolder(workspaceID, req.NewParentID); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.Move(folderID, req.NewParentID)
	if err != nil {
		return nil, mapFolderError(err)
	}
	return folder, nil
}

func (s *folderService) RenameFolder(workspaceID, folderID string, req *models.RenameFolderRequest) (*models.Folder, error) {
	name := strings.TrimSpace(req.Name)
	if err := models.ValidateFolderName(name); err != nil {
		return nil, appErrors.ValidationError(map[string]string{"name": err.Error()})
	}
	if _, err := s.ownedFolder(workspaceID, folderID); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.Rename(folderID, name)
	if err != nil {
		return nil, mapFolderError(err)
	}
	return folder, nil
}

func (s *folderService) DeleteFolder(workspaceID, folderID string) error {
	if _, err := s.ownedFolder(workspaceID, folderID); err != nil {
		return err
	}
	if err := s.folderRepo.Delete(folderID); err != nil {
		return mapFolderError(err)
	}
	return nil
}

// ownedFolder loads a folder and verifies it belongs to the workspace.
// A folder in someone else's workspace reports not-found, not forbidden.
func (s *folderService) ownedFolder(workspaceID, folderID string) (*models.Folder, error) {
	folder, err := s.folderRepo.FindByID(folderID)
	if err != nil {
		return nil, mapFolderError(err)
	}
	if folder.WorkspaceID != workspaceID {
		return nil, appErrors.ErrFolderNotFound
	}
	return folder, nil
}

func mapFolderError(err error) error {
	switch {
	case appErrors.Is(err, repositories.ErrFolderNotFound):
		return appErrors.ErrFolderNotFound
	case appErrors.Is(err, repositories.ErrFolderExists):
		return appErrors.ErrFolderExists
	case appErrors.Is(err, repositories.ErrFolderCycle):
		return appErrors.ErrConflict.WithDetails(map[string]string{
			"reason": "cannot move a folder into its own subtree",
		})
	case appErrors.Is(err, repositories.ErrTransient):
		return appErrors.ErrTransientConflict
	}
	return err
}
