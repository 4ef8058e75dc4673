package services

import (
	"encoding/json"
	"strings"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/config"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"

	"gorm.io/datatypes"
)

// LinkService manages collection links for the workspace owner. Deleting a
// link detaches its content rather than destroying it; the folder and files
// stay in the workspace.
type LinkService interface {
	CreateLink(account *models.Account, workspaceID string, req *models.CreateLinkRequest) (*models.CollectionLink, error)
	GetLink(workspaceID, linkID string) (*models.CollectionLink, error)
	ListLinks(workspaceID string) ([]models.CollectionLink, error)
	UpdateLink(workspaceID, linkID string, req *models.UpdateLinkRequest) (*models.CollectionLink, error)
	DeleteLink(workspaceID, linkID string) error
	ListBatches(workspaceID, linkID string) ([]models.Batch, error)
	ListPermissions(workspaceID, linkID string) ([]models.Permission, error)
}

type linkService struct {
	linkRepo   repositories.LinkRepository
	folderRepo repositories.FolderRepository
	batchRepo  repositories.BatchRepository
	permRepo   repositories.PermissionRepository
}

func NewLinkService(
	linkRepo repositories.LinkRepository,
	folderRepo repositories.FolderRepository,
	batchRepo repositories.BatchRepository,
	permRepo repositories.PermissionRepository,
) LinkService {
	return &linkService{
		linkRepo:   linkRepo,
		folderRepo: folderRepo,
		batchRepo:  batchRepo,
		permRepo:   permRepo,
	}
}

func (s *linkService) CreateLink(account *models.Account, workspaceID string, req *models.CreateLinkRequest) (*models.CollectionLink, error) {
	topic := normalizeTopic(req.Topic)
	if topic == "" {
		return nil, appErrors.ValidationError(map[string]string{"topic": "topic must contain letters or digits"})
	}

	folderName := strings.TrimSpace(req.FolderName)
	if folderName == "" {
		folderName = strings.TrimSpace(req.Title)
	}
	if err := models.ValidateFolderName(folderName); err != nil {
		return nil, appErrors.ValidationError(map[string]string{"folder_name": err.Error()})
	}

	var parentPath string
	depth := 1
	if req.ParentID != nil {
		parent, err := s.folderRepo.FindByID(*req.ParentID)
		if err != nil || parent.WorkspaceID != workspaceID {
			return nil, appErrors.ErrFolderNotFound
		}
		parentPath = parent.Path
		depth = parent.Depth + 1

		// A link subtree cannot sit inside another link subtree.
		nested, err := s.folderRepo.AnyLinkRoot(workspaceID, models.AncestorPaths(parent.Path))
		if err != nil {
			return nil, err
		}
		if nested {
			return nil, appErrors.ErrConflict.WithDetails(map[string]string{
				"reason": "cannot create a link inside another link's folder",
			})
		}
	}
	if depth > models.MaxFolderDepth {
		return nil, appErrors.DepthLimitExceeded(depth)
	}

	defaults := config.GetConfig().Quota.LinkDefaults
	link := &models.CollectionLink{
		OwnerSlug:   account.Slug,
		Topic:       topic,
		Title:       strings.TrimSpace(req.Title),
		UsageLimit:  defaults.UsageLimit,
		MaxFiles:    defaults.MaxFiles,
		MaxFileSize: defaults.MaxFileSize,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		Visibility:  models.LinkVisibilityPublic,
	}
	if req.UsageLimit > 0 {
		link.UsageLimit = req.UsageLimit
	}
	if req.MaxFiles > 0 {
		link.MaxFiles = req.MaxFiles
	}
	if req.MaxFileSize > 0 {
		link.MaxFileSize = req.MaxFileSize
	}
	if req.Visibility != "" {
		link.Visibility = models.LinkVisibility(req.Visibility)
	}
	if req.Settings != nil {
		raw, err := json.Marshal(req.Settings)
		if err != nil {
			return nil, appErrors.InternalError(err)
		}
		link.Settings = datatypes.JSON(raw)
	}

	folder := &models.Folder{
		WorkspaceID: workspaceID,
		ParentID:    req.ParentID,
		Name:        folderName,
		Path:        models.ChildPath(parentPath, folderName),
		Depth:       depth,
	}

	if err := s.linkRepo.Create(link, folder, account.Email); err != nil {
		switch {
		case appErrors.Is(err, repositories.ErrLinkTopicTaken):
			return nil, appErrors.ErrLinkTopicTaken
		case appErrors.Is(err, repositories.ErrFolderExists):
			return nil, appErrors.ErrFolderExists
		case appErrors.Is(err, repositories.ErrTransient):
			return nil, appErrors.ErrTransientConflict
		}
		return nil, err
	}
	return link, nil
}

func (s *linkService) GetLink(workspaceID, linkID string) (*models.CollectionLink, error) {
	return s.ownedLink(workspaceID, linkID)
}

func (s *linkService) ListLinks(workspaceID string) ([]models.CollectionLink, error) {
	return s.linkRepo.ListByWorkspace(workspaceID)
}

func (s *linkService) UpdateLink(workspaceID, linkID string, req *models.UpdateLinkRequest) (*models.CollectionLink, error) {
	if _, err := s.ownedLink(workspaceID, linkID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	if req.Settings != nil {
		raw, err := json.Marshal(req.Settings)
		if err != nil {
			return nil, appErrors.InternalError(err)
		}
		updates["settings"] = datatypes.JSON(raw)
	}
	if len(updates) == 0 {
		return s.linkRepo.FindByID(linkID)
	}

	link, err := s.linkRepo.UpdateSettings(linkID, updates)
	if err != nil {
		if appErrors.Is(err, repositories.ErrLinkNotFound) {
			return nil, appErrors.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

func (s *linkService) DeleteLink(workspaceID, linkID string) error {
	if _, err := s.ownedLink(workspaceID, linkID); err != nil {
		return err
	}
	if err := s.linkRepo.Delete(linkID); err != nil {
		if appErrors.Is(err, repositories.ErrLinkNotFound) {
			return appErrors.ErrLinkNotFound
		}
		return err
	}
	return nil
}

func (s *linkService) ListBatches(workspaceID, linkID string) ([]models.Batch, error) {
	if _, err := s.ownedLink(workspaceID, linkID); err != nil {
		return nil, err
	}
	return s.batchRepo.ListByLink(linkID)
}

func (s *linkService) ListPermissions(workspaceID, linkID string) ([]models.Permission, error) {
	if _, err := s.ownedLink(workspaceID, linkID); err != nil {
		return nil, err
	}
	return s.permRepo.ListByLink(linkID)
}

func (s *linkService) ownedLink(workspaceID, linkID string) (*models.CollectionLink, error) {
	link, err := s.linkRepo.FindByID(linkID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrLinkNotFound) {
			return nil, appErrors.ErrLinkNotFound
		}
		return nil, err
	}
	if link.WorkspaceID != workspaceID {
		return nil, appErrors.ErrLinkNotFound
	}
	return link, nil
}

// normalizeTopic lowercases and strips a topic down to URL-safe characters.
func normalizeTopic(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	var b strings.Builder
	lastDash := true
	for _, r := range topic {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == '-' || r == '_' || r == ' ':
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
