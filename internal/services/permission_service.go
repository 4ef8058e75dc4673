package services

import (
	"context"

	"dropnest_backend/internal/appErrors"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/repositories"
	"dropnest_backend/internal/verification"
)

// PermissionService runs the access registry flows: email verification for
// uploaders and the single legal role promotion (uploader to editor, only
// after the email is verified).
type PermissionService interface {
	RequestVerification(ctx context.Context, slug, topic, email string) error
	ConfirmVerification(ctx context.Context, slug, topic, email, code string) (*models.Permission, error)
	PromoteUploader(workspaceID, linkID, email string) (*models.Permission, error)
}

type permissionService struct {
	linkRepo repositories.LinkRepository
	permRepo repositories.PermissionRepository
	codes    *verification.Store
	notifier NotificationService
}

func NewPermissionService(
	linkRepo repositories.LinkRepository,
	permRepo repositories.PermissionRepository,
	codes *verification.Store,
	notifier NotificationService,
) PermissionService {
	return &permissionService{
		linkRepo: linkRepo,
		permRepo: permRepo,
		codes:    codes,
		notifier: notifier,
	}
}

// RequestVerification issues a one-time code for an enrolled uploader and
// mails it out. Unknown emails are rejected: enrollment happens on first
// upload, not here.
func (s *permissionService) RequestVerification(ctx context.Context, slug, topic, email string) error {
	link, err := s.publicLink(slug, topic)
	if err != nil {
		return err
	}

	if _, err := s.permRepo.FindByLinkAndEmail(link.ID, email); err != nil {
		if appErrors.Is(err, repositories.ErrPermissionNotFound) {
			return appErrors.ErrPermissionNotFound
		}
		return err
	}

	code, err := s.codes.Issue(ctx, link.ID, email)
	if err != nil {
		return appErrors.InternalError(err)
	}

	if s.notifier != nil {
		s.notifier.SendVerificationCode(email, link, code)
	}
	return nil
}

// ConfirmVerification redeems a code and marks the registry entry verified.
func (s *permissionService) ConfirmVerification(ctx context.Context, slug, topic, email, code string) (*models.Permission, error) {
	link, err := s.publicLink(slug, topic)
	if err != nil {
		return nil, err
	}

	if err := s.codes.Redeem(ctx, link.ID, email, code); err != nil {
		return nil, appErrors.ErrVerificationFailed.WithError(err)
	}

	if err := s.permRepo.MarkVerified(link.ID, email); err != nil {
		if appErrors.Is(err, repositories.ErrPermissionNotFound) {
			return nil, appErrors.ErrPermissionNotFound
		}
		return nil, err
	}
	return s.permRepo.FindByLinkAndEmail(link.ID, email)
}

// PromoteUploader raises a verified uploader to editor. Owner-only; the
// handler has already authenticated the workspace owner.
func (s *permissionService) PromoteUploader(workspaceID, linkID, email string) (*models.Permission, error) {
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

	perm, err := s.permRepo.FindByLinkAndEmail(link.ID, email)
	if err != nil {
		if appErrors.Is(err, repositories.ErrPermissionNotFound) {
			return nil, appErrors.ErrPermissionNotFound
		}
		return nil, err
	}
	if !perm.IsVerified {
		return nil, appErrors.ErrInvalidRoleTransition.WithDetails(map[string]string{
			"reason": "uploader email is not verified",
		})
	}
	if !perm.Role.CanPromoteTo(models.RoleEditor) {
		return nil, appErrors.ErrInvalidRoleTransition
	}

	if err := s.permRepo.Promote(link.ID, email); err != nil {
		switch {
		case appErrors.Is(err, repositories.ErrRoleTransition):
			return nil, appErrors.ErrInvalidRoleTransition
		case appErrors.Is(err, repositories.ErrPermissionNotFound):
			return nil, appErrors.ErrPermissionNotFound
		}
		return nil, err
	}
	return s.permRepo.FindByLinkAndEmail(link.ID, email)
}

func (s *permissionService) publicLink(slug, topic string) (*models.CollectionLink, error) {
	link, err := s.linkRepo.FindBySlugAndTopic(slug, topic)
	if err != nil {
		if appErrors.Is(err, repositories.ErrLinkNotFound) {
			return nil, appErrors.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}
