package models

type AccountTier string
type LinkVisibility string
type BatchStatus string
type FileStatus string
type PermissionRole string

const (
	TierFree     AccountTier = "free"
	TierPro      AccountTier = "pro"
	TierBusiness AccountTier = "business"

	// Public links enroll unknown uploaders on first upload;
	// dedicated links require a pre-existing permission entry.
	LinkVisibilityPublic    LinkVisibility = "public"
	LinkVisibilityDedicated LinkVisibility = "dedicated"

	BatchStatusUploading  BatchStatus = "uploading"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"

	FileStatusPending FileStatus = "pending"
	FileStatusReady   FileStatus = "ready"
	FileStatusFailed  FileStatus = "failed"

	RoleOwner    PermissionRole = "owner"
	RoleEditor   PermissionRole = "editor"
	RoleUploader PermissionRole = "uploader"
)

// batchTransitions encodes the monotone batch lifecycle:
// uploading -> processing -> completed | failed.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusUploading:  {BatchStatusProcessing, BatchStatusFailed},
	BatchStatusProcessing: {BatchStatusCompleted, BatchStatusFailed},
}

// CanTransition reports whether a batch may move from its current status to next.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanPromoteTo reports whether a registry role may be promoted to next.
// The only legal promotion is uploader -> editor (after verification);
// owner is terminal and never produced by a transition.
func (r PermissionRole) CanPromoteTo(next PermissionRole) bool {
	return r == RoleUploader && next == RoleEditor
}

func ValidVisibility(v LinkVisibility) bool {
	return v == LinkVisibilityPublic || v == LinkVisibilityDedicated
}

func ValidTier(t AccountTier) bool {
	return t == TierFree || t == TierPro || t == TierBusiness
}
