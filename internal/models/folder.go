package models

import (
	"errors"
	"strings"
)

// MaxFolderDepth is the hard ceiling on hierarchy depth. Roots sit at depth 1.
const MaxFolderDepth = 20

var (
	ErrEmptyFolderName   = errors.New("folder name must not be empty")
	ErrInvalidFolderName = errors.New("folder name must not contain '/'")
)

// Folder is a node of the workspace hierarchy. Path is materialized (the
// concatenation of ancestor names) and rewritten transactionally on every
// move/rename; it is never computed at read time.
type Folder struct {
	BaseModel
	WorkspaceID string  `gorm:"type:uuid;not null;index:idx_folders_workspace_path" json:"workspace_id"`
	ParentID    *string `gorm:"type:uuid;index;uniqueIndex:idx_folders_parent_name" json:"parent_id,omitempty"`
	Name        string  `gorm:"not null;uniqueIndex:idx_folders_parent_name" json:"name"`
	Path        string  `gorm:"not null;index:idx_folders_workspace_path" json:"path"`
	Depth       int     `gorm:"not null" json:"depth"`
	IsLinkRoot  bool    `gorm:"not null;default:false" json:"is_link_root"`

	// Aggregates, maintained on link roots by the ingestion path.
	TotalSize int64 `gorm:"not null;default:0" json:"total_size"`
	FileCount int64 `gorm:"not null;default:0" json:"file_count"`
}

// ValidateFolderName rejects names that would corrupt materialized paths.
func ValidateFolderName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyFolderName
	}
	if strings.Contains(name, "/") {
		return ErrInvalidFolderName
	}
	return nil
}

// ChildPath materializes the path of a child named name under parentPath.
func ChildPath(parentPath, name string) string {
	if parentPath == "" {
		return "/" + name
	}
	return parentPath + "/" + name
}

// SubtreePrefix is the string prefix every strict descendant path carries.
func SubtreePrefix(path string) string {
	return path + "/"
}

// likeEscaper neutralizes LIKE wildcards so a folder named "50%" cannot
// widen a subtree pattern onto sibling paths like "/505/...".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SubtreePattern is the LIKE pattern matching strict descendants of path.
func SubtreePattern(path string) string {
	return likeEscaper.Replace(path) + "/%"
}

// IsSelfOrDescendantPath reports whether path lies inside the subtree rooted
// at ancestorPath (including the root itself). Used to reject moving a
// folder under itself.
func IsSelfOrDescendantPath(path, ancestorPath string) bool {
	return path == ancestorPath || strings.HasPrefix(path, SubtreePrefix(ancestorPath))
}

// AncestorPaths returns the materialized paths of every ancestor of path,
// nearest last, including path itself.
func AncestorPaths(path string) []string {
	var out []string
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := ""
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		cur = cur + "/" + seg
		out = append(out, cur)
	}
	return out
}

// RewritePrefix substitutes newPrefix for oldPrefix in path. The second
// return is false when path is outside the old subtree.
func RewritePrefix(path, oldPrefix, newPrefix string) (string, bool) {
	if path == oldPrefix {
		return newPrefix, true
	}
	if !strings.HasPrefix(path, SubtreePrefix(oldPrefix)) {
		return path, false
	}
	return newPrefix + path[len(oldPrefix):], true
}
