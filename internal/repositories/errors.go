package repositories

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrFolderNotFound     = errors.New("folder not found")
	ErrLinkNotFound       = errors.New("collection link not found")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrPermissionNotFound = errors.New("permission entry not found")

	ErrFolderExists      = errors.New("folder name already taken under this parent")
	ErrFolderCycle       = errors.New("cannot move a folder into its own subtree")
	ErrEmailExists       = errors.New("account email already exists")
	ErrSlugTaken         = errors.New("account slug already taken")
	ErrLinkTopicTaken    = errors.New("link topic already taken for this slug")
	ErrBatchStatusFrozen = errors.New("batch status does not allow this operation")
	ErrRoleTransition    = errors.New("role transition not allowed")

	// ErrTransient marks serialization/deadlock failures. Only the
	// provisioning orchestrator retries on it; everything else surfaces
	// it to the caller as a conflict.
	ErrTransient = errors.New("transient serialization conflict")
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to a constraint whose name contains fragment.
func isUniqueViolation(err error, fragment string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	if fragment == "" {
		return true
	}
	return strings.Contains(pgErr.ConstraintName, fragment)
}

// isSerializationFailure reports whether err is a transient conflict the
// store may resolve on retry.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

// classifyWriteError maps store-level failures onto repository sentinels,
// passing everything else through unchanged.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isSerializationFailure(err) {
		return ErrTransient
	}
	return err
}
