package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrMissingBranch  = errors.New("auth: token has no branch_id")
	ErrInvalidRole    = errors.New("auth: invalid role")
	ErrBranchMismatch = errors.New("auth: branch mismatch")
)

// EnsureBranch rejects access to a resource owned by another branch than
// the request identity's. Calls without an identity are not restricted.
func EnsureBranch(ctx context.Context, resourceBranchID string) error {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.CanAccessBranch(resourceBranchID) {
		return nil
	}
	return ErrBranchMismatch
}
